package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageBackendS3    = "s3"
	StorageBackendLocal = "local"

	// MinReadTimeoutSeconds bounds the model invocation timeout from below;
	// image generation routinely takes minutes.
	MinReadTimeoutSeconds = 300
)

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	OTLPInsecure bool    `yaml:"otlpInsecure"`
	SampleRatio  float64 `yaml:"sampleRatio"`
}

type Config struct {
	Bucket             string                       `yaml:"bucket"`
	OutputBucket       string                       `yaml:"outputBucket"`
	FileName           string                       `yaml:"fileName"`
	ModelID            string                       `yaml:"modelId"`
	Region             string                       `yaml:"region"`
	ReadTimeoutSeconds int                          `yaml:"readTimeoutSeconds"`
	Image              domain.ImageGenerationConfig `yaml:"image"`
	StorageBackend     string                       `yaml:"storageBackend"`
	LocalStorageDir    string                       `yaml:"localStorageDir"`
	RedisAddr          string                       `yaml:"redisAddr"`
	RedisPassword      string                       `yaml:"redisPassword"`
	ResultQueueURL     string                       `yaml:"resultQueueUrl"`
	PushgatewayURL     string                       `yaml:"pushgatewayUrl"`
	Tracing            TracingConfig                `yaml:"tracing"`
	Timezone           string                       `yaml:"timezone"`
	LogLevel           string                       `yaml:"logLevel"`
	LogFormat          string                       `yaml:"logFormat"`
	Env                string                       `yaml:"env"`

	imageSet bool
}

// LoadConfig reads the YAML file at filePath, then applies environment
// overrides and defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// LoadConfigOptional behaves like LoadConfig but tolerates an empty path or a
// missing file, in which case only the environment and defaults apply.
func LoadConfigOptional(filePath string) (*Config, error) {
	if strings.TrimSpace(filePath) == "" {
		return parse(nil)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return parse(nil)
		}
		return nil, err
	}
	return parse(data)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) without overriding variables already present in the environment.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

func parse(data []byte) (*Config, error) {
	var c Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		var probe struct {
			Image *yaml.Node `yaml:"image"`
		}
		if err := yaml.Unmarshal(data, &probe); err == nil && probe.Image != nil {
			c.imageSet = true
		}
	}
	c.applyEnv()
	c.applyDefaults()

	log.Printf("Quotegen Config: {Bucket:%s Output:%s File:%s Model:%s Region:%s Storage:%s Timeout:%ds}\n",
		c.Bucket, c.OutputBucket, c.FileName, c.ModelID, c.Region, c.StorageBackend, c.ReadTimeoutSeconds)
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("QUOTEGEN_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("QUOTEGEN_OUTPUT_BUCKET"); v != "" {
		c.OutputBucket = v
	}
	if v := os.Getenv("QUOTEGEN_FILE_NAME"); v != "" {
		c.FileName = v
	}
	if v := os.Getenv("QUOTEGEN_MODEL_ID"); v != "" {
		c.ModelID = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("QUOTEGEN_READ_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ReadTimeoutSeconds = n
		}
	}
	if v := os.Getenv("QUOTEGEN_STORAGE_BACKEND"); v != "" {
		c.StorageBackend = v
	}
	if v := os.Getenv("QUOTEGEN_LOCAL_STORAGE_DIR"); v != "" {
		c.LocalStorageDir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("QUOTEGEN_RESULT_QUEUE_URL"); v != "" {
		c.ResultQueueURL = v
	}
	if v := os.Getenv("QUOTEGEN_PUSHGATEWAY_URL"); v != "" {
		c.PushgatewayURL = v
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		c.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.OTLPEndpoint = v
	}
	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tracing.SampleRatio = f
		}
	}
	if v := os.Getenv("QUOTEGEN_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("QUOTEGEN_ENV"); v != "" {
		c.Env = v
	}
}

func (c *Config) applyDefaults() {
	if c.Bucket == "" {
		c.Bucket = "tleetyson-anime-bucket"
	}
	if c.OutputBucket == "" {
		c.OutputBucket = c.Bucket
	}
	if c.FileName == "" {
		c.FileName = "anime-quotes.csv"
	}
	if c.ModelID == "" {
		c.ModelID = "amazon.nova-canvas-v1:0"
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.ReadTimeoutSeconds == 0 {
		c.ReadTimeoutSeconds = MinReadTimeoutSeconds
	}
	if !c.imageSet {
		c.Image = domain.DefaultImageGenerationConfig()
	} else {
		if c.Image.NumberOfImages == 0 {
			c.Image.NumberOfImages = domain.DefaultNumberOfImages
		}
		if c.Image.Width == 0 {
			c.Image.Width = domain.DefaultImageWidth
		}
		if c.Image.Height == 0 {
			c.Image.Height = domain.DefaultImageHeight
		}
		if c.Image.CfgScale == 0 {
			c.Image.CfgScale = domain.DefaultCfgScale
		}
	}
	if c.StorageBackend == "" {
		c.StorageBackend = StorageBackendS3
	}
	if c.LocalStorageDir == "" {
		c.LocalStorageDir = "/tmp/quotegen-objects"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "quotegen"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Env == "" {
		c.Env = "dev"
	}
}

func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Bucket) == "" {
		errs = append(errs, "bucket is required")
	}
	if strings.TrimSpace(c.FileName) == "" {
		errs = append(errs, "fileName is required")
	}
	if strings.TrimSpace(c.ModelID) == "" {
		errs = append(errs, "modelId is required")
	}
	if c.ReadTimeoutSeconds < MinReadTimeoutSeconds {
		errs = append(errs, fmt.Sprintf("readTimeoutSeconds must be >= %d", MinReadTimeoutSeconds))
	}
	switch c.StorageBackend {
	case StorageBackendS3, StorageBackendLocal:
	default:
		errs = append(errs, "storageBackend must be one of s3, local")
	}
	if c.Image.Width <= 0 || c.Image.Height <= 0 {
		errs = append(errs, "image width and height must be positive")
	}
	if c.Image.NumberOfImages < 1 {
		errs = append(errs, "image numberOfImages must be >= 1")
	}
	if c.ResultQueueURL != "" {
		if u, err := url.Parse(c.ResultQueueURL); err != nil || u.Scheme != "https" || u.Host == "" {
			errs = append(errs, "resultQueueUrl must be a valid https URL")
		}
	}
	if c.PushgatewayURL != "" {
		if u, err := url.Parse(c.PushgatewayURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, "pushgatewayUrl must be a valid http(s) URL")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func parseBool(v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	return v == "true" || v == "1" || v == "yes" || v == "y" || v == "on"
}
