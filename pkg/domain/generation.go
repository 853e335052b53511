package domain

// TaskTypeTextImage is the Nova Canvas task type for text-to-image generation.
const TaskTypeTextImage = "TEXT_IMAGE"

const (
	DefaultNumberOfImages = 1
	DefaultImageWidth     = 1024
	DefaultImageHeight    = 1024
	DefaultCfgScale       = 8.0
	DefaultSeed           = 0
)

type GenerationRequest struct {
	TaskType              string                `json:"taskType"`
	TextToImageParams     TextToImageParams     `json:"textToImageParams"`
	ImageGenerationConfig ImageGenerationConfig `json:"imageGenerationConfig"`
}

type TextToImageParams struct {
	Text string `json:"text"`
}

type ImageGenerationConfig struct {
	NumberOfImages int     `json:"numberOfImages" yaml:"numberOfImages"`
	Height         int     `json:"height" yaml:"height"`
	Width          int     `json:"width" yaml:"width"`
	CfgScale       float64 `json:"cfgScale" yaml:"cfgScale"`
	Seed           int     `json:"seed" yaml:"seed"`
}

// DefaultImageGenerationConfig returns the fixed parameters used for every run:
// one 1024x1024 image, cfgScale 8.0, seed 0.
func DefaultImageGenerationConfig() ImageGenerationConfig {
	return ImageGenerationConfig{
		NumberOfImages: DefaultNumberOfImages,
		Height:         DefaultImageHeight,
		Width:          DefaultImageWidth,
		CfgScale:       DefaultCfgScale,
		Seed:           DefaultSeed,
	}
}

func NewGenerationRequest(prompt string, cfg ImageGenerationConfig) GenerationRequest {
	return GenerationRequest{
		TaskType:              TaskTypeTextImage,
		TextToImageParams:     TextToImageParams{Text: prompt},
		ImageGenerationConfig: cfg,
	}
}

// GenerationResponse is the model's reply. Exactly one of Images or Error is
// expected to be set.
type GenerationResponse struct {
	Images []string `json:"images,omitempty"`
	Error  *string  `json:"error,omitempty"`
}

// HasError reports whether the model returned a non-empty error field.
func (r GenerationResponse) HasError() bool {
	return r.Error != nil && *r.Error != ""
}
