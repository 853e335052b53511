package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/osvaldoandrade/quotegen/pkg/app"
	"github.com/osvaldoandrade/quotegen/pkg/config"
	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

func newUI() *ui {
	return &ui{
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

type globalFlags struct {
	configPath string
	envFile    string
	bucket     string
	fileName   string
	modelID    string
	region     string
	local      string
}

func main() {
	u := newUI()
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "quotegen",
		Short: "Generate an image from a random quote and publish it",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetHelpTemplate(helpTemplate(u))

	root.PersistentFlags().StringVar(&flags.configPath, "config", getenv("QUOTEGEN_CONFIG_PATH", ""), "Path to YAML config")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Dotenv file loaded before the environment is read")
	root.PersistentFlags().StringVar(&flags.bucket, "bucket", "", "Dataset bucket")
	root.PersistentFlags().StringVar(&flags.fileName, "file", "", "Dataset object key")
	root.PersistentFlags().StringVar(&flags.modelID, "model", "", "Bedrock model ID")
	root.PersistentFlags().StringVar(&flags.region, "region", "", "AWS region")
	root.PersistentFlags().StringVar(&flags.local, "local-dir", "", "Use the local filesystem backend rooted at this directory")

	root.AddCommand(runCmd(u, flags), promptCmd(u, flags), historyCmd(u, flags))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, u.err("[ERROR]"), err)
		stop()
		os.Exit(1)
	}
}

func runCmd(u *ui, flags *globalFlags) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the job once",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer application.Close(context.WithoutCancel(cmd.Context()))

			var spin *spinner.Spinner
			if !quiet && isTerminal(int(os.Stderr.Fd())) {
				spin = spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(os.Stderr))
				spin.Suffix = " Generating image..."
				spin.Start()
			}
			rec, runErr := application.Job.Run(cmd.Context())
			if spin != nil {
				spin.Stop()
			}

			if err := printJSON(rec); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("%s: %w", rec.ErrorKind, runErr)
			}
			fmt.Fprintf(os.Stderr, "%s %s %s\n", u.ok("[OK]"), rec.Body.Message, u.dim(rec.Bucket+"/"+rec.ArtifactKey))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Disable the progress spinner")
	return cmd
}

func promptCmd(u *ui, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Select a row and print its prompt without invoking the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer application.Close(context.WithoutCancel(cmd.Context()))

			preview, err := application.Job.Preview(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s: %w", domain.KindOf(err), err)
			}
			fmt.Printf("%s %s\n", u.title("row"), u.dim(fmt.Sprintf("%d/%d", preview.Index+1, preview.RowCount)))
			fmt.Printf("  %s %s\n", u.info("character:"), preview.Row.Character)
			fmt.Printf("  %s %s\n", u.info("quote:"), preview.Row.Quote)
			fmt.Printf("%s %s\n", u.title("prompt"), preview.Prompt)
			return nil
		},
	}
}

func historyCmd(u *ui, flags *globalFlags) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer application.Close(context.WithoutCancel(cmd.Context()))

			if application.Runs == nil {
				return errors.New("run ledger is disabled; set REDIS_ADDR")
			}
			runs, err := application.Runs.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Println(u.dim("no runs recorded"))
				return nil
			}
			for _, r := range runs {
				status := u.ok(string(r.Status))
				detail := r.Bucket + "/" + r.ArtifactKey
				if !r.Succeeded() {
					status = u.err(string(r.Status))
					detail = string(r.ErrorKind) + ": " + r.Error
				}
				fmt.Printf("%s  %s  %-9s %s\n",
					u.dim(r.CompletedAt.Format(time.RFC3339)), r.RunID, status, detail)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")
	return cmd
}

func buildApp(ctx context.Context, flags *globalFlags) (*app.Application, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return nil, fmt.Errorf("load %s: %w", flags.envFile, err)
	}
	cfg, err := config.LoadConfigOptional(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return app.NewApplication(ctx, cfg, app.WithLogWriter(os.Stderr))
}

func applyFlags(cfg *config.Config, flags *globalFlags) {
	if flags.bucket != "" {
		if cfg.OutputBucket == cfg.Bucket {
			cfg.OutputBucket = flags.bucket
		}
		cfg.Bucket = flags.bucket
	}
	if flags.fileName != "" {
		cfg.FileName = flags.fileName
	}
	if flags.modelID != "" {
		cfg.ModelID = flags.modelID
	}
	if flags.region != "" {
		cfg.Region = flags.region
	}
	if flags.local != "" {
		cfg.StorageBackend = config.StorageBackendLocal
		cfg.LocalStorageDir = flags.local
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

func helpTemplate(u *ui) string {
	title := u.title("quotegen")
	return fmt.Sprintf(`%s: quote-to-image batch job

Usage:
  {{.UseLine}}

Commands:
{{range .Commands}}{{if (or .IsAvailableCommand .IsAdditionalHelpTopicCommand)}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

Flags:
  {{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

Global Flags:
  {{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

Examples:
  quotegen run
  quotegen run --local-dir ./objects --bucket anime
  quotegen prompt --file anime-quotes.csv
  quotegen history --limit 5

`, title)
}
