// cmd/fraud-report/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"loan-agent/internal/common/config"
	"loan-agent/internal/common/logger"
	"loan-agent/internal/models"
	"loan-agent/internal/narrative"

	"github.com/spf13/cobra"
)

// samplePayload is used when neither --json nor --file is given.
var samplePayload = map[string]interface{}{
	"applicant":       map[string]interface{}{"name": "Sample Applicant"},
	"id_verification": map[string]interface{}{"name_match": true, "dob_match": true},
	"paystub": map[string]interface{}{
		"employer":      "SampleCo",
		"gross_pay":     4000,
		"pay_frequency": "biweekly",
	},
	"external_checks":     map[string]interface{}{"ofac_screen": "clear"},
	"application_context": map[string]interface{}{"loan_amount": 10000, "channel": "online"},
}

type options struct {
	jsonPayload string
	filePath    string
	model       string
	provider    string
	baseURL     string
	timeout     time.Duration
	profile     bool
	verbose     bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "fraud-report",
		Short: "Generate a fraud-risk report for a loan application",
		Long: `Sends a loan application to the completion endpoint and prints a
three-section fraud narrative (identity, paystub, overall risk).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.Context(), opts, stdout, stderr)
			if err != nil {
				fmt.Fprintf(stderr, "error: %v\n", err)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.jsonPayload, "json", "", "Raw JSON application payload")
	flags.StringVar(&opts.filePath, "file", "", "Path to JSON file with application data")
	flags.StringVar(&opts.model, "model", "", fmt.Sprintf("Model (default: %s)", config.DefaultModel))
	flags.StringVar(&opts.provider, "provider", "", "Completion provider: openai or gemini")
	flags.StringVar(&opts.baseURL, "base-url", "", "Override the completion endpoint base URL")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Request timeout (e.g. 30s)")
	flags.BoolVar(&opts.profile, "profile", false, "Validate the payload as an ApplicantProfile before sending")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log request details to stderr")

	return cmd
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logger.NewConsole(level, stderr)
	defer log.Sync()

	cfg, err := loadConfig(opts, log)
	if err != nil {
		return err
	}

	payload, err := resolvePayload(opts)
	if err != nil {
		return err
	}

	client, err := narrative.NewClient(cfg, log)
	if err != nil {
		return err
	}

	report, err := client.Generate(ctx, payload)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, report.Text)
	return err
}

// loadConfig layers flags over configs/config.yaml, falling back to built-in
// defaults with a warning when the config cannot be read.
func loadConfig(opts *options, log logger.Logger) (narrative.Config, error) {
	cfg := narrative.DefaultConfig()
	appCfg, err := config.Load()
	if err != nil {
		log.Warn("ignoring unreadable config, using defaults", map[string]interface{}{"error": err})
	} else {
		cfg = narrative.ConfigFromApp(appCfg)
	}

	if opts.provider != "" {
		switch opts.provider {
		case config.ProviderOpenAI, config.ProviderGemini:
		default:
			return cfg, fmt.Errorf("--provider must be %q or %q", config.ProviderOpenAI, config.ProviderGemini)
		}
		if opts.provider != cfg.Provider && opts.baseURL == "" {
			cfg.BaseURL = ""
		}
		cfg.Provider = opts.provider
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	if opts.timeout > 0 {
		cfg.Timeout = opts.timeout
	}
	return cfg, nil
}

// resolvePayload picks --json over --file over the sample payload.
func resolvePayload(opts *options) (interface{}, error) {
	var raw string
	switch {
	case opts.jsonPayload != "":
		raw = opts.jsonPayload
	case opts.filePath != "":
		data, err := os.ReadFile(opts.filePath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", opts.filePath, err)
		}
		raw = string(data)
	default:
		if opts.profile {
			return nil, errors.New("--profile needs --json or --file")
		}
		return samplePayload, nil
	}

	if opts.profile {
		if _, err := models.ParseApplicantProfile([]byte(raw)); err != nil {
			return nil, err
		}
	}
	return raw, nil
}
