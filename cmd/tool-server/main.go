// cmd/tool-server/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"loan-agent/internal/common/config"
	"loan-agent/internal/common/logger"
	"loan-agent/internal/tools"
	"loan-agent/pkg/registry"

	"github.com/spf13/cobra"
)

type options struct {
	transport string
	host      string
	port      int
	catalog   string
	logLevel  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "tool-server",
		Short: "Serve the loan verification tools over the Model Context Protocol",
		Long: `Exposes verify_paystub and verify_id to MCP clients. The stdio transport
reads newline-delimited JSON-RPC from stdin and writes replies to stdout; all
logging goes to stderr.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, opts, stdin, stdout)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.transport, "transport", "", "Transport: stdio or http")
	flags.StringVar(&opts.host, "host", "", "Listen host for the http transport")
	flags.IntVar(&opts.port, "port", 0, "Listen port for the http transport")
	flags.StringVar(&opts.catalog, "catalog", "", "Path to an activity catalog overriding the embedded one")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts *options, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg, opts)

	switch cfg.ToolServer.Transport {
	case config.TransportStdio, config.TransportHTTP:
	default:
		return fmt.Errorf("--transport must be %q or %q", config.TransportStdio, config.TransportHTTP)
	}

	// stdout is the protocol channel
	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, "stderr")
	defer log.Sync()

	server, err := buildServer(cfg, opts.catalog, log)
	if err != nil {
		return err
	}

	log.Info("tool server starting", map[string]interface{}{
		"transport": cfg.ToolServer.Transport,
		"version":   cfg.ToolServer.Version,
	})

	if cfg.ToolServer.Transport == config.TransportHTTP {
		return server.ListenAndServe(ctx, cfg.ToolServer.Address())
	}
	return server.ServeStdio(ctx, stdin, stdout)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *options) {
	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.ToolServer.Transport = opts.transport
	}
	if flags.Changed("host") {
		cfg.ToolServer.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.ToolServer.Port = opts.port
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
}

func buildServer(cfg *config.Config, catalogPath string, log logger.Logger) (*tools.Server, error) {
	catalog, err := loadCatalog(catalogPath)
	if err != nil {
		return nil, err
	}

	reg := tools.NewRegistry(log)
	if err := tools.RegisterVerificationTools(reg, catalog, tools.NewVerifier(log)); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	return tools.NewServer(cfg.ToolServer.Name, cfg.ToolServer.Version, reg, log), nil
}

func loadCatalog(path string) (*registry.ActivityRegistry, error) {
	if path == "" {
		return registry.Default()
	}
	return registry.LoadRegistry(path)
}
