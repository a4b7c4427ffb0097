package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	mcphost "github.com/wagiedev/mcp-process-host"
	"github.com/wagiedev/mcp-process-host/internal/config"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag    string
		logLevelFlag  string
		logFormatFlag string
	)

	ctx := newCommandContext(&configFlag, &logLevelFlag, &logFormatFlag)

	rootCmd := &cobra.Command{
		Use:           "mcphost",
		Short:         "Run MCP servers as managed child processes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}

			_, err := ctx.ensureConfig()

			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newToolsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.File
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

// ensureConfig loads the file named by --config, or the defaults when no file
// was given, and applies the logging flags on top.
func (c *commandContext) ensureConfig() (*config.File, error) {
	c.configOnce.Do(func() {
		cfg := config.Default()

		if path := strings.TrimSpace(*c.configFlag); path != "" {
			loaded, err := config.Load(path)
			if err != nil {
				c.configErr = err

				return
			}

			cfg = *loaded
		}

		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}

		if format := strings.TrimSpace(*c.logFormatFlag); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}

		if err := cfg.Validate(); err != nil {
			c.configErr = err

			return
		}

		c.config = &cfg
	})

	return c.config, c.configErr
}

// logger builds the slog logger described by the config. Logs always go to
// w, never to stdout, which carries protocol output.
func (c *commandContext) logger(w io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Logging.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Logging.Format)
	}
}

// newRegistry creates a registry configured from the file, publishing to
// emitter.
func (c *commandContext) newRegistry(cmd *cobra.Command, emitter mcphost.Emitter) (*mcphost.Registry, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	log, err := c.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	opts := cfg.Options()

	reg := mcphost.New(
		mcphost.WithLogger(log),
		mcphost.WithEmitter(emitter),
		mcphost.WithBulkStopPolicy(opts.BulkStopPolicy),
		mcphost.WithStopConcurrency(opts.StopConcurrency),
	)

	return reg, log, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}

	return false
}

func startRequest(s config.NamedServer) mcphost.StartRequest {
	return mcphost.StartRequest{
		ID:      s.ID,
		Command: s.Command,
		Env:     s.Environment,
		Dir:     s.Cwd,
	}
}
