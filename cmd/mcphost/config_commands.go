package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wagiedev/mcp-process-host/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = "mcphost.toml"
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if !overwrite {
				flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
			}

			file, err := os.OpenFile(target, flags, 0o644)
			if os.IsExist(err) {
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
			} else if err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			if _, err := file.WriteString(config.SampleConfig()); err != nil {
				_ = file.Close()

				return fmt.Errorf("write sample config: %w", err)
			}

			if err := file.Close(); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)

			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")

	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and list its servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()

			if path := strings.TrimSpace(*ctx.configFlag); path != "" {
				fmt.Fprintf(out, "Config path: %s\n", path)
			} else {
				fmt.Fprintln(out, "No config file given; defaults were used")
			}

			rows := make([][]string, 0, len(cfg.Servers))
			for _, s := range cfg.ServerList() {
				target := strings.Join(s.Command, " ")
				if s.GetType() != config.ServerTypeStdio {
					target = s.URL
				}

				rows = append(rows, []string{
					s.ID,
					string(s.GetType()),
					yesNo(s.IsEnabled()),
					target,
					strings.Join(s.ExcludeTools, ", "),
				})
			}

			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable(out, []string{"Server", "Type", "Enabled", "Command / URL", "Excluded tools"}, rows))
			}

			fmt.Fprintln(out, "Configuration valid")

			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}

	return "no"
}
