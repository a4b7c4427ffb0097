package main

import (
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	mcphost "github.com/wagiedev/mcp-process-host"
	internalmcp "github.com/wagiedev/mcp-process-host/internal/mcp"
)

const serverVersion = "v0.1.0"

func newServeCommand(ctx *commandContext) *cobra.Command {
	var noAutostart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the registry commands as tools of an MCP server on stdio",
		Long: `Runs an MCP server on stdin/stdout whose tools are the registry commands
(start_mcp_server, send_to_mcp_server, ...). Output of the managed servers is
logged at debug level on stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			bus := mcphost.NewBus()

			reg, log, err := ctx.newRegistry(cmd, bus)
			if err != nil {
				return err
			}

			defer func() {
				if _, err := reg.StopAll(); err != nil {
					log.Error("Failed to stop servers", "error", err)
				}
			}()

			defer bus.ListenAll(func(name, payload string) {
				log.Debug("Server output", "event", name, "payload", payload)
			})()

			if !noAutostart {
				for _, server := range cfg.Autostart() {
					if _, err := reg.Start(cmd.Context(), startRequest(server)); err != nil {
						log.Warn("Failed to autostart server", "server_id", server.ID, "error", err)
					}
				}
			}

			d, err := mcphost.NewDispatcher(reg, mcphost.WithLogger(log))
			if err != nil {
				return err
			}

			server := internalmcp.NewServer("mcphost", serverVersion, d)

			return server.Run(cmd.Context(), &mcp.IOTransport{
				Reader: io.NopCloser(cmd.InOrStdin()),
				Writer: nopWriteCloser{cmd.OutOrStdout()},
			})
		},
	}

	cmd.Flags().BoolVar(&noAutostart, "no-autostart", false, "Do not start the servers from the configuration")

	return cmd
}
