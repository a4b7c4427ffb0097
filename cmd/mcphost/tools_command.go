package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	mcphost "github.com/wagiedev/mcp-process-host"
	"github.com/wagiedev/mcp-process-host/internal/config"
)

// serverTools is the tool listing of one server.
type serverTools struct {
	Server string     `json:"server"`
	Tools  []toolInfo `json:"tools"`
	Error  string     `json:"error,omitempty"`
}

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func newToolsCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tools [server-id...]",
		Short: "List the tools of configured stdio servers",
		Long: `Starts each server, performs the MCP handshake, lists its tools and stops
it again. Tools named in the server's exclude_tools are left out. Without
arguments every enabled stdio server is queried.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			servers, err := selectServers(cfg, args)
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

			results := make([]serverTools, len(servers))

			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(4)

			for i, server := range servers {
				g.Go(func() error {
					qctx, cancel := context.WithTimeout(gctx, timeout)
					defer cancel()

					results[i] = listTools(qctx, reg, bus, server, log)

					return nil
				})
			}

			_ = g.Wait()

			if jsonOutput {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()

			var rows [][]string

			for _, r := range results {
				if r.Error != "" {
					rows = append(rows, []string{r.Server, "-", "error: " + r.Error})

					continue
				}

				for _, tool := range r.Tools {
					rows = append(rows, []string{r.Server, tool.Name, firstLine(tool.Description)})
				}
			}

			fmt.Fprintln(out, renderTable(out, []string{"Server", "Tool", "Description"}, rows))

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Write the listing as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Time allowed per server")

	return cmd
}

// selectServers picks the named servers, or every enabled stdio server when
// ids is empty.
func selectServers(cfg *config.File, ids []string) ([]config.NamedServer, error) {
	if len(ids) == 0 {
		return cfg.Autostart(), nil
	}

	servers := make([]config.NamedServer, 0, len(ids))

	for _, id := range ids {
		server, ok := cfg.Servers[id]
		if !ok {
			return nil, fmt.Errorf("server %q is not configured", id)
		}

		if server.GetType() != config.ServerTypeStdio {
			return nil, fmt.Errorf("server %q is a %s server; only stdio servers can be started", id, server.GetType())
		}

		servers = append(servers, config.NamedServer{ID: id, Server: server})
	}

	return servers, nil
}

func listTools(
	ctx context.Context,
	reg *mcphost.Registry,
	bus *mcphost.Bus,
	server config.NamedServer,
	log *slog.Logger,
) serverTools {
	result := serverTools{Server: server.ID, Tools: []toolInfo{}}
	client := mcp.NewClient(&mcp.Implementation{Name: "mcphost", Version: serverVersion}, nil)

	session, err := client.Connect(ctx, mcphost.NewTransport(reg, bus, startRequest(server), mcphost.WithLogger(log)), nil)
	if err != nil {
		result.Error = err.Error()

		return result
	}

	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("Failed to close session", "server_id", server.ID, "error", err)
		}
	}()

	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			result.Error = err.Error()

			return result
		}

		if server.Excludes(tool.Name) {
			continue
		}

		result.Tools = append(result.Tools, toolInfo{Name: tool.Name, Description: tool.Description})
	}

	slices.SortFunc(result.Tools, func(a, b toolInfo) int {
		return strings.Compare(a.Name, b.Name)
	})

	return result
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")

	return line
}
