//go:build integration

package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	mcphost "github.com/wagiedev/mcp-process-host"
)

// TestMCPTools_ReadFile tests a full client session over the registry
// transport against the filesystem server.
func TestMCPTools_ReadFile(t *testing.T) {
	reg, bus := newRegistry(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	dir := tempDirWithFile(t, "answer.txt", "forty-two")

	client := mcp.NewClient(&mcp.Implementation{Name: "integration", Version: "v0.0.1"}, nil)

	session, err := client.Connect(ctx, mcphost.NewTransport(reg, bus, filesystemServer("fs", dir)), nil)
	require.NoError(t, err)

	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}

	require.Contains(t, names, "read_text_file")

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "read_text_file",
		Arguments: map[string]any{"path": filepath.Join(dir, "answer.txt")},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.Contains(t, text.Text, "forty-two")
}

// TestMCPTools_DispatcherSession tests the command layer against a real
// server: start, raw send, list and stop.
func TestMCPTools_DispatcherSession(t *testing.T) {
	reg, _ := newRegistry(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	d, err := mcphost.NewDispatcher(reg)
	require.NoError(t, err)

	outcome := d.Invoke(ctx, mcphost.CommandStartServer,
		[]byte(`{"serverId":"fs","command":["npx","-y","@modelcontextprotocol/server-filesystem","`+t.TempDir()+`"]}`))
	require.True(t, outcome.OK, outcome.Error)

	outcome = d.Invoke(ctx, mcphost.CommandSendToServer,
		[]byte(`{"serverId":"fs","message":"{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"ping\"}"}`))
	require.True(t, outcome.OK, outcome.Error)

	outcome = d.Invoke(ctx, mcphost.CommandListServers, nil)
	require.Equal(t, []string{"fs"}, outcome.Servers)

	outcome = d.Invoke(ctx, mcphost.CommandStopServer, []byte(`{"serverId":"fs"}`))
	require.True(t, outcome.OK, outcome.Error)
	require.Equal(t, "MCP server 'fs' stopped", outcome.Message)
}
