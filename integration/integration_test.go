//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	mcphost "github.com/wagiedev/mcp-process-host"
)

// skipIfNpxNotInstalled skips the test when the reference servers cannot be
// launched.
func skipIfNpxNotInstalled(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("npx"); err != nil {
		t.Skip("npx not installed")
	}
}

// filesystemServer describes the reference filesystem MCP server rooted at dir.
func filesystemServer(id, dir string) mcphost.StartRequest {
	return mcphost.StartRequest{
		ID:      id,
		Command: []string{"npx", "-y", "@modelcontextprotocol/server-filesystem", dir},
		Env:     map[string]string{"NODE_NO_WARNINGS": "1"},
	}
}

func newRegistry(t *testing.T) (*mcphost.Registry, *mcphost.Bus) {
	t.Helper()

	skipIfNpxNotInstalled(t)

	bus := mcphost.NewBus()
	reg := mcphost.New(mcphost.WithEmitter(bus))

	t.Cleanup(func() {
		if _, err := reg.StopAll(); err != nil {
			t.Logf("StopAll: %v", err)
		}
	})

	return reg, bus
}

func tempDirWithFile(t *testing.T, name, content string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}

	return dir
}
