package mcphost_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	mcphost "github.com/wagiedev/mcp-process-host"
)

func TestWithRegistry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := mcphost.WithRegistry(ctx, func(_ *mcphost.Registry) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestWithRegistry_StopsServersOnReturn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Test requires POSIX utilities")
	}

	var (
		escaped *mcphost.Registry
		pid     int
	)

	err := mcphost.WithRegistry(context.Background(), func(reg *mcphost.Registry) error {
		res, err := reg.Start(context.Background(), mcphost.StartRequest{
			ID:      "sleeper",
			Command: []string{"sleep", "30"},
		})
		if err != nil {
			return err
		}

		escaped = reg
		pid = res.PID

		return nil
	})

	require.NoError(t, err)
	require.Positive(t, pid)
	require.Empty(t, escaped.List())
}

func TestWithRegistry_CallbackError(t *testing.T) {
	boom := errors.New("boom")

	err := mcphost.WithRegistry(context.Background(), func(_ *mcphost.Registry) error {
		return boom
	})

	require.ErrorIs(t, err, boom)
}
