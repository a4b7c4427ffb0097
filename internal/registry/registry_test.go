package registry

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/mcp-process-host/internal/config"
	internalerrors "github.com/wagiedev/mcp-process-host/internal/errors"
	"github.com/wagiedev/mcp-process-host/internal/event"
	"github.com/wagiedev/mcp-process-host/internal/subprocess"
)

const waitTimeout = 5 * time.Second

var sleeper = []string{"sleep", "30"}

func newRegistry(t *testing.T, opts *config.Options) *Registry {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("Test requires POSIX utilities")
	}

	r := New(opts)

	t.Cleanup(func() {
		r.kill = (*subprocess.Process).Kill
		_, _ = r.StopAll()
	})

	return r
}

func start(t *testing.T, r *Registry, id string, command ...string) *StartResult {
	t.Helper()

	res, err := r.Start(context.Background(), StartRequest{ID: id, Command: command})
	require.NoError(t, err)

	return res
}

// failKill makes kills of the named identifiers fail. Processes that
// survive are killed when the test ends.
func failKill(t *testing.T, r *Registry, ids ...string) {
	t.Helper()

	var (
		mu        sync.Mutex
		survivors []*subprocess.Process
	)

	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()

		for _, p := range survivors {
			_ = p.Kill()
		}
	})

	r.kill = func(p *subprocess.Process) error {
		for _, id := range ids {
			if p.ID() == id {
				mu.Lock()
				survivors = append(survivors, p)
				mu.Unlock()

				return fmt.Errorf("operation not permitted (%s)", id)
			}
		}

		return p.Kill()
	}
}

func TestStart_RegistersProcess(t *testing.T) {
	r := newRegistry(t, nil)

	res := start(t, r, "fs", sleeper...)

	require.False(t, res.AlreadyRunning)
	require.Positive(t, res.PID)
	require.Equal(t, fmt.Sprintf("MCP server 'fs' started with PID: %d", res.PID), res.Message())
	require.Equal(t, []string{"fs"}, r.List())
}

func TestStart_AlreadyRunning(t *testing.T) {
	r := newRegistry(t, nil)

	first := start(t, r, "fs", sleeper...)
	second := start(t, r, "fs", "a-command-that-is-never-spawned")

	require.True(t, second.AlreadyRunning)
	require.Equal(t, first.PID, second.PID)
	require.Equal(t, "MCP server 'fs' is already running", second.Message())
	require.Equal(t, []string{"fs"}, r.List())
}

func TestStart_InvalidRequestsLeaveRegistryUntouched(t *testing.T) {
	r := newRegistry(t, nil)

	_, err := r.Start(context.Background(), StartRequest{ID: "", Command: sleeper})
	require.ErrorIs(t, err, internalerrors.ErrEmptyIdentifier)

	_, err = r.Start(context.Background(), StartRequest{ID: "fs"})
	invalid, ok := errors.AsType[*internalerrors.InvalidCommandError](err)
	require.True(t, ok)
	require.Equal(t, "fs", invalid.ID)

	_, err = r.Start(context.Background(), StartRequest{ID: "fs", Command: []string{"/nonexistent/mcp-server"}})
	_, ok = errors.AsType[*internalerrors.SpawnError](err)
	require.True(t, ok)

	require.Empty(t, r.List())
}

func TestStart_CanceledContext(t *testing.T) {
	r := newRegistry(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Start(ctx, StartRequest{ID: "fs", Command: sleeper})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, r.List())
}

// TestStart_ConcurrentSameIdentifier tests that racing starts of one
// identifier spawn exactly one process.
func TestStart_ConcurrentSameIdentifier(t *testing.T) {
	r := newRegistry(t, nil)

	const callers = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		spawned int
		pids    = make(map[int]struct{})
	)

	for range callers {
		wg.Go(func() {
			res, err := r.Start(context.Background(), StartRequest{ID: "fs", Command: sleeper})
			require.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()

			if !res.AlreadyRunning {
				spawned++
			}

			pids[res.PID] = struct{}{}
		})
	}

	wg.Wait()

	require.Equal(t, 1, spawned)
	require.Len(t, pids, 1)
	require.Equal(t, []string{"fs"}, r.List())
}

func TestStop(t *testing.T) {
	bus := event.NewBus()
	r := newRegistry(t, &config.Options{Emitter: bus})

	exited := make(chan string, 1)
	bus.Listen(event.ExitName("fs"), func(status string) { exited <- status })

	start(t, r, "fs", sleeper...)

	res, err := r.Stop("fs")
	require.NoError(t, err)
	require.True(t, res.WasRunning)
	require.Equal(t, "MCP server 'fs' stopped", res.Message())
	require.Empty(t, r.List())

	select {
	case status := <-exited:
		require.Equal(t, "signal: killed", status)
	case <-time.After(waitTimeout):
		t.Fatal("no exit event after Stop")
	}
}

func TestStop_NotRunning(t *testing.T) {
	r := newRegistry(t, nil)

	res, err := r.Stop("ghost")
	require.NoError(t, err)
	require.False(t, res.WasRunning)
	require.Equal(t, "MCP server 'ghost' was not running", res.Message())
}

// TestStop_ExitedOnItsOwn tests that a process which already ended is
// stopped successfully rather than being stuck in the registry.
func TestStop_ExitedOnItsOwn(t *testing.T) {
	r := newRegistry(t, nil)

	start(t, r, "short", "true")

	require.Eventually(t, func() bool {
		info, ok := r.Info("short")

		return ok && info.Exited
	}, waitTimeout, 10*time.Millisecond)

	require.Equal(t, []string{"short"}, r.List(), "exited processes stay registered until stopped")

	res, err := r.Stop("short")
	require.NoError(t, err)
	require.True(t, res.WasRunning)
	require.Empty(t, r.List())
}

// TestStop_KillsDescendantsOfExitedLeader tests that stopping a server whose
// own process already exited still kills the children holding its pipes.
func TestStop_KillsDescendantsOfExitedLeader(t *testing.T) {
	bus := event.NewBus()
	r := newRegistry(t, &config.Options{Emitter: bus})

	exited := make(chan string, 1)
	bus.Listen(event.ExitName("g"), func(status string) { exited <- status })

	start(t, r, "g", "sh", "-c", "sleep 20 & echo started; exit 0")

	require.Eventually(t, func() bool {
		info, ok := r.Info("g")

		return ok && info.Exited
	}, waitTimeout, 10*time.Millisecond)

	select {
	case <-exited:
		t.Fatal("exit event published while the background sleep still holds the pipes")
	default:
	}

	res, err := r.Stop("g")
	require.NoError(t, err)
	require.True(t, res.WasRunning)

	select {
	case status := <-exited:
		require.Equal(t, "exit status 0", status)
	case <-time.After(waitTimeout):
		t.Fatal("no exit event after Stop")
	}
}

func TestStop_KillFailureKeepsProcess(t *testing.T) {
	r := newRegistry(t, nil)
	failKill(t, r, "fs")

	start(t, r, "fs", sleeper...)

	_, err := r.Stop("fs")

	stopErr, ok := errors.AsType[*internalerrors.StopError](err)
	require.True(t, ok)
	require.Equal(t, "fs", stopErr.ID)
	require.Equal(t, "Failed to stop MCP server 'fs': operation not permitted (fs)", err.Error())
	require.Equal(t, []string{"fs"}, r.List())
}

func TestStart_AfterStopSpawnsNewProcess(t *testing.T) {
	r := newRegistry(t, nil)

	first := start(t, r, "fs", sleeper...)

	_, err := r.Stop("fs")
	require.NoError(t, err)

	second := start(t, r, "fs", sleeper...)
	require.False(t, second.AlreadyRunning)
	require.NotEqual(t, first.PID, second.PID)
}

func TestStopAll(t *testing.T) {
	r := newRegistry(t, nil)

	for _, id := range []string{"a", "b", "c"} {
		start(t, r, id, sleeper...)
	}

	res, err := r.StopAll()
	require.NoError(t, err)
	require.Equal(t, 3, res.Stopped)
	require.Equal(t, 3, res.Total)
	require.Equal(t, "Stopped 3 MCP servers", res.Message())
	require.Empty(t, r.List())
}

func TestStopAll_Empty(t *testing.T) {
	r := newRegistry(t, nil)

	res, err := r.StopAll()
	require.NoError(t, err)
	require.Equal(t, "Stopped 0 MCP servers", res.Message())
}

func TestStopAll_PartialFailure(t *testing.T) {
	tests := []struct {
		name     string
		policy   config.BulkStopPolicy
		expected []string
	}{
		{name: "drop forgets failures", policy: config.BulkStopDrop, expected: []string{}},
		{name: "retain keeps failures", policy: config.BulkStopRetain, expected: []string{"a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegistry(t, &config.Options{BulkStopPolicy: tt.policy, StopConcurrency: 2})
			failKill(t, r, "a", "c")

			for _, id := range []string{"a", "b", "c", "d"} {
				start(t, r, id, sleeper...)
			}

			res, err := r.StopAll()
			require.Equal(t, 2, res.Stopped)
			require.Equal(t, 4, res.Total)

			partial, ok := errors.AsType[*internalerrors.PartialStopError](err)
			require.True(t, ok)
			require.Equal(t, []string{"a", "c"}, partial.FailedIDs())
			require.Equal(
				t,
				"Stopped 2/4 servers. Failed to stop: a: operation not permitted (a), "+
					"c: operation not permitted (c)",
				err.Error(),
			)

			require.ElementsMatch(t, tt.expected, r.List())
		})
	}
}

func TestStopAll_RetainDoesNotReplaceRestartedProcess(t *testing.T) {
	r := newRegistry(t, &config.Options{BulkStopPolicy: config.BulkStopRetain})

	start(t, r, "a", sleeper...)

	var (
		old       *subprocess.Process
		restarted *StartResult
	)

	// Start a new "a" while the old one is being killed.
	r.kill = func(p *subprocess.Process) error {
		old = p
		restarted = start(t, r, "a", sleeper...)

		return errors.New("operation not permitted")
	}

	_, err := r.StopAll()
	require.Error(t, err)

	r.kill = (*subprocess.Process).Kill
	require.NoError(t, old.Kill())

	info, ok := r.Info("a")
	require.True(t, ok)
	require.Equal(t, restarted.PID, info.PID)
}

func TestSend_NotRunning(t *testing.T) {
	r := newRegistry(t, nil)

	err := r.Send(context.Background(), "ghost", "ping")

	_, ok := errors.AsType[*internalerrors.NotRunningError](err)
	require.True(t, ok)
	require.Equal(t, "MCP server 'ghost' not running", err.Error())
}

func TestSend_EchoRoundTrip(t *testing.T) {
	bus := event.NewBus()
	r := newRegistry(t, &config.Options{Emitter: bus})

	lines := make(chan string, 4)
	bus.Listen(event.StdoutName("echo"), func(line string) { lines <- line })

	start(t, r, "echo", "cat")

	require.NoError(t, r.Send(context.Background(), "echo", `{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	require.NoError(t, r.Send(context.Background(), "echo", "second\n"))

	for _, want := range []string{`{"jsonrpc":"2.0","id":1,"method":"ping"}`, "second"} {
		select {
		case got := <-lines:
			require.Equal(t, want, got)
		case <-time.After(waitTimeout):
			t.Fatalf("no stdout event for %q", want)
		}
	}

	require.Equal(t, "Message sent to MCP server 'echo'", SentMessage("echo"))
}

func TestSend_ConcurrentMessagesDoNotInterleave(t *testing.T) {
	bus := event.NewBus()
	r := newRegistry(t, &config.Options{Emitter: bus})

	var (
		mu  sync.Mutex
		got = make(map[string]bool)
	)

	bus.Listen(event.StdoutName("echo"), func(line string) {
		mu.Lock()
		got[line] = true
		mu.Unlock()
	})

	start(t, r, "echo", "cat")

	const senders = 20

	var wg sync.WaitGroup

	for i := range senders {
		wg.Go(func() {
			require.NoError(t, r.Send(context.Background(), "echo", fmt.Sprintf(`{"id":%d}`, i)))
		})
	}

	wg.Wait()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(got) == senders
	}, waitTimeout, 10*time.Millisecond)

	for i := range senders {
		require.True(t, got[fmt.Sprintf(`{"id":%d}`, i)])
	}
}

func TestCloseInput(t *testing.T) {
	bus := event.NewBus()
	r := newRegistry(t, &config.Options{Emitter: bus})

	exited := make(chan string, 1)
	bus.Listen(event.ExitName("echo"), func(status string) { exited <- status })

	start(t, r, "echo", "cat")

	require.NoError(t, r.CloseInput("echo"))

	select {
	case status := <-exited:
		require.Equal(t, "exit status 0", status)
	case <-time.After(waitTimeout):
		t.Fatal("cat did not exit after stdin was closed")
	}

	_, ok := errors.AsType[*internalerrors.StdinUnavailableError](r.Send(context.Background(), "echo", "late"))
	require.True(t, ok)

	_, ok = errors.AsType[*internalerrors.NotRunningError](r.CloseInput("ghost"))
	require.True(t, ok)
}

func TestProcesses(t *testing.T) {
	r := newRegistry(t, nil)

	start(t, r, "b", sleeper...)
	start(t, r, "a", sleeper...)

	infos := r.Processes()
	require.Len(t, infos, 2)
	require.Equal(t, "a", infos[0].ID)
	require.Equal(t, "b", infos[1].ID)
	require.Equal(t, sleeper, infos[0].Command)
	require.True(t, infos[0].StdinOpen)
	require.False(t, infos[0].Exited)

	_, ok := r.Info("ghost")
	require.False(t, ok)
}

func TestList_Sorted(t *testing.T) {
	r := newRegistry(t, nil)

	for _, id := range []string{"zeta", "alpha", "mid"} {
		start(t, r, id, sleeper...)
	}

	require.Equal(t, []string{"alpha", "mid", "zeta"}, r.List())
}
