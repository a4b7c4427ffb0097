package registry

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/mcp-process-host/internal/config"
	"github.com/wagiedev/mcp-process-host/internal/errors"
	"github.com/wagiedev/mcp-process-host/internal/event"
	"github.com/wagiedev/mcp-process-host/internal/subprocess"
)

// Registry tracks running MCP server processes by identifier.
//
// Registry is safe for concurrent use. It holds no global state; a host
// creates one per application context and passes it to whatever needs it.
type Registry struct {
	log             *slog.Logger
	emitter         event.Emitter
	policy          config.BulkStopPolicy
	stopConcurrency int

	mu        sync.Mutex
	processes map[string]*subprocess.Process

	// kill terminates a process. Tests replace it to simulate kill failures.
	kill func(*subprocess.Process) error
}

// New creates an empty registry.
func New(options *config.Options) *Registry {
	if options == nil {
		options = &config.Options{}
	}

	log := options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	emitter := options.Emitter
	if emitter == nil {
		emitter = event.Discard
	}

	policy := options.BulkStopPolicy
	if policy == "" {
		policy = config.BulkStopDrop
	}

	concurrency := options.StopConcurrency
	if concurrency <= 0 {
		concurrency = config.DefaultStopConcurrency
	}

	return &Registry{
		log:             log.With("component", "registry"),
		emitter:         emitter,
		policy:          policy,
		stopConcurrency: concurrency,
		processes:       make(map[string]*subprocess.Process),
		kill:            (*subprocess.Process).Kill,
	}
}

// Start spawns the server described by req unless one is already registered
// under req.ID.
//
// Starting an identifier that is already running is not an error: the result
// has AlreadyRunning set and nothing is spawned, so callers can start
// unconditionally. The spawn happens under the registry lock, which makes
// concurrent starts of one identifier spawn exactly one process.
//
// Returns InvalidCommandError for an empty identifier or command, SpawnError
// when the OS cannot create the process. A failed start leaves the registry
// untouched.
func (r *Registry) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if req.ID == "" {
		return nil, &errors.InvalidCommandError{ID: req.ID, Err: errors.ErrEmptyIdentifier}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()

	if existing, ok := r.processes[req.ID]; ok {
		r.mu.Unlock()
		r.log.Debug("Server already running", "server_id", req.ID, "pid", existing.PID())

		return &StartResult{ID: req.ID, PID: existing.PID(), AlreadyRunning: true}, nil
	}

	proc, err := subprocess.Start(r.log, req.ID, subprocess.Spec{
		Command: req.Command,
		Env:     req.Env,
		Dir:     req.Dir,
	})
	if err != nil {
		r.mu.Unlock()
		r.log.Warn("Failed to start server", "server_id", req.ID, "error", err)

		return nil, err
	}

	r.processes[req.ID] = proc
	r.mu.Unlock()

	proc.StartForwarding(r.emitter)

	return &StartResult{ID: req.ID, PID: proc.PID()}, nil
}

// Stop kills the server registered under id and forgets it.
//
// Stopping an identifier that is not registered is not an error; the result
// has WasRunning unset. When the kill fails the process is kept in the
// registry and StopError is returned. The kill is a signal, so the lock is
// held across it and no other start can claim the identifier in between.
func (r *Registry) Stop(id string) (*StopResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	proc, ok := r.processes[id]
	if !ok {
		return &StopResult{ID: id}, nil
	}

	delete(r.processes, id)

	if err := r.kill(proc); err != nil {
		r.processes[id] = proc
		r.log.Error("Failed to stop server", "server_id", id, "pid", proc.PID(), "error", err)

		return nil, &errors.StopError{ID: id, Err: err}
	}

	r.log.Info("Server stopped", "server_id", id, "pid", proc.PID())

	return &StopResult{ID: id, WasRunning: true}, nil
}

// StopAll empties the registry and kills every process that was in it.
//
// The table is drained under the lock and the kills run afterwards, at most
// StopConcurrency at a time. The returned result is never nil. When any kill
// fails the error is a PartialStopError naming each failure; whether those
// processes stay registered depends on the BulkStopPolicy.
func (r *Registry) StopAll() (*StopAllResult, error) {
	r.mu.Lock()
	drained := r.processes
	r.processes = make(map[string]*subprocess.Process, len(drained))
	r.mu.Unlock()

	total := len(drained)
	if total == 0 {
		return &StopAllResult{}, nil
	}

	var (
		failMu   sync.Mutex
		failures []errors.StopFailure
	)

	g := new(errgroup.Group)
	g.SetLimit(r.stopConcurrency)

	for id, proc := range drained {
		g.Go(func() error {
			if err := r.kill(proc); err != nil {
				failMu.Lock()
				failures = append(failures, errors.StopFailure{ID: id, Err: err})
				failMu.Unlock()
			}

			return nil
		})
	}

	_ = g.Wait()

	result := &StopAllResult{Stopped: total - len(failures), Total: total}

	if len(failures) == 0 {
		r.log.Info("All servers stopped", "count", total)

		return result, nil
	}

	slices.SortFunc(failures, func(a, b errors.StopFailure) int {
		return cmp.Compare(a.ID, b.ID)
	})

	if r.policy == config.BulkStopRetain {
		r.retain(drained, failures)
	}

	r.log.Error("Failed to stop some servers",
		"stopped", result.Stopped,
		"total", total,
		"policy", r.policy,
	)

	return result, &errors.PartialStopError{
		Stopped:  result.Stopped,
		Total:    total,
		Failures: failures,
	}
}

// retain re-registers processes whose kill failed. An identifier that was
// started again while the kills were running keeps its new process.
func (r *Registry) retain(drained map[string]*subprocess.Process, failures []errors.StopFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range failures {
		if _, taken := r.processes[f.ID]; taken {
			r.log.Error("Cannot retain unstopped server, identifier reused",
				"server_id", f.ID,
				"pid", drained[f.ID].PID(),
			)

			continue
		}

		r.processes[f.ID] = drained[f.ID]
	}
}

// List returns the registered identifiers in sorted order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Sorted(maps.Keys(r.processes))
}

// Send writes message to the stdin of the server registered under id. A
// trailing newline is added when message lacks one.
//
// The registry lock is released before writing; concurrent sends to one
// server are serialized by the process itself.
//
// Returns NotRunningError for an unknown id, StdinUnavailableError when stdin
// was closed or the process exited, SendError when the write or flush fails.
func (r *Registry) Send(ctx context.Context, id, message string) error {
	proc, ok := r.lookup(id)
	if !ok {
		return &errors.NotRunningError{ID: id}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return proc.Send(message)
}

// CloseInput closes the stdin of the server registered under id so it sees
// end of input. The process stays registered.
//
// Returns NotRunningError for an unknown id.
func (r *Registry) CloseInput(id string) error {
	proc, ok := r.lookup(id)
	if !ok {
		return &errors.NotRunningError{ID: id}
	}

	return proc.CloseStdin()
}

// Info describes the server registered under id.
func (r *Registry) Info(id string) (ProcessInfo, bool) {
	proc, ok := r.lookup(id)
	if !ok {
		return ProcessInfo{}, false
	}

	return describe(proc), true
}

// Processes describes every registered server, ordered by identifier.
func (r *Registry) Processes() []ProcessInfo {
	r.mu.Lock()
	procs := make([]*subprocess.Process, 0, len(r.processes))

	for _, id := range slices.Sorted(maps.Keys(r.processes)) {
		procs = append(procs, r.processes[id])
	}
	r.mu.Unlock()

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		infos = append(infos, describe(p))
	}

	return infos
}

func (r *Registry) lookup(id string) (*subprocess.Process, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	proc, ok := r.processes[id]

	return proc, ok
}
