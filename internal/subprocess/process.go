package subprocess

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wagiedev/mcp-process-host/internal/errors"
	"github.com/wagiedev/mcp-process-host/internal/event"
)

// Spec describes the process to spawn.
type Spec struct {
	// Command is the executable followed by its arguments.
	Command []string

	// Env holds variables merged onto the inherited environment.
	// Entries here override inherited values with the same key.
	Env map[string]string

	// Dir is the working directory. Empty means the host's current directory.
	Dir string
}

// Process is a running MCP server with piped standard streams.
type Process struct {
	log       *slog.Logger
	id        string
	cmd       *exec.Cmd
	pid       int
	command   []string
	startedAt time.Time

	// Read ends of stdout/stderr, handed to forwarders by StartForwarding.
	stdout *os.File
	stderr *os.File

	mu        sync.Mutex // Serializes stdin writes
	stdinPipe io.WriteCloser
	stdin     *bufio.Writer // nil once closed or the process has exited

	forwardOnce sync.Once
	done        chan struct{}
	waitErr     error
	exitStatus  string
}

// Start spawns the process described by spec on behalf of server id.
//
// stdout and stderr are connected through os.Pipe rather than
// exec.Cmd.StdoutPipe so that reaping the process never closes a read end a
// forwarder is still draining. The process is reaped on a background goroutine
// as soon as it exits.
//
// Returns InvalidCommandError for an empty command, SpawnError when the OS
// refuses to create the process.
func Start(log *slog.Logger, id string, spec Spec) (*Process, error) {
	if len(spec.Command) == 0 || spec.Command[0] == "" {
		return nil, &errors.InvalidCommandError{ID: id, Err: errors.ErrEmptyCommand}
	}

	log = log.With("component", "subprocess", "server_id", id)

	//nolint:gosec // G204: launching caller-configured servers is the point of the registry
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Env = buildEnvironment(spec.Env)
	cmd.Dir = spec.Dir
	configureCmd(cmd)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, &errors.SpawnError{ID: id, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		_ = stdinPipe.Close()

		return nil, &errors.SpawnError{ID: id, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdinPipe, stdoutR, stdoutW)

		return nil, &errors.SpawnError{ID: id, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		closeAll(stdinPipe, stdoutR, stdoutW, stderrR, stderrW)
		log.Debug("Failed to start process", "command", spec.Command, "error", err)

		return nil, &errors.SpawnError{ID: id, Err: err}
	}

	// The child holds its own copies of the write ends; keeping ours open
	// would stop the forwarders from ever seeing end of stream.
	closeAll(stdoutW, stderrW)

	p := &Process{
		log:       log,
		id:        id,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		command:   slices.Clone(spec.Command),
		startedAt: time.Now(),
		stdout:    stdoutR,
		stderr:    stderrR,
		stdinPipe: stdinPipe,
		stdin:     bufio.NewWriter(stdinPipe),
		done:      make(chan struct{}),
	}

	go p.reap()

	log.Info("Process started", "pid", p.pid, "command", spec.Command)

	return p, nil
}

// reap waits for the process to exit and retires stdin.
func (p *Process) reap() {
	err := p.cmd.Wait()

	var status string
	if p.cmd.ProcessState != nil {
		status = p.cmd.ProcessState.String()
	} else if err != nil {
		status = err.Error()
	}

	p.mu.Lock()
	p.stdin = nil
	p.waitErr = err
	p.exitStatus = status
	p.mu.Unlock()

	p.log.Info("Process exited", "pid", p.pid, "status", status)
	close(p.done)
}

// StartForwarding launches one line forwarder per output stream and a
// goroutine that publishes the exit event after both streams drained and the
// process was reaped. Calls after the first are no-ops.
func (p *Process) StartForwarding(emitter event.Emitter) {
	p.forwardOnce.Do(func() {
		var wg sync.WaitGroup

		wg.Go(func() {
			Forward(p.log, p.stdout, emitter, event.StdoutName(p.id))
		})
		wg.Go(func() {
			Forward(p.log, p.stderr, emitter, event.StderrName(p.id))
		})

		go func() {
			wg.Wait()
			<-p.done

			if err := emitter.Emit(event.ExitName(p.id), p.ExitStatus()); err != nil {
				p.log.Warn("Failed to emit exit event", "error", err)
			}
		}()
	})
}

// Send writes message to stdin, appending a newline when missing, and flushes.
//
// Returns StdinUnavailableError once stdin was closed or the process exited,
// SendError when the write or the flush fails.
func (p *Process) Send(message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stdin == nil {
		return &errors.StdinUnavailableError{ID: p.id}
	}

	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}

	if _, err := p.stdin.WriteString(message); err != nil {
		p.log.Debug("Failed to write to stdin", "error", err)

		return &errors.SendError{ID: p.id, Op: errors.SendOpWrite, Err: err}
	}

	if err := p.stdin.Flush(); err != nil {
		p.log.Debug("Failed to flush stdin", "error", err)

		return &errors.SendError{ID: p.id, Op: errors.SendOpFlush, Err: err}
	}

	p.log.Debug("Message sent", "bytes", len(message))

	return nil
}

// CloseStdin closes stdin so the server sees end of input.
// Closing an already closed stdin is not an error.
func (p *Process) CloseStdin() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stdin == nil {
		return nil
	}

	flushErr := p.stdin.Flush()
	p.stdin = nil

	if err := p.stdinPipe.Close(); err != nil {
		return err
	}

	return flushErr
}

// StdinOpen reports whether Send can still reach the process.
func (p *Process) StdinOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stdin != nil
}

// Kill terminates the process (and on unix its whole process group).
// Killing a process that already exited is not an error. The group is
// signalled even after the leader was reaped, since descendants may still
// hold the output pipes open.
func (p *Process) Kill() error {
	p.log.Debug("Killing process", "pid", p.pid)

	if err := killProcess(p.cmd); err != nil {
		return fmt.Errorf("kill process (pid %d): %w", p.pid, err)
	}

	return nil
}

// ID returns the server identifier the process was started for.
func (p *Process) ID() string { return p.id }

// PID returns the OS process id.
func (p *Process) PID() int { return p.pid }

// Command returns a copy of the command line the process was started with.
func (p *Process) Command() []string { return slices.Clone(p.command) }

// StartedAt returns when the process was spawned.
func (p *Process) StartedAt() time.Time { return p.startedAt }

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether the process has been reaped.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitStatus describes how the process ended, e.g. "exit status 1" or
// "signal: killed". Empty while the process is running.
func (p *Process) ExitStatus() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitStatus
}

// Wait blocks until the process has been reaped and returns the error from
// exec.Cmd.Wait.
func (p *Process) Wait() error {
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.waitErr
}

// buildEnvironment merges overrides onto the inherited environment.
// Later entries win in exec, so overrides are appended in key order.
func buildEnvironment(overrides map[string]string) []string {
	env := os.Environ()

	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		env = append(env, key+"="+overrides[key])
	}

	return env
}

func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
