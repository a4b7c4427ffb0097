package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	mcphost "github.com/wagiedev/mcp-process-host"
	"github.com/wagiedev/mcp-process-host/internal/config"
)

// request is one command line read from stdin.
type request struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// output is one line written to stdout: either a command result or an event.
type output struct {
	Type    string           `json:"type"`
	ID      string           `json:"id,omitempty"`
	Command string           `json:"command,omitempty"`
	Outcome *mcphost.Outcome `json:"outcome,omitempty"`
	Event   string           `json:"event,omitempty"`
	Payload *string          `json:"payload,omitempty"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		noAutostart     bool
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve registry commands as JSON lines on stdin and stdout",
		Long: `Reads one JSON command per line from stdin, for example

  {"id":"1","command":"start_mcp_server","args":{"serverId":"fs","command":["cat"]}}

and writes one JSON object per line to stdout: a "result" for every command
and an "event" for every line a server prints and every server exit.

Enabled stdio servers from the configuration are started first. When stdin
ends, every server's stdin is closed and servers get --shutdown-timeout to
exit before they are killed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			s := &runSession{
				out:     json.NewEncoder(cmd.OutOrStdout()),
				pending: make(map[string]struct{}),
			}

			bus := mcphost.NewBus()
			defer bus.ListenAll(s.publish)()

			reg, log, err := ctx.newRegistry(cmd, bus)
			if err != nil {
				return err
			}

			s.log = log
			s.reg = reg

			d, err := mcphost.NewDispatcher(reg, mcphost.WithLogger(log))
			if err != nil {
				return err
			}

			s.dispatcher = d

			if !noAutostart {
				s.autostart(cmd.Context(), cfg.Autostart())
			}

			err = s.serve(cmd.Context(), cmd.InOrStdin())
			s.shutdown(shutdownTimeout)

			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		},
	}

	cmd.Flags().BoolVar(&noAutostart, "no-autostart", false, "Do not start the servers from the configuration")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second,
		"How long servers get to exit after their stdin closes")

	return cmd
}

type runSession struct {
	log        *slog.Logger
	reg        *mcphost.Registry
	dispatcher *mcphost.Dispatcher

	mu      sync.Mutex
	out     *json.Encoder
	pending map[string]struct{}
	drained chan struct{}
}

// autostart starts the configured servers. Failures are reported as results
// and do not stop the session.
func (s *runSession) autostart(ctx context.Context, servers []config.NamedServer) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, server := range servers {
		g.Go(func() error {
			outcome := mcphost.Outcome{OK: true}

			res, err := s.reg.Start(gctx, startRequest(server))
			if err != nil {
				outcome = mcphost.Outcome{Error: err.Error(), Err: err}
			} else {
				outcome.Message = res.Message()
			}

			s.write(output{Type: "result", ID: "autostart:" + server.ID, Command: mcphost.CommandStartServer, Outcome: &outcome})

			return nil
		})
	}

	_ = g.Wait()
}

// serve dispatches command lines from r until it ends or ctx is done.
func (s *runSession) serve(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		br := bufio.NewReader(r)

		for {
			line, err := br.ReadString('\n')
			if strings.TrimSpace(line) != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}

			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}

				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// The reader goroutine stays blocked in ReadString unless the
			// input can be closed; for a plain os.Stdin it ends with the process.
			if c, ok := r.(io.Closer); ok {
				_ = c.Close()
			}

			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return fmt.Errorf("read commands: %w", err)
				default:
					return nil
				}
			}

			s.handle(ctx, line)
		}
	}
}

func (s *runSession) handle(ctx context.Context, line string) {
	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.write(output{Type: "result", Outcome: &mcphost.Outcome{Error: "malformed request: " + err.Error()}})

		return
	}

	if req.ID == "" {
		req.ID = ulid.Make().String()
	}

	outcome := s.dispatcher.Invoke(ctx, req.Command, req.Args)
	s.write(output{Type: "result", ID: req.ID, Command: req.Command, Outcome: &outcome})
}

// publish writes a registry event to stdout and tracks exits for shutdown.
func (s *runSession) publish(name, payload string) {
	s.write(output{Type: "event", Event: name, Payload: &payload})

	if kind, id, ok := mcphost.ParseEvent(name); ok && kind == "exit" {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.pending, id)

		if s.drained != nil && len(s.pending) == 0 {
			close(s.drained)
			s.drained = nil
		}
	}
}

// shutdown closes every server's stdin, waits up to timeout for the exit
// events, and kills whatever is left.
func (s *runSession) shutdown(timeout time.Duration) {
	drained := make(chan struct{})

	s.mu.Lock()
	for _, info := range s.reg.Processes() {
		if !info.Exited {
			s.pending[info.ID] = struct{}{}
		}
	}

	if len(s.pending) == 0 {
		close(drained)
	} else {
		s.drained = drained
	}
	s.mu.Unlock()

	for _, id := range s.reg.List() {
		if err := s.reg.CloseInput(id); err != nil {
			s.log.Debug("Failed to close stdin", "server_id", id, "error", err)
		}
	}

	select {
	case <-drained:
	case <-time.After(timeout):
		s.log.Warn("Servers did not exit in time, killing them", "timeout", timeout)
	}

	if _, err := s.reg.StopAll(); err != nil {
		s.log.Error("Failed to stop servers", "error", err)
	}
}

func (s *runSession) write(o output) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.out.Encode(o); err != nil {
		s.log.Warn("Failed to write output", "error", err)
	}
}
