package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/mcp-process-host/internal/errors"
	"github.com/wagiedev/mcp-process-host/internal/event"
	"github.com/wagiedev/mcp-process-host/internal/registry"
)

// Registry is the part of the process registry a transport needs.
type Registry interface {
	Start(ctx context.Context, req registry.StartRequest) (*registry.StartResult, error)
	Stop(id string) (*registry.StopResult, error)
	Send(ctx context.Context, id, message string) error
}

// Listener subscribes to named events. It must be fed by the emitter the
// registry publishes to.
type Listener interface {
	Listen(name string, fn func(payload string)) (unlisten func())
}

// Compile-time verification that Transport implements mcp.Transport.
var _ mcp.Transport = (*Transport)(nil)

// Transport is an mcp.Transport backed by a registry process.
type Transport struct {
	log      *slog.Logger
	registry Registry
	events   Listener
	req      registry.StartRequest
}

// New creates a transport that starts req through reg and listens for its
// output on events.
func New(reg Registry, events Listener, req registry.StartRequest, log *slog.Logger) *Transport {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Transport{
		log:      log.With("component", "transport", "server_id", req.ID),
		registry: reg,
		events:   events,
		req:      req,
	}
}

// Connect starts the server and returns a connection to it.
//
// Listeners are attached before the start so no early output is lost. When a
// server is already running under the identifier the connection attaches to
// it; closing the connection stops it either way.
func (t *Transport) Connect(ctx context.Context) (mcp.Connection, error) {
	c := &connection{
		log:       t.log,
		registry:  t.registry,
		serverID:  t.req.ID,
		sessionID: ulid.Make().String(),
		incoming:  make(chan string, 64),
		exited:    make(chan struct{}),
		closed:    make(chan struct{}),
	}

	c.unlisten = []func(){
		t.events.Listen(event.StdoutName(t.req.ID), c.receive),
		t.events.Listen(event.ExitName(t.req.ID), c.exit),
	}

	res, err := t.registry.Start(ctx, t.req)
	if err != nil {
		c.detach()

		return nil, err
	}

	if res.AlreadyRunning {
		t.log.Info("Attached to running server", "pid", res.PID)
	} else {
		t.log.Info("Connected to server", "pid", res.PID)
	}

	return c, nil
}

type connection struct {
	log       *slog.Logger
	registry  Registry
	serverID  string
	sessionID string

	incoming chan string
	exited   chan struct{}
	exitOnce sync.Once

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
	unlisten  []func()
}

// receive runs on the stdout forwarder. Blocking here applies backpressure to
// the server until Read catches up or the connection closes.
func (c *connection) receive(line string) {
	select {
	case c.incoming <- line:
	case <-c.closed:
	}
}

func (c *connection) exit(status string) {
	c.exitOnce.Do(func() {
		c.log.Debug("Server exited", "status", status)
		close(c.exited)
	})
}

// Read returns the next JSON-RPC message the server wrote. Lines that are not
// JSON-RPC messages, such as banners, are skipped. Read returns io.EOF once
// the server exited and its output is consumed.
func (c *connection) Read(ctx context.Context) (jsonrpc.Message, error) {
	for {
		var line string

		select {
		case line = <-c.incoming:
		case <-c.closed:
			return nil, errors.ErrTransportClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.exited:
			select {
			case line = <-c.incoming:
			default:
				return nil, io.EOF
			}
		}

		msg, err := jsonrpc.DecodeMessage([]byte(line))
		if err != nil {
			c.log.Debug("Skipping non JSON-RPC output", "line", line, "error", err)

			continue
		}

		return msg, nil
	}
}

// Write sends msg to the server's stdin as one line.
func (c *connection) Write(ctx context.Context, msg jsonrpc.Message) error {
	select {
	case <-c.closed:
		return errors.ErrTransportClosed
	default:
	}

	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return err
	}

	return c.registry.Send(ctx, c.serverID, string(data))
}

// Close stops the server and detaches from its events.
func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.detach()

		if _, err := c.registry.Stop(c.serverID); err != nil {
			c.log.Warn("Failed to stop server on close", "error", err)
			c.closeErr = err
		}
	})

	return c.closeErr
}

func (c *connection) SessionID() string {
	return c.sessionID
}

func (c *connection) detach() {
	for _, unlisten := range c.unlisten {
		unlisten()
	}
}
