package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-process-host/internal/errors"
	"github.com/wagiedev/mcp-process-host/internal/registry"
)

// Command names understood by the Dispatcher.
const (
	StartServer    = "start_mcp_server"
	StopServer     = "stop_mcp_server"
	SendToServer   = "send_to_mcp_server"
	ListServers    = "list_mcp_servers"
	StopAllServers = "stop_all_mcp_servers"
	CloseStdin     = "close_mcp_server_stdin"
)

// Registry is the part of the process registry the commands drive.
type Registry interface {
	Start(ctx context.Context, req registry.StartRequest) (*registry.StartResult, error)
	Stop(id string) (*registry.StopResult, error)
	StopAll() (*registry.StopAllResult, error)
	List() []string
	Send(ctx context.Context, id, message string) error
	CloseInput(id string) error
}

// Compile-time verification that the registry satisfies Registry.
var _ Registry = (*registry.Registry)(nil)

// StartArgs are the arguments of start_mcp_server.
type StartArgs struct {
	ServerID    string            `json:"serverId" jsonschema:"identifier to register the server under"`
	Command     []string          `json:"command" jsonschema:"executable followed by its arguments"`
	Environment map[string]string `json:"environment,omitempty" jsonschema:"variables added to the inherited environment"`
	Cwd         string            `json:"cwd,omitempty" jsonschema:"working directory of the server"`
}

// ServerArgs are the arguments of commands that address one server.
type ServerArgs struct {
	ServerID string `json:"serverId" jsonschema:"identifier the server was started under"`
}

// SendArgs are the arguments of send_to_mcp_server.
type SendArgs struct {
	ServerID string `json:"serverId" jsonschema:"identifier the server was started under"`
	Message  string `json:"message" jsonschema:"one JSON-RPC message; a trailing newline is added when missing"`
}

// NoArgs are the arguments of commands that take none.
type NoArgs struct{}

// Outcome is the result of one command invocation.
type Outcome struct {
	OK      bool     `json:"ok"`
	Message string   `json:"message,omitempty"`
	Servers []string `json:"servers,omitempty"`
	Error   string   `json:"error,omitempty"`

	// Err is the typed error behind Error, for in-process callers.
	Err error `json:"-"`
}

func success(message string) Outcome {
	return Outcome{OK: true, Message: message}
}

func failure(err error) Outcome {
	return Outcome{Error: err.Error(), Err: err}
}

type command struct {
	tool   *mcp.Tool
	schema *jsonschema.Resolved
	run    func(ctx context.Context, raw json.RawMessage) Outcome
}

// Dispatcher routes named commands to a registry.
type Dispatcher struct {
	log      *slog.Logger
	registry Registry
	commands map[string]*command
}

// NewDispatcher creates a dispatcher serving every command against reg.
// If log is nil, logging is disabled.
func NewDispatcher(reg Registry, log *slog.Logger) (*Dispatcher, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d := &Dispatcher{
		log:      log.With("component", "command"),
		registry: reg,
		commands: make(map[string]*command, 6),
	}

	registrations := []error{
		add(d, StartServer, "Start an MCP server process unless one is already running under the identifier.",
			d.start, "environment", "cwd"),
		add(d, StopServer, "Stop the MCP server running under the identifier.", d.stop),
		add(d, SendToServer, "Write one message line to the stdin of a running MCP server.", d.send),
		add(d, ListServers, "List the identifiers of running MCP servers.", d.list),
		add(d, StopAllServers, "Stop every running MCP server.", d.stopAll),
		add(d, CloseStdin, "Close the stdin of a running MCP server so it sees end of input.", d.closeStdin),
	}

	for _, err := range registrations {
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// add registers a command whose arguments decode into In. The named
// properties additionally accept JSON null.
func add[In any](
	d *Dispatcher,
	name, description string,
	run func(ctx context.Context, in In) Outcome,
	nullable ...string,
) error {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return fmt.Errorf("infer schema for %s: %w", name, err)
	}

	for _, prop := range nullable {
		if p := schema.Properties[prop]; p != nil && p.Type != "" {
			p.Types = []string{"null", p.Type}
			p.Type = ""
		}
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve schema for %s: %w", name, err)
	}

	d.commands[name] = &command{
		tool:   &mcp.Tool{Name: name, Description: description, InputSchema: schema},
		schema: resolved,
		run: func(ctx context.Context, raw json.RawMessage) Outcome {
			var in In
			if err := json.Unmarshal(raw, &in); err != nil {
				return failure(&errors.InvalidArgumentsError{Command: name, Err: err})
			}

			return run(ctx, in)
		},
	}

	return nil
}

// Invoke runs the named command with JSON-encoded arguments. Empty args are
// treated as an empty object.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args json.RawMessage) Outcome {
	cmd, ok := d.commands[name]
	if !ok {
		d.log.Warn("Unknown command", "command", name)

		return failure(fmt.Errorf("%w: %s", errors.ErrUnknownCommand, name))
	}

	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return failure(&errors.InvalidArgumentsError{Command: name, Err: err})
	}

	if err := cmd.schema.Validate(instance); err != nil {
		d.log.Debug("Rejected command arguments", "command", name, "error", err)

		return failure(&errors.InvalidArgumentsError{Command: name, Err: err})
	}

	outcome := cmd.run(ctx, args)

	if outcome.OK {
		d.log.Debug("Command succeeded", "command", name)
	} else {
		d.log.Debug("Command failed", "command", name, "error", outcome.Error)
	}

	return outcome
}

// Names returns the registered command names in sorted order.
func (d *Dispatcher) Names() []string {
	return slices.Sorted(maps.Keys(d.commands))
}

// Tools describes every command as an MCP tool, ordered by name.
func (d *Dispatcher) Tools() []*mcp.Tool {
	tools := make([]*mcp.Tool, 0, len(d.commands))
	for _, name := range d.Names() {
		tools = append(tools, d.commands[name].tool)
	}

	return tools
}

func (d *Dispatcher) start(ctx context.Context, in StartArgs) Outcome {
	res, err := d.registry.Start(ctx, registry.StartRequest{
		ID:      in.ServerID,
		Command: in.Command,
		Env:     in.Environment,
		Dir:     in.Cwd,
	})
	if err != nil {
		return failure(err)
	}

	return success(res.Message())
}

func (d *Dispatcher) stop(_ context.Context, in ServerArgs) Outcome {
	res, err := d.registry.Stop(in.ServerID)
	if err != nil {
		return failure(err)
	}

	return success(res.Message())
}

func (d *Dispatcher) send(ctx context.Context, in SendArgs) Outcome {
	if err := d.registry.Send(ctx, in.ServerID, in.Message); err != nil {
		return failure(err)
	}

	return success(registry.SentMessage(in.ServerID))
}

func (d *Dispatcher) list(context.Context, NoArgs) Outcome {
	return Outcome{OK: true, Servers: d.registry.List()}
}

func (d *Dispatcher) stopAll(context.Context, NoArgs) Outcome {
	res, err := d.registry.StopAll()
	if err != nil {
		return failure(err)
	}

	return success(res.Message())
}

func (d *Dispatcher) closeStdin(_ context.Context, in ServerArgs) Outcome {
	if err := d.registry.CloseInput(in.ServerID); err != nil {
		return failure(err)
	}

	return success(fmt.Sprintf("Closed stdin of MCP server '%s'", in.ServerID))
}
