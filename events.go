package mcphost

import "github.com/wagiedev/mcp-process-host/internal/event"

// Emitter publishes one payload under a named event.
type Emitter = event.Emitter

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc = event.EmitterFunc

// Bus is an in-process Emitter with named and wildcard listeners.
type Bus = event.Bus

// ErrBusClosed is returned by Bus.Emit after Bus.Close.
var ErrBusClosed = event.ErrBusClosed

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return event.NewBus()
}

// StdoutEvent returns the name of the event carrying stdout lines of server id.
func StdoutEvent(id string) string { return event.StdoutName(id) }

// StderrEvent returns the name of the event carrying stderr lines of server id.
func StderrEvent(id string) string { return event.StderrName(id) }

// ExitEvent returns the name of the event published once server id exited.
// Its payload is the exit status, e.g. "exit status 1" or "signal: killed".
func ExitEvent(id string) string { return event.ExitName(id) }

// ParseEvent splits an event name into its kind ("stdout", "stderr" or
// "exit") and server identifier.
func ParseEvent(name string) (kind, id string, ok bool) {
	return event.Parse(name)
}
