package registry

import (
	"fmt"
	"time"

	"github.com/wagiedev/mcp-process-host/internal/subprocess"
)

// StartRequest describes a server to start.
type StartRequest struct {
	// ID is the caller-chosen identifier the server is registered under.
	ID string

	// Command is the executable followed by its arguments.
	Command []string

	// Env holds variables merged onto the host's environment.
	Env map[string]string

	// Dir is the working directory. Empty inherits the host's.
	Dir string
}

// StartResult reports the outcome of a successful Start.
type StartResult struct {
	ID  string
	PID int

	// AlreadyRunning is set when a process was already registered under ID
	// and nothing was spawned.
	AlreadyRunning bool
}

// Message renders the result for display.
func (r *StartResult) Message() string {
	if r.AlreadyRunning {
		return fmt.Sprintf("MCP server '%s' is already running", r.ID)
	}

	return fmt.Sprintf("MCP server '%s' started with PID: %d", r.ID, r.PID)
}

// StopResult reports the outcome of a successful Stop.
type StopResult struct {
	ID         string
	WasRunning bool
}

// Message renders the result for display.
func (r *StopResult) Message() string {
	if !r.WasRunning {
		return fmt.Sprintf("MCP server '%s' was not running", r.ID)
	}

	return fmt.Sprintf("MCP server '%s' stopped", r.ID)
}

// StopAllResult reports how many of the drained processes were stopped.
type StopAllResult struct {
	Stopped int
	Total   int
}

// Message renders the result for display.
func (r *StopAllResult) Message() string {
	return fmt.Sprintf("Stopped %d MCP servers", r.Stopped)
}

// SentMessage renders a successful Send for display.
func SentMessage(id string) string {
	return fmt.Sprintf("Message sent to MCP server '%s'", id)
}

// ProcessInfo is a point-in-time description of a registered server.
type ProcessInfo struct {
	ID        string    `json:"id"`
	PID       int       `json:"pid"`
	Command   []string  `json:"command"`
	StartedAt time.Time `json:"startedAt"`
	StdinOpen bool      `json:"stdinOpen"`

	// Exited is set when the process ended on its own and is still
	// registered because nobody stopped it yet.
	Exited     bool   `json:"exited"`
	ExitStatus string `json:"exitStatus,omitempty"`
}

func describe(p *subprocess.Process) ProcessInfo {
	return ProcessInfo{
		ID:         p.ID(),
		PID:        p.PID(),
		Command:    p.Command(),
		StartedAt:  p.StartedAt(),
		StdinOpen:  p.StdinOpen(),
		Exited:     p.Exited(),
		ExitStatus: p.ExitStatus(),
	}
}
