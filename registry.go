package mcphost

import "github.com/wagiedev/mcp-process-host/internal/registry"

// Registry tracks running MCP server processes by identifier.
// See the registry methods for the behavior of each operation.
type Registry = registry.Registry

// StartRequest describes a server to start.
type StartRequest = registry.StartRequest

// StartResult reports the outcome of a successful Start.
type StartResult = registry.StartResult

// StopResult reports the outcome of a successful Stop.
type StopResult = registry.StopResult

// StopAllResult reports how many processes StopAll stopped.
type StopAllResult = registry.StopAllResult

// ProcessInfo is a point-in-time description of a registered server.
type ProcessInfo = registry.ProcessInfo

// New creates an empty registry.
//
// The registry holds no global state; create one per application context and
// call StopAll when the application shuts down.
func New(opts ...Option) *Registry {
	return registry.New(applyOptions(opts))
}

// SentMessage renders a successful Send for display.
func SentMessage(id string) string {
	return registry.SentMessage(id)
}
