package mcphost

import "github.com/wagiedev/mcp-process-host/internal/transport"

// Transport is an mcp.Transport that runs its server through a Registry.
//
// Connecting starts the server, or attaches to it when the identifier is
// already running. Closing the connection stops the server.
type Transport = transport.Transport

// NewTransport creates a transport for the server described by req. events
// must be the Bus the registry was created with via WithEmitter.
func NewTransport(reg *Registry, events *Bus, req StartRequest, opts ...Option) *Transport {
	return transport.New(reg, events, req, loggerOf(applyOptions(opts)))
}
