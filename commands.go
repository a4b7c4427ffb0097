package mcphost

import "github.com/wagiedev/mcp-process-host/internal/command"

// Dispatcher routes named commands with JSON arguments to a registry.
type Dispatcher = command.Dispatcher

// Outcome is the result of one command invocation.
type Outcome = command.Outcome

// Command names understood by a Dispatcher.
const (
	CommandStartServer    = command.StartServer
	CommandStopServer     = command.StopServer
	CommandSendToServer   = command.SendToServer
	CommandListServers    = command.ListServers
	CommandStopAllServers = command.StopAllServers
	CommandCloseStdin     = command.CloseStdin
)

// NewDispatcher creates a Dispatcher serving every command against reg.
func NewDispatcher(reg *Registry, opts ...Option) (*Dispatcher, error) {
	return command.NewDispatcher(reg, loggerOf(applyOptions(opts)))
}
