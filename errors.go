package mcphost

import "github.com/wagiedev/mcp-process-host/internal/errors"

// Re-export error types from internal package

// RegistryError is the base interface for all registry errors.
type RegistryError = errors.RegistryError

// InvalidCommandError indicates a start request could not describe a process.
type InvalidCommandError = errors.InvalidCommandError

// SpawnError indicates the OS could not create the process.
type SpawnError = errors.SpawnError

// NotRunningError indicates an operation named an identifier that is not tracked.
type NotRunningError = errors.NotRunningError

// StdinUnavailableError indicates the process is tracked but its stdin is closed.
type StdinUnavailableError = errors.StdinUnavailableError

// SendError indicates writing or flushing a message to stdin failed.
type SendError = errors.SendError

// SendOp names the stage of a send that failed.
type SendOp = errors.SendOp

// StopError indicates a process could not be terminated.
type StopError = errors.StopError

// StopFailure records one process that StopAll could not terminate.
type StopFailure = errors.StopFailure

// PartialStopError summarizes a bulk stop where at least one process failed.
type PartialStopError = errors.PartialStopError

// InvalidArgumentsError indicates a command was invoked with arguments that do
// not match its schema.
type InvalidArgumentsError = errors.InvalidArgumentsError

// Send stages.
const (
	SendOpWrite = errors.SendOpWrite
	SendOpFlush = errors.SendOpFlush
)

// Re-export sentinel errors from internal package.
var (
	// ErrEmptyIdentifier indicates a server identifier was empty.
	ErrEmptyIdentifier = errors.ErrEmptyIdentifier

	// ErrEmptyCommand indicates the command vector had no executable.
	ErrEmptyCommand = errors.ErrEmptyCommand

	// ErrUnknownCommand indicates a Dispatcher was asked for a command it does not know.
	ErrUnknownCommand = errors.ErrUnknownCommand

	// ErrTransportClosed indicates the MCP transport connection was closed.
	ErrTransportClosed = errors.ErrTransportClosed
)
