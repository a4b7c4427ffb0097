package errors

import (
	"errors"
	"fmt"
	"strings"
)

// RegistryError is the base interface for all registry errors.
type RegistryError interface {
	error
	IsRegistryError() bool
}

// Compile-time verification that all error types implement RegistryError.
var (
	_ RegistryError = (*InvalidCommandError)(nil)
	_ RegistryError = (*SpawnError)(nil)
	_ RegistryError = (*NotRunningError)(nil)
	_ RegistryError = (*StdinUnavailableError)(nil)
	_ RegistryError = (*SendError)(nil)
	_ RegistryError = (*StopError)(nil)
	_ RegistryError = (*PartialStopError)(nil)
	_ RegistryError = (*InvalidArgumentsError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrEmptyIdentifier indicates a server identifier was empty.
	ErrEmptyIdentifier = errors.New("server identifier must not be empty")

	// ErrEmptyCommand indicates the command vector had no executable.
	ErrEmptyCommand = errors.New("command must not be empty")

	// ErrUnknownCommand indicates the host invoked a command name that is not registered.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrTransportClosed indicates the MCP transport connection was closed.
	ErrTransportClosed = errors.New("transport closed")
)

// SendOp names the stage of a send that failed.
type SendOp string

const (
	// SendOpWrite is the write of the message bytes.
	SendOpWrite SendOp = "write"
	// SendOpFlush is the flush of the buffered stdin writer.
	SendOpFlush SendOp = "flush"
)

// InvalidCommandError indicates a start request could not describe a process.
type InvalidCommandError struct {
	ID  string
	Err error
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("Invalid command for MCP server '%s': %v", e.ID, e.Err)
}

func (e *InvalidCommandError) Unwrap() error {
	return e.Err
}

// IsRegistryError implements RegistryError.
func (e *InvalidCommandError) IsRegistryError() bool { return true }

// SpawnError indicates the OS could not create the process.
type SpawnError struct {
	ID  string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("Failed to start MCP server '%s': %v", e.ID, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsRegistryError implements RegistryError.
func (e *SpawnError) IsRegistryError() bool { return true }

// NotRunningError indicates an operation named an identifier that is not tracked.
type NotRunningError struct {
	ID string
}

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("MCP server '%s' not running", e.ID)
}

// IsRegistryError implements RegistryError.
func (e *NotRunningError) IsRegistryError() bool { return true }

// StdinUnavailableError indicates the process is tracked but its stdin is closed.
type StdinUnavailableError struct {
	ID string
}

func (e *StdinUnavailableError) Error() string {
	return fmt.Sprintf("Failed to get stdin of MCP server '%s'", e.ID)
}

// IsRegistryError implements RegistryError.
func (e *StdinUnavailableError) IsRegistryError() bool { return true }

// SendError indicates writing or flushing a message to stdin failed.
// The process may still be alive; callers can retry or stop it.
type SendError struct {
	ID  string
	Op  SendOp
	Err error
}

func (e *SendError) Error() string {
	if e.Op == SendOpFlush {
		return fmt.Sprintf("Failed to flush message to MCP server '%s': %v", e.ID, e.Err)
	}

	return fmt.Sprintf("Failed to send message to MCP server '%s': %v", e.ID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsRegistryError implements RegistryError.
func (e *SendError) IsRegistryError() bool { return true }

// StopError indicates a process could not be terminated.
// The registry keeps tracking the process when Stop returns this error.
type StopError struct {
	ID  string
	Err error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("Failed to stop MCP server '%s': %v", e.ID, e.Err)
}

func (e *StopError) Unwrap() error {
	return e.Err
}

// IsRegistryError implements RegistryError.
func (e *StopError) IsRegistryError() bool { return true }

// StopFailure records one process that StopAll could not terminate.
type StopFailure struct {
	ID  string
	Err error
}

// PartialStopError summarizes a bulk stop where at least one process failed.
type PartialStopError struct {
	Stopped  int
	Total    int
	Failures []StopFailure
}

func (e *PartialStopError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.ID, f.Err))
	}

	return fmt.Sprintf(
		"Stopped %d/%d servers. Failed to stop: %s",
		e.Stopped,
		e.Total,
		strings.Join(parts, ", "),
	)
}

// Unwrap returns the underlying kill errors so errors.Is can match any of them.
func (e *PartialStopError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}

	return errs
}

// FailedIDs returns the identifiers that could not be stopped, in report order.
func (e *PartialStopError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ID)
	}

	return ids
}

// IsRegistryError implements RegistryError.
func (e *PartialStopError) IsRegistryError() bool { return true }

// InvalidArgumentsError indicates a host command was invoked with arguments that
// do not match its schema.
type InvalidArgumentsError struct {
	Command string
	Err     error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Command, e.Err)
}

func (e *InvalidArgumentsError) Unwrap() error {
	return e.Err
}

// IsRegistryError implements RegistryError.
func (e *InvalidArgumentsError) IsRegistryError() bool { return true }
