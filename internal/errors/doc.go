// Package errors defines error types for the MCP process registry.
//
// Every failure the registry can report has its own type so callers can branch
// with errors.AsType, while Error() keeps the wording hosts already display to
// users. All types support unwrapping to the underlying OS error where one exists.
package errors
