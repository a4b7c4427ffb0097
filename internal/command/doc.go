// Package command exposes the process registry through named commands with
// JSON arguments, the way a host application invokes it.
//
// Arguments are validated against a JSON schema inferred from each command's
// argument struct before they reach the registry. Every invocation produces an
// Outcome, which carries either a display message or the error text.
package command
