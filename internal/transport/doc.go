// Package transport connects MCP clients from the go-sdk to servers running in
// the process registry.
//
// A Transport starts its server through the registry and reads the server's
// replies from the stdout line events, so the same process stays visible to
// every other registry user (list, stop, raw sends) while a client session is
// attached to it.
package transport
