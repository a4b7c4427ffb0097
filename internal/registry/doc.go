// Package registry implements the MCP process registry: a table of running
// server processes keyed by caller-chosen identifiers.
//
// A single mutex guards the table. Start holds it across the spawn so that an
// identifier never maps to two processes, and Stop holds it across the kill
// signal. StopAll drains the table first and kills outside the lock, and
// Send only takes the lock for the lookup, so a slow stdin never stalls the
// other servers. Output forwarding is delegated to subprocess line forwarders
// that never touch the table.
package registry
