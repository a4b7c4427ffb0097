// Package subprocess spawns MCP server processes and pumps their output.
//
// A Process owns the OS handle and the write end of stdin. Its stdout and
// stderr read ends are handed to line forwarders that run on their own
// goroutines and publish every line to an event.Emitter. Forwarders are not
// owned by the Process: they keep draining buffered output after the process
// has been killed and exit on their own when the pipe reports end of stream.
package subprocess
