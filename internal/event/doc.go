// Package event provides the host-side event channel that process output is
// published on.
//
// Producers (the per-stream line forwarders) only see the Emitter interface.
// Bus is the in-process implementation: listeners register for one event name
// or for every event and are called synchronously, in emission order, on the
// producer's goroutine.
package event
