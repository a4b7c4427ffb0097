package mcphost

import (
	"io"
	"log/slog"

	"github.com/wagiedev/mcp-process-host/internal/config"
)

// Options holds registry configuration.
type Options = config.Options

// BulkStopPolicy decides what StopAll does with processes it failed to kill.
type BulkStopPolicy = config.BulkStopPolicy

// Bulk stop policies.
const (
	BulkStopDrop   = config.BulkStopDrop
	BulkStopRetain = config.BulkStopRetain
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithEmitter sets where output lines and exit notifications are published.
// Usually a *Bus. If not set, events are discarded.
func WithEmitter(emitter Emitter) Option {
	return func(o *Options) {
		o.Emitter = emitter
	}
}

// WithBulkStopPolicy controls whether StopAll keeps processes it failed to kill.
func WithBulkStopPolicy(policy BulkStopPolicy) Option {
	return func(o *Options) {
		o.BulkStopPolicy = policy
	}
}

// WithStopConcurrency bounds how many processes StopAll kills at once.
func WithStopConcurrency(n int) Option {
	return func(o *Options) {
		o.StopConcurrency = n
	}
}

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loggerOf(o *Options) *slog.Logger {
	if o.Logger == nil {
		return NopLogger()
	}

	return o.Logger
}
