package mcphost

import "context"

// WithRegistry manages registry lifecycle with automatic cleanup.
//
// This helper creates a registry with the provided options, executes the
// callback function, and stops every server still running when done.
//
// If the callback returns an error, it is returned to the caller.
// If StopAll fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := mcphost.WithRegistry(ctx, func(reg *mcphost.Registry) error {
//	    if _, err := reg.Start(ctx, req); err != nil {
//	        return err
//	    }
//	    return reg.Send(ctx, req.ID, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
//	},
//	    mcphost.WithLogger(log),
//	    mcphost.WithEmitter(bus),
//	)
func WithRegistry(ctx context.Context, fn func(*Registry) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)
	log := loggerOf(options)

	reg := New(opts...)

	defer func() {
		if _, err := reg.StopAll(); err != nil {
			log.Warn("Failed to stop servers", "error", err)
		}
	}()

	return fn(reg)
}
