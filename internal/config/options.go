// Package config provides configuration types for the MCP process host: the
// runtime options a registry is built from and the TOML file a host loads its
// server definitions from.
package config

import (
	"fmt"
	"log/slog"

	"github.com/wagiedev/mcp-process-host/internal/event"
)

// BulkStopPolicy decides what StopAll does with processes it failed to kill.
type BulkStopPolicy string

const (
	// BulkStopDrop forgets processes that could not be killed. This matches
	// teardown at host exit, where nothing will look at the registry again.
	BulkStopDrop BulkStopPolicy = "drop"
	// BulkStopRetain puts processes that could not be killed back into the
	// registry, the same way Stop does for a single process.
	BulkStopRetain BulkStopPolicy = "retain"
)

// DefaultStopConcurrency bounds how many kills StopAll issues at once.
const DefaultStopConcurrency = 8

// ParseBulkStopPolicy converts a config string to a policy. Empty means drop.
func ParseBulkStopPolicy(s string) (BulkStopPolicy, error) {
	switch BulkStopPolicy(s) {
	case "", BulkStopDrop:
		return BulkStopDrop, nil
	case BulkStopRetain:
		return BulkStopRetain, nil
	default:
		return "", fmt.Errorf("unknown bulk stop policy %q (want %q or %q)", s, BulkStopDrop, BulkStopRetain)
	}
}

// Options configures a process registry.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Emitter receives every forwarded output line and exit notification.
	// If nil, events are discarded.
	Emitter event.Emitter

	// BulkStopPolicy controls StopAll's handling of failed kills.
	// Empty means BulkStopDrop.
	BulkStopPolicy BulkStopPolicy

	// StopConcurrency bounds concurrent kills in StopAll.
	// Zero or negative means DefaultStopConcurrency.
	StopConcurrency int
}
