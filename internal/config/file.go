package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleConfig returns a commented example configuration file.
func SampleConfig() string {
	return sampleConfig
}

// Logging configures the host's slog handler.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Registry holds registry policy settings.
type Registry struct {
	BulkStopPolicy  string `toml:"bulk_stop_policy"`
	StopConcurrency int    `toml:"stop_concurrency"`
}

// File is the host configuration file.
type File struct {
	Logging  Logging           `toml:"logging"`
	Registry Registry          `toml:"registry"`
	Servers  map[string]Server `toml:"servers"`
}

// NamedServer pairs a server with its identifier.
type NamedServer struct {
	ID string
	Server
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		Logging:  Logging{Level: "info", Format: "text"},
		Registry: Registry{BulkStopPolicy: string(BulkStopDrop), StopConcurrency: DefaultStopConcurrency},
		Servers:  map[string]Server{},
	}
}

// Load reads and validates the TOML file at path. Unknown keys are rejected so
// typos do not silently disable settings.
func Load(path string) (*File, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("parse config: %s", strict.String())
		}

		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (f *File) normalize() {
	f.Logging.Level = strings.ToLower(strings.TrimSpace(f.Logging.Level))
	f.Logging.Format = strings.ToLower(strings.TrimSpace(f.Logging.Format))

	if f.Logging.Level == "" {
		f.Logging.Level = "info"
	}

	if f.Logging.Format == "" {
		f.Logging.Format = "text"
	}

	if f.Registry.StopConcurrency <= 0 {
		f.Registry.StopConcurrency = DefaultStopConcurrency
	}

	if f.Servers == nil {
		f.Servers = map[string]Server{}
	}
}

// Validate reports the first invalid setting or server definition.
func (f *File) Validate() error {
	if _, err := ParseLevel(f.Logging.Level); err != nil {
		return err
	}

	if f.Logging.Format != "text" && f.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", f.Logging.Format)
	}

	if _, err := ParseBulkStopPolicy(f.Registry.BulkStopPolicy); err != nil {
		return fmt.Errorf("registry.bulk_stop_policy: %w", err)
	}

	for _, id := range slices.Sorted(maps.Keys(f.Servers)) {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("servers: empty server identifier")
		}

		server := f.Servers[id]
		if err := server.Validate(); err != nil {
			return fmt.Errorf("servers.%s: %w", id, err)
		}
	}

	return nil
}

// Options converts the file's registry settings into registry options.
// The logger and emitter are left for the caller to set.
func (f *File) Options() Options {
	policy, _ := ParseBulkStopPolicy(f.Registry.BulkStopPolicy)

	return Options{
		BulkStopPolicy:  policy,
		StopConcurrency: f.Registry.StopConcurrency,
	}
}

// ServerList returns every server ordered by identifier.
func (f *File) ServerList() []NamedServer {
	out := make([]NamedServer, 0, len(f.Servers))
	for _, id := range slices.Sorted(maps.Keys(f.Servers)) {
		out = append(out, NamedServer{ID: id, Server: f.Servers[id]})
	}

	return out
}

// Autostart returns the enabled stdio servers ordered by identifier.
func (f *File) Autostart() []NamedServer {
	var out []NamedServer

	for _, s := range f.ServerList() {
		if s.IsEnabled() && s.GetType() == ServerTypeStdio {
			out = append(out, s)
		}
	}

	return out
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
