package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ServerType represents how an MCP server is reached.
type ServerType string

const (
	// ServerTypeStdio runs the server as a child process speaking over stdio.
	ServerTypeStdio ServerType = "stdio"
	// ServerTypeSSE uses Server-Sent Events.
	ServerTypeSSE ServerType = "sse"
	// ServerTypeHTTP uses streamable HTTP.
	ServerTypeHTTP ServerType = "http"
)

// Server describes one configured MCP server.
//
// Only stdio servers are managed by the process registry. Remote entries are
// accepted so a shared config file can describe every server a host knows
// about.
type Server struct {
	Type    ServerType `toml:"type"`
	Enabled *bool      `toml:"enabled"`

	// stdio
	Command     []string          `toml:"command"`
	Environment map[string]string `toml:"environment"`
	Cwd         string            `toml:"cwd"`

	// sse / http
	URL     string            `toml:"url"`
	Headers map[string]string `toml:"headers"`

	// ExcludeTools lists tool names hidden from clients of this server.
	ExcludeTools []string `toml:"exclude_tools"`
}

// GetType returns the server type, defaulting to stdio when unset.
func (s Server) GetType() ServerType {
	if s.Type == "" {
		return ServerTypeStdio
	}

	return s.Type
}

// IsEnabled reports whether the server should be started. Servers are enabled
// unless disabled explicitly.
func (s Server) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Excludes reports whether tool is listed in ExcludeTools.
func (s Server) Excludes(tool string) bool {
	return slices.Contains(s.ExcludeTools, tool)
}

// Validate checks the fields required by the server's type.
func (s *Server) Validate() error {
	switch s.GetType() {
	case ServerTypeStdio:
		if len(s.Command) == 0 || s.Command[0] == "" {
			return fmt.Errorf("stdio server requires a command")
		}
	case ServerTypeSSE, ServerTypeHTTP:
		if s.URL == "" {
			return fmt.Errorf("%s server requires a url", s.GetType())
		}

		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("parse url: %w", err)
		}

		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url %q must use http or https", s.URL)
		}
	default:
		return fmt.Errorf("unknown server type %q", s.Type)
	}

	return nil
}
