package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mcphost.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, SampleConfig()))
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, 8, cfg.Registry.StopConcurrency)

	fs := cfg.Servers["filesystem"]
	require.Equal(t, ServerTypeStdio, fs.GetType())
	require.True(t, fs.IsEnabled())
	require.True(t, fs.Excludes("write_file"))
	require.False(t, fs.Excludes("read_file"))
	require.Equal(t, "1", fs.Environment["NODE_NO_WARNINGS"])

	remote := cfg.Servers["remote-example"]
	require.False(t, remote.IsEnabled())

	autostart := cfg.Autostart()
	require.Len(t, autostart, 1)
	require.Equal(t, "filesystem", autostart[0].ID)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[servers.echo]
command = ["cat"]
`))
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
	require.Equal(t, DefaultStopConcurrency, cfg.Registry.StopConcurrency)
	require.Equal(t, BulkStopDrop, cfg.Options().BulkStopPolicy)
	require.Equal(t, ServerTypeStdio, cfg.Servers["echo"].GetType())
}

func TestServer_AccessorsOnMapValues(t *testing.T) {
	off := false
	servers := map[string]Server{
		"fs":     {Command: []string{"cat"}, ExcludeTools: []string{"write_file"}},
		"remote": {Type: ServerTypeHTTP, URL: "https://example.com/mcp", Enabled: &off},
	}

	require.Equal(t, ServerTypeStdio, servers["fs"].GetType())
	require.True(t, servers["fs"].IsEnabled())
	require.True(t, servers["fs"].Excludes("write_file"))
	require.False(t, servers["fs"].Excludes("read_file"))
	require.Equal(t, ServerTypeHTTP, servers["remote"].GetType())
	require.False(t, servers["remote"].IsEnabled())
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, `
[servers.echo]
command = ["cat"]
comand = ["typo"]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "comand")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     string
	}{
		{
			name:     "stdio without command",
			contents: "[servers.a]\ntype = \"stdio\"\n",
			want:     "servers.a: stdio server requires a command",
		},
		{
			name:     "http without url",
			contents: "[servers.a]\ntype = \"http\"\n",
			want:     "servers.a: http server requires a url",
		},
		{
			name:     "sse with bad scheme",
			contents: "[servers.a]\ntype = \"sse\"\nurl = \"ftp://x\"\n",
			want:     "must use http or https",
		},
		{
			name:     "unknown type",
			contents: "[servers.a]\ntype = \"websocket\"\n",
			want:     "unknown server type",
		},
		{
			name:     "bad policy",
			contents: "[registry]\nbulk_stop_policy = \"keep\"\n",
			want:     "registry.bulk_stop_policy",
		},
		{
			name:     "bad level",
			contents: "[logging]\nlevel = \"loud\"\n",
			want:     "unknown log level",
		},
		{
			name:     "bad format",
			contents: "[logging]\nformat = \"xml\"\n",
			want:     "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.contents))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFile_RoundTripThroughTOML(t *testing.T) {
	disabled := false
	custom := Default()
	custom.Registry.BulkStopPolicy = string(BulkStopRetain)
	custom.Servers["git"] = Server{
		Command:     []string{"uvx", "mcp-server-git"},
		Environment: map[string]string{"GIT_DIR": "/repo/.git"},
		Enabled:     &disabled,
	}

	data, err := toml.Marshal(custom)
	require.NoError(t, err)

	cfg, err := Load(writeConfig(t, string(data)))
	require.NoError(t, err)

	require.Equal(t, BulkStopRetain, cfg.Options().BulkStopPolicy)
	require.False(t, cfg.Servers["git"].IsEnabled())
	require.Empty(t, cfg.Autostart())
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("warning")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)
}

func TestParseBulkStopPolicy(t *testing.T) {
	policy, err := ParseBulkStopPolicy("")
	require.NoError(t, err)
	require.Equal(t, BulkStopDrop, policy)

	policy, err = ParseBulkStopPolicy("retain")
	require.NoError(t, err)
	require.Equal(t, BulkStopRetain, policy)

	_, err = ParseBulkStopPolicy("never")
	require.Error(t, err)
}
