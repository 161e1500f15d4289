package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/flagx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv(flagx.ConfigFileEnv, "")

	full := writeTempJSON(t, "", "", map[string]any{
		"server_endpoint_addr": "example:9000",
		"session_file":         "/var/tk/session.json",
		"request_timeout":      "750ms",
	})

	t.Run("loads from -c", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", full}
		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, "/var/tk/session.json", cfg.SessionFile)
		assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	})

	t.Run("absent keys keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, "", "partial.json", map[string]any{"request_timeout": 1000000000})
		os.Args = []string{"testbin", "-config", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
		assert.Equal(t, time.Second, cfg.RequestTimeout)
	})

	t.Run("no file is a no-op", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{ServerEndpointAddr: "keep"}
		parseJson(cfg)
		assert.Equal(t, "keep", cfg.ServerEndpointAddr)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid json panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		os.Args = []string{"testbin", "-c", bad}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
