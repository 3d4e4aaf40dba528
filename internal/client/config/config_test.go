package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Empty(t, c.Token)
}

func TestLoad_Layering(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want Config
	}{
		{
			name: "defaults only",
			want: Config{ServerURL: "http://127.0.0.1:8080", Timeout: 30 * time.Second},
		},
		{
			name: "json file",
			file: writeFile(t, "cli.json", `{"server_url":"https://vault.example","token":"ctx_file","timeout":"5s"}`),
			want: Config{ServerURL: "https://vault.example", Token: "ctx_file", Timeout: 5 * time.Second},
		},
		{
			name: "yaml file",
			file: writeFile(t, "cli.yaml", "server_url: https://vault.example\ntimeout: 1000000000\n"),
			want: Config{ServerURL: "https://vault.example", Timeout: time.Second},
		},
		{
			name: "env wins over file",
			file: writeFile(t, "cli.yml", "server_url: https://file.example\ntoken: ctx_file\n"),
			env:  map[string]string{"CTXVAULT_TOKEN": "ctx_env", "CTXVAULT_TIMEOUT": "2m"},
			want: Config{ServerURL: "https://file.example", Token: "ctx_env", Timeout: 2 * time.Minute},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.file, env(tt.env))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, *got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), env(nil))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.json", "{"), env(nil))
	assert.Error(t, err)

	_, err = Load("", env(map[string]string{"CTXVAULT_TIMEOUT": "soon"}))
	assert.ErrorContains(t, err, "CTXVAULT_TIMEOUT")
}
