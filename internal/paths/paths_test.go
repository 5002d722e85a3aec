package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDir_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	dir, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-config/kvgraph", dir)

	t.Setenv("XDG_CONFIG_HOME", "")
	homeDir = func() (string, error) { return "/home/ann", nil }
	t.Cleanup(func() { homeDir = os.UserHomeDir })
	dir, err = DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/ann/.config/kvgraph", dir)
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvConfigDir, "/env/config")
	l, err := Resolve("/explicit/config")
	require.NoError(t, err)
	assert.Equal(t, "/explicit/config", l.ConfigDir)
	assert.Empty(t, l.DataDir)

	l, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "/env/config", l.ConfigDir)

	t.Setenv(EnvConfigDir, "relative/env")
	l, err = Resolve("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(l.ConfigDir))

	t.Setenv(EnvConfigDir, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	l, err = Resolve("")
	require.NoError(t, err)
	want, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, want, l.ConfigDir)
}

func TestResolveData(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name   string
		flag   string
		config string
		env    string
		want   string
	}{
		{"flag wins", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config beats env", "", "/config/data", "/env/data", "/config/data"},
		{"env", "", "", "/env/data", "/env/data"},
		{"cwd default", "", "", "", filepath.Join(cwd, DefaultDataDirName)},
		{"relative config", "", "rel", "", filepath.Join(cwd, "rel")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			l := Layout{ConfigDir: "/c"}
			require.NoError(t, l.ResolveData(tt.flag, tt.config))
			assert.Equal(t, tt.want, l.DataDir)
			assert.Equal(t, "/c", l.ConfigDir)
		})
	}
}

func TestLayoutFiles(t *testing.T) {
	l := Layout{ConfigDir: t.TempDir()}
	assert.Equal(t, filepath.Join(l.ConfigDir, "config.yaml"), l.ConfigFile())
	assert.Empty(t, l.EnvFiles())

	require.NoError(t, os.WriteFile(filepath.Join(l.ConfigDir, EnvFileName), []byte("A=1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(l.ConfigDir, LocalEnvName), []byte("A=2\n"), 0o644))
	assert.Equal(t, []string{
		filepath.Join(l.ConfigDir, LocalEnvName),
		filepath.Join(l.ConfigDir, EnvFileName),
	}, l.EnvFiles())
}
