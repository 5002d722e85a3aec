// Package paths resolves where a kvgraph invocation reads its configuration
// and keeps its data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Files read from the configuration directory.
const (
	ConfigFileName = "config.yaml"
	EnvFileName    = ".env"
	LocalEnvName   = ".env.local"
)

// DefaultDataDirName is the data directory created under the working
// directory when nothing else names one.
const DefaultDataDirName = ".kvgraph-db"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "KVGRAPH_CONFIG_DIR"
	EnvDataDir   = "KVGRAPH_DATA_DIR"
)

const appName = "kvgraph"

// Overridable in tests.
var (
	homeDir       = os.UserHomeDir
	userConfigDir = os.UserConfigDir
)

// Layout is the pair of directories one invocation works in.
type Layout struct {
	ConfigDir string
	DataDir   string
}

// Resolve picks the configuration directory: flag, then $KVGRAPH_CONFIG_DIR,
// then the platform default. DataDir is left for ResolveData, which needs
// the loaded config.
func Resolve(flag string) (Layout, error) {
	if dir, ok, err := firstAbs(flag, os.Getenv(EnvConfigDir)); ok || err != nil {
		return Layout{ConfigDir: dir}, err
	}
	dir, err := DefaultConfigDir()
	return Layout{ConfigDir: dir}, err
}

// ResolveData sets DataDir: flag, then the config file value, then
// $KVGRAPH_DATA_DIR, then .kvgraph-db under the working directory.
func (l *Layout) ResolveData(flag, configured string) error {
	dir, ok, err := firstAbs(flag, configured, os.Getenv(EnvDataDir))
	if err != nil {
		return err
	}
	if !ok {
		if dir, err = filepath.Abs(DefaultDataDirName); err != nil {
			return err
		}
	}
	l.DataDir = dir
	return nil
}

// ConfigFile returns the path of config.yaml.
func (l Layout) ConfigFile() string {
	return filepath.Join(l.ConfigDir, ConfigFileName)
}

// EnvFiles returns the dotenv files that exist, local overrides first so
// godotenv lets them win.
func (l Layout) EnvFiles() []string {
	var out []string
	for _, name := range []string{LocalEnvName, EnvFileName} {
		p := filepath.Join(l.ConfigDir, name)
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// DefaultConfigDir is $XDG_CONFIG_HOME/kvgraph (or ~/.config/kvgraph) on
// Linux and the user config directory elsewhere.
func DefaultConfigDir() (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c != "" {
			dir, err := filepath.Abs(c)
			return dir, true, err
		}
	}
	return "", false, nil
}
