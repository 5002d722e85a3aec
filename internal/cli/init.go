package cli

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/kvgraph/internal/paths"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// exampleModels is appended to a fresh config.yaml.
const exampleModels = `
# Models are declared here. Example:
#
# models:
#   - name: Person
#     key: name
#     attributes:
#       - {name: name, type: string}
#       - {name: mood, type: string, indexed: true}
#       - {name: role, type: enum, values: [user, admin], default: user, indexed: true}
#     counters: [visits]
#     sets: [tags]
#     lists: [log]
`

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize kvgraph configuration and storage",
		Long:  "Create the configuration directory and config.yaml if missing, then open the\nconfigured backend once so its storage exists.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := writeConfigIfMissing(a.layout, a.config)
			if err != nil {
				return err
			}
			if _, err := a.open(cmd.Context()); err != nil {
				return err
			}
			return writeJSON(cmd, map[string]string{
				"config":   configPath,
				"backend":  a.config.Backend,
				"data_dir": a.config.DataDir,
			})
		},
	}
}

// writeConfigIfMissing creates the config directory and a config.yaml
// holding the backend settings in use. An existing file is left alone.
func writeConfigIfMissing(layout paths.Layout, cfg types.Config) (string, error) {
	path := layout.ConfigFile()
	if err := os.MkdirAll(layout.ConfigDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create config directory")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	data, err := yaml.Marshal(types.Config{
		Backend:  cfg.Backend,
		DataDir:  cfg.DataDir,
		Redis:    cfg.Redis,
		LogLevel: cfg.LogLevel,
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal config")
	}
	data = append(data, exampleModels...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write config")
	}
	return path, nil
}
