package cli

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/kvgraph/internal/paths"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "KVGRAPH"

	cfgKeyBackend  = "backend"
	cfgKeyDataDir  = "data_dir"
	cfgKeyLogLevel = "log_level"
	cfgKeyRedis    = "redis.addr"
	cfgKeyRedisPw  = "redis.password"
	cfgKeyRedisDB  = "redis.db"

	defaultBackend  = types.BackendSQLite
	defaultLogLevel = "info"
)

// loadConfig reads config.yaml from the layout's config directory. Dotenv
// files there are loaded into the environment first, and KVGRAPH_* variables
// override file values (KVGRAPH_REDIS_ADDR for redis.addr). A missing
// config.yaml is not an error.
func loadConfig(layout paths.Layout) (types.Config, error) {
	var cfg types.Config
	if files := layout.EnvFiles(); len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return cfg, errors.Wrap(err, "load env files")
		}
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyRedis, "")
	v.SetDefault(cfgKeyRedisPw, "")
	v.SetDefault(cfgKeyRedisDB, 0)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(layout.ConfigDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, errors.Wrap(err, "read config")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}
