package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/muenster-imaging/tabblesync/errors"
)

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the tabblesync configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	return &config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("TABBLESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials come from the environment, never the config file
	bindSensitiveEnvVars(v)

	SetDefaults(v)

	v.SetConfigName("tabblesync")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/tabblesync")

	// A missing config file is fine; defaults plus env cover it
	_ = v.ReadInConfig()

	viperInstance = v
	return v
}

// bindSensitiveEnvVars explicitly binds credential values so they are read
// from the environment even when absent from the config file
func bindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("tabbles.dsn", "TABBLESYNC_TABBLES_DSN")
	_ = v.BindEnv("omero.username", "TABBLESYNC_OMERO_USERNAME")
	_ = v.BindEnv("omero.password", "TABBLESYNC_OMERO_PASSWORD")
}
