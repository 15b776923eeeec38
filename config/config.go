// Package config holds the tabblesync run configuration.
//
// Configuration is loaded once at process start and passed by reference into
// the orchestrator and adapters; there is no ambient global connection state.
// Sources, in precedence order: environment variables (TABBLESYNC_ prefix),
// a TOML config file, built-in defaults.
package config

// Config represents the full tabblesync configuration
type Config struct {
	Tabbles TabblesConfig `mapstructure:"tabbles"`
	OMERO   OMEROConfig   `mapstructure:"omero"`
	Mapr    MaprConfig    `mapstructure:"mapr"`
}

// TabblesConfig configures the connection to the Tabbles SQL store
type TabblesConfig struct {
	// Driver is the database/sql driver name: "sqlserver" for the production
	// Tabbles backend, "sqlite3" for local fixtures.
	Driver string `mapstructure:"driver"`
	// DSN is the driver-specific connection string. For sqlserver it carries
	// host, user and password; set it via TABBLESYNC_TABBLES_DSN rather than
	// the config file to keep credentials out of version control.
	DSN string `mapstructure:"dsn"`
	// Database is the Tabbles database to query (tabbles_production or
	// tabbles_dev; shown in Tabbles under Help > Show current server and user).
	Database string `mapstructure:"database"`
}

// OMEROConfig configures the OMERO web API client
type OMEROConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	Username          string  `mapstructure:"username"`
	Password          string  `mapstructure:"password"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// MaprConfig locates the omero-web configuration that defines the
// OMERO.mapr namespaces. An empty path means mapr is not installed and
// the run operates namespace-unaware.
type MaprConfig struct {
	ConfigPath string `mapstructure:"config_path"`
}
