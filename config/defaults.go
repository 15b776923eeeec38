package config

import (
	"github.com/spf13/viper"
)

// Known Tabbles databases. The selector on the run command is validated
// against this list so a typo cannot hit an arbitrary database.
const (
	TabblesProduction = "tabbles_production"
	TabblesDev        = "tabbles_dev"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Tabbles store defaults
	v.SetDefault("tabbles.driver", "sqlserver")
	v.SetDefault("tabbles.database", TabblesProduction)

	// OMERO web API defaults
	v.SetDefault("omero.base_url", "http://localhost:4080")
	v.SetDefault("omero.timeout_seconds", 60)
	v.SetDefault("omero.requests_per_second", 10.0) // polite ceiling for annotation writes

	// omero-web config path from its default install location
	v.SetDefault("mapr.config_path", "/opt/omero/omero-web/etc/grid/config.xml")
}
