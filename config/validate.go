package config

import "github.com/muenster-imaging/tabblesync/errors"

// Validate checks that the configuration is valid. It runs before any core
// logic: a bad configuration aborts the run up front, never per-image.
func (c *Config) Validate() error {
	switch c.Tabbles.Driver {
	case "sqlserver", "sqlite3":
	default:
		return errors.Newf("tabbles.driver must be sqlserver or sqlite3, got %q", c.Tabbles.Driver)
	}

	if c.Tabbles.DSN == "" {
		return errors.New("tabbles.dsn cannot be empty (set TABBLESYNC_TABBLES_DSN)")
	}

	if c.Tabbles.Database != TabblesProduction && c.Tabbles.Database != TabblesDev {
		return errors.Newf("tabbles.database must be %s or %s, got %q",
			TabblesProduction, TabblesDev, c.Tabbles.Database)
	}

	if c.OMERO.BaseURL == "" {
		return errors.New("omero.base_url cannot be empty")
	}
	if c.OMERO.TimeoutSeconds <= 0 {
		return errors.Newf("omero.timeout_seconds must be > 0, got %d", c.OMERO.TimeoutSeconds)
	}
	if c.OMERO.RequestsPerSecond <= 0 {
		return errors.Newf("omero.requests_per_second must be > 0, got %f", c.OMERO.RequestsPerSecond)
	}

	return nil
}
