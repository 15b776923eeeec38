// Package db opens database/sql connections to the Tabbles store.
package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/muenster-imaging/tabblesync/errors"
)

// Open opens a connection to the Tabbles database. driver is "sqlserver"
// for the production Microsoft SQL Server backend or "sqlite3" for local
// fixture databases. If logger is provided, logs connection lifecycle;
// otherwise operates silently.
func Open(driver, dsn string, logger *zap.SugaredLogger) (*sql.DB, error) {
	switch driver {
	case "sqlserver", "sqlite3":
	default:
		return nil, errors.Newf("unsupported tabbles driver %q", driver)
	}

	if logger != nil {
		logger.Debugw("Opening tabbles database", "driver", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open tabbles database")
	}

	if driver == "sqlite3" {
		// Read-only workload, but a busy timeout keeps fixture tests from
		// flaking when a writer still holds the file.
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to set busy timeout")
		}
	}

	if logger != nil {
		logger.Infow("Tabbles database opened", "driver", driver)
	}

	return db, nil
}
