package database

import "fmt"

// Dialect captures the handful of SQL differences between the production
// MySQL database and the SQLite database used for local runs and tests.
type Dialect struct {
	Name string
	// ForUpdate is appended to SELECTs that must lock the rows they read.
	// SQLite has no row locks; its single writer connection gives the same
	// guarantee.
	ForUpdate string
	// InsertIgnore starts an INSERT that silently skips duplicate keys.
	InsertIgnore string
}

var (
	MySQL  = Dialect{Name: "mysql", ForUpdate: " FOR UPDATE", InsertIgnore: "INSERT IGNORE"}
	SQLite = Dialect{Name: "sqlite3", ForUpdate: "", InsertIgnore: "INSERT OR IGNORE"}
)

// DialectFor returns the dialect matching a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}
