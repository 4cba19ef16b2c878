package sqlite

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"
)

// DriverName is the custom driver registered by this package. Every
// connection it opens has foreign key enforcement enabled, which the
// stock sqlite3 driver leaves off.
const DriverName = "sqlite3_fk"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec("PRAGMA foreign_keys = ON", nil)
			return err
		},
	})
}
