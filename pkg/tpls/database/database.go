package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens the SQLite database and returns the handle. Callers own
// the handle and pass it down explicitly; there is no package-level state.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}
