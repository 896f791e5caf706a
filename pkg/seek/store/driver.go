// Package store writes and reads catalog snapshots: SQLite files holding one
// row per indexed file. Sessions write into a hidden staging file that is
// renamed into place on publish, so readers only ever see complete snapshots.
package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
)

const driverName = "sqlite3_seek"

var registerOnce sync.Once

// registerDriver installs a sqlite3 driver whose connections expose a
// casefold(text) SQL function, so filename matching is case-insensitive for
// all of Unicode rather than ASCII only.
func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("casefold", Fold, true)
			},
		})
	})
}

// Fold returns the Unicode case-folded form of s.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// openWritable opens path for writing. Staging files use a rollback journal
// so that a closed staging file is a single self-contained file.
func openWritable(path string) (*sql.DB, error) {
	registerDriver()

	dsn, err := fileDSN(path, "_journal_mode=DELETE&_synchronous=NORMAL&_temp_store=MEMORY&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// ATTACH is per connection; seeding relies on a single one.
	db.SetMaxOpenConns(1)
	return db, nil
}

// openReadOnly opens a published snapshot without write access.
func openReadOnly(path string) (*sql.DB, error) {
	registerDriver()

	dsn, err := fileDSN(path, "mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	return db, nil
}

// fileDSN returns an SQLite URI for path with query appended. The path is
// percent-escaped, so '#', '?' and '%' in directory names survive.
func fileDSN(path, query string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		// Drive paths become file:///C:/...
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: query}
	return u.String(), nil
}
