// Package configlibsql opens the database a config section points at: a
// local sqlite file, or a remote libsql server.
package configlibsql

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Struct struct {
	File string `json:"file"`
	// Url of a libsql server (libsql://, https://, wss://), takes
	// precedence over File.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Struct) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		return openRemote(config.Url, config.AuthToken)
	}
	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	return OpenFile(config.File)
}

func openRemote(link, authToken string) (*sql.DB, error) {
	if authToken != "" {
		u, err := url.Parse(link)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}
		query := u.Query()
		query.Set("authToken", authToken)
		u.RawQuery = query.Encode()
		link = u.String()
	}
	return sql.Open("libsql", link)
}

// OpenFile opens (creating it if needed) a sqlite database file, ":memory:"
// opens a private in-memory database.
func OpenFile(path string) (*sql.DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite does not handle concurrent writers, see
	// https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
