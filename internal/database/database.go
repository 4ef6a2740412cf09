// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql.
//
// Public entry points:
//
//	Open(dsn, password)                           – conservative pool sizes.
//	OpenWithOptions(dsn, password, maxOpen, maxIdle) – fine-grained control.
//	PrepareDSN(dsn, password)                     – DSN normalisation only.
//
// Both Open helpers Ping the database before returning so callers can fail
// fast during bootstrap.  Every connection parses DATETIME columns into
// time.Time in UTC; visit timestamps rely on that.
package database

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Open returns a *sqlx.DB with sane defaults: 15 max open, 5 idle, and a
// 30-minute connection lifetime.
func Open(dsn, password string) (*sqlx.DB, error) {
	return OpenWithOptions(dsn, password, 15, 5)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle.
func OpenWithOptions(dsn, password string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	norm, err := PrepareDSN(dsn, password)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", norm)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// PrepareDSN injects password (when non-empty) and forces parseTime and a UTC
// location so naive DATETIME values come back as UTC instants.
func PrepareDSN(dsn, password string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	if password != "" {
		cfg.Passwd = password
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
