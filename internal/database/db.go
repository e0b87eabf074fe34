// Package database opens the MySQL connection pool used by the
// repositories.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Params describes a MySQL endpoint plus pool sizing. Zero pool values
// fall back to defaults sized for a single service instance.
type Params struct {
	User         string
	Pass         string
	Host         string
	Port         string
	Name         string
	MaxOpen      int
	MaxIdle      int
	ConnLifetime time.Duration
}

// DSN renders the connection string. parseTime maps DATETIME columns to
// time.Time and loc=UTC keeps every timestamp in UTC end to end.
func (p Params) DSN() string {
	auth := url.QueryEscape(p.User)
	if p.Pass != "" {
		auth = fmt.Sprintf("%s:%s", auth, url.QueryEscape(p.Pass))
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, p.Host, p.Port, p.Name)
}

// Open connects to MySQL and verifies the connection with a short ping.
func Open(p Params) (*sql.DB, error) {
	db, err := sql.Open("mysql", p.DSN())
	if err != nil {
		return nil, err
	}

	if p.MaxOpen <= 0 {
		p.MaxOpen = 25
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = p.MaxOpen
	}
	if p.ConnLifetime <= 0 {
		p.ConnLifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(p.MaxOpen)
	db.SetMaxIdleConns(p.MaxIdle)
	db.SetConnMaxLifetime(p.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
