// database/connection.go
package database

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql" // MariaDB/MySQL driver
	"github.com/jmoiron/sqlx"

	"github.com/gewnthar/projectscraper/config"
)

const (
	maxOpenConns    = 5
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// DSN builds the driver connection string for cfg.
func DSN(cfg config.DatabaseConfig) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	c.DBName = cfg.DBName
	c.ParseTime = true
	return c.FormatDSN()
}

// Connect opens and verifies a connection pool.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
