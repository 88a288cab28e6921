//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package db provides database connection management for pgedge-dwh.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/pkg/version"
)

// DefaultConnectTimeout bounds the initial connection and ping.
const DefaultConnectTimeout = 30 * time.Second

// ConnString builds a postgres:// URL from the cluster settings. Every
// component is escaped by net/url, so passwords and database names may
// contain any character.
func ConnString(c config.ClusterConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	q.Set("application_name", version.ApplicationName())
	q.Set("connect_timeout", strconv.Itoa(int(DefaultConnectTimeout.Seconds())))
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect opens the warehouse. The pipeline is strictly sequential, so the
// returned handle is limited to a single open connection.
func Connect(ctx context.Context, cluster config.ClusterConfig) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(ConnString(cluster))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection settings: %w", err)
	}

	logging.Debug().
		Str("host", connConfig.Host).
		Uint16("port", connConfig.Port).
		Str("database", connConfig.Database).
		Msg("Connecting to database")

	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()

	// Verify connection
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("host", connConfig.Host).
		Str("database", connConfig.Database).
		Msg("Connected to database")

	return db, nil
}

// ConnectPool opens a pgx pool for bulk work that needs the native
// protocol, such as COPY FROM STDIN.
func ConnectPool(ctx context.Context, cluster config.ClusterConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnString(cluster))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection settings: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Str("database", poolConfig.ConnConfig.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connected to database")

	return pool, nil
}
