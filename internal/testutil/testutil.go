//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package testutil provides utilities for integration testing.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/pgEdge/pgedge-dwh/internal/config"
)

const (
	// ConnEnv names the environment variable holding the connection string
	// of an existing server. When unset, a container is started.
	ConnEnv = "PGEDGE_TEST_CONN"

	// TestDBPrefix is the prefix for test databases.
	TestDBPrefix = "dwh_test_"

	// PostgresImage is the image started when no server is configured.
	PostgresImage = "postgres:16-alpine"
)

// Cluster returns connection settings for an empty database that lives
// for the duration of the test. With PGEDGE_TEST_CONN set, a database is
// created on that server; otherwise a PostgreSQL container is started.
func Cluster(t *testing.T) config.ClusterConfig {
	t.Helper()

	if connStr := os.Getenv(ConnEnv); connStr != "" {
		return CreateTestDB(t, connStr)
	}
	return startContainer(t)
}

func startContainer(t *testing.T) config.ClusterConfig {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase("dwh"),
		postgres.WithUsername("dwhuser"),
		postgres.WithPassword("dwhpass"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return config.ClusterConfig{
		Host:     host,
		Port:     port.Int(),
		DBName:   "dwh",
		User:     "dwhuser",
		Password: "dwhpass",
		SSLMode:  "disable",
	}
}

// CreateTestDB creates a uniquely named database on the server behind
// baseConnStr and drops it when the test finishes.
func CreateTestDB(t *testing.T, baseConnStr string) config.ClusterConfig {
	t.Helper()

	// Generate random suffix for database name
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		t.Fatalf("Failed to generate random database name: %v", err)
	}
	dbName := TestDBPrefix + hex.EncodeToString(randomBytes)

	base, err := pgx.ParseConfig(baseConnStr)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, baseConnStr)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Skipf("Cannot create test database on %s: %v", base.Host, err)
	}
	t.Cleanup(func() { DropTestDB(t, baseConnStr, dbName) })

	sslMode := "disable"
	if base.TLSConfig != nil {
		sslMode = "require"
	}

	return config.ClusterConfig{
		Host:     base.Host,
		Port:     int(base.Port),
		DBName:   dbName,
		User:     base.User,
		Password: base.Password,
		SSLMode:  sslMode,
	}
}

// DropTestDB drops the test database.
func DropTestDB(t *testing.T, baseConnStr, dbName string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, baseConnStr)
	if err != nil {
		t.Logf("Warning: Failed to connect to drop test database: %v", err)
		return
	}
	defer pool.Close()

	// Terminate connections to the database
	_, _ = pool.Exec(ctx, `
        SELECT pg_terminate_backend(pid)
        FROM pg_stat_activity
        WHERE datname = $1 AND pid <> pg_backend_pid()
    `, dbName)

	_, err = pool.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize())
	if err != nil {
		t.Logf("Warning: Failed to drop test database: %v", err)
	}
}
