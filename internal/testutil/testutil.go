//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package testutil provides utilities for integration testing.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/orderdw/orderdw-etl/internal/db"
)

const (
	// ConnEnv names the environment variable holding a server connection
	// string. When unset a postgres container is started instead.
	ConnEnv = "ORDERDW_TEST_CONN"

	// TestDBPrefix is the prefix for test databases.
	TestDBPrefix = "orderdw_test_"

	postgresImage = "postgres:15-alpine"
)

var (
	containerOnce sync.Once
	containerConn string
	containerErr  error
)

// PostgresAvailable returns a connection string to a reachable server: the
// one in ORDERDW_TEST_CONN, or a shared container started on first use.
func PostgresAvailable() (string, error) {
	if connStr := os.Getenv(ConnEnv); connStr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ping(ctx, connStr); err != nil {
			return "", fmt.Errorf("%s is set but unreachable: %w", ConnEnv, err)
		}
		return connStr, nil
	}

	containerOnce.Do(func() {
		containerConn, containerErr = startContainer(context.Background())
	})
	return containerConn, containerErr
}

// SkipIfNoPostgres skips the test if PostgreSQL is not available.
func SkipIfNoPostgres(t *testing.T) string {
	t.Helper()
	connStr, err := PostgresAvailable()
	if err != nil {
		t.Skipf("PostgreSQL not available, skipping integration test: %v", err)
	}
	return connStr
}

func ping(ctx context.Context, connStr string) error {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return err
	}
	defer pool.Close()
	return pool.Ping(ctx)
}

func startContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "orderdw",
			"POSTGRES_PASSWORD": "orderdw",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start %s: %w", postgresImage, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("postgres://orderdw:orderdw@%s:%s/postgres?sslmode=disable", host, port.Port()), nil
}

// NewTestDB creates a fresh database on the test server, applies all
// migrations and returns a pool connected to it. The database is dropped
// when the test passes; on failure it remains for diagnostic purposes.
func NewTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	baseConnStr := SkipIfNoPostgres(t)
	connStr, dbName := CreateTestDB(t, baseConnStr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if t.Failed() {
			t.Logf("Test failed - keeping database %s for diagnostics", dbName)
			return
		}
		DropTestDB(t, baseConnStr, dbName)
	})

	if err := db.MigrateUp(pool); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return pool
}

// CreateTestDB creates a uniquely named database and returns its connection
// string and name.
func CreateTestDB(t *testing.T, baseConnStr string) (string, string) {
	t.Helper()

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		t.Fatalf("Failed to generate random database name: %v", err)
	}
	dbName := TestDBPrefix + hex.EncodeToString(randomBytes)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, baseConnStr)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	config, err := pgx.ParseConfig(baseConnStr)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	// ConnString() does not reflect changes to Database, so build the URL.
	userInfo := config.User
	if config.Password != "" {
		userInfo += ":" + config.Password
	}
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=disable",
		userInfo, config.Host, config.Port, dbName), dbName
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

	_, err = pool.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize()+" WITH (FORCE)")
	if err != nil {
		t.Logf("Warning: Failed to drop test database: %v", err)
	}
}
