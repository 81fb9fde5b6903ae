// Package testdb starts a throwaway Postgres for integration tests.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MrJamesThe3rd/haulbook/internal/database"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// Open returns a connection to a migrated database shared by the whole test
// run. Tests are skipped under -short.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	once.Do(func() {
		sharedDSN, initErr = start()
	})
	if initErr != nil {
		t.Fatalf("testdb: %v", initErr)
	}

	db, err := database.New(sharedDSN)
	if err != nil {
		t.Fatalf("testdb: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

func start() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "haulbook",
				"POSTGRES_PASSWORD": "haulbook",
				"POSTGRES_DB":       "haulbook",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("starting container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://haulbook:haulbook@%s:%s/haulbook?sslmode=disable", host, port.Port())

	db, err := database.New(dsn)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return "", err
	}

	return dsn, nil
}
