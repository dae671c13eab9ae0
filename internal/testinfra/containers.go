// Package testinfra starts the Postgres and Redis containers used by integration tests.
package testinfra

import (
	"context"
	"net"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Ramsey-B/camellia/pkg/database"
	"github.com/Ramsey-B/camellia/pkg/redis"
)

const (
	postgresUser     = "camellia"
	postgresPassword = "password"
	postgresDB       = "camellia"
)

func SilentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// MigrationsPath is the absolute path of db/pg, independent of the test's working directory.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "db", "pg")
}

func start(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest) (testcontainers.Container, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to read %s host: %v", req.Image, err)
	}
	return container, host
}

// StartPostgres runs a migrated Postgres and returns a connected DB.
func StartPostgres(ctx context.Context, t *testing.T) database.DB {
	t.Helper()

	container, host := start(ctx, t, testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	})
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to read postgres port: %v", err)
	}

	logger := SilentLogger()
	db, err := database.Connect(ctx, database.ConnectionConfig{
		Host:            host,
		Port:            port.Port(),
		UserName:        postgresUser,
		Password:        postgresPassword,
		Name:            postgresDB,
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	pool, _ := database.Pool(db)
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: MigrationsPath(),
		DatabaseName:        postgresDB,
	})
	if err := migrations.Migrate(pool); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// StartRedis runs a Redis and returns a connected client.
func StartRedis(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()

	container, host := start(ctx, t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	})
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to read redis port: %v", err)
	}

	client, err := redis.NewClient(ctx, redis.Config{Addr: net.JoinHostPort(host, port.Port())}, SilentLogger())
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
