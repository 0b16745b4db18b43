//go:build integration_pg

// Package pgcontainer runs a throwaway postgres for integration tests
package pgcontainer

import (
	"context"
	"testing"
	"time"

	"syncengine/internal/platform/store"

	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const image = "postgres:16-alpine"

// Start boots a container and returns a store opened against it
// both are torn down when t finishes
func Start(t *testing.T) *store.Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		Started: true,
		ContainerRequest: tc.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env:          map[string]string{"POSTGRES_PASSWORD": "sync", "POSTGRES_DB": "sync"},
			// postgres restarts once after initdb so wait for the second ready line
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
	})
	if err != nil {
		t.Fatalf("pgcontainer: start %s: %v", image, err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	hostPort, err := c.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		t.Fatalf("pgcontainer: endpoint: %v", err)
	}

	st, err := store.Open(ctx, store.Config{
		AppName: "syncengine-it",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         "postgres://postgres:sync@" + hostPort + "/sync?sslmode=disable",
			MaxConns:    4,
			SlowQueryMs: -1,
		},
	}, store.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("pgcontainer: open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}
