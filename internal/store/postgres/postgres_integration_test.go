package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/relata/relata/internal/store"
	"github.com/relata/relata/internal/store/storetest"
)

func makePGStore(t *testing.T) store.Store {
	t.Helper()
	dsn := os.Getenv("CRM_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CRM_POSTGRES_DSN not set; skipping postgres store integration test")
	}
	s, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	return s
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}
