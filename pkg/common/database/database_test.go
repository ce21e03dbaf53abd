package database

import (
	"strings"
	"testing"

	"github.com/synaptica-ai/clinextract/pkg/common/config"
)

func TestOpenSQLiteInMemory(t *testing.T) {
	conn, err := Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	var one int
	if err := conn.Raw("SELECT 1").Scan(&one).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if one != 1 {
		t.Fatalf("expected 1, got %d", one)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := config.LoadWithLookup(func(key string) string {
		if key == "POSTGRES_HOST" {
			return "db.internal"
		}
		return ""
	})
	dsn := PostgresDSN(cfg)
	for _, want := range []string{"host=db.internal", "dbname=clinextract", "sslmode=disable"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
}
