package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestInitMigrationCoversCoreTables(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	var initFile string
	for _, e := range entries {
		if strings.Contains(e.Name(), "init_dispute_schema") {
			initFile = filepath.Join("migrations", e.Name())
			break
		}
	}
	if initFile == "" {
		t.Fatal("init migration not found")
	}

	b, err := os.ReadFile(initFile)
	if err != nil {
		t.Fatalf("read init migration: %v", err)
	}
	sql := string(b)

	for _, table := range []string{
		"disputes",
		"dispute_evidence",
		"dispute_comments",
		"dispute_votes",
		"dispute_actions",
		"moderator_stats",
		"notifications",
		"outbox_events",
		"outbox_dlq",
	} {
		if !strings.Contains(sql, "CREATE TABLE "+table) {
			t.Fatalf("init migration missing table %s", table)
		}
	}

	if !strings.Contains(sql, "ux_dispute_votes_dispute_voter") {
		t.Fatal("vote uniqueness index missing")
	}
	if !strings.Contains(sql, "ck_disputes_parties_differ") {
		t.Fatal("reporter/reported check constraint missing")
	}
}
