package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMotorcyclesMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_motorcycles.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS motorcycles",
		"CHECK (price > 0)",
		"CHECK (odometer_km > 0)",
		"CHECK (year >= 1000 AND year <= 9999)",
		"CHECK (status IN ('active', 'inactive'))",
		"DROP TABLE IF EXISTS motorcycles",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestImagesMigrationCascadesOnListingDelete(t *testing.T) {
	content := readMigration(t, "*_create_images.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS images",
		"FOREIGN KEY (motorcycle_id) REFERENCES motorcycles(id) ON DELETE CASCADE",
		"object_name TEXT NOT NULL UNIQUE",
		"DROP TABLE IF EXISTS images",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestUsersMigrationEnforcesUniqueIdentity(t *testing.T) {
	content := readMigration(t, "*_create_users.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email",
		"DROP TABLE IF EXISTS users",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
