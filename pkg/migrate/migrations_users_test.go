package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/campusfindz/campusfindz-backend/pkg/migrate"
)

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

func TestRoleMigrationBackfillsFromLegacyFlag(t *testing.T) {
	content := readMigration(t, "*_add_role_to_users.sql")

	checks := []string{
		"ALTER TABLE users ADD COLUMN IF NOT EXISTS role TEXT",
		"UPDATE users SET role = 'admin' WHERE is_admin = TRUE AND role IS NULL",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("role migration missing %q", check)
		}
	}
}

func TestPostsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_posts.sql")

	checks := []string{
		"CHECK (post_type IN ('lost', 'found'))",
		"CHECK (admin_approval_status IN ('pending', 'approved', 'rejected'))",
		"DEFAULT 'pending'",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("posts migration missing %q", check)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
