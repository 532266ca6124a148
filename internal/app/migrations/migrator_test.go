package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	goose.SetBaseFS(migrationFS)
	t.Cleanup(func() { goose.SetBaseFS(nil) })

	migrations, err := goose.CollectMigrations(migrationDir, 0, goose.MaxVersion)
	if err != nil {
		t.Fatalf("collect migrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	for i, m := range migrations {
		if m.Version != int64(i+1) {
			t.Fatalf("migration %d has version %d", i, m.Version)
		}
	}
}

func TestSchemaDeclaresConstraintNames(t *testing.T) {
	raw, err := fs.ReadFile(migrationFS, "sql/00001_schema.sql")
	if err != nil {
		t.Fatal(err)
	}
	schema := string(raw)
	for _, name := range []string{"groups_invite_code_key", "group_members_pkey", "participants_pkey"} {
		if !strings.Contains(schema, name) {
			t.Errorf("schema does not declare constraint %s", name)
		}
	}
}
