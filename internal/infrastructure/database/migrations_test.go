package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_create_widgets.up.sql": {Data: []byte(
			"CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
		"20260102_000000_add_colour.up.sql": {Data: []byte(
			"ALTER TABLE widgets ADD COLUMN colour TEXT;")},
		"README.md": {Data: []byte("ignored")},
	}
}

// TestMigrate verifies migration application and idempotency.
func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := testMigrations()

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO widgets (name, colour) VALUES ('a', 'red')"); err != nil {
		t.Fatalf("migrated schema unusable: %v", err)
	}

	pending, err := db.Pending(ctx, fsys)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrate_FailureRollsBackOnlyThatMigration verifies per-migration atomicity.
func TestMigrate_FailureRollsBackOnlyThatMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["20260103_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE oops (")}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}

	pending, err := db.Pending(ctx, fsys)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "broken" {
		t.Errorf("pending = %+v, want only the broken migration", pending)
	}
}

// TestMigrateNoMigrations verifies behaviour with no migrations.
func TestMigrateNoMigrations(t *testing.T) {
	db := openTestDB(t)

	if err := db.Migrate(context.Background(), fstest.MapFS{}); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("Migrate() with nil fs error = %v", err)
	}
}

func TestLoadMigrations_Order(t *testing.T) {
	migrations, err := LoadMigrations(testMigrations())
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != "20260101_000000" || migrations[1].Name != "add_colour" {
		t.Errorf("migrations = %+v", migrations)
	}
}

// TestParseMigrationFilename verifies filename parsing.
func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantOk      bool
	}{
		{"20260118_120000_create_users.up.sql", "20260118_120000", "create_users", true},
		{"20260118_120000_add_email_to_users.up.sql", "20260118_120000", "add_email_to_users", true},
		{"20260118_120000.up.sql", "20260118_120000", "20260118_120000", true},
		{"20260118_120000_create_users.down.sql", "", "", false},
		{"20260118_120000_create_users.sql", "", "", false},
		{"invalid.up.sql", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if version != tt.wantVersion || name != tt.wantName {
				t.Errorf("got (%q, %q), want (%q, %q)", version, name, tt.wantVersion, tt.wantName)
			}
		})
	}
}
