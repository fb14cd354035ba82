package db

import (
	"reflect"
	"testing"
	"testing/fstest"

	"smartbus-service/migrations"
)

func TestMigrationFilesOrdered(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.sql": {Data: []byte("SELECT 1;")},
		"001_init.sql":  {Data: []byte("SELECT 1;")},
		"README.md":     {Data: []byte("docs")},
		"002_data.sql":  {Data: []byte("SELECT 1;")},
		"sub/003_x.sql": {Data: []byte("SELECT 1;")},
	}
	got, err := migrationFiles(fsys)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"001_init.sql", "002_data.sql", "010_later.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := migrationFiles(migrations.FS)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) < 2 || files[0] != "001_init.sql" {
		t.Fatalf("unexpected embedded migrations: %v", files)
	}
}
