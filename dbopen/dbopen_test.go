package dbopen_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/deckforge/dbopen"
)

func TestOpenMemory_Pragmas(t *testing.T) {
	db := dbopen.OpenMemory(t)

	var fk, sync, busy int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("PRAGMA synchronous").Scan(&sync); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatal(err)
	}
	if fk != 1 || sync != 1 || busy != 10_000 {
		t.Fatalf("foreign_keys=%d synchronous=%d busy_timeout=%d", fk, sync, busy)
	}
}

func TestWithBusyTimeout(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithBusyTimeout(2500))
	var bt int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&bt); err != nil {
		t.Fatal(err)
	}
	if bt != 2500 {
		t.Fatalf("busy_timeout = %d", bt)
	}
}

func TestWithSchema_Idempotent(t *testing.T) {
	schema := `CREATE TABLE IF NOT EXISTS runs (id TEXT PRIMARY KEY);`
	path := filepath.Join(t.TempDir(), "nested", "deck.db")

	for i := 0; i < 2; i++ {
		db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO runs (id) VALUES (?)`, i); err != nil {
			t.Fatal(err)
		}
		var mode string
		db.QueryRow("PRAGMA journal_mode").Scan(&mode)
		if mode != "wal" {
			t.Errorf("journal_mode = %q", mode)
		}
		db.Close()
	}
}

func TestOpen_BadSchema(t *testing.T) {
	_, err := dbopen.Open(":memory:", dbopen.WithSchema("CREATE TABLE ("))
	if err == nil {
		t.Fatal("expected schema error")
	}
}

func TestExec(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`))
	res, err := dbopen.Exec(context.Background(), db, `INSERT INTO kv VALUES (?, ?)`, "a", "1")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Errorf("rows = %d", n)
	}
	if _, err := dbopen.Exec(context.Background(), db, `INSERT INTO kv VALUES (?, ?)`, "a", "2"); err == nil || dbopen.IsBusy(err) {
		t.Errorf("duplicate key err = %v", err)
	}
}

func TestIsBusy(t *testing.T) {
	cases := map[error]bool{
		nil:                                  false,
		errors.New("database is locked"):     true,
		errors.New("SQLITE_BUSY (5)"):        true,
		errors.New("UNIQUE constraint fail"): false,
	}
	for err, want := range cases {
		if got := dbopen.IsBusy(err); got != want {
			t.Errorf("IsBusy(%v) = %v", err, got)
		}
	}
}
