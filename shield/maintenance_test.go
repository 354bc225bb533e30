package shield

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/deckforge/dbopen"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	return dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body %q: %v", w.Body.String(), err)
	}
	return body["error"]
}

func TestMaintenance_Off(t *testing.T) {
	db := setupDB(t)
	mm := NewMaintenanceMode(db)

	w := httptest.NewRecorder()
	mm.Middleware(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/api/providers", nil))

	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("maintenance off: got %d %q", w.Code, w.Body.String())
	}
}

func TestMaintenance_On(t *testing.T) {
	db := setupDB(t)
	if err := SetMaintenance(context.Background(), db, true, "upgrading renderer"); err != nil {
		t.Fatal(err)
	}
	mm := NewMaintenanceMode(db)

	w := httptest.NewRecorder()
	mm.Middleware(okHandler()).ServeHTTP(w, httptest.NewRequest("POST", "/api/generate", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if msg := errorBody(t, w); msg != "upgrading renderer" {
		t.Errorf("message = %q", msg)
	}
	if ra := w.Header().Get("Retry-After"); ra != "300" {
		t.Errorf("Retry-After = %q", ra)
	}
}

func TestMaintenance_DefaultMessage(t *testing.T) {
	db := setupDB(t)
	SetMaintenance(context.Background(), db, true, "")
	mm := NewMaintenanceMode(db)
	if mm.Message() != defaultMaintenanceMessage {
		t.Errorf("message = %q", mm.Message())
	}
}

func TestMaintenance_ExcludedPath(t *testing.T) {
	db := setupDB(t)
	SetMaintenance(context.Background(), db, true, "")
	mm := NewMaintenanceMode(db, "/health")

	w := httptest.NewRecorder()
	mm.Middleware(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("/health should bypass maintenance, got %d", w.Code)
	}
}

func TestMaintenance_NoTable(t *testing.T) {
	db := dbopen.OpenMemory(t)

	mm := NewMaintenanceMode(db)
	if mm.Active() {
		t.Error("expected maintenance off when table missing")
	}
	w := httptest.NewRecorder()
	mm.Middleware(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 when no table, got %d", w.Code)
	}
}

func TestMaintenance_Toggle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	mm := NewMaintenanceMode(db)
	if mm.Active() {
		t.Fatal("expected off initially")
	}

	SetMaintenance(ctx, db, true, "")
	mm.Reload()
	if !mm.Active() {
		t.Fatal("expected on after toggle")
	}

	SetMaintenance(ctx, db, false, "")
	mm.Reload()
	if mm.Active() {
		t.Fatal("expected off after second toggle")
	}
}
