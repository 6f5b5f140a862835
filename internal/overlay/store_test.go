package overlay

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE overlay_slots (
			camera_id        TEXT NOT NULL,
			slot_id          TEXT NOT NULL,
			binding_type     TEXT NOT NULL DEFAULT 'none',
			source_device_id TEXT NOT NULL DEFAULT '',
			text_prefix      TEXT NOT NULL DEFAULT '',
			static_text      TEXT NOT NULL DEFAULT '',
			updated_at       TEXT NOT NULL,
			PRIMARY KEY (camera_id, slot_id)
		) STRICT`)
	if err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return NewSQLiteStore(db)
}

func TestStoreRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	slots := []Slot{
		{ID: "1", Type: TypeDevice, SourceDeviceID: "dev-1", TextPrefix: "Hall "},
		{ID: "2", Type: TypeText, Text: "Front Door"},
	}
	for _, slot := range slots {
		if err := store.SaveSlot(ctx, "cam-1", slot); err != nil {
			t.Fatalf("SaveSlot(%s) error = %v", slot.ID, err)
		}
	}

	got, err := store.LoadSlots(ctx, "cam-1")
	if err != nil {
		t.Fatalf("LoadSlots() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadSlots() = %d slots, want 2", len(got))
	}
	if got[0].Type != TypeDevice || got[0].SourceDeviceID != "dev-1" || got[0].TextPrefix != "Hall " {
		t.Errorf("slot 1 = %+v", got[0])
	}
	if got[1].Type != TypeText || got[1].Text != "Front Door" {
		t.Errorf("slot 2 = %+v", got[1])
	}
}

func TestStoreUpsert(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.SaveSlot(ctx, "cam-1", Slot{ID: "1", Type: TypeText, Text: "old"}); err != nil {
		t.Fatalf("SaveSlot() error = %v", err)
	}
	if err := store.SaveSlot(ctx, "cam-1", Slot{ID: "1", Type: TypeDevice, SourceDeviceID: "dev-9"}); err != nil {
		t.Fatalf("SaveSlot() update error = %v", err)
	}

	got, err := store.LoadSlots(ctx, "cam-1")
	if err != nil {
		t.Fatalf("LoadSlots() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("LoadSlots() = %d slots, want 1", len(got))
	}
	if got[0].Type != TypeDevice || got[0].SourceDeviceID != "dev-9" {
		t.Errorf("slot after upsert = %+v", got[0])
	}
}

func TestStoreScopedByCamera(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.SaveSlot(ctx, "cam-1", Slot{ID: "1", Type: TypeText, Text: "one"}); err != nil {
		t.Fatalf("SaveSlot() error = %v", err)
	}
	if err := store.SaveSlot(ctx, "cam-2", Slot{ID: "1", Type: TypeText, Text: "two"}); err != nil {
		t.Fatalf("SaveSlot() error = %v", err)
	}

	if err := store.DeleteSlots(ctx, "cam-1"); err != nil {
		t.Fatalf("DeleteSlots() error = %v", err)
	}

	gone, err := store.LoadSlots(ctx, "cam-1")
	if err != nil {
		t.Fatalf("LoadSlots(cam-1) error = %v", err)
	}
	if len(gone) != 0 {
		t.Errorf("cam-1 slots after delete = %d, want 0", len(gone))
	}

	kept, err := store.LoadSlots(ctx, "cam-2")
	if err != nil {
		t.Fatalf("LoadSlots(cam-2) error = %v", err)
	}
	if len(kept) != 1 || kept[0].Text != "two" {
		t.Errorf("cam-2 slots = %+v, want the single text binding", kept)
	}
}
