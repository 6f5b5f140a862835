package overlay

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store persists overlay slot bindings across restarts.
type Store interface {
	// LoadSlots returns every persisted binding for a camera, in slot
	// id order.
	LoadSlots(ctx context.Context, cameraID string) ([]Slot, error)

	// SaveSlot upserts one slot binding.
	SaveSlot(ctx context.Context, cameraID string, slot Slot) error

	// DeleteSlots removes every binding for a camera.
	DeleteSlots(ctx context.Context, cameraID string) error
}

// SQLiteStore is the SQLite-backed binding store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an open database handle. The
// overlay_slots table must exist (see migrations).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) LoadSlots(ctx context.Context, cameraID string) ([]Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot_id, binding_type, source_device_id, text_prefix, static_text
		FROM overlay_slots
		WHERE camera_id = ?
		ORDER BY slot_id`, cameraID)
	if err != nil {
		return nil, fmt.Errorf("loading overlay slots: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var slot Slot
		if err := rows.Scan(&slot.ID, &slot.Type, &slot.SourceDeviceID, &slot.TextPrefix, &slot.Text); err != nil {
			return nil, fmt.Errorf("scanning overlay slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating overlay slots: %w", err)
	}
	return slots, nil
}

func (s *SQLiteStore) SaveSlot(ctx context.Context, cameraID string, slot Slot) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO overlay_slots (camera_id, slot_id, binding_type, source_device_id, text_prefix, static_text, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (camera_id, slot_id) DO UPDATE SET
			binding_type = excluded.binding_type,
			source_device_id = excluded.source_device_id,
			text_prefix = excluded.text_prefix,
			static_text = excluded.static_text,
			updated_at = excluded.updated_at`,
		cameraID, slot.ID, slot.Type, slot.SourceDeviceID, slot.TextPrefix, slot.Text, now)
	if err != nil {
		return fmt.Errorf("saving overlay slot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSlots(ctx context.Context, cameraID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM overlay_slots WHERE camera_id = ?`, cameraID); err != nil {
		return fmt.Errorf("deleting overlay slots: %w", err)
	}
	return nil
}
