package api

import (
	"encoding/json"
	"net/http"
)

// FactoryResetRequest defines the options for a factory reset.
type FactoryResetRequest struct {
	ClearDevices  bool   `json:"clear_devices"`
	ClearOverlays bool   `json:"clear_overlays"`
	ClearSessions bool   `json:"clear_sessions"`
	Confirm       string `json:"confirm"`
}

// FactoryResetResponse reports what was deleted.
type FactoryResetResponse struct {
	Status  string         `json:"status"`
	Deleted map[string]int `json:"deleted"`
}

// handleFactoryReset clears selected data from the database in a single
// transaction, then refreshes the in-memory device cache.
//
// This is a destructive operation. The request must include an exact
// confirmation string as a safety guard, and registered cameras are
// unregistered first so no sync loop patches against deleted bindings.
func (s *Server) handleFactoryReset(w http.ResponseWriter, r *http.Request) { //nolint:gocognit // destructive reset: guards + per-table deletes + cache refresh
	var req FactoryResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	// Safety guard: require exact confirmation string.
	if req.Confirm != "FACTORY RESET" {
		writeBadRequest(w, `confirm field must be exactly "FACTORY RESET"`)
		return
	}

	if !req.ClearDevices && !req.ClearOverlays && !req.ClearSessions {
		writeBadRequest(w, "at least one clear_* option must be true")
		return
	}

	ctx := r.Context()

	// Stop camera sync loops before their rows disappear.
	if req.ClearDevices || req.ClearOverlays {
		s.cameras.Close(ctx)
	}

	deleted := make(map[string]int)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("factory reset: failed to begin transaction", "error", err)
		writeInternalError(w, "failed to begin transaction")
		return
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	deleteFrom := func(table string) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return err
		}
		n, _ := result.RowsAffected()
		deleted[table] = int(n)
		return nil
	}

	// Overlay bindings reference devices, so they go first.
	if req.ClearOverlays || req.ClearDevices {
		if err := deleteFrom("overlay_slots"); err != nil {
			s.logger.Error("factory reset: failed to clear overlay_slots", "error", err)
			writeInternalError(w, "failed to clear overlay bindings")
			return
		}
	}

	if req.ClearDevices {
		if err := deleteFrom("devices"); err != nil {
			s.logger.Error("factory reset: failed to clear devices", "error", err)
			writeInternalError(w, "failed to clear devices")
			return
		}
	}

	if req.ClearSessions {
		if err := deleteFrom("refresh_tokens"); err != nil {
			s.logger.Error("factory reset: failed to clear refresh_tokens", "error", err)
			writeInternalError(w, "failed to clear sessions")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("factory reset: failed to commit transaction", "error", err)
		writeInternalError(w, "failed to commit factory reset")
		return
	}

	claims := claimsFromContext(ctx)
	s.logger.Info("factory reset committed", "deleted", deleted, "requested_by", claims.Subject)

	// Refresh in-memory caches after successful DB wipe.
	if req.ClearDevices {
		if err := s.registry.RefreshCache(ctx); err != nil {
			s.logger.Warn("factory reset: failed to refresh device cache", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, FactoryResetResponse{
		Status:  "ok",
		Deleted: deleted,
	})
}
