package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openhaus/camsync-core/internal/camera"
	"github.com/openhaus/camsync-core/internal/device"
	"github.com/openhaus/camsync-core/internal/isapi/capability"
	"github.com/openhaus/camsync-core/internal/overlay"
	"github.com/openhaus/camsync-core/internal/settings"
)

// ─── Request/Response Types ────────────────────────────────────────

type applySettingRequest struct {
	Value string `json:"value"`
}

type duplicateOverlaysRequest struct {
	SourceID string `json:"source_id"`
}

// cameraSummary is the wire shape for a registered camera.
type cameraSummary struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Model           string            `json:"model,omitempty"`
	Firmware        string            `json:"firmware,omitempty"`
	FetchedAt       string            `json:"fetched_at"`
	SubsystemErrors map[string]string `json:"subsystem_errors,omitempty"`
	OverlaySlots    int               `json:"overlay_slots"`
}

func summarize(cam *camera.Camera) cameraSummary {
	snap := cam.Snapshot()
	out := cameraSummary{
		ID:           cam.ID(),
		Name:         cam.Device().Name,
		FetchedAt:    snap.FetchedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		OverlaySlots: len(cam.Slots()),
	}
	if snap.Info != nil {
		out.Model = snap.Info.Model
		out.Firmware = snap.Info.FirmwareVersion
	}
	if len(snap.Errors) > 0 {
		out.SubsystemErrors = make(map[string]string, len(snap.Errors))
		for sub, msg := range snap.Errors {
			out.SubsystemErrors[string(sub)] = msg
		}
	}
	return out
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleListCameras returns every registered camera.
func (s *Server) handleListCameras(w http.ResponseWriter, _ *http.Request) {
	cams := s.cameras.List()
	out := make([]cameraSummary, 0, len(cams))
	for _, cam := range cams {
		out = append(out, summarize(cam))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cameras": out,
		"count":   len(out),
	})
}

// handleGetCamera returns one registered camera's summary.
func (s *Server) handleGetCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cam, err := s.cameras.Get(id)
	if err != nil {
		writeNotFound(w, "camera not registered")
		return
	}

	writeJSON(w, http.StatusOK, summarize(cam))
}

// handleRegisterCamera brings a camera device under management.
//
// Registration fetches the full capability snapshot, so the response
// time includes one round of ISAPI requests to the camera.
func (s *Server) handleRegisterCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cam, err := s.cameras.Register(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "device not found")
		case errors.Is(err, camera.ErrNotCamera):
			writeBadRequest(w, "device is not a camera")
		case errors.Is(err, camera.ErrRegistered):
			writeConflict(w, "camera already registered")
		default:
			s.logger.Error("camera register failed", "camera", id, "error", err)
			writeError(w, http.StatusBadGateway, ErrCodeInternal, "camera unreachable")
		}
		return
	}

	writeJSON(w, http.StatusCreated, summarize(cam))
}

// handleUnregisterCamera removes a camera from management. Persisted
// overlay bindings survive for re-registration.
func (s *Server) handleUnregisterCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.cameras.Unregister(r.Context(), id); err != nil {
		writeNotFound(w, "camera not registered")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetCameraSettings returns the synthesized settings schema for
// one camera: every definition carries its key, current value, and the
// exact choice strings a write accepts.
func (s *Server) handleGetCameraSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cam, err := s.cameras.Get(id)
	if err != nil {
		writeNotFound(w, "camera not registered")
		return
	}

	defs := cam.Definitions(s.cameras.SensorChoices(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"settings": defs,
		"count":    len(defs),
	})
}

// handleApplyCameraSetting writes a single setting value to a camera.
//
// The value must be one of the choice strings from the settings schema;
// anything else is rejected without touching the camera.
func (s *Server) handleApplyCameraSetting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key := chi.URLParam(r, "key")

	cam, err := s.cameras.Get(id)
	if err != nil {
		writeNotFound(w, "camera not registered")
		return
	}

	var req applySettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := cam.Apply(r.Context(), key, req.Value); err != nil {
		switch {
		case errors.Is(err, settings.ErrUnknownKey), errors.Is(err, overlay.ErrUnknownSlot):
			writeNotFound(w, "unknown setting key")
		case errors.Is(err, settings.ErrBadValue), errors.Is(err, overlay.ErrUnknownDevice):
			writeBadRequest(w, err.Error())
		case errors.Is(err, settings.ErrUnavailable):
			writeConflict(w, "subsystem unavailable on this camera")
		default:
			s.logger.Error("setting apply failed", "camera", id, "key", key, "error", err)
			writeError(w, http.StatusBadGateway, ErrCodeInternal, "camera rejected the write")
		}
		return
	}

	s.logger.Info("camera setting applied", "camera", id, "key", key)
	if s.metrics != nil {
		s.metrics.WriteSettingChange(id, key)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "applied",
		"key":    key,
		"value":  req.Value,
	})
}

// handleRefetchSubsystem re-reads one subsystem's documents from the
// camera and installs the refreshed snapshot.
func (s *Server) handleRefetchSubsystem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub := capability.Subsystem(chi.URLParam(r, "name"))

	cam, err := s.cameras.Get(id)
	if err != nil {
		writeNotFound(w, "camera not registered")
		return
	}

	if err := cam.Refetch(r.Context(), sub); err != nil {
		if errors.Is(err, capability.ErrUnknownSubsystem) {
			writeNotFound(w, "unknown subsystem")
			return
		}
		s.logger.Error("subsystem refetch failed", "camera", id, "subsystem", sub, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeInternal, "camera did not answer the refetch")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "refetched",
		"subsystem": string(sub),
	})
}

// handleDuplicateOverlays copies the source camera's overlay layout and
// sensor bindings onto the target camera.
func (s *Server) handleDuplicateOverlays(w http.ResponseWriter, r *http.Request) {
	dstID := chi.URLParam(r, "id")

	var req duplicateOverlaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.SourceID == "" {
		writeBadRequest(w, "source_id is required")
		return
	}
	if req.SourceID == dstID {
		writeBadRequest(w, "source and target must differ")
		return
	}

	if err := s.cameras.DuplicateOverlays(r.Context(), req.SourceID, dstID); err != nil {
		switch {
		case errors.Is(err, camera.ErrNotRegistered):
			writeNotFound(w, err.Error())
		case errors.Is(err, camera.ErrNoOverlays):
			writeConflict(w, "source camera has no overlay document")
		default:
			s.logger.Error("overlay duplication failed", "source", req.SourceID, "target", dstID, "error", err)
			writeError(w, http.StatusBadGateway, ErrCodeInternal, "target camera rejected the overlay document")
		}
		return
	}

	s.logger.Info("overlays duplicated", "source", req.SourceID, "target", dstID)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "duplicated",
		"source_id": req.SourceID,
		"target_id": dstID,
	})
}
