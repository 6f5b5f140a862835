package capability

import (
	"context"
	"fmt"

	"github.com/openhaus/camsync-core/internal/isapi/document"
)

// FetchPTZ probes the PTZ capability endpoint and, when present, loads
// the preset list. Callers treat a transport status error from the
// capability probe as "no PTZ"; see the fetcher dispatch.
func (f *Fetcher) FetchPTZ(ctx context.Context) (*PTZ, error) {
	capsRaw, err := f.client.GetXML(ctx, PathPTZCaps)
	if err != nil {
		return nil, fmt.Errorf("ptz capabilities: %w", err)
	}
	if _, err := document.Parse(capsRaw); err != nil {
		return nil, fmt.Errorf("ptz capabilities: %w", err)
	}

	p := &PTZ{Supported: true}

	presetsRaw, err := f.client.GetXML(ctx, PathPTZPresets)
	if err != nil {
		f.logger.Debug("ptz preset fetch failed", "error", err)
		return p, nil
	}
	presets, err := document.Parse(presetsRaw)
	if err != nil {
		f.logger.Warn("ptz preset document malformed", "error", err)
		return p, nil
	}
	for _, block := range presets.Blocks("PTZPreset") {
		p.Presets = append(p.Presets, PTZPreset{
			ID:   document.FieldOf(block, "id").String(""),
			Name: document.FieldOf(block, "presetName").String(""),
		})
	}

	return p, nil
}
