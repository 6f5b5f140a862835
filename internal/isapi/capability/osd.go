package capability

import (
	"context"
	"fmt"
	"strconv"

	"github.com/openhaus/camsync-core/internal/isapi/document"
)

// defaultOverlaySlots is assumed when the capability document does not
// advertise a text-overlay capacity.
const defaultOverlaySlots = 4

// FetchOSD reads the overlay configuration and the overlay capability
// document. The capability fetch is best-effort; without it the slot
// capacity falls back to a conservative default.
func (f *Fetcher) FetchOSD(ctx context.Context) (*OSD, error) {
	raw, err := f.client.GetXML(ctx, PathOverlays)
	if err != nil {
		return nil, fmt.Errorf("overlays: %w", err)
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("overlays: %w", err)
	}

	o := &OSD{MaxSlots: defaultOverlaySlots, Raw: raw}
	for _, block := range doc.Blocks("TextOverlay") {
		o.Overlays = append(o.Overlays, TextOverlay{
			ID:        document.FieldOf(block, "id").String(""),
			Enabled:   document.FieldOf(block, "enabled").BoolOr(false),
			PositionX: document.FieldOf(block, "positionX").IntOr(0),
			PositionY: document.FieldOf(block, "positionY").IntOr(0),
			Text:      document.FieldOf(block, "displayText").String(""),
		})
	}

	capsRaw, err := f.client.GetXML(ctx, PathOverlayCaps)
	if err != nil {
		f.logger.Debug("overlay capability fetch failed", "error", err)
		return o, nil
	}
	caps, err := document.Parse(capsRaw)
	if err != nil {
		f.logger.Warn("overlay capability document malformed", "error", err)
		return o, nil
	}
	for _, list := range caps.Blocks("TextOverlayList") {
		if attr := list.SelectAttr("size"); attr != nil {
			if n, err := strconv.Atoi(attr.Value); err == nil && n > 0 {
				o.MaxSlots = n
			}
		}
	}

	return o, nil
}
