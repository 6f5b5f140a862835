package capability

import (
	"context"
	"fmt"

	"github.com/openhaus/camsync-core/internal/isapi/document"
)

// Fallback sensitivity range when the capability document omits the
// constraint attributes. Matches the most common firmware default.
const (
	defaultSensitivityMax  = 100
	defaultSensitivityStep = 20
)

// FetchMotion reads the motion-detection capability and current
// configuration documents and extracts the typed summary.
func (f *Fetcher) FetchMotion(ctx context.Context) (*Motion, error) {
	capsRaw, err := f.client.GetXML(ctx, PathMotionCaps)
	if err != nil {
		return nil, fmt.Errorf("motion capabilities: %w", err)
	}
	caps, err := document.Parse(capsRaw)
	if err != nil {
		return nil, fmt.Errorf("motion capabilities: %w", err)
	}

	raw, err := f.client.GetXML(ctx, PathMotion)
	if err != nil {
		return nil, fmt.Errorf("motion config: %w", err)
	}
	cfg, err := document.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("motion config: %w", err)
	}

	level := caps.Field("MotionDetectionLayout", "sensitivityLevel")
	m := &Motion{
		Enabled:     cfg.Field("enabled").BoolOr(false),
		Sensitivity: cfg.Field("MotionDetectionLayout", "sensitivityLevel").IntOr(0),
		Raw:         raw,
	}

	if minV, ok := level.Min(); ok {
		m.SensitivityMin = minV
	}
	m.SensitivityMax = defaultSensitivityMax
	if maxV, ok := level.Max(); ok {
		m.SensitivityMax = maxV
	}
	m.SensitivityStep = defaultSensitivityStep
	if step, ok := level.Step(); ok {
		m.SensitivityStep = step
	}

	return m, nil
}
