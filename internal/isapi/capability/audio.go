package capability

import (
	"context"
	"fmt"

	"github.com/openhaus/camsync-core/internal/isapi/document"
)

// FetchAudio reads the two-way audio channel list and summarises the
// first channel. Cameras without audio answer with an empty list, which
// yields an Audio with no channel rather than an error.
func (f *Fetcher) FetchAudio(ctx context.Context) (*Audio, error) {
	raw, err := f.client.GetXML(ctx, PathAudio)
	if err != nil {
		return nil, fmt.Errorf("audio channels: %w", err)
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("audio channels: %w", err)
	}

	a := &Audio{Raw: raw}
	blocks := doc.Blocks("TwoWayAudioChannel")
	if len(blocks) == 0 {
		return a, nil
	}

	first := blocks[0]
	a.ChannelID = document.FieldOf(first, "id").String("")
	a.Enabled = document.FieldOf(first, "enabled").BoolOr(false)

	compression := document.FieldOf(first, "audioCompressionType")
	a.Compression = compression.String("")
	a.CompressionOpts = compression.Opts()

	return a, nil
}
