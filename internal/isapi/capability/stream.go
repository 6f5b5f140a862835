package capability

import (
	"context"
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/openhaus/camsync-core/internal/isapi/document"
)

// FetchStreams reads the channel list and the per-channel dynamic
// capability documents.
//
// The list document provides current values and is retained raw for
// patching. A capability fetch failure for one channel is logged and
// leaves that channel with current values but empty ranges; the channel
// list itself failing fails the subsystem.
func (f *Fetcher) FetchStreams(ctx context.Context) (*Streams, error) {
	raw, err := f.client.GetXML(ctx, PathChannels)
	if err != nil {
		return nil, fmt.Errorf("channel list: %w", err)
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("channel list: %w", err)
	}

	blocks := doc.Blocks("StreamingChannel")
	if len(blocks) == 0 {
		return nil, fmt.Errorf("channel list: %w", ErrMissingField)
	}

	out := &Streams{Raw: raw}
	for _, block := range blocks {
		ch, err := extractChannel(block)
		if err != nil {
			return nil, err
		}

		capsRaw, err := f.client.GetXML(ctx, fmt.Sprintf(PathChannelCaps, ch.ID))
		if err != nil {
			f.logger.Warn("channel capability fetch failed", "channel", ch.ID, "error", err)
		} else if caps, err := document.Parse(capsRaw); err != nil {
			f.logger.Warn("channel capability document malformed", "channel", ch.ID, "error", err)
		} else {
			applyChannelCaps(&ch, caps)
		}

		out.Channels = append(out.Channels, ch)
	}
	return out, nil
}

// extractChannel pulls the current values out of one <StreamingChannel>
// block of the list document.
func extractChannel(block *etree.Element) (StreamChannel, error) {
	field := func(path ...string) document.Value {
		return document.FieldOf(block, path...)
	}

	id := field("id").String("")
	if id == "" {
		return StreamChannel{}, fmt.Errorf("channel without id: %w", ErrMissingField)
	}

	ch := StreamChannel{
		ID:      id,
		Name:    field("channelName").String(""),
		Enabled: field("enabled").BoolOr(false),

		Codec: field("Video", "videoCodecType").String(""),
		Resolution: Resolution{
			Width:  field("Video", "videoResolutionWidth").IntOr(0),
			Height: field("Video", "videoResolutionHeight").IntOr(0),
		},
		FrameRate:   field("Video", "maxFrameRate").IntOr(0),
		ControlType: field("Video", "videoQualityControlType").String(""),

		ConstantBitrate: field("Video", "constantBitRate").IntOr(0),
		VBRUpperCap:     field("Video", "vbrUpperCap").IntOr(0),
		FixedQuality:    field("Video", "fixedQuality").IntOr(0),
		GOVLength:       field("Video", "GovLength").IntOr(0),
	}
	return ch, nil
}

// applyChannelCaps folds the per-channel capability document's ranges
// and enumerations into the channel summary.
func applyChannelCaps(ch *StreamChannel, caps *document.Document) {
	ch.CodecOpts = caps.Field("Video", "videoCodecType").Opts()
	ch.ControlTypeOpts = caps.Field("Video", "videoQualityControlType").Opts()

	widths := caps.Field("Video", "videoResolutionWidth").Opts()
	heights := caps.Field("Video", "videoResolutionHeight").Opts()
	ch.Resolutions = zipResolutions(widths, heights)

	for _, opt := range caps.Field("Video", "maxFrameRate").Opts() {
		if n, err := strconv.Atoi(opt); err == nil {
			ch.FrameRateOpts = append(ch.FrameRateOpts, n)
		}
	}

	cbr := caps.Field("Video", "constantBitRate")
	if v, ok := cbr.Min(); ok {
		ch.CBRMin = v
	}
	if v, ok := cbr.Max(); ok {
		ch.CBRMax = v
	}

	vbr := caps.Field("Video", "vbrUpperCap")
	if v, ok := vbr.Min(); ok {
		ch.VBRMin = v
	}
	if v, ok := vbr.Max(); ok {
		ch.VBRMax = v
	}

	gov := caps.Field("Video", "GovLength")
	if v, ok := gov.Min(); ok {
		ch.GOVMin = v
	}
	if v, ok := gov.Max(); ok {
		ch.GOVMax = v
	}
}

// zipResolutions pairs the parallel width and height option lists the
// capability document advertises. Mismatched lengths pair up to the
// shorter list.
func zipResolutions(widths, heights []string) []Resolution {
	n := len(widths)
	if len(heights) < n {
		n = len(heights)
	}
	out := make([]Resolution, 0, n)
	for i := 0; i < n; i++ {
		w, errW := strconv.Atoi(widths[i])
		h, errH := strconv.Atoi(heights[i])
		if errW != nil || errH != nil {
			continue
		}
		out = append(out, Resolution{Width: w, Height: h})
	}
	return out
}
