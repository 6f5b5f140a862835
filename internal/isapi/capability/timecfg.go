package capability

import (
	"context"
	"fmt"

	"github.com/openhaus/camsync-core/internal/isapi/document"
	"github.com/openhaus/camsync-core/internal/isapi/transcode"
)

// FetchTime reads the time configuration and the first NTP server
// entry. The NTP endpoint is best-effort: cameras in manual mode often
// reject it, which leaves the NTP fields empty rather than failing the
// subsystem.
func (f *Fetcher) FetchTime(ctx context.Context) (*TimeSettings, error) {
	raw, err := f.client.GetXML(ctx, PathTime)
	if err != nil {
		return nil, fmt.Errorf("time config: %w", err)
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("time config: %w", err)
	}

	mode := doc.Field("timeMode")
	t := &TimeSettings{
		Mode:      mode.String(""),
		ModeOpts:  mode.Opts(),
		LocalTime: doc.Field("localTime").String(""),
		RawTime:   raw,
	}
	if len(t.ModeOpts) == 0 {
		if capsRaw, err := f.client.GetXML(ctx, PathTimeCaps); err == nil {
			if caps, err := document.Parse(capsRaw); err == nil {
				t.ModeOpts = caps.Field("timeMode").Opts()
			}
		}
	}

	if wire := doc.Field("timeZone").String(""); wire != "" {
		human, dst, err := transcode.HumanTimezone(wire)
		if err != nil {
			f.logger.Warn("unrecognised timezone value", "value", wire, "error", err)
		} else {
			t.Timezone = human
			t.DST = dst
		}
	}

	ntpRaw, err := f.client.GetXML(ctx, PathNTP)
	if err != nil {
		f.logger.Debug("NTP server fetch failed", "error", err)
		return t, nil
	}
	ntp, err := document.Parse(ntpRaw)
	if err != nil {
		f.logger.Warn("NTP server document malformed", "error", err)
		return t, nil
	}

	t.RawNTP = ntpRaw
	t.NTPServer = ntp.Field("hostName").String(ntp.Field("ipAddress").String(""))
	t.NTPPort = ntp.Field("portNo").IntOr(0)
	t.NTPInterval = ntp.Field("synchronizeInterval").IntOr(0)

	return t, nil
}
