package transcode

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// centesimalBase is the wire scaling factor for frame rates:
// the device reports hundredths of frames per second.
const centesimalBase = 100

// dstRuleSuffix is the fixed daylight-saving rule appended to the wire
// timezone when DST is enabled. One hour offset, last Sunday of March
// 02:00 to last Sunday of October 03:00 (the European rule the firmware
// ships with).
const dstRuleSuffix = "DST01:00:00,M3.5.0/02:00:00,M10.5.0/03:00:00"

// bitrateLadder is the fixed set of standard kbps values offered as
// bitrate choices. Min and max from the capability document are
// force-included even when off-ladder.
var bitrateLadder = []int{
	32, 48, 64, 80, 96, 128, 160, 192, 224, 256,
	320, 384, 448, 512, 640, 768, 896, 1024,
	1280, 1536, 1792, 2048, 3072, 4096, 6144, 8192, 12288, 16384,
}

// qualityLabels maps the fixed-quality wire values to display labels.
var qualityLabels = map[int]string{
	1:   "Lowest",
	20:  "Lower",
	40:  "Low",
	60:  "Medium",
	80:  "Higher",
	100: "Highest",
}

// FrameRateLabel renders a centesimal wire frame rate as a human label.
//
// Rates of 1 fps and above render as a plain integer ("25"); slower
// rates render as a fraction of a second ("1/2" for 50, i.e. one frame
// every two seconds).
func FrameRateLabel(centesimal int) string {
	if centesimal >= centesimalBase {
		return strconv.Itoa(centesimal / centesimalBase)
	}
	denom := int(math.Round(centesimalBase / float64(centesimal)))
	return "1/" + strconv.Itoa(denom)
}

// ParseFrameRateLabel is the inverse of FrameRateLabel.
//
// Plain integers parse as whole fps ("25" -> 2500); "k/d" fractions
// parse as round(100*k/d) ("1/2" -> 50).
func ParseFrameRateLabel(label string) (int, error) {
	if num, denom, ok := strings.Cut(label, "/"); ok {
		k, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadFrameRate, label)
		}
		d, err := strconv.Atoi(strings.TrimSpace(denom))
		if err != nil || d == 0 {
			return 0, fmt.Errorf("%w: %q", ErrBadFrameRate, label)
		}
		return int(math.Round(centesimalBase * float64(k) / float64(d))), nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadFrameRate, label)
	}
	return n * centesimalBase, nil
}

// GOVLengthSeconds converts a keyframe interval from frames to seconds
// at the given centesimal frame rate.
func GOVLengthSeconds(frames, centesimalFPS int) int {
	if centesimalFPS <= 0 {
		return 0
	}
	return int(math.Round(float64(frames) / (float64(centesimalFPS) / centesimalBase)))
}

// GOVLengthFrames converts a keyframe interval from seconds back to
// frames at the given centesimal frame rate. Inverse of
// GOVLengthSeconds within ±1 frame of rounding.
func GOVLengthFrames(seconds, centesimalFPS int) int {
	return int(math.Round(float64(seconds) * float64(centesimalFPS) / centesimalBase))
}

// BitrateChoices intersects the standard kbps ladder with [min, max] and
// force-includes both bounds even when they are off-ladder.
//
// The result is sorted ascending with no duplicates. A degenerate range
// (min > max) yields nil.
func BitrateChoices(minKbps, maxKbps int) []int {
	if minKbps > maxKbps {
		return nil
	}

	seen := map[int]bool{minKbps: true, maxKbps: true}
	choices := []int{minKbps}
	if maxKbps != minKbps {
		choices = append(choices, maxKbps)
	}

	for _, v := range bitrateLadder {
		if v < minKbps || v > maxKbps || seen[v] {
			continue
		}
		seen[v] = true
		choices = append(choices, v)
	}

	sort.Ints(choices)
	return choices
}

// SensitivityChoices expands a (min, max, step) capability range into
// the discrete choice list: min, min+step, min+2*step, ... up to max.
//
// min is always included. max is included only when it lands on a step
// boundary; a non-aligned max is not forced into the list. With a zero
// or negative step only min is returned.
func SensitivityChoices(minVal, maxVal, step int) []int {
	if step <= 0 || maxVal < minVal {
		return []int{minVal}
	}
	var choices []int
	for v := minVal; v <= maxVal; v += step {
		choices = append(choices, v)
	}
	return choices
}

// QualityLabel renders a fixed-quality wire value as a display label.
// Values outside the fixed table render as "Custom (<n>)".
func QualityLabel(quality int) string {
	if label, ok := qualityLabels[quality]; ok {
		return label
	}
	return fmt.Sprintf("Custom (%d)", quality)
}

// ParseQualityLabel is the inverse of QualityLabel.
func ParseQualityLabel(label string) (int, error) {
	for value, l := range qualityLabels {
		if l == label {
			return value, nil
		}
	}
	if rest, ok := strings.CutPrefix(label, "Custom ("); ok {
		if num, ok := strings.CutSuffix(rest, ")"); ok {
			if n, err := strconv.Atoi(num); err == nil {
				return n, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrBadQualityLabel, label)
}

// QualityChoices returns the fixed-quality labels in ascending wire
// value order.
func QualityChoices() []string {
	values := make([]int, 0, len(qualityLabels))
	for v := range qualityLabels {
		values = append(values, v)
	}
	sort.Ints(values)
	labels := make([]string, len(values))
	for i, v := range values {
		labels[i] = qualityLabels[v]
	}
	return labels
}

// WireTimezone converts a human timezone ("UTC+2:00:00") to the wire
// form ("CST-2:00:00"), inverting the offset sign exactly once and
// appending the fixed DST rule when daylight saving is enabled.
//
// Enabling DST is idempotent: a suffix is never appended twice.
func WireTimezone(human string, dst bool) (string, error) {
	sign, offset, err := splitTimezone(human, "UTC")
	if err != nil {
		return "", err
	}
	wire := "CST" + invertSign(sign) + offset
	if dst {
		wire += dstRuleSuffix
	}
	return wire, nil
}

// HumanTimezone converts a wire timezone back to the human form and
// reports whether the DST rule suffix was present. Inverse of
// WireTimezone.
func HumanTimezone(wire string) (human string, dst bool, err error) {
	base := wire
	if i := strings.Index(wire, "DST"); i >= 0 {
		base = wire[:i]
		dst = true
	}
	sign, offset, err := splitTimezone(base, "CST")
	if err != nil {
		return "", false, err
	}
	return "UTC" + invertSign(sign) + offset, dst, nil
}

// splitTimezone validates the prefix and splits "PFX±H:MM:SS" into its
// sign and offset parts.
func splitTimezone(tz, prefix string) (sign byte, offset string, err error) {
	rest, ok := strings.CutPrefix(tz, prefix)
	if !ok || len(rest) < 2 {
		return 0, "", fmt.Errorf("%w: %q", ErrBadTimezone, tz)
	}
	sign = rest[0]
	if sign != '+' && sign != '-' {
		return 0, "", fmt.Errorf("%w: %q", ErrBadTimezone, tz)
	}
	offset = rest[1:]
	parts := strings.Split(offset, ":")
	if len(parts) != 3 {
		return 0, "", fmt.Errorf("%w: %q", ErrBadTimezone, tz)
	}
	for _, p := range parts {
		if _, convErr := strconv.Atoi(p); convErr != nil {
			return 0, "", fmt.Errorf("%w: %q", ErrBadTimezone, tz)
		}
	}
	return sign, offset, nil
}

// invertSign flips '+' to "-" and '-' to "+".
func invertSign(sign byte) string {
	if sign == '+' {
		return "-"
	}
	return "+"
}
