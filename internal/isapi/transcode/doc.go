// Package transcode converts values between the camera's wire
// representation and the human-facing form shown in settings.
//
// Every function in this package is pure and stateless, and each
// conversion has an exact inverse. The round-trip laws are pinned down
// in transcode_test.go and must hold for all valid inputs:
//
//	ParseFrameRateLabel(FrameRateLabel(n)) == n
//	GOVLengthFrames(GOVLengthSeconds(f, fps), fps) == f  (±1 frame)
//	HumanTimezone(WireTimezone(tz, dst)) == (tz, dst)
//
// Wire conventions follow the ISAPI dialect: frame rates are centesimal
// (hundredths of fps), GOV length is in frames, and timezone offsets use
// the POSIX-style inverted sign (UTC+2 is written CST-2:00:00).
package transcode
