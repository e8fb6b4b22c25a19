package format

import (
	"fmt"
	"math"
	"time"
)

// Duration formats a duration as HH:MM:SS or MM:SS.
func Duration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Seconds converts fractional seconds to a time.Duration, rounded to the millisecond.
func Seconds(sec float64) time.Duration {
	return time.Duration(math.Round(sec*1000)) * time.Millisecond
}

// Timestamp formats seconds as HH:MM:SS.mmm, the form ffmpeg accepts for -ss/-to.
// Negative input is treated as zero.
func Timestamp(sec float64) string {
	h, m, s, ms := split(sec)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// SRTTimestamp formats seconds as HH:MM:SS,mmm for SubRip cues.
func SRTTimestamp(sec float64) string {
	h, m, s, ms := split(sec)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// split breaks seconds into hour, minute, second and millisecond components.
func split(sec float64) (h, m, s, ms int64) {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	total := int64(math.Round(sec * 1000))
	ms = total % 1000
	total /= 1000
	s = total % 60
	total /= 60
	m = total % 60
	h = total / 60
	return h, m, s, ms
}

// Size formats a size in bytes for human display.
// Uses MB for sizes >= 1MB, KB otherwise.
func Size(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	if bytes >= mb {
		return fmt.Sprintf("%d MB", bytes/mb)
	}
	if bytes >= kb {
		return fmt.Sprintf("%d KB", bytes/kb)
	}
	return fmt.Sprintf("%d bytes", bytes)
}
