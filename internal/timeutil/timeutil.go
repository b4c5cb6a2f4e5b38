// Package timeutil provides time formatting helpers and id generation for
// the editing engine.
package timeutil

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// NewID returns a unique identifier. Ids are never reused within a process.
func NewID() string {
	return uuid.NewString()
}

// FormatSeconds renders a second count for display as m:ss, or h:mm:ss at
// one hour and above. Fractional seconds are truncated.
func FormatSeconds(s float64) string {
	if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		s = 0
	}
	total := int(s)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// FormatTimestamp converts seconds to the HH:MM:SS.mmm form ffmpeg accepts.
func FormatTimestamp(s float64) string {
	if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		s = 0
	}
	hours := int(s / 3600)
	minutes := int((s - float64(hours*3600)) / 60)
	secs := s - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}
