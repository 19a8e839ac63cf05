package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is the offset since local midnight.
type TimeOfDay time.Duration

const day = 24 * time.Hour

func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// TimeOfDayOf truncates to whole seconds.
func TimeOfDayOf(t time.Time) TimeOfDay {
	hour, minute, second := t.Clock()
	return NewTimeOfDay(hour, minute, second)
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		parsed, err := time.Parse(layout, trimmed)
		if err == nil {
			return TimeOfDayOf(parsed), nil
		}
	}

	return 0, fmt.Errorf("invalid time of day %q (want HH:MM or HH:MM:SS)", raw)
}

func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t)
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && time.Duration(t) < day
}

// On returns the wall-clock instant of t on the calendar day of ref.
func (t TimeOfDay) On(ref time.Time) time.Time {
	year, month, d := ref.Date()
	return time.Date(year, month, d, 0, 0, 0, 0, ref.Location()).Add(time.Duration(t))
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)
	if seconds == 0 {
		return fmt.Sprintf("%02d:%02d", hours, minutes)
	}

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}
