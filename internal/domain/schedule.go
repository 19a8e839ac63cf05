package domain

import (
	"fmt"
	"sort"
)

type ScheduledFeeding struct {
	At    TimeOfDay
	Count int
}

// Schedule is ordered by time of day. Build it with NewSchedule so the order
// holds no matter how the entries were declared.
type Schedule struct {
	entries []ScheduledFeeding
}

func NewSchedule(entries ...ScheduledFeeding) (Schedule, error) {
	sorted := make([]ScheduledFeeding, 0, len(entries))
	for _, entry := range entries {
		if !entry.At.Valid() {
			return Schedule{}, fmt.Errorf("scheduled feeding at %s is outside a day", entry.At)
		}
		if entry.Count <= 0 {
			return Schedule{}, fmt.Errorf("scheduled feeding at %s: count must be positive, got %d", entry.At, entry.Count)
		}
		sorted = append(sorted, entry)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At < sorted[j].At
	})

	return Schedule{entries: sorted}, nil
}

func MustSchedule(entries ...ScheduledFeeding) Schedule {
	s, err := NewSchedule(entries...)
	if err != nil {
		panic(err)
	}

	return s
}

func (s Schedule) Entries() []ScheduledFeeding {
	out := make([]ScheduledFeeding, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s Schedule) Len() int {
	return len(s.entries)
}

// TotalPerDay is the number of portions the schedule hands out over a full day.
func (s Schedule) TotalPerDay() int {
	total := 0
	for _, entry := range s.entries {
		total += entry.Count
	}
	return total
}

// Entitled returns how many portions are owed at now given fedToday.
// With includeUpcoming the first slot that has not arrived yet is counted too;
// slots after it never are.
func (s Schedule) Entitled(now TimeOfDay, fedToday int, includeUpcoming bool) int {
	owed := 0
	for _, entry := range s.entries {
		if entry.At <= now {
			owed += entry.Count
			continue
		}

		if includeUpcoming {
			owed += entry.Count
		}
		break
	}

	remaining := owed - fedToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Next returns the first slot strictly after now, if any remain today.
func (s Schedule) Next(now TimeOfDay) (ScheduledFeeding, bool) {
	for _, entry := range s.entries {
		if entry.At > now {
			return entry, true
		}
	}

	return ScheduledFeeding{}, false
}
