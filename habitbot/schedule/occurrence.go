package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day local to a task owner's zone.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a "HH:MM" 24h string.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return Clock{}, fmt.Errorf("invalid time %q: out of range", s)
	}
	return Clock{Hour: hh, Minute: mm}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Weekdays is a non-empty set of ISO weekdays (1=Monday .. 7=Sunday),
// kept sorted and deduplicated.
type Weekdays []int

// ParseWeekdays parses a comma-separated list of ISO weekday numbers,
// the storage format of the tasks table.
func ParseWeekdays(csv string) (Weekdays, error) {
	seen := make(map[int]bool)
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q: %w", part, err)
		}
		if d < 1 || d > 7 {
			return nil, fmt.Errorf("invalid weekday %d: must be 1..7", d)
		}
		seen[d] = true
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("weekday set must not be empty")
	}
	days := make(Weekdays, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}

func (w Weekdays) Contains(isoDay int) bool {
	for _, d := range w {
		if d == isoDay {
			return true
		}
	}
	return false
}

func (w Weekdays) String() string {
	parts := make([]string, len(w))
	for i, d := range w {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// ISOWeekday returns the ISO weekday of t (1=Monday .. 7=Sunday).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DateOf truncates t to midnight of its calendar date, keeping the location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatDate renders a date the way the store keeps it ("YYYY-MM-DD").
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// MondayOf returns the Monday starting the ISO week containing t,
// truncated to midnight.
func MondayOf(t time.Time) time.Time {
	return DateOf(t).AddDate(0, 0, -(ISOWeekday(t) - 1))
}

// IsDue reports whether a task with the given weekday set is scheduled
// on the given date.
func IsDue(days Weekdays, date time.Time) bool {
	return days.Contains(ISOWeekday(date))
}

// DueDatesInRange returns every date in [start, end] (inclusive, by
// calendar date) on which the weekday set is due, in ascending order.
// Deterministic: identical inputs always yield the identical sequence.
func DueDatesInRange(days Weekdays, start, end time.Time) []time.Time {
	var due []time.Time
	for d := DateOf(start); !d.After(DateOf(end)); d = d.AddDate(0, 0, 1) {
		if IsDue(days, d) {
			due = append(due, d)
		}
	}
	return due
}
