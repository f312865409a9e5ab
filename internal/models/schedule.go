package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrBadTimeOfDay     = errors.New("time must look like HH:MM")
	ErrBadWeekday       = errors.New("unknown weekday")
	ErrBadHoursLine     = errors.New("working hours line must look like 'Mon 09:00-18:00'")
	ErrClosingNotAfter  = errors.New("closing time must be after opening time")
	ErrDuplicateWeekday = errors.New("weekday listed twice")
)

// TimeOfDay is a wall-clock time stored as minutes since local midnight.
type TimeOfDay int

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// At anchors the time of day on the given calendar date in its location.
func (t TimeOfDay) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}

// Value implements driver.Valuer so the type scans as an integer column.
func (t TimeOfDay) Value() (driver.Value, error) { return int64(t), nil }

// Scan implements sql.Scanner.
func (t *TimeOfDay) Scan(src interface{}) error {
	v, ok := src.(int64)
	if !ok {
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
	*t = TimeOfDay(v)
	return nil
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, ErrBadTimeOfDay
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, ErrBadTimeOfDay
	}
	return TimeOfDay(h*60 + m), nil
}

var weekdayNames = map[string]int{
	"mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6, "sun": 7,
}

// ISOWeekday converts time.Weekday to the ISO numbering used by the schedule.
func ISOWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// ParseWorkingHours parses a weekly schedule, one entry per line, in the form
// "Mon 09:00-18:00". At most one line per weekday; closing must be strictly
// after opening (overnight shifts are not supported).
func ParseWorkingHours(text string) ([]WorkingHours, error) {
	var hours []WorkingHours
	seen := make(map[int]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, ErrBadHoursLine
		}
		name := strings.ToLower(fields[0])
		if len(name) > 3 {
			name = name[:3]
		}
		day, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBadWeekday, fields[0])
		}
		if seen[day] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateWeekday, fields[0])
		}
		seen[day] = true
		span := strings.SplitN(fields[1], "-", 2)
		if len(span) != 2 {
			return nil, ErrBadHoursLine
		}
		opening, err := ParseTimeOfDay(span[0])
		if err != nil {
			return nil, err
		}
		closing, err := ParseTimeOfDay(span[1])
		if err != nil {
			return nil, err
		}
		if closing <= opening {
			return nil, ErrClosingNotAfter
		}
		hours = append(hours, WorkingHours{Weekday: day, Opening: opening, Closing: closing})
	}
	if len(hours) == 0 {
		return nil, ErrBadHoursLine
	}
	return hours, nil
}
