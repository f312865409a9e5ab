package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", 9 * 60, false},
		{"18:30", 18*60 + 30, false},
		{"00:00", 0, false},
		{"23:59", 23*60 + 59, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeOfDay(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	if got := TimeOfDay(9*60 + 5).String(); got != "09:05" {
		t.Errorf("String = %q, want 09:05", got)
	}
}

func TestParseWorkingHours(t *testing.T) {
	hours, err := ParseWorkingHours("Mon 09:00-18:00\ntue 10:00-19:00\n\nSunday 11:00-15:00")
	if err != nil {
		t.Fatalf("ParseWorkingHours: %v", err)
	}
	if len(hours) != 3 {
		t.Fatalf("got %d entries, want 3", len(hours))
	}
	if hours[0].Weekday != 1 || hours[0].Opening != 9*60 || hours[0].Closing != 18*60 {
		t.Errorf("entry 0 = %+v", hours[0])
	}
	if hours[2].Weekday != 7 {
		t.Errorf("full weekday name not accepted: %+v", hours[2])
	}
}

func TestParseWorkingHoursErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrBadHoursLine},
		{"no span", "Mon 09:00", ErrBadHoursLine},
		{"bad weekday", "Xyz 09:00-18:00", ErrBadWeekday},
		{"closing before opening", "Mon 18:00-09:00", ErrClosingNotAfter},
		{"closing equals opening", "Mon 09:00-09:00", ErrClosingNotAfter},
		{"duplicate weekday", "Mon 09:00-18:00\nMon 10:00-19:00", ErrDuplicateWeekday},
		{"bad time", "Mon 9am-6pm", ErrBadTimeOfDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseWorkingHours(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestISOWeekday(t *testing.T) {
	if got := ISOWeekday(time.Monday); got != 1 {
		t.Errorf("Monday = %d, want 1", got)
	}
	if got := ISOWeekday(time.Sunday); got != 7 {
		t.Errorf("Sunday = %d, want 7", got)
	}
}

func TestHoursFor(t *testing.T) {
	office := Office{WorkingHours: []WorkingHours{
		{Weekday: 1, Opening: 540, Closing: 1080},
		{Weekday: 3, Opening: 600, Closing: 1140},
	}}
	if h := office.HoursFor(3); h == nil || h.Opening != 600 {
		t.Errorf("HoursFor(3) = %+v", h)
	}
	if h := office.HoursFor(2); h != nil {
		t.Errorf("HoursFor(2) = %+v, want nil", h)
	}
}

func TestOfficeLocationFallsBackToUTC(t *testing.T) {
	office := Office{Timezone: "Not/AZone"}
	if loc := office.Location(); loc != time.UTC {
		t.Errorf("Location = %v, want UTC", loc)
	}
}

func TestTimeOfDayAt(t *testing.T) {
	day := time.Date(2024, 6, 3, 15, 42, 7, 0, time.UTC)
	got := TimeOfDay(9*60 + 30).At(day)
	want := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("At = %v, want %v", got, want)
	}
}
