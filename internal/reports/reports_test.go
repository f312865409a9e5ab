package reports

import (
	"strings"
	"testing"
	"time"

	"github.com/kirsanium/openpvz/internal/models"
)

func ptr(v int64) *int64 { return &v }

func TestBuild(t *testing.T) {
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	employees := []models.User{
		{ID: 5, Name: "Alice"},
		{ID: 6, Name: "Bob"},
	}
	events := []models.DoorEvent{
		{Code: models.EventOpened, OfficeID: 1, UserID: ptr(5), CreatedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
		{Code: models.EventClosed, OfficeID: 1, UserID: ptr(5), CreatedAt: time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)},
		{Code: models.EventOpened, OfficeID: 1, UserID: ptr(6), CreatedAt: time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)},
		// sweep events carry no user and are not attributed
		{Code: models.EventNotClosedLate, OfficeID: 1, UserID: nil, CreatedAt: time.Date(2024, 6, 2, 18, 30, 0, 0, time.UTC)},
	}

	data, err := Build(employees, events, since, to)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 { // header + 3 days
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	if lines[0] != "Date,Alice,Bob" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "06.01,2," {
		t.Errorf("day 1 = %q, want Alice counted twice", lines[1])
	}
	if lines[2] != "06.02,,1" {
		t.Errorf("day 2 = %q, want Bob counted once", lines[2])
	}
	if lines[3] != "06.03,," {
		t.Errorf("day 3 = %q, want empty", lines[3])
	}
}

func TestBuildNoEmployees(t *testing.T) {
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	data, err := Build(nil, nil, since, since)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.TrimSpace(string(data)) != "Date\n06.01" {
		t.Errorf("csv = %q", string(data))
	}
}

func TestFileName(t *testing.T) {
	to := time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)
	if got := FileName("Central", to); got != "Central-20240603.csv" {
		t.Errorf("FileName = %q", got)
	}
}
