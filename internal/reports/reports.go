// Package reports renders the per-office door-event CSV an owner can request
// from the office settings menu.
package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/kirsanium/openpvz/internal/models"
)

// DefaultPeriod is how far back the report reaches.
const DefaultPeriod = 30 * 24 * time.Hour

// Build renders a CSV with one row per day in [since, to] and one column per
// employee, each cell counting that employee's door events on that day.
func Build(employees []models.User, events []models.DoorEvent, since, to time.Time) ([]byte, error) {
	header := []string{"Date"}
	slot := make(map[int64]int, len(employees))
	for i, e := range employees {
		header = append(header, e.Name)
		slot[e.ID] = i + 1
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	counts := make(map[string][]int)
	for _, ev := range events {
		if ev.UserID == nil {
			continue
		}
		col, ok := slot[*ev.UserID]
		if !ok {
			continue
		}
		day := ev.CreatedAt.UTC().Format("2006-01-02")
		if counts[day] == nil {
			counts[day] = make([]int, len(employees)+1)
		}
		counts[day][col]++
	}

	for d := since.UTC().Truncate(24 * time.Hour); !d.After(to.UTC()); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		row := make([]string, len(employees)+1)
		row[0] = d.Format("01.02")
		for col := 1; col <= len(employees); col++ {
			if c := counts[key]; c != nil && c[col] > 0 {
				row[col] = fmt.Sprintf("%d", c[col])
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName names the report attachment for an office.
func FileName(officeName string, to time.Time) string {
	return fmt.Sprintf("%s-%s.csv", officeName, to.UTC().Format("20060102"))
}
