package checkin

import (
	"testing"
	"time"

	"github.com/kirsanium/openpvz/internal/geo"
	"github.com/kirsanium/openpvz/internal/models"
)

// fakeStore records mutations so tests can assert on side effects.
type fakeStore struct {
	openSet map[int64]bool
	events  []models.DoorEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{openSet: make(map[int64]bool)}
}

func (f *fakeStore) SetOfficeOpen(officeID int64, isOpen bool) error {
	f.openSet[officeID] = isOpen
	return nil
}

func (f *fakeStore) AppendDoorEvent(code models.EventCode, officeID int64, userID *int64, at time.Time) error {
	f.events = append(f.events, models.DoorEvent{Code: code, OfficeID: officeID, UserID: userID, CreatedAt: at})
	return nil
}

// 2024-06-03 is a Monday.
func mondayAt(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(2024, 6, 3, hour, minute, 0, 0, loc)
}

func testOffice(isOpen bool) models.Office {
	return models.Office{
		ID:        1,
		Name:      "Central",
		Latitude:  55.7558,
		Longitude: 37.6173,
		IsOpen:    isOpen,
		Timezone:  "Europe/Moscow",
		OwnerID:   10,
		WorkingHours: []models.WorkingHours{
			{Weekday: 1, Opening: 9 * 60, Closing: 18 * 60}, // Mon 09:00-18:00
		},
	}
}

func engineAt(now time.Time) *Engine {
	e := NewEngine(15 * time.Minute)
	e.Now = func() time.Time { return now }
	return e
}

var operator = models.User{ID: 5, ChatID: 500, Role: models.RoleOperator}

func TestOutOfRangeMakesNoMutation(t *testing.T) {
	store := newFakeStore()
	offices := []models.Office{testOffice(false)}
	// roughly 1.5km away from the office
	far := geo.Location{Latitude: 55.7558, Longitude: 37.64}

	result, err := engineAt(mondayAt(t, 9, 0)).CheckIn(store, &operator, offices, far, models.IntentOpening)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if result.Outcome != OutcomeOutOfRange {
		t.Errorf("Outcome = %d, want OutcomeOutOfRange", result.Outcome)
	}
	if len(store.events) != 0 || len(store.openSet) != 0 {
		t.Errorf("out-of-range check-in mutated state: %+v", store)
	}
}

func TestOpeningAlreadyOpenIsIdempotent(t *testing.T) {
	store := newFakeStore()
	offices := []models.Office{testOffice(true)}
	at := geo.Location{Latitude: 55.7558, Longitude: 37.6173}

	result, err := engineAt(mondayAt(t, 9, 0)).CheckIn(store, &operator, offices, at, models.IntentOpening)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if result.Outcome != OutcomeAlreadyOpen {
		t.Errorf("Outcome = %d, want OutcomeAlreadyOpen", result.Outcome)
	}
	if result.NotifyOwner {
		t.Error("idempotent check-in must not notify")
	}
	if len(store.events) != 0 {
		t.Errorf("idempotent check-in appended %d events", len(store.events))
	}
}

func TestClosingAlreadyClosedIsIdempotent(t *testing.T) {
	store := newFakeStore()
	offices := []models.Office{testOffice(false)}
	at := geo.Location{Latitude: 55.7558, Longitude: 37.6173}

	result, err := engineAt(mondayAt(t, 18, 0)).CheckIn(store, &operator, offices, at, models.IntentClosing)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if result.Outcome != OutcomeAlreadyClosed {
		t.Errorf("Outcome = %d, want OutcomeAlreadyClosed", result.Outcome)
	}
	if len(store.events) != 0 {
		t.Errorf("idempotent check-in appended %d events", len(store.events))
	}
}

func TestOnTimeOpenFlipsWithoutAlert(t *testing.T) {
	store := newFakeStore()
	offices := []models.Office{testOffice(false)}
	at := geo.Location{Latitude: 55.7558, Longitude: 37.6173}

	result, err := engineAt(mondayAt(t, 9, 5)).CheckIn(store, &operator, offices, at, models.IntentOpening)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if result.Outcome != OutcomeOpened {
		t.Fatalf("Outcome = %d, want OutcomeOpened", result.Outcome)
	}
	if result.NotifyOwner {
		t.Error("opening 5 minutes late is within grace, no alert expected")
	}
	if !store.openSet[1] {
		t.Error("office was not flipped open")
	}
	if len(store.events) != 1 || store.events[0].Code != models.EventOpened {
		t.Errorf("events = %+v, want one opened event", store.events)
	}
	if store.events[0].UserID == nil || *store.events[0].UserID != operator.ID {
		t.Error("opened event must reference the acting operator")
	}
}

func TestLateOpenAlertsOwner(t *testing.T) {
	store := newFakeStore()
	offices := []models.Office{testOffice(false)}
	at := geo.Location{Latitude: 55.7558, Longitude: 37.6173}

	// 09:20 is 20 minutes after the scheduled opening, past the 15m grace.
	result, err := engineAt(mondayAt(t, 9, 20)).CheckIn(store, &operator, offices, at, models.IntentOpening)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if result.Outcome != OutcomeOpened {
		t.Fatalf("Outcome = %d, want OutcomeOpened", result.Outcome)
	}
	if !result.NotifyOwner {
		t.Error("opening 20 minutes late must alert the owner")
	}
	if len(store.events) != 1 || store.events[0].Code != models.EventOpened {
		t.Errorf("events = %+v, want one opened event", store.events)
	}
}

func TestCloseGraceWindow(t *testing.T) {
	tests := []struct {
		name       string
		hour, min  int
		wantNotify bool
	}{
		{"far too early", 17, 30, true},
		{"inside early grace", 17, 55, false},
		{"on time", 18, 0, false},
		{"inside late grace", 18, 10, false},
		{"too late", 18, 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			offices := []models.Office{testOffice(true)}
			at := geo.Location{Latitude: 55.7558, Longitude: 37.6173}

			result, err := engineAt(mondayAt(t, tt.hour, tt.min)).CheckIn(store, &operator, offices, at, models.IntentClosing)
			if err != nil {
				t.Fatalf("CheckIn: %v", err)
			}
			if result.Outcome != OutcomeClosed {
				t.Fatalf("Outcome = %d, want OutcomeClosed", result.Outcome)
			}
			if result.NotifyOwner != tt.wantNotify {
				t.Errorf("NotifyOwner = %v, want %v", result.NotifyOwner, tt.wantNotify)
			}
		})
	}
}

func TestMissingWeekdayScheduleNeverAlerts(t *testing.T) {
	store := newFakeStore()
	office := testOffice(false)
	office.WorkingHours = []models.WorkingHours{{Weekday: 2, Opening: 9 * 60, Closing: 18 * 60}}
	at := geo.Location{Latitude: 55.7558, Longitude: 37.6173}

	// Monday has no schedule entry; the flip still happens, silently.
	result, err := engineAt(mondayAt(t, 23, 0)).CheckIn(store, &operator, []models.Office{office}, at, models.IntentOpening)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if result.Outcome != OutcomeOpened {
		t.Fatalf("Outcome = %d, want OutcomeOpened", result.Outcome)
	}
	if result.NotifyOwner {
		t.Error("missing weekday schedule must mean no notification")
	}
}

func TestNearestPicksMinimumDistance(t *testing.T) {
	near := testOffice(false)
	nearer := testOffice(false)
	nearer.ID = 2
	nearer.Latitude = 55.75582 // a couple of meters from the probe

	got := Nearest([]models.Office{near, nearer}, geo.Location{Latitude: 55.75582, Longitude: 37.6173})
	if got == nil || got.ID != 2 {
		t.Errorf("Nearest = %+v, want office 2", got)
	}
}
