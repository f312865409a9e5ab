package models

import "time"

type UserRole string

const (
	RoleSuperowner UserRole = "SUPEROWNER"
	RoleOwner      UserRole = "OWNER"
	RoleManager    UserRole = "MANAGER"
	RoleOperator   UserRole = "OPERATOR"
)

// Valid reports whether the role is one of the four known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperowner, RoleOwner, RoleManager, RoleOperator:
		return true
	}
	return false
}

// IsOwnerLike reports whether the role may manage offices and staff.
func (r UserRole) IsOwnerLike() bool {
	return r == RoleSuperowner || r == RoleOwner
}

type User struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Name      string    `db:"name"`
	Role      UserRole  `db:"role"`
	OwnerID   *int64    `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Office struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Latitude  float64   `db:"latitude"`
	Longitude float64   `db:"longitude"`
	IsOpen    bool      `db:"is_open"`
	Timezone  string    `db:"timezone"`
	OwnerID   int64     `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// WorkingHours is populated by queries that join the schedule.
	WorkingHours []WorkingHours `db:"-"`
}

// HoursFor returns the schedule entry for the given ISO weekday (1=Monday),
// or nil when no entry is defined for that day.
func (o *Office) HoursFor(weekday int) *WorkingHours {
	for i := range o.WorkingHours {
		if o.WorkingHours[i].Weekday == weekday {
			return &o.WorkingHours[i]
		}
	}
	return nil
}

// Location returns the office timezone, falling back to UTC when the stored
// identifier does not load.
func (o *Office) Location() *time.Location {
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type WorkingHours struct {
	ID       int64     `db:"id"`
	OfficeID int64     `db:"office_id"`
	Weekday  int       `db:"weekday"` // ISO: 1=Monday .. 7=Sunday
	Opening  TimeOfDay `db:"opening_time"`
	Closing  TimeOfDay `db:"closing_time"`
}

type EventCode string

const (
	EventOpened        EventCode = "opened"
	EventClosed        EventCode = "closed"
	EventNotOpenedLate EventCode = "not_opened_late"
	EventNotClosedLate EventCode = "not_closed_late"
)

// DoorEvent is an immutable audit record of an office status transition or a
// missed-transition alert. UserID is nil for sweep-generated events.
type DoorEvent struct {
	ID        int64     `db:"id"`
	Code      EventCode `db:"code"`
	CreatedAt time.Time `db:"created_at"`
	OfficeID  int64     `db:"office_id"`
	UserID    *int64    `db:"user_id"`
}

type OfficeIntent string

const (
	IntentOpening OfficeIntent = "opening"
	IntentClosing OfficeIntent = "closing"
)
