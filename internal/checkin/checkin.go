// Package checkin implements the geofenced open/close flow: matching a
// reported coordinate to an office of the operator's owner chain and deciding
// whether the transition is valid and on time.
package checkin

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kirsanium/openpvz/internal/geo"
	"github.com/kirsanium/openpvz/internal/models"
)

// ProximityThreshold is how close (in meters) a reported location must be to
// an office for a check-in to count.
const ProximityThreshold = 100.0

// Store is the slice of the transactional repository the engine mutates
// through. *database.Tx satisfies it.
type Store interface {
	SetOfficeOpen(officeID int64, isOpen bool) error
	AppendDoorEvent(code models.EventCode, officeID int64, userID *int64, at time.Time) error
}

type Outcome int

const (
	OutcomeOutOfRange Outcome = iota
	OutcomeAlreadyOpen
	OutcomeAlreadyClosed
	OutcomeOpened
	OutcomeClosed
)

type Result struct {
	Outcome Outcome
	Office  *models.Office
	// NotifyOwner is set when the action happened outside the punctuality
	// window and the owner must be alerted immediately.
	NotifyOwner bool
}

type Engine struct {
	Grace time.Duration
	Now   func() time.Time
}

func NewEngine(grace time.Duration) *Engine {
	return &Engine{Grace: grace, Now: time.Now}
}

// Nearest returns the closest office within ProximityThreshold of loc, or nil
// when none qualifies.
func Nearest(offices []models.Office, loc geo.Location) *models.Office {
	var best *models.Office
	bestDist := ProximityThreshold
	for i := range offices {
		d := geo.Distance(loc, geo.Location{
			Latitude:  offices[i].Latitude,
			Longitude: offices[i].Longitude,
		})
		if d <= bestDist {
			best = &offices[i]
			bestDist = d
		}
	}
	return best
}

// CheckIn matches the reported location against the candidate offices and
// applies the intended transition. Idempotent cases (opening an open office,
// closing a closed one) mutate nothing and log no event.
func (e *Engine) CheckIn(store Store, user *models.User, offices []models.Office, loc geo.Location, intent models.OfficeIntent) (Result, error) {
	office := Nearest(offices, loc)
	if office == nil {
		return Result{Outcome: OutcomeOutOfRange}, nil
	}

	now := e.Now()

	switch intent {
	case models.IntentOpening:
		if office.IsOpen {
			return Result{Outcome: OutcomeAlreadyOpen, Office: office}, nil
		}
		if err := store.SetOfficeOpen(office.ID, true); err != nil {
			return Result{}, err
		}
		if err := store.AppendDoorEvent(models.EventOpened, office.ID, &user.ID, now); err != nil {
			return Result{}, err
		}
		office.IsOpen = true
		return Result{
			Outcome:     OutcomeOpened,
			Office:      office,
			NotifyOwner: e.outsideGrace(office, intent, now),
		}, nil

	case models.IntentClosing:
		if !office.IsOpen {
			return Result{Outcome: OutcomeAlreadyClosed, Office: office}, nil
		}
		if err := store.SetOfficeOpen(office.ID, false); err != nil {
			return Result{}, err
		}
		if err := store.AppendDoorEvent(models.EventClosed, office.ID, &user.ID, now); err != nil {
			return Result{}, err
		}
		office.IsOpen = false
		return Result{
			Outcome:     OutcomeClosed,
			Office:      office,
			NotifyOwner: e.outsideGrace(office, intent, now),
		}, nil
	}

	return Result{}, fmt.Errorf("unexpected office intent %q", intent)
}

// earlyCloseGrace is how much before the scheduled closing time an office may
// close without alerting the owner.
const earlyCloseGrace = 10 * time.Minute

// outsideGrace evaluates punctuality of an action against the office schedule
// in its local timezone. A missing schedule entry for the weekday means no
// alert; it is a data-quality problem, not an operator one.
func (e *Engine) outsideGrace(office *models.Office, intent models.OfficeIntent, now time.Time) bool {
	local := now.In(office.Location())
	hours := office.HoursFor(models.ISOWeekday(local.Weekday()))
	if hours == nil {
		zap.L().Warn("office has no schedule for weekday",
			zap.Int64("office_id", office.ID),
			zap.String("weekday", local.Weekday().String()))
		return false
	}

	switch intent {
	case models.IntentOpening:
		return local.After(hours.Opening.At(local).Add(e.Grace))
	case models.IntentClosing:
		closing := hours.Closing.At(local)
		return local.Before(closing.Add(-earlyCloseGrace)) || local.After(closing.Add(e.Grace))
	}
	return false
}
