// Package sweep implements the periodic punctuality scan: it detects offices
// that were not opened or not closed on time and alerts their owner, at most
// once per office-local calendar day per code.
package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kirsanium/openpvz/internal/database"
	"github.com/kirsanium/openpvz/internal/models"
)

// Notifier delivers an owner alert. Delivery failures are logged by the
// caller and never abort the sweep.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// Store is the slice of the transactional repository one office's sweep pass
// writes through. *database.Tx satisfies it.
type Store interface {
	HasDoorEventInRange(officeID int64, code models.EventCode, from, to time.Time) (bool, error)
	AppendDoorEvent(code models.EventCode, officeID int64, userID *int64, at time.Time) error
	UserByID(id int64) (*models.User, error)
}

type Finding int

const (
	FindingNone Finding = iota
	FindingNotOpened
	FindingNotClosed
)

// Detect decides whether office is late for its current detection window at
// the given instant. Windows are [boundary+grace, boundary+2*grace]: the
// sweep runs at discrete intervals, so a fixed-width window is needed to
// neither miss nor refire between polls; the dedup record guards the refire
// side within the window.
func Detect(office *models.Office, now time.Time, grace time.Duration) Finding {
	local := now.In(office.Location())
	hours := office.HoursFor(models.ISOWeekday(local.Weekday()))
	if hours == nil {
		return FindingNone
	}

	openStart := hours.Opening.At(local).Add(grace)
	closeStart := hours.Closing.At(local).Add(grace)

	if !office.IsOpen && within(local, openStart, grace) {
		return FindingNotOpened
	}
	if office.IsOpen && within(local, closeStart, grace) {
		return FindingNotClosed
	}
	return FindingNone
}

func within(t, start time.Time, width time.Duration) bool {
	return !t.Before(start) && !t.After(start.Add(width))
}

// LocalDayRange returns the UTC instants bounding the office-local calendar
// day containing now. The dedup query runs over this range.
func LocalDayRange(office *models.Office, now time.Time) (time.Time, time.Time) {
	local := now.In(office.Location())
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return midnight.UTC(), midnight.AddDate(0, 0, 1).UTC()
}

type Sweeper struct {
	DB       *database.DB
	Notifier Notifier
	Grace    time.Duration
	Interval time.Duration
	Now      func() time.Time
}

func New(db *database.DB, notifier Notifier, grace, interval time.Duration) *Sweeper {
	return &Sweeper{DB: db, Notifier: notifier, Grace: grace, Interval: interval, Now: time.Now}
}

// Run scans on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				zap.L().Error("punctuality sweep failed", zap.Error(err))
			}
		}
	}
}

// pendingAlert is the owner notification decided inside an office's
// transaction. It is delivered only after that transaction commits.
type pendingAlert struct {
	chatID int64
	text   string
}

// SweepOnce runs one scan. Every office gets its own transactional scope, so
// one office's failure rolls back only its own dedup event and never touches
// another office's. Per-office errors are collected and do not stop the scan.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	var offices []models.Office
	err := s.DB.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		offices, err = tx.OfficesWithSchedule()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list scheduled offices: %w", err)
	}

	var errs error
	for i := range offices {
		office := &offices[i]
		var pending *pendingAlert
		err := s.DB.WithTx(ctx, func(tx *database.Tx) error {
			var err error
			pending, err = s.sweepOffice(tx, office)
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("office %d: %w", office.ID, err))
			continue
		}
		s.deliver(office, pending)
	}
	return errs
}

// sweepOffice detects and records one office's late event inside the given
// transactional scope. The owner alert is returned, not sent: delivery must
// wait for the commit.
func (s *Sweeper) sweepOffice(store Store, office *models.Office) (*pendingAlert, error) {
	now := s.Now()

	var code models.EventCode
	var text string
	switch Detect(office, now, s.Grace) {
	case FindingNone:
		return nil, nil
	case FindingNotOpened:
		code = models.EventNotOpenedLate
		text = fmt.Sprintf("%s: office was not opened on time.", office.Name)
	case FindingNotClosed:
		code = models.EventNotClosedLate
		text = fmt.Sprintf("%s: office was not closed on time.", office.Name)
	}

	dayStart, dayEnd := LocalDayRange(office, now)
	already, err := store.HasDoorEventInRange(office.ID, code, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("dedup check failed: %w", err)
	}
	if already {
		return nil, nil
	}

	if err := store.AppendDoorEvent(code, office.ID, nil, now); err != nil {
		return nil, err
	}

	owner, err := store.UserByID(office.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load office owner: %w", err)
	}
	return &pendingAlert{chatID: owner.ChatID, text: text}, nil
}

// deliver sends a committed office's alert. A blocked or unreachable owner is
// only logged: the recorded event stands either way.
func (s *Sweeper) deliver(office *models.Office, pending *pendingAlert) {
	if pending == nil {
		return
	}
	if err := s.Notifier.Notify(pending.chatID, pending.text); err != nil {
		zap.L().Warn("owner alert delivery failed",
			zap.Int64("chat_id", pending.chatID),
			zap.Int64("office_id", office.ID),
			zap.Error(err))
	}
}
