package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirsanium/openpvz/internal/models"
)

var (
	ErrUnknownOwner = errors.New("unknown owner reference")
	ErrOwnerCycle   = errors.New("owner reference would form a cycle")
)

const userColumns = "id, chat_id, name, role, owner_id, created_at, updated_at"

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.ChatID, &user.Name, &user.Role,
		&user.OwnerID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// User operations

func (t *Tx) UserByChatID(chatID int64) (*models.User, error) {
	user, err := scanUser(t.tx.QueryRow(`
		SELECT `+userColumns+` FROM users WHERE chat_id = $1
	`, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (t *Tx) UserByID(id int64) (*models.User, error) {
	return scanUser(t.tx.QueryRow(`
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id))
}

// CreateUser inserts a new user. A non-nil ownerID must reference an existing
// user; a new node has no descendants, so no cycle check is needed here.
func (t *Tx) CreateUser(chatID int64, name string, role models.UserRole, ownerID *int64) (*models.User, error) {
	if ownerID != nil {
		if _, err := t.UserByID(*ownerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrUnknownOwner
			}
			return nil, err
		}
	}

	user, err := scanUser(t.tx.QueryRow(`
		INSERT INTO users (chat_id, name, role, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns+`
	`, chatID, name, role, ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UpdateUserRole upgrades role and owner in place (token redemption by an
// existing user). The new owner must exist and must not sit in the user's own
// subtree, keeping the hierarchy acyclic.
func (t *Tx) UpdateUserRole(userID int64, role models.UserRole, ownerID *int64) error {
	if ownerID != nil {
		owner, err := t.UserByID(*ownerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUnknownOwner
			}
			return err
		}
		for owner != nil {
			if owner.ID == userID {
				return ErrOwnerCycle
			}
			if owner.OwnerID == nil {
				break
			}
			owner, err = t.UserByID(*owner.OwnerID)
			if err != nil {
				return err
			}
		}
	}

	_, err := t.tx.Exec(`
		UPDATE users
		SET role = $1, owner_id = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`, role, ownerID, userID)
	return err
}

func (t *Tx) Employees(ownerID int64) ([]models.User, error) {
	rows, err := t.tx.Query(`
		SELECT `+userColumns+` FROM users WHERE owner_id = $1 ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		err := rows.Scan(&u.ID, &u.ChatID, &u.Name, &u.Role, &u.OwnerID, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser removes a user and the offices it owns. Employees are unlinked
// (owner_id set to NULL by the schema), never deleted. Door events survive as
// audit history.
func (t *Tx) DeleteUser(id int64) error {
	if _, err := t.tx.Exec(`DELETE FROM offices WHERE owner_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user offices: %w", err)
	}
	_, err := t.tx.Exec(`DELETE FROM users WHERE id = $1`, id)
	return err
}

// OwnerChainRoot walks the owner references up from user and returns the
// top-most node of its hierarchy. A user with no owner is its own root.
func (t *Tx) OwnerChainRoot(user *models.User) (*models.User, error) {
	current := user
	for current.OwnerID != nil {
		parent, err := t.UserByID(*current.OwnerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrUnknownOwner
			}
			return nil, err
		}
		current = parent
	}
	return current, nil
}

// Office operations

func (t *Tx) CreateOffice(name string, lat, lon float64, timezone string, ownerID int64, hours []models.WorkingHours) (*models.Office, error) {
	var office models.Office
	err := t.tx.QueryRow(`
		INSERT INTO offices (name, latitude, longitude, timezone, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, latitude, longitude, is_open, timezone, owner_id, created_at, updated_at
	`, name, lat, lon, timezone, ownerID).Scan(
		&office.ID, &office.Name, &office.Latitude, &office.Longitude,
		&office.IsOpen, &office.Timezone, &office.OwnerID, &office.CreatedAt, &office.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create office: %w", err)
	}

	for _, h := range hours {
		var wh models.WorkingHours
		err := t.tx.QueryRow(`
			INSERT INTO working_hours (office_id, weekday, opening_time, closing_time)
			VALUES ($1, $2, $3, $4)
			RETURNING id, office_id, weekday, opening_time, closing_time
		`, office.ID, h.Weekday, h.Opening, h.Closing).Scan(
			&wh.ID, &wh.OfficeID, &wh.Weekday, &wh.Opening, &wh.Closing,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create working hours: %w", err)
		}
		office.WorkingHours = append(office.WorkingHours, wh)
	}
	return &office, nil
}

func (t *Tx) OfficeByID(id int64) (*models.Office, error) {
	var office models.Office
	err := t.tx.QueryRow(`
		SELECT id, name, latitude, longitude, is_open, timezone, owner_id, created_at, updated_at
		FROM offices WHERE id = $1
	`, id).Scan(
		&office.ID, &office.Name, &office.Latitude, &office.Longitude,
		&office.IsOpen, &office.Timezone, &office.OwnerID, &office.CreatedAt, &office.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := t.loadWorkingHours(&office); err != nil {
		return nil, err
	}
	return &office, nil
}

func (t *Tx) OfficesByOwner(ownerID int64) ([]models.Office, error) {
	rows, err := t.tx.Query(`
		SELECT id, name, latitude, longitude, is_open, timezone, owner_id, created_at, updated_at
		FROM offices WHERE owner_id = $1 ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offices []models.Office
	for rows.Next() {
		var o models.Office
		err := rows.Scan(
			&o.ID, &o.Name, &o.Latitude, &o.Longitude,
			&o.IsOpen, &o.Timezone, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range offices {
		if err := t.loadWorkingHours(&offices[i]); err != nil {
			return nil, err
		}
	}
	return offices, nil
}

// OfficesWithSchedule returns every office that has at least one weekly
// schedule entry. Used by the punctuality sweep.
func (t *Tx) OfficesWithSchedule() ([]models.Office, error) {
	rows, err := t.tx.Query(`
		SELECT DISTINCT o.id, o.name, o.latitude, o.longitude, o.is_open, o.timezone,
		       o.owner_id, o.created_at, o.updated_at
		FROM offices o
		JOIN working_hours w ON w.office_id = o.id
		ORDER BY o.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offices []models.Office
	for rows.Next() {
		var o models.Office
		err := rows.Scan(
			&o.ID, &o.Name, &o.Latitude, &o.Longitude,
			&o.IsOpen, &o.Timezone, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range offices {
		if err := t.loadWorkingHours(&offices[i]); err != nil {
			return nil, err
		}
	}
	return offices, nil
}

func (t *Tx) loadWorkingHours(office *models.Office) error {
	rows, err := t.tx.Query(`
		SELECT id, office_id, weekday, opening_time, closing_time
		FROM working_hours WHERE office_id = $1 ORDER BY weekday
	`, office.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	office.WorkingHours = nil
	for rows.Next() {
		var wh models.WorkingHours
		if err := rows.Scan(&wh.ID, &wh.OfficeID, &wh.Weekday, &wh.Opening, &wh.Closing); err != nil {
			return err
		}
		office.WorkingHours = append(office.WorkingHours, wh)
	}
	return rows.Err()
}

func (t *Tx) SetOfficeOpen(officeID int64, isOpen bool) error {
	_, err := t.tx.Exec(`
		UPDATE offices
		SET is_open = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, isOpen, officeID)
	return err
}

// DeleteOffice removes an office and its schedule. Door events are kept: they
// are the audit trail the sweep and reports read.
func (t *Tx) DeleteOffice(id int64) error {
	_, err := t.tx.Exec(`DELETE FROM offices WHERE id = $1`, id)
	return err
}

// Door event operations

func (t *Tx) AppendDoorEvent(code models.EventCode, officeID int64, userID *int64, at time.Time) error {
	_, err := t.tx.Exec(`
		INSERT INTO door_events (code, created_at, office_id, user_id)
		VALUES ($1, $2, $3, $4)
	`, code, at.UTC(), officeID, userID)
	if err != nil {
		return fmt.Errorf("failed to append door event: %w", err)
	}
	return nil
}

// HasDoorEventInRange reports whether an event of the given code exists for
// the office in [from, to). The sweep uses it as its dedup check, passing the
// UTC range covering the office-local calendar day.
func (t *Tx) HasDoorEventInRange(officeID int64, code models.EventCode, from, to time.Time) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM door_events
			WHERE office_id = $1 AND code = $2 AND created_at >= $3 AND created_at < $4
		)
	`, officeID, code, from.UTC(), to.UTC()).Scan(&exists)
	return exists, err
}

func (t *Tx) DoorEventsBetween(officeID int64, from, to time.Time) ([]models.DoorEvent, error) {
	rows, err := t.tx.Query(`
		SELECT id, code, created_at, office_id, user_id
		FROM door_events
		WHERE office_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at
	`, officeID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.DoorEvent
	for rows.Next() {
		var e models.DoorEvent
		if err := rows.Scan(&e.ID, &e.Code, &e.CreatedAt, &e.OfficeID, &e.UserID); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
