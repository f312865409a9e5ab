// Package session holds the per-chat dialog state. State is an explicit
// value record: handlers receive a copy, mutate it and save it back, so no
// conversation data lives in ambient globals.
package session

import (
	"sync"

	"github.com/kirsanium/openpvz/internal/geo"
	"github.com/kirsanium/openpvz/internal/models"
)

type BotState int

const (
	StateAskingForName BotState = iota + 1
	StateMainMenu
	StateOperatorGeo
	StateOwnerOfficeGeo
	StateOwnerOfficeWorkingHours
	StateOwnerOfficeName
	StateOwnerDeleteOperator
	StateReallyDeleteOperator
	StateOwnerOffices
	StateOwnerOfficeSettings
	StateReallyDeleteOffice
	StateEnd
)

// PagedList is the snapshot a paged selection menu works against. IDs runs
// parallel to Items.
type PagedList struct {
	Items    []string
	IDs      []int64
	Page     int
	PageSize int
	ChosenID int64
}

// State is the whole conversation scratchpad for one chat.
type State struct {
	ChatID int64
	Step   BotState

	// onboarding, pending until the name is collected
	PendingRole    models.UserRole
	PendingOwnerID *int64

	// office creation scratch buffer
	OfficeLocation *geo.Location
	OfficeTimezone string
	OfficeHours    []models.WorkingHours

	// pending open/close intent
	Intent models.OfficeIntent

	List *PagedList
}

// ClearOnboarding drops the pending role/owner pair once consumed.
func (s *State) ClearOnboarding() {
	s.PendingRole = ""
	s.PendingOwnerID = nil
}

// ClearOfficeDraft drops the office creation scratch buffer.
func (s *State) ClearOfficeDraft() {
	s.OfficeLocation = nil
	s.OfficeTimezone = ""
	s.OfficeHours = nil
}

// Store keeps session state per chat. The bot handles each chat's turns
// sequentially; the mutex only guards cross-chat map access.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]State
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]State)}
}

// Get returns the session for chatID, creating a fresh one on first contact.
func (st *Store) Get(chatID int64) State {
	st.mu.RLock()
	s, ok := st.sessions[chatID]
	st.mu.RUnlock()
	if !ok {
		s = State{ChatID: chatID, Step: StateEnd}
	}
	return s
}

func (st *Store) Put(s State) {
	st.mu.Lock()
	st.sessions[s.ChatID] = s
	st.mu.Unlock()
}

func (st *Store) Delete(chatID int64) {
	st.mu.Lock()
	delete(st.sessions, chatID)
	st.mu.Unlock()
}
