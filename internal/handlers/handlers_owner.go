package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirsanium/openpvz/internal/bot"
	"github.com/kirsanium/openpvz/internal/geo"
	"github.com/kirsanium/openpvz/internal/models"
	"github.com/kirsanium/openpvz/internal/paging"
	"github.com/kirsanium/openpvz/internal/reports"
	"github.com/kirsanium/openpvz/internal/session"
)

// listPageSize is how many names a selection menu shows per page.
const listPageSize = 5

// Office creation flow

func (t *turn) addOffice() error {
	t.sess.Step = session.StateOwnerOfficeGeo
	t.reply(MsgSendOfficeGeo, nil)
	return nil
}

func (t *turn) handleOfficeGeo() error {
	if t.msg.Location == nil {
		t.reply(MsgSendOfficeGeo, nil)
		return nil
	}
	loc := geo.Location{Latitude: t.msg.Location.Latitude, Longitude: t.msg.Location.Longitude}
	t.sess.OfficeLocation = &loc
	t.sess.OfficeTimezone = t.bot.TZ.Resolve(loc)
	t.sess.Step = session.StateOwnerOfficeWorkingHours
	t.reply(MsgEnterWorkingHours, nil)
	return nil
}

func (t *turn) handleWorkingHours() error {
	hours, err := models.ParseWorkingHours(t.msg.Text)
	if err != nil {
		// input-format error: re-prompt the same state
		t.reply(MsgBadWorkingHours, nil)
		return nil
	}
	t.sess.OfficeHours = hours
	t.sess.Step = session.StateOwnerOfficeName
	t.reply(MsgEnterOfficeName, nil)
	return nil
}

func (t *turn) handleOfficeName() error {
	name := strings.TrimSpace(t.msg.Text)
	if name == "" {
		t.reply(MsgEnterOfficeName, nil)
		return nil
	}
	if t.sess.OfficeLocation == nil || len(t.sess.OfficeHours) == 0 {
		return fmt.Errorf("office draft incomplete in state %d", t.sess.Step)
	}

	_, err := t.tx.CreateOffice(
		name,
		t.sess.OfficeLocation.Latitude,
		t.sess.OfficeLocation.Longitude,
		t.sess.OfficeTimezone,
		t.user.ID,
		t.sess.OfficeHours,
	)
	if err != nil {
		return err
	}

	t.sess.ClearOfficeDraft()
	t.reply(MsgOfficeCreated, t.bot.MainMenuKeyboard(t.user.Role))
	t.sess.Step = session.StateMainMenu
	return nil
}

// Paged selection lists

func (t *turn) showPage(list *session.PagedList, prompt string) {
	page := paging.Paginate(list.Items, list.Page, list.PageSize)
	list.Page = page.Index
	t.reply(prompt, t.bot.PagedKeyboard(page))
}

// pageMove handles a prev/next press against the active snapshot. It returns
// true when the message was a navigation press.
func (t *turn) pageMove(prompt string) (bool, error) {
	var delta int
	switch strings.TrimSpace(t.msg.Text) {
	case bot.BtnPrevPage:
		delta = -1
	case bot.BtnNextPage:
		delta = 1
	default:
		return false, nil
	}

	list := t.sess.List
	if list == nil {
		return true, paging.ErrPageOutOfBounds
	}
	page, err := paging.Move(list.Items, list.Page, list.PageSize, delta)
	if err != nil {
		return true, err
	}
	list.Page = page.Index
	t.reply(prompt, t.bot.PagedKeyboard(page))
	return true, nil
}

// chosen resolves a tapped item name on the current page to its id.
func (t *turn) chosen() (int64, bool) {
	list := t.sess.List
	if list == nil {
		return 0, false
	}
	text := strings.TrimSpace(t.msg.Text)
	page := paging.Paginate(list.Items, list.Page, list.PageSize)
	for i, item := range page.Items {
		if item == text {
			return list.IDs[list.Page*list.PageSize+i], true
		}
	}
	return 0, false
}

// Operator deletion flow

func (t *turn) listOperators() error {
	employees, err := t.tx.Employees(t.user.ID)
	if err != nil {
		return err
	}
	if len(employees) == 0 {
		t.reply(MsgNoOperators, t.bot.MainMenuKeyboard(t.user.Role))
		t.sess.Step = session.StateMainMenu
		return nil
	}

	list := &session.PagedList{PageSize: listPageSize}
	for _, e := range employees {
		list.Items = append(list.Items, e.Name)
		list.IDs = append(list.IDs, e.ID)
	}
	t.sess.List = list
	t.sess.Step = session.StateOwnerDeleteOperator
	t.showPage(list, MsgChooseOperator)
	return nil
}

func (t *turn) handleDeleteOperatorChoice() error {
	if moved, err := t.pageMove(MsgChooseOperator); moved {
		return err
	}
	id, ok := t.chosen()
	if !ok {
		t.showPage(t.sess.List, MsgChooseOperator)
		return nil
	}
	t.sess.List.ChosenID = id
	t.sess.Step = session.StateReallyDeleteOperator
	t.reply(fmt.Sprintf(MsgReallyDeleteWhom, strings.TrimSpace(t.msg.Text)), t.bot.YesNoKeyboard())
	return nil
}

func (t *turn) handleReallyDeleteOperator() error {
	confirmed, err := t.confirmation()
	if err != nil {
		return err
	}
	if confirmed {
		if err := t.tx.DeleteUser(t.sess.List.ChosenID); err != nil {
			return err
		}
		t.reply(MsgOperatorDeleted, t.bot.MainMenuKeyboard(t.user.Role))
	} else {
		t.reply(MsgDeletionCancelled, t.bot.MainMenuKeyboard(t.user.Role))
	}
	t.sess.List = nil
	t.sess.Step = session.StateMainMenu
	return nil
}

// confirmation parses a yes/no answer. Anything else is a dialog-level error:
// confirmation states are not re-entrant.
func (t *turn) confirmation() (bool, error) {
	switch strings.TrimSpace(t.msg.Text) {
	case bot.BtnYes:
		return true, nil
	case bot.BtnNo:
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownReply, t.msg.Text)
}

// Office settings flow

func (t *turn) listOffices() error {
	offices, err := t.tx.OfficesByOwner(t.user.ID)
	if err != nil {
		return err
	}
	if len(offices) == 0 {
		t.reply(MsgNoOffices, t.bot.MainMenuKeyboard(t.user.Role))
		t.sess.Step = session.StateMainMenu
		return nil
	}

	list := &session.PagedList{PageSize: listPageSize}
	for _, o := range offices {
		list.Items = append(list.Items, o.Name)
		list.IDs = append(list.IDs, o.ID)
	}
	t.sess.List = list
	t.sess.Step = session.StateOwnerOffices
	t.showPage(list, MsgChooseOffice)
	return nil
}

func (t *turn) handleOfficeChoice() error {
	if moved, err := t.pageMove(MsgChooseOffice); moved {
		return err
	}
	id, ok := t.chosen()
	if !ok {
		t.showPage(t.sess.List, MsgChooseOffice)
		return nil
	}
	t.sess.List.ChosenID = id
	t.sess.Step = session.StateOwnerOfficeSettings
	t.reply(strings.TrimSpace(t.msg.Text), t.bot.OfficeSettingsKeyboard())
	return nil
}

func (t *turn) handleOfficeSettings() error {
	switch strings.TrimSpace(t.msg.Text) {
	case bot.BtnDeleteOffice:
		office, err := t.tx.OfficeByID(t.sess.List.ChosenID)
		if err != nil {
			return err
		}
		t.sess.Step = session.StateReallyDeleteOffice
		t.reply(fmt.Sprintf(MsgReallyDeleteOffice, office.Name), t.bot.YesNoKeyboard())
		return nil
	case bot.BtnOfficeReport:
		return t.sendOfficeReport()
	}
	t.reply(MsgWelcome, t.bot.OfficeSettingsKeyboard())
	return nil
}

func (t *turn) handleReallyDeleteOffice() error {
	confirmed, err := t.confirmation()
	if err != nil {
		return err
	}
	if confirmed {
		if err := t.tx.DeleteOffice(t.sess.List.ChosenID); err != nil {
			return err
		}
		t.reply(MsgOfficeDeleted, t.bot.MainMenuKeyboard(t.user.Role))
	} else {
		t.reply(MsgDeletionCancelled, t.bot.MainMenuKeyboard(t.user.Role))
	}
	t.sess.List = nil
	t.sess.Step = session.StateMainMenu
	return nil
}

func (t *turn) sendOfficeReport() error {
	office, err := t.tx.OfficeByID(t.sess.List.ChosenID)
	if err != nil {
		return err
	}
	employees, err := t.tx.Employees(t.user.ID)
	if err != nil {
		return err
	}

	to := time.Now()
	since := to.Add(-reports.DefaultPeriod)
	events, err := t.tx.DoorEventsBetween(office.ID, since, to)
	if err != nil {
		return err
	}

	data, err := reports.Build(employees, events, since, to)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	t.replyDocument(reports.FileName(office.Name, to), data, t.bot.MainMenuKeyboard(t.user.Role))
	t.sess.List = nil
	t.sess.Step = session.StateMainMenu
	return nil
}
