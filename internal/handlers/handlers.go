package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kirsanium/openpvz/internal/bot"
	"github.com/kirsanium/openpvz/internal/checkin"
	"github.com/kirsanium/openpvz/internal/database"
	"github.com/kirsanium/openpvz/internal/geo"
	"github.com/kirsanium/openpvz/internal/models"
	"github.com/kirsanium/openpvz/internal/session"
	"github.com/kirsanium/openpvz/internal/token"
)

// ErrUnknownReply is raised when a confirmation prompt gets anything but a
// yes/no answer. It aborts the turn without commit.
var ErrUnknownReply = errors.New("unknown reply")

// TokenTTL is how long an onboarding link stays redeemable.
const TokenTTL = 24 * time.Hour

// Grace is the punctuality tolerance around scheduled boundaries. Shared by
// the check-in evaluation and the sweep windows.
var Grace = 15 * time.Minute

type reply struct {
	text   string
	markup interface{}
	doc    []byte
	name   string
}

// turn is the per-event scope: one transaction, one session value and the
// replies and owner alerts accumulated while the transaction is open. Nothing
// is delivered until the transaction commits.
type turn struct {
	bot     *bot.Bot
	tx      *database.Tx
	msg     *tgbotapi.Message
	user    *models.User
	sess    session.State
	replies []reply
	alerts  []alert
}

type alert struct {
	chatID int64
	text   string
}

func (t *turn) reply(text string, markup interface{}) {
	t.replies = append(t.replies, reply{text: text, markup: markup})
}

func (t *turn) replyDocument(name string, data []byte, markup interface{}) {
	t.replies = append(t.replies, reply{doc: data, name: name, markup: markup})
}

func (t *turn) alert(chatID int64, text string) {
	t.alerts = append(t.alerts, alert{chatID: chatID, text: text})
}

// run executes fn inside one transactional scope and delivers the turn's
// output only after a successful commit. On failure all accumulated output is
// dropped and a generic failure reply is sent.
func run(b *bot.Bot, message *tgbotapi.Message, fn func(*turn) error) {
	chatID := message.Chat.ID
	t := &turn{bot: b, msg: message, sess: b.Sessions.Get(chatID)}

	err := b.DB.WithTx(context.Background(), func(tx *database.Tx) error {
		t.tx = tx
		user, err := tx.UserByChatID(chatID)
		if err != nil {
			return fmt.Errorf("failed to resolve identity: %w", err)
		}
		t.user = user
		return fn(t)
	})
	if err != nil {
		zap.L().Error("turn aborted",
			zap.Int64("chat_id", chatID),
			zap.Int("state", int(t.sess.Step)),
			zap.Error(err))
		_ = b.SendMessage(chatID, MsgSomethingWrong, nil)
		return
	}

	if t.sess.Step == session.StateEnd {
		b.Sessions.Delete(chatID)
	} else {
		b.Sessions.Put(t.sess)
	}
	for _, r := range t.replies {
		var err error
		if r.doc != nil {
			err = b.SendDocument(chatID, r.name, r.doc, r.markup)
		} else {
			err = b.SendMessage(chatID, r.text, r.markup)
		}
		if err != nil {
			zap.L().Error("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	// Owner alerts are fire and forget: the state change is committed either way.
	for _, a := range t.alerts {
		if err := b.Notify(a.chatID, a.text); err != nil {
			zap.L().Warn("owner alert delivery failed", zap.Int64("chat_id", a.chatID), zap.Error(err))
		}
	}
}

// HandleStart is the /start entry point, optionally carrying an onboarding
// token as the command argument.
func HandleStart(b *bot.Bot, message *tgbotapi.Message) {
	run(b, message, func(t *turn) error {
		arg := strings.TrimSpace(message.CommandArguments())
		if arg != "" {
			return t.startWithToken(arg)
		}
		if t.user == nil {
			t.reply(MsgMustLogIn, nil)
			t.sess.Step = session.StateEnd
			return nil
		}
		return t.toMainMenu()
	})
}

func (t *turn) startWithToken(tok string) error {
	role, ownerID, err := t.bot.Codec.Decode(tok, time.Now())
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		t.reply(MsgTokenExpired, nil)
		t.sess.Step = session.StateEnd
		return nil
	case errors.Is(err, token.ErrInvalidToken):
		t.reply(MsgTokenInvalid, nil)
		t.sess.Step = session.StateEnd
		return nil
	case err != nil:
		return err
	}

	var ownerRef *int64
	if ownerID != 0 {
		ownerRef = &ownerID
	}

	if t.user != nil {
		// Existing identity: upgrade role and owner in place, no name step.
		if err := t.tx.UpdateUserRole(t.user.ID, role, ownerRef); err != nil {
			if errors.Is(err, database.ErrUnknownOwner) {
				t.reply(MsgUnknownOwner, nil)
				t.sess.Step = session.StateEnd
				return nil
			}
			return err
		}
		t.user.Role = role
		t.user.OwnerID = ownerRef
		t.reply(fmt.Sprintf(MsgYourRoleNow, role), nil)
		return t.toMainMenu()
	}

	t.sess.PendingRole = role
	t.sess.PendingOwnerID = ownerRef
	t.reply(MsgAskForName, nil)
	t.sess.Step = session.StateAskingForName
	return nil
}

// HandleMessage dispatches a non-command message to the handler of the
// session's current state.
func HandleMessage(b *bot.Bot, message *tgbotapi.Message) {
	run(b, message, func(t *turn) error {
		switch t.sess.Step {
		case session.StateAskingForName:
			return t.handleName()
		case session.StateMainMenu:
			return t.handleMainMenu()
		case session.StateOperatorGeo:
			return t.handleCurrentGeo()
		case session.StateOwnerOfficeGeo:
			return t.handleOfficeGeo()
		case session.StateOwnerOfficeWorkingHours:
			return t.handleWorkingHours()
		case session.StateOwnerOfficeName:
			return t.handleOfficeName()
		case session.StateOwnerDeleteOperator:
			return t.handleDeleteOperatorChoice()
		case session.StateReallyDeleteOperator:
			return t.handleReallyDeleteOperator()
		case session.StateOwnerOffices:
			return t.handleOfficeChoice()
		case session.StateOwnerOfficeSettings:
			return t.handleOfficeSettings()
		case session.StateReallyDeleteOffice:
			return t.handleReallyDeleteOffice()
		default:
			if t.user == nil {
				t.reply(MsgMustLogIn, nil)
				t.sess.Step = session.StateEnd
				return nil
			}
			return t.toMainMenu()
		}
	})
}

func (t *turn) toMainMenu() error {
	t.sess.Step = session.StateMainMenu
	t.reply(MsgWelcome, t.bot.MainMenuKeyboard(t.user.Role))
	return nil
}

func (t *turn) handleName() error {
	name := strings.TrimSpace(t.msg.Text)
	if name == "" {
		t.reply(MsgAskForName, nil)
		return nil
	}
	if !t.sess.PendingRole.Valid() {
		// Session lost its onboarding context, start over.
		t.reply(MsgMustLogIn, nil)
		t.sess.Step = session.StateEnd
		return nil
	}

	user, err := t.tx.CreateUser(t.msg.Chat.ID, name, t.sess.PendingRole, t.sess.PendingOwnerID)
	if err != nil {
		if errors.Is(err, database.ErrUnknownOwner) {
			t.reply(MsgUnknownOwner, nil)
			t.sess.Step = session.StateEnd
			return nil
		}
		return err
	}
	t.user = user
	t.sess.ClearOnboarding()
	return t.toMainMenu()
}

// handleMainMenu branches by role; the switch is exhaustive over the closed
// role set so a new role is a compile-visible change.
func (t *turn) handleMainMenu() error {
	if t.user == nil {
		t.reply(MsgMustLogIn, nil)
		t.sess.Step = session.StateEnd
		return nil
	}

	text := strings.TrimSpace(t.msg.Text)
	switch t.user.Role {
	case models.RoleOperator:
		switch text {
		case bot.BtnOpenOffice:
			return t.askForCurrentGeo(models.IntentOpening)
		case bot.BtnCloseOffice:
			return t.askForCurrentGeo(models.IntentClosing)
		}
	case models.RoleSuperowner, models.RoleOwner:
		switch text {
		case bot.BtnAddOffice:
			return t.addOffice()
		case bot.BtnOfficeSettings:
			return t.listOffices()
		case bot.BtnAddOperator:
			return t.mintLink(models.RoleOperator)
		case bot.BtnAddManager:
			return t.mintLink(models.RoleManager)
		case bot.BtnDeleteOperator:
			return t.listOperators()
		}
	case models.RoleManager:
		switch text {
		case bot.BtnAddOperator:
			return t.mintLink(models.RoleOperator)
		case bot.BtnDeleteOperator:
			return t.listOperators()
		}
	}

	return t.toMainMenu()
}

// Operator check-in flow

func (t *turn) askForCurrentGeo(intent models.OfficeIntent) error {
	t.sess.Intent = intent
	t.sess.Step = session.StateOperatorGeo
	t.reply(MsgSendYourGeo, nil)
	return nil
}

func (t *turn) handleCurrentGeo() error {
	if t.msg.Location == nil {
		t.reply(MsgSendYourGeo, nil)
		return nil
	}

	root, err := t.tx.OwnerChainRoot(t.user)
	if err != nil {
		return err
	}
	offices, err := t.tx.OfficesByOwner(root.ID)
	if err != nil {
		return err
	}

	engine := checkin.NewEngine(Grace)
	loc := geo.Location{Latitude: t.msg.Location.Latitude, Longitude: t.msg.Location.Longitude}
	result, err := engine.CheckIn(t.tx, t.user, offices, loc, t.sess.Intent)
	if err != nil {
		return err
	}

	menu := t.bot.MainMenuKeyboard(t.user.Role)
	switch result.Outcome {
	case checkin.OutcomeOutOfRange:
		t.reply(MsgOutOfRange, menu)
	case checkin.OutcomeAlreadyOpen:
		t.reply(fmt.Sprintf(MsgAlreadyOpened, result.Office.Name), menu)
	case checkin.OutcomeAlreadyClosed:
		t.reply(fmt.Sprintf(MsgAlreadyClosed, result.Office.Name), menu)
	case checkin.OutcomeOpened:
		t.reply(fmt.Sprintf(MsgOfficeOpened, result.Office.Name), menu)
		t.alertOwner(result, MsgOpenedNotice, MsgOpenedLateNotice)
	case checkin.OutcomeClosed:
		t.reply(fmt.Sprintf(MsgOfficeClosed, result.Office.Name), menu)
		t.alertOwner(result, MsgClosedNotice, MsgClosedLateNotice)
	}

	t.sess.Intent = ""
	t.sess.Step = session.StateMainMenu
	return nil
}

func (t *turn) alertOwner(result checkin.Result, noticeFmt, lateFmt string) {
	owner, err := t.tx.UserByID(result.Office.OwnerID)
	if err != nil {
		zap.L().Warn("cannot resolve office owner for notification",
			zap.Int64("office_id", result.Office.ID), zap.Error(err))
		return
	}
	if owner.ChatID == t.user.ChatID {
		return
	}
	format := noticeFmt
	if result.NotifyOwner {
		format = lateFmt
	}
	t.alert(owner.ChatID, fmt.Sprintf(format, result.Office.Name))
}

func (t *turn) mintLink(role models.UserRole) error {
	tok, err := t.bot.Codec.Encode(role, t.user.ID, time.Now().Add(TokenTTL))
	if err != nil {
		return err
	}
	link := token.DeepLink(t.bot.Name, tok)
	t.reply(fmt.Sprintf(MsgSendThisLink, link), t.bot.MainMenuKeyboard(t.user.Role))
	t.sess.Step = session.StateMainMenu
	return nil
}
