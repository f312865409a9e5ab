package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/kirsanium/openpvz/internal/database"
	"github.com/kirsanium/openpvz/internal/models"
	"github.com/kirsanium/openpvz/internal/paging"
	"github.com/kirsanium/openpvz/internal/session"
	"github.com/kirsanium/openpvz/internal/token"
	"github.com/kirsanium/openpvz/internal/tzlookup"
)

// Button labels. They double as the match keys for main-menu replies.
const (
	BtnOpenOffice     = "Open office"
	BtnCloseOffice    = "Close office"
	BtnAddOffice      = "Add office"
	BtnOfficeSettings = "Office settings"
	BtnAddOperator    = "Add operator"
	BtnAddManager     = "Add manager"
	BtnDeleteOperator = "Delete operator"
	BtnDeleteOffice   = "Delete office"
	BtnOfficeReport   = "Download report"
	BtnPrevPage       = "⬅️ Back"
	BtnNextPage       = "Forward ➡️"
	BtnYes            = "Yes"
	BtnNo             = "No"
)

type Bot struct {
	API      *tgbotapi.BotAPI
	DB       *database.DB
	Sessions *session.Store
	Codec    *token.Codec
	TZ       *tzlookup.Resolver
	Name     string
}

func New(apiToken, botName string, db *database.DB, codec *token.Codec, tz *tzlookup.Resolver) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(apiToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	zap.L().Info("Authorized on account", zap.String("username", api.Self.UserName))

	return &Bot{
		API:      api,
		DB:       db,
		Sessions: session.NewStore(),
		Codec:    codec,
		TZ:       tz,
		Name:     botName,
	}, nil
}

func (b *Bot) SendMessage(chatID int64, text string, replyMarkup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyMarkup != nil {
		msg.ReplyMarkup = replyMarkup
	}

	_, err := b.API.Send(msg)
	return err
}

// SendDocument uploads a file attachment (reports) to a chat.
func (b *Bot) SendDocument(chatID int64, name string, data []byte, replyMarkup interface{}) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if replyMarkup != nil {
		doc.ReplyMarkup = replyMarkup
	}

	_, err := b.API.Send(doc)
	return err
}

// Notify delivers an owner alert with a short retry budget. It implements
// sweep.Notifier; callers treat failures as logged-and-forgotten.
func (b *Bot) Notify(chatID int64, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := b.SendMessage(chatID, text, nil); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Keyboard builders

func (b *Bot) MainMenuKeyboard(role models.UserRole) tgbotapi.ReplyKeyboardMarkup {
	switch role {
	case models.RoleSuperowner, models.RoleOwner:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnAddOffice),
				tgbotapi.NewKeyboardButton(BtnAddOperator),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnOfficeSettings),
				tgbotapi.NewKeyboardButton(BtnDeleteOperator),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnAddManager),
			),
		)
	case models.RoleManager:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnAddOperator),
				tgbotapi.NewKeyboardButton(BtnDeleteOperator),
			),
		)
	case models.RoleOperator:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(BtnOpenOffice),
				tgbotapi.NewKeyboardButton(BtnCloseOffice),
			),
		)
	}
	// unknown roles never reach the main menu
	return tgbotapi.NewReplyKeyboard()
}

func (b *Bot) YesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnYes),
			tgbotapi.NewKeyboardButton(BtnNo),
		),
	)
}

// PagedKeyboard renders one page of selectable items plus the navigation row
// derived from the page's affordance.
func (b *Bot) PagedKeyboard(page paging.Page) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, item := range page.Items {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(item)))
	}

	var nav []tgbotapi.KeyboardButton
	switch page.Nav {
	case paging.NavPrevOnly:
		nav = append(nav, tgbotapi.NewKeyboardButton(BtnPrevPage))
	case paging.NavNextOnly:
		nav = append(nav, tgbotapi.NewKeyboardButton(BtnNextPage))
	case paging.NavBoth:
		nav = append(nav,
			tgbotapi.NewKeyboardButton(BtnPrevPage),
			tgbotapi.NewKeyboardButton(BtnNextPage),
		)
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	return tgbotapi.NewReplyKeyboard(rows...)
}

func (b *Bot) OfficeSettingsKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnOfficeReport),
			tgbotapi.NewKeyboardButton(BtnDeleteOffice),
		),
	)
}
