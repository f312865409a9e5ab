package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kirsanium/openpvz/internal/bot"
	"github.com/kirsanium/openpvz/internal/database"
	"github.com/kirsanium/openpvz/internal/handlers"
	"github.com/kirsanium/openpvz/internal/sweep"
	"github.com/kirsanium/openpvz/internal/token"
	"github.com/kirsanium/openpvz/internal/tzlookup"
	"github.com/kirsanium/openpvz/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	// Logger config from env (LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT)
	loggerConfig := &logger.Config{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
		Output: getEnv("LOG_OUTPUT", "stdout"),
	}
	zapLogger, err := logger.New(loggerConfig, logger.DefaultServiceName)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()
	zap.ReplaceGlobals(zapLogger)

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		zap.L().Fatal("BOT_TOKEN is required")
	}

	botName := os.Getenv("BOT_NAME")
	if botName == "" {
		zap.L().Fatal("BOT_NAME is required")
	}

	authSecret := os.Getenv("AUTH_SECRET_KEY")
	if authSecret == "" {
		zap.L().Fatal("AUTH_SECRET_KEY is required")
	}

	grace, err := time.ParseDuration(getEnv("GRACE_WINDOW", "15m"))
	if err != nil {
		zap.L().Fatal("Invalid GRACE_WINDOW", zap.Error(err))
	}
	handlers.Grace = grace

	sweepInterval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "1m"))
	if err != nil {
		zap.L().Fatal("Invalid SWEEP_INTERVAL", zap.Error(err))
	}

	dbConfig := database.Config{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
	}

	db, err := database.New(dbConfig)
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	zap.L().Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		zap.L().Fatal("Failed to run migrations", zap.Error(err))
	}

	codec := token.NewCodec(authSecret)
	tz := tzlookup.NewResolver(getEnv("DEFAULT_TIMEZONE", "Europe/Moscow"))

	b, err := bot.New(botToken, botName, db, codec, tz)
	if err != nil {
		zap.L().Fatal("Failed to create bot", zap.Error(err))
	}

	zap.L().Info("Bot started successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := sweep.New(db, b, grace, sweepInterval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweeper.Run(ctx)
	})
	g.Go(func() error {
		runUpdates(ctx, b)
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		zap.L().Fatal("Bot stopped", zap.Error(err))
	}
	zap.L().Info("Shutting down")
}

func runUpdates(ctx context.Context, b *bot.Bot) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.API.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if update.Message.IsCommand() {
				switch update.Message.Command() {
				case "start":
					handlers.HandleStart(b, update.Message)
				default:
					_ = b.SendMessage(update.Message.Chat.ID,
						"Unknown command. Use /start.", nil)
				}
			} else {
				handlers.HandleMessage(b, update.Message)
			}
		}
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
