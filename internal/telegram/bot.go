package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"recipe-planner/internal/app"
	"recipe-planner/internal/config"
	"recipe-planner/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleTimeout bounds the work done for one update. A refresh may retry
// timed-out fetches, so it is well above the request timeout.
const handleTimeout = 90 * time.Second

// Sender is the part of the Telegram API the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the Telegram front end of the coordinator.
type Bot struct {
	api     Sender
	coord   *app.Coordinator
	metrics *metrics.Store
	cfg     *config.Config
	logger  *zap.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// NewBot initializes the Telegram API and sets the webhook. metricsStore may
// be nil.
func NewBot(cfg *config.Config, coord *app.Coordinator, metricsStore *metrics.Store, logger *zap.Logger) (*Bot, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("response", resp.Description))

	return newBot(api, cfg, coord, metricsStore, logger), nil
}

func newBot(api Sender, cfg *config.Config, coord *app.Coordinator, metricsStore *metrics.Store, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:     api,
		coord:   coord,
		metrics: metricsStore,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", b.handleHealth)
}

// Wait blocks until every update being handled is done.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := "healthy"
	if !b.coord.APIHealthy() {
		status = "degraded"
	}
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		b.handleUpdate(ctx, update)
	}()
}

func (b *Bot) allowed(user *tgbotapi.User) bool {
	if user == nil {
		return false
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if user.ID == id {
			return true
		}
	}
	b.logger.Warn("unauthorized access attempt",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.UserName),
	)
	return false
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if !b.allowed(q.From) || q.Message == nil {
			return
		}
		r := b.handleCallback(ctx, q.Data)
		if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, r.notice)); err != nil {
			b.logger.Warn("failed to answer callback", zap.Error(err))
		}
		b.reply(q.Message.Chat.ID, r)
	case update.Message != nil:
		if !b.allowed(update.Message.From) {
			return
		}
		b.reply(update.Message.Chat.ID, b.handleMessage(ctx, update.Message))
	}
}

// reply is the answer to one update.
type reply struct {
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
	// notice is shown as a toast when answering a callback.
	notice string
}

func (b *Bot) reply(chatID int64, r reply) {
	if r.text == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, r.text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if r.keyboard != nil {
		msg.ReplyMarkup = *r.keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
