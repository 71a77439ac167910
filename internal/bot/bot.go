// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"gitlab.com/yelinaung/splitly-bot/internal/config"
	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/repository"
	"gitlab.com/yelinaung/splitly-bot/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ReceiptParser turns a receipt image into structured data.
type ReceiptParser interface {
	ParseReceipt(ctx context.Context, imageBytes []byte, mimeType string) (*models.ParsedReceipt, error)
}

// AssignmentUpdater applies a natural-language instruction to assignments.
type AssignmentUpdater interface {
	UpdateAssignments(
		ctx context.Context,
		instruction string,
		items []models.ReceiptItem,
		current models.Assignments,
	) (*models.AssignmentUpdate, error)
}

// VoiceTranscriber turns a voice message into a text instruction.
type VoiceTranscriber interface {
	TranscribeInstruction(ctx context.Context, audioBytes []byte, mimeType string) (string, error)
}

// AIClient is the external model the bot relies on. *gemini.Client implements it.
type AIClient interface {
	ReceiptParser
	AssignmentUpdater
	VoiceTranscriber
}

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot        *bot.Bot
	cfg        *config.Config
	store      repository.StateStore
	ai         AIClient
	metrics    *telemetry.Metrics
	httpClient *http.Client

	// mu guards states and chatLocks. A chat's lock is held across its
	// load, reduce and save.
	mu        sync.Mutex
	states    map[int64]models.AppState
	chatLocks map[int64]*sync.Mutex

	// tasks tracks in-flight receipt parses and assignment updates.
	tasks sync.WaitGroup

	newID func() string
	now   func() time.Time
}

// New creates a new Bot instance.
func New(cfg *config.Config, store repository.StateStore, ai AIClient, metrics *telemetry.Metrics) (*Bot, error) {
	b := newBot(cfg, store, ai, metrics)

	opts := []bot.Option{
		bot.WithMiddlewares(b.whitelistMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, store repository.StateStore, ai AIClient, metrics *telemetry.Metrics) *Bot {
	return &Bot{
		cfg:     cfg,
		store:   store,
		ai:      ai,
		metrics: metrics,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		states:    make(map[int64]models.AppState),
		chatLocks: make(map[int64]*sync.Mutex),
		newID:     func() string { return "session-" + uuid.NewString() },
		now:       time.Now,
	}
}

// Start begins polling for updates and returns once ctx is done and every
// in-flight background call has finished.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
	b.Wait()
}

// Wait blocks until background parses and assignment updates have finished.
func (b *Bot) Wait() {
	b.tasks.Wait()
}

// registerHandlers sets up command and callback handlers.
func (b *Bot) registerHandlers() {
	for command, handler := range b.commands() {
		b.bot.RegisterHandlerMatchFunc(matchCommand(command), wrap(handler))
	}
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackSessionPrefix, bot.MatchTypePrefix, wrap(b.handleSessionCallbackCore))
}

// coreHandler is the testable shape of every handler.
type coreHandler func(ctx context.Context, tg TelegramAPI, update *tgmodels.Update)

func wrap(h coreHandler) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		h(ctx, tgBot, update)
	}
}

// commands maps each command to its handler.
func (b *Bot) commands() map[string]coreHandler {
	return map[string]coreHandler{
		"/start":      b.handleStartCore,
		"/help":       b.handleHelpCore,
		"/items":      b.handleItemsCore,
		"/summary":    b.handleSummaryCore,
		"/people":     b.handlePeopleCore,
		"/assign":     b.handleAssignCore,
		"/assignrest": b.handleAssignRestCore,
		"/splitall":   b.handleSplitAllCore,
		"/splititem":  b.handleSplitItemCore,
		"/clearitem":  b.handleClearItemCore,
		"/qty":        b.handleQuantityCore,
		"/undo":       b.handleUndoCore,
		"/rename":     b.handleRenamePersonCore,
		"/title":      b.handleTitleCore,
		"/edititem":   b.handleEditItemCore,
		"/totals":     b.handleTotalsCore,
		"/additem":    b.handleAddItemCore,
		"/removeitem": b.handleRemoveItemCore,
		"/clearchat":  b.handleClearChatCore,
		"/retry":      b.handleRetryCore,
		"/sessions":   b.handleSessionsCore,
		"/home":       b.handleHomeCore,
		"/reset":      b.handleResetCore,
		"/export":     b.handleExportCore,
		"/chart":      b.handleChartCore,
		"/share":      b.handleShareCore,
	}
}

// commandName returns the lowercased leading /command of text with any
// @botname suffix removed, or "" when text is not a command.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name)
}

func matchCommand(command string) bot.MatchFunc {
	return func(update *tgmodels.Update) bool {
		return update.Message != nil && commandName(update.Message.Text) == command
	}
}

// whitelistMiddleware checks if the user is whitelisted before processing.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if !b.allowUpdate(ctx, tgBot, update) {
			return
		}
		next(ctx, tgBot, update)
	}
}

// allowUpdate reports whether the update comes from a whitelisted user,
// telling blocked users so.
func (b *Bot) allowUpdate(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) bool {
	userID := extractUserID(update)
	if userID == 0 {
		return false
	}

	username := extractUsername(update)
	logUserAction(userID, update)

	if b.cfg.IsUserWhitelisted(userID, username) {
		return true
	}

	logger.Log.Warn().
		Str("user", logger.HashUserID(userID)).
		Msg("Blocked non-whitelisted user")
	switch {
	case update.Message != nil:
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "⛔ Sorry, you are not authorized to use this bot.",
		})
	case update.CallbackQuery != nil:
		_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            "Not authorized",
		})
	}
	return false
}

// logUserAction logs the shape of the user's input without its content.
func logUserAction(userID int64, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user", logger.HashUserID(userID)).
			Str("chat", logger.HashChatID(msg.Chat.ID))

		if cmd := commandName(msg.Text); cmd != "" {
			event = event.Str("command", cmd)
		} else if msg.Text != "" {
			event = event.Str("text", logger.RedactText(msg.Text))
		}
		if len(msg.Photo) > 0 {
			event = event.Str("type", "photo")
		}
		if msg.Document != nil {
			event = event.Str("type", "document").Str("mime", msg.Document.MimeType)
		}
		if msg.Voice != nil {
			event = event.Str("type", "voice").Int("duration", msg.Voice.Duration)
		}

		event.Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user", logger.HashUserID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	return ""
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// defaultHandler handles receipts and free text.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.routeCore(ctx, tgBot, update)
}

// routeCore sends an update that matched no command to the right handler.
func (b *Bot) routeCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	msg := update.Message
	switch {
	case len(msg.Photo) > 0:
		b.handlePhotoCore(ctx, tg, update)
	case msg.Document != nil:
		b.handleDocumentCore(ctx, tg, update)
	case msg.Voice != nil:
		b.handleVoiceCore(ctx, tg, update)
	case commandName(msg.Text) != "":
		if h, ok := b.commands()[commandName(msg.Text)]; ok {
			h(ctx, tg, update)
			return
		}
		b.reply(ctx, tg, msg.Chat.ID, "I don't know that command. Use /help to see what I can do.")
	case strings.TrimSpace(msg.Text) != "":
		b.handleTextCore(ctx, tg, update)
	}
}

// reply sends a plain-text message, logging failures.
func (b *Bot) reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	if _, err := tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to send message")
	}
}

// replyHTML sends an HTML-formatted message, logging failures.
func (b *Bot) replyHTML(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to send message")
	}
}
