package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/session"
)

// chatLock returns the mutex that serializes loads and state changes for one chat.
func (b *Bot) chatLock(chatID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.chatLocks[chatID]
	if !ok {
		l = new(sync.Mutex)
		b.chatLocks[chatID] = l
	}
	return l
}

func (b *Bot) cachedState(chatID int64) (models.AppState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.states[chatID]
	return state, ok
}

func (b *Bot) storeState(chatID int64, state models.AppState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[chatID] = state
}

// stateLocked returns the chat's state, loading it from the store on first
// use. The chat's lock must be held.
func (b *Bot) stateLocked(ctx context.Context, chatID int64) (models.AppState, error) {
	if state, ok := b.cachedState(chatID); ok {
		return state, nil
	}
	loaded, err := b.store.Load(ctx, chatID)
	if err != nil {
		return models.AppState{}, fmt.Errorf("failed to load chat state: %w", err)
	}
	state := session.Reduce(models.AppState{}, session.LoadSessions{State: loaded})
	b.storeState(chatID, state)
	return state, nil
}

// snapshot returns the current state of a chat.
func (b *Bot) snapshot(ctx context.Context, chatID int64) (models.AppState, error) {
	l := b.chatLock(chatID)
	l.Lock()
	defer l.Unlock()
	return b.stateLocked(ctx, chatID)
}

// activeSession returns the chat's active session. When there is none, or the
// state can't be loaded, the user is told and ok is false.
func (b *Bot) activeSession(ctx context.Context, tg TelegramAPI, chatID int64) (models.ReceiptSession, bool) {
	state, err := b.snapshot(ctx, chatID)
	if err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to load state")
		b.reply(ctx, tg, chatID, "❌ Something went wrong loading your receipts. Please try again.")
		return models.ReceiptSession{}, false
	}
	s, ok := session.Active(state)
	if !ok {
		if len(state.Sessions) > 0 {
			b.reply(ctx, tg, chatID, "No receipt is open. Pick one with /sessions or send a new photo.")
		} else {
			b.reply(ctx, tg, chatID, "📷 Send me a photo of a receipt to get started.")
		}
		return models.ReceiptSession{}, false
	}
	return s, true
}

// dispatch applies action to the chat's state, saves the result, and sends
// any bot or system messages the action added to its session's chat log.
func (b *Bot) dispatch(ctx context.Context, tg TelegramAPI, chatID int64, action session.Action) (models.AppState, error) {
	_, after, err := b.transition(ctx, tg, chatID, action)
	return after, err
}

// transition is dispatch returning the state the action was applied to as well.
// Callers that must know whether this action caused a change compare the two.
func (b *Bot) transition(
	ctx context.Context,
	tg TelegramAPI,
	chatID int64,
	action session.Action,
) (before, after models.AppState, err error) {
	l := b.chatLock(chatID)
	l.Lock()
	before, err = b.stateLocked(ctx, chatID)
	if err != nil {
		l.Unlock()
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to load state")
		return models.AppState{}, models.AppState{}, err
	}
	after = session.Reduce(before, action)
	b.storeState(chatID, after)
	saveErr := b.store.Save(ctx, chatID, after)
	l.Unlock()

	name := actionName(action)
	b.metrics.RecordAction(ctx, name)
	if saveErr != nil {
		logger.ForChat(chatID).Error().Err(saveErr).Str("action", name).Msg("Failed to save state")
	}

	for _, text := range outgoingMessages(before, after, action) {
		b.reply(ctx, tg, chatID, text)
	}
	return before, after, saveErr
}

// outgoingMessages lists the chat entries an action produced that should be
// sent to Telegram. User entries are skipped since the user already sent them.
// Entries from a session other than the active one are labelled with its name.
func outgoingMessages(before, after models.AppState, action session.Action) []string {
	var ids []string
	switch act := action.(type) {
	case session.SessionAction:
		ids = []string{act.TargetSession()}
	case session.AddSessions:
		for _, s := range act.Sessions {
			ids = append(ids, s.ID)
		}
	default:
		return nil
	}

	var out []string
	for _, id := range ids {
		next, ok := session.Find(after, id)
		if !ok {
			continue
		}
		prev, _ := session.Find(before, id)
		for _, msg := range session.NewChatMessages(prev, next) {
			if msg.Sender == models.SenderUser {
				continue
			}
			text := msg.Text
			if msg.Sender == models.SenderSystem {
				text = "ℹ️ " + text
			}
			if after.ActiveSessionID != id {
				text = fmt.Sprintf("[%s] %s", next.Name, text)
			}
			out = append(out, text)
		}
	}
	return out
}

// actionName is the action's type name without its package.
func actionName(action session.Action) string {
	name := fmt.Sprintf("%T", action)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// runAsync runs fn in the background. Wait blocks until it returns.
func (b *Bot) runAsync(fn func()) {
	b.tasks.Go(fn)
}

// answerCallback acknowledges a callback query, logging failures.
func (b *Bot) answerCallback(ctx context.Context, tg TelegramAPI, callbackID, text string) {
	_, err := tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to answer callback query")
	}
}
