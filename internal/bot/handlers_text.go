package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/splitly-bot/internal/gemini"
	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/session"
)

const pleaseWaitMsg = "⏳ Please wait, I'm still working on that."

// handleTextCore handles free text sent to the active session. What it means
// depends on the session's status: a list of names while awaiting names, an
// assignment instruction once ready.
func (b *Bot) handleTextCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}

	b.handleInstruction(ctx, tg, chatID, s, text)
}

// handleInstruction applies typed or transcribed text to a session.
func (b *Bot) handleInstruction(ctx context.Context, tg TelegramAPI, chatID int64, s appmodels.ReceiptSession, text string) {
	switch s.Status {
	case appmodels.StatusAwaitingNames:
		names := session.ParseNames(text)
		if len(names) == 0 {
			b.reply(ctx, tg, chatID, "Please enter at least one name, separated by commas (e.g., Alice, Bob, Charlie).")
			return
		}
		_, _ = b.dispatch(ctx, tg, chatID, session.SetPeople{SessionID: s.ID, Names: names, UserInput: text})

	case appmodels.StatusReady:
		b.requestAssignment(ctx, tg, chatID, s, text)

	case appmodels.StatusParsing, appmodels.StatusAssigning:
		b.reply(ctx, tg, chatID, pleaseWaitMsg)

	case appmodels.StatusError:
		b.reply(ctx, tg, chatID, "This receipt couldn't be read. Use /retry to try again, or send a new photo.")
	}
}

// requestAssignment sends a natural-language instruction to the assignment
// updater in the background.
func (b *Bot) requestAssignment(ctx context.Context, tg TelegramAPI, chatID int64, s appmodels.ReceiptSession, text string) {
	if b.ai == nil {
		b.reply(ctx, tg, chatID, "Natural-language assignment is not configured. Use /assign instead.")
		return
	}

	before, after, _ := b.transition(ctx, tg, chatID, session.SendMessageStart{SessionID: s.ID, Message: text})
	prev, ok := session.Find(before, s.ID)
	if !ok {
		return
	}
	started, ok := session.Find(after, s.ID)
	if !ok {
		return
	}
	// s may be stale. Only the request that moved the session out of ready
	// owns the pending call.
	if prev.Status != appmodels.StatusReady || started.Status != appmodels.StatusAssigning {
		b.reply(ctx, tg, chatID, blockedMessage(prev))
		return
	}

	var items []appmodels.ReceiptItem
	if started.ParsedReceipt != nil {
		items = started.ParsedReceipt.Items
	}
	current := started.Assignments.Clone()

	ctx = context.WithoutCancel(ctx)
	b.runAsync(func() {
		upd, err := b.ai.UpdateAssignments(ctx, text, items, current)
		if err != nil {
			logger.ForChat(chatID).Warn().Err(err).Str("session", s.ID).Msg("Failed to update assignments")
			_, _ = b.dispatch(ctx, tg, chatID, session.SendMessageFailed{SessionID: s.ID, Message: assignmentErrorMessage(err)})
			return
		}
		_, _ = b.dispatch(ctx, tg, chatID, session.SendMessageSucceeded{SessionID: s.ID, Update: *upd})
	})
}

// assignmentErrorMessage is the text shown in the chat when an assignment request fails.
func assignmentErrorMessage(err error) string {
	switch {
	case errors.Is(err, gemini.ErrInvalidAssignmentResponse):
		return err.Error()
	case errors.Is(err, gemini.ErrAssignmentTimeout):
		return "That took too long. Please try again."
	default:
		return "Sorry, I couldn't update the assignments. Please try again."
	}
}
