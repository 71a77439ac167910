package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/session"
)

const (
	callbackSessionPrefix = "session_"
	callbackOpenFmt       = callbackSessionPrefix + "open_%s"
	callbackDeleteFmt     = callbackSessionPrefix + "delete_%s"
	callbackOpen          = "open"
	callbackDelete        = "delete"
	noSessionsMsg         = "📭 No receipts yet. Send me a photo of a receipt to get started."
)

// statusLabel is a short description of a session's status.
func statusLabel(status appmodels.Status) string {
	switch status {
	case appmodels.StatusParsing:
		return "reading"
	case appmodels.StatusAwaitingNames:
		return "needs names"
	case appmodels.StatusReady:
		return "ready"
	case appmodels.StatusAssigning:
		return "working"
	case appmodels.StatusError:
		return "error"
	default:
		return string(status)
	}
}

// sessionsView renders the session list and its keyboard.
func sessionsView(state appmodels.AppState) (string, *models.InlineKeyboardMarkup) {
	if len(state.Sessions) == 0 {
		return noSessionsMsg, nil
	}

	var sb strings.Builder
	sb.WriteString("🗂 <b>Your receipts</b>\n\n")
	rows := make([][]models.InlineKeyboardButton, 0, len(state.Sessions))
	for i, s := range state.Sessions {
		marker := ""
		if s.ID == state.ActiveSessionID {
			marker = " ⬅️ open"
		}
		fmt.Fprintf(&sb, "%d. %s (%s)%s\n", i+1, escapeHTML(s.Name), statusLabel(s.Status), marker)

		rows = append(rows, []models.InlineKeyboardButton{
			{Text: fmt.Sprintf("📂 %d. %s", i+1, s.Name), CallbackData: fmt.Sprintf(callbackOpenFmt, s.ID)},
			{Text: "🗑", CallbackData: fmt.Sprintf(callbackDeleteFmt, s.ID)},
		})
	}
	return sb.String(), &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// handleSessionsCore lists the chat's receipts with open and delete buttons.
func (b *Bot) handleSessionsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	state, err := b.snapshot(ctx, chatID)
	if err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to load state")
		b.reply(ctx, tg, chatID, "❌ Something went wrong loading your receipts. Please try again.")
		return
	}

	text, keyboard := sessionsView(state)
	params := &bot.SendMessageParams{ChatID: chatID, Text: text, ParseMode: models.ParseModeHTML}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if _, err := tg.SendMessage(ctx, params); err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to send /sessions response")
	}
}

// parseSessionCallback splits "session_<verb>_<id>".
func parseSessionCallback(data string) (verb, id string, ok bool) {
	rest, found := strings.CutPrefix(data, callbackSessionPrefix)
	if !found {
		return "", "", false
	}
	verb, id, found = strings.Cut(rest, "_")
	if !found || id == "" || (verb != callbackOpen && verb != callbackDelete) {
		return "", "", false
	}
	return verb, id, true
}

// handleSessionCallbackCore handles the open and delete buttons from /sessions.
func (b *Bot) handleSessionCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil || cq.Message.Message == nil {
		return
	}
	chatID := cq.Message.Message.Chat.ID
	messageID := cq.Message.Message.ID

	verb, id, ok := parseSessionCallback(cq.Data)
	if !ok {
		b.answerCallback(ctx, tg, cq.ID, "")
		return
	}

	state, err := b.snapshot(ctx, chatID)
	if err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to load state")
		b.answerCallback(ctx, tg, cq.ID, "Something went wrong")
		return
	}
	target, exists := session.Find(state, id)
	if !exists {
		b.answerCallback(ctx, tg, cq.ID, "That receipt no longer exists")
		b.editSessionsMessage(ctx, tg, chatID, messageID, state)
		return
	}

	var action session.Action = session.SwitchSession{SessionID: id}
	answer := "Opened " + target.Name
	if verb == callbackDelete {
		action = session.DeleteSession{SessionID: id}
		answer = "Deleted " + target.Name
	}

	after, err := b.dispatch(ctx, tg, chatID, action)
	if err != nil {
		b.answerCallback(ctx, tg, cq.ID, "Something went wrong")
		return
	}
	b.answerCallback(ctx, tg, cq.ID, answer)
	b.editSessionsMessage(ctx, tg, chatID, messageID, after)

	if verb == callbackOpen {
		if target.ParsedReceipt != nil {
			b.replyHTML(ctx, tg, chatID, formatItemsHTML(target))
		} else {
			b.reply(ctx, tg, chatID, statusMessage(target))
		}
	}
}

// editSessionsMessage redraws a /sessions message for the given state.
func (b *Bot) editSessionsMessage(ctx context.Context, tg TelegramAPI, chatID int64, messageID int, state appmodels.AppState) {
	text, keyboard := sessionsView(state)
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if _, err := tg.EditMessageText(ctx, params); err != nil {
		logger.ForChat(chatID).Warn().Err(err).Msg("Failed to update sessions message")
	}
}
