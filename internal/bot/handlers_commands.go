package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/session"
)

// commandArgs strips the leading /command (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		return strings.TrimSpace(text[i:])
	}
	return ""
}

// formatGreeting returns a greeting suffix with the user's name.
func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

// handleStartCore handles the /start command.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 Welcome%s!

I help groups split a restaurant bill.

<b>Quick Start:</b>
• Send a photo of the receipt
• Tell me who is splitting: <code>Alice, Bob, Charlie</code>
• Say who had what: <code>Alice and Bob shared the nachos</code>
• Check the result with /summary

Use /help to see all available commands.`,
		formatGreeting(firstName))

	logger.Log.Debug().Str("chat", logger.HashChatID(update.Message.Chat.ID)).Msg("Sending /start response")
	b.replyHTML(ctx, tg, update.Message.Chat.ID, text)
}

const helpText = `📚 <b>Available Commands</b>

<b>Receipts:</b>
• Send a receipt photo (or image file) to start a new split
• <code>/retry</code> - Read the current receipt again
• <code>/sessions</code> - Switch between or delete receipts
• <code>/title &lt;name&gt;</code> - Rename the current receipt
• <code>/home</code> - Close the current receipt
• <code>/reset</code> - Delete every receipt

<b>People:</b>
• <code>/people Alice, Bob</code> - Add people to the split
• <code>/rename Old &gt; New</code> - Rename a person

<b>Assigning:</b>
• Just describe it: <code>Bob had the burger, everyone shared the fries</code>
• <code>/assign &lt;item&gt; Alice, Bob</code> - Assign an item directly
• <code>/assignrest &lt;name&gt;</code> - Give every unassigned item to one person
• <code>/splitall</code> - Split every item between everyone
• <code>/splititem &lt;item&gt;</code> - Split one item between everyone
• <code>/clearitem &lt;item&gt;</code> - Unassign an item
• <code>/qty &lt;item&gt; Alice=2 Bob=1</code> - Split an item by units (<code>clear</code> to remove)
• <code>/undo</code> - Undo the last assignment change

<b>Editing the receipt:</b>
• <code>/items</code> - Show items and who has them
• <code>/additem 4.50 x2 Soda</code> - Add a line
• <code>/edititem &lt;item&gt; 12.00 New name</code> - Change a line
• <code>/removeitem &lt;item&gt;</code> - Remove a line
• <code>/totals &lt;subtotal&gt; &lt;tax&gt; &lt;tip&gt;</code> - Correct the receipt totals

<b>Results:</b>
• <code>/summary</code> - Show what everyone owes
• <code>/share</code> - Download the summary as text
• <code>/export</code> - Download the summary as CSV
• <code>/chart</code> - Pie chart of who owes what
• <code>/clearchat</code> - Clear the conversation log

Items can be referred to by number (from /items), id, or name.`

// handleHelpCore handles the /help command.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	b.replyHTML(ctx, tg, update.Message.Chat.ID, helpText)
}

// handleItemsCore shows the active receipt's items.
func (b *Bot) handleItemsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}
	if s.ParsedReceipt == nil {
		b.reply(ctx, tg, chatID, statusMessage(s))
		return
	}
	b.replyHTML(ctx, tg, chatID, formatItemsHTML(s))
}

// handleSummaryCore shows what each person owes.
func (b *Bot) handleSummaryCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}
	if s.ParsedReceipt == nil {
		b.reply(ctx, tg, chatID, statusMessage(s))
		return
	}
	b.replyHTML(ctx, tg, chatID, formatSummaryHTML(s))
}

// statusMessage explains why a session has nothing to show yet.
func statusMessage(s appmodels.ReceiptSession) string {
	switch s.Status {
	case appmodels.StatusParsing:
		return "⏳ Still reading the receipt..."
	case appmodels.StatusError:
		return "This receipt couldn't be read. Use /retry to try again."
	default:
		return "The receipt hasn't been read yet."
	}
}

// handlePeopleCore adds people to the split.
func (b *Bot) handlePeopleCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}

	args := commandArgs(update.Message.Text)
	if args == "" {
		if len(s.People) == 0 {
			b.replyHTML(ctx, tg, chatID, "Nobody yet.\n\nUsage: <code>/people Alice, Bob, Charlie</code>")
			return
		}
		b.replyHTML(ctx, tg, chatID, "👥 "+escapeHTML(strings.Join(s.People, ", ")))
		return
	}

	if s.Status != appmodels.StatusAwaitingNames && s.Status != appmodels.StatusReady {
		b.reply(ctx, tg, chatID, blockedMessage(s))
		return
	}

	names := session.ParseNames(args)
	if len(names) == 0 {
		b.reply(ctx, tg, chatID, "Please enter at least one name, separated by commas.")
		return
	}
	_, _ = b.dispatch(ctx, tg, chatID, session.SetPeople{SessionID: s.ID, Names: names, UserInput: args})
}

// blockedMessage explains why assignments can't be changed right now.
func blockedMessage(s appmodels.ReceiptSession) string {
	switch s.Status {
	case appmodels.StatusParsing, appmodels.StatusAssigning:
		return pleaseWaitMsg
	case appmodels.StatusAwaitingNames:
		return "Tell me who is splitting the bill first (e.g., Alice, Bob, Charlie)."
	case appmodels.StatusError:
		return "This receipt couldn't be read. Use /retry to try again."
	default:
		return "That can't be done right now."
	}
}

// handleUndoCore restores the previous assignments.
func (b *Bot) handleUndoCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}
	if !session.AcceptsAssignmentChanges(s.Status) {
		b.reply(ctx, tg, chatID, blockedMessage(s))
		return
	}
	if !session.CanUndo(s) {
		b.reply(ctx, tg, chatID, "Nothing to undo.")
		return
	}
	_, _ = b.dispatch(ctx, tg, chatID, session.UndoLastAssignment{SessionID: s.ID})
}

// handleSplitAllCore splits every item between everyone.
func (b *Bot) handleSplitAllCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}
	if !session.AcceptsAssignmentChanges(s.Status) {
		b.reply(ctx, tg, chatID, blockedMessage(s))
		return
	}
	if len(s.People) == 0 {
		b.reply(ctx, tg, chatID, "Add some people first with /people.")
		return
	}
	_, _ = b.dispatch(ctx, tg, chatID, session.SplitAllEqually{SessionID: s.ID})
}

// handleClearChatCore resets the conversation log.
func (b *Bot) handleClearChatCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}
	before := len(s.ChatHistory)
	_, _ = b.dispatch(ctx, tg, chatID, session.ClearChatHistory{SessionID: s.ID})
	if before == 1 && s.ChatHistory[0].Text == session.MsgChatCleared {
		b.reply(ctx, tg, chatID, "ℹ️ "+session.MsgChatCleared)
	}
}

// handleTitleCore renames the active receipt.
func (b *Bot) handleTitleCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}

	name := commandArgs(update.Message.Text)
	if name == "" {
		b.replyHTML(ctx, tg, chatID, "❌ Please provide a name.\n\nUsage: <code>/title Friday dinner</code>")
		return
	}

	if _, err := b.dispatch(ctx, tg, chatID, session.RenameSession{SessionID: s.ID, Name: name}); err != nil {
		b.reply(ctx, tg, chatID, "❌ Failed to rename the receipt. Please try again.")
		return
	}
	b.replyHTML(ctx, tg, chatID, fmt.Sprintf("✅ Receipt renamed to <b>%s</b>.", escapeHTML(name)))
}

// handleRenamePersonCore relabels a person everywhere in the active receipt.
// Usage: /rename Old > New
func (b *Bot) handleRenamePersonCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}

	oldRaw, newRaw, found := strings.Cut(commandArgs(update.Message.Text), ">")
	if !found || strings.TrimSpace(oldRaw) == "" {
		b.replyHTML(ctx, tg, chatID, "❌ Please use the format:\n<code>/rename Old Name &gt; New Name</code>")
		return
	}

	oldName, ok := findPerson(s.People, strings.TrimSpace(oldRaw))
	if !ok {
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ %s isn't part of this split.", strings.TrimSpace(oldRaw)))
		return
	}

	newName, err := session.ValidateNewPersonName(s.People, oldName, newRaw)
	switch {
	case errors.Is(err, session.ErrNameUnchanged):
		b.reply(ctx, tg, chatID, "That's already their name.")
		return
	case errors.Is(err, session.ErrEmptyName):
		b.reply(ctx, tg, chatID, "❌ The new name can't be empty.")
		return
	case errors.Is(err, session.ErrDuplicateName):
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ %s is already part of this split.", strings.TrimSpace(newRaw)))
		return
	case err != nil:
		b.reply(ctx, tg, chatID, "❌ "+err.Error())
		return
	}

	if _, err := b.dispatch(ctx, tg, chatID, session.EditPersonName{SessionID: s.ID, OldName: oldName, NewName: newName}); err != nil {
		b.reply(ctx, tg, chatID, "❌ Failed to rename. Please try again.")
		return
	}
	b.replyHTML(ctx, tg, chatID, fmt.Sprintf("✅ Renamed <b>%s</b> to <b>%s</b>.", escapeHTML(oldName), escapeHTML(newName)))
}

// findPerson matches name against the roster case-insensitively and returns
// the roster's spelling.
func findPerson(people []string, name string) (string, bool) {
	for _, p := range people {
		if strings.EqualFold(p, name) {
			return p, true
		}
	}
	return "", false
}

// handleHomeCore closes the active receipt without deleting it.
func (b *Bot) handleHomeCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if _, err := b.dispatch(ctx, tg, chatID, session.GoHome{}); err != nil {
		b.reply(ctx, tg, chatID, "❌ Something went wrong. Please try again.")
		return
	}
	b.reply(ctx, tg, chatID, "🏠 Receipt closed. Send a new photo or pick one with /sessions.")
}

// handleResetCore deletes every receipt in the chat.
func (b *Bot) handleResetCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if _, err := b.dispatch(ctx, tg, chatID, session.ResetApp{}); err != nil {
		b.reply(ctx, tg, chatID, "❌ Something went wrong. Please try again.")
		return
	}
	logger.ForChat(chatID).Info().Msg("Chat state reset")
	b.reply(ctx, tg, chatID, "🗑 All receipts deleted. Send a photo to start again.")
}
