package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/session"
)

// resolveItem finds an item by 1-based position, id, exact name, or a
// name fragment that matches exactly one item. Names compare case-insensitively.
func resolveItem(receipt *appmodels.ParsedReceipt, ref string) (appmodels.ReceiptItem, bool) {
	ref = strings.TrimSpace(ref)
	if receipt == nil || ref == "" {
		return appmodels.ReceiptItem{}, false
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(receipt.Items) {
			return receipt.Items[n-1], true
		}
		return appmodels.ReceiptItem{}, false
	}

	if item, ok := receipt.FindItem(ref); ok {
		return item, true
	}

	for _, item := range receipt.Items {
		if strings.EqualFold(item.Name, ref) {
			return item, true
		}
	}

	var match appmodels.ReceiptItem
	matches := 0
	lower := strings.ToLower(ref)
	for _, item := range receipt.Items {
		if strings.Contains(strings.ToLower(item.Name), lower) {
			match = item
			matches++
		}
	}
	return match, matches == 1
}

// splitItemAndRest finds the longest run of leading words that names an item
// and returns it with the remaining text.
func splitItemAndRest(receipt *appmodels.ParsedReceipt, args string) (appmodels.ReceiptItem, string, bool) {
	fields := strings.Fields(args)
	for k := len(fields) - 1; k >= 1; k-- {
		if item, ok := resolveItem(receipt, strings.Join(fields[:k], " ")); ok {
			return item, strings.Join(fields[k:], " "), true
		}
	}
	return appmodels.ReceiptItem{}, "", false
}

// rosterNames maps each name to the roster's spelling. The first name not
// on the roster is returned as unknown.
func rosterNames(people, names []string) (resolved []string, unknown string) {
	for _, name := range names {
		p, ok := findPerson(people, name)
		if !ok {
			return nil, name
		}
		resolved = append(resolved, p)
	}
	return resolved, ""
}

// assignableSession returns the active session when it accepts assignment
// changes and has a receipt. Otherwise the user is told why.
func (b *Bot) assignableSession(ctx context.Context, tg TelegramAPI, chatID int64) (appmodels.ReceiptSession, bool) {
	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return s, false
	}
	if !session.AcceptsAssignmentChanges(s.Status) || s.ParsedReceipt == nil {
		b.reply(ctx, tg, chatID, blockedMessage(s))
		return s, false
	}
	return s, true
}

func (b *Bot) replyItemNotFound(ctx context.Context, tg TelegramAPI, chatID int64, ref string) {
	b.reply(ctx, tg, chatID, fmt.Sprintf("❌ I couldn't find an item matching %q. Use /items to see the list.", ref))
}

// handleAssignCore assigns one item to the named people.
// Usage: /assign <item> Alice, Bob
func (b *Bot) handleAssignCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.assignableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	args := commandArgs(update.Message.Text)
	item, rest, found := splitItemAndRest(s.ParsedReceipt, args)
	names := session.ParseNames(rest)
	if !found || len(names) == 0 {
		if args != "" && !found {
			b.replyItemNotFound(ctx, tg, chatID, args)
			return
		}
		b.replyHTML(ctx, tg, chatID, "❌ Usage: <code>/assign &lt;item&gt; Alice, Bob</code>")
		return
	}

	resolved, unknown := rosterNames(s.People, names)
	if unknown != "" {
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ %s isn't part of this split. Add them with /people first.", unknown))
		return
	}

	_, _ = b.dispatch(ctx, tg, chatID, session.DirectAssignment{SessionID: s.ID, ItemID: item.ID, Names: resolved})
}

// handleAssignRestCore gives every unassigned item to one person.
func (b *Bot) handleAssignRestCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.assignableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	name := commandArgs(update.Message.Text)
	if name == "" {
		b.replyHTML(ctx, tg, chatID, "❌ Usage: <code>/assignrest Alice</code>")
		return
	}
	person, found := findPerson(s.People, name)
	if !found {
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ %s isn't part of this split. Add them with /people first.", name))
		return
	}

	_, _ = b.dispatch(ctx, tg, chatID, session.AssignAllUnassigned{SessionID: s.ID, PersonName: person})
}

// handleSplitItemCore splits one item between everyone.
func (b *Bot) handleSplitItemCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.assignableSession(ctx, tg, chatID)
	if !ok {
		return
	}
	if len(s.People) == 0 {
		b.reply(ctx, tg, chatID, "Add some people first with /people.")
		return
	}

	ref := commandArgs(update.Message.Text)
	item, found := resolveItem(s.ParsedReceipt, ref)
	if !found {
		b.replyItemNotFound(ctx, tg, chatID, ref)
		return
	}

	_, _ = b.dispatch(ctx, tg, chatID, session.SplitItemEvenly{SessionID: s.ID, ItemID: item.ID})
}

// handleClearItemCore unassigns one item.
func (b *Bot) handleClearItemCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.assignableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	ref := commandArgs(update.Message.Text)
	item, found := resolveItem(s.ParsedReceipt, ref)
	if !found {
		b.replyItemNotFound(ctx, tg, chatID, ref)
		return
	}

	_, _ = b.dispatch(ctx, tg, chatID, session.ClearItemAssignment{SessionID: s.ID, ItemID: item.ID})
}

// parseQuantities reads "Name=N" pairs.
func parseQuantities(fields []string) (map[string]int, error) {
	out := make(map[string]int, len(fields))
	for _, f := range fields {
		name, countStr, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected Name=count, got %q", f)
		}
		n, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return nil, fmt.Errorf("invalid count for %s: %q", name, countStr)
		}
		out[name] += n
	}
	return out, nil
}

// handleQuantityCore splits an item by units.
// Usage: /qty <item> Alice=2 Bob=1, or /qty <item> clear
func (b *Bot) handleQuantityCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.assignableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	usage := "❌ Usage: <code>/qty &lt;item&gt; Alice=2 Bob=1</code> or <code>/qty &lt;item&gt; clear</code>"
	fields := strings.Fields(commandArgs(update.Message.Text))

	split := len(fields)
	for i, f := range fields {
		if strings.Contains(f, "=") {
			split = i
			break
		}
	}
	clearing := len(fields) > 1 && strings.EqualFold(fields[len(fields)-1], "clear")
	if clearing {
		split = len(fields) - 1
	}
	if split == 0 || (split == len(fields) && !clearing) {
		b.replyHTML(ctx, tg, chatID, usage)
		return
	}

	ref := strings.Join(fields[:split], " ")
	item, found := resolveItem(s.ParsedReceipt, ref)
	if !found {
		b.replyItemNotFound(ctx, tg, chatID, ref)
		return
	}

	if clearing {
		if len(s.QuantityAssignments[item.ID]) == 0 {
			b.reply(ctx, tg, chatID, fmt.Sprintf("%s isn't split by quantity.", item.Name))
			return
		}
		_, _ = b.dispatch(ctx, tg, chatID, session.SetQuantitySplit{SessionID: s.ID, ItemID: item.ID})
		return
	}

	raw, err := parseQuantities(fields[split:])
	if err != nil {
		b.reply(ctx, tg, chatID, "❌ "+err.Error())
		return
	}

	quantities := make(map[string]int, len(raw))
	for name, n := range raw {
		person, known := findPerson(s.People, name)
		if !known {
			b.reply(ctx, tg, chatID, fmt.Sprintf("❌ %s isn't part of this split. Add them with /people first.", name))
			return
		}
		quantities[person] += n
	}

	if err := session.ValidateQuantitySplit(item, quantities); err != nil {
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ %s (%s has %d).", err.Error(), item.Name, item.Quantity))
		return
	}

	_, _ = b.dispatch(ctx, tg, chatID, session.SetQuantitySplit{SessionID: s.ID, ItemID: item.ID, Quantities: quantities})
}
