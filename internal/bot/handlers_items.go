package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/session"
)

// maxItemNameLength bounds names typed into /additem and /edititem.
const maxItemNameLength = 100

var errInvalidPrice = errors.New("invalid price")

// parsePrice reads a non-negative amount such as "12", "4.5" or "$1,200.00",
// rounded to cents.
func parsePrice(s string) (float64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, fmt.Errorf("%w: %q", errInvalidPrice, s)
	}
	return d.Round(2).InexactFloat64(), nil
}

// editableSession returns the active session when it has a receipt to edit.
func (b *Bot) editableSession(ctx context.Context, tg TelegramAPI, chatID int64) (appmodels.ReceiptSession, bool) {
	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return s, false
	}
	if s.ParsedReceipt == nil {
		b.reply(ctx, tg, chatID, statusMessage(s))
		return s, false
	}
	return s, true
}

// validItemName trims name and checks its length and characters.
func validItemName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxItemNameLength || strings.ContainsAny(name, "\n\r\t") {
		return "", false
	}
	return name, true
}

// handleEditItemCore changes an item's price and optionally its name.
// Usage: /edititem <item> <price> [new name]
func (b *Bot) handleEditItemCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.editableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	fields := strings.Fields(commandArgs(update.Message.Text))
	var (
		item  appmodels.ReceiptItem
		price float64
		rest  string
		found bool
	)
	for k := 1; k < len(fields); k++ {
		it, ok := resolveItem(s.ParsedReceipt, strings.Join(fields[:k], " "))
		if !ok {
			continue
		}
		p, err := parsePrice(fields[k])
		if err != nil {
			continue
		}
		item, price, rest, found = it, p, strings.Join(fields[k+1:], " "), true
		break
	}
	if !found {
		b.replyHTML(ctx, tg, chatID, "❌ Usage: <code>/edititem &lt;item&gt; &lt;price&gt; [new name]</code>")
		return
	}

	name := item.Name
	if rest != "" {
		valid, ok := validItemName(rest)
		if !ok {
			b.reply(ctx, tg, chatID, fmt.Sprintf("❌ Item names must be 1-%d characters on one line.", maxItemNameLength))
			return
		}
		name = valid
	}

	if _, err := b.dispatch(ctx, tg, chatID, session.EditItem{SessionID: s.ID, ItemID: item.ID, Name: name, Price: price}); err != nil {
		b.reply(ctx, tg, chatID, "❌ Failed to save the change. Please try again.")
		return
	}
	b.replyHTML(ctx, tg, chatID, fmt.Sprintf("✅ Updated <b>%s</b>: %s", escapeHTML(name), formatMoney(price)))
}

// handleTotalsCore overwrites the receipt totals. Values left off keep their
// current amount.
// Usage: /totals <subtotal> [tax] [tip]
func (b *Bot) handleTotalsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.editableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	fields := strings.Fields(commandArgs(update.Message.Text))
	if len(fields) == 0 || len(fields) > 3 {
		r := s.ParsedReceipt
		b.replyHTML(ctx, tg, chatID, fmt.Sprintf(
			"Subtotal: %s\nTax: %s\nTip: %s\n\nUsage: <code>/totals &lt;subtotal&gt; [tax] [tip]</code>",
			formatMoney(r.Subtotal), formatMoney(r.Tax), formatMoney(r.Tip)))
		return
	}

	values := []float64{s.ParsedReceipt.Subtotal, s.ParsedReceipt.Tax, s.ParsedReceipt.Tip}
	for i, f := range fields {
		v, err := parsePrice(f)
		if err != nil {
			b.reply(ctx, tg, chatID, fmt.Sprintf("❌ %q isn't a valid amount.", f))
			return
		}
		values[i] = v
	}

	act := session.EditTotals{SessionID: s.ID, Subtotal: values[0], Tax: values[1], Tip: values[2]}
	if _, err := b.dispatch(ctx, tg, chatID, act); err != nil {
		b.reply(ctx, tg, chatID, "❌ Failed to save the change. Please try again.")
		return
	}
	b.reply(ctx, tg, chatID, fmt.Sprintf("✅ Totals updated. Subtotal: %s, Tax: %s, Tip: %s, Total: %s",
		formatMoney(act.Subtotal), formatMoney(act.Tax), formatMoney(act.Tip),
		formatMoney(act.Subtotal+act.Tax+act.Tip)))
}

// handleAddItemCore appends a line to the receipt.
// Usage: /additem <price> [xQty] <name>
func (b *Bot) handleAddItemCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.editableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	usage := "❌ Usage: <code>/additem 4.50 x2 Soda</code>"
	fields := strings.Fields(commandArgs(update.Message.Text))
	if len(fields) < 2 {
		b.replyHTML(ctx, tg, chatID, usage)
		return
	}

	price, err := parsePrice(fields[0])
	if err != nil {
		b.replyHTML(ctx, tg, chatID, usage)
		return
	}

	quantity := 1
	rest := fields[1:]
	if q, ok := parseQuantityToken(rest[0]); ok && len(rest) > 1 {
		quantity = q
		rest = rest[1:]
	}

	name, ok := validItemName(strings.Join(rest, " "))
	if !ok {
		b.reply(ctx, tg, chatID, fmt.Sprintf("❌ Item names must be 1-%d characters on one line.", maxItemNameLength))
		return
	}

	_, _ = b.dispatch(ctx, tg, chatID, session.AddItem{SessionID: s.ID, Name: name, Price: price, Quantity: quantity})
}

// parseQuantityToken reads "x2" or "2x".
func parseQuantityToken(tok string) (int, bool) {
	lower := strings.ToLower(tok)
	var digits string
	switch {
	case strings.HasPrefix(lower, "x"):
		digits = lower[1:]
	case strings.HasSuffix(lower, "x"):
		digits = lower[:len(lower)-1]
	default:
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// handleRemoveItemCore deletes a line from the receipt.
func (b *Bot) handleRemoveItemCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.editableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	ref := commandArgs(update.Message.Text)
	item, found := resolveItem(s.ParsedReceipt, ref)
	if !found {
		b.replyItemNotFound(ctx, tg, chatID, ref)
		return
	}

	_, _ = b.dispatch(ctx, tg, chatID, session.RemoveItem{SessionID: s.ID, ItemID: item.ID})
}
