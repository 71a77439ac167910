package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/splitly-bot/internal/calculator"
	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
)

// exportableSession returns the active session when it has a parsed receipt
// and at least one person. Otherwise the user is told why and ok is false.
func (b *Bot) exportableSession(ctx context.Context, tg TelegramAPI, chatID int64) (appmodels.ReceiptSession, bool) {
	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return s, false
	}
	if s.ParsedReceipt == nil {
		b.reply(ctx, tg, chatID, "The receipt hasn't been read yet.")
		return s, false
	}
	if len(s.People) == 0 {
		b.reply(ctx, tg, chatID, "Tell me who is splitting the bill first.")
		return s, false
	}
	return s, true
}

// sendFile uploads data as a document.
func (b *Bot) sendFile(ctx context.Context, tg TelegramAPI, chatID int64, filename string, data []byte, caption string) error {
	_, err := tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	return err
}

// handleExportCore sends the bill summary as CSV.
func (b *Bot) handleExportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.exportableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	csvData, err := GenerateSummaryCSV(billSummary(s))
	if err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to generate CSV")
		b.reply(ctx, tg, chatID, "❌ Failed to generate the export. Please try again.")
		return
	}

	caption := fmt.Sprintf("📄 <b>%s</b>", escapeHTML(s.Name))
	if err := b.sendFile(ctx, tg, chatID, summaryFilename(s.Name, "csv"), csvData, caption); err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to send CSV document")
		b.reply(ctx, tg, chatID, "❌ Failed to send the export. Please try again.")
	}
}

// handleChartCore sends a pie chart of what each person owes.
func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.exportableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	summary := billSummary(s)
	chartData, err := GenerateSummaryChart(summary, s.Name)
	if errors.Is(err, errNothingToChart) {
		b.reply(ctx, tg, chatID, "📊 Nobody owes anything yet. Assign some items first.")
		return
	}
	if err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to generate chart")
		b.reply(ctx, tg, chatID, "❌ Failed to generate chart. Please try again.")
		return
	}

	caption := fmt.Sprintf("📊 <b>%s</b>\n\nTotal: %s\nPeople: %d",
		escapeHTML(s.Name), formatMoney(calculator.GrandTotal(s.ParsedReceipt)), len(summary))
	if err := b.sendFile(ctx, tg, chatID, summaryFilename(s.Name, "png"), chartData, caption); err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to send chart document")
		b.reply(ctx, tg, chatID, "❌ Failed to send chart. Please try again.")
	}
}

// handleShareCore sends the plain-text summary as a .txt file.
func (b *Bot) handleShareCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.exportableSession(ctx, tg, chatID)
	if !ok {
		return
	}

	text := FormatSummaryText(billSummary(s), s.ParsedReceipt, s.Name)
	caption := fmt.Sprintf("🧾 Bill Summary for [%s]", escapeHTML(s.Name))
	if err := b.sendFile(ctx, tg, chatID, summaryFilename(s.Name, "txt"), []byte(text), caption); err != nil {
		logger.ForChat(chatID).Error().Err(err).Msg("Failed to send summary document")
		b.reply(ctx, tg, chatID, "❌ Failed to share the summary. Please try again.")
	}
}
