package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/splitly-bot/internal/gemini"
	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/session"
)

const defaultImageMIME = "image/jpeg"

// imageRef packs a Telegram file ID and its MIME type into a session's image reference.
func imageRef(fileID, mimeType string) string {
	return fileID + "|" + mimeType
}

// splitImageRef reverses imageRef.
func splitImageRef(ref string) (fileID, mimeType string) {
	fileID, mimeType, _ = strings.Cut(ref, "|")
	if mimeType == "" {
		mimeType = defaultImageMIME
	}
	return fileID, mimeType
}

// handlePhotoCore starts a new receipt session from a photo.
func (b *Bot) handlePhotoCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || len(update.Message.Photo) == 0 {
		return
	}

	largest := update.Message.Photo[len(update.Message.Photo)-1]
	name := strings.TrimSpace(update.Message.Caption)
	if name == "" {
		name = "Receipt " + b.now().Format("Jan 2 15:04")
	}

	b.startReceipt(ctx, tg, update.Message.Chat.ID, largest.FileID, defaultImageMIME, name)
}

// handleDocumentCore starts a new receipt session from an image sent as a file.
func (b *Bot) handleDocumentCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.Document == nil {
		return
	}

	doc := update.Message.Document
	chatID := update.Message.Chat.ID
	if !strings.HasPrefix(doc.MimeType, "image/") {
		b.reply(ctx, tg, chatID, "📎 Please send the receipt as an image (JPEG, PNG or WebP).")
		return
	}

	name := strings.TrimSpace(update.Message.Caption)
	if name == "" {
		name = doc.FileName
	}
	if name == "" {
		name = "Receipt " + b.now().Format("Jan 2 15:04")
	}

	b.startReceipt(ctx, tg, chatID, doc.FileID, doc.MimeType, name)
}

// startReceipt creates and activates a session, then parses the image in the background.
func (b *Bot) startReceipt(ctx context.Context, tg TelegramAPI, chatID int64, fileID, mimeType, name string) {
	if b.ai == nil {
		b.reply(ctx, tg, chatID, "📷 Receipt parsing is not configured.")
		return
	}

	id := b.newID()
	if _, err := b.dispatch(ctx, tg, chatID, session.AddSessions{
		Sessions:     []appmodels.ReceiptSession{session.NewSession(id, name)},
		MakeActiveID: id,
	}); err != nil {
		b.reply(ctx, tg, chatID, "❌ Failed to save the receipt. Please try again.")
		return
	}
	b.metrics.RecordSessionCreated(ctx)

	_, _ = b.dispatch(ctx, tg, chatID, session.SetSessionImage{SessionID: id, ImageRef: imageRef(fileID, mimeType)})
	_, _ = b.dispatch(ctx, tg, chatID, session.SubmitForParsing{SessionID: id})

	b.parseAsync(ctx, tg, chatID, id, fileID, mimeType)
}

// parseAsync downloads and parses the receipt image, then feeds the result
// back to the session as ParseSucceeded or ParseFailed.
func (b *Bot) parseAsync(ctx context.Context, tg TelegramAPI, chatID int64, sessionID, fileID, mimeType string) {
	ctx = context.WithoutCancel(ctx)
	b.runAsync(func() {
		log := logger.ForChat(chatID)
		start := time.Now()

		data, err := b.downloadFile(ctx, tg, fileID)
		if err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("Failed to download receipt image")
			_, _ = b.dispatch(ctx, tg, chatID, session.ParseFailed{
				SessionID: sessionID,
				Message:   "Failed to download the image. Please try again.",
			})
			return
		}

		receipt, err := b.ai.ParseReceipt(ctx, data, mimeType)
		b.metrics.RecordParse(ctx, time.Since(start), err == nil)
		if err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("Failed to parse receipt")
			_, _ = b.dispatch(ctx, tg, chatID, session.ParseFailed{SessionID: sessionID, Message: parseErrorMessage(err)})
			return
		}

		log.Info().
			Str("session", sessionID).
			Int("items", len(receipt.Items)).
			Msg("Receipt parsed")

		state, _ := b.dispatch(ctx, tg, chatID, session.ParseSucceeded{SessionID: sessionID, Receipt: receipt})
		if s, ok := session.Find(state, sessionID); ok && s.ParsedReceipt != nil {
			b.replyHTML(ctx, tg, chatID, formatItemsHTML(s))
		}
	})
}

// parseErrorMessage is the text shown in the chat when parsing fails.
func parseErrorMessage(err error) string {
	switch {
	case errors.Is(err, gemini.ErrNotReceipt), errors.Is(err, gemini.ErrInvalidReceiptResponse):
		return err.Error()
	case errors.Is(err, gemini.ErrParseTimeout):
		return "Reading the receipt took too long. Use /retry to try again."
	default:
		return "Something went wrong while reading the receipt. Use /retry to try again."
	}
}

// handleRetryCore re-parses the active session's image.
func (b *Bot) handleRetryCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}
	if s.ReceiptImage == "" {
		b.reply(ctx, tg, chatID, "There's no receipt image to re-read. Send a new photo instead.")
		return
	}
	if s.Status == appmodels.StatusParsing || s.Status == appmodels.StatusAssigning {
		b.reply(ctx, tg, chatID, "⏳ Please wait, I'm still working on that.")
		return
	}
	if b.ai == nil {
		b.reply(ctx, tg, chatID, "📷 Receipt parsing is not configured.")
		return
	}

	_, _ = b.dispatch(ctx, tg, chatID, session.SubmitForParsing{SessionID: s.ID, Retry: true})
	fileID, mimeType := splitImageRef(s.ReceiptImage)
	b.parseAsync(ctx, tg, chatID, s.ID, fileID, mimeType)
}
