package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/splitly-bot/internal/gemini"
	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/session"
)

const defaultVoiceMIME = "audio/ogg"

// handleVoiceCore transcribes a voice message and treats the transcript as
// if it had been typed into the active session.
func (b *Bot) handleVoiceCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.Voice == nil {
		return
	}
	chatID := update.Message.Chat.ID
	voice := update.Message.Voice

	if b.ai == nil {
		b.reply(ctx, tg, chatID, "🎙️ Voice input is not configured. Please type your message instead.")
		return
	}

	s, ok := b.activeSession(ctx, tg, chatID)
	if !ok {
		return
	}
	if s.Status != appmodels.StatusAwaitingNames && s.Status != appmodels.StatusReady {
		b.reply(ctx, tg, chatID, blockedMessage(s))
		return
	}

	mimeType := voice.MimeType
	if mimeType == "" {
		mimeType = defaultVoiceMIME
	}

	b.reply(ctx, tg, chatID, "🎙️ Listening...")

	ctx = context.WithoutCancel(ctx)
	b.runAsync(func() {
		audio, err := b.downloadFile(ctx, tg, voice.FileID)
		if err != nil {
			logger.ForChat(chatID).Error().Err(err).Msg("Failed to download voice file")
			b.reply(ctx, tg, chatID, "❌ Failed to download the voice message. Please try again.")
			return
		}

		text, err := b.ai.TranscribeInstruction(ctx, audio, mimeType)
		if err != nil {
			logger.ForChat(chatID).Warn().Err(err).Int("size_bytes", len(audio)).Msg("Failed to transcribe voice message")
			b.reply(ctx, tg, chatID, transcribeErrorMessage(err))
			return
		}

		// The session may have been deleted or moved on while we listened.
		state, err := b.snapshot(ctx, chatID)
		if err != nil {
			logger.ForChat(chatID).Error().Err(err).Msg("Failed to load state")
			return
		}
		current, ok := session.Find(state, s.ID)
		if !ok {
			return
		}

		b.replyHTML(ctx, tg, chatID, fmt.Sprintf("🎙️ I heard: <i>%s</i>", escapeHTML(text)))
		b.handleInstruction(ctx, tg, chatID, current, text)
	})
}

func transcribeErrorMessage(err error) string {
	switch {
	case errors.Is(err, gemini.ErrNoSpeech):
		return "🎙️ I couldn't make out what you said. Please try again or type it."
	case errors.Is(err, gemini.ErrTranscribeTimeout):
		return "🎙️ That took too long. Please try again or type it."
	default:
		return "❌ Failed to process the voice message. Please type it instead."
	}
}
