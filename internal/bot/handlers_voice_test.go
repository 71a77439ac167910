package bot

import (
	"context"
	"net/http"
	"testing"

	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/splitly-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/splitly-bot/internal/gemini"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
)

func voice() *tgmodels.Update {
	return mocks.VoiceUpdate(testChatID, testUserID, "voice-1")
}

func TestHandleVoiceCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("names while awaiting names", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, awaitingNames("s1"))
		ai := &fakeAI{transcript: "Alice, Bob, Carol"}
		b := setupTestBot(t, store, ai)
		mock := mocks.NewMockBot()
		imageServer(t, mock, http.StatusOK, "ogg-bytes")

		b.routeCore(ctx, mock, voice())
		b.Wait()

		require.Equal(t, [][]byte{[]byte("ogg-bytes")}, ai.audio)
		require.Equal(t, []string{"audio/ogg"}, ai.mimeTypes)
		s := activeOf(t, b)
		require.Equal(t, appmodels.StatusReady, s.Status)
		require.Equal(t, []string{"Alice", "Bob", "Carol"}, s.People)

		texts := mock.SentTexts()
		require.Equal(t, "🎙️ Listening...", texts[0])
		require.Equal(t, "🎙️ I heard: <i>Alice, Bob, Carol</i>", texts[1])
	})

	t.Run("instruction while ready", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		ai := &fakeAI{
			transcript: "Bob had the beer",
			update: &appmodels.AssignmentUpdate{
				NewAssignments: appmodels.Assignments{"item-1": {}, "item-2": {}, "item-3": {"Bob"}},
				BotResponse:    "Bob had the beer.",
			},
		}
		b := setupTestBot(t, store, ai)
		mock := mocks.NewMockBot()
		imageServer(t, mock, http.StatusOK, "ogg-bytes")

		b.handleVoiceCore(ctx, mock, voice())
		b.Wait()

		require.Equal(t, []string{"Bob had the beer"}, ai.instructions)
		require.Equal(t, []string{"Bob"}, activeOf(t, b).Assignments["item-3"])
	})

	t.Run("blocked while parsing", func(t *testing.T) {
		t.Parallel()
		s := readySession("s1")
		s.Status = appmodels.StatusParsing
		store := newMemStore()
		seed(t, store, s)
		ai := &fakeAI{transcript: "anything"}
		b := setupTestBot(t, store, ai)
		mock := mocks.NewMockBot()

		b.handleVoiceCore(ctx, mock, voice())
		b.Wait()

		require.Empty(t, ai.audio)
		require.Equal(t, pleaseWaitMsg, mock.LastSentMessage().Text)
	})

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		b := setupTestBot(t, store, nil)
		mock := mocks.NewMockBot()

		b.handleVoiceCore(ctx, mock, voice())

		require.Contains(t, mock.LastSentMessage().Text, "Voice input is not configured")
	})

	t.Run("download failure", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		ai := &fakeAI{transcript: "anything"}
		b := setupTestBot(t, store, ai)
		mock := mocks.NewMockBot()
		imageServer(t, mock, http.StatusNotFound, "")

		b.handleVoiceCore(ctx, mock, voice())
		b.Wait()

		require.Empty(t, ai.audio)
		require.Contains(t, mock.LastSentMessage().Text, "Failed to download the voice message")
	})

	t.Run("no speech", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		ai := &fakeAI{transcribeErr: gemini.ErrNoSpeech}
		b := setupTestBot(t, store, ai)
		mock := mocks.NewMockBot()
		imageServer(t, mock, http.StatusOK, "ogg-bytes")

		b.handleVoiceCore(ctx, mock, voice())
		b.Wait()

		require.Contains(t, mock.LastSentMessage().Text, "couldn't make out what you said")
		require.Empty(t, activeOf(t, b).ChatHistory)
	})
}

func TestTranscribeErrorMessage(t *testing.T) {
	t.Parallel()

	require.Contains(t, transcribeErrorMessage(gemini.ErrTranscribeTimeout), "took too long")
	require.Contains(t, transcribeErrorMessage(context.Canceled), "type it instead")
}
