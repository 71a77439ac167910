package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

func sampleState() models.AppState {
	return models.AppState{
		Sessions: []models.ReceiptSession{
			{
				ID:     "s1",
				Name:   "Dinner",
				Status: models.StatusReady,
				ParsedReceipt: &models.ParsedReceipt{
					Items: []models.ReceiptItem{
						{ID: "item-1", Name: "Nachos", Quantity: 1, Price: 12},
						{ID: "item-2", Name: "Beer", Quantity: 3, Price: 21},
					},
					Subtotal: 33,
					Tax:      3.3,
					Tip:      5,
				},
				ReceiptImage:        "file-123|image/jpeg",
				Assignments:         models.Assignments{"item-1": {"Al"}, "item-2": {}},
				QuantityAssignments: models.QuantityAssignments{"item-2": {"Al": 2, "Bo": 1}},
				AssignmentsHistory:  []models.Assignments{{"item-1": {}, "item-2": {}}},
				ChatHistory: []models.ChatMessage{
					{Sender: models.SenderBot, Text: "hello"},
				},
				People: []string{"Al", "Bo"},
			},
		},
		ActiveSessionID: "s1",
	}
}

// testStoreRoundTrip exercises the StateStore contract against any implementation.
func testStoreRoundTrip(t *testing.T, store StateStore, chatID int64) {
	t.Helper()
	ctx := context.Background()

	t.Run("returns empty state for unknown chat", func(t *testing.T) {
		state, err := store.Load(ctx, chatID)
		require.NoError(t, err)
		require.NotNil(t, state.Sessions)
		require.Empty(t, state.Sessions)
		require.Empty(t, state.ActiveSessionID)
	})

	t.Run("saves and loads wholesale", func(t *testing.T) {
		want := sampleState()
		require.NoError(t, store.Save(ctx, chatID, want))

		got, err := store.Load(ctx, chatID)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("save replaces the previous snapshot", func(t *testing.T) {
		next := models.AppState{Sessions: []models.ReceiptSession{}}
		require.NoError(t, store.Save(ctx, chatID, next))

		got, err := store.Load(ctx, chatID)
		require.NoError(t, err)
		require.Empty(t, got.Sessions)
	})

	t.Run("drops a dangling active id", func(t *testing.T) {
		state := sampleState()
		state.ActiveSessionID = "missing"
		require.NoError(t, store.Save(ctx, chatID, state))

		got, err := store.Load(ctx, chatID)
		require.NoError(t, err)
		require.Empty(t, got.ActiveSessionID)
		require.Len(t, got.Sessions, 1)
	})

	t.Run("delete removes the snapshot", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, chatID, sampleState()))
		require.NoError(t, store.Delete(ctx, chatID))

		got, err := store.Load(ctx, chatID)
		require.NoError(t, err)
		require.Empty(t, got.Sessions)

		require.NoError(t, store.Delete(ctx, chatID))
	})

	t.Run("chats are isolated", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, chatID, sampleState()))

		other, err := store.Load(ctx, chatID+1)
		require.NoError(t, err)
		require.Empty(t, other.Sessions)
	})
}
