package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/splitly-bot/internal/bot/mocks"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/session"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"12", 12, false},
		{"4.5", 4.5, false},
		{"$1,200.00", 1200, false},
		{"3.14159", 3.14, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parsePrice(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, errInvalidPrice)
				return
			}
			require.NoError(t, err)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseQuantityToken(t *testing.T) {
	t.Parallel()

	for tok, want := range map[string]int{"x2": 2, "3x": 3, "X10": 10} {
		got, ok := parseQuantityToken(tok)
		require.True(t, ok, tok)
		require.Equal(t, want, got)
	}
	for _, tok := range []string{"x", "x0", "soda", "2"} {
		_, ok := parseQuantityToken(tok)
		require.False(t, ok, tok)
	}
}

func TestHandleEditItemCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("changes price and name", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		b := setupTestBot(t, store, nil)
		mock := mocks.NewMockBot()

		b.handleEditItemCore(ctx, mock, command("/edititem Fish Tacos 20.50 Shrimp Tacos"))

		item, ok := activeOf(t, b).ParsedReceipt.FindItem("item-2")
		require.True(t, ok)
		require.Equal(t, "Shrimp Tacos", item.Name)
		require.InDelta(t, 20.5, item.Price, 1e-9)
		require.Equal(t, "✅ Updated <b>Shrimp Tacos</b>: $20.50", mock.LastSentMessage().Text)
	})

	t.Run("keeps the name when omitted", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		b := setupTestBot(t, store, nil)
		mock := mocks.NewMockBot()

		b.handleEditItemCore(ctx, mock, command("/edititem 1 $15"))

		item, _ := activeOf(t, b).ParsedReceipt.FindItem("item-1")
		require.Equal(t, "Nachos", item.Name)
		require.InDelta(t, 15.0, item.Price, 1e-9)
	})

	t.Run("usage", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		b := setupTestBot(t, store, nil)
		mock := mocks.NewMockBot()

		b.handleEditItemCore(ctx, mock, command("/edititem Pizza 3"))

		require.Contains(t, mock.LastSentMessage().Text, "Usage")
	})

	t.Run("edits are not undoable", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		b := setupTestBot(t, store, nil)
		mock := mocks.NewMockBot()

		b.handleEditItemCore(ctx, mock, command("/edititem 1 1"))

		require.False(t, session.CanUndo(activeOf(t, b)))
	})

	t.Run("needs a parsed receipt", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, session.NewSession("s1", "Dinner"))
		b := setupTestBot(t, store, nil)
		mock := mocks.NewMockBot()

		b.handleEditItemCore(ctx, mock, command("/edititem 1 1"))

		require.Contains(t, mock.LastSentMessage().Text, "Still reading")
	})
}

func TestHandleTotalsCore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("overwrites given values", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		b := setupTestBot(t, store, nil)
		mock := mocks.NewMockBot()

		b.handleTotalsCore(ctx, mock, command("/totals 60 6"))

		r := activeOf(t, b).ParsedReceipt
		require.InDelta(t, 60.0, r.Subtotal, 1e-9)
		require.InDelta(t, 6.0, r.Tax, 1e-9)
		require.InDelta(t, 10.0, r.Tip, 1e-9)
		require.Equal(t, "✅ Totals updated. Subtotal: $60.00, Tax: $6.00, Tip: $10.00, Total: $76.00", mock.LastSentMessage().Text)
	})

	t.Run("shows current totals without args", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		b := setupTestBot(t, store, nil)
		mock := mocks.NewMockBot()

		b.handleTotalsCore(ctx, mock, command("/totals"))

		require.Contains(t, mock.LastSentMessage().Text, "Subtotal: $51.00")
	})

	t.Run("rejects bad amounts", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		seed(t, store, readySession("s1"))
		b := setupTestBot(t, store, nil)
		mock := mocks.NewMockBot()

		b.handleTotalsCore(ctx, mock, command("/totals 60 lots"))

		require.Contains(t, mock.LastSentMessage().Text, "isn't a valid amount")
		require.InDelta(t, 51.0, activeOf(t, b).ParsedReceipt.Subtotal, 1e-9)
	})
}

func TestHandleAddAndRemoveItem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemStore()
	seed(t, store, readySession("s1"))
	b := setupTestBot(t, store, nil)
	mock := mocks.NewMockBot()

	b.handleAddItemCore(ctx, mock, command("/additem 4.50 x2 Lemon Soda"))

	s := activeOf(t, b)
	require.Len(t, s.ParsedReceipt.Items, 4)
	added := s.ParsedReceipt.Items[3]
	require.Equal(t, appmodels.ReceiptItem{ID: "item-4", Name: "Lemon Soda", Quantity: 2, Price: 4.5}, added)
	require.Empty(t, s.Assignments["item-4"])
	require.Equal(t, "ℹ️ Added Lemon Soda to the receipt.", mock.LastSentMessage().Text)

	b.handleRemoveItemCore(ctx, mock, command("/removeitem lemon soda"))

	s = activeOf(t, b)
	require.Len(t, s.ParsedReceipt.Items, 3)
	_, ok := s.Assignments["item-4"]
	require.False(t, ok)
	require.Equal(t, "ℹ️ Removed Lemon Soda from the receipt.", mock.LastSentMessage().Text)

	b.handleAddItemCore(ctx, mock, command("/additem Soda"))
	require.Contains(t, mock.LastSentMessage().Text, "Usage")

	b.handleRemoveItemCore(ctx, mock, command("/removeitem pizza"))
	require.Contains(t, mock.LastSentMessage().Text, "couldn't find an item")
}
