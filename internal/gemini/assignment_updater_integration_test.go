package gemini

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

func TestUpdateAssignments_Integration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, apiKey)
	require.NoError(t, err)

	items := testItems()
	update, err := client.UpdateAssignments(ctx, "Dhruv had the nachos and everyone shared the beer between Dhruv and Sam",
		items, models.Assignments{"i1": {}, "i2": {}, "i3": {}})
	require.NoError(t, err)
	require.NotEmpty(t, update.BotResponse)

	for _, item := range items {
		require.Contains(t, update.NewAssignments, item.ID)
	}
	require.Contains(t, update.NewAssignments["i1"], "Dhruv")
	require.ElementsMatch(t, []string{"Dhruv", "Sam"}, update.NewAssignments["i2"])

	t.Logf("Bot response: %s", update.BotResponse)
}
