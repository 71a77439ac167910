// Package repository persists each chat's sessions.
package repository

import (
	"context"
	"errors"

	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

// ErrStoreClosed is returned by stores used after Close.
var ErrStoreClosed = errors.New("state store is closed")

// StateStore loads and saves one AppState snapshot per chat.
// Load returns an empty state when nothing was saved for the chat.
// Save replaces the stored snapshot wholesale.
type StateStore interface {
	Load(ctx context.Context, chatID int64) (models.AppState, error)
	Save(ctx context.Context, chatID int64, state models.AppState) error
	Delete(ctx context.Context, chatID int64) error
}

func emptyState() models.AppState {
	return models.AppState{Sessions: []models.ReceiptSession{}}
}

// normalize makes a decoded snapshot safe to hand to the session reducer.
func normalize(state models.AppState) models.AppState {
	if state.Sessions == nil {
		state.Sessions = []models.ReceiptSession{}
	}
	if state.ActiveSessionID != "" {
		found := false
		for _, s := range state.Sessions {
			if s.ID == state.ActiveSessionID {
				found = true
				break
			}
		}
		if !found {
			state.ActiveSessionID = ""
		}
	}
	return state
}
