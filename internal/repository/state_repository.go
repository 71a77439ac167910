package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/splitly-bot/internal/database"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

// StateRepository stores chat state as JSONB in PostgreSQL.
type StateRepository struct {
	db database.PGXDB
}

// NewStateRepository creates a new StateRepository.
func NewStateRepository(db database.PGXDB) *StateRepository {
	return &StateRepository{db: db}
}

var _ StateStore = (*StateRepository)(nil)

// Load retrieves the state saved for a chat.
func (r *StateRepository) Load(ctx context.Context, chatID int64) (models.AppState, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `
		SELECT state FROM chat_states WHERE chat_id = $1
	`, chatID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return emptyState(), nil
	}
	if err != nil {
		return models.AppState{}, fmt.Errorf("failed to load chat state: %w", err)
	}

	var state models.AppState
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.AppState{}, fmt.Errorf("failed to decode chat state: %w", err)
	}
	return normalize(state), nil
}

// Save creates or replaces the state for a chat.
func (r *StateRepository) Save(ctx context.Context, chatID int64, state models.AppState) error {
	data, err := json.Marshal(normalize(state))
	if err != nil {
		return fmt.Errorf("failed to encode chat state: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO chat_states (chat_id, state, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (chat_id) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = NOW()
	`, chatID, data)
	if err != nil {
		return fmt.Errorf("failed to save chat state: %w", err)
	}
	return nil
}

// Delete removes the state for a chat. Deleting a missing chat is not an error.
func (r *StateRepository) Delete(ctx context.Context, chatID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM chat_states WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("failed to delete chat state: %w", err)
	}
	return nil
}
