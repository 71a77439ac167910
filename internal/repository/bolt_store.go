package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gitlab.com/yelinaung/splitly-bot/internal/models"
	"go.etcd.io/bbolt"
)

const chatStatesBucket = "chat_states"

// BoltStateStore keeps chat state in a single bbolt file.
type BoltStateStore struct {
	db *bbolt.DB
}

var _ StateStore = (*BoltStateStore)(nil)

// NewBoltStateStore opens (or creates) the bbolt file at path.
func NewBoltStateStore(path string) (*BoltStateStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(chatStatesBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStateStore{db: db}, nil
}

func chatKey(chatID int64) []byte {
	return []byte(strconv.FormatInt(chatID, 10))
}

// Load retrieves the state saved for a chat.
func (b *BoltStateStore) Load(ctx context.Context, chatID int64) (models.AppState, error) {
	if err := ctx.Err(); err != nil {
		return models.AppState{}, err
	}

	state := emptyState()
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(chatStatesBucket)).Get(chatKey(chatID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &state)
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return models.AppState{}, ErrStoreClosed
	}
	if err != nil {
		return models.AppState{}, fmt.Errorf("loading chat state: %w", err)
	}
	return normalize(state), nil
}

// Save creates or replaces the state for a chat.
func (b *BoltStateStore) Save(ctx context.Context, chatID int64, state models.AppState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(normalize(state))
	if err != nil {
		return fmt.Errorf("marshaling chat state: %w", err)
	}

	err = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(chatStatesBucket)).Put(chatKey(chatID), data)
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrStoreClosed
	}
	if err != nil {
		return fmt.Errorf("saving chat state: %w", err)
	}
	return nil
}

// Delete removes the state for a chat.
func (b *BoltStateStore) Delete(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(chatStatesBucket)).Delete(chatKey(chatID))
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrStoreClosed
	}
	if err != nil {
		return fmt.Errorf("deleting chat state: %w", err)
	}
	return nil
}

// Close closes the underlying bbolt file.
func (b *BoltStateStore) Close() error {
	return b.db.Close()
}
