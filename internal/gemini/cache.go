package gemini

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"gitlab.com/yelinaung/splitly-bot/internal/models"
)

// DefaultAssignmentCacheSize is the cache capacity used when none is configured.
const DefaultAssignmentCacheSize = 128

// AssignmentCache is a bounded LRU of assignment results keyed by request.
// It is safe for concurrent use.
type AssignmentCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type cacheEntry struct {
	key    string
	update models.AssignmentUpdate
}

// NewAssignmentCache creates a cache holding at most capacity results.
// A non-positive capacity falls back to DefaultAssignmentCacheSize.
func NewAssignmentCache(capacity int) *AssignmentCache {
	if capacity <= 0 {
		capacity = DefaultAssignmentCacheSize
	}
	return &AssignmentCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// Get returns a copy of the cached result and marks it recently used.
func (c *AssignmentCache) Get(key string) (*models.AssignmentUpdate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	return &models.AssignmentUpdate{
		NewAssignments: entry.update.NewAssignments.Clone(),
		BotResponse:    entry.update.BotResponse,
	}, true
}

// Put stores a copy of update, evicting the least recently used entry when full.
func (c *AssignmentCache) Put(key string, update *models.AssignmentUpdate) {
	if update == nil {
		return
	}
	stored := models.AssignmentUpdate{
		NewAssignments: update.NewAssignments.Clone(),
		BotResponse:    update.BotResponse,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).update = stored
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, update: stored})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len returns the number of cached results.
func (c *AssignmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// AssignmentCacheKey hashes the canonical JSON of a request. Map keys are
// sorted by encoding/json, so equal requests always hash the same.
func AssignmentCacheKey(instruction string, items []models.ReceiptItem, current models.Assignments) (string, error) {
	light := make([]promptItem, len(items))
	for i, item := range items {
		light[i] = promptItem{ID: item.ID, Name: item.Name}
	}
	if current == nil {
		current = models.Assignments{}
	}

	payload, err := json.Marshal(struct {
		Instruction string             `json:"instruction"`
		Items       []promptItem       `json:"items"`
		Assignments models.Assignments `json:"assignments"`
	}{instruction, light, current})
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
