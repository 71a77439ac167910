package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/splitly-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/splitly-bot/internal/config"
	appmodels "gitlab.com/yelinaung/splitly-bot/internal/models"
	"gitlab.com/yelinaung/splitly-bot/internal/repository"
)

const (
	testChatID = int64(12345)
	testUserID = int64(123456)
)

// memStore is an in-memory StateStore with injectable failures.
type memStore struct {
	mu      sync.Mutex
	states  map[int64]appmodels.AppState
	loadErr error
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{states: make(map[int64]appmodels.AppState)}
}

func (m *memStore) Load(_ context.Context, chatID int64) (appmodels.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return appmodels.AppState{}, m.loadErr
	}
	state, ok := m.states[chatID]
	if !ok {
		return appmodels.AppState{Sessions: []appmodels.ReceiptSession{}}, nil
	}
	return state, nil
}

func (m *memStore) Save(_ context.Context, chatID int64, state appmodels.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[chatID] = state
	return nil
}

func (m *memStore) Delete(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
	return nil
}

func (m *memStore) get(chatID int64) appmodels.AppState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[chatID]
}

// fakeAI stands in for the Gemini client.
type fakeAI struct {
	mu sync.Mutex

	receipt   *appmodels.ParsedReceipt
	parseErr  error
	update    *appmodels.AssignmentUpdate
	assignErr error

	transcript    string
	transcribeErr error
	audio         [][]byte

	images       [][]byte
	mimeTypes    []string
	instructions []string
}

func (f *fakeAI) ParseReceipt(_ context.Context, imageBytes []byte, mimeType string) (*appmodels.ParsedReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, imageBytes)
	f.mimeTypes = append(f.mimeTypes, mimeType)
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.receipt.Clone(), nil
}

func (f *fakeAI) UpdateAssignments(
	_ context.Context,
	instruction string,
	_ []appmodels.ReceiptItem,
	_ appmodels.Assignments,
) (*appmodels.AssignmentUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instructions = append(f.instructions, instruction)
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	upd := *f.update
	upd.NewAssignments = f.update.NewAssignments.Clone()
	return &upd, nil
}

func (f *fakeAI) TranscribeInstruction(_ context.Context, audioBytes []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, audioBytes)
	f.mimeTypes = append(f.mimeTypes, mimeType)
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func testConfig() *config.Config {
	return &config.Config{
		TelegramBotToken:   "test-token",
		WhitelistedUserIDs: []int64{testUserID},
	}
}

// setupTestBot creates a Bot backed by store and ai with deterministic
// session ids and clock.
func setupTestBot(t *testing.T, store repository.StateStore, ai AIClient) *Bot {
	t.Helper()

	b := newBot(testConfig(), store, ai, nil)
	var n int
	var mu sync.Mutex
	b.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("session-%d", n)
	}
	b.now = func() time.Time { return time.Date(2026, 3, 14, 19, 5, 0, 0, time.UTC) }
	t.Cleanup(b.Wait)
	return b
}

// setupBoltBot creates a Bot persisting to a bbolt file in a temp dir.
func setupBoltBot(t *testing.T, ai AIClient) (*Bot, *repository.BoltStateStore) {
	t.Helper()

	store, err := repository.NewBoltStateStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return setupTestBot(t, store, ai), store
}

// imageServer serves body for every request and points mock at it.
func imageServer(t *testing.T, mock *mocks.MockBot, status int, body string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	mock.FileDownloadLinkToReturn = srv.URL + "/file.jpg"
}

func sampleReceipt() *appmodels.ParsedReceipt {
	return &appmodels.ParsedReceipt{
		Items: []appmodels.ReceiptItem{
			{ID: "item-1", Name: "Nachos", Quantity: 1, Price: 12},
			{ID: "item-2", Name: "Fish Tacos", Quantity: 2, Price: 18},
			{ID: "item-3", Name: "Beer", Quantity: 3, Price: 21},
		},
		Subtotal: 51,
		Tax:      5.1,
		Tip:      10,
	}
}

// readySession is a parsed session with two people and nothing assigned.
func readySession(id string) appmodels.ReceiptSession {
	receipt := sampleReceipt()
	assignments := appmodels.Assignments{}
	for _, item := range receipt.Items {
		assignments[item.ID] = []string{}
	}
	return appmodels.ReceiptSession{
		ID:                 id,
		Name:               "Dinner",
		Status:             appmodels.StatusReady,
		ParsedReceipt:      receipt,
		ReceiptImage:       "file-1|image/jpeg",
		Assignments:        assignments,
		AssignmentsHistory: []appmodels.Assignments{},
		ChatHistory:        []appmodels.ChatMessage{},
		People:             []string{"Alice", "Bob"},
	}
}

// seed stores state for testChatID so the bot loads it on first use.
func seed(t *testing.T, store repository.StateStore, sessions ...appmodels.ReceiptSession) {
	t.Helper()

	state := appmodels.AppState{Sessions: sessions}
	if len(sessions) > 0 {
		state.ActiveSessionID = sessions[0].ID
	}
	require.NoError(t, store.Save(context.Background(), testChatID, state))
}

// activeOf returns the active session the bot currently holds for testChatID.
func activeOf(t *testing.T, b *Bot) appmodels.ReceiptSession {
	t.Helper()

	state, err := b.snapshot(context.Background(), testChatID)
	require.NoError(t, err)
	for _, s := range state.Sessions {
		if s.ID == state.ActiveSessionID {
			return s
		}
	}
	t.Fatal("no active session")
	return appmodels.ReceiptSession{}
}

func command(text string) *tgmodels.Update {
	return mocks.CommandUpdate(testChatID, testUserID, text)
}
