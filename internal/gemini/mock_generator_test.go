package gemini

import (
	"context"
	"sync"

	"google.golang.org/genai"
)

// mockGenerator is a ContentGenerator returning a canned response.
type mockGenerator struct {
	mu       sync.Mutex
	response *genai.GenerateContentResponse
	err      error
	block    bool

	calls      int
	lastModel  string
	lastPrompt string
	lastConfig *genai.GenerateContentConfig
}

func (m *mockGenerator) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	m.calls++
	m.lastModel = model
	m.lastConfig = config
	m.lastPrompt = ""
	for _, c := range contents {
		for _, p := range c.Parts {
			m.lastPrompt += p.Text
		}
	}
	block := m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.response, m.err
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{Text: text},
					},
				},
			},
		},
	}
}
