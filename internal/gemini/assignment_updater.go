package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
	"google.golang.org/genai"
)

// UpdateAssignmentsTimeout bounds a single assignment request.
const UpdateAssignmentsTimeout = 30 * time.Second

// MaxInstructionLength is the longest instruction embedded in a prompt.
const MaxInstructionLength = 500

// DefaultBotResponse is used when the model omits its reply.
const DefaultBotResponse = "I've updated the assignments."

// ErrInvalidAssignmentResponse is returned when the model's reply cannot be
// turned into an assignment map.
var ErrInvalidAssignmentResponse = errors.New("The AI failed to return a valid assignment structure. Please try rephrasing your command.") //nolint:staticcheck // shown to users as-is

// ErrAssignmentTimeout indicates the assignment request timed out.
var ErrAssignmentTimeout = errors.New("assignment request timed out")

type assignmentResponse struct {
	BotResponse string            `json:"botResponse"`
	Assignments []assignmentEntry `json:"assignments"`
}

type assignmentEntry struct {
	ItemID string   `json:"itemId"`
	Names  []string `json:"names"`
}

// promptItem is the trimmed item shape sent to the model.
type promptItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func assignmentSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"botResponse": {
				Type:        genai.TypeString,
				Description: "A friendly, conversational summary of the changes made. For example: 'Okay, I've assigned the Nachos to Dhruv.'",
			},
			"assignments": {
				Type:        genai.TypeArray,
				Description: "An array of assignment objects, covering all items from the receipt.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"itemId": {Type: genai.TypeString, Description: "The ID of the item being assigned (e.g., 'item-1')."},
						"names": {
							Type:        genai.TypeArray,
							Description: "A list of names assigned to this item. Should be an empty array if unassigned.",
							Items:       &genai.Schema{Type: genai.TypeString},
						},
					},
					Required: []string{"itemId", "names"},
				},
			},
		},
		Required: []string{"botResponse", "assignments"},
	}
}

// UpdateAssignments applies a natural-language instruction to the current
// assignments. The returned map has an entry for every item in items.
func (c *Client) UpdateAssignments(
	ctx context.Context,
	instruction string,
	items []models.ReceiptItem,
	current models.Assignments,
) (update *models.AssignmentUpdate, err error) {
	if c.generator == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("instruction is required")
	}

	key, keyErr := AssignmentCacheKey(instruction, items, current)
	if keyErr != nil {
		logger.Log.Warn().Err(keyErr).Msg("UpdateAssignments: cache key unavailable")
	}
	if c.cache != nil && keyErr == nil {
		if cached, ok := c.cache.Get(key); ok {
			logger.Log.Debug().Str("cache_key", key[:12]).Msg("UpdateAssignments: cache hit")
			return cached, nil
		}
	}

	ctx, finish := c.startCall(ctx, "update_assignments")
	defer func() { finish(err) }()

	prompt, err := buildAssignmentPrompt(SanitizeForPrompt(instruction, MaxInstructionLength), items, current)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, UpdateAssignmentsTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   assignmentSchema(),
	}

	resp, err := c.generator.GenerateContent(timeoutCtx, c.model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrAssignmentTimeout
		}
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil {
		return nil, ErrInvalidAssignmentResponse
	}

	parsed, err := parseAssignmentResponse(resp.Text())
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("instruction", logger.RedactText(instruction)).
			Msg("UpdateAssignments: unusable Gemini response")
		return nil, ErrInvalidAssignmentResponse
	}

	raw := make(models.Assignments, len(parsed.Assignments))
	for _, entry := range parsed.Assignments {
		raw[entry.ItemID] = append(raw[entry.ItemID], entry.Names...)
	}

	update = &models.AssignmentUpdate{
		NewAssignments: ReconcileAssignments(items, raw),
		BotResponse:    strings.TrimSpace(parsed.BotResponse),
	}
	if update.BotResponse == "" {
		update.BotResponse = DefaultBotResponse
	}

	if c.cache != nil && keyErr == nil {
		c.cache.Put(key, update)
	}

	return update, nil
}

func buildAssignmentPrompt(instruction string, items []models.ReceiptItem, current models.Assignments) (string, error) {
	light := make([]promptItem, len(items))
	for i, item := range items {
		light[i] = promptItem{ID: item.ID, Name: item.Name}
	}
	if current == nil {
		current = models.Assignments{}
	}

	itemsJSON, err := json.MarshalIndent(light, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}
	assignmentsJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode assignments: %w", err)
	}

	return fmt.Sprintf(`You are a bill splitting assistant. Your task is to update item assignments based on a user's request and provide a conversational summary of the action taken.

You will be given the list of items from a receipt, the current assignments, and the user's command.

Respond ONLY with a JSON object. This object must contain two keys: "botResponse" and "assignments".
1. "botResponse": A friendly, natural language string summarizing the changes you made.
2. "assignments": An array of objects, where each object represents an item from the receipt and has an "itemId" and a "names" array. Every single item from the original receipt must be present in your response. If an item is unassigned, its "names" array should be empty.

Current items: %s
Current assignments: %s
User command: "%s"

Your response must be a valid JSON object following the specified structure.`, itemsJSON, assignmentsJSON, instruction), nil
}

func parseAssignmentResponse(text string) (*assignmentResponse, error) {
	jsonText := extractJSON(text)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var parsed assignmentResponse
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return &parsed, nil
}

// ReconcileAssignments makes a model-produced map safe to install: ids not on
// the receipt are dropped, names are trimmed and de-duplicated, and every
// receipt item gets an entry (empty when the model left it out).
func ReconcileAssignments(items []models.ReceiptItem, raw models.Assignments) models.Assignments {
	out := make(models.Assignments, len(items))
	for _, item := range items {
		names := []string{}
		seen := make(map[string]bool)
		for _, n := range raw[item.ID] {
			n = strings.TrimSpace(n)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			names = append(names, n)
		}
		out[item.ID] = names
	}
	return out
}

// SanitizeForPrompt sanitizes user input to prevent prompt injection attacks.
// It removes or escapes characters that could break prompt structure,
// and truncates to the given maxLength.
func SanitizeForPrompt(input string, maxLength int) string {
	input = strings.ReplaceAll(input, `"`, `'`)
	input = strings.ReplaceAll(input, "`", "'")
	input = strings.ReplaceAll(input, "\x00", "")

	// Collapses newlines too, so the instruction can't open a new prompt section.
	input = strings.Join(strings.Fields(input), " ")

	if len(input) > maxLength {
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = strings.TrimSpace(input[:cut])
	}

	return input
}
