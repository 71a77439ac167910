package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	"gitlab.com/yelinaung/splitly-bot/internal/models"
	"google.golang.org/genai"
)

// ParseReceiptTimeout is the timeout for Gemini API calls.
const ParseReceiptTimeout = 30 * time.Second

// ErrParseTimeout indicates the Gemini API call timed out.
var ErrParseTimeout = errors.New("receipt parsing timed out")

// ErrNotReceipt is returned when no line items could be read from the image.
var ErrNotReceipt = errors.New("This doesn't look like a receipt, or it's too blurry to read. Please upload a clear picture of a receipt.") //nolint:staticcheck // shown to users as-is

// ErrInvalidReceiptResponse indicates the model's reply had no usable structure.
var ErrInvalidReceiptResponse = errors.New("The AI returned an invalid structure. The 'items' array is missing.") //nolint:staticcheck // shown to users as-is

// defaultItemName labels items the model returned without a name.
const defaultItemName = "Unnamed Item"

const receiptPrompt = `You are a receipt parsing expert. Your primary task is to determine if the given image is a receipt.
- If the image is clearly a receipt, analyze it. Extract all line items with their quantity and price, the subtotal, tax, and tip.
- If the image is NOT a receipt, or is completely unreadable, you MUST respond with a JSON object where the "items" array is empty.
Generate a unique ID for each item on valid receipts. Format the output as JSON according to the schema. If any values are missing on a valid receipt, use 0.`

// receiptResponse is the JSON structure returned by Gemini.
// Fields are pointers so missing values can be told apart from zeros.
type receiptResponse struct {
	Items    *[]receiptItemResponse `json:"items"`
	Subtotal *float64               `json:"subtotal"`
	Tax      *float64               `json:"tax"`
	Tip      *float64               `json:"tip"`
}

type receiptItemResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity"`
	Price    *float64 `json:"price"`
}

func receiptSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"items": {
				Type:        genai.TypeArray,
				Description: "List of all items from the receipt.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":       {Type: genai.TypeString, Description: "A unique identifier for the item, e.g., 'item-1'."},
						"name":     {Type: genai.TypeString, Description: "The name of the item."},
						"quantity": {Type: genai.TypeInteger, Description: "The quantity of the item."},
						"price":    {Type: genai.TypeNumber, Description: "The total price for this line item (quantity * unit price)."},
					},
					Required: []string{"id", "name", "quantity", "price"},
				},
			},
			"subtotal": {Type: genai.TypeNumber, Description: "The subtotal amount before tax and tip."},
			"tax":      {Type: genai.TypeNumber, Description: "The total tax amount."},
			"tip":      {Type: genai.TypeNumber, Description: "The total tip or gratuity amount."},
		},
		Required: []string{"items", "subtotal", "tax", "tip"},
	}
}

// ParseReceipt extracts line items and totals from a receipt image.
// It applies a 30-second timeout to the API call. A result without items is
// reported as ErrNotReceipt.
func (c *Client) ParseReceipt(ctx context.Context, imageBytes []byte, mimeType string) (receipt *models.ParsedReceipt, err error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image data is required")
	}
	if c.generator == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	ctx, finish := c.startCall(ctx, "parse_receipt")
	defer func() { finish(err) }()

	timeoutCtx, cancel := context.WithTimeout(ctx, ParseReceiptTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   receiptSchema(),
	}

	start := time.Now()
	resp, err := c.generator.GenerateContent(timeoutCtx, c.model, []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageBytes}},
				{Text: receiptPrompt},
			},
		},
	}, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrParseTimeout
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	receipt, err = parseReceiptResponse(text)
	if err != nil {
		logger.Log.Warn().Err(err).
			Int("response_chars", len(text)).
			Msg("ParseReceipt: unusable Gemini response")
		return nil, err
	}

	logger.Log.Debug().
		Int("items", len(receipt.Items)).
		Dur("elapsed", time.Since(start)).
		Msg("ParseReceipt: receipt parsed")

	return receipt, nil
}

// parseReceiptResponse decodes and sanitizes the model's JSON reply.
func parseReceiptResponse(response string) (*models.ParsedReceipt, error) {
	jsonText := extractJSON(response)
	if jsonText == "" {
		return nil, ErrInvalidReceiptResponse
	}

	var rr receiptResponse
	if err := json.Unmarshal([]byte(jsonText), &rr); err != nil {
		return nil, fmt.Errorf("failed to parse receipt response: %w", err)
	}
	if rr.Items == nil {
		return nil, ErrInvalidReceiptResponse
	}
	if len(*rr.Items) == 0 {
		return nil, ErrNotReceipt
	}

	receipt := &models.ParsedReceipt{
		Items:    make([]models.ReceiptItem, 0, len(*rr.Items)),
		Subtotal: finiteOrZero(rr.Subtotal),
		Tax:      finiteOrZero(rr.Tax),
		Tip:      finiteOrZero(rr.Tip),
	}

	seen := make(map[string]bool, len(*rr.Items))
	for i, raw := range *rr.Items {
		item := models.ReceiptItem{
			ID:       strings.TrimSpace(raw.ID),
			Name:     strings.TrimSpace(raw.Name),
			Quantity: 1,
			Price:    finiteOrZero(raw.Price),
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("item-%d", i+1)
		}
		if item.Name == "" {
			item.Name = defaultItemName
		}
		if q := finiteOrZero(raw.Quantity); q >= 1 {
			item.Quantity = int(math.Min(q, math.MaxInt32))
		}

		if seen[item.ID] {
			base := fmt.Sprintf("%s-%d", item.ID, i)
			item.ID = base
			for n := 2; seen[item.ID]; n++ {
				item.ID = fmt.Sprintf("%s-%d", base, n)
			}
		}
		seen[item.ID] = true

		receipt.Items = append(receipt.Items, item)
	}

	return receipt, nil
}

func finiteOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

// extractJSON extracts a JSON object from text that may contain preamble.
// Gemini sometimes returns responses like "Here is the JSON:\n{...}" even
// when ResponseMIMEType is set to application/json.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(text, "}")
	if end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}
