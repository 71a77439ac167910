// Package gemini reads receipts and interprets assignment instructions using
// the Google Gemini API.
package gemini

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/splitly-bot/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

const instrumentationName = "gitlab.com/yelinaung/splitly-bot/internal/gemini"

// ContentGenerator defines the interface for generating content via Gemini.
// This abstraction enables testing without making actual API calls.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// modelsAdapter wraps *genai.Models to implement ContentGenerator.
type modelsAdapter struct {
	models *genai.Models
}

func (m *modelsAdapter) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	resp, err := m.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("genai.GenerateContent: %w", err)
	}
	return resp, nil
}

// Client wraps the Gemini API client.
type Client struct {
	client    *genai.Client
	generator ContentGenerator
	model     string
	cache     *AssignmentCache

	tracer   trace.Tracer
	requests metric.Int64Counter
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAssignmentCache memoizes UpdateAssignments results. A nil cache
// disables memoization.
func WithAssignmentCache(cache *AssignmentCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates a new Gemini client with the provided API key.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := newClient(&modelsAdapter{models: client.Models}, opts)
	c.client = client
	return c, nil
}

// NewClientWithGenerator creates a Client with a custom ContentGenerator.
// This is primarily used for testing with mock generators.
func NewClientWithGenerator(generator ContentGenerator, opts ...Option) *Client {
	return newClient(generator, opts)
}

func newClient(generator ContentGenerator, opts []Option) *Client {
	c := &Client{
		generator: generator,
		model:     DefaultModel,
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"gemini.requests",
		metric.WithDescription("Gemini API calls by operation and outcome"),
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create gemini.requests counter")
		counter, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("gemini.requests")
	}
	c.requests = counter

	return c
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// GenerativeClient returns the underlying genai client for advanced usage.
func (c *Client) GenerativeClient() *genai.Client {
	return c.client
}

// startCall opens a span for one Gemini operation. The returned func records
// the outcome on the span and the request counter.
func (c *Client) startCall(ctx context.Context, operation string) (context.Context, func(err error)) {
	ctx, span := c.tracer.Start(ctx, "gemini."+operation,
		trace.WithAttributes(attribute.String("gemini.model", c.model)))

	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		c.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
		span.End()
	}
}
