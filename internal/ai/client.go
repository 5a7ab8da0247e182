package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultTextModel is the chat model used for all text stages.
	DefaultTextModel = "gpt-4o-mini"
	// DefaultImageModel backs hero/support renders.
	DefaultImageModel = "gpt-image-1"

	maxAttempts   = 5
	baseDelay     = 400 * time.Millisecond
	backoffFactor = 1.8
	jitterCeiling = 200 * time.Millisecond
)

// transientStatus lists provider failures worth retrying: rate limits
// and server-side errors. Anything else is propagated on first sight.
var transientStatus = map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true}

// Client wraps the OpenAI SDK with capability checking, retry with
// multiplicative backoff, and call logging. When no API key is present
// every text call returns an empty result and every image call returns
// no payload; stages are expected to carry their own deterministic
// degraded behavior rather than special-case configuration state.
type Client struct {
	api            openai.Client
	requestOptions []option.RequestOption
	configured     bool
	textModel      string
	imageModel     string
	calls          *CallLog

	sleep  func(context.Context, time.Duration) error
	jitter func() time.Duration
}

// Option customizes the client, mainly for tests.
type Option func(*Client)

// WithTextModel overrides the chat model.
func WithTextModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.textModel = model
		}
	}
}

// WithImageModel overrides the image model.
func WithImageModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.imageModel = model
		}
	}
}

// WithBaseURL points the SDK at an alternate endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.api = openai.NewClient(append(c.requestOptions, option.WithBaseURL(url))...)
		}
	}
}

// WithSleep injects the inter-attempt wait (tests use a no-op).
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient builds a client from an API key. An empty key yields an
// unconfigured client whose calls degrade instead of failing.
func NewClient(apiKey string, calls *CallLog, opts ...Option) *Client {
	c := &Client{
		textModel:  DefaultTextModel,
		imageModel: DefaultImageModel,
		calls:      calls,
		sleep:      sleepCtx,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(jitterCeiling)))
		},
	}
	if apiKey != "" {
		c.requestOptions = []option.RequestOption{option.WithAPIKey(apiKey)}
		c.api = openai.NewClient(c.requestOptions...)
		c.configured = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return c != nil && c.configured
}

// GenerateText asks the chat model for a completion. An unconfigured
// client returns "" with no error so callers fall through to their
// deterministic fallbacks.
func (c *Client) GenerateText(ctx context.Context, instructions, input string, temperature float64) (string, error) {
	if !c.Configured() {
		return "", nil
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.textModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instructions),
			openai.UserMessage(input),
		},
		Temperature: openai.Float(temperature),
	}
	start := time.Now()
	var text string
	err := c.withBackoff(ctx, func() error {
		resp, err := c.api.Chat.Completions.New(ctx, params)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("ai: empty choices in completion")
		}
		text = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ai: text generation: %w", err)
	}
	c.calls.Record(CallRecord{
		Model:       c.textModel,
		Temperature: temperature,
		InputSize:   len(instructions) + len(input),
		OutputSize:  len(text),
		LatencyMs:   time.Since(start).Milliseconds(),
	})
	return text, nil
}

// GenerateImage renders one 1024x1024 image and returns its base64
// payload. Unconfigured clients and payload-free responses return ""
// with no error; the renderer substitutes a stock asset.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", nil
	}
	params := openai.ImageGenerateParams{
		Model:  openai.ImageModel(c.imageModel),
		Prompt: prompt,
		Size:   openai.ImageGenerateParamsSize1024x1024,
	}
	start := time.Now()
	var b64 string
	err := c.withBackoff(ctx, func() error {
		resp, err := c.api.Images.Generate(ctx, params)
		if err != nil {
			return err
		}
		if len(resp.Data) > 0 {
			b64 = resp.Data[0].B64JSON
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ai: image generation: %w", err)
	}
	c.calls.Record(CallRecord{
		Model:      c.imageModel,
		InputSize:  len(prompt),
		OutputSize: len(b64),
		LatencyMs:  time.Since(start).Milliseconds(),
	})
	return b64, nil
}

// withBackoff retries transient provider failures with a multiplicative
// delay plus jitter. Non-transient errors and exhausted retries are
// returned to the caller unchanged.
func (c *Client) withBackoff(ctx context.Context, call func() error) error {
	delay := baseDelay
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = call(); err == nil {
			return nil
		}
		if !isTransient(err) || attempt == maxAttempts-1 {
			return err
		}
		if werr := c.sleep(ctx, delay+c.jitter()); werr != nil {
			return werr
		}
		delay = time.Duration(float64(delay) * backoffFactor)
	}
	return err
}

func isTransient(err error) bool {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return transientStatus[apierr.StatusCode]
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
