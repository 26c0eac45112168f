package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/linkedin-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/linkedin-analyzer/internal/infra/ai/prompt"
)

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = float32(0.7)

	// upper bound on an error body kept for reporting
	maxErrorBody = 1 << 20
)

type Options struct {
	BaseURL string
	Model   string
	// Temperature is nil for the default; a pointer to 0 asks for greedy decoding.
	Temperature *float32
	Timeout     time.Duration
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to Groq's OpenAI-compatible chat completions endpoint.
type Client struct {
	config      openai.ClientConfig
	apiKey      string
	model       string
	temperature float32
	timeout     time.Duration
	transport   http.RoundTripper
}

func NewClient(apiKey string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	temperature := DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}

	// a trailing newline from a YAML block or key file would break the header
	apiKey = strings.TrimSpace(apiKey)
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &Client{
		config:      cfg,
		apiKey:      apiKey,
		model:       opts.Model,
		temperature: temperature,
		timeout:     opts.Timeout,
		transport:   opts.Transport,
	}
}

func (c *Client) Model() string { return c.model }

// Analyze sends one chat completion request. Every failure is an *ai.Error.
func (c *Client) Analyze(ctx context.Context, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", &ai.Error{Kind: ai.KindConfigMissing}
	}

	// per-call transport so the raw body of a failed response can be reported
	capture := &captureTransport{base: c.transport}
	cfg := c.config
	cfg.HTTPClient = &http.Client{Transport: capture, Timeout: c.timeout}
	api := openai.NewClientWithConfig(cfg)

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: wireTemperature(c.temperature),
	}

	resp, err := api.CreateChatCompletion(ctx, req)
	if capture.status != 0 {
		return "", &ai.Error{Kind: ai.KindRemote, Status: capture.status, Body: string(capture.body), Err: err}
	}
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ai.Error{Kind: ai.KindMalformed, Err: errors.New("response has no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// wireTemperature keeps an explicit 0 on the wire; go-openai omits a zero temperature
// and the server would fall back to its own default.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// classify maps errors that did not come with a non-200 response.
func classify(err error) *ai.Error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ai.Error{Kind: ai.KindTransport, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ai.Error{Kind: ai.KindMalformed, Err: fmt.Errorf("decode completion: %w", err)}
	}
	return &ai.Error{Kind: ai.KindTransport, Err: err}
}

// captureTransport records status and body of any non-200 response and hands
// an identical body on to the caller.
type captureTransport struct {
	base   http.RoundTripper
	status int
	body   []byte
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.status, t.body = 0, nil

	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode == http.StatusOK {
		return resp, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	t.status, t.body = resp.StatusCode, body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

var _ ai.Client = (*Client)(nil)
