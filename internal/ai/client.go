package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"speechwriter/internal/speech"
)

// Local inference servers accept any bearer token.
const placeholderAPIKey = "sk-no-key-required"

// ErrNoChoices is returned when the server answers a completion without text.
var ErrNoChoices = errors.New("completion returned no choices")

// Client drives an OpenAI-compatible inference server (llama.cpp, vLLM)
// through the official SDK. Completions go to {baseURL}/v1; tokenizer and
// health endpoints live at the server root.
type Client struct {
	baseURL string
	model   string
	sdk     openai.Client
	ready   atomic.Bool
}

// New constructs a runtime client for the server at baseURL serving model.
// apiKey is optional.
func New(baseURL, apiKey, model string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("runtime base url is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("runtime model is required")
	}
	if apiKey == "" {
		apiKey = placeholderAPIKey
	}
	sdk := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL+"/v1/"),
		option.WithMaxRetries(0),
	)
	return &Client{baseURL: baseURL, model: model, sdk: sdk}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }
func (c *Client) Model() string   { return c.model }

// Ready reports whether the server has finished loading the model.
func (c *Client) Ready() bool { return c.ready.Load() }

func (c *Client) rootURL() option.RequestOption {
	return option.WithBaseURL(c.baseURL + "/")
}

type healthResponse struct {
	Status string `json:"status"`
}

// Health queries the server's health endpoint. Servers answer 503 while the
// weights are still loading. Any 2xx is healthy: vLLM replies with an empty
// body, llama.cpp with {"status":"ok"}. A JSON status other than "ok" is not.
func (c *Client) Health(ctx context.Context) error {
	var body []byte
	if err := c.sdk.Get(ctx, "health", nil, &body, c.rootURL()); err != nil {
		return err
	}
	var res healthResponse
	if json.Unmarshal(body, &res) == nil && res.Status != "" && res.Status != "ok" {
		return fmt.Errorf("runtime status %q", res.Status)
	}
	return nil
}

// WaitReady polls Health every interval until the server reports ready or
// ctx ends. Once ready, the client stays ready.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	slog.Info("waiting for model runtime", "baseURL", c.baseURL, "model", c.model)
	for {
		err := c.Health(ctx)
		if err == nil {
			c.ready.Store(true)
			slog.Info("model runtime ready", "model", c.model)
			return nil
		}
		slog.Debug("model runtime not ready", "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

type tokenizeRequest struct {
	Content      string `json:"content"`
	AddSpecial   bool   `json:"add_special"`
	ParseSpecial bool   `json:"parse_special"`
}

type tokenizeResponse struct {
	Tokens []int64 `json:"tokens"`
}

type detokenizeRequest struct {
	Tokens []int64 `json:"tokens"`
}

type detokenizeResponse struct {
	Content string `json:"content"`
}

func (c *Client) tokenize(ctx context.Context, text string, addSpecial bool) ([]int64, error) {
	var res tokenizeResponse
	req := tokenizeRequest{Content: text, AddSpecial: addSpecial, ParseSpecial: true}
	if err := c.sdk.Post(ctx, "tokenize", req, &res, c.rootURL()); err != nil {
		return nil, err
	}
	return res.Tokens, nil
}

// Tokenize encodes text and keeps the first maxLength tokens.
func (c *Client) Tokenize(ctx context.Context, text string, maxLength int) ([]int64, error) {
	tokens, err := c.tokenize(ctx, text, true)
	if err != nil {
		return nil, err
	}
	if maxLength > 0 && len(tokens) > maxLength {
		tokens = tokens[:maxLength]
	}
	return tokens, nil
}

// Generate runs a completion over tokens and returns tokens followed by the
// generated continuation. do_sample=false is sent as temperature 0.
func (c *Client) Generate(ctx context.Context, tokens []int64, p speech.Params) ([]int64, error) {
	temperature := p.Temperature
	if !p.DoSample {
		temperature = 0
	}
	req := openai.CompletionNewParams{
		Model:       openai.CompletionNewParamsModel(c.model),
		Prompt:      openai.CompletionNewParamsPromptUnion{OfArrayOfTokens: tokens},
		MaxTokens:   openai.Int(int64(p.MaxNewTokens)),
		Temperature: openai.Float(temperature),
		TopP:        openai.Float(p.TopP),
	}
	res, err := c.sdk.Completions.New(ctx, req,
		option.WithJSONSet("top_k", p.TopK),
		option.WithJSONSet("repetition_penalty", p.RepetitionPenalty),
		option.WithJSONSet("ignore_eos", false),
	)
	if err != nil {
		return nil, err
	}
	if len(res.Choices) == 0 {
		return nil, ErrNoChoices
	}
	continuation, err := c.tokenize(ctx, res.Choices[0].Text, false)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(tokens)+len(continuation))
	out = append(out, tokens...)
	return append(out, continuation...), nil
}

// Detokenize decodes tokens, role delimiters included.
func (c *Client) Detokenize(ctx context.Context, tokens []int64) (string, error) {
	var res detokenizeResponse
	if err := c.sdk.Post(ctx, "detokenize", detokenizeRequest{Tokens: tokens}, &res, c.rootURL()); err != nil {
		return "", err
	}
	return res.Content, nil
}
