package speech

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrModelNotReady is returned when generation is attempted before the model
// runtime has finished loading.
var ErrModelNotReady = errors.New("Модель не загружена. Подождите.")

// Runtime is the model capability the generator drives.
type Runtime interface {
	Ready() bool
	// Tokenize encodes text, truncated to at most maxLength tokens.
	Tokenize(ctx context.Context, text string, maxLength int) ([]int64, error)
	// Generate continues tokens and returns the full sequence, prompt included.
	// The end-of-sequence token is both the padding and the stop token.
	Generate(ctx context.Context, tokens []int64, p Params) ([]int64, error)
	// Detokenize decodes tokens, keeping role delimiters.
	Detokenize(ctx context.Context, tokens []int64) (string, error)
}

// Generator turns speech requests into transcripts.
type Generator struct {
	runtime Runtime
	params  *ParamStore
}

func NewGenerator(runtime Runtime, params *ParamStore) *Generator {
	if params == nil {
		params = NewParamStore()
	}
	return &Generator{runtime: runtime, params: params}
}

// Params returns the store whose live value governs every call.
func (g *Generator) Params() *ParamStore { return g.params }

// Ready reports whether the runtime can serve generation calls.
func (g *Generator) Ready() bool { return g.runtime != nil && g.runtime.Ready() }

// GenerateSpeech builds the prompt for req, runs the model with the current
// parameters and returns the assistant's reply. Runtime errors are returned
// unchanged.
func (g *Generator) GenerateSpeech(ctx context.Context, req Request, styles map[string]string) (string, error) {
	if !g.Ready() {
		return "", ErrModelNotReady
	}
	prompt, err := BuildPrompt(req, styles)
	if err != nil {
		return "", err
	}
	params := g.params.Current()

	start := time.Now()
	tokens, err := g.runtime.Tokenize(ctx, prompt, params.MaxLength)
	if err != nil {
		return "", err
	}
	slog.Debug("prompt tokenized", "tokens", len(tokens), "maxLength", params.MaxLength)

	output, err := g.runtime.Generate(ctx, tokens, params)
	if err != nil {
		return "", err
	}
	slog.Debug("generation finished", "outputTokens", len(output), "elapsed", time.Since(start).String())

	decoded, err := g.runtime.Detokenize(ctx, output)
	if err != nil {
		return "", err
	}
	reply := ExtractReply(decoded, prompt)
	if reply.Source == ReplyFallback {
		slog.Warn("assistant delimiter missing from model output", "decodedLen", len(decoded))
	}
	slog.Info("speech generated", "style", req.Style, "words", WordCount(reply.Text), "source", reply.Source.String())
	return reply.Text, nil
}
