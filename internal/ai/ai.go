package ai

import (
	"context"
	"io"

	"speechwriter/internal/speech"
)

// TTSClient synthesizes speech audio from text.
type TTSClient interface {
	TTS(ctx context.Context, model, voice, text string, w io.Writer) error
}

var (
	_ speech.Runtime = (*Client)(nil)
	_ TTSClient      = (*OpenAITTS)(nil)
	_ TTSClient      = (*ElevenLabsClient)(nil)
)
