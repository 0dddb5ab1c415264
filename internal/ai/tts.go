package ai

import (
	"context"
	"errors"
	"io"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAITTS narrates text with the OpenAI Audio Speech API.
type OpenAITTS struct {
	sdk openai.Client
}

// NewOpenAITTS constructs a narration client. The apiKey is required.
// baseURL is optional (empty string uses the default API endpoint).
func NewOpenAITTS(apiKey, baseURL string) (*OpenAITTS, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAITTS{sdk: openai.NewClient(opts...)}, nil
}

// TTS writes MP3 audio to w.
func (c *OpenAITTS) TTS(ctx context.Context, model, voice, text string, w io.Writer) error {
	req := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	resp, err := c.sdk.Audio.Speech.New(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}
