package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	elevenLabsDefaultBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultOutputFormat = "mp3_44100_128"
)

// ElevenLabsOption configures the ElevenLabs client.
type ElevenLabsOption func(*ElevenLabsClient)

// WithElevenLabsBaseURL sets the ElevenLabs API base URL.
func WithElevenLabsBaseURL(baseURL string) ElevenLabsOption {
	return func(c *ElevenLabsClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// ElevenLabsClient narrates text with the ElevenLabs text-to-speech API.
type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabs constructs a new ElevenLabs client. The apiKey is required.
func NewElevenLabs(apiKey string, opts ...ElevenLabsOption) (*ElevenLabsClient, error) {
	if apiKey == "" {
		return nil, errors.New("ELEVENLABS_API_KEY is required")
	}
	c := &ElevenLabsClient{
		apiKey:     apiKey,
		baseURL:    elevenLabsDefaultBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ElevenLabsVoiceSettings tunes delivery. Speeches read better with a
// steadier voice than the API defaults.
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

func DefaultElevenLabsVoiceSettings() ElevenLabsVoiceSettings {
	return ElevenLabsVoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		UseSpeakerBoost: true,
	}
}

// ElevenLabsAPIError captures error details from ElevenLabs responses.
type ElevenLabsAPIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ElevenLabsAPIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("elevenlabs api error: %s", e.Status)
	}
	return fmt.Sprintf("elevenlabs api error: %s: %s", e.Status, e.Body)
}

// TTS writes MP3 audio to w. voice is an ElevenLabs voice id.
func (c *ElevenLabsClient) TTS(ctx context.Context, model, voice, text string, w io.Writer) error {
	if strings.TrimSpace(voice) == "" {
		return errors.New("voice_id is required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("text is required")
	}

	endpoint, err := url.Parse(strings.TrimRight(c.baseURL, "/"))
	if err != nil {
		return fmt.Errorf("parse elevenlabs base url: %w", err)
	}
	endpoint.Path = "/v1/text-to-speech/" + url.PathEscape(voice)
	endpoint.RawQuery = url.Values{"output_format": {elevenLabsDefaultOutputFormat}}.Encode()

	var buf bytes.Buffer
	err = json.NewEncoder(&buf).Encode(struct {
		Text          string                  `json:"text"`
		ModelID       string                  `json:"model_id,omitempty"`
		VoiceSettings ElevenLabsVoiceSettings `json:"voice_settings"`
	}{Text: text, ModelID: model, VoiceSettings: DefaultElevenLabsVoiceSettings()})
	if err != nil {
		return fmt.Errorf("encode elevenlabs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &buf)
	if err != nil {
		return fmt.Errorf("build elevenlabs request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("accept", "audio/mpeg")
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return &ElevenLabsAPIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
