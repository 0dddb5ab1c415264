package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speechwriter/internal/speech"
)

// fakeInferenceServer mimics the llama.cpp server endpoints the client uses.
type fakeInferenceServer struct {
	healthy    atomic.Bool
	completion map[string]any
	// healthBody, when set, replaces the llama.cpp health reply; it is
	// written without a content type.
	healthBody *string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeInferenceServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !f.healthy.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": map[string]any{"message": "Loading model"}})
			return
		}
		if f.healthBody != nil {
			w.Header()["Content-Type"] = nil
			_, _ = io.WriteString(w, *f.healthBody)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		tokens := []int64{}
		for i := range []rune(req["content"].(string)) {
			tokens = append(tokens, int64(i+1))
		}
		if req["add_special"] == true {
			tokens = append([]int64{0}, tokens...)
		}
		writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
	})
	mux.HandleFunc("/detokenize", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tokens []int64 `json:"tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, map[string]any{"content": "<|assistant|>\nспич<|end|>"})
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.completion))
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "cmpl-1",
			"object":  "text_completion",
			"created": 0,
			"model":   "phi-3",
			"choices": []map[string]any{{"index": 0, "text": "abc", "finish_reason": "stop", "logprobs": nil}},
		})
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeInferenceServer) {
	t.Helper()
	fake := &fakeInferenceServer{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", "", "phi-3")
	require.NoError(t, err)
	return c, fake
}

func TestNewClientRequiresBaseURLAndModel(t *testing.T) {
	_, err := New("", "", "phi-3")
	assert.Error(t, err)
	_, err = New("http://localhost:8080", "", " ")
	assert.Error(t, err)
}

func TestNewClientStoresFields(t *testing.T) {
	c, err := New("http://localhost:8080/", "sk-test", "phi-3")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.BaseURL())
	assert.Equal(t, "phi-3", c.Model())
	assert.False(t, c.Ready())
}

func TestWaitReadyPollsUntilHealthy(t *testing.T) {
	c, fake := newTestClient(t)
	go func() {
		time.Sleep(30 * time.Millisecond)
		fake.healthy.Store(true)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.WaitReady(ctx, 10*time.Millisecond))
	assert.True(t, c.Ready())
}

func TestWaitReadyAcceptsAnySuccessBody(t *testing.T) {
	for name, body := range map[string]string{
		"empty body":           "",
		"json without headers": `{"status":"ok"}`,
		"plain text":           "OK",
	} {
		t.Run(name, func(t *testing.T) {
			c, fake := newTestClient(t)
			fake.healthBody = &body
			fake.healthy.Store(true)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			require.NoError(t, c.WaitReady(ctx, 10*time.Millisecond))
			assert.True(t, c.Ready())
		})
	}
}

func TestHealthRejectsNonOKStatus(t *testing.T) {
	c, fake := newTestClient(t)
	body := `{"status":"loading model"}`
	fake.healthBody = &body
	fake.healthy.Store(true)
	assert.ErrorContains(t, c.Health(context.Background()), "loading model")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.WaitReady(ctx, 10*time.Millisecond), context.DeadlineExceeded)
	assert.False(t, c.Ready())
}

func TestWaitReadyStopsOnContext(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.WaitReady(ctx, 10*time.Millisecond), context.DeadlineExceeded)
	assert.False(t, c.Ready())
}

func TestTokenizeTruncatesHead(t *testing.T) {
	c, _ := newTestClient(t)
	tokens, err := c.Tokenize(context.Background(), "abcdef", 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3}, tokens)

	all, err := c.Tokenize(context.Background(), "ab", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, all)
}

func TestGenerateSendsAllParams(t *testing.T) {
	c, fake := newTestClient(t)
	p := speech.DefaultParams()
	p.TopK = 30
	p.RepetitionPenalty = 1.2

	out, err := c.Generate(context.Background(), []int64{7, 8}, p)
	require.NoError(t, err)
	// prompt tokens followed by the tokenized "abc" continuation
	assert.Equal(t, []int64{7, 8, 1, 2, 3}, out)

	assert.Equal(t, "phi-3", fake.completion["model"])
	assert.Equal(t, []any{7.0, 8.0}, fake.completion["prompt"])
	assert.Equal(t, 2048.0, fake.completion["max_tokens"])
	assert.InEpsilon(t, 0.7, fake.completion["temperature"], 0.0001)
	assert.InEpsilon(t, 0.9, fake.completion["top_p"], 0.0001)
	assert.Equal(t, 30.0, fake.completion["top_k"])
	assert.InEpsilon(t, 1.2, fake.completion["repetition_penalty"], 0.0001)
	assert.Equal(t, false, fake.completion["ignore_eos"])
}

func TestGenerateGreedyWhenSamplingDisabled(t *testing.T) {
	c, fake := newTestClient(t)
	p := speech.DefaultParams()
	p.DoSample = false

	_, err := c.Generate(context.Background(), []int64{1}, p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fake.completion["temperature"])
}

func TestDetokenize(t *testing.T) {
	c, _ := newTestClient(t)
	text, err := c.Detokenize(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "<|assistant|>\nспич<|end|>", text)
}

func TestClientDrivesGenerator(t *testing.T) {
	c, fake := newTestClient(t)
	fake.healthy.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.WaitReady(ctx, time.Millisecond))

	gen := speech.NewGenerator(c, speech.NewParamStore())
	req := speech.NewRequest("Тема", 3)
	got, err := gen.GenerateSpeech(ctx, req, map[string]string{"professional": "Деловой"})
	require.NoError(t, err)
	assert.Equal(t, "спич", got)
}

func TestOpenAITTS(t *testing.T) {
	var got map[string]any
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-speech"))
	}))
	defer srv.Close()

	c, err := NewOpenAITTS("sk-test", srv.URL+"/")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, c.TTS(context.Background(), "gpt-4o-mini-tts", "alloy", "Добрый день", &buf))
	assert.Equal(t, "/audio/speech", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini-tts", got["model"])
	assert.Equal(t, "alloy", got["voice"])
	assert.Equal(t, "Добрый день", got["input"])
	assert.Equal(t, "mp3", got["response_format"])
	assert.Equal(t, "ID3-speech", buf.String())
}

func TestOpenAITTSAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"message": "invalid voice"}})
	}))
	defer srv.Close()

	c, err := NewOpenAITTS("sk-test", srv.URL+"/")
	require.NoError(t, err)
	var buf bytes.Buffer
	assert.Error(t, c.TTS(context.Background(), "gpt-4o-mini-tts", "nobody", "text", &buf))
	assert.Zero(t, buf.Len())
}

func TestElevenLabsTTS(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	c, err := NewElevenLabs("el-key", WithElevenLabsBaseURL(srv.URL))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, c.TTS(context.Background(), "eleven_multilingual_v2", "voice-1", "Добрый день", &buf))
	assert.Equal(t, "/v1/text-to-speech/voice-1", gotPath)
	assert.Equal(t, "el-key", gotKey)
	assert.Equal(t, "mp3", buf.String())
}

func TestElevenLabsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewElevenLabs("el-key", WithElevenLabsBaseURL(srv.URL))
	require.NoError(t, err)
	err = c.TTS(context.Background(), "", "voice-1", "text", io.Discard)
	var apiErr *ElevenLabsAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "quota exceeded")
}

func TestNewTTSClientsRequireKeys(t *testing.T) {
	_, err := NewOpenAITTS("", "")
	assert.Error(t, err)
	_, err = NewElevenLabs("")
	assert.Error(t, err)
}
