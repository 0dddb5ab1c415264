package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StylesBackendFile = "file"
	StylesBackendS3   = "s3"
)

// Config holds resolved configuration values after merging file, env, and flags.
type Config struct {
	Addr      string `json:"addr,omitempty"`
	LogLevel  string `json:"logLevel,omitempty"`
	LogFormat string `json:"logFormat,omitempty"`

	RuntimeURL         string `json:"runtimeURL,omitempty"`
	RuntimeModel       string `json:"runtimeModel,omitempty"`
	RuntimePollSeconds int    `json:"runtimePollSeconds,omitempty"`

	StylesBackend string `json:"stylesBackend,omitempty"`
	StylesPath    string `json:"stylesPath,omitempty"`
	S3Bucket      string `json:"s3Bucket,omitempty"`
	S3Prefix      string `json:"s3Prefix,omitempty"`
	Region        string `json:"region,omitempty"`

	TTSProvider string `json:"ttsProvider,omitempty"`
	TTSModel    string `json:"ttsModel,omitempty"`
	Voice       string `json:"voice,omitempty"`

	// Not persisted to file; sourced from env only.
	RuntimeAPIKey    string `json:"-"`
	OpenAIAPIKey     string `json:"-"`
	ElevenLabsAPIKey string `json:"-"`
}

// Overrides represents optional overrides from env or flags.
// Only non-nil pointers are applied during merge.
type Overrides struct {
	Addr               *string
	LogLevel           *string
	LogFormat          *string
	RuntimeURL         *string
	RuntimeModel       *string
	RuntimePollSeconds *int
	StylesBackend      *string
	StylesPath         *string
	S3Bucket           *string
	S3Prefix           *string
	Region             *string
	TTSProvider        *string
	TTSModel           *string
	Voice              *string
}

// Secrets are API keys read from the environment.
type Secrets struct {
	RuntimeAPIKey    string
	OpenAIAPIKey     string
	ElevenLabsAPIKey string
}

func Default() Config {
	return Config{
		Addr:               "0.0.0.0:8000",
		LogLevel:           "info",
		LogFormat:          "json",
		RuntimeURL:         "http://127.0.0.1:8080",
		RuntimeModel:       "microsoft/Phi-3-mini-4k-instruct",
		RuntimePollSeconds: 2,
		StylesBackend:      StylesBackendFile,
		StylesPath:         "speech_styles.json",
		S3Prefix:           "speechwriter",
		TTSProvider:        "openai",
	}
}

// LoadFile reads a JSON config. If file not found, returns defaults and no error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// FromEnv reads env vars and returns overrides and API keys.
func FromEnv() (Overrides, Secrets) {
	var ov Overrides
	str := func(key string, dst **string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = &v
		}
	}
	str("SPEECHWRITER_ADDR", &ov.Addr)
	str("SPEECHWRITER_LOG_LEVEL", &ov.LogLevel)
	str("SPEECHWRITER_LOG_FORMAT", &ov.LogFormat)
	str("SPEECHWRITER_RUNTIME_URL", &ov.RuntimeURL)
	str("SPEECHWRITER_RUNTIME_MODEL", &ov.RuntimeModel)
	str("SPEECHWRITER_STYLES_BACKEND", &ov.StylesBackend)
	str("SPEECHWRITER_STYLES_PATH", &ov.StylesPath)
	str("AWS_S3_BUCKET", &ov.S3Bucket)
	str("AWS_S3_PREFIX", &ov.S3Prefix)
	str("AWS_REGION", &ov.Region)
	str("SPEECHWRITER_TTS_PROVIDER", &ov.TTSProvider)
	str("SPEECHWRITER_TTS_MODEL", &ov.TTSModel)
	str("SPEECHWRITER_VOICE", &ov.Voice)
	if v, ok := os.LookupEnv("SPEECHWRITER_RUNTIME_POLL_SECONDS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			ov.RuntimePollSeconds = &n
		}
	}
	return ov, Secrets{
		RuntimeAPIKey:    os.Getenv("SPEECHWRITER_RUNTIME_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
	}
}

// Merge applies overrides in order: file -> env -> flags.
func Merge(fileCfg Config, env Overrides, flags Overrides, secrets Secrets) Config {
	cfg := fileCfg

	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	apply := func(ov Overrides) {
		setStr(&cfg.Addr, ov.Addr)
		setStr(&cfg.LogLevel, ov.LogLevel)
		setStr(&cfg.LogFormat, ov.LogFormat)
		setStr(&cfg.RuntimeURL, ov.RuntimeURL)
		setStr(&cfg.RuntimeModel, ov.RuntimeModel)
		if ov.RuntimePollSeconds != nil {
			cfg.RuntimePollSeconds = *ov.RuntimePollSeconds
		}
		setStr(&cfg.StylesBackend, ov.StylesBackend)
		setStr(&cfg.StylesPath, ov.StylesPath)
		setStr(&cfg.S3Bucket, ov.S3Bucket)
		setStr(&cfg.S3Prefix, ov.S3Prefix)
		setStr(&cfg.Region, ov.Region)
		setStr(&cfg.TTSProvider, ov.TTSProvider)
		setStr(&cfg.TTSModel, ov.TTSModel)
		setStr(&cfg.Voice, ov.Voice)
	}

	apply(env)
	apply(flags)

	cfg.RuntimeAPIKey = secrets.RuntimeAPIKey
	cfg.OpenAIAPIKey = secrets.OpenAIAPIKey
	cfg.ElevenLabsAPIKey = secrets.ElevenLabsAPIKey
	return cfg
}

// Validation helpers
func ValidateForServe(cfg Config) error {
	if cfg.Addr == "" {
		return errors.New("listen address is required")
	}
	if cfg.RuntimeURL == "" {
		return errors.New("runtime url is required")
	}
	if cfg.RuntimeModel == "" {
		return errors.New("runtime model is required")
	}
	return ValidateStyles(cfg)
}

func ValidateStyles(cfg Config) error {
	switch strings.ToLower(cfg.StylesBackend) {
	case "", StylesBackendFile:
		return nil
	case StylesBackendS3:
		if cfg.S3Bucket == "" {
			return errors.New("S3 bucket is required for the s3 styles backend")
		}
		return nil
	default:
		return fmt.Errorf("unsupported styles backend: %s", cfg.StylesBackend)
	}
}

// NarrationEnabled reports whether the configured TTS provider has a key.
func NarrationEnabled(cfg Config) bool {
	switch strings.ToLower(strings.TrimSpace(cfg.TTSProvider)) {
	case "", "openai":
		return cfg.OpenAIAPIKey != ""
	case "elevenlabs":
		return cfg.ElevenLabsAPIKey != ""
	default:
		return false
	}
}
