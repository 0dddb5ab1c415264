package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"speechwriter/internal/ai"
	"speechwriter/internal/catalog"
	"speechwriter/internal/config"
	"speechwriter/internal/server"
	"speechwriter/internal/speech"
	"speechwriter/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Narration defaults per provider. ElevenLabs has no default voice id.
const (
	openAITTSModel  = "gpt-4o-mini-tts"
	openAIVoice     = "alloy"
	elevenLabsModel = "eleven_multilingual_v2"
)

type serveFlags struct {
	addr          string
	runtimeURL    string
	runtimeModel  string
	pollSeconds   int
	stylesBackend string
	stylesPath    string
	bucket        string
	prefix        string
	region        string
	ttsProvider   string
	voice         string
}

func newServeCmd(cf *commonFlags) *cobra.Command {
	var sf serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, cf, sf.overrides(cmd))
			if err != nil {
				return err
			}
			if err := config.ValidateForServe(cfg); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&sf.addr, "addr", "", "Listen address (host:port)")
	fs.StringVar(&sf.runtimeURL, "runtime-url", "", "Base URL of the model runtime")
	fs.StringVar(&sf.runtimeModel, "runtime-model", "", "Model name served by the runtime")
	fs.IntVar(&sf.pollSeconds, "runtime-poll", 0, "Seconds between runtime health checks at startup")
	fs.StringVar(&sf.stylesBackend, "styles-backend", "", "Style catalog backend: file, s3")
	fs.StringVar(&sf.stylesPath, "styles-path", "", "Style catalog file for the file backend")
	fs.StringVar(&sf.bucket, "bucket", "", "S3 bucket for the s3 backend")
	fs.StringVar(&sf.prefix, "prefix", "", "S3 key prefix")
	fs.StringVar(&sf.region, "region", "", "AWS region")
	fs.StringVar(&sf.ttsProvider, "tts-provider", "", "Narration provider: openai, elevenlabs")
	fs.StringVar(&sf.voice, "voice", "", "Default narration voice")
	return cmd
}

func (sf serveFlags) overrides(cmd *cobra.Command) config.Overrides {
	return config.Overrides{
		Addr:               changed(cmd, "addr", sf.addr),
		RuntimeURL:         changed(cmd, "runtime-url", sf.runtimeURL),
		RuntimeModel:       changed(cmd, "runtime-model", sf.runtimeModel),
		RuntimePollSeconds: changed(cmd, "runtime-poll", sf.pollSeconds),
		StylesBackend:      changed(cmd, "styles-backend", sf.stylesBackend),
		StylesPath:         changed(cmd, "styles-path", sf.stylesPath),
		S3Bucket:           changed(cmd, "bucket", sf.bucket),
		S3Prefix:           changed(cmd, "prefix", sf.prefix),
		Region:             changed(cmd, "region", sf.region),
		TTSProvider:        changed(cmd, "tts-provider", sf.ttsProvider),
		Voice:              changed(cmd, "voice", sf.voice),
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := ai.New(cfg.RuntimeURL, cfg.RuntimeAPIKey, cfg.RuntimeModel)
	if err != nil {
		return err
	}
	store, err := newStyleStore(ctx, cfg)
	if err != nil {
		return err
	}
	narration, err := newNarration(cfg)
	if err != nil {
		return err
	}

	generator := speech.NewGenerator(rt, speech.NewParamStore())
	svc := server.NewService(generator, catalog.New(store), narration)

	// Requests are answered with 503 until the runtime reports ready.
	go func() {
		interval := time.Duration(cfg.RuntimePollSeconds) * time.Second
		if err := rt.WaitReady(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("model runtime never became ready", "err", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- svc.ListenAndServe(cfg.Addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return svc.Shutdown(shutdownCtx)
}

func newStyleStore(ctx context.Context, cfg config.Config) (catalog.Store, error) {
	switch strings.ToLower(cfg.StylesBackend) {
	case config.StylesBackendS3:
		bucket, err := storage.New(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.Region)
		if err != nil {
			return nil, err
		}
		store := catalog.NewObjectStore(bucket)
		slog.Info("style catalog", "backend", "s3", "bucket", bucket.Name(), "key", store.Key())
		return store, nil
	case "", config.StylesBackendFile:
		store := catalog.NewFileStore(cfg.StylesPath)
		slog.Info("style catalog", "backend", "file", "path", store.Path())
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported styles backend: %s", cfg.StylesBackend)
	}
}

// newNarration returns nil when no provider key is configured.
func newNarration(cfg config.Config) (*server.Narration, error) {
	if !config.NarrationEnabled(cfg) {
		slog.Info("narration disabled", "provider", cfg.TTSProvider)
		return nil, nil
	}
	n := &server.Narration{Model: cfg.TTSModel, Voice: cfg.Voice}
	switch strings.ToLower(strings.TrimSpace(cfg.TTSProvider)) {
	case "elevenlabs":
		c, err := ai.NewElevenLabs(cfg.ElevenLabsAPIKey)
		if err != nil {
			return nil, err
		}
		n.Client = c
		n.Model = cmp.Or(n.Model, elevenLabsModel)
	default:
		c, err := ai.NewOpenAITTS(cfg.OpenAIAPIKey, "")
		if err != nil {
			return nil, err
		}
		n.Client = c
		n.Model = cmp.Or(n.Model, openAITTSModel)
		n.Voice = cmp.Or(n.Voice, openAIVoice)
	}
	slog.Info("narration enabled", "provider", cfg.TTSProvider, "model", n.Model, "voice", n.Voice)
	return n, nil
}
