package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"speechwriter/internal/config"
)

// set up slog logger according to level and format; defaults to info/json.
func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = tint.NewHandler(w, &tint.Options{Level: lvl, TimeFormat: time.TimeOnly})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// Flags shared by every subcommand.
type commonFlags struct {
	config    string
	envFile   string
	logLevel  string
	logFormat string
}

func addCommonFlags(cmd *cobra.Command, cf *commonFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&cf.config, "config", "config.json", "Path to config file")
	pf.StringVar(&cf.envFile, "env-file", ".env", "Path to .env file")
	pf.StringVar(&cf.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&cf.logFormat, "log-format", "", "Log format: json, text")
}

// loadConfig resolves file, env and flag layers, then installs the logger.
func loadConfig(cmd *cobra.Command, cf *commonFlags, flags config.Overrides) (config.Config, error) {
	if err := config.LoadDotEnv(cf.envFile); err != nil {
		return config.Config{}, err
	}
	fileCfg, err := config.LoadFile(cf.config)
	if err != nil {
		return config.Config{}, err
	}
	flags.LogLevel = changed(cmd, "log-level", cf.logLevel)
	flags.LogFormat = changed(cmd, "log-format", cf.logFormat)
	env, secrets := config.FromEnv()
	cfg := config.Merge(fileCfg, env, flags, secrets)
	setupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// changed returns &v when the named flag was set on the command line.
func changed[T any](cmd *cobra.Command, name string, v T) *T {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}
