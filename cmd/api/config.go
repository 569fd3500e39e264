package main

import (
	"fmt"
	"os"
	"strconv"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/feedback"
)

// config is the process configuration, read from the environment after .env
// has been loaded.
type config struct {
	Addr           string
	LogLevel       string
	OTelLogs       bool
	Calculator     calculator.Settings
	FeedbackBuffer int
}

func loadConfig() (config, error) {
	cfg := config{
		Addr:           envOr("HTTP_ADDR", ":8080"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		Calculator:     calculator.DefaultSettings(),
		FeedbackBuffer: feedback.DefaultQueueSize,
	}

	var err error

	if cfg.OTelLogs, err = envBool("OTEL_LOGS_ENABLED", false); err != nil {
		return config{}, err
	}

	if theme := os.Getenv("CALCULATOR_THEME"); theme != "" {
		cfg.Calculator.Theme = calculator.Theme(theme)
	}
	if cfg.Calculator.SoundEnabled, err = envBool("CALCULATOR_SOUND_ENABLED", cfg.Calculator.SoundEnabled); err != nil {
		return config{}, err
	}
	if cfg.Calculator.Precision, err = envInt("CALCULATOR_PRECISION", cfg.Calculator.Precision); err != nil {
		return config{}, err
	}
	if err := cfg.Calculator.Validate(); err != nil {
		return config{}, fmt.Errorf("calculator settings: %w", err)
	}

	if cfg.FeedbackBuffer, err = envInt("CALCULATOR_FEEDBACK_BUFFER", cfg.FeedbackBuffer); err != nil {
		return config{}, err
	}
	if cfg.FeedbackBuffer <= 0 {
		return config{}, fmt.Errorf("CALCULATOR_FEEDBACK_BUFFER must be positive, got %d", cfg.FeedbackBuffer)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
