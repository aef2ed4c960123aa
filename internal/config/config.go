package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string `yaml:"port"`
		ResetPerMinute int    `yaml:"reset_per_minute"`
	} `yaml:"server"`
	Log   LogConfig `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	Quiz struct {
		TTL           string `yaml:"ttl"`
		BankID        string `yaml:"bank_id"`
		QuestionsFile string `yaml:"questions_file"`
		Duration      string `yaml:"duration"`
		FeedbackDelay string `yaml:"feedback_delay"`
	} `yaml:"quiz"`
	Leaderboard struct {
		DefaultLimit int `yaml:"default_limit"`
		MaxLimit     int `yaml:"max_limit"`
		FeedSize     int `yaml:"feed_size"`
		PageSize     int `yaml:"page_size"`
	} `yaml:"leaderboard"`
	Client struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"client"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads YAML config from path. A missing file yields the zero config,
// so every consumer falls back to its defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// IntOr returns v when positive, fallback otherwise.
func IntOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// StringOr returns v when non-empty, fallback otherwise.
func StringOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
