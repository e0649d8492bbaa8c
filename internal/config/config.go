package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the agent backend.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	TasksFile    string
	SettingsFile string
	DatabaseURL  string

	ProbeAddr       string
	ProbeTimeout    time.Duration
	MonitorInterval time.Duration

	OllamaURL  string
	FastModel  string
	SmartModel string
	LLMTimeout time.Duration

	GoogleCredentialsFile string
	GoogleTokenFile       string
	GoogleRedirectURL     string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "donna"),
		AllowAnyOrigin:   false,

		TasksFile:    envOrDefault("APP_TASKS_FILE", "tasks.json"),
		SettingsFile: envOrDefault("APP_SETTINGS_FILE", "settings.json"),
		DatabaseURL:  stringsTrimSpace("DATABASE_URL"),

		// 8.8.8.8:53 answers fast from anywhere, which keeps the probe a
		// reliable reachability signal rather than a latency test.
		ProbeAddr:       envOrDefault("CONNECTIVITY_PROBE_ADDR", "8.8.8.8:53"),
		ProbeTimeout:    3 * time.Second,
		MonitorInterval: 10 * time.Second,

		OllamaURL:  envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		FastModel:  envOrDefault("LLM_FAST_MODEL", "llama3.2"),
		SmartModel: envOrDefault("LLM_SMART_MODEL", "qwen2.5:14b"),
		// local models on modest hardware can take minutes on a long plan
		LLMTimeout: 5 * time.Minute,

		GoogleCredentialsFile: envOrDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		GoogleTokenFile:       envOrDefault("GOOGLE_TOKEN_FILE", "token.json"),
		GoogleRedirectURL:     stringsTrimSpace("GOOGLE_REDIRECT_URL"),

		ShutdownTimeout: 15 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ProbeTimeout, err = durationFromEnv("CONNECTIVITY_PROBE_TIMEOUT", cfg.ProbeTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MonitorInterval, err = durationFromEnv("CONNECTIVITY_MONITOR_INTERVAL", cfg.MonitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTimeout, err = durationFromEnv("LLM_TIMEOUT", cfg.LLMTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.ProbeTimeout <= 0 {
		return Config{}, fmt.Errorf("CONNECTIVITY_PROBE_TIMEOUT must be positive")
	}
	if cfg.MonitorInterval < time.Second {
		return Config{}, fmt.Errorf("CONNECTIVITY_MONITOR_INTERVAL must be at least 1s")
	}
	if cfg.LLMTimeout <= 0 {
		return Config{}, fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if cfg.FastModel == "" || cfg.SmartModel == "" {
		return Config{}, fmt.Errorf("LLM_FAST_MODEL and LLM_SMART_MODEL must be set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
