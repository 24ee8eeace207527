// Package config provides configuration for the videorag pipeline.
// Values are read from environment variables with sensible defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// Default slicing parameters
	DefaultThresholdMultiplier = 3.0
	DefaultMinThreshold        = 10.0
	DefaultMotionPersistence   = 3
	DefaultWindowSize          = 100

	// Default retrieval parameters
	DefaultContextWindowSeconds = 5.0
	DefaultSearchLimit          = 5

	// Default model settings
	DefaultOllamaBaseURL = "http://localhost"
	DefaultOllamaPort    = 11434
	DefaultEmbedModel    = "llava"
	DefaultChatModel     = "llama3.2-vision:11b"
	DefaultEmbeddingDim  = 4096
	DefaultWhisperModel  = "small"

	DefaultDataDir      = ".videorag"
	DefaultEmbedWorkers = 4

	// Environment variable names
	EnvLogLevel      = "VIDEORAG_LOG_LEVEL"
	EnvDataDir       = "VIDEORAG_DATA_DIR"
	EnvThresholdMult = "VIDEORAG_THRESHOLD_MULTIPLIER"
	EnvMinThreshold  = "VIDEORAG_MIN_THRESHOLD"
	EnvMotionFrames  = "VIDEORAG_MOTION_PERSISTENCE"
	EnvWindowSize    = "VIDEORAG_WINDOW_SIZE"
	EnvContextWindow = "VIDEORAG_CONTEXT_WINDOW_SECONDS"
	EnvOllamaBaseURL = "VIDEORAG_OLLAMA_BASE_URL"
	EnvOllamaPort    = "VIDEORAG_OLLAMA_PORT"
	EnvEmbedModel    = "VIDEORAG_EMBED_MODEL"
	EnvChatModel     = "VIDEORAG_CHAT_MODEL"
	EnvEmbeddingDim  = "VIDEORAG_EMBEDDING_DIM"
	EnvWhisperModel  = "VIDEORAG_WHISPER_MODEL"

	EnvPostgresHost     = "VIDEORAG_POSTGRES_HOST"
	EnvPostgresPort     = "VIDEORAG_POSTGRES_PORT"
	EnvPostgresUser     = "VIDEORAG_POSTGRES_USER"
	EnvPostgresPassword = "VIDEORAG_POSTGRES_PASSWORD"
	EnvPostgresDB       = "VIDEORAG_POSTGRES_DB"
)

// Config holds the resolved application configuration.
type Config struct {
	LogLevel string
	DataDir  string

	ThresholdMultiplier  float64
	MinThreshold         float64
	MotionPersistence    int
	WindowSize           int
	ContextWindowSeconds float64

	OllamaBaseURL string
	OllamaPort    int
	EmbedModel    string
	ChatModel     string
	EmbeddingDim  int
	WhisperModel  string
	EmbedWorkers  int

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
}

// New builds a Config from defaults overridden by environment variables.
func New() (*Config, error) {
	cfg := &Config{
		LogLevel:             "debug",
		DataDir:              defaultDataDir(),
		ThresholdMultiplier:  DefaultThresholdMultiplier,
		MinThreshold:         DefaultMinThreshold,
		MotionPersistence:    DefaultMotionPersistence,
		WindowSize:           DefaultWindowSize,
		ContextWindowSeconds: DefaultContextWindowSeconds,
		OllamaBaseURL:        DefaultOllamaBaseURL,
		OllamaPort:           DefaultOllamaPort,
		EmbedModel:           DefaultEmbedModel,
		ChatModel:            DefaultChatModel,
		EmbeddingDim:         DefaultEmbeddingDim,
		WhisperModel:         DefaultWhisperModel,
		EmbedWorkers:         DefaultEmbedWorkers,
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvOllamaBaseURL); v != "" {
		cfg.OllamaBaseURL = v
	}
	if v := os.Getenv(EnvEmbedModel); v != "" {
		cfg.EmbedModel = v
	}
	if v := os.Getenv(EnvChatModel); v != "" {
		cfg.ChatModel = v
	}
	if v := os.Getenv(EnvWhisperModel); v != "" {
		cfg.WhisperModel = v
	}

	var err error
	if cfg.ThresholdMultiplier, err = floatEnv(EnvThresholdMult, cfg.ThresholdMultiplier); err != nil {
		return nil, err
	}
	if cfg.MinThreshold, err = floatEnv(EnvMinThreshold, cfg.MinThreshold); err != nil {
		return nil, err
	}
	if cfg.ContextWindowSeconds, err = floatEnv(EnvContextWindow, cfg.ContextWindowSeconds); err != nil {
		return nil, err
	}
	if cfg.MotionPersistence, err = intEnv(EnvMotionFrames, cfg.MotionPersistence); err != nil {
		return nil, err
	}
	if cfg.WindowSize, err = intEnv(EnvWindowSize, cfg.WindowSize); err != nil {
		return nil, err
	}
	if cfg.OllamaPort, err = intEnv(EnvOllamaPort, cfg.OllamaPort); err != nil {
		return nil, err
	}
	if cfg.EmbeddingDim, err = intEnv(EnvEmbeddingDim, cfg.EmbeddingDim); err != nil {
		return nil, err
	}

	if cfg.MotionPersistence < 1 {
		return nil, fmt.Errorf("invalid %s: must be at least 1", EnvMotionFrames)
	}
	if cfg.WindowSize < 1 {
		return nil, fmt.Errorf("invalid %s: must be at least 1", EnvWindowSize)
	}
	if cfg.ContextWindowSeconds < 0 {
		return nil, fmt.Errorf("invalid %s: must not be negative", EnvContextWindow)
	}

	cfg.PostgresHost = os.Getenv(EnvPostgresHost)
	cfg.PostgresPort = os.Getenv(EnvPostgresPort)
	if cfg.PostgresPort == "" {
		cfg.PostgresPort = "5432"
	}
	cfg.PostgresUser = os.Getenv(EnvPostgresUser)
	cfg.PostgresPassword = os.Getenv(EnvPostgresPassword)
	cfg.PostgresDB = os.Getenv(EnvPostgresDB)

	return cfg, nil
}

// SlogLevel maps the configured log level name onto slog's levels.
// Unrecognized values fall back to debug.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// UsePostgres reports whether a Postgres frame store is configured.
// Without one, the embedded SQLite store is used.
func (c *Config) UsePostgres() bool {
	return c.PostgresHost != "" && c.PostgresDB != ""
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "videorag.db")
}

// FramesDir returns the directory retained keyframes are written under.
func (c *Config) FramesDir() string {
	return filepath.Join(c.DataDir, "extracted_frames")
}

// GraphPath returns the temporal graph file for one video.
func (c *Config) GraphPath(videoID string) string {
	return filepath.Join(c.DataDir, videoID+"_kg.json")
}

// TranscriptPath returns the transcript file for one video.
func (c *Config) TranscriptPath(videoID string) string {
	return filepath.Join(c.DataDir, videoID+"_transcript.json")
}

func floatEnv(name string, def float64) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return f, nil
}

func intEnv(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return i, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}
