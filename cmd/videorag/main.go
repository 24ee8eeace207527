package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"log/slog"

	"github.com/lmittmann/tint"

	"github.com/bdougie/videorag/internal/answer"
	"github.com/bdougie/videorag/internal/config"
	"github.com/bdougie/videorag/internal/embeddings"
	"github.com/bdougie/videorag/internal/ingest"
	"github.com/bdougie/videorag/internal/retrieval"
	"github.com/bdougie/videorag/internal/storage"
	"github.com/bdougie/videorag/internal/transcript"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  videorag ingest --video path/to/video.mp4")
	fmt.Println("  videorag query --video-id name --question \"what happens?\"")
	os.Exit(1)
}

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage()
	}
	command := os.Args[1]

	// Parse command line arguments
	var videoPath, videoID, question string
	for i := 2; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--video":
			if i+1 < len(os.Args) {
				videoPath = os.Args[i+1]
				i++
			}
		case "--video-id":
			if i+1 < len(os.Args) {
				videoID = os.Args[i+1]
				i++
			}
		case "--question":
			if i+1 < len(os.Args) {
				question = os.Args[i+1]
				i++
			}
		}
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Configure logger
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.SlogLevel(),
			TimeFormat: "15:04:05",
		}),
	)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open frame store: %v", err)
	}
	defer store.Close()

	embedder := selectEmbedder(ctx, cfg, logger)

	switch command {
	case "ingest":
		if videoPath == "" {
			usage()
		}
		runIngest(ctx, cfg, store, embedder, logger, videoPath)
	case "query":
		if videoID == "" || question == "" {
			usage()
		}
		runQuery(ctx, cfg, store, embedder, logger, videoID, question)
	default:
		usage()
	}
}

// openStore picks Postgres+pgvector when configured, else the embedded
// SQLite store.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.FrameStore, error) {
	if cfg.UsePostgres() {
		pgConfig := storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			DBName:   cfg.PostgresDB,
		}
		if err := storage.InitPostgresSchema(ctx, pgConfig, cfg.EmbeddingDim); err != nil {
			return nil, err
		}
		logger.Info("using postgres frame store", "host", cfg.PostgresHost, "db", cfg.PostgresDB)
		return storage.NewPostgresStore(ctx, pgConfig)
	}

	logger.Info("using sqlite frame store", "path", cfg.DBPath())
	return storage.NewSQLiteStore(cfg.DBPath())
}

// selectEmbedder degrades to the null embedder when Ollama is unreachable.
func selectEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) embeddings.Embedder {
	ollama := embeddings.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.OllamaPort, cfg.EmbedModel)
	if err := ollama.Ping(ctx); err != nil {
		logger.Warn("embedder unavailable, frames will be stored without vectors", "error", err)
		return embeddings.NullEmbedder{}
	}
	return ollama
}

func runIngest(ctx context.Context, cfg *config.Config, store storage.FrameStore, embedder embeddings.Embedder, logger *slog.Logger, videoPath string) {
	embedSvc := embeddings.NewService(embedder, cfg.EmbedWorkers)
	defer embedSvc.Close()

	var transcriber transcript.Transcriber
	if whisper, err := transcript.NewWhisperCLI(cfg.WhisperModel, logger); err != nil {
		logger.Warn("audio transcripts will be skipped", "error", err)
		transcriber = transcript.NullTranscriber{}
	} else {
		transcriber = whisper
	}

	pipeline := ingest.New(cfg, embedSvc, store, transcriber, logger)
	result, err := pipeline.ProcessVideo(ctx, videoPath)
	if err != nil {
		log.Printf("Error processing video: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Processed '%s': %d keyframes across %d segments\n",
		result.VideoID, result.Keyframes, result.Segments)
	fmt.Printf("Temporal graph saved to %s\n", result.GraphPath)
}

func runQuery(ctx context.Context, cfg *config.Config, store storage.FrameStore, embedder embeddings.Embedder, logger *slog.Logger, videoID, question string) {
	generator := selectGenerator(ctx, cfg, logger)

	retriever := retrieval.New(cfg, store, embedder, generator, logger)
	result, err := retriever.Ask(ctx, videoID, question)
	if errors.Is(err, answer.ErrNoEvidence) {
		fmt.Println("I couldn't find any segment in the video that clearly matches this question.")
		return
	}
	if err != nil {
		log.Printf("Error answering question: %v", err)
		os.Exit(1)
	}

	fmt.Println(result)
}

// selectGenerator degrades to the deterministic textual generator when the
// reasoning model is unavailable.
func selectGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) answer.Generator {
	reasoningAgent, err := answer.NewAgent(ctx, logger, cfg.OllamaBaseURL, cfg.OllamaPort, cfg.ChatModel)
	if err != nil {
		logger.Warn("reasoning model unavailable, answers will be structural only", "error", err)
		return answer.TextGenerator{}
	}
	return answer.NewAgentGenerator(reasoningAgent, logger)
}
