package embeddings

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// OllamaEmbedder generates image embeddings through a local Ollama server.
type OllamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaEmbedder points at an Ollama server, e.g.
// NewOllamaEmbedder("http://localhost", 11434, "llava").
func NewOllamaEmbedder(baseURL string, port int, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		baseURL: fmt.Sprintf("%s:%d", baseURL, port),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Ping verifies the server is reachable so callers can fall back to the
// NullEmbedder before ingestion starts.
func (e *OllamaEmbedder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not reachable at %s: %v", e.baseURL, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

type embeddingRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Encode reads the image and requests its embedding from Ollama.
func (e *OllamaEmbedder) Encode(ctx context.Context, imagePath string) ([]float32, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image '%s': %v", imagePath, err)
	}
	return e.embed(ctx, embeddingRequest{
		Model:  e.model,
		Prompt: "",
		Images: []string{base64.StdEncoding.EncodeToString(imageData)},
	}, imagePath)
}

// EncodeText embeds query text into the same space as the frames.
func (e *OllamaEmbedder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, embeddingRequest{Model: e.model, Prompt: text}, text)
}

func (e *OllamaEmbedder) embed(ctx context.Context, request embeddingRequest, subject string) ([]float32, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding request returned status %d", resp.StatusCode)
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %v", err)
	}
	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for '%s'", subject)
	}

	embedding := make([]float32, len(decoded.Embedding))
	for i, v := range decoded.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}
