// Package embeddings turns retained keyframes into fixed-length vectors.
// A worker pool fans requests out to the configured Embedder and caches
// results by frame path.
package embeddings

import (
	"context"
	"fmt"
	"sync"
)

// Embedder converts images and query text into fixed-length vectors in a
// shared space. It must be deterministic for identical input and model
// version.
type Embedder interface {
	Encode(ctx context.Context, imagePath string) ([]float32, error)
	EncodeText(ctx context.Context, text string) ([]float32, error)
}

// NullEmbedder is the degraded-mode implementation: frames are stored
// without vectors and similarity search is unavailable, but the rest of the
// pipeline keeps working.
type NullEmbedder struct{}

// Encode returns no vector and no error.
func (NullEmbedder) Encode(ctx context.Context, imagePath string) ([]float32, error) {
	return nil, nil
}

// EncodeText returns no vector and no error.
func (NullEmbedder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

// Result represents the result of embedding generation.
type Result struct {
	FramePath string
	Embedding []float32
	Error     error
}

// Work represents a unit of embedding work.
type Work struct {
	FramePath string
	Result    chan<- Result
}

// Service manages embedding generation and caching.
type Service struct {
	embedder   Embedder
	numWorkers int
	workQueue  chan Work
	cache      sync.Map // frame path -> []float32
	wg         sync.WaitGroup
}

// NewService creates an embedding service with the specified number of workers.
func NewService(embedder Embedder, numWorkers int) *Service {
	if numWorkers <= 0 {
		numWorkers = 4
	}

	service := &Service{
		embedder:   embedder,
		numWorkers: numWorkers,
		workQueue:  make(chan Work, 100),
	}
	service.startWorkers()
	return service
}

// startWorkers starts a pool of goroutines for generating embeddings.
func (s *Service) startWorkers() {
	for i := 0; i < s.numWorkers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for work := range s.workQueue {
				// Check cache first
				if cached, ok := s.cache.Load(work.FramePath); ok {
					if embedding, valid := cached.([]float32); valid {
						work.Result <- Result{
							FramePath: work.FramePath,
							Embedding: embedding,
						}
						continue
					}
				}

				embedding, err := s.embedder.Encode(context.Background(), work.FramePath)
				if err == nil && embedding != nil {
					s.cache.Store(work.FramePath, embedding)
				}

				work.Result <- Result{
					FramePath: work.FramePath,
					Embedding: embedding,
					Error:     err,
				}
			}
		}()
	}
}

// GetEmbedding requests an embedding generation asynchronously. It never
// blocks: when the work queue is full the result carries an error
// immediately. Batch callers should use EncodeAll, which queues with
// backpressure instead.
func (s *Service) GetEmbedding(framePath string) <-chan Result {
	resultChan := make(chan Result, 1)

	select {
	case s.workQueue <- Work{FramePath: framePath, Result: resultChan}:
		// Work queued successfully
	default:
		resultChan <- Result{
			FramePath: framePath,
			Error:     fmt.Errorf("embedding queue is full, try again later"),
		}
		close(resultChan)
	}

	return resultChan
}

// EncodeAll embeds every path in order, returning one vector slot per path.
// Submission blocks when the work queue is full, so batches larger than the
// queue drain through the workers instead of failing. Individual failures
// leave a nil slot rather than aborting the batch.
func (s *Service) EncodeAll(paths []string) ([][]float32, []error) {
	pending := make([]chan Result, len(paths))
	for i, path := range paths {
		pending[i] = make(chan Result, 1)
		s.workQueue <- Work{FramePath: path, Result: pending[i]}
	}

	vectors := make([][]float32, len(paths))
	var errs []error
	for i, ch := range pending {
		result := <-ch
		if result.Error != nil {
			errs = append(errs, fmt.Errorf("embedding '%s' failed: %v", paths[i], result.Error))
			continue
		}
		vectors[i] = result.Embedding
	}
	return vectors, errs
}

// Close shuts down the embedding service and waits for all workers to finish.
func (s *Service) Close() {
	if s.workQueue != nil {
		close(s.workQueue)
	}
	s.wg.Wait()
}
