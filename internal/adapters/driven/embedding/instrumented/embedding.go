// Package instrumented wraps an embedding service with Prometheus metrics
// and structured logging.
package instrumented

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService records request counts, latency and errors for inner.
type EmbeddingService struct {
	inner    driven.EmbeddingService
	provider string
	metrics  *Metrics
}

// New wraps inner. provider labels every metric.
func New(inner driven.EmbeddingService, provider string, metrics *Metrics) *EmbeddingService {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &EmbeddingService{inner: inner, provider: provider, metrics: metrics}
}

// Embed delegates to the inner service and records the call.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	v, err := s.inner.Embed(ctx, text)
	s.observe(ctx, 1, time.Since(start), err)
	return v, err
}

// EmbedBatch delegates to the inner service and records the call.
// Empty input is passed through without being counted.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	start := time.Now()
	out, err := s.inner.EmbedBatch(ctx, texts)
	s.observe(ctx, len(texts), time.Since(start), err)
	return out, err
}

func (s *EmbeddingService) observe(_ context.Context, n int, d time.Duration, err error) {
	model := s.inner.ModelName()
	if err != nil {
		s.metrics.Requests.WithLabelValues(s.provider, model, "error").Inc()
		s.metrics.Errors.WithLabelValues(s.provider, model, errorType(err)).Inc()
		logger.L().Warn("embedding request failed",
			zap.String("provider", s.provider),
			zap.String("model", model),
			zap.Int("texts", n),
			zap.Duration("duration", d),
			zap.Error(err),
		)
		return
	}

	s.metrics.Requests.WithLabelValues(s.provider, model, "success").Inc()
	s.metrics.Texts.WithLabelValues(s.provider, model).Add(float64(n))
	s.metrics.Duration.WithLabelValues(s.provider, model).Observe(d.Seconds())
	logger.L().Debug("embedding request completed",
		zap.String("provider", s.provider),
		zap.String("model", model),
		zap.Int("texts", n),
		zap.Duration("duration", d),
	)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotAvailable):
		return "not_available"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "provider_error"
	}
}

// Dimensions returns the inner service dimension.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the inner model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping delegates to the inner service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the inner service.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}
