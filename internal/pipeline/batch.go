package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkaudit/internal/model"
)

// DefaultBatchConcurrency is the number of concurrent audits used when
// WithConcurrency is not given.
const DefaultBatchConcurrency = 10

// BatchProcessor audits multiple project roots concurrently.
type BatchProcessor struct {
	// newPipeline is called once per root so that no step state is
	// shared between audits.
	newPipeline func() *Pipeline
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger for batch-level messages.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor that builds a fresh
// pipeline with newPipeline for every root.
func NewBatchProcessor(newPipeline func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		newPipeline: newPipeline,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch audits roots and returns their results in the order of
// roots. Failed audits are included; the failure is stored in the result.
// Roots never started because ctx was cancelled have a nil entry, and
// only then is the returned error non-nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, roots []string) ([]*model.AuditResult, error) {
	results := make([]*model.AuditResult, len(roots))
	err := bp.ProcessBatchWithCallback(ctx, roots, func(result *model.AuditResult, index int) {
		results[index] = result
	})
	return results, err
}

// ProcessBatchWithCallback audits roots and calls callback as each audit
// completes, with the index of its root. The callback runs on the worker
// goroutine and must be safe for concurrent use; distinct indexes may
// be written without locking.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	roots []string,
	callback func(result *model.AuditResult, index int),
) error {
	bp.logger.Info("batch started", "projects", len(roots), "concurrency", bp.concurrency)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, root := range roots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result := model.NewAuditResult(root)
			if err := bp.newPipeline().Execute(gctx, result); err != nil {
				bp.logger.Warn("audit failed", "project", root, "error", err)
			}
			callback(result, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch finished",
		"projects", len(roots),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return err
}
