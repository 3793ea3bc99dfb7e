package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/linkaudit/internal/model"
)

// singleStep returns a pipeline factory whose pipelines run do once.
func singleStep(do func(ctx context.Context, result *model.AuditResult) error) func() *Pipeline {
	return func() *Pipeline {
		return New().Append(funcStep{name: "audit", do: do})
	}
}

// projectRoots returns n distinct fake project roots.
func projectRoots(n int) []string {
	roots := make([]string, n)
	for i := range roots {
		roots[i] = fmt.Sprintf("/srv/site-%02d", i)
	}
	return roots
}

// TestNewBatchProcessor tests the constructor and its options.
func TestNewBatchProcessor(t *testing.T) {
	t.Parallel()

	factory := singleStep(nil)

	tests := []struct {
		name string
		opts []BatchOption
		want int
	}{
		{name: "default concurrency", want: DefaultBatchConcurrency},
		{name: "custom concurrency", opts: []BatchOption{WithConcurrency(3)}, want: 3},
		{name: "zero is ignored", opts: []BatchOption{WithConcurrency(0)}, want: DefaultBatchConcurrency},
		{name: "negative is ignored", opts: []BatchOption{WithConcurrency(-2)}, want: DefaultBatchConcurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bp := NewBatchProcessor(factory, tt.opts...)
			if bp.concurrency != tt.want {
				t.Errorf("concurrency = %d, want %d", bp.concurrency, tt.want)
			}
			if bp.logger == nil {
				t.Error("expected a logger")
			}
		})
	}
}

// TestProcessBatch tests concurrent auditing of several roots.
func TestProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns results in root order", func(t *testing.T) {
		t.Parallel()

		var audits atomic.Int32
		bp := NewBatchProcessor(singleStep(func(context.Context, *model.AuditResult) error {
			audits.Add(1)
			return nil
		}), WithConcurrency(3))

		roots := projectRoots(7)
		results, err := bp.ProcessBatch(context.Background(), roots)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if audits.Load() != 7 {
			t.Errorf("expected 7 audits, got %d", audits.Load())
		}
		for i, result := range results {
			if result == nil || result.ProjectRoot != roots[i] {
				t.Errorf("results[%d] = %+v, want root %q", i, result, roots[i])
			}
		}
	})

	t.Run("never exceeds the concurrency limit", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		bp := NewBatchProcessor(singleStep(func(context.Context, *model.AuditResult) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil
		}), WithConcurrency(2))

		if _, err := bp.ProcessBatch(context.Background(), projectRoots(8)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("peak concurrency %d, want <= 2", peak.Load())
		}
	})

	t.Run("a failed audit does not stop the others", func(t *testing.T) {
		t.Parallel()

		roots := projectRoots(3)
		bp := NewBatchProcessor(singleStep(func(_ context.Context, result *model.AuditResult) error {
			if result.ProjectRoot == roots[1] {
				return errors.New("route directory unreadable")
			}
			return nil
		}))

		results, err := bp.ProcessBatch(context.Background(), roots)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if results[1].Error == nil {
			t.Error("expected the failure to be recorded in results[1]")
		}
		if results[0].Error != nil || results[2].Error != nil {
			t.Errorf("unexpected errors: %v, %v", results[0].Error, results[2].Error)
		}
	})

	t.Run("cancellation leaves later roots unstarted", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		var started atomic.Int32
		bp := NewBatchProcessor(singleStep(func(ctx context.Context, _ *model.AuditResult) error {
			if started.Add(1) == 2 {
				cancel()
			}
			<-ctx.Done()
			return nil
		}), WithConcurrency(2))

		roots := projectRoots(10)
		results, err := bp.ProcessBatch(ctx, roots)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if int(started.Load()) >= len(roots) {
			t.Error("expected some roots to be skipped")
		}
		skipped := 0
		for _, r := range results {
			if r == nil {
				skipped++
			}
		}
		if skipped == 0 {
			t.Error("expected nil entries for skipped roots")
		}
	})
}

// TestProcessBatchWithCallback tests streaming results as audits complete.
func TestProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(singleStep(nil), WithConcurrency(4))
	roots := projectRoots(5)

	var mu sync.Mutex
	seen := make(map[int]string)
	err := bp.ProcessBatchWithCallback(context.Background(), roots, func(result *model.AuditResult, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = result.ProjectRoot
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != len(roots) {
		t.Fatalf("expected %d callbacks, got %d", len(roots), len(seen))
	}
	for i, root := range roots {
		if seen[i] != root {
			t.Errorf("callback index %d got %q, want %q", i, seen[i], root)
		}
	}
}
