package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/linkaudit/internal/model"
)

// Step is one stage of an audit. Steps are executed in sequence, each
// receiving the result accumulated by the previous steps.
type Step interface {
	// Do executes the step against result.
	// Problems with individual files or links are recorded in result and
	// Do returns nil; a returned error means the step could not run at all.
	Do(ctx context.Context, result *model.AuditResult) error

	// Name identifies the step in logs and in result.PerformedSteps.
	Name() string
}

// Pipeline runs audit steps in order against one AuditResult.
// A Pipeline holds no per-audit state, but steps may; use one Pipeline
// per concurrent audit.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. A nil logger selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps running the remaining steps after a step
// fails. The last failure is still recorded in the result.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Append adds steps to the end of the pipeline and returns p.
func (p *Pipeline) Append(steps ...Step) *Pipeline {
	p.steps = append(p.steps, steps...)
	return p
}

// Execute runs every step against result.
//
// Cancellation is checked between steps: when ctx is done the result is
// marked TimedOut and ctx.Err() is returned, keeping whatever earlier
// steps produced. A step error is recorded in result as "<step>: <err>"
// and, unless the pipeline continues on error, returned.
func (p *Pipeline) Execute(ctx context.Context, result *model.AuditResult) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("audit cancelled",
				"project", result.ProjectRoot,
				"before", step.Name(),
				"reason", err,
			)
			result.TimedOut = true
			return err
		}

		start := time.Now()
		err := step.Do(ctx, result)
		result.PerformedSteps = append(result.PerformedSteps, step.Name())

		if err != nil {
			err = fmt.Errorf("%s: %w", step.Name(), err)
			result.Error = err
			result.ErrorMessage = err.Error()
			p.logger.Error("step failed", "project", result.ProjectRoot, "error", err)

			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step done",
			"project", result.ProjectRoot,
			"step", step.Name(),
			"elapsed", time.Since(start).Round(time.Microsecond),
		)
	}

	return nil
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
