package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkaudit/internal/model"
)

const (
	// DefaultSampleSize is how many external occurrences are probed.
	DefaultSampleSize = 10

	// DefaultConcurrency is the number of probes in flight.
	DefaultConcurrency = 5

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 5 * time.Second

	// DefaultUserAgent identifies probe traffic in the logs of linked sites.
	DefaultUserAgent = "linkaudit/1.0 (+https://github.com/nao1215/linkaudit)"

	// maxReasonLength bounds the error text stored in a finding.
	maxReasonLength = 50

	// maxRedirects stops redirect loops.
	maxRedirects = 10
)

// Prober issues HEAD requests against external links.
type Prober struct {
	client      *http.Client
	sampleSize  int
	concurrency int
	timeout     time.Duration
	userAgent   string
	logger      *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithSampleSize sets how many external occurrences are probed.
func WithSampleSize(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.sampleSize = n
		}
	}
}

// WithConcurrency sets the number of probes in flight.
func WithConcurrency(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Prober) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the HTTP client, for example with one that
// routes through a SOCKS5 proxy.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		if client != nil {
			p.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *Prober) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Prober with default settings.
func New(opts ...Option) *Prober {
	p := &Prober{
		sampleSize:  DefaultSampleSize,
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		p.client = &http.Client{CheckRedirect: limitRedirects}
	}

	return p
}

// SampleSize returns the number of occurrences Probe checks.
func (p *Prober) SampleSize() int {
	return p.sampleSize
}

// Sample returns the occurrences Probe would check.
func (p *Prober) Sample(external []model.LinkOccurrence) []model.LinkOccurrence {
	if len(external) > p.sampleSize {
		return external[:p.sampleSize]
	}
	return external
}

// Probe checks the sample of external occurrences and returns findings in
// sample order. If ctx is cancelled, the findings of completed probes are
// returned together with the context error.
func (p *Prober) Probe(ctx context.Context, external []model.LinkOccurrence) ([]model.Finding, error) {
	sample := p.Sample(external)
	slots := make([]*model.Finding, len(sample))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, occ := range sample {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			slots[i] = p.check(ctx, occ)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	findings := make([]model.Finding, 0, len(slots))
	for _, f := range slots {
		if f != nil {
			findings = append(findings, *f)
		}
	}

	return findings, ctx.Err()
}

// check probes one occurrence. It returns nil when the link is healthy or
// when the probe was interrupted by cancellation.
func (p *Prober) check(ctx context.Context, occ model.LinkOccurrence) *model.Finding {
	if ctx.Err() != nil {
		return nil
	}

	status, err := p.Head(ctx, occ.Link)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.logger.Debug("external link unreachable", "url", occ.Link, "error", err)
		f := model.NewFinding(model.FindingExternalUnreachable, occ,
			"could not validate external link: "+truncate(err.Error(), maxReasonLength))
		return &f
	}

	p.logger.Debug("external link probed", "url", occ.Link, "status", status)
	if status >= http.StatusBadRequest {
		f := model.NewFinding(model.FindingExternalStatus, occ,
			fmt.Sprintf("external link returned %d", status))
		return &f
	}
	return nil
}

// Head sends a HEAD request and returns the final status code after
// redirects.
func (p *Prober) Head(ctx context.Context, target string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// limitRedirects follows up to maxRedirects redirects.
func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return http.ErrUseLastResponse
	}
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
