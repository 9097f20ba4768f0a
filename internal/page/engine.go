package page

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Engine creates and tears down page sessions. It owns the shared HTTP
// transport and the HTML sanitizer; pages are cheap, the engine is not.
type Engine struct {
	client    *resty.Client
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// NewEngine creates a page engine with a retrying HTTP transport.
func NewEngine(logger *zap.Logger) *Engine {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 15 * time.Second
	retryClient.Logger = nil // Disable logging

	restyClient := resty.New()
	restyClient.
		SetTimeout(30 * time.Second).
		SetTransport(retryClient.HTTPClient.Transport)

	return &Engine{
		client:    restyClient,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger,
	}
}

// Create builds a fresh page session with its own script VM.
func (e *Engine) Create(ctx context.Context, opts Options) (*Page, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	vm, err := newVM(opts.MemoryHintMB)
	if err != nil {
		return nil, fmt.Errorf("failed to create script vm: %w", err)
	}

	p := &Page{
		id:     uuid.New().String(),
		opts:   opts,
		engine: e,
		vm:     vm,
	}

	e.logger.Debug("page created",
		zap.String("page_id", p.id),
		zap.Int("viewport_w", opts.ViewportWidth),
		zap.Int("viewport_h", opts.ViewportHeight),
	)
	return p, nil
}

// Destroy releases a page session. Safe to call on an already-closed page.
func (e *Engine) Destroy(ctx context.Context, p *Page) error {
	if p == nil {
		return nil
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("failed to close page %s: %w", p.id, err)
	}
	e.logger.Debug("page destroyed", zap.String("page_id", p.id))
	return nil
}
