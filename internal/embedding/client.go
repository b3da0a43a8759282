package embedding

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kiku/pkg/utils"
)

const (
	DefaultBatchSize = 32
	DefaultTimeout   = 5 * time.Minute
)

// Client wraps a Provider with batching, bounded concurrency, per-request timeouts,
// retry, response validation, L2 normalization and an optional cache.
type Client struct {
	provider    Provider
	batchSize   int
	concurrency int
	timeout     time.Duration
	retry       RetryConfig
	cache       *Cache
	logger      *zap.Logger

	dimensions atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout bounds each provider request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithDimensions fixes the expected vector length. Responses of another length are rejected.
func WithDimensions(n int) Option {
	return func(c *Client) { c.dimensions.Store(int64(n)) }
}

func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = utils.OrNop(l) }
}

// NewClient creates a Client over p.
func NewClient(p Provider, opts ...Option) *Client {
	c := &Client{
		provider:    p,
		batchSize:   DefaultBatchSize,
		concurrency: 1,
		timeout:     DefaultTimeout,
		retry:       DefaultRetryConfig(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed embeds a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts and returns one unit vector per text in input order.
// Any failing batch aborts the whole call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		g.Go(func() error {
			return c.embedInto(gctx, texts[start:end], out[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// embedInto fills dst with the embeddings of texts, serving what it can from the cache.
func (c *Client) embedInto(ctx context.Context, texts []string, dst [][]float32) error {
	var missing []int
	for i, t := range texts {
		if c.cache != nil {
			if v, ok := c.cache.Get(Key(c.provider.Model(), t)); ok {
				dst[i] = v
				continue
			}
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}

	var vecs [][]float32
	err := withRetry(ctx, c.retry, func() error {
		var err error
		vecs, err = c.request(ctx, batch)
		if err != nil && IsRetryable(err) {
			c.logger.Warn("embedding request failed, retrying", zap.Int("batch", len(batch)), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return err
	}

	for j, i := range missing {
		dst[i] = vecs[j]
		if c.cache != nil {
			c.cache.Set(Key(c.provider.Model(), texts[i]), vecs[j])
		}
	}
	return nil
}

// request performs one validated provider call under the configured timeout.
func (c *Client) request(ctx context.Context, texts []string) ([][]float32, error) {
	rctx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("requesting embeddings", zap.String("model", c.provider.Model()), zap.Int("count", len(texts)))
	vecs, err := c.provider.EmbedTexts(rctx, texts)
	if err != nil {
		// The parent context ending is the caller's decision, not a service fault.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if rctx.Err() != nil && !IsRetryable(err) {
			return nil, &ServiceError{Op: "request", Retryable: true, Err: err}
		}
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, malformed("expected %d embeddings, got %d", len(texts), len(vecs))
	}

	want := int(c.dimensions.Load())
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, malformed("empty embedding at position %d", i)
		}
		if want == 0 {
			want = len(v)
			c.dimensions.CompareAndSwap(0, int64(want))
		}
		if len(v) != want {
			return nil, malformed("embedding %d has dimension %d, want %d", i, len(v), want)
		}
		if !utils.NormalizeL2(v) {
			return nil, malformed("embedding %d has zero or non-finite norm", i)
		}
	}
	return vecs, nil
}

// Dimensions returns the configured dimension, or the one observed in the first response.
func (c *Client) Dimensions() int { return int(c.dimensions.Load()) }

// Model returns the provider's model name.
func (c *Client) Model() string { return c.provider.Model() }

func (c *Client) Close() error { return nil }
