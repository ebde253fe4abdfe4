package fhevm

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/logging"
)

// Client owns the lifecycle of one Engine for one Config. It starts
// uninitialized; Init makes it ready. A failed Init leaves it uninitialized
// so the call can be retried.
type Client struct {
	cfg          Config
	bootstrapper Bootstrapper
	cache        *InstanceCache
	logger       logging.Logger
	metrics      *Metrics

	mu     sync.RWMutex
	engine Engine

	// initFlight coalesces overlapping Init calls on this client.
	initFlight singleflight.Group
}

// Option customizes a Client.
type Option func(*Client)

// WithBootstrapper sets how the external engine is loaded. Without one, Init
// fails with ErrEngineUnavailable.
func WithBootstrapper(b Bootstrapper) Option {
	return func(c *Client) {
		if b != nil {
			c.bootstrapper = b
		}
	}
}

// WithInstanceCache replaces DefaultInstanceCache for this client.
func WithInstanceCache(cache *InstanceCache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient validates cfg and returns an uninitialized client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	valid, err := CreateConfig(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:          valid,
		bootstrapper: unavailableBootstrapper{},
		cache:        DefaultInstanceCache,
		logger:       logging.New(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("chainId", valid.ChainID, "gateway", valid.GatewayURL)
	return c, nil
}

// Init makes the client ready. It returns immediately when the client is
// already ready, adopts a cached engine when caching is enabled, and
// otherwise bootstraps the external module.
//
// Overlapping calls on one client share a single attempt and observe the
// context of the first caller. Clients sharing a cache also share the
// bootstrap for a cache key, but each only observes its own context: the
// bootstrap itself is not cancelled when one of them gives up.
func (c *Client) Init(ctx context.Context) error {
	if c.IsReady() {
		return nil
	}

	_, err, _ := c.initFlight.Do("init", func() (any, error) {
		if c.IsReady() {
			return nil, nil
		}
		engine, err := c.resolveEngine(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.engine = engine
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (c *Client) resolveEngine(ctx context.Context) (Engine, error) {
	if !c.cfg.Caching() {
		return c.bootstrap(ctx)
	}

	key := c.cfg.CacheKey()
	engine, hit, err := c.cache.getOrCreate(ctx, key, c.bootstrap)
	if err != nil {
		return nil, err
	}
	if hit {
		c.metrics.observeCacheHit()
		c.logger.Debug(ctx, "adopted cached engine", "cacheKey", key)
	}
	return engine, nil
}

func (c *Client) bootstrap(ctx context.Context) (Engine, error) {
	c.logger.Debug(ctx, "bootstrapping engine")

	engine, err := c.bootstrapper.CreateInstance(ctx, c.cfg)
	if err == nil && engine == nil {
		err = ErrEngineUnavailable
	}
	c.metrics.observeBootstrap(err)
	if err != nil {
		c.logger.Warn(ctx, "engine bootstrap failed", "err", err)
		return nil, initError(err)
	}

	c.logger.Info(ctx, "engine ready")
	return engine, nil
}

// Engine returns the engine handle. It fails with ErrInstanceNotReady until
// Init has succeeded and never triggers initialization.
func (c *Client) Engine() (Engine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.engine == nil {
		return nil, notReadyError("engine")
	}
	return c.engine, nil
}

// IsReady reports whether Init has succeeded.
func (c *Client) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine != nil
}

// Config returns the validated config.
func (c *Client) Config() Config {
	return c.cfg
}

// Logger returns the client logger, for bindings that log on its behalf.
func (c *Client) Logger() logging.Logger {
	return c.logger
}

// Metrics returns the configured metrics, possibly nil.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}
