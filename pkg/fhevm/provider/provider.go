package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/asaskevich/EventBus"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/logging"
)

// TopicState prefixes the bus topics on which state changes are published.
const TopicState = "fhevm:state"

// State is what a Provider exposes to its consumers.
type State struct {
	Client *fhevm.Client
	Engine fhevm.Engine
	Ready  bool
	Err    error
}

// Initialize constructs a client for cfg and runs Init unless cfg.AutoInit
// is false. alive is consulted once the work is done; when it reports false
// the result is discarded and ok is false.
//
// A failed Init yields a State carrying only the error.
func Initialize(ctx context.Context, cfg fhevm.Config, alive func() bool, opts ...fhevm.Option) (st State, ok bool) {
	client, err := fhevm.NewClient(cfg, opts...)
	if err == nil && client.Config().AutoInitEnabled() {
		err = client.Init(ctx)
	}
	if !alive() {
		return State{}, false
	}
	if err != nil {
		return State{Err: err}, true
	}

	st.Client = client
	if engine, err := client.Engine(); err == nil {
		st.Engine = engine
		st.Ready = true
	}
	return st, true
}

// Provider owns one client for the lifetime of a mount. It is the Go
// counterpart of a UI context provider: consumers read its State, wait for
// initialization, or subscribe to changes.
type Provider struct {
	cfg    fhevm.Config
	opts   []fhevm.Option
	logger logging.Logger
	bus    EventBus.Bus

	alive     atomic.Bool
	mountOnce sync.Once
	done      chan struct{}

	mu     sync.RWMutex
	state  State
	topics map[string]func(State)
	nextID uint64
}

// Option customizes a Provider.
type Option func(*Provider)

// WithClientOptions forwards options to the fhevm.Client the provider builds.
func WithClientOptions(opts ...fhevm.Option) Option {
	return func(p *Provider) { p.opts = append(p.opts, opts...) }
}

// WithLogger sets the provider logger. It is also handed to the client.
func WithLogger(l logging.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns an unmounted provider.
func New(cfg fhevm.Config, opts ...Option) *Provider {
	p := &Provider{
		cfg:    cfg,
		logger: logging.New(nil),
		bus:    EventBus.New(),
		done:   make(chan struct{}),
		topics: make(map[string]func(State)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.opts = append([]fhevm.Option{fhevm.WithLogger(p.logger)}, p.opts...)
	return p
}

// Mount starts initialization in the background. Only the first call has
// any effect. ctx bounds the initialization itself.
func (p *Provider) Mount(ctx context.Context) {
	p.mountOnce.Do(func() {
		p.alive.Store(true)
		go func() {
			defer close(p.done)
			st, ok := Initialize(ctx, p.cfg, p.alive.Load, p.opts...)
			if !ok {
				p.logger.Debug(ctx, "provider unmounted during initialization")
				return
			}
			if st.Err != nil {
				p.logger.Warn(ctx, "provider initialization failed", "err", st.Err)
			}
			if !p.set(st) {
				p.logger.Debug(ctx, "provider unmounted during initialization")
			}
		}()
	})
}

// Unmount marks the provider as gone. An initialization still in flight
// finishes, but its result is discarded.
func (p *Provider) Unmount() {
	p.mu.Lock()
	p.alive.Store(false)
	p.mu.Unlock()
}

// Mounted reports whether Mount was called and Unmount was not.
func (p *Provider) Mounted() bool {
	return p.alive.Load()
}

// State returns the current snapshot.
func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Wait blocks until initialization has finished or ctx ends, and returns
// the resulting state. It does not mount the provider.
func (p *Provider) Wait(ctx context.Context) (State, error) {
	select {
	case <-p.done:
		return p.State(), nil
	case <-ctx.Done():
		return p.State(), ctx.Err()
	}
}

// Subscribe calls fn synchronously with every new state. The returned
// function removes the subscription.
func (p *Provider) Subscribe(fn func(State)) (unsubscribe func(), err error) {
	p.mu.Lock()
	p.nextID++
	topic := fmt.Sprintf("%s/%d", TopicState, p.nextID)
	p.topics[topic] = fn
	p.mu.Unlock()

	if err := p.bus.Subscribe(topic, fn); err != nil {
		p.mu.Lock()
		delete(p.topics, topic)
		p.mu.Unlock()
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.topics, topic)
			p.mu.Unlock()
			_ = p.bus.Unsubscribe(topic, fn)
		})
	}, nil
}

// set publishes st unless the provider has been unmounted.
func (p *Provider) set(st State) bool {
	p.mu.Lock()
	if !p.alive.Load() {
		p.mu.Unlock()
		return false
	}
	p.state = st
	topics := make([]string, 0, len(p.topics))
	for topic := range p.topics {
		topics = append(topics, topic)
	}
	p.mu.Unlock()

	for _, topic := range topics {
		p.bus.Publish(topic, st)
	}
	return true
}
