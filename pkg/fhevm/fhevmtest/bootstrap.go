package fhevmtest

import (
	"context"
	"sync"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
)

// Bootstrapper hands out a fresh Engine per CreateInstance call and counts
// the calls.
type Bootstrapper struct {
	mu      sync.Mutex
	opts    []EngineOption
	err     error
	gate    chan struct{}
	calls   int
	engines []*Engine
}

var _ fhevm.Bootstrapper = (*Bootstrapper)(nil)

// NewBootstrapper returns a bootstrapper whose engines are built with opts.
// The config's chain id is applied first, so opts can override it.
func NewBootstrapper(opts ...EngineOption) *Bootstrapper {
	return &Bootstrapper{opts: opts}
}

// FailWith makes later CreateInstance calls return err. A nil err restores
// normal behavior.
func (b *Bootstrapper) FailWith(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

// Hold blocks later CreateInstance calls until release is called or their
// context ends.
func (b *Bootstrapper) Hold() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.gate == gate {
				b.gate = nil
			}
			b.mu.Unlock()
			close(gate)
		})
	}
}

func (b *Bootstrapper) CreateInstance(ctx context.Context, cfg fhevm.Config) (fhevm.Engine, error) {
	b.mu.Lock()
	b.calls++
	gate := b.gate
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	opts := append([]EngineOption{WithChainID(cfg.ChainID)}, b.opts...)
	e := NewEngine(opts...)
	b.engines = append(b.engines, e)
	return e, nil
}

// Calls returns how many times CreateInstance ran.
func (b *Bootstrapper) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Engines returns the engines created so far.
func (b *Bootstrapper) Engines() []*Engine {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Engine(nil), b.engines...)
}

// Config returns a valid config for tests.
func Config() fhevm.Config {
	return fhevm.Config{
		ChainID:    8009,
		NetworkURL: "https://devnet.zama.ai",
		GatewayURL: "https://gateway.zama.ai",
		ACLAddress: "0x1234567890123456789012345678901234567890",
	}
}
