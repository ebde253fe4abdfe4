// Package fhevmfx installs a provider.Provider into a go.uber.org/fx
// application. The provider is mounted when the application starts and
// unmounted when it stops.
package fhevmfx

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/logging"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/provider"
)

// Params are the dependencies the module picks up from the application.
// Both are optional.
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Logger     *zap.Logger           `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

type settings struct {
	clientOpts  []fhevm.Option
	waitOnStart bool
}

// Option customizes the module.
type Option func(*settings)

// WithClientOptions forwards options to the underlying fhevm.Client.
func WithClientOptions(opts ...fhevm.Option) Option {
	return func(s *settings) { s.clientOpts = append(s.clientOpts, opts...) }
}

// WaitOnStart makes application start block until initialization has
// finished, bounded by fx's start timeout. Initialization errors are
// reported through the provider state, not as start failures.
func WaitOnStart() Option {
	return func(s *settings) { s.waitOnStart = true }
}

// Module provides a *provider.Provider for cfg.
func Module(cfg fhevm.Config, opts ...Option) fx.Option {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	return fx.Module("fhevm",
		fx.Provide(func(p Params) *provider.Provider {
			return newProvider(p, cfg, s)
		}),
		fx.Invoke(func(*provider.Provider) {}),
	)
}

func newProvider(p Params, cfg fhevm.Config, s settings) *provider.Provider {
	clientOpts := append([]fhevm.Option(nil), s.clientOpts...)
	if p.Registerer != nil {
		clientOpts = append(clientOpts, fhevm.WithMetrics(fhevm.NewMetrics(p.Registerer)))
	}

	var providerOpts []provider.Option
	if p.Logger != nil {
		providerOpts = append(providerOpts, provider.WithLogger(logging.NewZap(p.Logger.Named("fhevm"))))
	}
	providerOpts = append(providerOpts, provider.WithClientOptions(clientOpts...))

	prov := provider.New(cfg, providerOpts...)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Initialization outlives the start hook's deadline.
			prov.Mount(context.WithoutCancel(ctx))
			if !s.waitOnStart {
				return nil
			}
			_, err := prov.Wait(ctx)
			return err
		},
		OnStop: func(context.Context) error {
			prov.Unmount()
			return nil
		},
	})
	return prov
}
