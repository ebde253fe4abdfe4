package fhevmfx_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/fhevmfx"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/fhevmtest"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/provider"
)

func TestModuleMountsOnStart(t *testing.T) {
	boot := fhevmtest.NewBootstrapper()
	reg := prometheus.NewRegistry()

	var p *provider.Provider
	app := fxtest.New(t,
		fx.Supply(zaptest.NewLogger(t)),
		fx.Provide(func() prometheus.Registerer { return reg }),
		fhevmfx.Module(fhevmtest.Config(),
			fhevmfx.WithClientOptions(
				fhevm.WithBootstrapper(boot),
				fhevm.WithInstanceCache(fhevm.NewInstanceCache()),
			),
			fhevmfx.WaitOnStart(),
		),
		fx.Populate(&p),
	)
	require.NotNil(t, p)
	require.False(t, p.Mounted())

	app.RequireStart()
	require.True(t, p.Mounted())

	st := p.State()
	require.True(t, st.Ready)
	require.NotNil(t, st.Client.Metrics())
	require.Equal(t, 1, boot.Calls())

	app.RequireStop()
	require.False(t, p.Mounted())
}

func TestModuleWithoutOptionalDeps(t *testing.T) {
	var p *provider.Provider
	app := fxtest.New(t,
		fhevmfx.Module(fhevmtest.Config(),
			fhevmfx.WithClientOptions(
				fhevm.WithBootstrapper(fhevmtest.NewBootstrapper()),
				fhevm.WithInstanceCache(fhevm.NewInstanceCache()),
			),
		),
		fx.Populate(&p),
	)
	app.RequireStart()
	defer app.RequireStop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := p.Wait(ctx)
	require.NoError(t, err)
	require.True(t, st.Ready)
	require.Nil(t, st.Client.Metrics())
}

func TestModuleReportsInitFailureThroughState(t *testing.T) {
	boot := fhevmtest.NewBootstrapper()
	boot.FailWith(fhevm.ErrEngineUnavailable)

	var p *provider.Provider
	app := fxtest.New(t,
		fhevmfx.Module(fhevmtest.Config(),
			fhevmfx.WithClientOptions(
				fhevm.WithBootstrapper(boot),
				fhevm.WithInstanceCache(fhevm.NewInstanceCache()),
			),
			fhevmfx.WaitOnStart(),
		),
		fx.Populate(&p),
	)
	app.RequireStart()
	defer app.RequireStop()

	st := p.State()
	require.False(t, st.Ready)
	require.ErrorIs(t, st.Err, fhevm.ErrEngineUnavailable)
}
