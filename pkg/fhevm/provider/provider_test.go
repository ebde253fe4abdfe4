package provider_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/action"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/fhevmtest"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/provider"
)

func alwaysAlive() bool { return true }

func clientOpts(boot fhevm.Bootstrapper) []fhevm.Option {
	return []fhevm.Option{
		fhevm.WithBootstrapper(boot),
		fhevm.WithInstanceCache(fhevm.NewInstanceCache()),
	}
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("ready", func(t *testing.T) {
		st, ok := provider.Initialize(ctx, fhevmtest.Config(), alwaysAlive, clientOpts(fhevmtest.NewBootstrapper())...)
		require.True(t, ok)
		require.NoError(t, st.Err)
		require.True(t, st.Ready)
		require.NotNil(t, st.Client)
		require.NotNil(t, st.Engine)
	})

	t.Run("auto init disabled", func(t *testing.T) {
		boot := fhevmtest.NewBootstrapper()
		cfg := fhevmtest.Config()
		cfg.AutoInit = fhevm.BoolPtr(false)

		st, ok := provider.Initialize(ctx, cfg, alwaysAlive, clientOpts(boot)...)
		require.True(t, ok)
		require.NotNil(t, st.Client)
		require.False(t, st.Ready)
		require.Nil(t, st.Engine)
		require.Zero(t, boot.Calls())
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := fhevmtest.Config()
		cfg.ChainID = 0
		st, ok := provider.Initialize(ctx, cfg, alwaysAlive)
		require.True(t, ok)
		require.ErrorIs(t, st.Err, fhevm.ErrConfig)
		require.Nil(t, st.Client)
		require.False(t, st.Ready)
	})

	t.Run("init failure", func(t *testing.T) {
		boot := fhevmtest.NewBootstrapper()
		boot.FailWith(errors.New("wasm load failed"))
		st, ok := provider.Initialize(ctx, fhevmtest.Config(), alwaysAlive, clientOpts(boot)...)
		require.True(t, ok)
		require.ErrorIs(t, st.Err, fhevm.ErrInit)
		require.Nil(t, st.Client)
	})

	t.Run("not alive", func(t *testing.T) {
		st, ok := provider.Initialize(ctx, fhevmtest.Config(), func() bool { return false }, clientOpts(fhevmtest.NewBootstrapper())...)
		require.False(t, ok)
		require.Equal(t, provider.State{}, st)
	})
}

func TestProviderMountAndWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := provider.New(fhevmtest.Config(), provider.WithClientOptions(clientOpts(fhevmtest.NewBootstrapper())...))
	require.False(t, p.State().Ready)

	var (
		mu   sync.Mutex
		seen []provider.State
	)
	unsubscribe, err := p.Subscribe(func(st provider.State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	p.Mount(ctx)
	p.Mount(ctx)
	require.True(t, p.Mounted())

	st, err := p.Wait(ctx)
	require.NoError(t, err)
	require.True(t, st.Ready)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	require.True(t, seen[0].Ready)
}

func TestProviderUnmountDiscardsResult(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	boot := fhevmtest.NewBootstrapper()
	release := boot.Hold()

	p := provider.New(fhevmtest.Config(), provider.WithClientOptions(clientOpts(boot)...))
	var published bool
	_, err := p.Subscribe(func(provider.State) { published = true })
	require.NoError(t, err)

	p.Mount(ctx)
	require.Eventually(t, func() bool { return boot.Calls() == 1 }, time.Second, time.Millisecond)
	p.Unmount()
	release()

	st, err := p.Wait(ctx)
	require.NoError(t, err)
	require.False(t, st.Ready)
	require.Nil(t, st.Client)
	require.False(t, published)
}

func TestProviderWaitHonorsContext(t *testing.T) {
	boot := fhevmtest.NewBootstrapper()
	release := boot.Hold()
	defer release()

	p := provider.New(fhevmtest.Config(), provider.WithClientOptions(clientOpts(boot)...))
	p.Mount(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	p := provider.New(fhevmtest.Config(), provider.WithClientOptions(clientOpts(fhevmtest.NewBootstrapper())...))

	counts := make([]int, 3)
	unsubs := make([]func(), 3)
	for i := range counts {
		i := i
		unsub, err := p.Subscribe(func(provider.State) { counts[i]++ })
		require.NoError(t, err)
		unsubs[i] = unsub
	}
	unsubs[1]()
	unsubs[1]()

	p.Mount(context.Background())
	_, err := p.Wait(context.Background())
	require.NoError(t, err)

	require.Equal(t, []int{1, 0, 1}, counts)
}

func mountedContext(t *testing.T, engineOpts ...fhevmtest.EngineOption) (context.Context, *provider.Provider) {
	t.Helper()
	ctx := context.Background()
	p := provider.New(fhevmtest.Config(), provider.WithClientOptions(clientOpts(fhevmtest.NewBootstrapper(engineOpts...))...))
	p.Mount(ctx)
	st, err := p.Wait(ctx)
	require.NoError(t, err)
	require.True(t, st.Ready)
	t.Cleanup(p.Unmount)
	return provider.WithProvider(ctx, p), p
}

func TestHooksRequireProvider(t *testing.T) {
	ctx := context.Background()

	_, err := provider.UseFHEVM(ctx)
	require.ErrorIs(t, err, provider.ErrNoProvider)
	_, err = provider.UseEncrypt(ctx, fhevmtest.UserAddress)
	require.ErrorIs(t, err, provider.ErrNoProvider)
	_, err = provider.UseEncryptBatch(ctx, fhevmtest.UserAddress)
	require.ErrorIs(t, err, provider.ErrNoProvider)
	_, err = provider.UseDecrypt(ctx)
	require.ErrorIs(t, err, provider.ErrNoProvider)
}

func TestUseEncryptNotReady(t *testing.T) {
	cfg := fhevmtest.Config()
	cfg.AutoInit = fhevm.BoolPtr(false)
	p := provider.New(cfg, provider.WithClientOptions(clientOpts(fhevmtest.NewBootstrapper())...))
	p.Mount(context.Background())
	_, err := p.Wait(context.Background())
	require.NoError(t, err)

	ctx := provider.WithProvider(context.Background(), p)
	enc, err := provider.UseEncrypt(ctx, fhevmtest.UserAddress)
	require.NoError(t, err)

	_, err = enc.Run(ctx, fhevm.EncryptParams{Value: true, Type: fhevm.Bool})
	require.ErrorIs(t, err, provider.ErrNotReady)
	require.EqualError(t, err, "FHEVM instance is not ready")
	require.True(t, enc.State().IsError())
}

func TestUseEncryptRequiresUser(t *testing.T) {
	ctx, _ := mountedContext(t)

	enc, err := provider.UseEncrypt(ctx, "")
	require.NoError(t, err)
	_, err = enc.Run(ctx, fhevm.EncryptParams{Value: true, Type: fhevm.Bool})
	require.ErrorIs(t, err, provider.ErrUserAddressRequired)
	require.EqualError(t, err, "userAddress is required for encryption")

	batch, err := provider.UseEncryptBatch(ctx, "")
	require.NoError(t, err)
	_, err = batch.Run(ctx, fhevm.EncryptBatchParams{})
	require.ErrorIs(t, err, provider.ErrUserAddressRequired)
}

func TestUseEncryptAndDecrypt(t *testing.T) {
	ctx, p := mountedContext(t)

	st, err := provider.UseFHEVM(ctx)
	require.NoError(t, err)
	require.True(t, st.Ready)
	require.Same(t, p.State().Client, st.Client)

	var got fhevm.EncryptedData
	enc, err := provider.UseEncrypt(ctx, fhevmtest.UserAddress, action.OnSuccess(func(out fhevm.EncryptedData) { got = out }))
	require.NoError(t, err)

	out, err := enc.Run(ctx, fhevm.EncryptParams{Value: 77, Type: fhevm.Uint16, ContractAddress: fhevmtest.ContractAddress})
	require.NoError(t, err)
	require.Len(t, out.Handles, 1)
	require.Equal(t, out, got)
	require.True(t, enc.State().IsSuccess())

	batch, err := provider.UseEncryptBatch(ctx, fhevmtest.UserAddress)
	require.NoError(t, err)
	bout, err := batch.Run(ctx, fhevm.EncryptBatchParams{
		Values: []fhevm.TypedValue{
			{Value: false, Type: fhevm.Bool},
			{Value: 5, Type: fhevm.Uint8},
		},
		ContractAddress: fhevmtest.ContractAddress,
	})
	require.NoError(t, err)
	require.Len(t, bout.Handles, 2)

	dec, err := provider.UseDecrypt(ctx)
	require.NoError(t, err)
	v, err := dec.Run(ctx, provider.DecryptRequest{
		DecryptParams: fhevm.DecryptParams{Handle: out.Handles[0], ContractAddress: fhevmtest.ContractAddress},
		UserAddress:   fhevmtest.UserAddress,
		PrivateKey:    "0x01",
		Signature:     "0x02",
	})
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(77), v)
	require.Equal(t, uint256.NewInt(77), dec.State().Data)
}

func TestUseDecryptSurfacesDecryptionError(t *testing.T) {
	ctx, _ := mountedContext(t, fhevmtest.WithPublicKey(""))

	dec, err := provider.UseDecrypt(ctx)
	require.NoError(t, err)
	_, err = dec.Run(ctx, provider.DecryptRequest{DecryptParams: fhevm.DecryptParams{Handle: "0x01"}})
	require.ErrorIs(t, err, fhevm.ErrDecryption)
	require.True(t, dec.State().IsError())
}
