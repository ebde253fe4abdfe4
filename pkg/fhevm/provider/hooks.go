package provider

import (
	"context"
	"errors"
	"time"

	"github.com/holiman/uint256"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/action"
)

var (
	// ErrNoProvider is returned by the hooks when ctx carries no Provider.
	ErrNoProvider = errors.New("useFHEVM must be used within FHEVMProvider")

	// ErrNotReady is returned by actions run before the provider is ready.
	ErrNotReady = errors.New("FHEVM instance is not ready")

	// ErrUserAddressRequired is returned by encryption actions created
	// without a user address.
	ErrUserAddressRequired = errors.New("userAddress is required for encryption")
)

type ctxKey struct{}

// WithProvider returns a context carrying p.
func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the Provider carried by ctx.
func FromContext(ctx context.Context) (*Provider, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Provider)
	return p, ok && p != nil
}

// UseFHEVM returns the state of the Provider in ctx.
func UseFHEVM(ctx context.Context) (State, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return State{}, ErrNoProvider
	}
	return p.State(), nil
}

// DecryptRequest is the input of a decrypt action.
type DecryptRequest struct {
	fhevm.DecryptParams
	Signature   string `json:"signature"`
	UserAddress string `json:"userAddress"`
	PrivateKey  string `json:"privateKey"`
}

// UseEncrypt returns an action that encrypts one value for userAddress.
// Readiness is checked each time the action runs.
func UseEncrypt(ctx context.Context, userAddress string, opts ...action.Option[fhevm.EncryptedData]) (*action.Action[fhevm.EncryptParams, fhevm.EncryptedData], error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoProvider
	}
	return action.New(func(ctx context.Context, params fhevm.EncryptParams) (fhevm.EncryptedData, error) {
		engine, err := p.encryptionEngine(userAddress)
		if err != nil {
			return fhevm.EncryptedData{}, err
		}
		defer p.observe("encrypt", time.Now(), &err)
		out, err := fhevm.Encrypt(ctx, engine, params, userAddress)
		return out, err
	}, opts...), nil
}

// UseEncryptBatch is UseEncrypt for several values under one proof.
func UseEncryptBatch(ctx context.Context, userAddress string, opts ...action.Option[fhevm.EncryptedData]) (*action.Action[fhevm.EncryptBatchParams, fhevm.EncryptedData], error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoProvider
	}
	return action.New(func(ctx context.Context, params fhevm.EncryptBatchParams) (fhevm.EncryptedData, error) {
		engine, err := p.encryptionEngine(userAddress)
		if err != nil {
			return fhevm.EncryptedData{}, err
		}
		defer p.observe("encrypt_batch", time.Now(), &err)
		out, err := fhevm.EncryptBatch(ctx, engine, params, userAddress)
		return out, err
	}, opts...), nil
}

// UseDecrypt returns an action that reencrypts a handle for the requester.
func UseDecrypt(ctx context.Context, opts ...action.Option[*uint256.Int]) (*action.Action[DecryptRequest, *uint256.Int], error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoProvider
	}
	return action.New(func(ctx context.Context, req DecryptRequest) (*uint256.Int, error) {
		engine, err := p.readyEngine()
		if err != nil {
			return nil, err
		}
		defer p.observe("decrypt", time.Now(), &err)
		out, err := fhevm.Decrypt(ctx, engine, req.DecryptParams, req.UserAddress, req.PrivateKey, req.Signature)
		return out, err
	}, opts...), nil
}

func (p *Provider) readyEngine() (fhevm.Engine, error) {
	st := p.State()
	if !st.Ready || st.Engine == nil {
		return nil, ErrNotReady
	}
	return st.Engine, nil
}

func (p *Provider) encryptionEngine(userAddress string) (fhevm.Engine, error) {
	engine, err := p.readyEngine()
	if err != nil {
		return nil, err
	}
	if userAddress == "" {
		return nil, ErrUserAddressRequired
	}
	return engine, nil
}

func (p *Provider) observe(op string, start time.Time, errp *error) {
	st := p.State()
	if st.Client == nil {
		return
	}
	st.Client.Metrics().ObserveOperation(op, start, *errp)
	if *errp != nil {
		st.Client.Logger().Debug(context.Background(), "operation failed", "op", op, "err", *errp)
	}
}
