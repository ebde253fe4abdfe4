// Package wasmengine implements fhevm.Engine on top of an engine compiled to
// WebAssembly and run in-process with wazero.
package wasmengine

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/holiman/uint256"

	"github.com/universal-fhevm/fhevm-go/internal/bindings"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
)

// conn is an open engine module.
type conn interface {
	bindings.Caller
	Close(ctx context.Context) error
}

// Bootstrapper opens a new module instance for every CreateInstance call.
// Wrap it in an fhevm.Client with caching enabled to share instances.
type Bootstrapper struct {
	open func(ctx context.Context) (conn, error)
}

var _ fhevm.Bootstrapper = (*Bootstrapper)(nil)

// New returns a Bootstrapper for the given module binary.
func New(module []byte) *Bootstrapper {
	return &Bootstrapper{
		open: func(ctx context.Context) (conn, error) {
			return bindings.Open(ctx, bindings.Config{Module: module})
		},
	}
}

// Load reads the module binary from path.
func Load(path string) (*Bootstrapper, error) {
	module, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wasmengine: read module: %w", err)
	}
	return New(module), nil
}

func (b *Bootstrapper) CreateInstance(ctx context.Context, cfg fhevm.Config) (fhevm.Engine, error) {
	c, err := b.open(ctx)
	if err != nil {
		return nil, err
	}

	id, err := bindings.CreateInstance(ctx, c, bindings.CreateInstanceRequest{
		ChainID:    cfg.ChainID,
		NetworkURL: cfg.NetworkURL,
		GatewayURL: cfg.GatewayURL,
		ACLAddress: cfg.ACLAddress,
	})
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	// A missing key is not fatal; decryption reports it when needed.
	pk, err := bindings.GetPublicKey(ctx, c, id)
	if err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	return &Engine{conn: c, id: id, publicKey: pk}, nil
}

// Engine is an fhevm.Engine backed by a module instance.
type Engine struct {
	conn      conn
	id        bindings.InstanceID
	publicKey string

	closeOnce sync.Once
	closeErr  error
}

var _ fhevm.Engine = (*Engine)(nil)

// Close releases the module. Engines held in an instance cache should only
// be closed after the cache is cleared.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.closeErr = e.conn.Close(ctx)
	})
	return e.closeErr
}

func (e *Engine) PublicKey() string {
	return e.publicKey
}

func (e *Engine) CreateEncryptedInput(contractAddress, userAddress string) (fhevm.InputBuilder, error) {
	ctx := context.Background()
	in, err := bindings.InputNew(ctx, e.conn, bindings.InputNewRequest{
		Instance:        e.id,
		ContractAddress: contractAddress,
		UserAddress:     userAddress,
	})
	if err != nil {
		return nil, err
	}
	return &builder{conn: e.conn, id: in}, nil
}

func (e *Engine) Reencrypt(
	ctx context.Context,
	handle *uint256.Int,
	privateKey string,
	publicKey string,
	signature string,
	contractAddress string,
	userAddress string,
) (*uint256.Int, error) {
	out, err := bindings.Reencrypt(ctx, e.conn, bindings.ReencryptRequest{
		Instance:        e.id,
		Handle:          fhevm.FormatHandle(handle),
		PrivateKey:      privateKey,
		PublicKey:       publicKey,
		Signature:       signature,
		ContractAddress: contractAddress,
		UserAddress:     userAddress,
	})
	if err != nil {
		return nil, err
	}
	v, err := uint256.FromDecimal(out)
	if err != nil {
		return nil, fmt.Errorf("wasmengine: decode plaintext: %w", err)
	}
	return v, nil
}

func (e *Engine) CreateEIP712(publicKey, contractAddress, userAddress string) (*fhevm.EIP712, error) {
	var out fhevm.EIP712
	err := bindings.CreateEIP712(context.Background(), e.conn, bindings.CreateEIP712Request{
		Instance:        e.id,
		PublicKey:       publicKey,
		ContractAddress: contractAddress,
		UserAddress:     userAddress,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Engine) GenerateKeypair() (fhevm.Keypair, error) {
	kp, err := bindings.GenerateKeypair(context.Background(), e.conn, e.id)
	if err != nil {
		return fhevm.Keypair{}, err
	}
	return fhevm.Keypair{PublicKey: kp.PublicKey, PrivateKey: kp.PrivateKey}, nil
}

type builder struct {
	conn bindings.Caller
	id   bindings.InputID
}

func (b *builder) add(typ fhevm.EncryptType, value string) error {
	return bindings.InputAdd(context.Background(), b.conn, bindings.InputAddRequest{
		Input: b.id,
		Type:  typ.String(),
		Value: value,
	})
}

func (b *builder) AddBool(v bool) error { return b.add(fhevm.Bool, strconv.FormatBool(v)) }
func (b *builder) Add8(v uint8) error { return b.add(fhevm.Uint8, strconv.FormatUint(uint64(v), 10)) }
func (b *builder) Add16(v uint16) error { return b.add(fhevm.Uint16, strconv.FormatUint(uint64(v), 10)) }
func (b *builder) Add32(v uint32) error { return b.add(fhevm.Uint32, strconv.FormatUint(uint64(v), 10)) }
func (b *builder) Add64(v *uint256.Int) error { return b.add(fhevm.Uint64, v.Dec()) }
func (b *builder) Add128(v *uint256.Int) error { return b.add(fhevm.Uint128, v.Dec()) }
func (b *builder) Add256(v *uint256.Int) error { return b.add(fhevm.Uint256, v.Dec()) }

func (b *builder) Encrypt(ctx context.Context) (fhevm.RawCiphertexts, error) {
	out, err := bindings.InputEncrypt(ctx, b.conn, b.id)
	if err != nil {
		return fhevm.RawCiphertexts{}, err
	}

	handles := make([][]byte, len(out.Handles))
	for i, h := range out.Handles {
		raw, err := decodeHex(h)
		if err != nil {
			return fhevm.RawCiphertexts{}, fmt.Errorf("wasmengine: handle %d: %w", i, err)
		}
		handles[i] = raw
	}
	proof, err := decodeHex(out.InputProof)
	if err != nil {
		return fhevm.RawCiphertexts{}, fmt.Errorf("wasmengine: input proof: %w", err)
	}
	return fhevm.RawCiphertexts{Handles: handles, InputProof: proof}, nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
