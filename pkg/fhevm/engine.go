package fhevm

import (
	"context"

	"github.com/holiman/uint256"
)

// Engine is the capability handle produced by the external FHE module. The
// adapter never inspects ciphertexts itself; every cryptographic operation
// goes through this interface.
//
// Concurrency: implementations must tolerate concurrent calls from several
// goroutines. A cached Engine is shared by every Client whose config has the
// same cache key.
type Engine interface {
	// CreateEncryptedInput returns a fresh builder bound to a contract and a
	// user. Builders are single-use.
	CreateEncryptedInput(contractAddress, userAddress string) (InputBuilder, error)

	// PublicKey returns the network FHE public key, or "" when the engine
	// has not fetched one.
	PublicKey() string

	// Reencrypt turns a ciphertext handle into a plaintext readable by the
	// holder of privateKey, authorized by signature.
	Reencrypt(
		ctx context.Context,
		handle *uint256.Int,
		privateKey string,
		publicKey string,
		signature string,
		contractAddress string,
		userAddress string,
	) (*uint256.Int, error)

	// CreateEIP712 builds the typed-data payload that authorizes a
	// reencryption. userAddress may be empty.
	CreateEIP712(publicKey, contractAddress, userAddress string) (*EIP712, error)

	// GenerateKeypair returns a fresh reencryption keypair.
	GenerateKeypair() (Keypair, error)
}

// InputBuilder accumulates plaintexts for a single input proof. Values are
// encrypted in the order they were added.
type InputBuilder interface {
	AddBool(v bool) error
	Add8(v uint8) error
	Add16(v uint16) error
	Add32(v uint32) error
	Add64(v *uint256.Int) error
	Add128(v *uint256.Int) error
	Add256(v *uint256.Int) error

	// Encrypt finalizes the builder. Handles[i] corresponds to the i-th
	// value added.
	Encrypt(ctx context.Context) (RawCiphertexts, error)
}

// Bootstrapper loads the external module and constructs an Engine for a
// validated config. It may perform network I/O.
type Bootstrapper interface {
	CreateInstance(ctx context.Context, cfg Config) (Engine, error)
}

// BootstrapFunc adapts a function to the Bootstrapper interface.
type BootstrapFunc func(ctx context.Context, cfg Config) (Engine, error)

func (f BootstrapFunc) CreateInstance(ctx context.Context, cfg Config) (Engine, error) {
	return f(ctx, cfg)
}

type unavailableBootstrapper struct{}

func (unavailableBootstrapper) CreateInstance(context.Context, Config) (Engine, error) {
	return nil, ErrEngineUnavailable
}
