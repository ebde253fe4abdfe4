package fhevmtest

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/holiman/uint256"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
)

const (
	// ContractAddress and UserAddress are well-formed addresses for tests.
	ContractAddress = "0x1234567890123456789012345678901234567890"
	UserAddress     = "0x0987654321098765432109876543210987654321"

	// DefaultPublicKey is the network key a new Engine reports.
	DefaultPublicKey = "0x0a0b0c0d"
)

// Method names recorded in Call.Method.
const (
	MethodCreateInput = "CreateEncryptedInput"
	MethodAddBool     = "AddBool"
	MethodAdd8        = "Add8"
	MethodAdd16       = "Add16"
	MethodAdd32       = "Add32"
	MethodAdd64       = "Add64"
	MethodAdd128      = "Add128"
	MethodAdd256      = "Add256"
	MethodEncrypt     = "Encrypt"
	MethodReencrypt   = "Reencrypt"
	MethodCreateEIP   = "CreateEIP712"
	MethodKeypair     = "GenerateKeypair"
)

// ErrUnknownHandle is returned by Reencrypt for handles this engine never
// produced.
var ErrUnknownHandle = errors.New("fhevmtest: unknown handle")

// Call is one recorded engine or builder invocation.
type Call struct {
	Method string
	Value  any
}

// Engine is an in-memory fhevm.Engine. It is safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	chainID    int64
	publicKey  string
	requireSig bool
	failures   map[string]error
	calls      []Call
	plaintexts map[[32]byte]*uint256.Int
	serial     uint64
}

// EngineOption customizes a new Engine.
type EngineOption func(*Engine)

// WithPublicKey sets the reported network key. An empty key makes every
// decryption path fail before reaching Reencrypt.
func WithPublicKey(pk string) EngineOption {
	return func(e *Engine) { e.publicKey = pk }
}

// WithChainID sets the chain id placed in EIP-712 domains.
func WithChainID(id int64) EngineOption {
	return func(e *Engine) { e.chainID = id }
}

// RequireSignature makes Reencrypt verify the signature against the
// EIP-712 payload, using the key derived from the private key argument.
func RequireSignature() EngineOption {
	return func(e *Engine) { e.requireSig = true }
}

var _ fhevm.Engine = (*Engine)(nil)

// NewEngine returns a ready engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		chainID:    9000,
		publicKey:  DefaultPublicKey,
		failures:   make(map[string]error),
		plaintexts: make(map[[32]byte]*uint256.Int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FailOn makes every later call to method return err. A nil err clears it.
func (e *Engine) FailOn(method string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failures, method)
		return
	}
	e.failures[method] = err
}

// SetPublicKey replaces the reported network key.
func (e *Engine) SetPublicKey(pk string) {
	e.mu.Lock()
	e.publicKey = pk
	e.mu.Unlock()
}

// Calls returns a copy of the recorded calls in invocation order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Count returns how many times method was invoked.
func (e *Engine) Count(method string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// record logs the call and returns the configured failure for it.
func (e *Engine) record(method string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Method: method, Value: value})
	return e.failures[method]
}

func (e *Engine) CreateEncryptedInput(contractAddress, userAddress string) (fhevm.InputBuilder, error) {
	if err := e.record(MethodCreateInput, [2]string{contractAddress, userAddress}); err != nil {
		return nil, err
	}
	return &builder{engine: e, contract: contractAddress, user: userAddress}, nil
}

func (e *Engine) PublicKey() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.publicKey
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
	if err := e.record(MethodReencrypt, new(uint256.Int).Set(handle)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.requireSig {
		token := e.eip712(publicKey, contractAddress, userAddress)
		if err := VerifyToken(privateKey, token, signature); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.plaintexts[handle.Bytes32()]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return new(uint256.Int).Set(v), nil
}

func (e *Engine) CreateEIP712(publicKey, contractAddress, userAddress string) (*fhevm.EIP712, error) {
	if err := e.record(MethodCreateEIP, contractAddress); err != nil {
		return nil, err
	}
	return e.eip712(publicKey, contractAddress, userAddress), nil
}

func (e *Engine) eip712(publicKey, contractAddress, userAddress string) *fhevm.EIP712 {
	e.mu.Lock()
	chainID := e.chainID
	e.mu.Unlock()

	message := map[string]any{"publicKey": publicKey}
	fields := []fhevm.EIP712Field{{Name: "publicKey", Type: "bytes"}}
	if userAddress != "" {
		message["delegatedAccount"] = userAddress
		fields = append(fields, fhevm.EIP712Field{Name: "delegatedAccount", Type: "address"})
	}

	return &fhevm.EIP712{
		Domain: fhevm.EIP712Domain{
			Name:              "Authorization token",
			Version:           "1",
			ChainID:           chainID,
			VerifyingContract: contractAddress,
		},
		Types: map[string][]fhevm.EIP712Field{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Reencrypt": fields,
		},
		Message:     message,
		PrimaryType: "Reencrypt",
	}
}

func (e *Engine) GenerateKeypair() (fhevm.Keypair, error) {
	if err := e.record(MethodKeypair, nil); err != nil {
		return fhevm.Keypair{}, err
	}
	return NewKeypair()
}

// Plaintext returns the value stored behind a hex handle.
func (e *Engine) Plaintext(handle string) (*uint256.Int, bool) {
	h, err := fhevm.ParseHandle(handle)
	if err != nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.plaintexts[h.Bytes32()]
	if !ok {
		return nil, false
	}
	return new(uint256.Int).Set(v), true
}

// Seal stores value behind a fresh handle, as if it had been encrypted
// on-chain, and returns the handle in hex.
func (e *Engine) Seal(typ fhevm.EncryptType, value *uint256.Int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.serial++
	h := makeHandle(e.serial, 0, typ)
	e.plaintexts[h] = new(uint256.Int).Set(value)
	return "0x" + hex.EncodeToString(h[:])
}

// HandleInfo is the identity a stub handle carries.
type HandleInfo struct {
	Serial uint64
	Index  int
	Type   fhevm.EncryptType
}

// DecodeHandle recovers the identity of a handle produced by Engine.
func DecodeHandle(handle string) (HandleInfo, error) {
	s := strings.TrimPrefix(handle, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return HandleInfo{}, fmt.Errorf("fhevmtest: decode handle: %w", err)
	}
	if len(b) != 32 {
		return HandleInfo{}, fmt.Errorf("fhevmtest: handle has %d bytes", len(b))
	}
	return HandleInfo{
		Serial: binary.BigEndian.Uint64(b[0:8]),
		Index:  int(b[29]),
		Type:   fhevm.EncryptType(b[30]),
	}, nil
}

// Handle layout: serial in bytes 0..7, batch index in byte 29, type code in
// byte 30.
func makeHandle(serial uint64, index int, typ fhevm.EncryptType) [32]byte {
	var h [32]byte
	binary.BigEndian.PutUint64(h[0:8], serial)
	h[29] = byte(index)
	h[30] = byte(typ)
	return h
}

type entry struct {
	typ   fhevm.EncryptType
	value *uint256.Int
}

type builder struct {
	engine   *Engine
	contract string
	user     string

	mu      sync.Mutex
	entries []entry
	done    bool
}

func (b *builder) add(method string, typ fhevm.EncryptType, recorded any, v *uint256.Int) error {
	if err := b.engine.record(method, recorded); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return errors.New("fhevmtest: input already encrypted")
	}
	if len(b.entries) == 255 {
		return errors.New("fhevmtest: too many inputs")
	}
	b.entries = append(b.entries, entry{typ: typ, value: v})
	return nil
}

func (b *builder) AddBool(v bool) error {
	n := uint256.NewInt(0)
	if v {
		n.SetOne()
	}
	return b.add(MethodAddBool, fhevm.Bool, v, n)
}

func (b *builder) Add8(v uint8) error {
	return b.add(MethodAdd8, fhevm.Uint8, v, uint256.NewInt(uint64(v)))
}

func (b *builder) Add16(v uint16) error {
	return b.add(MethodAdd16, fhevm.Uint16, v, uint256.NewInt(uint64(v)))
}

func (b *builder) Add32(v uint32) error {
	return b.add(MethodAdd32, fhevm.Uint32, v, uint256.NewInt(uint64(v)))
}

func (b *builder) Add64(v *uint256.Int) error {
	return b.add(MethodAdd64, fhevm.Uint64, new(uint256.Int).Set(v), new(uint256.Int).Set(v))
}

func (b *builder) Add128(v *uint256.Int) error {
	return b.add(MethodAdd128, fhevm.Uint128, new(uint256.Int).Set(v), new(uint256.Int).Set(v))
}

func (b *builder) Add256(v *uint256.Int) error {
	return b.add(MethodAdd256, fhevm.Uint256, new(uint256.Int).Set(v), new(uint256.Int).Set(v))
}

func (b *builder) Encrypt(ctx context.Context) (fhevm.RawCiphertexts, error) {
	if err := b.engine.record(MethodEncrypt, nil); err != nil {
		return fhevm.RawCiphertexts{}, err
	}
	if err := ctx.Err(); err != nil {
		return fhevm.RawCiphertexts{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return fhevm.RawCiphertexts{}, errors.New("fhevmtest: input already encrypted")
	}
	b.done = true

	e := b.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	e.serial++

	proof := sha256.New()
	proof.Write([]byte(b.contract))
	proof.Write([]byte(b.user))

	handles := make([][]byte, len(b.entries))
	for i, ent := range b.entries {
		h := makeHandle(e.serial, i, ent.typ)
		e.plaintexts[h] = ent.value
		handles[i] = append([]byte(nil), h[:]...)
		proof.Write(h[:])
	}
	return fhevm.RawCiphertexts{Handles: handles, InputProof: proof.Sum(nil)}, nil
}
