package fhevm

import (
	"fmt"
	"strings"
)

// EncryptType is the closed set of plaintext types the engine can encrypt.
type EncryptType uint8

const (
	Bool EncryptType = iota + 1
	Uint8
	Uint16
	Uint32
	Uint64
	Uint128
	Uint256
)

var encryptTypeNames = map[EncryptType]string{
	Bool:    "bool",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Uint128: "uint128",
	Uint256: "uint256",
}

// EncryptTypes lists every supported type in width order.
func EncryptTypes() []EncryptType {
	return []EncryptType{Bool, Uint8, Uint16, Uint32, Uint64, Uint128, Uint256}
}

func (t EncryptType) String() string {
	if name, ok := encryptTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EncryptType(%d)", uint8(t))
}

// Bits returns the plaintext width; bool counts as one bit.
func (t EncryptType) Bits() int {
	switch t {
	case Bool:
		return 1
	case Uint8:
		return 8
	case Uint16:
		return 16
	case Uint32:
		return 32
	case Uint64:
		return 64
	case Uint128:
		return 128
	case Uint256:
		return 256
	default:
		return 0
	}
}

// Valid reports whether t is one of the supported types.
func (t EncryptType) Valid() bool {
	_, ok := encryptTypeNames[t]
	return ok
}

// ParseEncryptType accepts the lowercase names used on the wire ("uint8").
func ParseEncryptType(s string) (EncryptType, error) {
	for t, name := range encryptTypeNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unsupported encryption type: %q", s)
}

func (t EncryptType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unsupported encryption type: %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *EncryptType) UnmarshalText(b []byte) error {
	parsed, err := ParseEncryptType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TypedValue pairs a plaintext with the type it should be encrypted as.
//
// Value must be a Go bool for Bool, a plain Go integer for Uint8/16/32, and
// any Go integer, *big.Int or *uint256.Int for the wider types.
type TypedValue struct {
	Value any         `json:"value"`
	Type  EncryptType `json:"type"`
}

// EncryptParams is a single-value encryption request.
type EncryptParams struct {
	Value           any         `json:"value"`
	Type            EncryptType `json:"type"`
	ContractAddress string      `json:"contractAddress"`
}

// EncryptBatchParams encrypts several values under one input proof. Order is
// significant: handle i of the result corresponds to Values[i].
type EncryptBatchParams struct {
	Values          []TypedValue `json:"values"`
	ContractAddress string       `json:"contractAddress"`
}

// EncryptedData is the normalized engine output.
type EncryptedData struct {
	// Handles are 0x-prefixed hex ciphertext handles in input order.
	Handles []string `json:"handles"`

	// InputProof attests that the handles were honestly formed.
	InputProof []byte `json:"inputProof"`
}

// RawCiphertexts is what an InputBuilder returns before normalization.
type RawCiphertexts struct {
	Handles    [][]byte
	InputProof []byte
}

// DecryptParams identifies a ciphertext to reencrypt for the caller.
type DecryptParams struct {
	Handle          string `json:"handle"`
	ContractAddress string `json:"contractAddress"`
}

// TokenParams requests a signable EIP-712 payload.
type TokenParams struct {
	VerifyingContract string `json:"verifyingContract"`
	UserAddress       string `json:"userAddress,omitempty"`
}

// Keypair is a reencryption keypair produced by the engine.
type Keypair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// EIP712Domain is the signing domain of an EIP712 payload.
type EIP712Domain struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           int64  `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
}

// EIP712Field is one member of an EIP712 struct type.
type EIP712Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// EIP712 is the typed-data payload a user signs to authorize reencryption.
type EIP712 struct {
	Domain      EIP712Domain             `json:"domain"`
	Types       map[string][]EIP712Field `json:"types"`
	Message     map[string]any           `json:"message"`
	PrimaryType string                   `json:"primaryType"`
}
