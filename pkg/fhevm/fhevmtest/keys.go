package fhevmtest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
)

// ErrBadSignature is returned when a token signature does not verify.
var ErrBadSignature = errors.New("fhevmtest: signature does not match token")

// NewKeypair returns a fresh secp256k1 keypair, hex encoded. The public key
// is compressed.
func NewKeypair() (fhevm.Keypair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return fhevm.Keypair{}, fmt.Errorf("fhevmtest: generate key: %w", err)
	}
	return fhevm.Keypair{
		PublicKey:  "0x" + hex.EncodeToString(priv.PubKey().SerializeCompressed()),
		PrivateKey: "0x" + hex.EncodeToString(priv.Serialize()),
	}, nil
}

// TokenDigest hashes the JSON form of an EIP-712 payload. It stands in for
// the typed-data hash a wallet would sign.
func TokenDigest(token *fhevm.EIP712) ([]byte, error) {
	if token == nil {
		return nil, errors.New("fhevmtest: nil token")
	}
	b, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("fhevmtest: encode token: %w", err)
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

// SignToken signs token with a hex private key and returns the DER
// signature in hex.
func SignToken(privateKey string, token *fhevm.EIP712) (string, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	digest, err := TokenDigest(token)
	if err != nil {
		return "", err
	}
	sig := btcecdsa.Sign(priv, digest)
	return "0x" + hex.EncodeToString(sig.Serialize()), nil
}

// VerifyToken checks a signature produced by SignToken.
func VerifyToken(privateKey string, token *fhevm.EIP712, signature string) error {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return err
	}
	digest, err := TokenDigest(token)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return fmt.Errorf("fhevmtest: decode signature: %w", err)
	}
	sig, err := btcecdsa.ParseDERSignature(raw)
	if err != nil {
		return fmt.Errorf("fhevmtest: parse signature: %w", err)
	}
	if !sig.Verify(digest, priv.PubKey()) {
		return ErrBadSignature
	}
	return nil
}

func parsePrivateKey(s string) (*btcec.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("fhevmtest: decode private key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("fhevmtest: private key has %d bytes", len(raw))
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, nil
}
