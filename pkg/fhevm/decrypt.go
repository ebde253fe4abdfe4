package fhevm

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const handleLen = 32

// GenerateToken asks the engine for an EIP-712 payload bound to
// params.VerifyingContract. The user signs it before calling Decrypt.
func GenerateToken(_ context.Context, engine Engine, params TokenParams) (*EIP712, error) {
	if engine == nil {
		return nil, notReadyError("generate_token")
	}

	publicKey := engine.PublicKey()
	if publicKey == "" {
		return nil, decryptionError("generate_token", nil, "Failed to generate token: Public key not available")
	}

	payload, err := engine.CreateEIP712(publicKey, params.VerifyingContract, params.UserAddress)
	if err != nil {
		return nil, decryptionError("generate_token", err, "Failed to generate token: %v", err)
	}
	return payload, nil
}

// Decrypt reencrypts params.Handle for userAddress and returns the plaintext.
func Decrypt(
	ctx context.Context,
	engine Engine,
	params DecryptParams,
	userAddress string,
	privateKey string,
	signature string,
) (*uint256.Int, error) {
	return reencrypt(ctx, engine, "decrypt", "Failed to decrypt", params.Handle, params.ContractAddress, userAddress, privateKey, signature)
}

// Reencrypt is Decrypt with the handle passed directly.
func Reencrypt(
	ctx context.Context,
	engine Engine,
	handle string,
	contractAddress string,
	userAddress string,
	privateKey string,
	signature string,
) (*uint256.Int, error) {
	return reencrypt(ctx, engine, "reencrypt", "Failed to reencrypt", handle, contractAddress, userAddress, privateKey, signature)
}

func reencrypt(
	ctx context.Context,
	engine Engine,
	op string,
	what string,
	handle string,
	contractAddress string,
	userAddress string,
	privateKey string,
	signature string,
) (*uint256.Int, error) {
	if engine == nil {
		return nil, notReadyError(op)
	}

	publicKey := engine.PublicKey()
	if publicKey == "" {
		return nil, decryptionError(op, nil, "%s: Public key not available", what)
	}

	h, err := ParseHandle(handle)
	if err != nil {
		return nil, invalidInput(decryptionError(op, err, "%s: %v", what, err))
	}

	out, err := engine.Reencrypt(ctx, h, privateKey, publicKey, signature, contractAddress, userAddress)
	if err != nil {
		return nil, decryptionError(op, err, "%s: %v", what, err)
	}
	if out == nil {
		return nil, decryptionError(op, nil, "%s: engine returned no value", what)
	}
	return out, nil
}

// ParseHandle converts a ciphertext handle to its integer form. It accepts
// 0x-prefixed hex of at most 32 bytes or a decimal string.
func ParseHandle(handle string) (*uint256.Int, error) {
	s := strings.TrimSpace(handle)
	if s == "" {
		return nil, errors.New("handle is required")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := s[2:]
		if digits == "" {
			return nil, errors.New("invalid handle: no hex digits")
		}
		if len(digits)%2 == 1 {
			digits = "0" + digits
		}
		b, err := hex.DecodeString(digits)
		if err != nil {
			return nil, fmt.Errorf("invalid handle: %w", err)
		}
		if len(b) > handleLen {
			return nil, fmt.Errorf("invalid handle: %d bytes exceeds %d", len(b), handleLen)
		}
		return new(uint256.Int).SetBytes(b), nil
	}

	h, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid handle: %w", err)
	}
	return h, nil
}

// FormatHandle renders a handle as 0x-prefixed, zero-padded 32-byte hex.
func FormatHandle(h *uint256.Int) string {
	b := h.Bytes32()
	return "0x" + hex.EncodeToString(b[:])
}
