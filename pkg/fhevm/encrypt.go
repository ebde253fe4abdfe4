package fhevm

import (
	"context"
	"encoding/hex"
	"errors"
)

var errNoInputBuilder = errors.New("engine returned no input builder")

// Encrypt encrypts a single value for contractAddress on behalf of
// userAddress.
func Encrypt(ctx context.Context, engine Engine, params EncryptParams, userAddress string) (EncryptedData, error) {
	out, err := encryptValues(ctx, engine, params.ContractAddress, userAddress, []TypedValue{
		{Value: params.Value, Type: params.Type},
	})
	if err != nil {
		return EncryptedData{}, wrapEncryption("encrypt", "Failed to encrypt value", err)
	}
	return out, nil
}

// EncryptBatch encrypts several values under a single input proof. The
// returned handles are in the order of params.Values. Either every value is
// encrypted or an error is returned.
func EncryptBatch(ctx context.Context, engine Engine, params EncryptBatchParams, userAddress string) (EncryptedData, error) {
	out, err := encryptValues(ctx, engine, params.ContractAddress, userAddress, params.Values)
	if err != nil {
		return EncryptedData{}, wrapEncryption("encrypt_batch", "Failed to batch encrypt", err)
	}
	return out, nil
}

// CreateEncryptedInput exposes the raw engine builder for callers that need
// to drive it themselves.
func CreateEncryptedInput(engine Engine, contractAddress, userAddress string) (InputBuilder, error) {
	if engine == nil {
		return nil, notReadyError("create_encrypted_input")
	}
	return engine.CreateEncryptedInput(contractAddress, userAddress)
}

func encryptValues(ctx context.Context, engine Engine, contractAddress, userAddress string, values []TypedValue) (EncryptedData, error) {
	if engine == nil {
		return EncryptedData{}, notReadyError("encrypt")
	}

	input, err := engine.CreateEncryptedInput(contractAddress, userAddress)
	if err != nil {
		return EncryptedData{}, err
	}
	if input == nil {
		return EncryptedData{}, errNoInputBuilder
	}

	for _, v := range values {
		if err := addValue(input, v.Value, v.Type); err != nil {
			return EncryptedData{}, err
		}
	}

	raw, err := input.Encrypt(ctx)
	if err != nil {
		return EncryptedData{}, err
	}
	if len(raw.Handles) != len(values) {
		return EncryptedData{}, errors.New("engine returned a handle count that does not match the inputs")
	}
	return toEncryptedData(raw), nil
}

func toEncryptedData(raw RawCiphertexts) EncryptedData {
	handles := make([]string, len(raw.Handles))
	for i, h := range raw.Handles {
		handles[i] = "0x" + hex.EncodeToString(h)
	}
	return EncryptedData{
		Handles:    handles,
		InputProof: raw.InputProof,
	}
}

// wrapEncryption leaves adapter errors untouched and wraps anything coming
// from the engine.
func wrapEncryption(op, what string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return encryptionError(op, err, "%s: %v", what, err)
}
