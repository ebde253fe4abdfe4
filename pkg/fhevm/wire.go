package fhevm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// WireValue is a TypedValue as it arrives over JSON or the command line,
// where integers may be numbers or decimal/hex strings.
type WireValue struct {
	Value json.RawMessage `json:"value"`
	Type  EncryptType     `json:"type"`
}

// TypedValue converts w to the Go representation Encrypt expects: bool for
// Bool, uint64 for Uint8..Uint32, *uint256.Int for the wider types.
func (w WireValue) TypedValue() (TypedValue, error) {
	raw := bytes.TrimSpace(w.Value)
	if len(raw) == 0 {
		return TypedValue{}, invalidInput(encryptionError("decode", nil, "value is required for type '%s'", w.Type))
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return TypedValue{}, invalidInput(encryptionError("decode", err, "invalid value for type '%s': %v", w.Type, err))
		}
	} else {
		text = string(raw)
	}

	v, err := ParseValue(w.Type, text)
	if err != nil {
		return TypedValue{}, err
	}
	return TypedValue{Value: v, Type: w.Type}, nil
}

// ParseValue parses a textual plaintext for typ. Booleans accept true/false;
// integers accept decimal or 0x-prefixed hex.
func ParseValue(typ EncryptType, s string) (any, error) {
	s = strings.TrimSpace(s)

	switch typ {
	case Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, mismatch(typ, "boolean", s)
		}
		return b, nil

	case Uint8, Uint16, Uint32:
		n, err := strconv.ParseUint(s, 0, typ.Bits())
		if err != nil {
			return nil, invalidInput(encryptionError("decode", err, "invalid value for type '%s': %v", typ, err))
		}
		return n, nil

	case Uint64, Uint128, Uint256:
		var (
			n   *uint256.Int
			err error
		)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			n, err = ParseHandle(s)
		} else {
			n, err = uint256.FromDecimal(s)
		}
		if err != nil {
			return nil, invalidInput(encryptionError("decode", err, "invalid value for type '%s': %v", typ, err))
		}
		return n, nil

	default:
		return nil, invalidInput(encryptionError("decode", nil, "Unsupported encryption type: %v", typ))
	}
}

// WireBatch is EncryptBatchParams in wire form.
type WireBatch struct {
	Values          []WireValue `json:"values"`
	ContractAddress string      `json:"contractAddress"`
}

// Params converts the batch, failing on the first undecodable value.
func (w WireBatch) Params() (EncryptBatchParams, error) {
	values := make([]TypedValue, len(w.Values))
	for i, v := range w.Values {
		tv, err := v.TypedValue()
		if err != nil {
			return EncryptBatchParams{}, fmt.Errorf("values[%d]: %w", i, err)
		}
		values[i] = tv
	}
	return EncryptBatchParams{Values: values, ContractAddress: w.ContractAddress}, nil
}
