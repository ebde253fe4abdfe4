package fhevm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	errNegative = errors.New("value must not be negative")
	errOverflow = errors.New("value overflows type")
)

// smallUint converts a plain Go integer to uint64, rejecting anything that is
// not a built-in integer type.
func smallUint(v any) (uint64, bool, error) {
	switch n := v.(type) {
	case int:
		return signed(int64(n))
	case int8:
		return signed(int64(n))
	case int16:
		return signed(int64(n))
	case int32:
		return signed(int64(n))
	case int64:
		return signed(n)
	case uint:
		return uint64(n), true, nil
	case uint8:
		return uint64(n), true, nil
	case uint16:
		return uint64(n), true, nil
	case uint32:
		return uint64(n), true, nil
	case uint64:
		return n, true, nil
	default:
		return 0, false, nil
	}
}

func signed(n int64) (uint64, bool, error) {
	if n < 0 {
		return 0, true, errNegative
	}
	return uint64(n), true, nil
}

// bigUint converts any supported integer representation to a uint256.
func bigUint(v any) (*uint256.Int, bool, error) {
	if u, ok, err := smallUint(v); ok {
		if err != nil {
			return nil, true, err
		}
		return uint256.NewInt(u), true, nil
	}

	switch n := v.(type) {
	case *uint256.Int:
		if n == nil {
			return nil, false, nil
		}
		return new(uint256.Int).Set(n), true, nil
	case uint256.Int:
		return new(uint256.Int).Set(&n), true, nil
	case *big.Int:
		if n == nil {
			return nil, false, nil
		}
		return fromBig(n)
	case big.Int:
		return fromBig(&n)
	default:
		return nil, false, nil
	}
}

func fromBig(b *big.Int) (*uint256.Int, bool, error) {
	if b.Sign() < 0 {
		return nil, true, errNegative
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return nil, true, errOverflow
	}
	return u, true, nil
}

// addValue validates value against typ and hands it to the builder. The
// builder is not touched when validation fails.
func addValue(b InputBuilder, value any, typ EncryptType) error {
	switch typ {
	case Bool:
		v, ok := value.(bool)
		if !ok {
			return mismatch(typ, "boolean", value)
		}
		return b.AddBool(v)

	case Uint8, Uint16, Uint32:
		n, ok, err := smallUint(value)
		if !ok {
			return mismatch(typ, "number", value)
		}
		if err != nil {
			return rangeError(typ, err)
		}
		if n>>typ.Bits() != 0 {
			return rangeError(typ, errOverflow)
		}
		switch typ {
		case Uint8:
			return b.Add8(uint8(n))
		case Uint16:
			return b.Add16(uint16(n))
		default:
			return b.Add32(uint32(n))
		}

	case Uint64, Uint128, Uint256:
		n, ok, err := bigUint(value)
		if !ok {
			return mismatch(typ, "integer", value)
		}
		if err != nil {
			return rangeError(typ, err)
		}
		if n.BitLen() > typ.Bits() {
			return rangeError(typ, errOverflow)
		}
		switch typ {
		case Uint64:
			return b.Add64(n)
		case Uint128:
			return b.Add128(n)
		default:
			return b.Add256(n)
		}

	default:
		return invalidInput(encryptionError("encrypt", nil, "Unsupported encryption type: %v", typ))
	}
}

func mismatch(typ EncryptType, want string, got any) error {
	return invalidInput(encryptionError("encrypt", nil, "Value must be %s for type '%s', got %s", want, typ, describe(got)))
}

func rangeError(typ EncryptType, err error) error {
	return invalidInput(encryptionError("encrypt", err, "%v for type '%s'", err, typ))
}

// describe renders a value for error messages without leaking large inputs.
func describe(v any) string {
	return fmt.Sprintf("%T", v)
}
