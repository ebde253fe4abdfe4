package fhevm

import (
	"errors"
	"fmt"
)

// Code is the machine-readable tag carried by every *Error.
type Code string

const (
	CodeConfig           Code = "CONFIG_ERROR"
	CodeInstanceNotReady Code = "INSTANCE_NOT_READY"
	CodeEncryption       Code = "ENCRYPTION_ERROR"
	CodeDecryption       Code = "DECRYPTION_ERROR"
	CodeInit             Code = "INIT_ERROR"
)

var (
	// ErrConfig matches any invalid connection descriptor.
	ErrConfig = &Error{Code: CodeConfig}

	// ErrInstanceNotReady matches operations attempted before Init succeeded.
	ErrInstanceNotReady = &Error{Code: CodeInstanceNotReady}

	// ErrEncryption matches type/value mismatches and engine failures while
	// building or encrypting inputs.
	ErrEncryption = &Error{Code: CodeEncryption}

	// ErrDecryption matches a missing public key and reencryption failures.
	ErrDecryption = &Error{Code: CodeDecryption}

	// ErrInit matches failures while bootstrapping the engine.
	ErrInit = &Error{Code: CodeInit}

	// ErrEngineUnavailable is returned when no Bootstrapper was configured.
	ErrEngineUnavailable = errors.New("fhevm engine not available")
)

const notReadyMessage = "FHEVM instance is not initialized. Call Init() first."

// Error is the single error type surfaced by the adapter layer. The original
// cause, if any, is kept both in the message and behind Unwrap.
type Error struct {
	Code    Code
	Op      string // operation that failed, e.g. "encrypt"
	Message string
	Err     error

	// invalid marks errors caused by the caller's input rather than the
	// engine.
	invalid bool
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code, so the package
// sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code Code, op string, cause error, prefix, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: prefix + fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

func configError(format string, args ...any) error {
	return invalidInput(newError(CodeConfig, "config", nil, "Invalid configuration: ", format, args...))
}

func notReadyError(op string) error {
	return &Error{Code: CodeInstanceNotReady, Op: op, Message: notReadyMessage}
}

func encryptionError(op string, cause error, format string, args ...any) error {
	return newError(CodeEncryption, op, cause, "Encryption failed: ", format, args...)
}

func decryptionError(op string, cause error, format string, args ...any) error {
	return newError(CodeDecryption, op, cause, "Decryption failed: ", format, args...)
}

func initError(cause error) error {
	return newError(CodeInit, "init", cause, "", "Failed to initialize FHEVM instance: %v", cause)
}

func invalidInput(err error) error {
	if e, ok := err.(*Error); ok {
		e.invalid = true
	}
	return err
}

// IsInvalidInput reports whether err was raised while validating caller
// input, before the engine was involved.
func IsInvalidInput(err error) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.invalid {
			return true
		}
		err = e.Err
	}
	return false
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
