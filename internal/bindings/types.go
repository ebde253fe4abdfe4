package bindings

import (
	"errors"
	"fmt"
	"io"
)

// Config describes the engine module to load.
type Config struct {
	// Module is the compiled WebAssembly binary of the engine.
	Module []byte

	// Name is the instance name inside the runtime. Defaults to "fhevm".
	Name string

	// Stdout and Stderr receive the guest's WASI output. nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Guest exports the engine module must provide.
const (
	ExportAlloc = "fhevm_alloc"
	ExportFree  = "fhevm_free"
	ExportCall  = "fhevm_call"
)

var (
	// ErrNoModule reports an empty Config.Module.
	ErrNoModule = errors.New("fhevm/internal/bindings: no engine module")

	// ErrClosed reports a call on a closed Module.
	ErrClosed = errors.New("fhevm/internal/bindings: module closed")

	// ErrMemory reports an out-of-range access to guest memory.
	ErrMemory = errors.New("fhevm/internal/bindings: guest memory access out of range")
)

// MissingExportError reports a required guest export that is absent.
type MissingExportError struct {
	Name string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("fhevm/internal/bindings: module does not export %q", e.Name)
}

// GuestError is an error reported by the engine itself through the response
// envelope.
type GuestError struct {
	Method  string
	Message string
}

func (e *GuestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}
