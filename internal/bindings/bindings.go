package bindings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Module is a loaded engine instance. Calls are serialized; the guest is
// single-threaded.
type Module struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	mod     api.Module
	alloc   api.Function
	free    api.Function
	call    api.Function
	closed  bool
}

// compilation is shared so that reopening the same module skips compilation.
var compilation = wazero.NewCompilationCache()

// Open compiles and instantiates the engine module and resolves its exports.
func Open(ctx context.Context, cfg Config) (*Module, error) {
	if len(cfg.Module) == 0 {
		return nil, ErrNoModule
	}
	name := cfg.Name
	if name == "" {
		name = "fhevm"
	}

	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCompilationCache(compilation))
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("fhevm/internal/bindings: instantiate wasi: %w", err)
	}

	compiled, err := r.CompileModule(ctx, cfg.Module)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("fhevm/internal/bindings: compile: %w", err)
	}

	modCfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize")
	if cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(cfg.Stderr)
	}

	mod, err := r.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("fhevm/internal/bindings: instantiate: %w", err)
	}

	m := &Module{runtime: r, mod: mod}
	for name, fn := range map[string]*api.Function{
		ExportAlloc: &m.alloc,
		ExportFree:  &m.free,
		ExportCall:  &m.call,
	} {
		f := mod.ExportedFunction(name)
		if f == nil {
			_ = r.Close(ctx)
			return nil, &MissingExportError{Name: name}
		}
		*fn = f
	}
	if mod.Memory() == nil {
		_ = r.Close(ctx)
		return nil, &MissingExportError{Name: "memory"}
	}
	return m, nil
}

// Call invokes method with req encoded as JSON and decodes the envelope's
// result into resp. resp may be nil when the result is not needed.
func (m *Module) Call(ctx context.Context, method string, req, resp any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("fhevm/internal/bindings: encode %s request: %w", method, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	mPtr, err := m.write(ctx, []byte(method))
	if err != nil {
		return err
	}
	defer m.release(ctx, mPtr, uint32(len(method)))

	rPtr, err := m.write(ctx, payload)
	if err != nil {
		return err
	}
	defer m.release(ctx, rPtr, uint32(len(payload)))

	res, err := m.call.Call(ctx, uint64(mPtr), uint64(len(method)), uint64(rPtr), uint64(len(payload)))
	if err != nil {
		return fmt.Errorf("fhevm/internal/bindings: %s: %w", method, err)
	}
	if len(res) != 1 {
		return fmt.Errorf("fhevm/internal/bindings: %s: unexpected result arity %d", method, len(res))
	}

	outPtr, outLen := unpack(res[0])
	view, ok := m.mod.Memory().Read(outPtr, outLen)
	if !ok {
		return ErrMemory
	}
	raw := append([]byte(nil), view...)
	m.release(ctx, outPtr, outLen)

	return decodeEnvelope(method, raw, resp)
}

// Close releases the runtime. It is safe to call more than once.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.runtime.Close(ctx)
}

func (m *Module) write(ctx context.Context, b []byte) (uint32, error) {
	if len(b) == 0 {
		return 0, nil
	}
	res, err := m.alloc.Call(ctx, uint64(len(b)))
	if err != nil {
		return 0, fmt.Errorf("fhevm/internal/bindings: alloc: %w", err)
	}
	ptr := uint32(res[0])
	if !m.mod.Memory().Write(ptr, b) {
		return 0, ErrMemory
	}
	return ptr, nil
}

func (m *Module) release(ctx context.Context, ptr, size uint32) {
	if ptr == 0 || size == 0 {
		return
	}
	_, _ = m.free.Call(ctx, uint64(ptr), uint64(size))
}

// unpack splits the guest's packed (ptr << 32 | len) return value.
func unpack(v uint64) (ptr, size uint32) {
	return uint32(v >> 32), uint32(v)
}

func pack(ptr, size uint32) uint64 {
	return uint64(ptr)<<32 | uint64(size)
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func decodeEnvelope(method string, raw []byte, resp any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("fhevm/internal/bindings: %s: decode envelope: %w", method, err)
	}
	if env.Error != "" {
		return &GuestError{Method: method, Message: env.Error}
	}
	if resp == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, resp); err != nil {
		return fmt.Errorf("fhevm/internal/bindings: %s: decode result: %w", method, err)
	}
	return nil
}
