// Package bindings loads the FHE engine WebAssembly module with wazero and
// exposes its JSON call interface.
//
// The guest exports fhevm_alloc(size) ptr, fhevm_free(ptr, size) and
// fhevm_call(methodPtr, methodLen, reqPtr, reqLen) packed, where packed holds
// ptr<<32 | len of a JSON envelope {"result": ..., "error": "..."}. Request
// and method buffers are allocated in guest memory by the host and freed
// after the call; the response buffer is freed by the host once copied out.
package bindings
