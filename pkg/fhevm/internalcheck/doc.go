// Package internalcheck holds source-level policy tests for fhevm-go.
//
// The tests load the module's packages with golang.org/x/tools/go/packages
// and walk their syntax trees. They guard properties the compiler cannot:
// secrets never reach a logger, and byte slices holding key material or
// digests are never compared with ==.
//
// The package has no exported API.
package internalcheck
