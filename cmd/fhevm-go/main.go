// Command fhevm-go encrypts inputs for and decrypts results from an fhEVM
// network through a compiled FHE engine module, and can serve the same
// operations over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/universal-fhevm/fhevm-go/internal/cliconfig"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/wasmengine"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(loadEngine).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// bootstrapFunc picks the engine for the loaded settings.
type bootstrapFunc func(cliconfig.Settings) (fhevm.Bootstrapper, error)

func loadEngine(s cliconfig.Settings) (fhevm.Bootstrapper, error) {
	if s.WASMPath == "" {
		return nil, fmt.Errorf("--%s is required: %w", cliconfig.WASMPathKey, fhevm.ErrEngineUnavailable)
	}
	return wasmengine.Load(s.WASMPath)
}

func newRootCmd(bootstrap bootstrapFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "fhevm-go",
		Short:         "Client-side encryption and reencryption for fhEVM networks",
		Version:       fmt.Sprintf("%s (engine %s)", fhevm.WrapperVersion(), fhevm.EngineVersion),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cliconfig.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newKeypairCmd(bootstrap),
		newEncryptCmd(bootstrap),
		newEncryptBatchCmd(bootstrap),
		newTokenCmd(bootstrap),
		newDecryptCmd(bootstrap),
		newServeCmd(bootstrap),
	)
	return root
}
