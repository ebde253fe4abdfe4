// Package fhevm is a client-side adapter over an external fhEVM engine.
//
// The engine itself (key management, ciphertext construction, input proofs
// and reencryption) is an opaque module reached through the Engine and
// Bootstrapper interfaces; see the wasmengine subpackage for the wazero
// loader. This package validates connection configuration, manages engine
// lifecycle and instance caching, and shapes typed encryption and
// decryption requests.
//
// # Lifecycle
//
//	cfg, err := fhevm.CreateConfig(fhevm.Config{
//	    ChainID:    9000,
//	    NetworkURL: "https://devnet.example.org",
//	    GatewayURL: "https://gateway.example.org",
//	    ACLAddress: "0x339EcE85B9E11a3A3AA557582784a15d7F82AAf2",
//	})
//	client, err := fhevm.NewClient(cfg, fhevm.WithBootstrapper(loader))
//	err = client.Init(ctx)
//	engine, err := client.Engine()
//
// Clients whose configs share a cache key (chain id, network URL and
// gateway URL) share one Engine unless caching is disabled.
//
// # Encryption
//
//	out, err := fhevm.EncryptBatch(ctx, engine, fhevm.EncryptBatchParams{
//	    ContractAddress: contract,
//	    Values: []fhevm.TypedValue{
//	        {Value: true, Type: fhevm.Bool},
//	        {Value: 42, Type: fhevm.Uint8},
//	        {Value: uint256.NewInt(7), Type: fhevm.Uint256},
//	    },
//	}, user)
//
// out.Handles[i] corresponds to Values[i].
//
// # Errors
//
// Every failure is an *Error carrying a Code; match with errors.Is against
// ErrConfig, ErrInstanceNotReady, ErrEncryption, ErrDecryption or ErrInit.
package fhevm
