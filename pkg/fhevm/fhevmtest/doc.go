// Package fhevmtest provides an in-memory Engine and Bootstrapper for tests
// and examples.
//
// The stub engine never encrypts anything. Each handle it returns carries the
// plaintext's type code and position, and the engine remembers the plaintext
// so that Reencrypt hands it back. Every builder call is recorded, which lets
// tests assert on what reached the engine and in which order.
//
// # Usage
//
//	boot := fhevmtest.NewBootstrapper()
//
//	client, _ := fhevm.NewClient(fhevmtest.Config(),
//	    fhevm.WithBootstrapper(boot),
//	    fhevm.WithInstanceCache(fhevm.NewInstanceCache()),
//	)
//	_ = client.Init(ctx)
//	engine, _ := client.Engine()
//
//	out, _ := fhevm.Encrypt(ctx, engine, fhevm.EncryptParams{
//	    Value: true, Type: fhevm.Bool, ContractAddress: fhevmtest.ContractAddress,
//	}, fhevmtest.UserAddress)
//
// Keypairs are real secp256k1 keys. When RequireSignature is set, Reencrypt
// verifies the signature produced by SignToken against the keypair's public
// key.
//
// The stub is not suitable for production use.
package fhevmtest
