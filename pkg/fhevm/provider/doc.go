// Package provider scopes one fhevm.Client to the lifetime of a component
// and hands it to consumers through a context.Context.
//
// A Provider is mounted once. Mount initializes the client in the background;
// Unmount marks the provider as gone so a late initialization result is
// dropped instead of published. Consumers either poll State, block in Wait,
// or Subscribe to changes.
//
//	p := provider.New(cfg, provider.WithClientOptions(fhevm.WithBootstrapper(boot)))
//	p.Mount(ctx)
//	defer p.Unmount()
//
//	ctx = provider.WithProvider(ctx, p)
//	enc, _ := provider.UseEncrypt(ctx, userAddress)
//	out, err := enc.Run(ctx, fhevm.EncryptParams{Value: 42, Type: fhevm.Uint8, ContractAddress: contract})
//
// The Use* functions return action.Action values. An action checks readiness
// when it runs, not when it is created, and fails with ErrNotReady until the
// provider has an engine.
package provider
