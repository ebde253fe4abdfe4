package vanilla_test

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/fhevmtest"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/vanilla"
)

func newReadyClient(t *testing.T, opts ...fhevmtest.EngineOption) (*vanilla.Client, *fhevmtest.Engine) {
	t.Helper()
	boot := fhevmtest.NewBootstrapper(opts...)
	c, err := vanilla.NewClient(fhevmtest.Config(),
		fhevm.WithBootstrapper(boot),
		fhevm.WithInstanceCache(fhevm.NewInstanceCache()),
	)
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	engines := boot.Engines()
	require.Len(t, engines, 1)
	return c, engines[0]
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	cfg := fhevmtest.Config()
	cfg.NetworkURL = "not a url"
	_, err := vanilla.NewClient(cfg)
	require.ErrorIs(t, err, fhevm.ErrConfig)
}

func TestOperationsBeforeInit(t *testing.T) {
	ctx := context.Background()
	c, err := vanilla.NewClient(fhevmtest.Config(), fhevm.WithBootstrapper(fhevmtest.NewBootstrapper()))
	require.NoError(t, err)

	_, err = c.Encrypt(ctx, fhevm.EncryptParams{Value: true, Type: fhevm.Bool})
	require.ErrorIs(t, err, fhevm.ErrInstanceNotReady)
	_, err = c.EncryptBatch(ctx, fhevm.EncryptBatchParams{})
	require.ErrorIs(t, err, fhevm.ErrInstanceNotReady)
	_, err = c.Decrypt(ctx, fhevm.DecryptParams{Handle: "0x01"}, "0x")
	require.ErrorIs(t, err, fhevm.ErrInstanceNotReady)
	_, err = c.Reencrypt(ctx, "0x01", fhevmtest.ContractAddress, "0x")
	require.ErrorIs(t, err, fhevm.ErrInstanceNotReady)
	_, err = c.GenerateToken(ctx, fhevm.TokenParams{VerifyingContract: fhevmtest.ContractAddress})
	require.ErrorIs(t, err, fhevm.ErrInstanceNotReady)
}

func TestStoredUserAddressIsReused(t *testing.T) {
	ctx := context.Background()
	c, engine := newReadyClient(t)
	require.Empty(t, c.UserAddress())

	c.SetUserAddress(fhevmtest.UserAddress)
	require.Equal(t, fhevmtest.UserAddress, c.UserAddress())

	_, err := c.Encrypt(ctx, fhevm.EncryptParams{Value: 3, Type: fhevm.Uint8, ContractAddress: fhevmtest.ContractAddress})
	require.NoError(t, err)
	_, err = c.EncryptBatch(ctx, fhevm.EncryptBatchParams{
		Values:          []fhevm.TypedValue{{Value: true, Type: fhevm.Bool}},
		ContractAddress: fhevmtest.ContractAddress,
	})
	require.NoError(t, err)

	var inputs [][2]string
	for _, call := range engine.Calls() {
		if call.Method == fhevmtest.MethodCreateInput {
			inputs = append(inputs, call.Value.([2]string))
		}
	}
	want := [2]string{fhevmtest.ContractAddress, fhevmtest.UserAddress}
	require.Equal(t, [][2]string{want, want}, inputs)
}

func TestDecryptWithStoredIdentity(t *testing.T) {
	ctx := context.Background()
	c, _ := newReadyClient(t, fhevmtest.RequireSignature())

	kp, err := fhevmtest.NewKeypair()
	require.NoError(t, err)
	c.SetUserAddress(fhevmtest.UserAddress)
	c.SetPrivateKey(kp.PrivateKey)

	out, err := c.Encrypt(ctx, fhevm.EncryptParams{Value: uint16(4242), Type: fhevm.Uint16, ContractAddress: fhevmtest.ContractAddress})
	require.NoError(t, err)

	token, err := c.GenerateToken(ctx, fhevm.TokenParams{VerifyingContract: fhevmtest.ContractAddress})
	require.NoError(t, err)
	require.Equal(t, fhevmtest.UserAddress, token.Message["delegatedAccount"])

	sig, err := fhevmtest.SignToken(kp.PrivateKey, token)
	require.NoError(t, err)

	got, err := c.Decrypt(ctx, fhevm.DecryptParams{Handle: out.Handles[0], ContractAddress: fhevmtest.ContractAddress}, sig)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(4242), got)

	got, err = c.Reencrypt(ctx, out.Handles[0], fhevmtest.ContractAddress, sig)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(4242), got)

	other, err := fhevmtest.NewKeypair()
	require.NoError(t, err)
	c.SetPrivateKey(other.PrivateKey)
	_, err = c.Reencrypt(ctx, out.Handles[0], fhevmtest.ContractAddress, sig)
	require.ErrorIs(t, err, fhevm.ErrDecryption)
	require.ErrorIs(t, err, fhevmtest.ErrBadSignature)
}

func TestGenerateTokenPrefersExplicitUser(t *testing.T) {
	ctx := context.Background()
	c, _ := newReadyClient(t)
	c.SetUserAddress(fhevmtest.UserAddress)

	token, err := c.GenerateToken(ctx, fhevm.TokenParams{
		VerifyingContract: fhevmtest.ContractAddress,
		UserAddress:       fhevmtest.ContractAddress,
	})
	require.NoError(t, err)
	require.Equal(t, fhevmtest.ContractAddress, token.Message["delegatedAccount"])
}

func TestErrorsAreReturned(t *testing.T) {
	ctx := context.Background()
	c, engine := newReadyClient(t)
	c.SetUserAddress(fhevmtest.UserAddress)

	engine.FailOn(fhevmtest.MethodEncrypt, context.DeadlineExceeded)
	_, err := c.Encrypt(ctx, fhevm.EncryptParams{Value: 1, Type: fhevm.Uint8, ContractAddress: fhevmtest.ContractAddress})
	require.ErrorIs(t, err, fhevm.ErrEncryption)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	engine.FailOn(fhevmtest.MethodCreateEIP, context.Canceled)
	_, err = c.GenerateToken(ctx, fhevm.TokenParams{VerifyingContract: fhevmtest.ContractAddress})
	require.ErrorIs(t, err, fhevm.ErrDecryption)
}
