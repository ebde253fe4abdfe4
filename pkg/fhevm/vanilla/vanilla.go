// Package vanilla is a stateful fhevm.Client for scripts and services that
// act on behalf of a single user. The user address and reencryption private
// key are set once and reused by every call.
package vanilla

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
)

// Client is an fhevm.Client that remembers who it acts for.
type Client struct {
	*fhevm.Client

	mu          sync.RWMutex
	userAddress string
	privateKey  string
}

// NewClient validates cfg and returns an uninitialized client.
func NewClient(cfg fhevm.Config, opts ...fhevm.Option) (*Client, error) {
	inner, err := fhevm.NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{Client: inner}, nil
}

// SetUserAddress sets the address used by later operations.
func (c *Client) SetUserAddress(address string) {
	c.mu.Lock()
	c.userAddress = address
	c.mu.Unlock()
}

// UserAddress returns the stored user address.
func (c *Client) UserAddress() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userAddress
}

// SetPrivateKey sets the reencryption private key used by Decrypt and
// Reencrypt.
func (c *Client) SetPrivateKey(key string) {
	c.mu.Lock()
	c.privateKey = key
	c.mu.Unlock()
}

func (c *Client) identity() (user, key string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userAddress, c.privateKey
}

// Encrypt encrypts one value for the stored user.
func (c *Client) Encrypt(ctx context.Context, params fhevm.EncryptParams) (fhevm.EncryptedData, error) {
	engine, err := c.Engine()
	if err != nil {
		return fhevm.EncryptedData{}, err
	}
	return fhevm.Encrypt(ctx, engine, params, c.UserAddress())
}

// EncryptBatch encrypts several values for the stored user under one proof.
func (c *Client) EncryptBatch(ctx context.Context, params fhevm.EncryptBatchParams) (fhevm.EncryptedData, error) {
	engine, err := c.Engine()
	if err != nil {
		return fhevm.EncryptedData{}, err
	}
	return fhevm.EncryptBatch(ctx, engine, params, c.UserAddress())
}

// Decrypt reencrypts params.Handle with the stored identity.
func (c *Client) Decrypt(ctx context.Context, params fhevm.DecryptParams, signature string) (*uint256.Int, error) {
	engine, err := c.Engine()
	if err != nil {
		return nil, err
	}
	user, key := c.identity()
	return fhevm.Decrypt(ctx, engine, params, user, key, signature)
}

// Reencrypt is Decrypt with the handle and contract passed directly.
func (c *Client) Reencrypt(ctx context.Context, handle, contractAddress, signature string) (*uint256.Int, error) {
	engine, err := c.Engine()
	if err != nil {
		return nil, err
	}
	user, key := c.identity()
	return fhevm.Reencrypt(ctx, engine, handle, contractAddress, user, key, signature)
}

// GenerateToken returns the EIP-712 payload to sign. When params.UserAddress
// is empty the stored user address is used.
func (c *Client) GenerateToken(ctx context.Context, params fhevm.TokenParams) (*fhevm.EIP712, error) {
	engine, err := c.Engine()
	if err != nil {
		return nil, err
	}
	if params.UserAddress == "" {
		params.UserAddress = c.UserAddress()
	}
	return fhevm.GenerateToken(ctx, engine, params)
}
