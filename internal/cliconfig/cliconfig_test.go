package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

var networkArgs = []string{
	"--chain-id=8009",
	"--network-url=https://devnet.zama.ai",
	"--gateway-url=https://gateway.zama.ai",
	"--acl-address=0x1234567890123456789012345678901234567890",
}

func TestLoadFromFlags(t *testing.T) {
	s, err := Load(newFlags(t, append(networkArgs, "--auto-init=false", "--user-address=0xabc")...))
	require.NoError(t, err)

	require.EqualValues(t, 8009, s.ChainID)
	require.Equal(t, "https://devnet.zama.ai", s.NetworkURL)
	require.True(t, s.Caching())
	require.False(t, s.AutoInitEnabled())
	require.Equal(t, "0xabc", s.UserAddress)
	require.Equal(t, "info", s.LogLevel)
	require.Equal(t, "console", s.LogFormat)
	require.Equal(t, "127.0.0.1:8545", s.Listen)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FHEVM_CHAIN_ID", "9000")
	t.Setenv("FHEVM_NETWORK_URL", "https://rpc.example.org")
	t.Setenv("FHEVM_GATEWAY_URL", "https://gw.example.org")
	t.Setenv("FHEVM_ACL_ADDRESS", "0x1234567890123456789012345678901234567890")
	t.Setenv("FHEVM_CACHE_ENABLED", "false")

	s, err := Load(newFlags(t))
	require.NoError(t, err)
	require.EqualValues(t, 9000, s.ChainID)
	require.Equal(t, "https://gw.example.org", s.GatewayURL)
	require.False(t, s.Caching())
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fhevm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chain-id: 1
network-url: https://file.example.org
gateway-url: https://file-gw.example.org
acl-address: "0x1234567890123456789012345678901234567890"
log-level: debug
wasm: engine.wasm
`), 0o600))

	t.Setenv("FHEVM_NETWORK_URL", "https://env.example.org")

	s, err := Load(newFlags(t, "--config="+path, "--chain-id=7"))
	require.NoError(t, err)
	require.EqualValues(t, 7, s.ChainID)
	require.Equal(t, "https://env.example.org", s.NetworkURL)
	require.Equal(t, "https://file-gw.example.org", s.GatewayURL)
	require.Equal(t, "debug", s.LogLevel)
	require.True(t, filepath.IsAbs(s.WASMPath))
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	_, err := Load(newFlags(t, "--network-url=https://devnet.zama.ai"))
	require.ErrorIs(t, err, fhevm.ErrConfig)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config="+filepath.Join(t.TempDir(), "missing.json")))
	require.ErrorContains(t, err, "read config")
}

func TestExpandPath(t *testing.T) {
	t.Setenv("FHEVM_TEST_DIR", "/opt/fhevm")

	got, err := ExpandPath("$FHEVM_TEST_DIR/engine.wasm")
	require.NoError(t, err)
	require.Equal(t, "/opt/fhevm/engine.wasm", got)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	got, err = ExpandPath("~/x/../engine.wasm")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "engine.wasm"), got)

	_, err = ExpandPath(" ")
	require.Error(t, err)
}
