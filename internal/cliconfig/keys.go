package cliconfig

// Flag names. Each is also read from the environment as FHEVM_<NAME> with
// hyphens replaced by underscores, and from the config file under the same
// key.
const (
	ConfigFileKey   = "config"
	ChainIDKey      = "chain-id"
	NetworkURLKey   = "network-url"
	GatewayURLKey   = "gateway-url"
	ACLAddressKey   = "acl-address"
	CacheEnabledKey = "cache-enabled"
	AutoInitKey     = "auto-init"
	WASMPathKey     = "wasm"
	UserAddressKey  = "user-address"
	PrivateKeyKey   = "private-key"
	LogLevelKey     = "log-level"
	LogFormatKey    = "log-format"
	LogFileKey      = "log-file"
	ListenKey       = "listen"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "FHEVM"

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
	defaultListen    = "127.0.0.1:8545"
)
