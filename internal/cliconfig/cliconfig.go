// Package cliconfig loads fhevm-go command settings from flags, the
// environment and an optional config file, in that order of precedence.
package cliconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
)

// Settings is everything a command may need. Only the embedded Config is
// validated; the rest is checked by the commands that use it.
type Settings struct {
	fhevm.Config `mapstructure:",squash"`

	WASMPath    string `mapstructure:"wasm"`
	UserAddress string `mapstructure:"user-address"`
	PrivateKey  string `mapstructure:"private-key"`
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
	LogFile     string `mapstructure:"log-file"`
	Listen      string `mapstructure:"listen"`
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(ConfigFileKey, "", "path to a JSON, YAML or TOML config file")
	fs.Int64(ChainIDKey, 0, "chain id of the fhEVM network")
	fs.String(NetworkURLKey, "", "RPC endpoint of the network")
	fs.String(GatewayURLKey, "", "KMS gateway endpoint")
	fs.String(ACLAddressKey, "", "ACL contract address")
	fs.Bool(CacheEnabledKey, true, "share engine instances between clients")
	fs.Bool(AutoInitKey, true, "initialize the engine on start")
	fs.String(WASMPathKey, "", "path to the compiled FHE engine module")
	fs.String(UserAddressKey, "", "address the commands act for")
	fs.String(PrivateKeyKey, "", "reencryption private key")
	fs.String(LogLevelKey, defaultLogLevel, "debug, info, warn or error")
	fs.String(LogFormatKey, defaultLogFormat, "console or json")
	fs.String(LogFileKey, "", "also write logs to this file, rotated")
	fs.String(ListenKey, defaultListen, "address the HTTP server listens on")
}

// BuildViper binds fs and the environment and reads the config file when
// one is named.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if !v.IsSet(ConfigFileKey) || v.GetString(ConfigFileKey) == "" {
		return v, nil
	}
	path, err := ExpandPath(v.GetString(ConfigFileKey))
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// Load returns the settings for fs. It fails when the embedded fhevm.Config
// is invalid.
func Load(fs *pflag.FlagSet) (Settings, error) {
	v, err := BuildViper(fs)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg, err := fhevm.CreateConfig(s.Config)
	if err != nil {
		return Settings{}, err
	}
	s.Config = cfg

	for _, p := range []*string{&s.WASMPath, &s.LogFile} {
		if *p == "" {
			continue
		}
		if *p, err = ExpandPath(*p); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

// ExpandPath expands environment variables and a leading ~ and returns an
// absolute, cleaned path.
func ExpandPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty path")
	}
	expanded := os.ExpandEnv(path)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home directory: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
	}
	abs, err := filepath.Abs(filepath.Clean(expanded))
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	return abs, nil
}
