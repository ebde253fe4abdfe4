package fhevm

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Config describes how to reach an fhEVM deployment. It is the only input
// needed to construct a Client.
type Config struct {
	// ChainID of the target chain. Must be positive.
	ChainID int64 `json:"chainId" mapstructure:"chain-id"`

	// NetworkURL is the RPC endpoint of the target chain.
	NetworkURL string `json:"networkUrl" mapstructure:"network-url"`

	// GatewayURL is the KMS gateway endpoint.
	GatewayURL string `json:"gatewayUrl" mapstructure:"gateway-url"`

	// ACLAddress is the access-control-list contract address.
	ACLAddress string `json:"aclAddress" mapstructure:"acl-address"`

	// CacheEnabled shares engine instances between clients with the same
	// cache key. Nil means true.
	CacheEnabled *bool `json:"cacheEnabled,omitempty" mapstructure:"cache-enabled"`

	// AutoInit lets bindings call Init on mount. Nil means true.
	AutoInit *bool `json:"autoInit,omitempty" mapstructure:"auto-init"`
}

// BoolPtr returns a pointer to v, for the optional Config fields.
func BoolPtr(v bool) *bool { return &v }

// Caching reports whether instance caching is enabled.
func (c Config) Caching() bool {
	return c.CacheEnabled == nil || *c.CacheEnabled
}

// AutoInitEnabled reports whether bindings should initialize on mount.
func (c Config) AutoInitEnabled() bool {
	return c.AutoInit == nil || *c.AutoInit
}

// CacheKey identifies the engine instance a config resolves to.
func (c Config) CacheKey() string {
	return fmt.Sprintf("%d-%s-%s", c.ChainID, c.NetworkURL, c.GatewayURL)
}

// CreateConfig validates raw and returns it with defaults applied. It never
// returns a partially valid config.
func CreateConfig(raw Config) (Config, error) {
	if raw.ChainID == 0 {
		return Config{}, configError("chainId is required")
	}
	if raw.NetworkURL == "" {
		return Config{}, configError("networkUrl is required")
	}
	if raw.GatewayURL == "" {
		return Config{}, configError("gatewayUrl is required")
	}
	if raw.ACLAddress == "" {
		return Config{}, configError("aclAddress is required")
	}

	if raw.ChainID < 0 {
		return Config{}, configError("chainId must be a positive number")
	}
	if !validURL(raw.NetworkURL) {
		return Config{}, configError("networkUrl must be a valid URL")
	}
	if !validURL(raw.GatewayURL) {
		return Config{}, configError("gatewayUrl must be a valid URL")
	}
	if !addressPattern.MatchString(raw.ACLAddress) {
		return Config{}, configError("aclAddress must be a valid Ethereum address")
	}

	cfg := raw
	cfg.CacheEnabled = BoolPtr(raw.Caching())
	cfg.AutoInit = BoolPtr(raw.AutoInitEnabled())
	return cfg, nil
}

// ParseConfig builds a Config from loosely typed input such as a decoded
// JSON object or viper settings, then validates it with CreateConfig.
// Keys may be camelCase (chainId) or kebab-case (chain-id).
func ParseConfig(raw map[string]any) (Config, error) {
	var cfg Config

	chainID, ok := lookup(raw, "chainId", "chain-id")
	if ok {
		id, err := toChainID(chainID)
		if err != nil {
			return Config{}, err
		}
		cfg.ChainID = id
	}

	var err error
	if cfg.NetworkURL, err = lookupString(raw, "networkUrl", "network-url"); err != nil {
		return Config{}, err
	}
	if cfg.GatewayURL, err = lookupString(raw, "gatewayUrl", "gateway-url"); err != nil {
		return Config{}, err
	}
	if cfg.ACLAddress, err = lookupString(raw, "aclAddress", "acl-address"); err != nil {
		return Config{}, err
	}
	if cfg.CacheEnabled, err = lookupBool(raw, "cacheEnabled", "cache-enabled"); err != nil {
		return Config{}, err
	}
	if cfg.AutoInit, err = lookupBool(raw, "autoInit", "auto-init"); err != nil {
		return Config{}, err
	}

	return CreateConfig(cfg)
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func lookup(raw map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func lookupString(raw map[string]any, keys ...string) (string, error) {
	v, ok := lookup(raw, keys...)
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", configError("%s must be a string", keys[0])
	}
	return s, nil
}

func lookupBool(raw map[string]any, keys ...string) (*bool, error) {
	v, ok := lookup(raw, keys...)
	if !ok {
		return nil, nil
	}
	switch b := v.(type) {
	case bool:
		return BoolPtr(b), nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return nil, configError("%s must be a boolean", keys[0])
		}
		return BoolPtr(parsed), nil
	default:
		return nil, configError("%s must be a boolean", keys[0])
	}
}

func toChainID(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, configError("chainId must be a positive number")
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, configError("chainId must be a positive number")
		}
		return int64(n), nil
	case json.Number:
		id, err := n.Int64()
		if err != nil {
			return 0, configError("chainId must be a positive number")
		}
		return id, nil
	case string:
		// viper hands env and flag values over as strings.
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, configError("chainId must be a positive number")
		}
		return id, nil
	default:
		return 0, configError("chainId must be a positive number")
	}
}
