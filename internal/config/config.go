// Package config exposes typed application configuration loaded from YAML
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name       string `yaml:"name"`
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
}

// Chain configures access to Base.
type Chain struct {
	RPCURL  string `yaml:"rpc_url"`
	ChainID uint64 `yaml:"chain_id"`
}

// ZeroEx configures the 0x Swap API fallback.
type ZeroEx struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// Kyber configures the KyberSwap Aggregator fallback.
type Kyber struct {
	BaseURL  string `yaml:"base_url"`
	ClientID string `yaml:"client_id"`
}

// Providers sets provider priority and retry behavior.
type Providers struct {
	// Order lists provider names in routing priority. Valid entries:
	// uniswap_v3, zerox, kyberswap.
	Order          []string `yaml:"order"`
	SlippageLadder []uint64 `yaml:"slippage_ladder_bps"`
	ZeroEx         ZeroEx   `yaml:"zerox"`
	Kyber          Kyber    `yaml:"kyber"`
}

// Cache configures the quote/token cache backend.
type Cache struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// Store configures profile persistence.
type Store struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Config collects every configuration leaf.
type Config struct {
	App       App       `yaml:"app"`
	Chain     Chain     `yaml:"chain"`
	Providers Providers `yaml:"providers"`
	Cache     Cache     `yaml:"cache"`
	Store     Store     `yaml:"store"`
	// TokensFile optionally seeds the token registry from a tokens.json.
	TokensFile string `yaml:"tokens_file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App: App{
			Name:       "tokendir",
			ListenAddr: ":8080",
			LogLevel:   "info",
		},
		Chain: Chain{
			RPCURL:  "https://mainnet.base.org",
			ChainID: 8453,
		},
		Providers: Providers{
			Order:          []string{"uniswap_v3", "zerox", "kyberswap"},
			SlippageLadder: []uint64{50, 100, 300, 500},
		},
		Store: Store{
			SQLitePath: "tokendir.db",
		},
	}
}

// Load reads YAML from path (when it exists) over the defaults, then
// applies environment overrides. A missing file is not an error; a
// malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("decode config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env/defaults
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.App.ListenAddr, "LISTEN_ADDR")
	setString(&c.App.LogLevel, "LOG_LEVEL")
	setString(&c.Chain.RPCURL, "RPC_URL")
	setString(&c.Providers.ZeroEx.BaseURL, "ZEROX_BASE_URL")
	setString(&c.Providers.ZeroEx.APIKey, "ZEROX_API_KEY")
	setString(&c.Providers.Kyber.BaseURL, "KYBER_BASE_URL")
	setString(&c.Providers.Kyber.ClientID, "KYBER_CLIENT_ID")
	setString(&c.Cache.RedisAddr, "REDIS_ADDR")
	setString(&c.Cache.RedisPassword, "REDIS_PASSWORD")
	setString(&c.Store.SQLitePath, "SQLITE_PATH")
	setString(&c.TokensFile, "TOKENS_FILE")

	if order := os.Getenv("PROVIDER_ORDER"); order != "" {
		var names []string
		for _, name := range strings.Split(order, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			c.Providers.Order = names
		}
	}
}

func (c *Config) validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain rpc_url is required")
	}
	if len(c.Providers.Order) == 0 {
		return fmt.Errorf("provider order must not be empty")
	}
	for _, name := range c.Providers.Order {
		switch name {
		case "uniswap_v3", "zerox", "kyberswap":
		default:
			return fmt.Errorf("unknown provider %q in order", name)
		}
	}
	for _, bps := range c.Providers.SlippageLadder {
		if bps > 10000 {
			return fmt.Errorf("slippage ladder entry %d exceeds 10000 bps", bps)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}
