package entities

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// TokenConfig is one entry of a tokens.json file.
type TokenConfig struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

type TokensConfig struct {
	Tokens []TokenConfig `json:"tokens"`
}

// TokenRegistry holds known tokens indexed by address and symbol. Tokens
// discovered at runtime (profile token validation) are registered here so
// later quote requests can resolve decimals without another chain read.
type TokenRegistry struct {
	mu        sync.RWMutex
	byAddress map[common.Address]Token
	bySymbol  map[string]Token
}

func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{
		byAddress: make(map[common.Address]Token),
		bySymbol:  make(map[string]Token),
	}
}

// LoadFromFile merges tokens from a JSON config file into the registry.
func (r *TokenRegistry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read token config: %w", err)
	}

	var config TokensConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parse token config: %w", err)
	}

	for _, tc := range config.Tokens {
		if !common.IsHexAddress(tc.Address) {
			return fmt.Errorf("token config: invalid address %q", tc.Address)
		}
		r.Register(Token{
			Address:  common.HexToAddress(tc.Address),
			Symbol:   tc.Symbol,
			Name:     tc.Name,
			Decimals: tc.Decimals,
		})
	}

	return nil
}

func (r *TokenRegistry) Register(token Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAddress[token.Address] = token
	r.bySymbol[strings.ToUpper(token.Symbol)] = token
}

func (r *TokenRegistry) GetByAddress(addr common.Address) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.byAddress[addr]
	return token, ok
}

func (r *TokenRegistry) GetBySymbol(symbol string) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.bySymbol[strings.ToUpper(symbol)]
	return token, ok
}

func (r *TokenRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddress)
}

// DefaultRegistry returns a registry seeded with the Base mainnet tokens the
// service always knows about.
func DefaultRegistry() *TokenRegistry {
	r := NewTokenRegistry()
	r.Register(USDC)
	r.Register(WETH)
	r.Register(DEGEN)
	return r
}
