package entities

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Decimals uint8          `json:"decimals"`
}

// OneUnit returns 10^decimals, one whole token in base units.
func (t Token) OneUnit() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil)
}

// USDC is native USD Coin on Base mainnet, the canonical sell token for
// directory swaps.
var USDC = Token{
	Address:  common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
	Symbol:   "USDC",
	Name:     "USD Coin",
	Decimals: 6,
}

// WETH is Wrapped Ether on Base mainnet.
var WETH = Token{
	Address:  common.HexToAddress("0x4200000000000000000000000000000000000006"),
	Symbol:   "WETH",
	Name:     "Wrapped Ether",
	Decimals: 18,
}

// DEGEN is a long-tail community token on Base, seeded in the default
// registry as an example creator-style asset.
var DEGEN = Token{
	Address:  common.HexToAddress("0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed"),
	Symbol:   "DEGEN",
	Name:     "Degen",
	Decimals: 18,
}
