package utils

import (
	"fmt"
	"strings"
)

// Token symbol to on-chain address resolution is provider specific: LiFi
// accepts the zero address as the native token placeholder while Across
// only bridges deployed ERC-20s (WETH for native). A missing entry is an
// error, never a guessed address.

// NativeTokenPlaceholder LiFi's native token sentinel address
const NativeTokenPlaceholder = "0x0000000000000000000000000000000000000000"

// tokenTable provider -> chainID -> symbol -> address
var tokenTable = map[string]map[int]map[string]string{
	"lifi": {
		1: {
			"ETH":  NativeTokenPlaceholder,
			"WETH": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			"USDC": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			"USDT": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			"DAI":  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		},
		10: {
			"ETH":  NativeTokenPlaceholder,
			"WETH": "0x4200000000000000000000000000000000000006",
			"USDC": "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
		},
		137: {
			"MATIC": NativeTokenPlaceholder,
			"WETH":  "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619",
			"USDC":  "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		},
		8453: {
			"ETH":  NativeTokenPlaceholder,
			"WETH": "0x4200000000000000000000000000000000000006",
			"USDC": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		},
		42161: {
			"ETH":  NativeTokenPlaceholder,
			"WETH": "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
			"USDC": "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		},
	},
	"across": {
		1: {
			"ETH":  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH, Across has no native placeholder
			"WETH": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			"USDC": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			"USDT": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			"DAI":  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		},
		10: {
			"ETH":  "0x4200000000000000000000000000000000000006",
			"WETH": "0x4200000000000000000000000000000000000006",
			"USDC": "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
		},
		137: {
			"WETH": "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619",
			"USDC": "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		},
		8453: {
			"ETH":  "0x4200000000000000000000000000000000000006",
			"WETH": "0x4200000000000000000000000000000000000006",
			"USDC": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		},
		42161: {
			"ETH":  "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
			"WETH": "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
			"USDC": "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		},
	},
}

// tokenDecimals symbol -> on-chain decimals. Stablecoins carry 6; everything
// else in the table is an 18-decimal asset.
var tokenDecimals = map[string]int{
	"USDC": 6,
	"USDT": 6,
}

// TokenDecimals returns the on-chain decimals for a token symbol
func TokenDecimals(symbol string) int {
	if decimals, ok := tokenDecimals[strings.ToUpper(symbol)]; ok {
		return decimals
	}
	return 18
}

// ResolveTokenAddress resolves a token symbol to its on-chain address for a
// given provider and chain. Unknown entries fail loudly.
func ResolveTokenAddress(provider string, chainID int, symbol string) (string, error) {
	chains, ok := tokenTable[strings.ToLower(provider)]
	if !ok {
		return "", fmt.Errorf("no token table for provider %s", provider)
	}
	tokens, ok := chains[chainID]
	if !ok {
		return "", fmt.Errorf("provider %s has no token table for chain %d", provider, chainID)
	}
	address, ok := tokens[strings.ToUpper(symbol)]
	if !ok {
		return "", fmt.Errorf("provider %s has no address for token %s on chain %d", provider, symbol, chainID)
	}
	return address, nil
}

// SupportedChains returns the chain IDs a provider has token data for
func SupportedChains(provider string) []int {
	chains, ok := tokenTable[strings.ToLower(provider)]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(chains))
	for chainID := range chains {
		out = append(out, chainID)
	}
	return out
}

// GetChainName gets chain name from chain ID
func GetChainName(chainID int) string {
	chainNames := map[int]string{
		1:     "Ethereum",
		10:    "Optimism",
		56:    "BSC",
		137:   "Polygon",
		8453:  "Base",
		42161: "Arbitrum",
	}

	if name, ok := chainNames[chainID]; ok {
		return name
	}
	return fmt.Sprintf("Chain %d", chainID)
}
