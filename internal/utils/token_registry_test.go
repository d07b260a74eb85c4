package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTokenAddress(t *testing.T) {
	addr, err := ResolveTokenAddress("lifi", 1, "USDC")
	require.NoError(t, err)
	assert.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", addr)

	// provider and symbol lookups are case insensitive
	addr, err = ResolveTokenAddress("LiFi", 8453, "usdc")
	require.NoError(t, err)
	assert.Equal(t, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", addr)
}

func TestResolveTokenAddressNativeHandling(t *testing.T) {
	// LiFi takes the zero address for native ETH
	addr, err := ResolveTokenAddress("lifi", 1, "ETH")
	require.NoError(t, err)
	assert.Equal(t, NativeTokenPlaceholder, addr)

	// Across only bridges deployed ERC-20s, native maps to WETH
	addr, err = ResolveTokenAddress("across", 1, "ETH")
	require.NoError(t, err)
	assert.Equal(t, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", addr)
}

func TestResolveTokenAddressFailsLoudly(t *testing.T) {
	_, err := ResolveTokenAddress("hopscotch", 1, "USDC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hopscotch")

	_, err = ResolveTokenAddress("lifi", 999, "USDC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "999")

	_, err = ResolveTokenAddress("lifi", 1, "PEPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PEPE")
}

func TestTokenDecimals(t *testing.T) {
	// the stablecoins carry 6 decimals on every supported chain
	assert.Equal(t, 6, TokenDecimals("USDC"))
	assert.Equal(t, 6, TokenDecimals("usdt"))

	assert.Equal(t, 18, TokenDecimals("ETH"))
	assert.Equal(t, 18, TokenDecimals("WETH"))
	assert.Equal(t, 18, TokenDecimals("DAI"))
}

func TestSupportedChains(t *testing.T) {
	chains := SupportedChains("lifi")
	assert.Contains(t, chains, 1)
	assert.Contains(t, chains, 8453)
	assert.Contains(t, chains, 42161)

	assert.Nil(t, SupportedChains("hopscotch"))
}

func TestGetChainName(t *testing.T) {
	assert.Equal(t, "Ethereum", GetChainName(1))
	assert.Equal(t, "Base", GetChainName(8453))
	assert.Equal(t, "Chain 31337", GetChainName(31337))
}
