package utils

import (
	"math/big"
)

// pow10 returns 10^decimals as a big.Int
func pow10(decimals int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// ParseBaseUnits parses an integer base-unit string to float64 token units
// using the token's decimals (6 for USDC/USDT, 18 for ETH-like assets)
func ParseBaseUnits(amount string, decimals int) float64 {
	if amount == "" {
		return 0
	}

	amountBig, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return 0
	}

	// Use big.Float for precision
	amountFloat := new(big.Float).SetInt(amountBig)
	divisor := new(big.Float).SetInt(pow10(decimals))
	result := new(big.Float).Quo(amountFloat, divisor)

	resultFloat, _ := result.Float64()
	return resultFloat
}

// ToBaseUnits converts float64 token units to an integer base-unit big.Int
func ToBaseUnits(amount float64, decimals int) *big.Int {
	units := new(big.Float).SetFloat64(amount)
	multiplier := new(big.Float).SetInt(pow10(decimals))
	units.Mul(units, multiplier)
	result, _ := units.Int(nil)
	return result
}

// ToBaseUnitsString converts float64 token units to a base-unit decimal string
func ToBaseUnitsString(amount float64, decimals int) string {
	return ToBaseUnits(amount, decimals).String()
}

// ParseWeiAmount parses a wei decimal string to float64 for 18-decimal assets
func ParseWeiAmount(amount string) float64 {
	return ParseBaseUnits(amount, 18)
}

// ToWei converts float64 token units to a wei big.Int for 18-decimal assets
func ToWei(amount float64) *big.Int {
	return ToBaseUnits(amount, 18)
}

// ToWeiString converts float64 token units to a wei decimal string
func ToWeiString(amount float64) string {
	return ToWei(amount).String()
}
