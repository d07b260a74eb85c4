package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWeiAmount(t *testing.T) {
	assert.Equal(t, 1.0, ParseWeiAmount("1000000000000000000"))
	assert.InDelta(t, 0.01, ParseWeiAmount("10000000000000000"), 1e-12)

	// malformed or empty input is treated as zero, not an error
	assert.Equal(t, 0.0, ParseWeiAmount(""))
	assert.Equal(t, 0.0, ParseWeiAmount("0xdeadbeef"))
	assert.Equal(t, 0.0, ParseWeiAmount("not a number"))
}

func TestToWeiString(t *testing.T) {
	assert.Equal(t, "1000000000000000000", ToWeiString(1))
	assert.Equal(t, "500000000000000000", ToWeiString(0.5))
	assert.Equal(t, "0", ToWeiString(0))
}

func TestToBaseUnitsStringRespectsDecimals(t *testing.T) {
	// 100 of a 6-decimal stablecoin is 100e6 base units, not 100e18
	assert.Equal(t, "100000000", ToBaseUnitsString(100, 6))
	assert.Equal(t, "2500000", ToBaseUnitsString(2.5, 6))
	assert.Equal(t, "100000000000000000000", ToBaseUnitsString(100, 18))
}

func TestParseBaseUnitsRespectsDecimals(t *testing.T) {
	assert.Equal(t, 100.0, ParseBaseUnits("100000000", 6))
	assert.InDelta(t, 99.5, ParseBaseUnits("99500000", 6), 1e-9)
	assert.Equal(t, 1.0, ParseBaseUnits("1000000000000000000", 18))
	assert.Equal(t, 0.0, ParseBaseUnits("garbage", 6))
}

func TestBaseUnitsRoundTripStaysClose(t *testing.T) {
	for _, decimals := range []int{6, 8, 18} {
		for _, amount := range []float64{0.001, 0.1, 9.98, 1234.5678} {
			assert.InDelta(t, amount, ParseBaseUnits(ToBaseUnitsString(amount, decimals), decimals), 1e-4)
		}
	}
}

func TestWeiRoundTripStaysClose(t *testing.T) {
	for _, amount := range []float64{0.001, 0.1, 9.98, 1234.5678} {
		assert.InDelta(t, amount, ParseWeiAmount(ToWeiString(amount)), 1e-9)
	}
}
