package services

import (
	"testing"

	"bridgeguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoute(protocol string) models.ProtocolRoute {
	return models.ProtocolRoute{
		Protocol:      protocol,
		ProtocolName:  protocol,
		FromChainID:   1,
		ToChainID:     8453,
		InputAmount:   10,
		OutputAmount:  9.99,
		TotalFee:      0.01,
		EstimatedTime: 60,
		Steps:         1,
	}
}

func TestScoreDeterministic(t *testing.T) {
	scorer := NewSecurityScorer(nil)
	route := sampleRoute("across")

	first := scorer.Score(route)
	second := scorer.Score(route)
	assert.Equal(t, first.Security.OverallSecurity, second.Security.OverallSecurity)
	assert.Equal(t, first.Security.RiskFactors, second.Security.RiskFactors)
}

func TestScoreKnownProtocol(t *testing.T) {
	scorer := NewSecurityScorer(nil)

	// across: protocol 92, slippage 0.1% -> 95, 60s -> 85,
	// fee 0.1% -> 95, 1 step -> 95
	analyzed := scorer.Score(sampleRoute("across"))
	sec := analyzed.Security

	require.NotNil(t, sec.ProtocolSecurity)
	assert.Equal(t, 92, *sec.ProtocolSecurity)
	assert.Equal(t, 95, *sec.LiquidityScore)
	assert.Equal(t, 85, *sec.TimeScore)
	assert.Equal(t, 95, *sec.FeeScore)
	assert.Equal(t, 95, *sec.ComplexityScore)

	// 0.30*92 + 0.25*95 + 0.20*85 + 0.15*95 + 0.10*95 = 91.85 -> 92
	assert.Equal(t, 92, sec.OverallSecurity)
	assert.Empty(t, sec.RiskFactors)
}

func TestScoreCrossAssetUsesUSDValues(t *testing.T) {
	scorer := NewSecurityScorer(nil)

	// 1 ETH in, 2997 USDC out: token amounts are incomparable, but the
	// USD valuations show 0.1% slippage
	route := sampleRoute("across")
	route.FromToken = "ETH"
	route.ToToken = "USDC"
	route.InputAmount = 1
	route.OutputAmount = 2997
	route.InputValueUSD = 3000
	route.OutputValueUSD = 2997

	analyzed := scorer.Score(route)
	require.NotNil(t, analyzed.Security.LiquidityScore)
	assert.Equal(t, 95, *analyzed.Security.LiquidityScore)
}

func TestScoreCrossAssetWithoutPriceDataBucketsLow(t *testing.T) {
	scorer := NewSecurityScorer(nil)

	// Without USD valuations a cross-asset gap cannot be measured; the
	// raw 1 -> 2997 token amounts must never be read as slippage
	route := sampleRoute("across")
	route.FromToken = "ETH"
	route.ToToken = "USDC"
	route.InputAmount = 1
	route.OutputAmount = 2997

	analyzed := scorer.Score(route)
	require.NotNil(t, analyzed.Security.LiquidityScore)
	assert.Equal(t, 60, *analyzed.Security.LiquidityScore)
}

func TestScoreUnknownProtocolNeverDefaults(t *testing.T) {
	scorer := NewSecurityScorer(nil)

	analyzed := scorer.Score(sampleRoute("hopscotch"))
	sec := analyzed.Security

	assert.Nil(t, sec.ProtocolSecurity)
	assert.Equal(t, 0, sec.OverallSecurity)
	require.NotEmpty(t, sec.RiskFactors)
	assert.Contains(t, sec.RiskFactors[0], "hopscotch")
}

func TestScoreRiskFactorsOnWorstBuckets(t *testing.T) {
	scorer := NewSecurityScorer(nil)

	route := models.ProtocolRoute{
		Protocol:      "lifi",
		InputAmount:   10,
		OutputAmount:  9.0,  // 10% slippage -> 60
		TotalFee:      0.5,  // 5% fee -> 60
		EstimatedTime: 3600, // -> 60
		Steps:         7,    // -> 60
	}
	sec := scorer.Score(route).Security

	assert.Equal(t, 60, *sec.LiquidityScore)
	assert.Equal(t, 60, *sec.TimeScore)
	assert.Equal(t, 60, *sec.FeeScore)
	assert.Equal(t, 60, *sec.ComplexityScore)
	assert.Len(t, sec.RiskFactors, 4)
}

func TestLiquidityBuckets(t *testing.T) {
	tests := []struct {
		input, output float64
		want          int
	}{
		{100, 99.95, 95}, // 0.05%
		{100, 99.7, 90},  // 0.3%
		{100, 99.2, 85},  // 0.8%
		{100, 98.0, 75},  // 2%
		{100, 95.0, 60},  // 5%
		{0, 10, 60},      // missing input data
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scoreLiquidity(tt.input, tt.output), "input=%v output=%v", tt.input, tt.output)
	}
}

func TestTimeBuckets(t *testing.T) {
	tests := []struct {
		seconds int
		want    int
	}{
		{3, 98},
		{30, 92},
		{120, 85},
		{600, 75},
		{601, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scoreTime(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestFeeBuckets(t *testing.T) {
	tests := []struct {
		fee, amount float64
		want        int
	}{
		{0.001, 1, 95},
		{0.005, 1, 90},
		{0.01, 1, 85},
		{0.02, 1, 75},
		{0.05, 1, 60},
		{0.01, 0, 60}, // amount unavailable
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scoreFee(tt.fee, tt.amount), "fee=%v amount=%v", tt.fee, tt.amount)
	}
}

func TestComplexityBuckets(t *testing.T) {
	tests := []struct {
		steps int
		want  int
	}{
		{1, 95},
		{2, 90},
		{3, 80},
		{5, 70},
		{6, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scoreComplexity(tt.steps), "steps=%d", tt.steps)
	}
}
