package services

import (
	"testing"

	"bridgeguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzedRoute(protocol string, fee float64, seconds, security int) models.AnalyzedRoute {
	return models.AnalyzedRoute{
		ProtocolRoute: models.ProtocolRoute{
			Protocol:      protocol,
			ProtocolName:  protocol,
			InputAmount:   10,
			OutputAmount:  10 - fee,
			TotalFee:      fee,
			EstimatedTime: seconds,
			Steps:         1,
		},
		Security: models.SecurityAnalysis{OverallSecurity: security},
	}
}

func TestSynthesizeEmptyInput(t *testing.T) {
	s := NewStrategySynthesizer(0.5)
	assert.Nil(t, s.Synthesize(nil, 10))
}

func TestSynthesizeSingleProviderNoSplit(t *testing.T) {
	s := NewStrategySynthesizer(0.5)
	routes := []models.AnalyzedRoute{analyzedRoute("across", 0.002, 20, 90)}

	strategies := s.Synthesize(routes, 10)
	require.Len(t, strategies, 1)
	assert.Equal(t, models.StrategyTypeSingle, strategies[0].StrategyType)
	require.Len(t, strategies[0].Splits, 1)
	assert.Equal(t, 100.0, strategies[0].Splits[0].Percentage)
	assert.Equal(t, 10.0, strategies[0].Splits[0].Amount)
}

func TestSynthesizeSplitAggregates(t *testing.T) {
	s := NewStrategySynthesizer(0.5)
	routes := []models.AnalyzedRoute{
		analyzedRoute("across", 0.002, 20, 92),
		analyzedRoute("lifi", 0.003, 90, 88),
	}

	strategies := s.Synthesize(routes, 10)
	require.Len(t, strategies, 2)

	var split *models.AggregatedRouteStrategy
	for i := range strategies {
		if strategies[i].StrategyType == models.StrategyTypeSplit {
			split = &strategies[i]
		}
	}
	require.NotNil(t, split)

	// The cheaper/faster route wins the 70% leg
	require.Len(t, split.Splits, 2)
	assert.Equal(t, "across", split.Splits[0].Protocol)
	assert.Equal(t, 70.0, split.Splits[0].Percentage)
	assert.InDelta(t, 7.0, split.Splits[0].Amount, 1e-9)
	assert.Equal(t, "lifi", split.Splits[1].Protocol)
	assert.Equal(t, 30.0, split.Splits[1].Percentage)
	assert.InDelta(t, 3.0, split.Splits[1].Amount, 1e-9)

	// Aggregate time is the slowest leg, fees blend by percentage
	assert.Equal(t, 90, split.EstimatedTime)
	assert.InDelta(t, 0.7*0.002+0.3*0.003, split.TotalFees, 1e-9)
	// int(0.7*92 + 0.3*88) = int(90.8)
	assert.Equal(t, 90, split.SecurityScore)
}

func TestSynthesizeSplitFloor(t *testing.T) {
	s := NewStrategySynthesizer(0.5)
	routes := []models.AnalyzedRoute{
		analyzedRoute("across", 0.002, 20, 92),
		analyzedRoute("lifi", 0.003, 90, 88),
	}

	// Amount at the floor does not split; it must exceed it
	strategies := s.Synthesize(routes, 0.5)
	require.Len(t, strategies, 1)
	assert.Equal(t, models.StrategyTypeSingle, strategies[0].StrategyType)

	strategies = s.Synthesize(routes, 0.51)
	require.Len(t, strategies, 2)
}

func TestSynthesizeKeepsBestRoutePerProvider(t *testing.T) {
	s := NewStrategySynthesizer(0.5)
	routes := []models.AnalyzedRoute{
		analyzedRoute("across", 0.010, 300, 92), // worse across quote
		analyzedRoute("across", 0.002, 20, 92),
		analyzedRoute("lifi", 0.003, 90, 88),
	}

	strategies := s.Synthesize(routes, 10)
	require.Len(t, strategies, 2)

	for _, strategy := range strategies {
		for _, split := range strategy.Splits {
			if split.Protocol == "across" {
				assert.Equal(t, 0.002, split.Route.TotalFee)
			}
		}
	}
}

func TestSynthesizeRankOrdering(t *testing.T) {
	s := NewStrategySynthesizer(0.5)
	routes := []models.AnalyzedRoute{
		analyzedRoute("across", 0.002, 20, 92),
		analyzedRoute("lifi", 0.003, 90, 88),
	}

	strategies := s.Synthesize(routes, 10)
	require.Len(t, strategies, 2)

	// Best first, and rank scores are monotonically non-increasing
	assert.GreaterOrEqual(t, strategies[0].RankScore, strategies[1].RankScore)

	// The single route through the fast cheap provider dominates here:
	// its speed and fee factors are both 100 and its security is higher
	assert.Equal(t, models.StrategyTypeSingle, strategies[0].StrategyType)
}
