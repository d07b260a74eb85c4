package services

import (
	"fmt"
	"log"
	"sort"

	"bridgeguard/internal/models"
)

// split allocation for the diversified strategy, a fixed heuristic rather
// than an optimization search
const (
	primarySplitPct   = 70.0
	secondarySplitPct = 30.0
)

// strategy ranking weights
const (
	rankWeightSecurity = 0.4
	rankWeightSpeed    = 0.3
	rankWeightFee      = 0.3
)

// StrategySynthesizer builds executable strategies from scored routes
type StrategySynthesizer struct {
	minSplitAmount float64 // native units below which splitting is not worth it
}

// NewStrategySynthesizer creates a synthesizer with the given split floor
func NewStrategySynthesizer(minSplitAmount float64) *StrategySynthesizer {
	if minSplitAmount <= 0 {
		minSplitAmount = 0.5
	}
	return &StrategySynthesizer{minSplitAmount: minSplitAmount}
}

// Synthesize proposes strategies for the scored routes: always the best
// single route, plus a 70/30 two-provider split when at least two distinct
// providers returned usable routes and the amount clears the split floor.
// Strategies come back ranked best first.
func (s *StrategySynthesizer) Synthesize(routes []models.AnalyzedRoute, totalAmount float64) []models.AggregatedRouteStrategy {
	if len(routes) == 0 {
		return nil
	}

	// Keep the best route per provider, ranked by the speed/fee composite
	best := bestPerProvider(routes)
	sort.Slice(best, func(i, j int) bool {
		return routeComposite(best[i], best) > routeComposite(best[j], best)
	})

	strategies := []models.AggregatedRouteStrategy{
		s.singleRoute(best[0], totalAmount),
	}

	if len(best) >= 2 && totalAmount > s.minSplitAmount {
		strategies = append(strategies, s.splitRoute(best[0], best[1], totalAmount))
	}

	for i := range strategies {
		strategies[i].RankScore = s.rank(&strategies[i], strategies)
	}
	sort.Slice(strategies, func(i, j int) bool {
		return strategies[i].RankScore > strategies[j].RankScore
	})

	log.Printf("[StrategySynthesizer] Built %d strategies from %d routes, best: %s (rank %.1f)",
		len(strategies), len(routes), strategies[0].StrategyType, strategies[0].RankScore)
	return strategies
}

func (s *StrategySynthesizer) singleRoute(route models.AnalyzedRoute, totalAmount float64) models.AggregatedRouteStrategy {
	return models.AggregatedRouteStrategy{
		StrategyType: models.StrategyTypeSingle,
		Splits: []models.RouteSplit{
			{Protocol: route.Protocol, Route: route, Amount: totalAmount, Percentage: 100},
		},
		TotalAmount:   totalAmount,
		EstimatedTime: route.EstimatedTime,
		TotalFees:     route.TotalFee,
		SecurityScore: route.Security.OverallSecurity,
		Description:   fmt.Sprintf("Send the full amount through %s", route.ProtocolName),
	}
}

func (s *StrategySynthesizer) splitRoute(primary, secondary models.AnalyzedRoute, totalAmount float64) models.AggregatedRouteStrategy {
	splits := []models.RouteSplit{
		{
			Protocol:   primary.Protocol,
			Route:      primary,
			Amount:     totalAmount * primarySplitPct / 100,
			Percentage: primarySplitPct,
		},
		{
			Protocol:   secondary.Protocol,
			Route:      secondary,
			Amount:     totalAmount * secondarySplitPct / 100,
			Percentage: secondarySplitPct,
		},
	}

	// Aggregate time is the slowest leg; fees and security blend by
	// split percentage.
	estimatedTime := primary.EstimatedTime
	if secondary.EstimatedTime > estimatedTime {
		estimatedTime = secondary.EstimatedTime
	}
	totalFees := primary.TotalFee*primarySplitPct/100 + secondary.TotalFee*secondarySplitPct/100
	security := int(float64(primary.Security.OverallSecurity)*primarySplitPct/100 +
		float64(secondary.Security.OverallSecurity)*secondarySplitPct/100)

	return models.AggregatedRouteStrategy{
		StrategyType:  models.StrategyTypeSplit,
		Splits:        splits,
		TotalAmount:   totalAmount,
		EstimatedTime: estimatedTime,
		TotalFees:     totalFees,
		SecurityScore: security,
		Description: fmt.Sprintf("Split %.0f%% through %s and %.0f%% through %s for risk diversification",
			primarySplitPct, primary.ProtocolName, secondarySplitPct, secondary.ProtocolName),
	}
}

// rank scores a strategy against its siblings: security 40%, speed 30%,
// fee efficiency 30%. Speed and fee factors are relative to the best
// sibling so the scale stays 0-100.
func (s *StrategySynthesizer) rank(strategy *models.AggregatedRouteStrategy, all []models.AggregatedRouteStrategy) float64 {
	fastest := strategy.EstimatedTime
	cheapest := strategy.TotalFees
	for _, other := range all {
		if other.EstimatedTime < fastest {
			fastest = other.EstimatedTime
		}
		if other.TotalFees < cheapest {
			cheapest = other.TotalFees
		}
	}

	speedFactor := 100.0
	if strategy.EstimatedTime > 0 {
		speedFactor = 100 * float64(fastest) / float64(strategy.EstimatedTime)
	}
	feeFactor := 100.0
	if strategy.TotalFees > 0 {
		feeFactor = 100 * cheapest / strategy.TotalFees
	}

	return float64(strategy.SecurityScore)*rankWeightSecurity +
		speedFactor*rankWeightSpeed +
		feeFactor*rankWeightFee
}

// bestPerProvider keeps the highest-composite route from each provider
func bestPerProvider(routes []models.AnalyzedRoute) []models.AnalyzedRoute {
	byProvider := make(map[string]models.AnalyzedRoute)
	for _, route := range routes {
		current, ok := byProvider[route.Protocol]
		if !ok || routeComposite(route, routes) > routeComposite(current, routes) {
			byProvider[route.Protocol] = route
		}
	}
	out := make([]models.AnalyzedRoute, 0, len(byProvider))
	for _, route := range byProvider {
		out = append(out, route)
	}
	return out
}

// routeComposite speed/fee composite used to order candidate routes
func routeComposite(route models.AnalyzedRoute, all []models.AnalyzedRoute) float64 {
	fastest := route.EstimatedTime
	cheapest := route.TotalFee
	for _, other := range all {
		if other.EstimatedTime < fastest {
			fastest = other.EstimatedTime
		}
		if other.TotalFee < cheapest {
			cheapest = other.TotalFee
		}
	}

	speedFactor := 100.0
	if route.EstimatedTime > 0 {
		speedFactor = 100 * float64(fastest) / float64(route.EstimatedTime)
	}
	feeFactor := 100.0
	if route.TotalFee > 0 {
		feeFactor = 100 * cheapest / route.TotalFee
	}
	return 0.5*speedFactor + 0.5*feeFactor
}
