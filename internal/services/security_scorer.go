package services

import (
	"fmt"
	"math"
	"strings"

	"bridgeguard/internal/models"
)

// ProtocolReputation static reputation data for a known bridge protocol
type ProtocolReputation struct {
	Score       int    `json:"score" yaml:"score"`
	AuditCount  int    `json:"audit_count" yaml:"audit_count"`
	Description string `json:"description" yaml:"description"`
}

// DefaultReputationTable returns the built-in protocol reputation data.
// Callers can pass their own table to NewSecurityScorer instead.
func DefaultReputationTable() map[string]ProtocolReputation {
	return map[string]ProtocolReputation{
		"lifi": {
			Score:       88,
			AuditCount:  4,
			Description: "Aggregator over audited bridges, routing risk depends on selected tool",
		},
		"across": {
			Score:       92,
			AuditCount:  6,
			Description: "Optimistic relay model secured by UMA, strong exploit-free record",
		},
	}
}

// SecurityScorer computes composite security scores for routes. Scoring is
// a pure function over the route and the injected reputation table; no
// network lookups, so identical input always yields identical output.
type SecurityScorer struct {
	reputation map[string]ProtocolReputation
}

// NewSecurityScorer creates a scorer with the given reputation table
func NewSecurityScorer(reputation map[string]ProtocolReputation) *SecurityScorer {
	if reputation == nil {
		reputation = DefaultReputationTable()
	}
	return &SecurityScorer{reputation: reputation}
}

// sub-score weights
const (
	weightProtocol   = 0.30
	weightLiquidity  = 0.25
	weightTime       = 0.20
	weightFee        = 0.15
	weightComplexity = 0.10
)

// Score analyzes one route and returns it decorated with five sub-scores
// and the derived overall score. An unknown protocol yields overall 0 and
// an explicit risk factor; it is never given a default positive score.
func (s *SecurityScorer) Score(route models.ProtocolRoute) models.AnalyzedRoute {
	analysis := models.SecurityAnalysis{
		RiskFactors: []string{},
	}

	liquidity := scoreLiquidity(liquidityAmounts(route))
	timeScore := scoreTime(route.EstimatedTime)
	fee := scoreFee(route.TotalFee, route.InputAmount)
	complexity := scoreComplexity(route.Steps)
	analysis.LiquidityScore = &liquidity
	analysis.TimeScore = &timeScore
	analysis.FeeScore = &fee
	analysis.ComplexityScore = &complexity

	reputation, known := s.reputation[route.Protocol]
	if !known {
		analysis.OverallSecurity = 0
		analysis.RiskFactors = append(analysis.RiskFactors,
			fmt.Sprintf("no security data available for protocol %s", route.Protocol))
		return models.AnalyzedRoute{ProtocolRoute: route, Security: analysis}
	}

	protocolScore := reputation.Score
	analysis.ProtocolSecurity = &protocolScore

	analysis.OverallSecurity = int(math.Round(
		weightProtocol*float64(protocolScore) +
			weightLiquidity*float64(liquidity) +
			weightTime*float64(timeScore) +
			weightFee*float64(fee) +
			weightComplexity*float64(complexity)))

	if liquidity <= 60 {
		analysis.RiskFactors = append(analysis.RiskFactors, "high slippage against quoted input")
	}
	if timeScore <= 60 {
		analysis.RiskFactors = append(analysis.RiskFactors, "long settlement window increases MEV exposure")
	}
	if fee <= 60 {
		analysis.RiskFactors = append(analysis.RiskFactors, "fee above 2% of transfer amount")
	}
	if complexity <= 60 {
		analysis.RiskFactors = append(analysis.RiskFactors, "route requires 5 or more execution steps")
	}

	return models.AnalyzedRoute{ProtocolRoute: route, Security: analysis}
}

// ScoreAll scores each route independently
func (s *SecurityScorer) ScoreAll(routes []models.ProtocolRoute) []models.AnalyzedRoute {
	analyzed := make([]models.AnalyzedRoute, 0, len(routes))
	for _, route := range routes {
		analyzed = append(analyzed, s.Score(route))
	}
	return analyzed
}

// liquidityAmounts picks the value pair slippage is measured over. USD
// valuations when the provider priced both sides; raw token amounts only
// for same-asset routes, where the two coincide. A cross-asset route
// without price data cannot be measured and lands in the missing-data
// bucket.
func liquidityAmounts(route models.ProtocolRoute) (input, output float64) {
	if route.InputValueUSD > 0 && route.OutputValueUSD > 0 {
		return route.InputValueUSD, route.OutputValueUSD
	}
	if route.FromToken != "" && route.ToToken != "" &&
		!strings.EqualFold(route.FromToken, route.ToToken) {
		return 0, 0
	}
	return route.InputAmount, route.OutputAmount
}

// scoreLiquidity buckets realized slippage, the relative gap between the
// quoted input and output values
func scoreLiquidity(input, output float64) int {
	if input <= 0 {
		return 60
	}
	slippage := math.Abs(input-output) / input
	switch {
	case slippage <= 0.001:
		return 95
	case slippage <= 0.005:
		return 90
	case slippage <= 0.01:
		return 85
	case slippage <= 0.03:
		return 75
	default:
		return 60
	}
}

// scoreTime buckets the execution duration estimate; longer pending
// windows mean more front-run exposure
func scoreTime(seconds int) int {
	switch {
	case seconds <= 5:
		return 98
	case seconds <= 30:
		return 92
	case seconds <= 120:
		return 85
	case seconds <= 600:
		return 75
	default:
		return 60
	}
}

// scoreFee buckets the fee as a percentage of the transfer amount
func scoreFee(fee, amount float64) int {
	if amount <= 0 {
		return 60
	}
	feePct := fee / amount
	switch {
	case feePct <= 0.001:
		return 95
	case feePct <= 0.005:
		return 90
	case feePct <= 0.01:
		return 85
	case feePct <= 0.02:
		return 75
	default:
		return 60
	}
}

// scoreComplexity buckets the execution plan's step count
func scoreComplexity(steps int) int {
	switch {
	case steps <= 1:
		return 95
	case steps <= 2:
		return 90
	case steps <= 3:
		return 80
	case steps <= 5:
		return 70
	default:
		return 60
	}
}
