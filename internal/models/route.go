package models

// RouteRequest describes one cross-chain transfer to find routes for
type RouteRequest struct {
	FromChainID int     `json:"from_chain_id"`
	ToChainID   int     `json:"to_chain_id"`
	FromToken   string  `json:"from_token"` // token symbol, resolved per provider
	ToToken     string  `json:"to_token"`
	Amount      float64 `json:"amount"` // native token units
	UserAddress string  `json:"user_address"`
	Recipient   string  `json:"recipient,omitempty"`
}

// ProtocolRoute is a normalized quote from one bridge provider.
// Fees and amounts are in native token units, durations in seconds.
// Raw keeps provider-specific fields for later calldata construction.
type ProtocolRoute struct {
	Protocol     string  `json:"protocol"`      // provider id, e.g. "lifi", "across"
	ProtocolName string  `json:"protocol_name"` // human name
	QuoteID      string  `json:"quote_id"`
	FromChainID  int     `json:"from_chain_id"`
	ToChainID    int     `json:"to_chain_id"`
	FromToken    string  `json:"from_token"`
	ToToken      string  `json:"to_token"`
	InputAmount  float64 `json:"input_amount"`
	OutputAmount float64 `json:"output_amount"`
	// USD valuations of the quoted input and output, zero when the
	// provider has no price data. Needed to compare amounts across
	// different assets.
	InputValueUSD  float64                `json:"input_value_usd,omitempty"`
	OutputValueUSD float64                `json:"output_value_usd,omitempty"`
	TotalFee       float64                `json:"total_fee"`
	EstimatedTime  int                    `json:"estimated_time"` // seconds
	Steps          int                    `json:"steps"`          // execution plan step count
	Raw            map[string]interface{} `json:"raw,omitempty"`
}

// SecurityAnalysis five weighted sub-scores plus the derived overall score.
// A nil sub-score pointer means the input data was unavailable.
type SecurityAnalysis struct {
	ProtocolSecurity *int     `json:"protocol_security"`
	LiquidityScore   *int     `json:"liquidity_score"`
	TimeScore        *int     `json:"time_score"`
	FeeScore         *int     `json:"fee_score"`
	ComplexityScore  *int     `json:"complexity_score"`
	OverallSecurity  int      `json:"overall_security"`
	RiskFactors      []string `json:"risk_factors"`
}

// AnalyzedRoute a ProtocolRoute decorated with its security analysis
type AnalyzedRoute struct {
	ProtocolRoute
	Security SecurityAnalysis `json:"security"`
}

// RouteSplit one leg of an aggregated strategy
type RouteSplit struct {
	Protocol   string        `json:"protocol"`
	Route      AnalyzedRoute `json:"route"`
	Amount     float64       `json:"amount"`
	Percentage float64       `json:"percentage"` // 0..100
}

// strategy type values
const (
	StrategyTypeSingle = "single-route"
	StrategyTypeSplit  = "split-route"
)

// AggregatedRouteStrategy an executable strategy built from scored routes
type AggregatedRouteStrategy struct {
	StrategyType  string       `json:"strategy_type"`
	Splits        []RouteSplit `json:"splits"`
	TotalAmount   float64      `json:"total_amount"`
	EstimatedTime int          `json:"estimated_time"` // max across splits, seconds
	TotalFees     float64      `json:"total_fees"`     // percentage-weighted sum
	SecurityScore int          `json:"security_score"` // percentage-weighted blend
	Description   string       `json:"description"`
	RankScore     float64      `json:"rank_score"`
}

// BridgeCall the on-chain-ready encoding of one split
type BridgeCall struct {
	Protocol        string `json:"protocol"`
	ContractAddress string `json:"contract_address"`
	Calldata        string `json:"calldata"` // 0x-prefixed hex
	Value           string `json:"value"`    // wei, decimal string
	TokenAmount     string `json:"token_amount"`
}

// ContractExecutionData everything needed to submit a chosen strategy
type ContractExecutionData struct {
	Calls         []BridgeCall `json:"calls"`
	TotalAmount   string       `json:"total_amount"` // wei, decimal string
	MinOutput     string       `json:"min_output"`   // wei, floor(totalOutput * (1 - slippage))
	Deadline      int64        `json:"deadline"`     // unix seconds
	SecurityScore int          `json:"security_score"`
	EstimatedTime int          `json:"estimated_time"`
	EstimatedFees string       `json:"estimated_fees"`
}
