package services

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"bridgeguard/internal/clients"
	"bridgeguard/internal/models"
	"bridgeguard/internal/utils"
)

// QuoteProvider one bridge quote source. Implementations normalize their
// provider-specific responses into the common ProtocolRoute shape.
type QuoteProvider interface {
	Name() string
	SupportsChains(fromChainID, toChainID int) bool
	GetRoute(ctx context.Context, req *models.RouteRequest) (*models.ProtocolRoute, error)
}

// ============================================================================
// LiFi provider
// ============================================================================

// LiFiProvider wraps the LiFi client as a QuoteProvider
type LiFiProvider struct {
	client *clients.LiFiClient
}

// NewLiFiProvider creates a LiFi quote provider
func NewLiFiProvider(client *clients.LiFiClient) *LiFiProvider {
	return &LiFiProvider{client: client}
}

// Name returns the provider id
func (p *LiFiProvider) Name() string { return "lifi" }

// SupportsChains checks both chains have token data for this provider
func (p *LiFiProvider) SupportsChains(fromChainID, toChainID int) bool {
	return chainSupported("lifi", fromChainID) && chainSupported("lifi", toChainID)
}

// GetRoute queries LiFi and normalizes the response
func (p *LiFiProvider) GetRoute(ctx context.Context, req *models.RouteRequest) (*models.ProtocolRoute, error) {
	fromToken, err := utils.ResolveTokenAddress("lifi", req.FromChainID, req.FromToken)
	if err != nil {
		return nil, fmt.Errorf("source token: %w", err)
	}
	toToken, err := utils.ResolveTokenAddress("lifi", req.ToChainID, req.ToToken)
	if err != nil {
		return nil, fmt.Errorf("destination token: %w", err)
	}

	fromDecimals := utils.TokenDecimals(req.FromToken)
	toDecimals := utils.TokenDecimals(req.ToToken)

	quote, err := p.client.GetQuote(ctx, &clients.LiFiQuoteRequest{
		FromChain:   strconv.Itoa(req.FromChainID),
		ToChain:     strconv.Itoa(req.ToChainID),
		FromToken:   fromToken,
		ToToken:     toToken,
		FromAmount:  utils.ToBaseUnitsString(req.Amount, fromDecimals),
		FromAddress: req.UserAddress,
		ToAddress:   req.Recipient,
	})
	if err != nil {
		return nil, err
	}

	outputAmount := utils.ParseBaseUnits(quote.Estimate.ToAmount, toDecimals)
	totalFee := 0.0
	for _, fee := range quote.Estimate.FeeCosts {
		feeDecimals := fee.Token.Decimals
		if feeDecimals == 0 {
			feeDecimals = fromDecimals
		}
		totalFee += utils.ParseBaseUnits(fee.Amount, feeDecimals)
	}
	// LiFi fee costs can be empty for some tools; fall back to the
	// input/output spread so the scorer still sees a real fee.
	if totalFee == 0 && outputAmount < req.Amount {
		totalFee = req.Amount - outputAmount
	}

	route := &models.ProtocolRoute{
		Protocol:      "lifi",
		ProtocolName:  "LI.FI",
		QuoteID:       quote.Id,
		FromChainID:   req.FromChainID,
		ToChainID:     req.ToChainID,
		FromToken:     req.FromToken,
		ToToken:       req.ToToken,
		InputAmount:   req.Amount,
		OutputAmount:  outputAmount,
		TotalFee:      totalFee,
		EstimatedTime: quote.Estimate.ExecutionDuration,
		Steps:         1,
		Raw: map[string]interface{}{
			"tool":            quote.Tool,
			"toAmountMin":     quote.Estimate.ToAmountMin,
			"fromToken":       fromToken,
			"approvalAddress": quote.Estimate.ApprovalAddress,
		},
	}
	if quote.Tool != "" {
		route.ProtocolName = fmt.Sprintf("LI.FI (%s)", quote.Tool)
	}
	// USD values let the scorer compare cross-asset input and output
	if priceFrom, err := strconv.ParseFloat(quote.Action.FromToken.PriceUSD, 64); err == nil && priceFrom > 0 {
		route.InputValueUSD = req.Amount * priceFrom
	}
	if priceTo, err := strconv.ParseFloat(quote.Action.ToToken.PriceUSD, 64); err == nil && priceTo > 0 {
		route.OutputValueUSD = outputAmount * priceTo
	}
	if quote.TransactionRequest != nil {
		route.Raw["transactionRequest"] = map[string]interface{}{
			"to":    quote.TransactionRequest.To,
			"data":  quote.TransactionRequest.Data,
			"value": quote.TransactionRequest.Value,
		}
	}

	log.Printf("[LiFiProvider] Quote %s: output=%.6f, fee=%.6f, time=%s",
		quote.Id, outputAmount, totalFee, clients.FormatDuration(route.EstimatedTime))
	return route, nil
}

// ============================================================================
// Across provider
// ============================================================================

// AcrossProvider wraps the Across client as a QuoteProvider
type AcrossProvider struct {
	client *clients.AcrossClient
}

// NewAcrossProvider creates an Across quote provider
func NewAcrossProvider(client *clients.AcrossClient) *AcrossProvider {
	return &AcrossProvider{client: client}
}

// Name returns the provider id
func (p *AcrossProvider) Name() string { return "across" }

// SupportsChains checks both chains have token data for this provider
func (p *AcrossProvider) SupportsChains(fromChainID, toChainID int) bool {
	return chainSupported("across", fromChainID) && chainSupported("across", toChainID)
}

// GetRoute queries Across suggested-fees and normalizes the response
func (p *AcrossProvider) GetRoute(ctx context.Context, req *models.RouteRequest) (*models.ProtocolRoute, error) {
	inputToken, err := utils.ResolveTokenAddress("across", req.FromChainID, req.FromToken)
	if err != nil {
		return nil, fmt.Errorf("source token: %w", err)
	}
	outputToken, err := utils.ResolveTokenAddress("across", req.ToChainID, req.ToToken)
	if err != nil {
		return nil, fmt.Errorf("destination token: %w", err)
	}

	fromDecimals := utils.TokenDecimals(req.FromToken)
	toDecimals := utils.TokenDecimals(req.ToToken)

	fees, err := p.client.GetSuggestedFees(ctx, &clients.AcrossFeeRequest{
		InputToken:         inputToken,
		OutputToken:        outputToken,
		OriginChainId:      strconv.Itoa(req.FromChainID),
		DestinationChainId: strconv.Itoa(req.ToChainID),
		Amount:             utils.ToBaseUnitsString(req.Amount, fromDecimals),
		Recipient:          req.Recipient,
	})
	if err != nil {
		return nil, err
	}

	// Relay fees come back in input token base units
	totalFee := utils.ParseBaseUnits(fees.TotalRelayFee.Total, fromDecimals)
	outputAmount := req.Amount - totalFee
	if fees.OutputAmount != "" {
		outputAmount = utils.ParseBaseUnits(fees.OutputAmount, toDecimals)
	}

	estimatedTime := fees.EstimatedFillTimeSec
	if estimatedTime == 0 && fees.ExpectedFillTimeSec != "" {
		if secs, err := strconv.Atoi(fees.ExpectedFillTimeSec); err == nil {
			estimatedTime = secs
		}
	}

	route := &models.ProtocolRoute{
		Protocol:      "across",
		ProtocolName:  "Across",
		QuoteID:       fmt.Sprintf("across_%s", fees.Timestamp),
		FromChainID:   req.FromChainID,
		ToChainID:     req.ToChainID,
		FromToken:     req.FromToken,
		ToToken:       req.ToToken,
		InputAmount:   req.Amount,
		OutputAmount:  outputAmount,
		TotalFee:      totalFee,
		EstimatedTime: estimatedTime,
		Steps:         1,
		Raw: map[string]interface{}{
			"inputToken":          inputToken,
			"outputToken":         outputToken,
			"spokePoolAddress":    fees.SpokePoolAddress,
			"exclusiveRelayer":    fees.ExclusiveRelayer,
			"exclusivityDeadline": fees.ExclusivityDeadline,
			"timestamp":           fees.Timestamp,
			"fillDeadline":        fees.FillDeadline,
			"totalRelayFeePct":    fees.TotalRelayFee.Pct,
		},
	}

	log.Printf("[AcrossProvider] Quote at ts=%s: output=%.6f, fee=%.6f, fill=%ds",
		fees.Timestamp, outputAmount, totalFee, estimatedTime)
	return route, nil
}

func chainSupported(provider string, chainID int) bool {
	for _, id := range utils.SupportedChains(provider) {
		if id == chainID {
			return true
		}
	}
	return false
}
