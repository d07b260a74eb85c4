package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// AcrossClient Across Protocol API client
type AcrossClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAcrossClient creates a new Across client
func NewAcrossClient(baseURL string, timeout time.Duration) *AcrossClient {
	if baseURL == "" {
		baseURL = "https://app.across.to/api"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AcrossClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// AcrossFeeRequest represents Across suggested-fees request
type AcrossFeeRequest struct {
	InputToken         string `json:"inputToken"`
	OutputToken        string `json:"outputToken"`
	OriginChainId      string `json:"originChainId"`
	DestinationChainId string `json:"destinationChainId"`
	Amount             string `json:"amount"`
	Recipient          string `json:"recipient,omitempty"`
}

// AcrossFee represents a fee component with pct and total in wei
type AcrossFee struct {
	Pct   string `json:"pct"`   // fee percentage scaled by 1e18
	Total string `json:"total"` // absolute fee in input token units
}

// AcrossFeeResponse represents Across suggested-fees response
type AcrossFeeResponse struct {
	TotalRelayFee        AcrossFee `json:"totalRelayFee"`
	RelayerCapitalFee    AcrossFee `json:"relayerCapitalFee"`
	RelayerGasFee        AcrossFee `json:"relayerGasFee"`
	LpFee                AcrossFee `json:"lpFee"`
	Timestamp            string    `json:"timestamp"` // quote timestamp, unix seconds
	IsAmountTooLow       bool      `json:"isAmountTooLow"`
	QuoteBlock           string    `json:"quoteBlock"`
	SpokePoolAddress     string    `json:"spokePoolAddress"`
	ExclusiveRelayer     string    `json:"exclusiveRelayer"`
	ExclusivityDeadline  string    `json:"exclusivityDeadline"` // unix seconds
	ExpectedFillTimeSec  string    `json:"expectedFillTimeSec"`
	FillDeadline         string    `json:"fillDeadline"` // unix seconds
	EstimatedFillTimeSec int       `json:"estimatedFillTimeSec"`
	OutputAmount         string    `json:"outputAmount,omitempty"`
	Limits               struct {
		MinDeposit           string `json:"minDeposit"`
		MaxDeposit           string `json:"maxDeposit"`
		MaxDepositInstant    string `json:"maxDepositInstant"`
		MaxDepositShortDelay string `json:"maxDepositShortDelay"`
	} `json:"limits"`
}

// GetSuggestedFees gets a fee quote from Across
func (c *AcrossClient) GetSuggestedFees(ctx context.Context, req *AcrossFeeRequest) (*AcrossFeeResponse, error) {
	// Build query parameters
	params := url.Values{}
	params.Add("inputToken", req.InputToken)
	params.Add("outputToken", req.OutputToken)
	params.Add("originChainId", req.OriginChainId)
	params.Add("destinationChainId", req.DestinationChainId)
	params.Add("amount", req.Amount)

	if req.Recipient != "" {
		params.Add("recipient", req.Recipient)
	}

	// Build URL
	reqURL := fmt.Sprintf("%s/suggested-fees?%s", c.baseURL, params.Encode())

	// Create HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Execute request
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	// Check status code
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Across API error (status %d): %s", resp.StatusCode, string(body))
	}

	// Parse response
	var feeResp AcrossFeeResponse
	if err := json.NewDecoder(resp.Body).Decode(&feeResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if feeResp.IsAmountTooLow {
		return nil, fmt.Errorf("Across: deposit amount below minimum (min %s)", feeResp.Limits.MinDeposit)
	}

	return &feeResp, nil
}

// GetAcrossChainId converts chain ID to Across chain ID string
func GetAcrossChainId(chainID uint32) string {
	// Across uses standard EVM chain IDs
	return fmt.Sprintf("%d", chainID)
}
