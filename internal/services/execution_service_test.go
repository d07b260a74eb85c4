package services

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"bridgeguard/internal/account"
	"bridgeguard/internal/metrics"
	"bridgeguard/internal/models"
	"bridgeguard/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acrossRaw() map[string]interface{} {
	return map[string]interface{}{
		"spokePoolAddress":    "0x5c7BCd6E7De5423a257D81B442095A1a6ced35C5",
		"exclusiveRelayer":    "0x0000000000000000000000000000000000000000",
		"timestamp":           "1756400000",
		"fillDeadline":        "1756403600",
		"exclusivityDeadline": "0",
		"inputToken":          "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		"outputToken":         "0x4200000000000000000000000000000000000006",
		"totalRelayFeePct":    "0.0004",
	}
}

func acrossSplit(pct float64) models.RouteSplit {
	return models.RouteSplit{
		Protocol: "across",
		Route: models.AnalyzedRoute{
			ProtocolRoute: models.ProtocolRoute{
				Protocol:     "across",
				FromChainID:  1,
				ToChainID:    8453,
				InputAmount:  10,
				OutputAmount: 9.98,
				Raw:          acrossRaw(),
			},
		},
		Amount:     10 * pct / 100,
		Percentage: pct,
	}
}

func lifiSplit(pct float64) models.RouteSplit {
	return models.RouteSplit{
		Protocol: "lifi",
		Route: models.AnalyzedRoute{
			ProtocolRoute: models.ProtocolRoute{
				Protocol:     "lifi",
				FromChainID:  1,
				ToChainID:    8453,
				InputAmount:  10,
				OutputAmount: 9.97,
				Raw: map[string]interface{}{
					"transactionRequest": map[string]interface{}{
						"to":    "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE",
						"data":  "0xdeadbeef",
						"value": "0x0",
					},
				},
			},
		},
		Amount:     10 * pct / 100,
		Percentage: pct,
	}
}

func executionRequest() *models.RouteRequest {
	return &models.RouteRequest{
		FromChainID: 1,
		ToChainID:   8453,
		FromToken:   "WETH",
		ToToken:     "WETH",
		Amount:      10,
		UserAddress: "0x00000000000000000000000000000000000000aa",
	}
}

func singleStrategy(split models.RouteSplit) *models.AggregatedRouteStrategy {
	return &models.AggregatedRouteStrategy{
		StrategyType:  models.StrategyTypeSingle,
		Splits:        []models.RouteSplit{split},
		TotalAmount:   10,
		EstimatedTime: split.Route.EstimatedTime,
		TotalFees:     split.Route.TotalFee,
		SecurityScore: 90,
	}
}

func TestBuildAcrossDepositCalldata(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	data, err := svc.BuildContractExecutionData(singleStrategy(acrossSplit(100)), executionRequest())
	require.NoError(t, err)
	require.Len(t, data.Calls, 2)

	// Allowance for the SpokePool comes first
	approve := data.Calls[0]
	assert.Equal(t, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", approve.ContractAddress)
	approvePayload, err := hexutil.Decode(approve.Calldata)
	require.NoError(t, err)
	assert.Equal(t, approveSelector, approvePayload[:4])
	assert.Len(t, approvePayload, 4+2*32)

	call := data.Calls[1]
	assert.Equal(t, "across", call.Protocol)
	assert.Equal(t, "0x5c7BCd6E7De5423a257D81B442095A1a6ced35C5", call.ContractAddress)
	assert.Equal(t, "0", call.Value)

	payload, err := hexutil.Decode(call.Calldata)
	require.NoError(t, err)
	assert.Equal(t, depositV3Selector, payload[:4])
	// 12 static slots; the trailing bytes argument adds its offset, length
	// and padding
	assert.True(t, len(payload) > 4+12*32)
}

func TestBuildAcrossDepositStablecoinAmounts(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	split := acrossSplit(100)
	split.Amount = 100
	split.Route.InputAmount = 100
	split.Route.OutputAmount = 99.7

	req := executionRequest()
	req.FromToken = "USDC"
	req.ToToken = "USDC"
	req.Amount = 100

	strategy := singleStrategy(split)
	strategy.TotalAmount = 100

	data, err := svc.BuildContractExecutionData(strategy, req)
	require.NoError(t, err)
	require.Len(t, data.Calls, 2)

	// 100 USDC approves 100e6 base units, not 100e18
	approvePayload, err := hexutil.Decode(data.Calls[0].Calldata)
	require.NoError(t, err)
	approveAmount := new(big.Int).SetBytes(approvePayload[4+32 : 4+64])
	assert.Equal(t, "100000000", approveAmount.String())

	assert.Equal(t, "100000000", data.TotalAmount)
}

func TestBuildAcrossDepositMissingFieldsListedSorted(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	split := acrossSplit(100)
	delete(split.Route.Raw, "exclusiveRelayer")
	delete(split.Route.Raw, "timestamp")

	_, err := svc.BuildContractExecutionData(singleStrategy(split), executionRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "across quote missing required fields: exclusiveRelayer, timestamp")
}

func TestBuildLiFiCall(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	data, err := svc.BuildContractExecutionData(singleStrategy(lifiSplit(100)), executionRequest())
	require.NoError(t, err)
	require.Len(t, data.Calls, 1)

	call := data.Calls[0]
	assert.Equal(t, "lifi", call.Protocol)
	assert.Equal(t, "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE", call.ContractAddress)
	assert.Equal(t, "0xdeadbeef", call.Calldata)
	assert.Equal(t, "0", call.Value)
}

func TestBuildLiFiCallERC20InputGetsApproval(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	split := lifiSplit(100)
	split.Route.Raw["fromToken"] = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	split.Route.Raw["approvalAddress"] = "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE"

	data, err := svc.BuildContractExecutionData(singleStrategy(split), executionRequest())
	require.NoError(t, err)
	require.Len(t, data.Calls, 2)

	approve := data.Calls[0]
	assert.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", approve.ContractAddress)
	payload, err := hexutil.Decode(approve.Calldata)
	require.NoError(t, err)
	assert.Equal(t, approveSelector, payload[:4])

	assert.Equal(t, "0xdeadbeef", data.Calls[1].Calldata)

	// Native input needs no allowance
	split = lifiSplit(100)
	split.Route.Raw["fromToken"] = utils.NativeTokenPlaceholder
	split.Route.Raw["approvalAddress"] = "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE"
	data, err = svc.BuildContractExecutionData(singleStrategy(split), executionRequest())
	require.NoError(t, err)
	require.Len(t, data.Calls, 1)
}

func TestBuildLiFiCallMissingTransactionRequest(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	split := lifiSplit(100)
	delete(split.Route.Raw, "transactionRequest")

	_, err := svc.BuildContractExecutionData(singleStrategy(split), executionRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lifi quote missing required fields: transactionRequest")

	split = lifiSplit(100)
	split.Route.Raw["transactionRequest"] = map[string]interface{}{"value": "0x0"}
	_, err = svc.BuildContractExecutionData(singleStrategy(split), executionRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transactionRequest.to")
	assert.Contains(t, err.Error(), "transactionRequest.data")
}

func TestBuildLiFiCallHexValue(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	split := lifiSplit(100)
	split.Route.Raw["transactionRequest"].(map[string]interface{})["value"] = "0x2386f26fc10000"

	data, err := svc.BuildContractExecutionData(singleStrategy(split), executionRequest())
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000", data.Calls[0].Value)
}

func TestBuildExecutionDataMinOutputAndDeadline(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)
	begin := time.Now().Unix()

	data, err := svc.BuildContractExecutionData(singleStrategy(acrossSplit(100)), executionRequest())
	require.NoError(t, err)

	// Single 100% split quoting 9.98 output with 2% slippage tolerance
	assert.InDelta(t, 9.98*0.98, utils.ParseWeiAmount(data.MinOutput), 1e-9)

	assert.GreaterOrEqual(t, data.Deadline, begin+1800)
	assert.LessOrEqual(t, data.Deadline, time.Now().Unix()+1800)
}

func TestBuildExecutionDataSplitScalesOutputs(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	strategy := &models.AggregatedRouteStrategy{
		StrategyType: models.StrategyTypeSplit,
		Splits:       []models.RouteSplit{acrossSplit(70), lifiSplit(30)},
		TotalAmount:  10,
	}
	data, err := svc.BuildContractExecutionData(strategy, executionRequest())
	require.NoError(t, err)
	// Across approve + deposit, plus the LiFi transaction
	require.Len(t, data.Calls, 3)

	// Each leg's quoted output is scaled by its percentage before the
	// slippage tolerance applies
	totalOutput := 9.98*0.7 + 9.97*0.3
	assert.InDelta(t, totalOutput*0.98, utils.ParseWeiAmount(data.MinOutput), 1e-9)
}

func newExecutionAccount(t *testing.T, dispatcher account.Dispatcher) *account.Engine {
	t.Helper()
	ownerAddr := common.HexToAddress("0x0000000000000000000000000000000000000001")
	guardian := common.HexToAddress("0x000000000000000000000000000000000000000A")
	engine, err := account.NewEngine(
		common.HexToAddress("0x00000000000000000000000000000000000000AA"),
		ownerAddr,
		[]common.Address{guardian},
		1,
		account.Options{Dispatcher: dispatcher},
	)
	require.NoError(t, err)
	engine.Deposit(big.NewInt(1_000_000))
	return engine
}

func TestExecuteAggregatedRouteSubmits(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	var dispatched []account.Call
	dispatcher := account.DispatcherFunc(func(_ context.Context, _ common.Address, call account.Call) error {
		dispatched = append(dispatched, call)
		return nil
	})
	engine := newExecutionAccount(t, dispatcher)
	ownerAddr := engine.Owner()

	strategy := singleStrategy(acrossSplit(100))
	req := executionRequest()
	data, err := svc.BuildContractExecutionData(strategy, req)
	require.NoError(t, err)

	successBefore := testutil.ToFloat64(metrics.BatchExecutions.WithLabelValues("success"))
	record, err := svc.ExecuteAggregatedRoute(context.Background(), engine, ownerAddr, data, req, strategy)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, successBefore+1, testutil.ToFloat64(metrics.BatchExecutions.WithLabelValues("success")))

	assert.Equal(t, models.ExecutionStatusSubmitted, record.Status)
	assert.Equal(t, "across", record.Protocols)
	assert.Equal(t, engine.Address().Hex(), record.AccountAddress)
	assert.Equal(t, uint64(2), engine.Nonce())
	// Approve dispatched before the deposit
	require.Len(t, dispatched, 2)
	assert.Equal(t, common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), dispatched[0].Target)
	assert.Equal(t, common.HexToAddress("0x5c7BCd6E7De5423a257D81B442095A1a6ced35C5"), dispatched[1].Target)
}

func TestExecuteAggregatedRouteDeadlinePassedFailsHard(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	dispatched := 0
	dispatcher := account.DispatcherFunc(func(_ context.Context, _ common.Address, _ account.Call) error {
		dispatched++
		return nil
	})
	engine := newExecutionAccount(t, dispatcher)

	strategy := singleStrategy(acrossSplit(100))
	req := executionRequest()
	data, err := svc.BuildContractExecutionData(strategy, req)
	require.NoError(t, err)
	data.Deadline = time.Now().Unix() - 1

	_, err = svc.ExecuteAggregatedRoute(context.Background(), engine, engine.Owner(), data, req, strategy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadline")
	assert.Equal(t, 0, dispatched)
	assert.Equal(t, uint64(0), engine.Nonce())
}

func TestExecuteAggregatedRouteBatchFailureMarksRecordFailed(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	dispatcher := account.DispatcherFunc(func(_ context.Context, _ common.Address, _ account.Call) error {
		return errors.New("bridge reverted")
	})
	engine := newExecutionAccount(t, dispatcher)

	strategy := singleStrategy(acrossSplit(100))
	req := executionRequest()
	data, err := svc.BuildContractExecutionData(strategy, req)
	require.NoError(t, err)

	failedBefore := testutil.ToFloat64(metrics.BatchExecutions.WithLabelValues("failed"))
	record, err := svc.ExecuteAggregatedRoute(context.Background(), engine, engine.Owner(), data, req, strategy)
	require.Error(t, err)
	require.NotNil(t, record)
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(metrics.BatchExecutions.WithLabelValues("failed")))
	assert.Equal(t, models.ExecutionStatusFailed, record.Status)
	assert.True(t, strings.Contains(record.ErrorMsg, "bridge reverted"))

	// Account state rolled back with the batch
	assert.Equal(t, uint64(0), engine.Nonce())
}

func TestBuildExecutionDataUnknownProtocol(t *testing.T) {
	svc := NewExecutionService(nil, nil, 0.02, 1800)

	split := acrossSplit(100)
	split.Protocol = "hopscotch"
	_, err := svc.BuildContractExecutionData(singleStrategy(split), executionRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no calldata builder for protocol hopscotch")
}
