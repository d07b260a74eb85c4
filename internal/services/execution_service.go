package services

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"bridgeguard/internal/account"
	"bridgeguard/internal/clients"
	"bridgeguard/internal/metrics"
	"bridgeguard/internal/models"
	"bridgeguard/internal/repository"
	"bridgeguard/internal/utils"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// mustType is a helper function to create an abi.Type from a string
func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("invalid type: %s: %v", t, err))
	}
	return typ
}

var (
	approveSelector = crypto.Keccak256([]byte("approve(address,uint256)"))[:4]

	approveArgs = abi.Arguments{
		{Type: mustType("address")}, // spender
		{Type: mustType("uint256")}, // amount
	}

	depositV3Selector = crypto.Keccak256([]byte(
		"depositV3(address,address,address,address,uint256,uint256,uint256,address,uint32,uint32,uint32,bytes)"))[:4]

	depositV3Args = abi.Arguments{
		{Type: mustType("address")}, // depositor
		{Type: mustType("address")}, // recipient
		{Type: mustType("address")}, // inputToken
		{Type: mustType("address")}, // outputToken
		{Type: mustType("uint256")}, // inputAmount
		{Type: mustType("uint256")}, // outputAmount
		{Type: mustType("uint256")}, // destinationChainId
		{Type: mustType("address")}, // exclusiveRelayer
		{Type: mustType("uint32")},  // quoteTimestamp
		{Type: mustType("uint32")},  // fillDeadline
		{Type: mustType("uint32")},  // exclusivityDeadline
		{Type: mustType("bytes")},   // message
	}
)

// ExecutionService translates chosen strategies into on-chain calldata and
// submits them through an account's batch executor
type ExecutionService struct {
	repo              *repository.ExecutionRepository
	natsClient        *clients.NATSClient
	slippageTolerance float64
	deadlineSeconds   int64
	now               func() time.Time
}

// NewExecutionService creates an execution service. repo and natsClient
// may be nil, which disables persistence and event publishing.
func NewExecutionService(repo *repository.ExecutionRepository, natsClient *clients.NATSClient, slippageTolerance float64, deadlineSeconds int64) *ExecutionService {
	if slippageTolerance <= 0 || slippageTolerance >= 1 {
		slippageTolerance = 0.02
	}
	if deadlineSeconds <= 0 {
		deadlineSeconds = 1800
	}
	return &ExecutionService{
		repo:              repo,
		natsClient:        natsClient,
		slippageTolerance: slippageTolerance,
		deadlineSeconds:   deadlineSeconds,
		now:               time.Now,
	}
}

// BuildContractExecutionData translates a strategy's provider quotes into
// on-chain-ready calls. Construction fails hard when a required quote field
// is missing; a wrong default in bridge calldata could lose funds.
func (s *ExecutionService) BuildContractExecutionData(strategy *models.AggregatedRouteStrategy, req *models.RouteRequest) (*models.ContractExecutionData, error) {
	if len(strategy.Splits) == 0 {
		return nil, fmt.Errorf("strategy has no splits")
	}

	calls := make([]models.BridgeCall, 0, 2*len(strategy.Splits))
	totalOutput := 0.0
	for _, split := range strategy.Splits {
		var splitCalls []models.BridgeCall
		var err error
		switch split.Protocol {
		case "across":
			splitCalls, err = s.buildAcrossDeposit(split, req)
		case "lifi":
			splitCalls, err = s.buildLiFiCall(split, req)
		default:
			err = fmt.Errorf("no calldata builder for protocol %s", split.Protocol)
		}
		if err != nil {
			return nil, err
		}
		calls = append(calls, splitCalls...)
		totalOutput += split.Route.OutputAmount * split.Percentage / 100
	}

	// minOutput = floor(totalOutput * (1 - slippageTolerance)), in the
	// destination token's base units
	minOutput := utils.ToBaseUnits(totalOutput*(1-s.slippageTolerance), utils.TokenDecimals(req.ToToken))
	deadline := s.now().Unix() + s.deadlineSeconds

	data := &models.ContractExecutionData{
		Calls:         calls,
		TotalAmount:   utils.ToBaseUnitsString(strategy.TotalAmount, utils.TokenDecimals(req.FromToken)),
		MinOutput:     minOutput.String(),
		Deadline:      deadline,
		SecurityScore: strategy.SecurityScore,
		EstimatedTime: strategy.EstimatedTime,
		EstimatedFees: fmt.Sprintf("%.6f", strategy.TotalFees),
	}

	log.Printf("[ExecutionService] Built execution data: %d calls, minOutput=%s, deadline=%d",
		len(calls), data.MinOutput, deadline)
	return data, nil
}

// erc20ApproveCall packs an approve(spender, amount) call on a token contract
func erc20ApproveCall(protocol, token, spender string, amount *big.Int) (models.BridgeCall, error) {
	packed, err := approveArgs.Pack(common.HexToAddress(spender), amount)
	if err != nil {
		return models.BridgeCall{}, fmt.Errorf("failed to pack approve calldata: %w", err)
	}

	calldata := make([]byte, 0, len(approveSelector)+len(packed))
	calldata = append(calldata, approveSelector...)
	calldata = append(calldata, packed...)

	return models.BridgeCall{
		Protocol:        protocol,
		ContractAddress: token,
		Calldata:        hexutil.Encode(calldata),
		Value:           "0",
		TokenAmount:     amount.String(),
	}, nil
}

// buildAcrossDeposit packs the allowance and SpokePool depositV3 calls from
// an Across quote. Across only bridges ERC-20s, so the approve is
// unconditional.
func (s *ExecutionService) buildAcrossDeposit(split models.RouteSplit, req *models.RouteRequest) ([]models.BridgeCall, error) {
	raw := split.Route.Raw

	required := []string{
		"spokePoolAddress", "exclusiveRelayer", "timestamp",
		"fillDeadline", "exclusivityDeadline", "inputToken", "outputToken",
	}
	var missing []string
	fields := make(map[string]string, len(required))
	for _, name := range required {
		value, ok := raw[name].(string)
		if !ok || value == "" {
			missing = append(missing, name)
			continue
		}
		fields[name] = value
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("across quote missing required fields: %s", strings.Join(missing, ", "))
	}

	quoteTimestamp, err := parseUint32(fields["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("across quote field timestamp: %w", err)
	}
	fillDeadline, err := parseUint32(fields["fillDeadline"])
	if err != nil {
		return nil, fmt.Errorf("across quote field fillDeadline: %w", err)
	}
	exclusivityDeadline, err := parseUint32(fields["exclusivityDeadline"])
	if err != nil {
		return nil, fmt.Errorf("across quote field exclusivityDeadline: %w", err)
	}

	depositor := common.HexToAddress(req.UserAddress)
	recipient := depositor
	if req.Recipient != "" {
		recipient = common.HexToAddress(req.Recipient)
	}

	inputAmount := utils.ToBaseUnits(split.Amount, utils.TokenDecimals(req.FromToken))
	outputAmount := utils.ToBaseUnits(split.Route.OutputAmount*split.Percentage/100, utils.TokenDecimals(req.ToToken))

	packed, err := depositV3Args.Pack(
		depositor,
		recipient,
		common.HexToAddress(fields["inputToken"]),
		common.HexToAddress(fields["outputToken"]),
		inputAmount,
		outputAmount,
		big.NewInt(int64(split.Route.ToChainID)),
		common.HexToAddress(fields["exclusiveRelayer"]),
		quoteTimestamp,
		fillDeadline,
		exclusivityDeadline,
		[]byte{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack depositV3 calldata: %w", err)
	}

	calldata := make([]byte, 0, len(depositV3Selector)+len(packed))
	calldata = append(calldata, depositV3Selector...)
	calldata = append(calldata, packed...)

	approve, err := erc20ApproveCall("across", fields["inputToken"], fields["spokePoolAddress"], inputAmount)
	if err != nil {
		return nil, err
	}

	deposit := models.BridgeCall{
		Protocol:        "across",
		ContractAddress: fields["spokePoolAddress"],
		Calldata:        hexutil.Encode(calldata),
		Value:           "0",
		TokenAmount:     inputAmount.String(),
	}
	return []models.BridgeCall{approve, deposit}, nil
}

// buildLiFiCall lifts the ready-to-sign transaction out of a LiFi quote,
// prefixed with an allowance call when the input token is an ERC-20
func (s *ExecutionService) buildLiFiCall(split models.RouteSplit, req *models.RouteRequest) ([]models.BridgeCall, error) {
	raw := split.Route.Raw

	txRequest, ok := raw["transactionRequest"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("lifi quote missing required fields: transactionRequest")
	}

	var missing []string
	to, _ := txRequest["to"].(string)
	data, _ := txRequest["data"].(string)
	if to == "" {
		missing = append(missing, "transactionRequest.to")
	}
	if data == "" {
		missing = append(missing, "transactionRequest.data")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("lifi quote missing required fields: %s", strings.Join(missing, ", "))
	}

	value := "0"
	if raw, ok := txRequest["value"].(string); ok && raw != "" {
		parsed, err := parseHexOrDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("lifi quote field transactionRequest.value: %w", err)
		}
		value = parsed.String()
	}

	var calls []models.BridgeCall

	// Native input moves as call value; ERC-20 input needs an allowance
	// for the approval contract first.
	fromDecimals := utils.TokenDecimals(req.FromToken)
	fromToken, _ := raw["fromToken"].(string)
	approvalAddress, _ := raw["approvalAddress"].(string)
	if fromToken != "" && fromToken != utils.NativeTokenPlaceholder && approvalAddress != "" {
		approve, err := erc20ApproveCall("lifi", fromToken, approvalAddress, utils.ToBaseUnits(split.Amount, fromDecimals))
		if err != nil {
			return nil, err
		}
		calls = append(calls, approve)
	}

	calls = append(calls, models.BridgeCall{
		Protocol:        "lifi",
		ContractAddress: to,
		Calldata:        data,
		Value:           value,
		TokenAmount:     utils.ToBaseUnitsString(split.Amount, fromDecimals),
	})
	return calls, nil
}

// ExecuteAggregatedRoute submits the execution data through the account's
// batch executor as one atomic unit and records the attempt. Execution
// past the deadline fails hard before any call is dispatched.
//
// minOutput is enforced at quote time only; bridges settle asynchronously,
// so actual received output is reconciled against the stored record later,
// not inside this transaction.
func (s *ExecutionService) ExecuteAggregatedRoute(ctx context.Context, engine *account.Engine, caller common.Address, data *models.ContractExecutionData, req *models.RouteRequest, strategy *models.AggregatedRouteStrategy) (*models.ExecutionRecord, error) {
	if s.now().Unix() > data.Deadline {
		return nil, fmt.Errorf("execution deadline %d has passed", data.Deadline)
	}

	record := s.newRecord(engine, data, req, strategy)
	if s.repo != nil {
		if err := s.repo.Create(record); err != nil {
			return nil, err
		}
	}

	calls := make([]account.Call, 0, len(data.Calls))
	for _, bridgeCall := range data.Calls {
		payload, err := hexutil.Decode(bridgeCall.Calldata)
		if err != nil {
			return nil, fmt.Errorf("invalid calldata for %s: %w", bridgeCall.Protocol, err)
		}
		value, ok := new(big.Int).SetString(bridgeCall.Value, 10)
		if !ok {
			return nil, fmt.Errorf("invalid call value %q for %s", bridgeCall.Value, bridgeCall.Protocol)
		}
		calls = append(calls, account.Call{
			Target: common.HexToAddress(bridgeCall.ContractAddress),
			Value:  value,
			Data:   payload,
		})
	}

	protocols := record.Protocols
	if err := engine.BatchExecute(ctx, caller, calls); err != nil {
		s.finish(record, models.ExecutionStatusFailed, err.Error())
		metrics.BatchExecutions.WithLabelValues("failed").Inc()
		metrics.RouteExecutions.WithLabelValues(protocols, "failed").Inc()
		s.publishExecutionEvent("failed", record)
		return record, fmt.Errorf("route execution failed: %w", err)
	}

	s.finish(record, models.ExecutionStatusSubmitted, "")
	metrics.BatchExecutions.WithLabelValues("success").Inc()
	metrics.RouteExecutions.WithLabelValues(protocols, "submitted").Inc()
	s.publishExecutionEvent("submitted", record)

	log.Printf("[ExecutionService] Strategy %s submitted: %d calls via %s", record.ID, len(calls), protocols)
	return record, nil
}

func (s *ExecutionService) newRecord(engine *account.Engine, data *models.ContractExecutionData, req *models.RouteRequest, strategy *models.AggregatedRouteStrategy) *models.ExecutionRecord {
	protocols := make([]string, 0, len(strategy.Splits))
	for _, split := range strategy.Splits {
		protocols = append(protocols, split.Protocol)
	}
	return &models.ExecutionRecord{
		ID:             uuid.New().String(),
		AccountAddress: engine.Address().Hex(),
		StrategyType:   strategy.StrategyType,
		Protocols:      strings.Join(protocols, ","),
		FromChainID:    req.FromChainID,
		ToChainID:      req.ToChainID,
		FromToken:      req.FromToken,
		ToToken:        req.ToToken,
		TotalAmount:    data.TotalAmount,
		MinOutput:      data.MinOutput,
		Deadline:       data.Deadline,
		SecurityScore:  data.SecurityScore,
		EstimatedTime:  data.EstimatedTime,
		EstimatedFees:  data.EstimatedFees,
		Status:         models.ExecutionStatusPending,
	}
}

func (s *ExecutionService) finish(record *models.ExecutionRecord, status models.ExecutionStatus, errorMsg string) {
	record.Status = status
	record.ErrorMsg = errorMsg
	if s.repo != nil {
		if err := s.repo.UpdateStatus(record.ID, status, errorMsg); err != nil {
			log.Printf("[ExecutionService] Failed to persist status %s for %s: %v", status, record.ID, err)
		}
	}
}

func (s *ExecutionService) publishExecutionEvent(eventType string, record *models.ExecutionRecord) {
	if s.natsClient == nil {
		return
	}
	if err := s.natsClient.PublishExecutionEvent(eventType, record); err != nil {
		log.Printf("[ExecutionService] Failed to publish %s event: %v", eventType, err)
	}
}

func parseUint32(value string) (uint32, error) {
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not a uint32: %q", value)
	}
	return uint32(parsed), nil
}

func parseHexOrDecimal(value string) (*big.Int, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		parsed, err := hexutil.DecodeBig(value)
		if err != nil {
			return nil, err
		}
		return parsed, nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("not a number: %q", value)
	}
	return parsed, nil
}
