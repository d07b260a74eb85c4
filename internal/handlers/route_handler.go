package handlers

import (
	"errors"
	"net/http"

	"bridgeguard/internal/models"
	"bridgeguard/internal/repository"
	"bridgeguard/internal/services"

	"github.com/gin-gonic/gin"
)

// RouteHandler handles route aggregation and execution API requests
type RouteHandler struct {
	aggregator       *services.RouteAggregator
	scorer           *services.SecurityScorer
	synthesizer      *services.StrategySynthesizer
	executionService *services.ExecutionService
	accountService   *services.AccountService
	executionRepo    *repository.ExecutionRepository
}

// NewRouteHandler creates a new RouteHandler instance
func NewRouteHandler(
	aggregator *services.RouteAggregator,
	scorer *services.SecurityScorer,
	synthesizer *services.StrategySynthesizer,
	executionService *services.ExecutionService,
	accountService *services.AccountService,
	executionRepo *repository.ExecutionRepository,
) *RouteHandler {
	return &RouteHandler{
		aggregator:       aggregator,
		scorer:           scorer,
		synthesizer:      synthesizer,
		executionService: executionService,
		accountService:   accountService,
		executionRepo:    executionRepo,
	}
}

func validateRouteRequest(req *models.RouteRequest) string {
	if req.FromChainID == 0 {
		return "from_chain_id is required"
	}
	if req.ToChainID == 0 {
		return "to_chain_id is required"
	}
	if req.FromToken == "" {
		return "from_token is required"
	}
	if req.ToToken == "" {
		return "to_token is required"
	}
	if req.Amount <= 0 {
		return "amount must be positive"
	}
	if req.UserAddress == "" {
		return "user_address is required"
	}
	return ""
}

// ============================================================================
// Route Query
// ============================================================================

// QueryRoutesHandler handles POST /api/routes/query
// Fans out to all bridge providers, scores each route, and synthesizes
// ranked execution strategies
func (h *RouteHandler) QueryRoutesHandler(c *gin.Context) {
	var req models.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if msg := validateRouteRequest(&req); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	routes, err := h.aggregator.GetRoutes(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrNoRoutesAvailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "No routes available",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Route query failed",
			"details": err.Error(),
		})
		return
	}

	analyzed := h.scorer.ScoreAll(routes)
	strategies := h.synthesizer.Synthesize(analyzed, req.Amount)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"routes":     analyzed,
		"strategies": strategies,
	})
}

// ============================================================================
// Strategy Execution
// ============================================================================

// ExecuteStrategyRequest is the payload for POST /api/routes/execute
type ExecuteStrategyRequest struct {
	AccountAddress string                         `json:"account_address" binding:"required"`
	Caller         string                         `json:"caller" binding:"required"`
	Request        models.RouteRequest            `json:"request" binding:"required"`
	Strategy       models.AggregatedRouteStrategy `json:"strategy" binding:"required"`
}

// ExecuteStrategyHandler handles POST /api/routes/execute
// Encodes the chosen strategy into bridge calldata and runs it through the
// smart account as an atomic batch
func (h *RouteHandler) ExecuteStrategyHandler(c *gin.Context) {
	var req ExecuteStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if msg := validateRouteRequest(&req.Request); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if len(req.Strategy.Splits) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "strategy has no splits"})
		return
	}

	accountAddr, ok := parseAddress(req.AccountAddress)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account_address"})
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid caller address"})
		return
	}

	engine, err := h.accountService.GetEngine(accountAddr)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Account not found",
			"details": err.Error(),
		})
		return
	}

	data, err := h.executionService.BuildContractExecutionData(&req.Strategy, &req.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to build execution data",
			"details": err.Error(),
		})
		return
	}

	record, err := h.executionService.ExecuteAggregatedRoute(c.Request.Context(), engine, caller, data, &req.Request, &req.Strategy)
	if err != nil {
		c.JSON(statusForAccountError(err), gin.H{
			"error":        "Execution failed",
			"details":      err.Error(),
			"execution_id": executionID(record),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    record,
	})
}

// PreviewCalldataHandler handles POST /api/routes/calldata
// Builds the on-chain execution encoding for a strategy without executing it
func (h *RouteHandler) PreviewCalldataHandler(c *gin.Context) {
	var req ExecuteStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if len(req.Strategy.Splits) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "strategy has no splits"})
		return
	}

	data, err := h.executionService.BuildContractExecutionData(&req.Strategy, &req.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to build execution data",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// ============================================================================
// Execution History
// ============================================================================

// ListExecutionsHandler handles GET /api/executions?account=0x...
func (h *RouteHandler) ListExecutionsHandler(c *gin.Context) {
	accountAddr, ok := parseAddress(c.Query("account"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing account query parameter"})
		return
	}

	records, err := h.executionRepo.ListByAccount(accountAddr.Hex(), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to query executions",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
	})
}

// GetExecutionHandler handles GET /api/executions/:id
func (h *RouteHandler) GetExecutionHandler(c *gin.Context) {
	record, err := h.executionRepo.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Execution not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    record,
	})
}

func executionID(record *models.ExecutionRecord) string {
	if record == nil {
		return ""
	}
	return record.ID
}
