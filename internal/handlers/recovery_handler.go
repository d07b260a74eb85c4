package handlers

import (
	"net/http"
	"strconv"

	"bridgeguard/internal/account"
	"bridgeguard/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// RecoveryHandler handles guardian recovery API requests
type RecoveryHandler struct {
	accountService *services.AccountService
}

// NewRecoveryHandler creates a new RecoveryHandler instance
func NewRecoveryHandler(accountService *services.AccountService) *RecoveryHandler {
	return &RecoveryHandler{accountService: accountService}
}

// InitiateRecoveryRequest is the payload for POST /api/accounts/:address/recovery
type InitiateRecoveryRequest struct {
	Guardian string `json:"guardian" binding:"required"`
	NewOwner string `json:"new_owner" binding:"required"`
}

// InitiateRecoveryHandler handles POST /api/accounts/:address/recovery
func (h *RecoveryHandler) InitiateRecoveryHandler(c *gin.Context) {
	address, ok := parseAddress(c.Param("address"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account address"})
		return
	}

	var req InitiateRecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	guardian, ok := parseAddress(req.Guardian)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid guardian address"})
		return
	}
	newOwner, ok := parseAddress(req.NewOwner)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid new_owner address"})
		return
	}

	requestID, err := h.accountService.InitiateRecovery(address, guardian, newOwner)
	if err != nil {
		c.JSON(statusForAccountError(err), gin.H{
			"error":   "Failed to initiate recovery",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"request_id": requestID,
	})
}

// ConfirmRecoveryRequest is the payload for POST /api/accounts/:address/recovery/:id/confirm
type ConfirmRecoveryRequest struct {
	Guardian string `json:"guardian" binding:"required"`
}

// ConfirmRecoveryHandler handles POST /api/accounts/:address/recovery/:id/confirm
func (h *RecoveryHandler) ConfirmRecoveryHandler(c *gin.Context) {
	address, requestID, ok := h.recoveryParams(c)
	if !ok {
		return
	}

	var req ConfirmRecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	guardian, ok := parseAddress(req.Guardian)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid guardian address"})
		return
	}

	executed, err := h.accountService.ConfirmRecovery(address, guardian, requestID)
	if err != nil {
		c.JSON(statusForAccountError(err), gin.H{
			"error":   "Failed to confirm recovery",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": requestID,
		"executed":   executed,
	})
}

// ExecuteRecoveryHandler handles POST /api/accounts/:address/recovery/:id/execute
func (h *RecoveryHandler) ExecuteRecoveryHandler(c *gin.Context) {
	address, requestID, ok := h.recoveryParams(c)
	if !ok {
		return
	}

	if err := h.accountService.ExecuteRecovery(address, requestID); err != nil {
		c.JSON(statusForAccountError(err), gin.H{
			"error":   "Failed to execute recovery",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": requestID,
		"executed":   true,
	})
}

// ListRecoveryHandler handles GET /api/accounts/:address/recovery
func (h *RecoveryHandler) ListRecoveryHandler(c *gin.Context) {
	address, ok := parseAddress(c.Param("address"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account address"})
		return
	}

	engine, err := h.accountService.GetEngine(address)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Account not found",
			"details": err.Error(),
		})
		return
	}

	requests := engine.Requests()
	views := make([]gin.H, 0, len(requests))
	for _, req := range requests {
		views = append(views, recoveryView(req))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    views,
	})
}

func (h *RecoveryHandler) recoveryParams(c *gin.Context) (addr common.Address, id uint64, ok bool) {
	address, valid := parseAddress(c.Param("address"))
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account address"})
		return common.Address{}, 0, false
	}

	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recovery request id"})
		return common.Address{}, 0, false
	}
	return address, requestID, true
}

func recoveryView(req *account.RecoveryRequest) gin.H {
	confirmations := make([]string, 0, len(req.Confirmations))
	for guardian := range req.Confirmations {
		confirmations = append(confirmations, guardian.Hex())
	}

	return gin.H{
		"request_id":     req.ID,
		"proposed_owner": req.ProposedOwner.Hex(),
		"confirmations":  confirmations,
		"initiated_at":   req.InitiatedAt,
		"executed":       req.Executed,
	}
}
