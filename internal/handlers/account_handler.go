package handlers

import (
	"errors"
	"math/big"
	"net/http"

	"bridgeguard/internal/account"
	"bridgeguard/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// AccountHandler handles smart account API requests
type AccountHandler struct {
	accountService *services.AccountService
}

// NewAccountHandler creates a new AccountHandler instance
func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// statusForAccountError maps engine errors to HTTP status codes
func statusForAccountError(err error) int {
	switch {
	case errors.Is(err, account.ErrNotOwner),
		errors.Is(err, account.ErrNotGuardian):
		return http.StatusForbidden
	case errors.Is(err, account.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, account.ErrAlreadyConfirmed),
		errors.Is(err, account.ErrAlreadyExecuted),
		errors.Is(err, account.ErrInsufficientConfirmations),
		errors.Is(err, account.ErrRecoveryDelayNotElapsed),
		errors.Is(err, account.ErrInsufficientBalance),
		errors.Is(err, account.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, account.ErrZeroAddress),
		errors.Is(err, account.ErrOwnerAsGuardian),
		errors.Is(err, account.ErrDuplicateGuardian),
		errors.Is(err, account.ErrGuardianNotFound),
		errors.Is(err, account.ErrGuardianLimit),
		errors.Is(err, account.ErrThresholdViolation),
		errors.Is(err, account.ErrInvalidThreshold),
		errors.Is(err, account.ErrSameOwner),
		errors.Is(err, account.ErrEmptyBatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseAddress validates a 0x-prefixed hex address from a request field
func parseAddress(value string) (common.Address, bool) {
	if !common.IsHexAddress(value) {
		return common.Address{}, false
	}
	return common.HexToAddress(value), true
}

// CreateAccountRequest is the payload for POST /api/accounts
type CreateAccountRequest struct {
	Owner             string   `json:"owner" binding:"required"`
	Guardians         []string `json:"guardians" binding:"required"`
	RequiredGuardians int      `json:"required_guardians" binding:"required"`
}

// CreateAccountHandler handles POST /api/accounts
func (h *AccountHandler) CreateAccountHandler(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	owner, ok := parseAddress(req.Owner)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid owner address"})
		return
	}

	guardians := make([]common.Address, 0, len(req.Guardians))
	for _, g := range req.Guardians {
		addr, ok := parseAddress(g)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid guardian address",
				"details": g,
			})
			return
		}
		guardians = append(guardians, addr)
	}

	engine, err := h.accountService.CreateAccount(owner, guardians, req.RequiredGuardians)
	if err != nil {
		c.JSON(statusForAccountError(err), gin.H{
			"error":   "Failed to create account",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    accountView(engine),
	})
}

// GetAccountHandler handles GET /api/accounts/:address
func (h *AccountHandler) GetAccountHandler(c *gin.Context) {
	engine, ok := h.lookupEngine(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    accountView(engine),
	})
}

// DepositRequest is the payload for POST /api/accounts/:address/deposit
type DepositRequest struct {
	Amount string `json:"amount" binding:"required"` // wei, decimal string
}

// DepositHandler handles POST /api/accounts/:address/deposit
func (h *AccountHandler) DepositHandler(c *gin.Context) {
	engine, ok := h.lookupEngine(c)
	if !ok {
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive decimal wei string"})
		return
	}

	if err := h.accountService.Deposit(engine.Address(), amount); err != nil {
		c.JSON(statusForAccountError(err), gin.H{
			"error":   "Deposit failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": engine.Balance().String(),
	})
}

// GuardianRequest is the payload for guardian add/remove operations
type GuardianRequest struct {
	Caller   string `json:"caller" binding:"required"`
	Guardian string `json:"guardian" binding:"required"`
}

// AddGuardianHandler handles POST /api/accounts/:address/guardians
func (h *AccountHandler) AddGuardianHandler(c *gin.Context) {
	h.guardianChange(c, h.accountService.AddGuardian)
}

// RemoveGuardianHandler handles DELETE /api/accounts/:address/guardians
func (h *AccountHandler) RemoveGuardianHandler(c *gin.Context) {
	h.guardianChange(c, h.accountService.RemoveGuardian)
}

func (h *AccountHandler) guardianChange(c *gin.Context, change func(address, caller, guardian common.Address) error) {
	engine, ok := h.lookupEngine(c)
	if !ok {
		return
	}

	var req GuardianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid caller address"})
		return
	}
	guardian, ok := parseAddress(req.Guardian)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid guardian address"})
		return
	}

	if err := change(engine.Address(), caller, guardian); err != nil {
		c.JSON(statusForAccountError(err), gin.H{
			"error":   "Guardian update failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    accountView(engine),
	})
}

func (h *AccountHandler) lookupEngine(c *gin.Context) (*account.Engine, bool) {
	address, ok := parseAddress(c.Param("address"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account address"})
		return nil, false
	}

	engine, err := h.accountService.GetEngine(address)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Account not found",
			"details": err.Error(),
		})
		return nil, false
	}
	return engine, true
}

// accountView builds the API representation of an account engine
func accountView(engine *account.Engine) gin.H {
	guardians := engine.Guardians()
	guardianHexes := make([]string, 0, len(guardians))
	for _, g := range guardians {
		guardianHexes = append(guardianHexes, g.Hex())
	}

	return gin.H{
		"address":            engine.Address().Hex(),
		"owner":              engine.Owner().Hex(),
		"guardians":          guardianHexes,
		"required_guardians": engine.RequiredGuardians(),
		"nonce":              engine.Nonce(),
		"balance":            engine.Balance().String(),
	}
}
