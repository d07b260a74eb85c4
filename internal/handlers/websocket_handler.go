package handlers

import (
	"net/http"

	"bridgeguard/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades clients onto the push service
type WebSocketHandler struct {
	pushService *services.PushService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(pushService *services.PushService) *WebSocketHandler {
	return &WebSocketHandler{pushService: pushService}
}

// HandleWebSocket handles GET /ws?address=0x...
// Clients subscribe with their account address and receive execution and
// recovery updates pushed from the NATS bridge
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	address := c.Query("address")
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing address query parameter"})
		return
	}

	// Normalize to checksum form so push lookups match engine addresses
	h.pushService.HandleWebSocket(c.Writer, c.Request, common.HexToAddress(address).Hex())
}

// GetConnectionStatusHandler handles GET /api/ws/status
func (h *WebSocketHandler) GetConnectionStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"active_connections": h.pushService.GetActiveConnections(),
	})
}
