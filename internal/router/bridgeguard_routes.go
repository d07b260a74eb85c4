package router

import (
	"bridgeguard/internal/handlers"
	"bridgeguard/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAPIRoutes registers the account, recovery, and route API groups
func SetupAPIRoutes(
	r *gin.Engine,
	accountHandler *handlers.AccountHandler,
	recoveryHandler *handlers.RecoveryHandler,
	routeHandler *handlers.RouteHandler,
	wsHandler *handlers.WebSocketHandler,
	localhostOnly *middleware.LocalhostOnly,
) {
	api := r.Group("/api")
	{
		// ============ Smart Accounts ============
		accounts := api.Group("/accounts")
		{
			accounts.POST("", accountHandler.CreateAccountHandler)
			accounts.GET("/:address", accountHandler.GetAccountHandler)
			accounts.POST("/:address/deposit", accountHandler.DepositHandler)

			// Guardian set management (owner-gated inside the engine)
			accounts.POST("/:address/guardians", accountHandler.AddGuardianHandler)
			accounts.DELETE("/:address/guardians", accountHandler.RemoveGuardianHandler)

			// ============ Guardian Recovery ============
			accounts.POST("/:address/recovery", recoveryHandler.InitiateRecoveryHandler)
			accounts.GET("/:address/recovery", recoveryHandler.ListRecoveryHandler)
			accounts.POST("/:address/recovery/:id/confirm", recoveryHandler.ConfirmRecoveryHandler)
			accounts.POST("/:address/recovery/:id/execute", recoveryHandler.ExecuteRecoveryHandler)
		}

		// ============ Route Aggregation ============
		routes := api.Group("/routes")
		{
			routes.POST("/query", routeHandler.QueryRoutesHandler)
			routes.POST("/calldata", routeHandler.PreviewCalldataHandler)
			routes.POST("/execute", routeHandler.ExecuteStrategyHandler)
		}

		// ============ Execution History ============
		executions := api.Group("/executions")
		{
			executions.GET("", routeHandler.ListExecutionsHandler)
			executions.GET("/:id", routeHandler.GetExecutionHandler)
		}

		// ============ WebSocket Status (IP Whitelisted) ============
		if localhostOnly != nil {
			api.GET("/ws/status", localhostOnly.Restrict(), wsHandler.GetConnectionStatusHandler)
		}
	}
}
