package handlers

import (
	"github.com/gin-gonic/gin"

	"seeker-scratch/internal/middleware"
	"seeker-scratch/internal/services"
)

// NewRouter wires the bridge API. Every /api route requires a bridge token.
func NewRouter(jwtService *services.JWTService, limiter services.RateLimiter, game *GameHandler, user *UserHandler, ws *WebSocketHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(limiter))
	{
		protected.GET("/ws", ws.HandleWebSocket)

		protected.GET("/balance", game.GetBalance)
		protected.GET("/treasury", game.GetTreasury)
		protected.GET("/settlement", game.GetSettlement)

		cards := protected.Group("/cards")
		{
			cards.GET("", game.ListCards)
			cards.POST("/:id/buy", game.BuyCard)
		}

		reveal := protected.Group("/reveal")
		{
			reveal.GET("", game.GetReveal)
			reveal.POST("/scratch", game.Scratch)
			reveal.POST("/finish", game.Finish)
			reveal.POST("/reset", game.Reset)
		}

		protected.GET("/profile", user.GetProfile)
		protected.PUT("/profile", user.UpdateProfile)
		protected.POST("/referral", user.RegisterReferral)
		protected.GET("/nft", user.GetBonusNFT)
		protected.POST("/nft", user.MintBonusNFT)

		protected.GET("/leaderboard", user.GetLeaderboard)
		protected.GET("/leaderboard/rank/:wallet", user.GetRank)

		protected.GET("/settings", user.GetSettings)
		protected.PUT("/settings", user.UpdateSettings)
	}

	return router
}
