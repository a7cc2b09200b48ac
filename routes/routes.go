package routes

import (
	"time"

	"crypto_screener_backend/controllers"
	"crypto_screener_backend/middleware"
	"crypto_screener_backend/services"
	"crypto_screener_backend/services/screener"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, scr *screener.Service, fav *services.FavoritesService, rt *services.RealtimeService) {
	// Initialize controllers
	screenerController := controllers.NewScreenerController(db, scr)
	favoritesController := controllers.NewFavoritesController(fav, scr)

	mutationLimiter := middleware.NewRateLimiter(60, time.Minute)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Screener routes
		screenerRoutes := api.Group("/screener")
		{
			screenerRoutes.GET("/top-movers", screenerController.GetTopMovers)
		}

		// Ticker index routes
		tickers := api.Group("/tickers")
		{
			tickers.GET("/search", screenerController.SearchTickers)
		}

		// Watch-list routes
		favorites := api.Group("/favorites")
		favorites.Use(middleware.MutationRateLimit(mutationLimiter))
		{
			favorites.GET("", favoritesController.GetFavorites)
			favorites.POST("", favoritesController.AddFavorite)
			favorites.DELETE("/:symbol", favoritesController.RemoveFavorite)
			favorites.GET("/live", favoritesController.GetFavoritesLive)
			favorites.GET("/history", favoritesController.GetFavoriteHistory)
		}
	}

	// Live subscription endpoint
	router.GET("/ws", func(c *gin.Context) {
		rt.HandleWebSocket(c.Writer, c.Request)
	})
}
