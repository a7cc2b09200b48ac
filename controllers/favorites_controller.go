package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"crypto_screener_backend/services"
	"crypto_screener_backend/services/screener"

	"github.com/gin-gonic/gin"
)

// FavoritesController handles watch-list requests
type FavoritesController struct {
	favorites *services.FavoritesService
	screener  *screener.Service
}

// NewFavoritesController creates a new favorites controller
func NewFavoritesController(fav *services.FavoritesService, scr *screener.Service) *FavoritesController {
	return &FavoritesController{favorites: fav, screener: scr}
}

// GetFavorites returns all watch-list entries
// GET /api/v1/favorites
func (fc *FavoritesController) GetFavorites(c *gin.Context) {
	favorites, err := fc.favorites.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load favorites"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": favorites})
}

// AddFavorite adds a symbol to the watch list
// POST /api/v1/favorites
func (fc *FavoritesController) AddFavorite(c *gin.Context) {
	var req struct {
		Symbol string `json:"symbol" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field 'symbol' is required"})
		return
	}

	favorite, err := fc.favorites.Add(req.Symbol)
	switch {
	case errors.Is(err, services.ErrDuplicateFavorite):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ticker already in favorites"})
	case errors.Is(err, services.ErrUnknownTicker):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ticker is not in the index"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add favorite"})
	default:
		c.JSON(http.StatusCreated, gin.H{"data": favorite})
	}
}

// RemoveFavorite removes a symbol from the watch list
// DELETE /api/v1/favorites/:symbol
func (fc *FavoritesController) RemoveFavorite(c *gin.Context) {
	symbol := c.Param("symbol")

	err := fc.favorites.Remove(symbol)
	switch {
	case errors.Is(err, services.ErrFavoriteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Favorite not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove favorite"})
	default:
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"symbol": symbol, "removed": true}})
	}
}

// GetFavoritesLive returns current live values for all watch-list members
// GET /api/v1/favorites/live?interval=1D
func (fc *FavoritesController) GetFavoritesLive(c *gin.Context) {
	interval := c.DefaultQuery("interval", "1D")

	favorites, err := fc.favorites.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load favorites"})
		return
	}
	symbols := make([]string, 0, len(favorites))
	for _, f := range favorites {
		symbols = append(symbols, f.Symbol)
	}

	assets, err := fc.screener.GetAssetsBySymbols(c.Request.Context(), symbols, interval)
	if err != nil {
		// Source outage degrades to an empty payload, not an error, so the
		// live view stays stable.
		log.Printf("Favorites live fetch failed: %v", err)
		c.JSON(http.StatusOK, gin.H{"data": []screener.Asset{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": assets})
}

// GetFavoriteHistory returns persisted history for one favorite, newest
// first
// GET /api/v1/favorites/history?symbol=BINANCE:BTCUSDT&interval=60&limit=100
func (fc *FavoritesController) GetFavoriteHistory(c *gin.Context) {
	symbol := c.Query("symbol")
	interval := c.Query("interval")
	if symbol == "" || interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parameters 'symbol' and 'interval' are required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	history, err := fc.favorites.History(symbol, interval, limit)
	switch {
	case errors.Is(err, services.ErrFavoriteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not in favorites"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
	default:
		c.JSON(http.StatusOK, gin.H{"data": history})
	}
}
