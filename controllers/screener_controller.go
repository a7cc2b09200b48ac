package controllers

import (
	"net/http"
	"strconv"

	"crypto_screener_backend/models"
	"crypto_screener_backend/services/screener"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ScreenerController handles live screener and ticker search requests
type ScreenerController struct {
	db       *gorm.DB
	screener *screener.Service
}

// NewScreenerController creates a new screener controller
func NewScreenerController(db *gorm.DB, scr *screener.Service) *ScreenerController {
	return &ScreenerController{db: db, screener: scr}
}

// GetTopMovers returns the ranked gainers or losers for an interval
// GET /api/v1/screener/top-movers?limit=50&interval=1D&sort=desc
func (sc *ScreenerController) GetTopMovers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	interval := c.DefaultQuery("interval", "1D")
	sortDescending := c.DefaultQuery("sort", "desc") != "asc"

	assets := sc.screener.GetTopMovers(c.Request.Context(), limit, interval, sortDescending)

	c.JSON(http.StatusOK, gin.H{"data": assets})
}

// SearchTickers searches the local index by partial symbol, name or
// description
// GET /api/v1/tickers/search?q=btc
func (sc *ScreenerController) SearchTickers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	pattern := "%" + query + "%"
	var tickers []models.TickerIndex
	err := sc.db.
		Where("symbol LIKE ? OR name LIKE ? OR description LIKE ?", pattern, pattern, pattern).
		Order("symbol").
		Limit(limit).
		Find(&tickers).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search tickers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tickers})
}
