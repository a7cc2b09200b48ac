package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crypto_screener_backend/models"
	"crypto_screener_backend/services"
	"crypto_screener_backend/services/screener"
	"crypto_screener_backend/services/tvapi"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubSource struct {
	rows []tvapi.Row
	err  error
}

func (s *stubSource) Scan(_ context.Context, _ tvapi.Request) ([]tvapi.Row, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.MigrateMarketModels(db))
	return db
}

func newFavoritesRouter(t *testing.T, db *gorm.DB, source *stubSource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fc := NewFavoritesController(services.NewFavoritesService(db), screener.NewService(source))

	router := gin.New()
	router.GET("/favorites", fc.GetFavorites)
	router.POST("/favorites", fc.AddFavorite)
	router.DELETE("/favorites/:symbol", fc.RemoveFavorite)
	router.GET("/favorites/live", fc.GetFavoritesLive)
	router.GET("/favorites/history", fc.GetFavoriteHistory)
	return router
}

func seedTicker(t *testing.T, db *gorm.DB, symbol string) {
	t.Helper()
	require.NoError(t, db.Create(&models.TickerIndex{
		Symbol: symbol, Exchange: "BINANCE", Name: symbol, UpdatedAt: time.Now().UTC(),
	}).Error)
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAddFavorite(t *testing.T) {
	db := setupTestDB(t)
	router := newFavoritesRouter(t, db, &stubSource{})
	seedTicker(t, db, "BINANCE:BTCUSDT")

	w := doJSON(router, http.MethodPost, "/favorites", `{"symbol":"BINANCE:BTCUSDT"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/favorites", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.Favorite `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "BINANCE:BTCUSDT", resp.Data[0].Symbol)
}

func TestAddFavorite_Validation(t *testing.T) {
	db := setupTestDB(t)
	router := newFavoritesRouter(t, db, &stubSource{})
	seedTicker(t, db, "BINANCE:BTCUSDT")

	// Missing symbol field.
	w := doJSON(router, http.MethodPost, "/favorites", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Symbol not in the index.
	w = doJSON(router, http.MethodPost, "/favorites", `{"symbol":"BINANCE:NOPEUSDT"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Duplicate member.
	doJSON(router, http.MethodPost, "/favorites", `{"symbol":"BINANCE:BTCUSDT"}`)
	w = doJSON(router, http.MethodPost, "/favorites", `{"symbol":"BINANCE:BTCUSDT"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveFavorite(t *testing.T) {
	db := setupTestDB(t)
	router := newFavoritesRouter(t, db, &stubSource{})
	seedTicker(t, db, "BINANCE:BTCUSDT")
	doJSON(router, http.MethodPost, "/favorites", `{"symbol":"BINANCE:BTCUSDT"}`)

	w := doJSON(router, http.MethodDelete, "/favorites/BINANCE:BTCUSDT", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodDelete, "/favorites/BINANCE:BTCUSDT", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetFavoritesLive_SourceOutageDegradesToEmpty(t *testing.T) {
	db := setupTestDB(t)
	source := &stubSource{err: errors.New("scanner down")}
	router := newFavoritesRouter(t, db, source)
	seedTicker(t, db, "BINANCE:BTCUSDT")
	doJSON(router, http.MethodPost, "/favorites", `{"symbol":"BINANCE:BTCUSDT"}`)

	w := doJSON(router, http.MethodGet, "/favorites/live?interval=60", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []screener.Asset `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)
}

func TestGetFavoriteHistory_Validation(t *testing.T) {
	db := setupTestDB(t)
	router := newFavoritesRouter(t, db, &stubSource{})

	w := doJSON(router, http.MethodGet, "/favorites/history?symbol=BINANCE:BTCUSDT", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/favorites/history?symbol=BINANCE:BTCUSDT&interval=60", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
