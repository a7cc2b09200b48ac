package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crypto_screener_backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User-facing validation failures. Controllers map these to HTTP statuses.
var (
	ErrUnknownTicker     = errors.New("ticker is not in the index")
	ErrDuplicateFavorite = errors.New("ticker already in favorites")
	ErrFavoriteNotFound  = errors.New("favorite not found")
)

// FavoritesService manages the watch list and serves persisted history for
// its members.
type FavoritesService struct {
	db *gorm.DB
}

// NewFavoritesService creates a favorites service
func NewFavoritesService(db *gorm.DB) *FavoritesService {
	return &FavoritesService{db: db}
}

// List returns all watch-list entries
func (s *FavoritesService) List() ([]models.Favorite, error) {
	var favorites []models.Favorite
	if err := s.db.Order("added_at").Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	return favorites, nil
}

// Add inserts a watch-list entry. The symbol must exist in the ticker
// index; adding an existing member fails with ErrDuplicateFavorite.
func (s *FavoritesService) Add(symbol string) (*models.Favorite, error) {
	var ticker models.TickerIndex
	if err := s.db.Where("symbol = ?", symbol).First(&ticker).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownTicker
		}
		return nil, fmt.Errorf("ticker lookup failed: %w", err)
	}

	var existing models.Favorite
	err := s.db.Where("symbol = ?", symbol).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateFavorite
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("favorite lookup failed: %w", err)
	}

	favorite := models.Favorite{Symbol: symbol, AddedAt: time.Now().UTC()}
	if err := s.db.Create(&favorite).Error; err != nil {
		return nil, fmt.Errorf("failed to add favorite %s: %w", symbol, err)
	}
	return &favorite, nil
}

// Remove deletes a watch-list entry; removing a non-member fails with
// ErrFavoriteNotFound.
func (s *FavoritesService) Remove(symbol string) error {
	var favorite models.Favorite
	if err := s.db.Where("symbol = ?", symbol).First(&favorite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFavoriteNotFound
		}
		return fmt.Errorf("favorite lookup failed: %w", err)
	}
	if err := s.db.Delete(&favorite).Error; err != nil {
		return fmt.Errorf("failed to remove favorite %s: %w", symbol, err)
	}
	return nil
}

// HistoryPoint is one persisted history row with its indicator blob
// decoded for the response.
type HistoryPoint struct {
	models.MarketDataHistory
	Indicators map[string]decimal.NullDecimal `json:"indicators"`
}

// History returns a favorite's persisted history for an interval, newest
// first. Querying a symbol that is not on the watch list fails with
// ErrFavoriteNotFound.
func (s *FavoritesService) History(symbol, interval string, limit int) ([]HistoryPoint, error) {
	if limit <= 0 {
		limit = 100
	}

	var favorite models.Favorite
	if err := s.db.Where("symbol = ?", symbol).First(&favorite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFavoriteNotFound
		}
		return nil, fmt.Errorf("favorite lookup failed: %w", err)
	}

	var records []models.MarketDataHistory
	err := s.db.Where("symbol = ? AND interval = ?", symbol, interval).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s/%s: %w", symbol, interval, err)
	}

	points := make([]HistoryPoint, 0, len(records))
	for _, record := range records {
		point := HistoryPoint{MarketDataHistory: record}
		if record.IndicatorsJSON != "" {
			if err := json.Unmarshal([]byte(record.IndicatorsJSON), &point.Indicators); err != nil {
				// A corrupt blob degrades that row, not the whole response.
				point.Indicators = nil
			}
		}
		points = append(points, point)
	}
	return points, nil
}
