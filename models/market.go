package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TickerIndex represents one instrument of the locally indexed universe.
// Symbols follow the EXCHANGE:TICKER convention, with a ".P" suffix for
// perpetual contracts (e.g. BINANCE:BTCUSDT.P).
type TickerIndex struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Symbol      string    `gorm:"uniqueIndex;not null" json:"symbol"`
	Exchange    string    `json:"exchange"` // BINANCE, BYBIT, BITGET
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the default table name
func (TickerIndex) TableName() string {
	return "ticker_index"
}

// Favorite is a watch-list entry. Its symbol must reference an existing
// TickerIndex row at creation time; universe sync removes orphaned entries
// together with their history.
type Favorite struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	Symbol  string    `gorm:"uniqueIndex;not null" json:"symbol"`
	AddedAt time.Time `json:"added_at"`
}

// TableName overrides the default table name
func (Favorite) TableName() string {
	return "favorites"
}

// MarketDataHistory holds the latest known state of one (symbol, interval,
// bucket) combination. Each collection cycle overwrites the row in place,
// so it is a snapshot of the bucket, not an append-only log. OHLCV columns
// are nullable because the provider may omit any of them for a given
// symbol/interval pair.
type MarketDataHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"index;uniqueIndex:idx_symbol_interval_ts;not null" json:"symbol"`
	Interval  string    `gorm:"uniqueIndex:idx_symbol_interval_ts;not null" json:"interval"` // e.g. "5", "60", "1D"
	Timestamp time.Time `gorm:"index;uniqueIndex:idx_symbol_interval_ts;not null" json:"timestamp"`

	Open   decimal.NullDecimal `gorm:"type:decimal(24,8)" json:"open"`
	High   decimal.NullDecimal `gorm:"type:decimal(24,8)" json:"high"`
	Low    decimal.NullDecimal `gorm:"type:decimal(24,8)" json:"low"`
	Close  decimal.NullDecimal `gorm:"type:decimal(24,8)" json:"close"`
	Volume decimal.NullDecimal `gorm:"type:decimal(30,8)" json:"volume"`

	// Named indicator values for this bucket, serialized as one JSON blob.
	IndicatorsJSON string `json:"indicators_json"`
}

// TableName overrides the default table name
func (MarketDataHistory) TableName() string {
	return "market_data_history"
}

// MigrateMarketModels runs database migrations for market-related models
func MigrateMarketModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&TickerIndex{},
		&Favorite{},
		&MarketDataHistory{},
	)
}
