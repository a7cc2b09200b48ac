package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"crypto_screener_backend/models"
	"crypto_screener_backend/services/tvapi"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultRetention is how long history rows are kept before pruning.
// Roughly six months plus one day.
const DefaultRetention = 181 * 24 * time.Hour

// SupportedIntervals are the timeframes collected for every watched symbol.
var SupportedIntervals = []string{"5", "10", "15", "60", "120", "240", "360", "720", "1D", "1W", "1M"}

// indicatorFields maps the indicator names stored in the history blob to
// their scanner fields.
var indicatorFields = []struct {
	Name  string
	Field tvapi.Field
}{
	{"RSI", tvapi.FieldRSI},
	{"MACD", tvapi.FieldMACDLevel},
	{"MACD_Signal", tvapi.FieldMACDSignal},
	{"SMA20", tvapi.FieldSMA20},
	{"SMA50", tvapi.FieldSMA50},
	{"SMA200", tvapi.FieldSMA200},
}

var ohlcvFields = []tvapi.Field{
	tvapi.FieldOpen,
	tvapi.FieldHigh,
	tvapi.FieldLow,
	tvapi.FieldPrice,
	tvapi.FieldVolume,
}

// SnapshotSource is the subset of the scanner client the collector needs.
type SnapshotSource interface {
	Scan(ctx context.Context, req tvapi.Request) ([]tvapi.Row, error)
}

// Service collects multi-interval snapshots for the watch list and
// persists them as bucketed history rows.
type Service struct {
	db        *gorm.DB
	source    SnapshotSource
	fields    *tvapi.FieldTable
	retention time.Duration
}

// NewService creates a collector. The field table is built and validated
// up front so a bad interval configuration fails at startup, not during a
// collection cycle.
func NewService(db *gorm.DB, source SnapshotSource, retention time.Duration) (*Service, error) {
	bases := make([]tvapi.Field, 0, len(ohlcvFields)+len(indicatorFields))
	bases = append(bases, ohlcvFields...)
	for _, ind := range indicatorFields {
		bases = append(bases, ind.Field)
	}

	table, err := tvapi.NewFieldTable(SupportedIntervals, bases...)
	if err != nil {
		return nil, fmt.Errorf("collector field table: %w", err)
	}

	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{db: db, source: source, fields: table, retention: retention}, nil
}

// CollectAll fetches one wide snapshot covering every supported interval
// for the current watch list and upserts the per-interval history rows.
// The whole cycle commits as one transaction; any fetch or storage error
// abandons the cycle and the next scheduled tick retries.
func (s *Service) CollectAll(ctx context.Context) error {
	var favorites []models.Favorite
	if err := s.db.Find(&favorites).Error; err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}
	if len(favorites) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(favorites))
	watched := make(map[string]bool, len(favorites))
	for _, f := range favorites {
		symbols = append(symbols, f.Symbol)
		watched[f.Symbol] = true
	}
	log.Printf("Collector: fetching data for %d symbols", len(symbols))

	columns := []tvapi.Field{tvapi.FieldName}
	for _, interval := range SupportedIntervals {
		for _, base := range ohlcvFields {
			field, _ := s.fields.Lookup(base, interval)
			columns = append(columns, field)
		}
		for _, ind := range indicatorFields {
			field, _ := s.fields.Lookup(ind.Field, interval)
			columns = append(columns, field)
		}
	}

	rows, err := s.source.Scan(ctx, tvapi.Request{
		Tickers: symbols,
		Columns: columns,
		Range:   [2]int{0, len(symbols)},
	})
	if err != nil {
		return fmt.Errorf("snapshot fetch failed: %w", err)
	}

	now := time.Now().UTC()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if !watched[row.Symbol] {
				continue
			}
			for _, interval := range SupportedIntervals {
				if err := s.upsertBucket(tx, row, interval, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("collection cycle aborted: %w", err)
	}

	log.Printf("Collector: sync complete for %d symbols", len(symbols))
	return nil
}

// upsertBucket writes one (symbol, interval, bucket) history row. The open
// is written only on the first observation of a bucket; high, low, close,
// volume and the indicator blob reflect the latest observation.
func (s *Service) upsertBucket(tx *gorm.DB, row tvapi.Row, interval string, now time.Time) error {
	bucket := BucketStart(now, interval)

	var record models.MarketDataHistory
	err := tx.Where("symbol = ? AND interval = ? AND timestamp = ?", row.Symbol, interval, bucket).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.MarketDataHistory{
			Symbol:    row.Symbol,
			Interval:  interval,
			Timestamp: bucket,
		}
	} else if err != nil {
		return fmt.Errorf("history lookup for %s/%s: %w", row.Symbol, interval, err)
	}

	if !record.Open.Valid {
		record.Open = s.value(row, tvapi.FieldOpen, interval)
	}
	record.High = s.value(row, tvapi.FieldHigh, interval)
	record.Low = s.value(row, tvapi.FieldLow, interval)
	record.Close = s.value(row, tvapi.FieldPrice, interval)
	record.Volume = s.value(row, tvapi.FieldVolume, interval)

	indicators := make(map[string]decimal.NullDecimal, len(indicatorFields))
	for _, ind := range indicatorFields {
		indicators[ind.Name] = s.value(row, ind.Field, interval)
	}
	blob, err := json.Marshal(indicators)
	if err != nil {
		return fmt.Errorf("failed to encode indicators for %s/%s: %w", row.Symbol, interval, err)
	}
	record.IndicatorsJSON = string(blob)

	if err := tx.Save(&record).Error; err != nil {
		return fmt.Errorf("history upsert for %s/%s: %w", row.Symbol, interval, err)
	}
	return nil
}

func (s *Service) value(row tvapi.Row, base tvapi.Field, interval string) decimal.NullDecimal {
	field, ok := s.fields.Lookup(base, interval)
	if !ok {
		return decimal.NullDecimal{}
	}
	return row.Decimal(field.Label)
}

// PurgeOldData deletes history rows older than the retention window.
func (s *Service) PurgeOldData() error {
	cutoff := time.Now().UTC().Add(-s.retention)
	result := s.db.Where("timestamp < ?", cutoff).Delete(&models.MarketDataHistory{})
	if result.Error != nil {
		return fmt.Errorf("failed to purge history: %w", result.Error)
	}
	log.Printf("Collector: purged %d records older than %s", result.RowsAffected, cutoff.Format(time.RFC3339))
	return nil
}
