package indexer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"crypto_screener_backend/models"
	"crypto_screener_backend/services/tvapi"

	"gorm.io/gorm"
)

const (
	// DefaultIndexLimit caps the ranked base set fetched per sync cycle.
	DefaultIndexLimit = 1500

	// variantBatchSize bounds how many symbols one explicit-list scan may
	// name. The source rejects oversized ticker lists.
	variantBatchSize = 500

	// PerpSuffix marks perpetual contract symbols.
	PerpSuffix = ".P"
)

// SnapshotSource is the subset of the scanner client the indexer needs.
type SnapshotSource interface {
	Scan(ctx context.Context, req tvapi.Request) ([]tvapi.Row, error)
}

// Service reconciles the local ticker index against the prioritized remote
// universe, cascading removals to favorites and their history.
type Service struct {
	db     *gorm.DB
	source SnapshotSource
	limit  int
}

// NewService creates an indexer. limit <= 0 selects DefaultIndexLimit.
func NewService(db *gorm.DB, source SnapshotSource, limit int) *Service {
	if limit <= 0 {
		limit = DefaultIndexLimit
	}
	return &Service{db: db, source: source, limit: limit}
}

type tickerRecord struct {
	Symbol      string
	Exchange    string
	Name        string
	Description string
}

var indexColumns = []tvapi.Field{
	tvapi.FieldName,
	tvapi.FieldDescription,
	tvapi.FieldExchange,
}

// SyncTickers runs one reconciliation cycle: fetch the ranked base set,
// expand it with perpetual counterparts, then upsert and prune the local
// index in a single transaction. A mid-cycle failure leaves the prior
// index untouched. Returns the size of the new valid set.
func (s *Service) SyncTickers(ctx context.Context) (int, error) {
	log.Printf("Indexer: starting ticker sync (top %d)", s.limit)

	base, err := s.fetchBaseSet(ctx)
	if err != nil {
		return 0, fmt.Errorf("base set fetch failed: %w", err)
	}

	variants := s.fetchVariants(ctx, base)

	// Union, de-duplicated by symbol, base set wins on conflicts.
	valid := make(map[string]tickerRecord, len(base)+len(variants))
	for _, rec := range variants {
		valid[rec.Symbol] = rec
	}
	for _, rec := range base {
		valid[rec.Symbol] = rec
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.upsertTickers(tx, valid); err != nil {
			return err
		}
		return s.pruneStale(tx, valid)
	})
	if err != nil {
		return 0, fmt.Errorf("index reconciliation aborted: %w", err)
	}

	log.Printf("Indexer: sync finished, %d tickers in valid set", len(valid))
	return len(valid), nil
}

// fetchBaseSet returns the top tickers by 24h USD volume on the supported
// exchanges.
func (s *Service) fetchBaseSet(ctx context.Context) ([]tickerRecord, error) {
	rows, err := s.source.Scan(ctx, tvapi.Request{
		Filters: []tvapi.Filter{
			{Left: tvapi.FieldExchange.Name, Operation: tvapi.FilterInRange, Right: tvapi.SupportedExchanges},
		},
		Columns: indexColumns,
		Sort:    &tvapi.Sort{SortBy: tvapi.FieldVolumeUSD24h.Name, SortOrder: "desc"},
		Range:   [2]int{0, s.limit},
	})
	if err != nil {
		return nil, err
	}
	return recordsFromRows(rows), nil
}

// fetchVariants resolves the perpetual counterparts of the base set. The
// source caps explicit symbol lists, so candidates go out in bounded
// batches; a failed batch is skipped, not fatal.
func (s *Service) fetchVariants(ctx context.Context, base []tickerRecord) []tickerRecord {
	candidates := make([]string, 0, len(base))
	for _, rec := range base {
		if strings.HasSuffix(rec.Symbol, PerpSuffix) {
			continue
		}
		candidates = append(candidates, rec.Symbol+PerpSuffix)
	}

	var variants []tickerRecord
	for start := 0; start < len(candidates); start += variantBatchSize {
		end := start + variantBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		rows, err := s.source.Scan(ctx, tvapi.Request{
			Tickers: batch,
			Columns: indexColumns,
			Range:   [2]int{0, len(batch)},
		})
		if err != nil {
			log.Printf("Indexer: variant batch %d-%d failed, skipping: %v", start, end, err)
			continue
		}
		variants = append(variants, recordsFromRows(rows)...)
	}
	return variants
}

func recordsFromRows(rows []tvapi.Row) []tickerRecord {
	supported := make(map[string]bool, len(tvapi.SupportedExchanges))
	for _, ex := range tvapi.SupportedExchanges {
		supported[ex] = true
	}

	records := make([]tickerRecord, 0, len(rows))
	for _, row := range rows {
		if row.Symbol == "" {
			continue
		}
		exchange := row.String(tvapi.FieldExchange.Label)
		if exchange == "" {
			// Fall back to the symbol prefix when the column is missing.
			if idx := strings.IndexByte(row.Symbol, ':'); idx > 0 {
				exchange = row.Symbol[:idx]
			}
		}
		if !supported[exchange] {
			continue
		}
		records = append(records, tickerRecord{
			Symbol:      row.Symbol,
			Exchange:    exchange,
			Name:        row.String(tvapi.FieldName.Label),
			Description: row.String(tvapi.FieldDescription.Label),
		})
	}
	return records
}

// upsertTickers inserts new symbols and updates existing ones only when
// name or description actually changed, so UpdatedAt advances on real
// change only.
func (s *Service) upsertTickers(tx *gorm.DB, valid map[string]tickerRecord) error {
	var existing []models.TickerIndex
	if err := tx.Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load ticker index: %w", err)
	}
	bySymbol := make(map[string]models.TickerIndex, len(existing))
	for _, t := range existing {
		bySymbol[t.Symbol] = t
	}

	now := time.Now().UTC()
	for symbol, rec := range valid {
		current, ok := bySymbol[symbol]
		if !ok {
			ticker := models.TickerIndex{
				Symbol:      rec.Symbol,
				Exchange:    rec.Exchange,
				Name:        rec.Name,
				Description: rec.Description,
				UpdatedAt:   now,
			}
			if err := tx.Create(&ticker).Error; err != nil {
				return fmt.Errorf("failed to insert ticker %s: %w", symbol, err)
			}
			continue
		}
		if current.Name == rec.Name && current.Description == rec.Description {
			continue
		}
		updates := map[string]interface{}{
			"name":        rec.Name,
			"description": rec.Description,
			"updated_at":  now,
		}
		if err := tx.Model(&models.TickerIndex{}).Where("symbol = ?", symbol).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update ticker %s: %w", symbol, err)
		}
	}
	return nil
}

// pruneStale removes everything referencing a symbol outside the valid
// set. Cascade order matters: history first, then the favorite, then the
// ticker, so no history row can outlive its symbol.
func (s *Service) pruneStale(tx *gorm.DB, valid map[string]tickerRecord) error {
	var indexed []models.TickerIndex
	if err := tx.Find(&indexed).Error; err != nil {
		return fmt.Errorf("failed to load ticker index: %w", err)
	}
	var favorites []models.Favorite
	if err := tx.Find(&favorites).Error; err != nil {
		return fmt.Errorf("failed to load favorites: %w", err)
	}

	stale := make(map[string]bool)
	for _, t := range indexed {
		if _, ok := valid[t.Symbol]; !ok {
			stale[t.Symbol] = true
		}
	}
	for _, f := range favorites {
		if _, ok := valid[f.Symbol]; !ok {
			stale[f.Symbol] = true
		}
	}

	for symbol := range stale {
		if err := tx.Where("symbol = ?", symbol).Delete(&models.MarketDataHistory{}).Error; err != nil {
			return fmt.Errorf("failed to prune history for %s: %w", symbol, err)
		}
		if err := tx.Where("symbol = ?", symbol).Delete(&models.Favorite{}).Error; err != nil {
			return fmt.Errorf("failed to prune favorite %s: %w", symbol, err)
		}
		if err := tx.Where("symbol = ?", symbol).Delete(&models.TickerIndex{}).Error; err != nil {
			return fmt.Errorf("failed to prune ticker %s: %w", symbol, err)
		}
	}

	if len(stale) > 0 {
		log.Printf("Indexer: pruned %d stale symbols", len(stale))
	}
	return nil
}
