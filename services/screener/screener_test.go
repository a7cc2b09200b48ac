package screener

import (
	"context"
	"errors"
	"testing"

	"crypto_screener_backend/services/tvapi"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	rows    []tvapi.Row
	err     error
	calls   int
	lastReq tvapi.Request
}

func (s *stubSource) Scan(_ context.Context, req tvapi.Request) ([]tvapi.Row, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func moverRow(symbol string, price, change, volume float64, interval string) tvapi.Row {
	return tvapi.NewRow(symbol, map[string]interface{}{
		tvapi.FieldName.Label:     symbol,
		tvapi.FieldExchange.Label: "BINANCE",
		tvapi.FieldPrice.Label:    price,
		tvapi.FieldChange.WithInterval(interval).Label: change,
		tvapi.FieldVolumeUSD24h.Label:                  volume,
	})
}

func changeOf(t *testing.T, asset Asset) decimal.NullDecimal {
	t.Helper()
	change, ok := asset["change"].(decimal.NullDecimal)
	require.True(t, ok)
	return change
}

func TestGetTopMovers_GainersQueryShape(t *testing.T) {
	source := &stubSource{rows: []tvapi.Row{moverRow("BINANCE:BTCUSDT", 95000, 4.2, 50000000, "1D")}}
	svc := NewService(source)

	assets := svc.GetTopMovers(context.Background(), 10, "", true)
	require.Len(t, assets, 1)
	assert.Equal(t, "BINANCE:BTCUSDT", assets[0]["symbol"])

	req := source.lastReq
	require.NotNil(t, req.Sort)
	assert.Equal(t, tvapi.FieldChange.Name, req.Sort.SortBy)
	assert.Equal(t, "desc", req.Sort.SortOrder)
	assert.Equal(t, [2]int{0, 10}, req.Range)

	// Gainers carry the exchange and volume-floor filters but no change
	// predicate.
	require.Len(t, req.Filters, 2)
	assert.Equal(t, tvapi.FieldExchange.Name, req.Filters[0].Left)
	assert.Equal(t, tvapi.FieldVolumeUSD24h.Name, req.Filters[1].Left)
}

func TestGetTopMovers_LosersAddChangeFilter(t *testing.T) {
	source := &stubSource{rows: []tvapi.Row{moverRow("BINANCE:ADAUSDT", 0.5, -3.1, 2000000, "60")}}
	svc := NewService(source)

	assets := svc.GetTopMovers(context.Background(), 10, "60", false)
	require.Len(t, assets, 1)

	req := source.lastReq
	require.Len(t, req.Filters, 3)
	assert.Equal(t, "change|60", req.Filters[2].Left)
	assert.Equal(t, tvapi.FilterLess, req.Filters[2].Operation)
	assert.Equal(t, "asc", req.Sort.SortOrder)
}

func TestGetTopMovers_LosersStayStrictlyNegative(t *testing.T) {
	// The source filtered on change < 0, but the market moved between the
	// filter and the snapshot: some rows now carry positive or missing
	// change. None of them may surface in a losers view.
	source := &stubSource{rows: []tvapi.Row{
		moverRow("BINANCE:AAAUSDT", 1, -5.0, 100000, "1D"),
		moverRow("BINANCE:BBBUSDT", 1, 0.7, 100000, "1D"),
		moverRow("BINANCE:CCCUSDT", 1, -0.2, 100000, "1D"),
		tvapi.NewRow("BINANCE:DDDUSDT", map[string]interface{}{
			tvapi.FieldPrice.Label: 1.0,
		}),
	}}
	svc := NewService(source)

	assets := svc.GetTopMovers(context.Background(), 10, "1D", false)
	require.Len(t, assets, 2)
	for _, asset := range assets {
		change := changeOf(t, asset)
		require.True(t, change.Valid, "symbol %v", asset["symbol"])
		assert.True(t, change.Decimal.IsNegative(), "symbol %v", asset["symbol"])
	}

	// Replay after a full reversal: every change is now positive, so the
	// losers view goes empty rather than flickering gainers in.
	source.rows = []tvapi.Row{
		moverRow("BINANCE:AAAUSDT", 1, 2.0, 100000, "1D"),
		moverRow("BINANCE:CCCUSDT", 1, 0.1, 100000, "1D"),
	}
	assets = svc.GetTopMovers(context.Background(), 10, "1D", false)
	assert.Empty(t, assets)
}

func TestGetTopMovers_FallbackMatchesDirection(t *testing.T) {
	source := &stubSource{err: errors.New("scanner down")}
	svc := NewService(source)

	gainers := svc.GetTopMovers(context.Background(), 10, "", true)
	require.Len(t, gainers, 1)
	assert.Equal(t, "BINANCE:BTCUSDT", gainers[0]["symbol"])
	assert.True(t, changeOf(t, gainers[0]).Decimal.IsPositive())

	losers := svc.GetTopMovers(context.Background(), 10, "", false)
	require.Len(t, losers, 1)
	assert.True(t, changeOf(t, losers[0]).Decimal.IsNegative())
}

func TestGetTopMovers_LimitBounds(t *testing.T) {
	rows := make([]tvapi.Row, 0, 5)
	for _, symbol := range []string{"BINANCE:A", "BINANCE:B", "BINANCE:C", "BINANCE:D", "BINANCE:E"} {
		rows = append(rows, moverRow(symbol, 1, 1.0, 100000, "1D"))
	}
	source := &stubSource{rows: rows}
	svc := NewService(source)

	assets := svc.GetTopMovers(context.Background(), 3, "", true)
	assert.Len(t, assets, 3)

	// Out-of-range limits fall back to the default.
	svc.GetTopMovers(context.Background(), MaxLimit+1, "", true)
	assert.Equal(t, [2]int{0, DefaultLimit}, source.lastReq.Range)

	svc.GetTopMovers(context.Background(), -1, "", true)
	assert.Equal(t, [2]int{0, DefaultLimit}, source.lastReq.Range)
}

func TestGetAssetsBySymbols(t *testing.T) {
	source := &stubSource{rows: []tvapi.Row{moverRow("BINANCE:BTCUSDT", 95000, 1.2, 50000000, "240")}}
	svc := NewService(source)

	assets, err := svc.GetAssetsBySymbols(context.Background(), []string{"BINANCE:BTCUSDT"}, "240")
	require.NoError(t, err)
	require.Len(t, assets, 1)

	price, ok := assets[0]["price"].(decimal.NullDecimal)
	require.True(t, ok)
	assert.True(t, price.Decimal.Equal(decimal.NewFromInt(95000)))
	assert.True(t, changeOf(t, assets[0]).Decimal.Equal(decimal.NewFromFloat(1.2)))
	assert.Equal(t, []string{"BINANCE:BTCUSDT"}, source.lastReq.Tickers)
}

func TestGetAssetsBySymbols_EmptyListSkipsFetch(t *testing.T) {
	source := &stubSource{}
	svc := NewService(source)

	assets, err := svc.GetAssetsBySymbols(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, assets)
	assert.Zero(t, source.calls)
}

func TestGetAssetsBySymbols_SourceErrorPropagates(t *testing.T) {
	source := &stubSource{err: errors.New("scanner down")}
	svc := NewService(source)

	_, err := svc.GetAssetsBySymbols(context.Background(), []string{"BINANCE:BTCUSDT"}, "")
	require.Error(t, err)
}

func TestShapeRow_CaseInsensitiveLabels(t *testing.T) {
	t.Parallel()

	// The provider does not guarantee label casing; shaping must still find
	// the columns.
	row := tvapi.NewRow("BINANCE:BTCUSDT", map[string]interface{}{
		"NAME":         "BTCUSDT",
		"exchange":     "BINANCE",
		"PRICE":        95000.0,
		"change % (5)": -1.5,
	})

	asset := shapeRow(row, "5")
	assert.Equal(t, "BTCUSDT", asset["name"])
	assert.Equal(t, "BINANCE", asset["exchange"])

	price := asset["price"].(decimal.NullDecimal)
	require.True(t, price.Valid)
	assert.True(t, price.Decimal.Equal(decimal.NewFromInt(95000)))

	change := asset["change"].(decimal.NullDecimal)
	require.True(t, change.Valid)
	assert.True(t, change.Decimal.Equal(decimal.NewFromFloat(-1.5)))
}
