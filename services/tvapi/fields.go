package tvapi

import "fmt"

// Field describes one screener column: the wire name sent in a scan request
// and the label under which the value is surfaced in result rows.
type Field struct {
	Name  string
	Label string
}

// NativeInterval is the scanner's unqualified timeframe. A field requested
// without an interval suffix returns its value on this timeframe.
const NativeInterval = "1D"

// Base fields available on the crypto scanner.
var (
	FieldName        = Field{Name: "name", Label: "Name"}
	FieldDescription = Field{Name: "description", Label: "Description"}
	FieldExchange    = Field{Name: "exchange", Label: "Exchange"}

	FieldOpen   = Field{Name: "open", Label: "Open"}
	FieldHigh   = Field{Name: "high", Label: "High"}
	FieldLow    = Field{Name: "low", Label: "Low"}
	FieldPrice  = Field{Name: "close", Label: "Price"}
	FieldVolume = Field{Name: "volume", Label: "Volume"}

	FieldChange       = Field{Name: "change", Label: "Change %"}
	FieldVolumeUSD24h = Field{Name: "24h_vol_cmc", Label: "Volume 24h in USD"}

	FieldRSI        = Field{Name: "RSI", Label: "Relative Strength Index (14)"}
	FieldMACDLevel  = Field{Name: "MACD.macd", Label: "MACD Level (12, 26)"}
	FieldMACDSignal = Field{Name: "MACD.signal", Label: "MACD Signal (12, 26)"}
	FieldSMA20      = Field{Name: "SMA20", Label: "Simple Moving Average (20)"}
	FieldSMA50      = Field{Name: "SMA50", Label: "Simple Moving Average (50)"}
	FieldSMA200     = Field{Name: "SMA200", Label: "Simple Moving Average (200)"}
)

// SupportedExchanges is the fixed set of exchanges the universe is
// restricted to. Every source query filters on it.
var SupportedExchanges = []string{"BINANCE", "BYBIT", "BITGET"}

// KnownIntervals lists every timeframe identifier the scanner accepts as a
// field suffix.
var KnownIntervals = []string{"1", "5", "10", "15", "30", "60", "120", "240", "360", "720", "1D", "1W", "1M"}

// WithInterval returns the interval-qualified variant of f. The native
// interval keeps the unqualified name and label.
func (f Field) WithInterval(interval string) Field {
	if interval == "" || interval == NativeInterval {
		return f
	}
	return Field{
		Name:  fmt.Sprintf("%s|%s", f.Name, interval),
		Label: fmt.Sprintf("%s (%s)", f.Label, interval),
	}
}

// FieldTable maps (base field, interval) to its request descriptor. The
// table is built once at startup so interval resolution never happens by
// string construction at call sites.
type FieldTable struct {
	intervals []string
	fields    map[string]map[string]Field // base wire name -> interval -> descriptor
}

// NewFieldTable builds the descriptor table for the given base fields
// across the given intervals. It fails if any interval is not a known
// scanner timeframe.
func NewFieldTable(intervals []string, bases ...Field) (*FieldTable, error) {
	known := make(map[string]bool, len(KnownIntervals))
	for _, iv := range KnownIntervals {
		known[iv] = true
	}

	t := &FieldTable{
		intervals: intervals,
		fields:    make(map[string]map[string]Field, len(bases)),
	}
	for _, iv := range intervals {
		if !known[iv] {
			return nil, fmt.Errorf("unsupported interval %q", iv)
		}
	}
	for _, base := range bases {
		byInterval := make(map[string]Field, len(intervals))
		for _, iv := range intervals {
			byInterval[iv] = base.WithInterval(iv)
		}
		t.fields[base.Name] = byInterval
	}
	return t, nil
}

// Lookup returns the request descriptor for a base field at an interval.
func (t *FieldTable) Lookup(base Field, interval string) (Field, bool) {
	byInterval, ok := t.fields[base.Name]
	if !ok {
		return Field{}, false
	}
	f, ok := byInterval[interval]
	return f, ok
}

// Intervals returns the intervals the table was built for.
func (t *FieldTable) Intervals() []string {
	return t.intervals
}
