package tvapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the production crypto scanner endpoint.
const DefaultBaseURL = "https://scanner.tradingview.com/crypto"

// FilterOp is a scanner filter operation
type FilterOp string

const (
	FilterEqual   FilterOp = "equal"
	FilterGreater FilterOp = "greater"
	FilterLess    FilterOp = "less"
	FilterInRange FilterOp = "in_range"
)

// Filter is one predicate applied server-side to the scan
type Filter struct {
	Left      string      `json:"left"`
	Operation FilterOp    `json:"operation"`
	Right     interface{} `json:"right"`
}

// Sort selects the server-side ordering of the scan result
type Sort struct {
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"` // "asc" or "desc"
}

// Request describes one snapshot fetch. Tickers restricts the scan to an
// explicit symbol list; when empty the whole universe (minus filters) is
// scanned within Range.
type Request struct {
	Tickers []string
	Filters []Filter
	Columns []Field
	Sort    *Sort
	Range   [2]int
}

type scanSymbols struct {
	Tickers []string `json:"tickers"`
}

type scanRequest struct {
	Symbols *scanSymbols `json:"symbols,omitempty"`
	Filter  []Filter     `json:"filter,omitempty"`
	Columns []string     `json:"columns"`
	Sort    *Sort        `json:"sort,omitempty"`
	Range   []int        `json:"range"`
}

type scanResponse struct {
	TotalCount int `json:"totalCount"`
	Data       []struct {
		Symbol string            `json:"s"`
		Values []json.RawMessage `json:"d"`
	} `json:"data"`
}

// Row is one instrument's snapshot keyed loosely by column label. Lookups
// are case-insensitive because the provider does not guarantee consistent
// label casing across intervals.
type Row struct {
	Symbol string
	values map[string]json.RawMessage
}

// NewRow builds a Row from label/value pairs. Mainly useful for stub
// sources in tests.
func NewRow(symbol string, values map[string]interface{}) Row {
	m := make(map[string]json.RawMessage, len(values))
	for label, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		m[strings.ToLower(label)] = raw
	}
	return Row{Symbol: symbol, values: m}
}

// Has reports whether a column is present, matching the label
// case-insensitively.
func (r Row) Has(label string) bool {
	_, ok := r.values[strings.ToLower(label)]
	return ok
}

// Decimal returns the sanitized numeric value of a column. Missing columns
// and non-finite or unparseable values come back as the absent value, never
// as a sentinel number.
func (r Row) Decimal(label string) decimal.NullDecimal {
	raw, ok := r.values[strings.ToLower(label)]
	if !ok {
		return decimal.NullDecimal{}
	}
	return sanitizeNumeric(raw)
}

// String returns the string value of a column, or "" when absent or not a
// string.
func (r Row) String(label string) string {
	raw, ok := r.values[strings.ToLower(label)]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// sanitizeNumeric is the single place raw provider values become numbers.
// Null, non-finite and malformed values all map to the invalid NullDecimal.
func sanitizeNumeric(raw json.RawMessage) decimal.NullDecimal {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.NullDecimal{}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.NullDecimal{}
		}
		return decimal.NullDecimal{Decimal: decimal.NewFromFloat(f), Valid: true}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if d, err := decimal.NewFromString(s); err == nil {
			return decimal.NullDecimal{Decimal: d, Valid: true}
		}
	}
	return decimal.NullDecimal{}
}

// Client talks to the scanner endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a scanner client. An empty baseURL selects the
// production endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Scan executes one snapshot fetch and pairs each returned value array with
// the requested columns.
func (c *Client) Scan(ctx context.Context, req Request) ([]Row, error) {
	body := scanRequest{
		Filter:  req.Filters,
		Columns: make([]string, 0, len(req.Columns)),
		Sort:    req.Sort,
		Range:   []int{req.Range[0], req.Range[1]},
	}
	for _, col := range req.Columns {
		body.Columns = append(body.Columns, col.Name)
	}
	if len(req.Tickers) > 0 {
		body.Symbols = &scanSymbols{Tickers: req.Tickers}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scan", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build scan request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("scan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scan request returned status %d: %s", resp.StatusCode, string(snippet))
	}

	var decoded scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode scan response: %w", err)
	}

	rows := make([]Row, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		values := make(map[string]json.RawMessage, len(req.Columns))
		for i, col := range req.Columns {
			if i >= len(item.Values) {
				break
			}
			values[strings.ToLower(col.Label)] = item.Values[i]
		}
		rows = append(rows, Row{Symbol: item.Symbol, values: values})
	}
	return rows, nil
}
