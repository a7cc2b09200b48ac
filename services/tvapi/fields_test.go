package tvapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithInterval(t *testing.T) {
	t.Parallel()

	qualified := FieldOpen.WithInterval("5")
	assert.Equal(t, "open|5", qualified.Name)
	assert.Equal(t, "Open (5)", qualified.Label)

	// The native interval is the unqualified field.
	assert.Equal(t, FieldOpen, FieldOpen.WithInterval(NativeInterval))
	assert.Equal(t, FieldOpen, FieldOpen.WithInterval(""))

	weekly := FieldChange.WithInterval("1W")
	assert.Equal(t, "change|1W", weekly.Name)
	assert.Equal(t, "Change % (1W)", weekly.Label)
}

func TestNewFieldTable(t *testing.T) {
	t.Parallel()

	table, err := NewFieldTable([]string{"5", "60", "1D"}, FieldOpen, FieldPrice)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "60", "1D"}, table.Intervals())

	field, ok := table.Lookup(FieldOpen, "5")
	require.True(t, ok)
	assert.Equal(t, "open|5", field.Name)

	field, ok = table.Lookup(FieldPrice, "1D")
	require.True(t, ok)
	assert.Equal(t, "close", field.Name)
	assert.Equal(t, "Price", field.Label)

	_, ok = table.Lookup(FieldOpen, "120")
	assert.False(t, ok, "interval outside the table must miss")

	_, ok = table.Lookup(FieldVolume, "5")
	assert.False(t, ok, "field outside the table must miss")
}

func TestNewFieldTable_RejectsUnknownInterval(t *testing.T) {
	t.Parallel()

	_, err := NewFieldTable([]string{"5", "7"}, FieldOpen)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"7"`)
}
