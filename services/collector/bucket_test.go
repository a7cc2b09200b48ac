package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketStart(t *testing.T) {
	t.Parallel()

	instant := time.Date(2026, 2, 9, 10, 12, 34, 0, time.UTC)

	tests := []struct {
		name     string
		interval string
		want     time.Time
	}{
		{
			name:     "5 minutes",
			interval: "5",
			want:     time.Date(2026, 2, 9, 10, 10, 0, 0, time.UTC),
		},
		{
			name:     "60 minutes rounds to the hour",
			interval: "60",
			want:     time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "240 minutes aligns to day boundaries",
			interval: "240",
			want:     time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "720 minutes splits the day in two",
			interval: "720",
			want:     time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "daily truncates to UTC day start",
			interval: "1D",
			want:     time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "weekly truncates to Monday",
			interval: "1W",
			want:     time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), // 2026-02-09 is a Monday
		},
		{
			name:     "monthly truncates to the 1st",
			interval: "1M",
			want:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "unknown interval falls back to the instant",
			interval: "banana",
			want:     instant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BucketStart(instant, tt.interval)
			assert.True(t, tt.want.Equal(got), "expected %v, got %v", tt.want, got)
		})
	}
}

func TestBucketStart_WeeklyMidweek(t *testing.T) {
	t.Parallel()

	// 2026-02-12 is a Thursday; the bucket is the preceding Monday.
	instant := time.Date(2026, 2, 12, 23, 59, 59, 0, time.UTC)
	want := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	assert.True(t, want.Equal(BucketStart(instant, "1W")))
}

func TestBucketStart_Idempotent(t *testing.T) {
	t.Parallel()

	instant := time.Date(2026, 2, 9, 10, 12, 34, 0, time.UTC)
	for _, interval := range append(append([]string{}, SupportedIntervals...), "garbage") {
		once := BucketStart(instant, interval)
		twice := BucketStart(once, interval)
		assert.True(t, once.Equal(twice), "interval %s: %v != %v", interval, once, twice)
	}
}

func TestBucketStart_MinuteAlignment(t *testing.T) {
	t.Parallel()

	instant := time.Date(2026, 7, 3, 17, 43, 12, 0, time.UTC)
	dayStart := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)

	for _, interval := range []string{"5", "10", "15", "60", "120", "240", "360", "720"} {
		minutes := map[string]int{"5": 5, "10": 10, "15": 15, "60": 60, "120": 120, "240": 240, "360": 360, "720": 720}[interval]
		got := BucketStart(instant, interval)

		// Bucket start is never after the instant and never more than one
		// interval behind it.
		assert.False(t, got.After(instant), "interval %s", interval)
		assert.LessOrEqual(t, instant.Sub(got), time.Duration(minutes)*time.Minute, "interval %s", interval)

		// Aligned to day start plus a whole number of intervals.
		offset := int(got.Sub(dayStart) / time.Minute)
		assert.Zero(t, offset%minutes, "interval %s: offset %d", interval, offset)
	}
}
