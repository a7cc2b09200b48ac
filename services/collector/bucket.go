package collector

import (
	"strconv"
	"time"
)

// BucketStart truncates an instant down to the start of its interval
// bucket, in UTC. Minute intervals align to the UTC day start, so e.g.
// "240" always buckets at 0/4/8/12/16/20h regardless of when collection
// runs. Unknown interval identifiers fall back to the instant unchanged,
// which degrades bucketing but never fails a cycle.
func BucketStart(t time.Time, interval string) time.Time {
	t = t.UTC()

	switch interval {
	case "1D":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case "1W":
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// ISO week, Monday 00:00
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "1M":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	minutes, err := strconv.Atoi(interval)
	if err != nil || minutes <= 0 {
		return t
	}

	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	elapsed := int(t.Sub(dayStart) / time.Minute)
	rounded := (elapsed / minutes) * minutes
	return dayStart.Add(time.Duration(rounded) * time.Minute)
}
