package autoplay

import (
	"fmt"
	"sort"
	"time"

	"cliploop/twitch"
)

// DurationBucket selects clips by length.
type DurationBucket string

const (
	// DurationAll matches every clip.
	DurationAll DurationBucket = "all"
	// DurationShort matches clips of 30 seconds or less.
	DurationShort DurationBucket = "short"
	// DurationMedium matches clips over 30 and up to 60 seconds.
	DurationMedium DurationBucket = "medium"
	// DurationLong matches clips over 60 seconds.
	DurationLong DurationBucket = "long"
)

// SortKey selects the ordering of a clip batch. All orders are descending;
// ties keep the catalog's original order.
type SortKey string

const (
	SortCreatedAt SortKey = "created_at"
	SortViews     SortKey = "views"
	SortDuration  SortKey = "duration"
)

// TimeWindow bounds how far back clips are fetched.
type TimeWindow string

const (
	Window24h TimeWindow = "24h"
	Window7d  TimeWindow = "7d"
	Window30d TimeWindow = "30d"
	Window180 TimeWindow = "180d"
	WindowAll TimeWindow = "all"
)

// Spec is the user's filter/sort/window selection. Changing any field
// invalidates the current queue and forces a rebuild; cursors obtained
// under one spec are never reused under another.
type Spec struct {
	Duration DurationBucket `json:"duration"`
	Sort     SortKey        `json:"sort"`
	Window   TimeWindow     `json:"window"`
}

// DefaultSpec mirrors the initial selection in the UI: every length,
// newest first, last 24 hours.
func DefaultSpec() Spec {
	return Spec{Duration: DurationAll, Sort: SortCreatedAt, Window: Window24h}
}

// Validate checks each field against its known values.
func (s Spec) Validate() error {
	switch s.Duration {
	case DurationAll, DurationShort, DurationMedium, DurationLong:
	default:
		return fmt.Errorf("unknown duration bucket %q", s.Duration)
	}
	switch s.Sort {
	case SortCreatedAt, SortViews, SortDuration:
	default:
		return fmt.Errorf("unknown sort key %q", s.Sort)
	}
	switch s.Window {
	case Window24h, Window7d, Window30d, Window180, WindowAll:
	default:
		return fmt.Errorf("unknown time window %q", s.Window)
	}
	return nil
}

// Contains reports whether a clip duration in seconds falls in the bucket.
func (b DurationBucket) Contains(seconds float64) bool {
	switch b {
	case DurationShort:
		return seconds <= 30
	case DurationMedium:
		return seconds > 30 && seconds <= 60
	case DurationLong:
		return seconds > 60
	default:
		return true
	}
}

// Bounds returns the started_at/ended_at pair for the window relative to
// now. ok is false for WindowAll, which carries no bounds.
func (w TimeWindow) Bounds(now time.Time) (start, end time.Time, ok bool) {
	var span time.Duration
	switch w {
	case Window24h:
		span = 24 * time.Hour
	case Window7d:
		span = 7 * 24 * time.Hour
	case Window30d:
		span = 30 * 24 * time.Hour
	case Window180:
		span = 180 * 24 * time.Hour
	default:
		return time.Time{}, time.Time{}, false
	}
	return now.Add(-span), now, true
}

// Apply filters a raw clip batch by the duration bucket, then orders it by
// the sort key. The input is never modified. Sorting is stable, so clips
// with equal keys keep their input order, and the whole function is
// deterministic and idempotent.
func (s Spec) Apply(clips []twitch.Clip) []twitch.Clip {
	out := make([]twitch.Clip, 0, len(clips))
	for _, clip := range clips {
		if s.Duration.Contains(clip.Duration) {
			out = append(out, clip)
		}
	}

	switch s.Sort {
	case SortViews:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ViewCount > out[j].ViewCount
		})
	case SortDuration:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Duration > out[j].Duration
		})
	case SortCreatedAt:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}

	return out
}
