package autoplay

import "cliploop/twitch"

// AdvanceOutcome reports what Advance did.
type AdvanceOutcome int

const (
	// AdvanceEmpty means the queue holds no clips at all.
	AdvanceEmpty AdvanceOutcome = iota
	// Advanced means the position moved forward one clip.
	Advanced
	// NeedMore means the end of the fetched items was reached but the
	// catalog has more pages; the caller must append a page and retry.
	NeedMore
	// Wrapped means the catalog is exhausted and the position looped
	// back to the first clip.
	Wrapped
)

// Queue owns the ordered sequence of clips seen so far in one
// broadcaster/filter session, the current position, and the fetch cursor.
// Items are append-only within a session; a rebuild replaces the queue
// wholesale via Reset + AppendPage(replace).
//
// Queue is not safe for concurrent use; the session controller's event
// loop is its only caller.
type Queue struct {
	items     []twitch.Clip
	pos       int // -1 when empty
	cursor    string
	exhausted bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{pos: -1}
}

// Reset clears items, position, cursor and the exhausted flag.
func (q *Queue) Reset() {
	q.items = nil
	q.pos = -1
	q.cursor = ""
	q.exhausted = false
}

// AppendPage adds a fetched page. With replace, the items become exactly
// the page's clips and the position resets to the head; otherwise the
// clips are appended and the position is preserved. The cursor and
// exhausted flag always track the page's pagination state.
func (q *Queue) AppendPage(page twitch.ClipsPage, replace bool) {
	if replace {
		q.items = append([]twitch.Clip(nil), page.Clips...)
		if len(q.items) > 0 {
			q.pos = 0
		} else {
			q.pos = -1
		}
	} else {
		q.items = append(q.items, page.Clips...)
		if q.pos < 0 && len(q.items) > 0 {
			q.pos = 0
		}
	}
	q.cursor = page.Cursor
	q.exhausted = page.Cursor == ""
}

// Current returns the clip at the current position.
func (q *Queue) Current() (twitch.Clip, bool) {
	if q.pos < 0 || q.pos >= len(q.items) {
		return twitch.Clip{}, false
	}
	return q.items[q.pos], true
}

// Len returns the number of fetched clips.
func (q *Queue) Len() int { return len(q.items) }

// Position returns the current index, or -1 when empty.
func (q *Queue) Position() int { return q.pos }

// Cursor returns the opaque continuation token for the next page.
func (q *Queue) Cursor() string { return q.cursor }

// Exhausted reports whether the catalog confirmed no further pages exist.
func (q *Queue) Exhausted() bool { return q.exhausted }

// Advance moves to the next clip. At the end of the fetched items it
// either asks for more (catalog not exhausted) or wraps to the head (the
// loop is circular once the catalog is drained).
func (q *Queue) Advance() (twitch.Clip, AdvanceOutcome) {
	if len(q.items) == 0 {
		if !q.exhausted {
			return twitch.Clip{}, NeedMore
		}
		return twitch.Clip{}, AdvanceEmpty
	}

	if q.pos+1 < len(q.items) {
		q.pos++
		return q.items[q.pos], Advanced
	}

	if !q.exhausted {
		return twitch.Clip{}, NeedMore
	}

	q.pos = 0
	return q.items[0], Wrapped
}

// Retreat moves back one clip. At the head it is a no-op; there is no
// backward wraparound.
func (q *Queue) Retreat() (twitch.Clip, bool) {
	if q.pos <= 0 {
		return twitch.Clip{}, false
	}
	q.pos--
	return q.items[q.pos], true
}

// ShouldPrefetch reports whether the position has reached the given
// fraction of the fetched items and another page exists to fetch.
func (q *Queue) ShouldPrefetch(fraction float64) bool {
	if q.exhausted || len(q.items) == 0 || q.pos < 0 {
		return false
	}
	return float64(q.pos) >= float64(len(q.items))*fraction
}
