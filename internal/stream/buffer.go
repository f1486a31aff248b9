// Package stream implements the cooperatively-scheduled streaming engine
// (spec §4.4): a bounded buffer with joint size/age eviction, windowed
// aggregation, and hash-based stream join, all driven by an Engine that
// runs each registered operator in its own goroutine. Grounded on the original Python executor's
// StreamBuffer/StreamingContext/WindowedAggregation/StreamJoin
// (query/executor/streaming.py), generalized from asyncio tasks cooperating
// via `await asyncio.sleep(0.1)` to goroutines cooperating via
// golang.org/x/sync/errgroup and a time.Ticker yield.
package stream

import (
	"sync"
	"time"

	"github.com/canonica-labs/lakequery/internal/ports"
)

// Record is one streamed row. Field types are left as any to match the
// dynamic, schema-less records documents/aggregates produce.
type Record map[string]any

type entry struct {
	ts     time.Time
	record Record
}

// Buffer is a bounded, time-windowed FIFO of records (spec's Stream
// Buffer). Adding a record evicts, in order, anything older than
// WindowSize and anything beyond MaxSize, oldest first.
type Buffer struct {
	mu         sync.Mutex
	items      []entry
	maxSize    int
	windowSize time.Duration
	clock      ports.Clock
}

// NewBuffer constructs a Buffer. A nil clock defaults to ports.SystemClock.
func NewBuffer(maxSize int, windowSize time.Duration, clock ports.Clock) *Buffer {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Buffer{
		maxSize:    maxSize,
		windowSize: windowSize,
		clock:      clock,
	}
}

// Add timestamps r with the buffer's clock, appends it, then evicts
// expired and over-capacity entries from the front (FIFO).
func (b *Buffer) Add(r Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.items = append(b.items, entry{ts: now, record: r})
	b.evictLocked(now)
}

func (b *Buffer) evictLocked(now time.Time) {
	start := 0
	for start < len(b.items) && now.Sub(b.items[start].ts) > b.windowSize {
		start++
	}
	b.items = b.items[start:]

	if b.maxSize > 0 && len(b.items) > b.maxSize {
		b.items = b.items[len(b.items)-b.maxSize:]
	}
}

// AddAt inserts r with an explicit event-time timestamp, used by operators
// that need to detect late arrivals (spec: "late arrivals, ts < window
// start, are dropped silently and counted"). It returns false without
// inserting when ts is older than the buffer's current window start.
func (b *Buffer) AddAt(ts time.Time, r Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.evictLocked(now)
	if len(b.items) > 0 && ts.Before(b.items[0].ts) {
		return false
	}
	b.items = append(b.items, entry{ts: ts, record: r})
	b.evictLocked(now)
	return true
}

// Window returns a snapshot of the records currently within the window,
// oldest first, after applying eviction as of now.
func (b *Buffer) Window() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.evictLocked(b.clock.Now())
	out := make([]Record, len(b.items))
	for i, e := range b.items {
		out[i] = e.record
	}
	return out
}

// WindowStart returns the oldest timestamp remaining in the window after
// eviction, used to decide whether a late-arriving record should be
// dropped. The second return is false when the buffer is empty.
func (b *Buffer) WindowStart() (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.evictLocked(b.clock.Now())
	if len(b.items) == 0 {
		return time.Time{}, false
	}
	return b.items[0].ts, true
}

// Len reports the number of records currently retained.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictLocked(b.clock.Now())
	return len(b.items)
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
}
