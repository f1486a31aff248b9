package stream

import (
	"context"
	"time"
)

// Join is a hash-based equi-join between two streams' current windows,
// grounded on streaming.py's StreamJoin (hash the right window by
// right_key, probe with the left window, emit the merged dict per match).
// If either buffer is empty, no output. Swapping Left/Right relative to
// LeftKey/RightKey produces the same matched pairs, modulo row order.
type Join struct {
	StreamID string
	Left     *Buffer
	Right    *Buffer
	LeftKey  string
	RightKey string
}

// NewJoin constructs a Join over two existing buffers.
func NewJoin(streamID string, left, right *Buffer, leftKey, rightKey string) *Join {
	return &Join{
		StreamID: streamID,
		Left:     left,
		Right:    right,
		LeftKey:  leftKey,
		RightKey: rightKey,
	}
}

// Probe computes the current join output: right's window is hashed by
// RightKey, then each left record probes that hash table, emitting one
// merged record (left fields overlaid with right fields) per match.
func (j *Join) Probe() []Record {
	leftWindow := j.Left.Window()
	rightWindow := j.Right.Window()
	if len(leftWindow) == 0 || len(rightWindow) == 0 {
		return nil
	}

	hashTable := make(map[any][]Record, len(rightWindow))
	for _, r := range rightWindow {
		k := r[j.RightKey]
		hashTable[k] = append(hashTable[k], r)
	}

	var out []Record
	for _, l := range leftWindow {
		matches, ok := hashTable[l[j.LeftKey]]
		if !ok {
			continue
		}
		for _, r := range matches {
			merged := make(Record, len(l)+len(r))
			for k, v := range l {
				merged[k] = v
			}
			for k, v := range r {
				merged[k] = v
			}
			out = append(out, merged)
		}
	}
	return out
}

// Run drives the join's probe loop on a fixed yield cadence until ctx is
// cancelled, notifying sc's handlers with each matched row. Cancellation
// is cooperative: no final probe is flushed on cancel.
func (j *Join) Run(ctx context.Context, sc *Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, r := range j.Probe() {
				sc.Notify(j.StreamID, r)
			}
		}
	}
}
