package stream

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/canonica-labs/lakequery/internal/ports"
)

// AggregateFunc names one of the five aggregate functions the spec allows
// on a windowed aggregation (sum, avg, min, max, count).
type AggregateFunc string

const (
	AggSum   AggregateFunc = "sum"
	AggAvg   AggregateFunc = "avg"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
	AggCount AggregateFunc = "count"
)

// AggregateSpec is one declared aggregate, e.g. `sum(v) AS total`.
type AggregateSpec struct {
	Function AggregateFunc
	Column   string
	Alias    string
}

// WindowedAggregation slides a window over one input stream, emitting one
// record per slide containing every declared aggregate computed over the
// window's current contents. Grounded on streaming.py's WindowedAggregation
// (window_size/slide_interval, _compute_aggregates' sum/avg/min/max/count
// handling, and the sleep(0.1)-driven loop, translated to a ticker loop).
type WindowedAggregation struct {
	StreamID      string
	SlideInterval time.Duration

	buf       *Buffer
	specs     []AggregateSpec
	clock     ports.Clock
	lateCount int64
}

// NewWindowedAggregation constructs an operator reading from a buffer with
// the given window/size parameters and emitting the declared aggregates.
func NewWindowedAggregation(streamID string, maxSize int, windowSize, slideInterval time.Duration, specs []AggregateSpec, clock ports.Clock) *WindowedAggregation {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &WindowedAggregation{
		StreamID:      streamID,
		SlideInterval: slideInterval,
		buf:           NewBuffer(maxSize, windowSize, clock),
		specs:         specs,
		clock:         clock,
	}
}

// Buffer exposes the underlying stream buffer, e.g. for direct pushes in
// tests.
func (w *WindowedAggregation) Buffer() *Buffer { return w.buf }

// Push adds r at event-time ts. A late arrival (older than the buffer's
// current window start) is dropped silently and counted; Push reports
// whether it was accepted.
func (w *WindowedAggregation) Push(ts time.Time, r Record) bool {
	accepted := w.buf.AddAt(ts, r)
	if !accepted {
		atomic.AddInt64(&w.lateCount, 1)
	}
	return accepted
}

// LateCount reports how many pushes were dropped as late arrivals.
func (w *WindowedAggregation) LateCount() int64 {
	return atomic.LoadInt64(&w.lateCount)
}

// Slide computes and returns one emission over the window's current
// contents; it does not consult or mutate SlideInterval timing — Run uses
// Slide on each tick, and tests can call it directly for determinism.
func (w *WindowedAggregation) Slide() Record {
	records := w.buf.Window()
	out := make(Record, len(w.specs))
	for _, spec := range w.specs {
		out[spec.Alias] = computeAggregate(spec, records)
	}
	return out
}

// Run drives the operator's slide loop until ctx is cancelled, notifying
// handlers registered on sc for this operator's StreamID after each slide.
// Cancellation is cooperative: Run exits promptly without flushing a final
// emission, per spec's "on cancel, operators flush nothing and exit".
func (w *WindowedAggregation) Run(ctx context.Context, sc *Context) error {
	interval := w.SlideInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sc.Notify(w.StreamID, w.Slide())
		}
	}
}

func computeAggregate(spec AggregateSpec, records []Record) any {
	if spec.Function == AggCount {
		return len(records)
	}

	values := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := numericValue(r[spec.Column]); ok {
			values = append(values, v)
		}
	}

	if len(values) == 0 {
		switch spec.Function {
		case AggSum:
			return 0
		default:
			return nil
		}
	}

	switch spec.Function {
	case AggSum:
		var total float64
		for _, v := range values {
			total += v
		}
		return total
	case AggAvg:
		var total float64
		for _, v := range values {
			total += v
		}
		return total / float64(len(values))
	case AggMin:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case AggMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	default:
		return nil
	}
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
