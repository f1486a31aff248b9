package stream

import (
	"testing"
	"time"
)

func TestWindowedAggregation_SumOfThreeWithinOneSecond(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	w := NewWindowedAggregation("s", 1000, 5*time.Second, time.Second,
		[]AggregateSpec{{Function: AggSum, Column: "v", Alias: "total"}}, clock)

	w.Push(clock.now, Record{"v": 1})
	w.Push(clock.now, Record{"v": 2})
	w.Push(clock.now, Record{"v": 3})

	out := w.Slide()
	if out["total"] != float64(6) {
		t.Fatalf("expected total=6, got %v", out["total"])
	}
}

func TestWindowedAggregation_AvgOnEmptyWindowIsNull(t *testing.T) {
	w := NewWindowedAggregation("s", 100, time.Minute, time.Second,
		[]AggregateSpec{{Function: AggAvg, Column: "v", Alias: "avg_v"}}, nil)

	out := w.Slide()
	if out["avg_v"] != nil {
		t.Fatalf("expected avg on empty window to be null, got %v", out["avg_v"])
	}
}

func TestWindowedAggregation_CountOnEmptyWindowIsZero(t *testing.T) {
	w := NewWindowedAggregation("s", 100, time.Minute, time.Second,
		[]AggregateSpec{{Function: AggCount, Column: "v", Alias: "n"}}, nil)

	out := w.Slide()
	if out["n"] != 0 {
		t.Fatalf("expected count on empty window to be 0, got %v", out["n"])
	}
}

func TestWindowedAggregation_MinMax(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	w := NewWindowedAggregation("s", 100, time.Minute, time.Second, []AggregateSpec{
		{Function: AggMin, Column: "v", Alias: "min_v"},
		{Function: AggMax, Column: "v", Alias: "max_v"},
	}, clock)

	for _, v := range []int{5, 1, 9, 3} {
		w.Push(clock.now, Record{"v": v})
	}

	out := w.Slide()
	if out["min_v"] != float64(1) || out["max_v"] != float64(9) {
		t.Fatalf("expected min=1 max=9, got %v", out)
	}
}

func TestWindowedAggregation_LateArrivalDroppedAndCounted(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	w := NewWindowedAggregation("s", 100, time.Minute, time.Second,
		[]AggregateSpec{{Function: AggSum, Column: "v", Alias: "total"}}, clock)

	w.Push(clock.now, Record{"v": 10})
	accepted := w.Push(time.Unix(1, 0), Record{"v": 999})
	if accepted {
		t.Fatal("expected the far-earlier push to be rejected as a late arrival")
	}
	if w.LateCount() != 1 {
		t.Fatalf("expected late count 1, got %d", w.LateCount())
	}

	out := w.Slide()
	if out["total"] != float64(10) {
		t.Fatalf("late arrival should not be counted in the aggregate, got %v", out["total"])
	}
}
