package federation

import (
	"testing"
	"time"
)

func newTestProfiler(start time.Time) (*QueryProfiler, *time.Time) {
	p := NewQueryProfiler()
	clock := start
	p.now = func() time.Time { return clock }
	return p, &clock
}

func TestQueryProfiler_StagesAreOrderedAndPercentaged(t *testing.T) {
	p, clock := newTestProfiler(time.Unix(0, 0))
	p.StartProfiling("q1")

	p.StartStage("q1", "scan", "scan")
	*clock = clock.Add(100 * time.Millisecond)
	p.EndStage("q1")

	p.StartStage("q1", "join", "join")
	*clock = clock.Add(300 * time.Millisecond)
	p.EndStage("q1")

	p.EndProfiling("q1")

	profile := p.GetProfile("q1")
	if len(profile.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(profile.Stages))
	}
	if profile.Stages[0].Name != "scan" || profile.Stages[1].Name != "join" {
		t.Fatalf("expected stages in start order, got %v", profile.Stages)
	}
	if profile.Stages[1].Percentage <= profile.Stages[0].Percentage {
		t.Fatalf("expected the longer join stage to have the larger percentage, got %v", profile.Stages)
	}
}

func TestQueryProfiler_StartStageClosesPreviousOpenStage(t *testing.T) {
	p, clock := newTestProfiler(time.Unix(0, 0))
	p.StartProfiling("q1")

	p.StartStage("q1", "scan", "scan")
	*clock = clock.Add(50 * time.Millisecond)
	p.StartStage("q1", "join", "join") // should auto-close "scan"
	*clock = clock.Add(50 * time.Millisecond)
	p.EndProfiling("q1")

	profile := p.GetProfile("q1")
	if len(profile.Stages) != 2 {
		t.Fatalf("expected the previous stage to be auto-closed, got %d stages", len(profile.Stages))
	}
}

func TestQueryProfiler_BottlenecksOver20Percent(t *testing.T) {
	p, clock := newTestProfiler(time.Unix(0, 0))
	p.StartProfiling("q1")

	p.StartStage("q1", "scan", "scan")
	*clock = clock.Add(10 * time.Millisecond)
	p.EndStage("q1")

	p.StartStage("q1", "join", "join")
	p.UpdateStageMetrics("q1", map[string]float64{"rows_processed": 2_000_000})
	*clock = clock.Add(90 * time.Millisecond)
	p.EndStage("q1")

	p.EndProfiling("q1")

	bottlenecks := p.Bottlenecks("q1")
	if len(bottlenecks) != 1 || bottlenecks[0].StageName != "join" {
		t.Fatalf("expected the join stage as the sole bottleneck, got %v", bottlenecks)
	}

	suggestions := p.OptimizationSuggestions("q1")
	if len(suggestions) != 1 || suggestions[0].Stage != "join" {
		t.Fatalf("expected a large-join suggestion, got %v", suggestions)
	}
}
