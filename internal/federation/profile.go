package federation

import (
	"sync"
	"time"
)

// ProfileStage is one named, strictly-ordered span within a query's
// execution profile. At most one stage is open at a time per query.
type ProfileStage struct {
	Name       string
	Type       string
	StartTime  time.Time
	EndTime    time.Time
	DurationMs float64
	Percentage float64
	Metrics    map[string]float64
}

// Profile is the per-query_id list of stages produced by QueryProfiler,
// grounded on monitoring.py's QueryProfiler.profiles entries.
type Profile struct {
	QueryID      string
	StartTime    time.Time
	EndTime      time.Time
	TotalTimeMs  float64
	Stages       []ProfileStage
	currentStage *ProfileStage
}

// QueryProfiler records per-stage timing for query executions and derives
// bottlenecks/suggestions from the recorded stages, grounded on
// monitoring.py's QueryProfiler (start_profiling/start_stage/end_stage/
// get_bottlenecks/get_optimization_suggestions).
type QueryProfiler struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	now      func() time.Time
}

// NewQueryProfiler constructs an empty profiler.
func NewQueryProfiler() *QueryProfiler {
	return &QueryProfiler{
		profiles: make(map[string]*Profile),
		now:      time.Now,
	}
}

// StartProfiling begins a new profile for queryID, discarding any
// previous profile under the same ID.
func (p *QueryProfiler) StartProfiling(queryID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[queryID] = &Profile{
		QueryID:   queryID,
		StartTime: p.now(),
	}
}

// EndProfiling closes out queryID's profile, closing any still-open
// stage first and computing each stage's percentage of total stage time.
func (p *QueryProfiler) EndProfiling(queryID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile, ok := p.profiles[queryID]
	if !ok {
		return
	}
	if profile.currentStage != nil {
		p.endStageLocked(profile)
	}
	profile.EndTime = p.now()
	profile.TotalTimeMs = float64(profile.EndTime.Sub(profile.StartTime).Microseconds()) / 1000.0

	var totalStageTime float64
	for _, s := range profile.Stages {
		totalStageTime += s.DurationMs
	}
	if totalStageTime > 0 {
		for i := range profile.Stages {
			profile.Stages[i].Percentage = profile.Stages[i].DurationMs / totalStageTime * 100
		}
	}
}

// StartStage opens a new stage for queryID, closing the previous open
// stage (if any) first, enforcing the strictly-ordered/at-most-one-open
// invariant.
func (p *QueryProfiler) StartStage(queryID, name, stageType string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile, ok := p.profiles[queryID]
	if !ok {
		return
	}
	if profile.currentStage != nil {
		p.endStageLocked(profile)
	}
	profile.currentStage = &ProfileStage{
		Name:      name,
		Type:      stageType,
		StartTime: p.now(),
		Metrics:   make(map[string]float64),
	}
}

// EndStage closes queryID's currently-open stage, if any.
func (p *QueryProfiler) EndStage(queryID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile, ok := p.profiles[queryID]
	if !ok {
		return
	}
	p.endStageLocked(profile)
}

func (p *QueryProfiler) endStageLocked(profile *Profile) {
	stage := profile.currentStage
	if stage == nil {
		return
	}
	stage.EndTime = p.now()
	stage.DurationMs = float64(stage.EndTime.Sub(stage.StartTime).Microseconds()) / 1000.0
	profile.Stages = append(profile.Stages, *stage)
	profile.currentStage = nil
}

// UpdateStageMetrics merges metrics into queryID's currently-open stage.
func (p *QueryProfiler) UpdateStageMetrics(queryID string, metrics map[string]float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile, ok := p.profiles[queryID]
	if !ok || profile.currentStage == nil {
		return
	}
	for k, v := range metrics {
		profile.currentStage.Metrics[k] = v
	}
}

// GetProfile returns a copy of queryID's profile, or nil if unknown.
func (p *QueryProfiler) GetProfile(queryID string) *Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	profile, ok := p.profiles[queryID]
	if !ok {
		return nil
	}
	clone := *profile
	clone.Stages = append([]ProfileStage(nil), profile.Stages...)
	return &clone
}

// Bottleneck names one stage responsible for more than 20% of a query's
// total stage time.
type Bottleneck struct {
	StageName  string
	StageType  string
	DurationMs float64
	Percentage float64
	Metrics    map[string]float64
}

// Bottlenecks identifies every stage in queryID's profile taking more
// than 20% of total stage time.
func (p *QueryProfiler) Bottlenecks(queryID string) []Bottleneck {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile, ok := p.profiles[queryID]
	if !ok || profile.TotalTimeMs <= 0 {
		return nil
	}

	var out []Bottleneck
	for _, s := range profile.Stages {
		if s.Percentage > 20 {
			out = append(out, Bottleneck{
				StageName:  s.Name,
				StageType:  s.Type,
				DurationMs: s.DurationMs,
				Percentage: s.Percentage,
				Metrics:    s.Metrics,
			})
		}
	}
	return out
}

// Suggestion is one actionable optimization hint derived from a
// bottleneck's stage type and metrics.
type Suggestion struct {
	Stage      string
	Issue      string
	Suggestion string
}

// OptimizationSuggestions derives suggestions from queryID's bottlenecks,
// grounded on monitoring.py's get_optimization_suggestions thresholds
// (large joins, high network transfer, high-memory aggregation).
func (p *QueryProfiler) OptimizationSuggestions(queryID string) []Suggestion {
	bottlenecks := p.Bottlenecks(queryID)
	var out []Suggestion
	for _, b := range bottlenecks {
		switch b.StageType {
		case "join":
			if b.Metrics["rows_processed"] > 1_000_000 {
				out = append(out, Suggestion{
					Stage:      b.StageName,
					Issue:      "large join operation",
					Suggestion: "consider adding indexes or partitioning data",
				})
			}
		case "network":
			if b.Metrics["bytes_transferred"] > 10*1024*1024 {
				out = append(out, Suggestion{
					Stage:      b.StageName,
					Issue:      "high network transfer",
					Suggestion: "consider data locality or compression",
				})
			}
		case "aggregate":
			if b.Metrics["memory_usage_mb"] > 1000 {
				out = append(out, Suggestion{
					Stage:      b.StageName,
					Issue:      "high memory usage in aggregation",
					Suggestion: "consider streaming aggregation",
				})
			}
		}
	}
	return out
}
