package federation

import (
	"sync"
	"time"
)

// QueryMetrics tracks one federated query's execution, mirroring the
// Query Metrics lifecycle: created on StartQuery, mutated by operators via
// UpdateQueryMetrics, finalized by EndQuery, then moved into a rolling
// 24h history and eventually discarded.
type QueryMetrics struct {
	QueryID              string
	StartTime            time.Time
	EndTime              time.Time
	ExecutionTimeMs      float64
	CPUUsagePercent      float64
	MemoryUsageMB        float64
	IOReads              int64
	IOWrites             int64
	NetworkBytesSent     int64
	NetworkBytesReceived int64
	CacheHits            int64
	CacheMisses          int64
	ErrorCount           int64
	SourceMetrics        map[string]map[string]float64
	Errors               []string
}

// SourceMetrics is one federated backend's recent health/throughput
// snapshot, the Go shape of ports.SourceDescriptor plus the bits the
// monitor itself tracks incrementally.
type SourceMetrics struct {
	SourceID          string
	AvgResponseTimeMs float64
	ErrorRate         float64
	ThroughputQPS     float64
	ActiveConnections int
	CacheHitRatio     float64
	ResourceUsage     map[string]float64
}

// QueryMetricsUpdate is the set of deltas UpdateQueryMetrics can apply;
// zero values are treated as "no change" for the running totals and "no
// change" for the gauges (CPU/memory), matching the teacher-era counters'
// accumulate-vs-overwrite split.
type QueryMetricsUpdate struct {
	CPUUsagePercent      *float64
	MemoryUsageMB        *float64
	IOReads              int64
	IOWrites             int64
	NetworkBytesSent     int64
	NetworkBytesReceived int64
	CacheHits            int64
	CacheMisses          int64
	Errors               int64
	SourceMetrics        map[string]map[string]float64
}

// FederationMonitor tracks in-flight and historical federated query
// metrics plus per-source health, grounded on
// original_source/.../query/federation/monitoring.py's FederationMonitor
// (asyncio.Lock there becomes a plain sync.Mutex here — there is no
// cooperative event loop to yield into).
type FederationMonitor struct {
	mu            sync.Mutex
	active        map[string]*QueryMetrics
	sourceMetrics map[string]*SourceMetrics
	history       []*QueryMetrics
	now           func() time.Time
}

// NewFederationMonitor constructs an empty monitor.
func NewFederationMonitor() *FederationMonitor {
	return &FederationMonitor{
		active:        make(map[string]*QueryMetrics),
		sourceMetrics: make(map[string]*SourceMetrics),
		now:           time.Now,
	}
}

// StartQuery begins tracking queryID.
func (m *FederationMonitor) StartQuery(queryID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[queryID] = &QueryMetrics{
		QueryID:       queryID,
		StartTime:     m.now(),
		SourceMetrics: make(map[string]map[string]float64),
	}
}

// EndQuery finalizes queryID's metrics and moves it into history, trimming
// entries older than 24h. It is a no-op if queryID is not active.
func (m *FederationMonitor) EndQuery(queryID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics, ok := m.active[queryID]
	if !ok {
		return
	}
	metrics.EndTime = m.now()
	metrics.ExecutionTimeMs = float64(metrics.EndTime.Sub(metrics.StartTime).Microseconds()) / 1000.0
	delete(m.active, queryID)
	m.history = append(m.history, metrics)
	m.trimHistoryLocked()
}

func (m *FederationMonitor) trimHistoryLocked() {
	cutoff := m.now().Add(-24 * time.Hour)
	kept := m.history[:0]
	for _, q := range m.history {
		if !q.StartTime.Before(cutoff) {
			kept = append(kept, q)
		}
	}
	m.history = kept
}

// UpdateQueryMetrics applies an incremental update to an active query's
// metrics. It is a no-op if queryID is not active.
func (m *FederationMonitor) UpdateQueryMetrics(queryID string, u QueryMetricsUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics, ok := m.active[queryID]
	if !ok {
		return
	}
	if u.CPUUsagePercent != nil {
		metrics.CPUUsagePercent = *u.CPUUsagePercent
	}
	if u.MemoryUsageMB != nil {
		metrics.MemoryUsageMB = *u.MemoryUsageMB
	}
	metrics.IOReads += u.IOReads
	metrics.IOWrites += u.IOWrites
	metrics.NetworkBytesSent += u.NetworkBytesSent
	metrics.NetworkBytesReceived += u.NetworkBytesReceived
	metrics.CacheHits += u.CacheHits
	metrics.CacheMisses += u.CacheMisses
	metrics.ErrorCount += u.Errors

	for sourceID, data := range u.SourceMetrics {
		if _, ok := metrics.SourceMetrics[sourceID]; !ok {
			metrics.SourceMetrics[sourceID] = make(map[string]float64)
		}
		for k, v := range data {
			metrics.SourceMetrics[sourceID][k] = v
		}
	}
}

// UpdateSourceMetrics replaces the tracked snapshot for sourceID.
func (m *FederationMonitor) UpdateSourceMetrics(sourceID string, s SourceMetrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.SourceID = sourceID
	m.sourceMetrics[sourceID] = &s
}

// SourceMetricsFor returns a snapshot of the tracked metrics for sourceID,
// or ok=false if nothing has been reported for it yet.
func (m *FederationMonitor) SourceMetricsFor(sourceID string) (SourceMetrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sourceMetrics[sourceID]
	if !ok {
		return SourceMetrics{}, false
	}
	return *s, true
}

// TrackedSourceIDs returns the IDs of every source with at least one
// reported metrics snapshot.
func (m *FederationMonitor) TrackedSourceIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sourceMetrics))
	for id := range m.sourceMetrics {
		ids = append(ids, id)
	}
	return ids
}

// QueryMetrics returns the metrics for an active query, or nil if it is
// not currently tracked.
func (m *FederationMonitor) QueryMetrics(queryID string) *QueryMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[queryID]
}

// ActiveQueries returns a snapshot of all currently active queries.
func (m *FederationMonitor) ActiveQueries() []*QueryMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*QueryMetrics, 0, len(m.active))
	for _, q := range m.active {
		out = append(out, q)
	}
	return out
}

// HistoricalMetrics returns history entries whose StartTime falls within
// [start, end]. A zero start or end is treated as unbounded.
func (m *FederationMonitor) HistoricalMetrics(start, end time.Time) []*QueryMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*QueryMetrics
	for _, q := range m.history {
		if !start.IsZero() && q.StartTime.Before(start) {
			continue
		}
		if !end.IsZero() && q.StartTime.After(end) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// PerformanceSummary aggregates the last hour of history plus the
// current per-source snapshots.
type PerformanceSummary struct {
	AvgExecutionTimeMs float64
	ErrorRate          float64
	CacheHitRatio      float64
	QPS                float64
	SourceStats        map[string]SourceMetrics
}

// PerformanceSummary computes aggregate stats over the last hour of
// finished queries.
func (m *FederationMonitor) PerformanceSummary() PerformanceSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := m.historicalMetricsLocked(m.now().Add(-time.Hour), time.Time{})
	summary := PerformanceSummary{SourceStats: make(map[string]SourceMetrics)}
	for id, s := range m.sourceMetrics {
		summary.SourceStats[id] = *s
	}
	if len(recent) == 0 {
		return summary
	}

	var totalExec float64
	var execCount int
	var totalErrors, totalHits, totalAttempts int64
	for _, q := range recent {
		if q.ExecutionTimeMs > 0 || !q.EndTime.IsZero() {
			totalExec += q.ExecutionTimeMs
			execCount++
		}
		totalErrors += q.ErrorCount
		totalHits += q.CacheHits
		totalAttempts += q.CacheHits + q.CacheMisses
	}
	if execCount > 0 {
		summary.AvgExecutionTimeMs = totalExec / float64(execCount)
	}
	summary.ErrorRate = float64(totalErrors) / float64(len(recent))
	if totalAttempts > 0 {
		summary.CacheHitRatio = float64(totalHits) / float64(totalAttempts)
	}
	summary.QPS = float64(len(recent)) / 3600.0
	return summary
}

func (m *FederationMonitor) historicalMetricsLocked(start, end time.Time) []*QueryMetrics {
	var out []*QueryMetrics
	for _, q := range m.history {
		if !start.IsZero() && q.StartTime.Before(start) {
			continue
		}
		if !end.IsZero() && q.StartTime.After(end) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// SourceHealth classifies every tracked source using the same thresholds
// as ports.SourceDescriptor.Health.
func (m *FederationMonitor) SourceHealth() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	health := make(map[string]string, len(m.sourceMetrics))
	for id, s := range m.sourceMetrics {
		switch {
		case s.ErrorRate > 0.10:
			health[id] = "unhealthy"
		case s.ErrorRate > 0.01 || s.AvgResponseTimeMs > 1000:
			health[id] = "degraded"
		default:
			health[id] = "healthy"
		}
	}
	return health
}
