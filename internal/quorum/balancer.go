// Package quorum implements the replicated key/value store (spec §4.6)
// and its supporting load balancer and auto-scaler (spec §4.7), grounded
// on original_source/.../storage/quorum.py's QuorumManager/LoadBalancer/
// AutoScaler/ScalingPredictor. The teacher repo has no quorum/replication
// layer of its own; this package follows the teacher's general style
// (mutex-guarded maps, constructor + small method set) while the actual
// domain logic is learned from the Python original.
package quorum

import (
	"sync"
	"time"

	"github.com/canonica-labs/lakequery/internal/ports"
)

// operationSample is one timed operation recorded against a node, kept in
// a rolling window for later load analysis.
type operationSample struct {
	at        time.Time
	operation string
	duration  time.Duration
}

// LoadBalancer tracks per-node health/timing statistics and derives a
// health score used to pick target nodes and scale-down candidates.
// Grounded on quorum.py's LoadBalancer.
type LoadBalancer struct {
	mu             sync.Mutex
	windowSize     time.Duration
	nodeStats      map[string]ports.NodeStats
	operationTimes map[string][]operationSample
	clock          ports.Clock
}

// NewLoadBalancer constructs a LoadBalancer with the given rolling
// window (the Python default is 3600s).
func NewLoadBalancer(windowSize time.Duration, clock ports.Clock) *LoadBalancer {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &LoadBalancer{
		windowSize:     windowSize,
		nodeStats:      make(map[string]ports.NodeStats),
		operationTimes: make(map[string][]operationSample),
		clock:          clock,
	}
}

// RecordOperation appends a timed operation sample for nodeID and prunes
// samples older than the rolling window.
func (b *LoadBalancer) RecordOperation(nodeID, operation string, duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.operationTimes[nodeID] = append(b.operationTimes[nodeID], operationSample{
		at: now, operation: operation, duration: duration,
	})
	b.cleanupLocked(now)
}

func (b *LoadBalancer) cleanupLocked(now time.Time) {
	cutoff := now.Add(-b.windowSize)
	for nodeID, samples := range b.operationTimes {
		kept := samples[:0]
		for _, s := range samples {
			if s.at.After(cutoff) {
				kept = append(kept, s)
			}
		}
		b.operationTimes[nodeID] = kept
	}
}

// UpdateStats replaces the tracked statistics snapshot for nodeID.
func (b *LoadBalancer) UpdateStats(nodeID string, stats ports.NodeStats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats.LastUpdate = b.clock.Now()
	b.nodeStats[nodeID] = stats
}

// RecordError increments nodeID's tracked error count by one.
func (b *LoadBalancer) RecordError(nodeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := b.nodeStats[nodeID]
	stats.ErrorCount++
	b.nodeStats[nodeID] = stats
}

// NodeScore computes the load balancer score for nodeID:
// 0.4·(1/(1+latency)) + 0.4·(1/(1+error_count)) + 0.2·(1 − cpu_usage/100).
// Unknown nodes score 0.
func (b *LoadBalancer) NodeScore(nodeID string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats, ok := b.nodeStats[nodeID]
	if !ok {
		return 0
	}
	latencyScore := 1.0 / (1.0 + stats.Latency.Seconds())
	errorScore := 1.0 / (1.0 + float64(stats.ErrorCount))
	loadScore := 1.0 - stats.CPUUsage/100.0
	return 0.4*latencyScore + 0.4*errorScore + 0.2*loadScore
}

// Stats returns a snapshot of a node's tracked statistics.
func (b *LoadBalancer) Stats(nodeID string) (ports.NodeStats, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.nodeStats[nodeID]
	return s, ok
}

// AllStats returns a copy of every tracked node's statistics, keyed by
// node ID.
func (b *LoadBalancer) AllStats() map[string]ports.NodeStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]ports.NodeStats, len(b.nodeStats))
	for k, v := range b.nodeStats {
		out[k] = v
	}
	return out
}
