// Package sources wires the engine adapters in internal/adapters (and the
// federation coordinator's own AdapterRegistry/EngineAdapter interfaces
// defined in internal/federation/executor.go) behind the ports.SourceRegistry
// seam, so that code depending only on internal/ports never needs to import
// internal/federation or internal/adapters directly.
package sources

import (
	"context"
	"fmt"

	"github.com/canonica-labs/lakequery/internal/federation"
	"github.com/canonica-labs/lakequery/internal/ports"
)

// Registry adapts a federation.AdapterRegistry plus a federation.Monitor's
// tracked source metrics into a ports.SourceRegistry.
type Registry struct {
	adapters *federation.AdapterRegistry
	monitor  *federation.FederationMonitor
}

var _ ports.SourceRegistry = (*Registry)(nil)

// NewRegistry constructs a Registry. monitor may be nil, in which case
// List reports every registered adapter with a zeroed SourceDescriptor
// (unknown health defaults to healthy, per SourceDescriptor.Health's
// zero-value thresholds).
func NewRegistry(adapters *federation.AdapterRegistry, monitor *federation.FederationMonitor) *Registry {
	return &Registry{adapters: adapters, monitor: monitor}
}

// List reports every registered engine adapter as a ports.SourceDescriptor,
// filled in from the monitor's most recently reported metrics for that
// source ID when available.
func (r *Registry) List(ctx context.Context) ([]ports.SourceDescriptor, error) {
	names := r.adapters.List()
	out := make([]ports.SourceDescriptor, 0, len(names))
	for _, name := range names {
		desc := ports.SourceDescriptor{ID: name}
		if r.monitor != nil {
			if m, ok := r.monitor.SourceMetricsFor(name); ok {
				desc.AvgResponseTimeMs = m.AvgResponseTimeMs
				desc.ErrorRate = m.ErrorRate
				desc.ThroughputQPS = m.ThroughputQPS
				desc.ActiveConnections = m.ActiveConnections
				desc.CacheHitRatio = m.CacheHitRatio
				desc.ResourceUsage = m.ResourceUsage
			}
		}
		out = append(out, desc)
	}
	return out, nil
}

// Dispatch executes subPlan (a raw SQL string produced by the federation
// decomposer for this source) against the named engine adapter and
// collects its result rows. params is not read: none of the adapters in
// internal/adapters take bound parameters, so it is neither checked nor
// passed on.
func (r *Registry) Dispatch(ctx context.Context, sourceID string, subPlan any, params map[string]any) ([]map[string]any, error) {
	query, ok := subPlan.(string)
	if !ok {
		return nil, fmt.Errorf("sources: subPlan for %q must be a raw SQL string, got %T", sourceID, subPlan)
	}

	adapter, err := r.adapters.Get(sourceID)
	if err != nil {
		return nil, err
	}

	stream, err := adapter.Execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sources: dispatch to %q: %w", sourceID, err)
	}
	defer stream.Close()

	var rows []map[string]any
	for {
		row, err := stream.Next(ctx)
		if err != nil {
			return rows, fmt.Errorf("sources: reading result from %q: %w", sourceID, err)
		}
		if row == nil {
			break
		}
		rows = append(rows, map[string]any(row))
	}
	return rows, nil
}
