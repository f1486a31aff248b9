package quorum

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/canonica-labs/lakequery/internal/errors"
	"github.com/canonica-labs/lakequery/internal/ports"
)

// Config configures a Store's read/write quorum sizes. NewStore clamps
// each to len(nodes) if larger; no minimum is enforced.
type Config struct {
	ReadQuorum  int
	WriteQuorum int
}

// Store is the replicated key/value store: write/read quorum paths over
// a fixed set of ports.KVNode replicas, a dual node_keys/key_nodes index,
// and a load balancer used to pick target nodes and scale-down
// candidates. Grounded on quorum.py's QuorumManager.
type Store struct {
	mu          sync.RWMutex
	nodes       map[string]ports.KVNode
	nodeHealth  map[string]bool
	nodeKeys    map[string]map[string]bool // node ID -> keys
	keyNodes    map[string]map[string]bool // key -> node IDs
	readQuorum  int
	writeQuorum int
	balancer    *LoadBalancer
	clock       ports.Clock
	metrics     ports.MetricsSink
}

// NewStore constructs a Store over the given replicas.
func NewStore(nodes []ports.KVNode, cfg Config, balancer *LoadBalancer, clock ports.Clock, metrics ports.MetricsSink) *Store {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	s := &Store{
		nodes:       make(map[string]ports.KVNode, len(nodes)),
		nodeHealth:  make(map[string]bool, len(nodes)),
		nodeKeys:    make(map[string]map[string]bool),
		keyNodes:    make(map[string]map[string]bool),
		readQuorum:  cfg.ReadQuorum,
		writeQuorum: cfg.WriteQuorum,
		balancer:    balancer,
		clock:       clock,
		metrics:     metrics,
	}
	for _, n := range nodes {
		s.nodes[n.ID()] = n
		s.nodeHealth[n.ID()] = true
	}
	if s.readQuorum > len(nodes) {
		s.readQuorum = len(nodes)
	}
	if s.writeQuorum > len(nodes) {
		s.writeQuorum = len(nodes)
	}
	return s
}

// WriteResult reports the outcome of Write: the nodes that acknowledged
// the write, in acknowledgement order.
type WriteResult struct {
	AckNodes []string
}

// Write replicates (key, value) to writeQuorum nodes, preferring nodes
// that already hold the key (matching _get_target_nodes' "sticky"
// selection), then the healthiest remaining nodes by load-balancer score.
// Returns errors.CodeInsufficientNodes if fewer than WriteQuorum healthy
// nodes are reachable at all.
func (s *Store) Write(ctx context.Context, key string, value []byte, ttl time.Duration) (WriteResult, error) {
	targets := s.targetNodes(key, s.writeQuorum)
	if len(targets) < s.writeQuorum {
		return WriteResult{}, errors.NewInsufficientNodes(key, s.writeQuorum, len(targets))
	}

	var acked []string
	for _, nodeID := range targets {
		start := s.clock.Now()
		node := s.nodes[nodeID]
		if err := node.Set(ctx, key, value, ttl); err != nil {
			s.markErrorLocked(nodeID)
			continue
		}
		s.recordSuccessLocked(nodeID, key)
		s.balancer.RecordOperation(nodeID, "write", s.clock.Now().Sub(start))
		acked = append(acked, nodeID)
		if len(acked) >= s.writeQuorum {
			break
		}
	}

	if len(acked) < s.writeQuorum {
		return WriteResult{AckNodes: acked}, errors.NewInsufficientNodes(key, s.writeQuorum, len(acked))
	}
	return WriteResult{AckNodes: acked}, nil
}

// ReadResult reports the outcome of Read: the resolved value, the nodes
// that responded, and whether all responding nodes agreed.
type ReadResult struct {
	Value      []byte
	AckNodes   []string
	Consistent bool
}

// Read queries readQuorum nodes holding key and returns the majority
// value along with a consistency flag. When responses disagree, it
// triggers repair toward the majority value (best-effort, errors are
// swallowed the same way quorum.py's _resolve_inconsistency does).
func (s *Store) Read(ctx context.Context, key string) (ReadResult, error) {
	targets := s.targetNodes(key, s.readQuorum)
	if len(targets) < s.readQuorum {
		return ReadResult{}, errors.NewInsufficientNodes(key, s.readQuorum, len(targets))
	}

	var values [][]byte
	var acked []string
	for _, nodeID := range targets {
		start := s.clock.Now()
		node := s.nodes[nodeID]
		value, ok, err := node.Get(ctx, key)
		if err != nil || !ok {
			if err != nil {
				s.markErrorLocked(nodeID)
			}
			continue
		}
		values = append(values, value)
		acked = append(acked, nodeID)
		s.balancer.RecordOperation(nodeID, "read", s.clock.Now().Sub(start))
		if len(acked) >= s.readQuorum {
			break
		}
	}

	if len(acked) == 0 {
		return ReadResult{AckNodes: acked}, nil
	}

	consistent := true
	for _, v := range values {
		if string(v) != string(values[0]) {
			consistent = false
			break
		}
	}

	majority := majorityValue(values)
	if !consistent {
		s.resolveInconsistency(ctx, key, values, acked, majority)
	}
	return ReadResult{Value: majority, AckNodes: acked, Consistent: consistent}, nil
}

func majorityValue(values [][]byte) []byte {
	counts := make(map[string]int, len(values))
	best := ""
	bestCount := -1
	for _, v := range values {
		s := string(v)
		counts[s]++
		if counts[s] > bestCount {
			bestCount = counts[s]
			best = s
		}
	}
	return []byte(best)
}

func (s *Store) resolveInconsistency(ctx context.Context, key string, values [][]byte, nodeIDs []string, majority []byte) {
	for i, v := range values {
		if string(v) == string(majority) {
			continue
		}
		node, ok := s.nodes[nodeIDs[i]]
		if !ok {
			continue
		}
		_ = node.Set(ctx, key, majority, 0)
	}
}

// targetNodes selects count nodes for an operation on key: first healthy
// nodes already holding key, then the highest-scoring remaining healthy
// nodes, mirroring quorum.py's _get_target_nodes.
func (s *Store) targetNodes(key string, count int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var selected []string
	existing := s.keyNodes[key]
	for nodeID := range existing {
		if s.nodeHealth[nodeID] {
			selected = append(selected, nodeID)
		}
	}
	sort.Strings(selected)

	remaining := count - len(selected)
	if remaining <= 0 {
		return selected[:count]
	}

	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for nodeID, healthy := range s.nodeHealth {
		if !healthy || existing[nodeID] {
			continue
		}
		candidates = append(candidates, scored{id: nodeID, score: s.balancer.NodeScore(nodeID)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
	for i := 0; i < remaining && i < len(candidates); i++ {
		selected = append(selected, candidates[i].id)
	}
	return selected
}

func (s *Store) recordSuccessLocked(nodeID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nodeKeys[nodeID] == nil {
		s.nodeKeys[nodeID] = make(map[string]bool)
	}
	s.nodeKeys[nodeID][key] = true
	if s.keyNodes[key] == nil {
		s.keyNodes[key] = make(map[string]bool)
	}
	s.keyNodes[key][nodeID] = true
}

func (s *Store) markErrorLocked(nodeID string) {
	s.balancer.RecordError(nodeID)
}

// HealthCheck pings every node, updating tracked health and (on success)
// detailed node statistics, mirroring quorum.py's _periodic_health_check
// single pass (the 60s scheduling loop lives in Run).
func (s *Store) HealthCheck(ctx context.Context) {
	s.mu.RLock()
	nodes := make([]ports.KVNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	s.mu.RUnlock()

	for _, n := range nodes {
		healthy := n.Ping(ctx) == nil
		s.mu.Lock()
		s.nodeHealth[n.ID()] = healthy
		s.mu.Unlock()
		if !healthy {
			continue
		}
		if stats, err := n.Info(ctx); err == nil {
			s.balancer.UpdateStats(n.ID(), stats)
		}
	}
}

// Rebalance moves keys from nodes loaded more than 10% above the target
// per-node share to nodes loaded more than 10% below it, a no-op when
// every node is within ±10% of target (spec §8's idempotence property).
// Actual key movement is delegated to each node's Dump/Restore pair.
func (s *Store) Rebalance(ctx context.Context) {
	s.mu.Lock()
	type load struct {
		id    string
		count int
	}
	var loads []load
	var total int
	for nodeID, keys := range s.nodeKeys {
		if !s.nodeHealth[nodeID] {
			continue
		}
		loads = append(loads, load{id: nodeID, count: len(keys)})
		total += len(keys)
	}
	s.mu.Unlock()

	if len(loads) == 0 {
		return
	}
	target := float64(total) / float64(len(loads))

	var over, under []load
	for _, l := range loads {
		switch {
		case float64(l.count) > target*1.1:
			over = append(over, l)
		case float64(l.count) < target*0.9:
			under = append(under, l)
		}
	}

	for _, o := range over {
		excess := float64(o.count) - target
		for i := range under {
			if excess <= 0 {
				break
			}
			capacity := target - float64(under[i].count)
			toMove := excess
			if capacity < toMove {
				toMove = capacity
			}
			if toMove <= 0 {
				continue
			}
			s.moveKeys(ctx, o.id, under[i].id, int(toMove))
			excess -= toMove
			under[i].count += int(toMove)
		}
	}
}

func (s *Store) moveKeys(ctx context.Context, source, target string, count int) {
	s.mu.Lock()
	keys := make([]string, 0, count)
	for k := range s.nodeKeys[source] {
		if len(keys) >= count {
			break
		}
		keys = append(keys, k)
	}
	srcNode, srcOK := s.nodes[source]
	dstNode, dstOK := s.nodes[target]
	s.mu.Unlock()
	if !srcOK || !dstOK {
		return
	}

	for _, key := range keys {
		snapshot, err := srcNode.Dump(ctx, key)
		if err != nil || snapshot == nil {
			continue
		}
		if err := dstNode.Restore(ctx, key, 0, snapshot); err != nil {
			continue
		}
		s.mu.Lock()
		if s.nodeKeys[target] == nil {
			s.nodeKeys[target] = make(map[string]bool)
		}
		s.nodeKeys[target][key] = true
		if s.keyNodes[key] == nil {
			s.keyNodes[key] = make(map[string]bool)
		}
		s.keyNodes[key][target] = true
		s.mu.Unlock()
	}
}

// NodeKeys returns the set of keys tracked as held by nodeID, used by
// tests and the C7 balancer/scaler to audit the node_keys/key_nodes
// mirror invariant (spec §8 property 6).
func (s *Store) NodeKeys(nodeID string) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.nodeKeys[nodeID]))
	for k := range s.nodeKeys[nodeID] {
		out[k] = true
	}
	return out
}

// KeyNodes returns the set of node IDs tracked as holding key.
func (s *Store) KeyNodes(key string) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.keyNodes[key]))
	for n := range s.keyNodes[key] {
		out[n] = true
	}
	return out
}

// SetNodeHealth marks a node healthy/unhealthy directly, used by tests to
// simulate node failure without a real Ping.
func (s *Store) SetNodeHealth(nodeID string, healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeHealth[nodeID] = healthy
}

// Run drives periodic health checks (60s) and rebalancing (1h) until ctx
// is cancelled, mirroring quorum.py's _periodic_health_check/
// _periodic_rebalance tasks.
func (s *Store) Run(ctx context.Context) {
	healthTicker := time.NewTicker(60 * time.Second)
	rebalanceTicker := time.NewTicker(time.Hour)
	defer healthTicker.Stop()
	defer rebalanceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-healthTicker.C:
			s.HealthCheck(ctx)
		case <-rebalanceTicker.C:
			s.Rebalance(ctx)
		}
	}
}
