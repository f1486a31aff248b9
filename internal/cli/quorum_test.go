package cli

import (
	"context"
	"testing"
	"time"

	"github.com/canonica-labs/lakequery/internal/config"
	"github.com/canonica-labs/lakequery/internal/ports"
	"github.com/canonica-labs/lakequery/internal/quorum"
)

// TestCLI_QuorumStoreRoundTrip verifies a Store built the way
// newQuorumStore builds it (in-memory nodes standing in for Redis) can
// write then read back a key, matching what `lakectl quorum put` followed
// by `lakectl quorum get` exercises end to end.
func TestCLI_QuorumStoreRoundTrip(t *testing.T) {
	nodes := []ports.KVNode{
		quorum.NewMemoryNode("node-0"),
		quorum.NewMemoryNode("node-1"),
		quorum.NewMemoryNode("node-2"),
	}
	balancer := quorum.NewLoadBalancer(time.Hour, ports.SystemClock{})
	store := quorum.NewStore(nodes, quorum.Config{ReadQuorum: 2, WriteQuorum: 2}, balancer, ports.SystemClock{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := store.Write(ctx, "session:1", []byte("alice"), 0); err != nil {
		t.Fatalf("write: %v", err)
	}

	result, err := store.Read(ctx, "session:1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(result.Value) != "alice" {
		t.Errorf("expected value 'alice', got %q", result.Value)
	}
	if !result.Consistent {
		t.Error("expected read to be consistent across replicas")
	}
}

// TestCLI_OperationTimeoutFallsBackOnBadDuration verifies an unparsable
// configured timeout falls back to a sane default instead of producing a
// zero or negative context deadline.
func TestCLI_OperationTimeoutFallsBackOnBadDuration(t *testing.T) {
	c := &CLI{cfg: config.DefaultConfig()}
	c.cfg.Quorum.OperationTimeout = "not-a-duration"

	if got := c.operationTimeout(); got != 2*time.Second {
		t.Errorf("expected fallback of 2s, got %s", got)
	}
}

// TestCLI_OperationTimeoutUsesConfiguredValue verifies a valid configured
// timeout is honored rather than overridden by the fallback.
func TestCLI_OperationTimeoutUsesConfiguredValue(t *testing.T) {
	c := &CLI{cfg: config.DefaultConfig()}
	c.cfg.Quorum.OperationTimeout = "500ms"

	if got := c.operationTimeout(); got != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %s", got)
	}
}
