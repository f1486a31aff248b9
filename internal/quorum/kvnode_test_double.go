package quorum

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/canonica-labs/lakequery/internal/ports"
)

// NewMiniredisNode starts an in-process miniredis server and returns a
// RedisNode wired to it, a stand-in for a real Redis server that keeps
// Redis's DUMP/RESTORE wire format. This package's own tests use
// NewMemoryNode instead. Callers must call the returned cleanup function
// when done.
func NewMiniredisNode(id string) (*RedisNode, func(), error) {
	srv, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	node := &RedisNode{
		id:     id,
		client: redis.NewClient(&redis.Options{Addr: srv.Addr()}),
	}
	return node, srv.Close, nil
}

// memoryNode is a dependency-free ports.KVNode double for tests that
// don't need Redis's DUMP/RESTORE wire format, only the store's quorum
// logic over Set/Get/Delete/Ping.
type memoryNode struct {
	id      string
	data    map[string][]byte
	healthy bool
}

// NewMemoryNode constructs an in-memory ports.KVNode double.
func NewMemoryNode(id string) ports.KVNode {
	return &memoryNode{id: id, data: make(map[string][]byte), healthy: true}
}

func (n *memoryNode) ID() string { return n.id }

func (n *memoryNode) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	cp := append([]byte(nil), value...)
	n.data[key] = cp
	return nil
}

func (n *memoryNode) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := n.data[key]
	return v, ok, nil
}

func (n *memoryNode) Delete(_ context.Context, key string) error {
	delete(n.data, key)
	return nil
}

func (n *memoryNode) Info(_ context.Context) (ports.NodeStats, error) {
	return ports.NodeStats{TotalKeys: int64(len(n.data)), LastUpdate: time.Now()}, nil
}

func (n *memoryNode) Dump(_ context.Context, key string) ([]byte, error) {
	v, ok := n.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (n *memoryNode) Restore(_ context.Context, key string, _ time.Duration, snapshot []byte) error {
	n.data[key] = append([]byte(nil), snapshot...)
	return nil
}

func (n *memoryNode) Ping(_ context.Context) error {
	if !n.healthy {
		return errUnhealthy
	}
	return nil
}

var errUnhealthy = &unhealthyError{}

type unhealthyError struct{}

func (*unhealthyError) Error() string { return "node is unhealthy" }
