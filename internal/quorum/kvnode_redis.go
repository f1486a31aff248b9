package quorum

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/canonica-labs/lakequery/internal/ports"
)

// RedisNode is a ports.KVNode backed by a single Redis instance,
// grounded on quorum.py's per-node `aioredis.from_url(...)` client, with
// the async redis client swapped for github.com/redis/go-redis/v9's
// synchronous-looking (internally pooled) client.
type RedisNode struct {
	id     string
	client *redis.Client
}

// NewRedisNode constructs a RedisNode identified by id (conventionally
// "host:port") against the given address.
func NewRedisNode(id, addr string) *RedisNode {
	return &RedisNode{
		id: id,
		client: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

// ID returns the node's identifier.
func (n *RedisNode) ID() string { return n.id }

// Set stores value under key with an optional ttl (0 means no expiry).
func (n *RedisNode) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return n.client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves key's value. ok is false if the key is absent.
func (n *RedisNode) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := n.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Delete removes key.
func (n *RedisNode) Delete(ctx context.Context, key string) error {
	return n.client.Del(ctx, key).Err()
}

// Info reports node statistics. Redis's INFO command output is parsed
// loosely; fields this node cannot derive (CPU usage, error count) are
// left zero. LoadBalancer.UpdateStats stores the returned snapshot as is,
// so it also resets the error count that RecordError accumulated.
func (n *RedisNode) Info(ctx context.Context) (ports.NodeStats, error) {
	start := time.Now()
	if err := n.client.Ping(ctx).Err(); err != nil {
		return ports.NodeStats{}, err
	}
	latency := time.Since(start)

	dbSize, err := n.client.DBSize(ctx).Result()
	if err != nil {
		return ports.NodeStats{}, err
	}
	memInfo, err := n.client.Info(ctx, "memory").Result()
	if err != nil {
		return ports.NodeStats{}, err
	}

	return ports.NodeStats{
		TotalKeys:  dbSize,
		MemoryUsed: parseUsedMemory(memInfo),
		Latency:    latency,
		LastUpdate: time.Now(),
	}, nil
}

// Dump serializes key's value for transfer to another node, mirroring
// Redis's DUMP command used by quorum.py's _move_keys.
func (n *RedisNode) Dump(ctx context.Context, key string) ([]byte, error) {
	val, err := n.client.Dump(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

// Restore installs a DUMP-format snapshot under key with the given ttl.
func (n *RedisNode) Restore(ctx context.Context, key string, ttl time.Duration, snapshot []byte) error {
	return n.client.RestoreReplace(ctx, key, ttl, string(snapshot)).Err()
}

// Ping checks reachability.
func (n *RedisNode) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

func parseUsedMemory(info string) int64 {
	const marker = "used_memory:"
	idx := indexOf(info, marker)
	if idx < 0 {
		return 0
	}
	idx += len(marker)
	end := idx
	for end < len(info) && info[end] >= '0' && info[end] <= '9' {
		end++
	}
	var n int64
	for _, c := range info[idx:end] {
		n = n*10 + int64(c-'0')
	}
	return n
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
