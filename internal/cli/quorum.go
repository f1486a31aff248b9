package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/lakequery/internal/ports"
	"github.com/canonica-labs/lakequery/internal/quorum"
)

// newQuorumCmd mirrors newEngineCmd's shape: quorum operations run against
// a Store built directly from config, the same way `engine list` builds a
// router.DefaultRouter() locally rather than round-tripping through the
// gateway - the replicated store is a separate system from the SQL
// gateway, not one of its endpoints.
func (c *CLI) newQuorumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quorum",
		Short: "Replicated key/value store commands",
		Long:  `Inspect and operate the quorum-replicated key/value store.`,
	}

	cmd.AddCommand(c.newQuorumStatusCmd())
	cmd.AddCommand(c.newQuorumGetCmd())
	cmd.AddCommand(c.newQuorumPutCmd())

	return cmd
}

// newQuorumStore builds a quorum.Store from the CLI's loaded config,
// dialing one RedisNode per configured node address.
func (c *CLI) newQuorumStore() *quorum.Store {
	cfg := c.cfg.Quorum
	nodes := make([]ports.KVNode, 0, len(cfg.Nodes))
	for i, addr := range cfg.Nodes {
		nodes = append(nodes, quorum.NewRedisNode(fmt.Sprintf("node-%d", i), addr))
	}

	balancer := quorum.NewLoadBalancer(time.Hour, ports.SystemClock{})
	return quorum.NewStore(nodes, quorum.Config{
		ReadQuorum:  cfg.ReadQuorum,
		WriteQuorum: cfg.WriteQuorum,
	}, balancer, ports.SystemClock{}, nil)
}

func (c *CLI) operationTimeout() time.Duration {
	d, err := time.ParseDuration(c.cfg.Quorum.OperationTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

func (c *CLI) newQuorumStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show quorum store configuration and node roster",
		Long: `Display the configured replica nodes and read/write quorum sizes.

Example:
  lakectl quorum status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuorumStatus()
		},
	}
}

func (c *CLI) runQuorumStatus() error {
	cfg := c.cfg.Quorum

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"nodes":        cfg.Nodes,
			"read_quorum":  cfg.ReadQuorum,
			"write_quorum": cfg.WriteQuorum,
		})
	}

	c.println("Quorum Store")
	c.println("============")
	c.println("")
	c.printf("Read quorum:  %d\n", cfg.ReadQuorum)
	c.printf("Write quorum: %d\n", cfg.WriteQuorum)
	c.printf("Rebalance interval: %s\n", cfg.RebalanceInterval)
	c.println("")
	c.println("Nodes:")
	for i, n := range cfg.Nodes {
		c.printf("  node-%d  %s\n", i, n)
	}
	if len(cfg.Nodes) == 0 {
		c.println("  (none configured)")
	}
	return nil
}

func (c *CLI) newQuorumGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Read a key from the quorum store",
		Long: `Read a key's value, resolving it across the read quorum's nodes.

Example:
  lakectl quorum get session:42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuorumGet(args[0])
		},
	}
}

func (c *CLI) runQuorumGet(key string) error {
	store := c.newQuorumStore()
	ctx, cancel := context.WithTimeout(context.Background(), c.operationTimeout())
	defer cancel()

	result, err := store.Read(ctx, key)
	if err != nil {
		if c.jsonOutput {
			return c.outputJSON(map[string]interface{}{"success": false, "error": err.Error()})
		}
		c.errorf("Read failed: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"key":        key,
			"value":      string(result.Value),
			"consistent": result.Consistent,
			"ack_nodes":  result.AckNodes,
		})
	}

	c.printf("Value: %s\n", string(result.Value))
	c.printf("Consistent: %t\n", result.Consistent)
	c.printf("Acknowledging nodes: %v\n", result.AckNodes)
	return nil
}

func (c *CLI) newQuorumPutCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Write a key to the quorum store",
		Long: `Write (key, value) to the write quorum's nodes.

Example:
  lakectl quorum put session:42 '{"user":"alice"}' --ttl 5m`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuorumPut(args[0], args[1], ttl)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "expiry for the written key (0 means no expiry)")
	return cmd
}

func (c *CLI) runQuorumPut(key, value string, ttl time.Duration) error {
	store := c.newQuorumStore()
	ctx, cancel := context.WithTimeout(context.Background(), c.operationTimeout())
	defer cancel()

	result, err := store.Write(ctx, key, []byte(value), ttl)
	if err != nil {
		if c.jsonOutput {
			return c.outputJSON(map[string]interface{}{"success": false, "error": err.Error()})
		}
		c.errorf("Write failed: %v\n", err)
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"success":   true,
			"key":       key,
			"ack_nodes": result.AckNodes,
		})
	}

	c.printf("✓ Written to %d node(s): %v\n", len(result.AckNodes), result.AckNodes)
	return nil
}
