package gateway

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/canonica-labs/lakequery/internal/adapters"
	"github.com/canonica-labs/lakequery/internal/adapters/duckdb"
	"github.com/canonica-labs/lakequery/internal/auth"
	"github.com/canonica-labs/lakequery/internal/capabilities"
	"github.com/canonica-labs/lakequery/internal/router"
	"github.com/canonica-labs/lakequery/internal/storage"
	"github.com/canonica-labs/lakequery/internal/tables"
)

// TestToken is the bearer token acceptance tests authenticate with against a
// Gateway built by NewTestGateway / NewTestGatewayWithTable.
const TestToken = "test-gateway-token"

// testRole is the role granted access in NewTestGatewayWithTable.
const testRole = "tester"

// NewTestGateway builds a Gateway wired to an in-memory repository and the
// local DuckDB adapter, with no tables registered and no permissions
// granted - exercising the deny-by-default path.
func NewTestGateway(t *testing.T) *Gateway {
	t.Helper()

	authenticator := auth.NewStaticTokenAuthenticator()
	authenticator.RegisterToken(TestToken, &auth.User{
		ID:    "test-user",
		Name:  "Test User",
		Roles: []string{testRole},
	})

	repo := storage.NewMockRepository()
	engineRouter := router.DefaultRouter()

	adapterRegistry := adapters.NewAdapterRegistry()
	adapterRegistry.Register(duckdb.NewAdapter())

	gw, err := NewGateway(authenticator, repo, engineRouter, adapterRegistry, Config{
		Version:        "test",
		ProductionMode: false,
	})
	if err != nil {
		t.Fatalf("gateway.NewTestGateway: %v", err)
	}
	return gw
}

// NewTestGatewayWithTable builds a Gateway like NewTestGateway, but also
// registers a virtual table with the given name, capabilities and
// constraints, grants the test user's role full access to it, and
// provisions a matching physical table in the DuckDB adapter so queries
// against it actually execute.
//
// name is expected to be schema-qualified ("schema.table") - the same
// convention virtual tables use elsewhere in canonica.
func NewTestGatewayWithTable(t *testing.T, name string, caps []string, constraints []string) *Gateway {
	t.Helper()

	gw := NewTestGateway(t)

	parsedCaps := make([]capabilities.Capability, 0, len(caps))
	for _, c := range caps {
		cap, err := capabilities.ParseCapability(c)
		if err != nil {
			t.Fatalf("gateway.NewTestGatewayWithTable: %v", err)
		}
		parsedCaps = append(parsedCaps, cap)
	}

	parsedConstraints := make([]capabilities.Constraint, 0, len(constraints))
	for _, c := range constraints {
		con, err := capabilities.ParseConstraint(c)
		if err != nil {
			t.Fatalf("gateway.NewTestGatewayWithTable: %v", err)
		}
		parsedConstraints = append(parsedConstraints, con)
	}

	vt := &tables.VirtualTable{
		Name:        name,
		Description: "test table",
		Sources: []tables.PhysicalSource{
			{Format: tables.FormatParquet, Location: "memory://" + name, Engine: "duckdb"},
		},
		Capabilities: parsedCaps,
		Constraints:  parsedConstraints,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := gw.repo.Create(ctx, vt); err != nil {
		t.Fatalf("gateway.NewTestGatewayWithTable: create table: %v", err)
	}

	for _, cap := range parsedCaps {
		gw.GrantAccess(testRole, name, cap)
	}

	schema, table, ok := strings.Cut(name, ".")
	if !ok {
		schema, table = "main", name
	}

	adapter, ok := gw.adapters.Get("duckdb")
	if !ok {
		t.Fatalf("gateway.NewTestGatewayWithTable: duckdb adapter not registered")
	}
	ddb, ok := adapter.(*duckdb.Adapter)
	if !ok {
		t.Fatalf("gateway.NewTestGatewayWithTable: duckdb adapter has unexpected type")
	}

	if err := ddb.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
		t.Fatalf("gateway.NewTestGatewayWithTable: create schema: %v", err)
	}
	if err := ddb.Exec(ctx, "CREATE TABLE IF NOT EXISTS "+schema+"."+table+" (id INTEGER)"); err != nil {
		t.Fatalf("gateway.NewTestGatewayWithTable: create table: %v", err)
	}

	return gw
}
