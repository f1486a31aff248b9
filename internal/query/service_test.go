package query

import (
	"context"
	"testing"

	"github.com/canonica-labs/lakequery/internal/ports"
	"github.com/canonica-labs/lakequery/internal/queryfe"
	"github.com/canonica-labs/lakequery/internal/validator"
)

// fakeSources is a minimal ports.SourceRegistry double: it records every
// dispatched query and returns one fixed row per table.
type fakeSources struct {
	dispatched []string
}

var _ ports.SourceRegistry = (*fakeSources)(nil)

func (f *fakeSources) List(ctx context.Context) ([]ports.SourceDescriptor, error) { return nil, nil }

func (f *fakeSources) Dispatch(ctx context.Context, sourceID string, subPlan any, params map[string]any) ([]map[string]any, error) {
	f.dispatched = append(f.dispatched, sourceID)
	return []map[string]any{{"table": sourceID, "sql": subPlan}}, nil
}

func TestService_PlanAcceptsWellFormedSelect(t *testing.T) {
	svc := NewService(nil, nil, nil)

	result, err := svc.Plan(queryfe.DialectSQL, "SELECT id, name FROM users WHERE id > 1", validator.DefaultContext())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance, got validation results: %+v", result.Validation)
	}
	if result.Plan == nil {
		t.Fatal("expected a built, optimized plan")
	}
}

func TestService_ExecuteDispatchesSingleSourcePlan(t *testing.T) {
	sources := &fakeSources{}
	svc := &Service{parsers: queryfe.NewRegistry(), rules: validator.NewEngine(), sources: sources}

	_, rows, err := svc.Execute(context.Background(), queryfe.DialectSQL, "SELECT id FROM users", validator.DefaultContext())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(sources.dispatched) != 1 || sources.dispatched[0] != "users" {
		t.Fatalf("expected dispatch to 'users', got %v", sources.dispatched)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row back, got %d", len(rows))
	}
}

func TestService_ExecuteRejectsCrossSourceJoin(t *testing.T) {
	sources := &fakeSources{}
	svc := &Service{parsers: queryfe.NewRegistry(), rules: validator.NewEngine(), sources: sources}

	_, _, err := svc.Execute(context.Background(), queryfe.DialectSQL,
		"SELECT u.id FROM users u JOIN orders o ON u.id = o.user_id", validator.DefaultContext())
	if err == nil {
		t.Fatal("expected an error for a plan scanning more than one source")
	}
	if len(sources.dispatched) != 0 {
		t.Fatalf("expected no dispatch for a rejected cross-source join, got %v", sources.dispatched)
	}
}

func TestService_PlanReportsSyntaxErrorWithoutPanicking(t *testing.T) {
	svc := NewService(nil, nil, nil)

	if _, err := svc.Plan(queryfe.DialectSQL, "SELECT FROM", validator.DefaultContext()); err == nil {
		t.Fatal("expected a parse error for malformed SQL")
	}
}
