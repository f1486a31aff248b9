// Package query composes the dialect-agnostic front end (internal/queryfe),
// the rule engine (internal/validator), and the logical optimizer
// (internal/optimizer) into the parse -> validate -> optimize -> dispatch
// pipeline spec §2's data flow describes: "parse SQL/doc query, validate
// against schema/permissions, optimize the logical plan, dispatch to the
// source registry." A plan that scans more than one table names a
// cross-source join, which is internal/federation's job, not this
// package's — Execute reports that case as an error rather than silently
// running the query against one source.
package query

import (
	"context"
	"fmt"

	"github.com/canonica-labs/lakequery/internal/optimizer"
	"github.com/canonica-labs/lakequery/internal/ports"
	"github.com/canonica-labs/lakequery/internal/queryfe"
	"github.com/canonica-labs/lakequery/internal/validator"
)

// PlanResult is the outcome of Plan: a parsed, validated, and (if
// accepted) optimized query.
type PlanResult struct {
	AST        queryfe.Node
	Validation []validator.Result
	Accepted   bool
	Plan       optimizer.Plan
	Applied    []string
}

// Service wires the front-end parser registry and rule engine into one
// pipeline, dispatching accepted single-source plans through a
// ports.SourceRegistry.
type Service struct {
	parsers *queryfe.Registry
	rules   *validator.Engine
	sources ports.SourceRegistry
}

// NewService builds a Service. sources may be nil; Execute then plans the
// query and returns an error instead of dispatching it.
func NewService(parsers *queryfe.Registry, rules *validator.Engine, sources ports.SourceRegistry) *Service {
	if parsers == nil {
		parsers = queryfe.NewRegistry()
	}
	if rules == nil {
		rules = validator.NewEngine()
	}
	return &Service{parsers: parsers, rules: rules, sources: sources}
}

// Plan parses text under dialect, validates the resulting AST against
// vctx, and — only if every rule accepts it — builds and optimizes its
// logical plan. Plan never dispatches to a source; Execute does that.
func (s *Service) Plan(dialect queryfe.Dialect, text string, vctx validator.Context) (*PlanResult, error) {
	parsed := s.parsers.Parse(dialect, text)
	if parsed.AST == nil {
		return nil, fmt.Errorf("query: parse failed: %v", parsed.Errors)
	}

	results := s.rules.Validate(parsed.AST, vctx)
	out := &PlanResult{AST: parsed.AST, Validation: results, Accepted: validator.Accepted(results)}
	if !out.Accepted {
		return out, nil
	}

	built, err := optimizer.Build(parsed.AST)
	if err != nil {
		return out, fmt.Errorf("query: %w", err)
	}
	optimized := optimizer.Optimize(built)
	out.Plan = optimized.Plan
	out.Applied = optimized.Applied
	return out, nil
}

// Execute plans text and, if accepted, dispatches the original query text
// to the single source its plan scans. A plan touching more than one
// table is rejected with an explicit error naming internal/federation as
// the intended path, rather than silently executing against one source
// and dropping the rest of the join.
func (s *Service) Execute(ctx context.Context, dialect queryfe.Dialect, text string, vctx validator.Context) (*PlanResult, []map[string]any, error) {
	result, err := s.Plan(dialect, text, vctx)
	if err != nil {
		return result, nil, err
	}
	if !result.Accepted {
		return result, nil, fmt.Errorf("query: rejected by validator")
	}
	if s.sources == nil {
		return result, nil, fmt.Errorf("query: no source registry configured")
	}

	source, err := singleSource(result.Plan)
	if err != nil {
		return result, nil, err
	}

	rows, err := s.sources.Dispatch(ctx, source, text, nil)
	if err != nil {
		return result, nil, fmt.Errorf("query: dispatch to %q: %w", source, err)
	}
	return result, rows, nil
}

// singleSource returns the one table plan scans, or an error if it scans
// zero or more than one — the latter names a cross-source join, which
// belongs to internal/federation's Analyzer/Decomposer/FederatedExecutor.
func singleSource(plan optimizer.Plan) (string, error) {
	tables := optimizer.ScanTables(plan)
	switch len(tables) {
	case 0:
		return "", fmt.Errorf("query: plan has no scan to dispatch")
	case 1:
		return tables[0], nil
	default:
		return "", fmt.Errorf("query: plan scans %d sources %v; cross-source joins run through internal/federation, not this single-dispatch path", len(tables), tables)
	}
}
