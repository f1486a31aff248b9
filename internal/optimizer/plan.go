// Package optimizer implements the logical plan tree and its fixed-order,
// idempotent rewrite passes (spec §4.3). The plan shape and the rewrite
// rules are generalized from the teacher's federation-specific pushdown
// machinery (internal/federation/pushdown.go's PushdownRule/CanPush/
// Rewrite interface, internal/federation/cost.go's selectivity estimate)
// from "push operations into a federated sub-query's SQL text" to
// "rewrite a generic logical plan tree" — the spec's optimizer operates
// before any engine is chosen, so it rewrites a plan, not SQL strings.
package optimizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/canonica-labs/lakequery/internal/queryfe"
)

// Plan is implemented by every logical plan node.
type Plan interface {
	// String renders the plan deterministically, used both for debugging
	// and to compare plans for the idempotence property in tests
	// (optimize(optimize(p)) == optimize(p)).
	String() string
	children() []Plan
}

// Scan reads rows from one table or collection, optionally restricted to
// a column subset by projection pruning.
type Scan struct {
	Table   string
	Columns []string // nil means "all columns"
}

func (s *Scan) children() []Plan { return nil }
func (s *Scan) String() string {
	if len(s.Columns) == 0 {
		return fmt.Sprintf("Scan(%s)", s.Table)
	}
	return fmt.Sprintf("Scan(%s, cols=[%s])", s.Table, strings.Join(s.Columns, ","))
}

// Filter restricts Input's rows to those matching Condition.
type Filter struct {
	Input     Plan
	Condition *queryfe.Condition
}

func (f *Filter) children() []Plan { return []Plan{f.Input} }
func (f *Filter) String() string {
	return fmt.Sprintf("Filter(%s, %s)", condString(f.Condition), f.Input.String())
}

// Project restricts Input's output to Columns. Columns keep the parser's
// *queryfe.Column shape (rather than flattening to display strings) so
// projection pruning can read back each column's table qualifier.
type Project struct {
	Input   Plan
	Columns []*queryfe.Column
}

func (p *Project) children() []Plan { return []Plan{p.Input} }
func (p *Project) String() string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.String()
	}
	return fmt.Sprintf("Project([%s], %s)", strings.Join(names, ","), p.Input.String())
}

// Join combines Left and Right on Condition. Reordering (spec §4.3 rule 3)
// swaps Left/Right and re-nests a chain of joins by selectivity.
type Join struct {
	Left, Right Plan
	Condition   *queryfe.Condition
}

func (j *Join) children() []Plan { return []Plan{j.Left, j.Right} }
func (j *Join) String() string {
	return fmt.Sprintf("Join(%s, %s, %s)", j.Left.String(), j.Right.String(), condString(j.Condition))
}

// Sort orders Input's rows by Terms.
type Sort struct {
	Input Plan
	Terms []queryfe.OrderTerm
}

func (s *Sort) children() []Plan { return []Plan{s.Input} }
func (s *Sort) String() string {
	terms := make([]string, len(s.Terms))
	for i, t := range s.Terms {
		terms[i] = t.String()
	}
	return fmt.Sprintf("Sort([%s], %s)", strings.Join(terms, ","), s.Input.String())
}

// Limit caps Input's output at N rows.
type Limit struct {
	Input Plan
	N     int
}

func (l *Limit) children() []Plan { return []Plan{l.Input} }
func (l *Limit) String() string {
	return fmt.Sprintf("Limit(%d, %s)", l.N, l.Input.String())
}

func condString(c *queryfe.Condition) string {
	if c == nil {
		return "true"
	}
	return c.String()
}

// conditionReferencedTables returns the set of table qualifiers a
// condition tree touches, used by predicate pushdown to decide which
// single input (if any) a filter can move below a join/project.
func conditionReferencedTables(n queryfe.Node) map[string]bool {
	out := map[string]bool{}
	var walk func(queryfe.Node)
	walk = func(node queryfe.Node) {
		switch v := node.(type) {
		case *queryfe.Condition:
			walk(v.Left)
			walk(v.Right)
		case *queryfe.Column:
			if v.Qualifier != "" {
				out[v.Qualifier] = true
			}
		}
	}
	walk(n)
	return out
}

// scanTables returns every table name reachable under p (its Scan leaves).
func scanTables(p Plan) map[string]bool {
	out := map[string]bool{}
	var walk func(Plan)
	walk = func(node Plan) {
		if scan, ok := node.(*Scan); ok {
			out[scan.Table] = true
			return
		}
		for _, c := range node.children() {
			walk(c)
		}
	}
	walk(p)
	return out
}

// ScanTables returns the sorted, de-duplicated table names p's Scan leaves
// reach, for callers outside this package that need to know which
// source(s) a plan touches before dispatching it (e.g. deciding between a
// single-source dispatch and a cross-source federated join).
func ScanTables(p Plan) []string {
	set := scanTables(p)
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
