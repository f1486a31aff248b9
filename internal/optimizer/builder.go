package optimizer

import (
	"fmt"

	"github.com/canonica-labs/lakequery/internal/queryfe"
)

// Build converts a parsed SQL Select into a naive left-deep logical plan:
// scans nested as joins in FROM-clause order, wrapped by the WHERE filter,
// a projection, and (optionally) a sort. The SQL AST has no LIMIT clause,
// so Build never produces a Limit node. Optimize then rewrites
// this tree; Build itself performs no optimization (spec §4.3's pure,
// deterministic contract starts from an un-optimized plan).
func Build(ast queryfe.Node) (Plan, error) {
	sel, ok := ast.(*queryfe.Select)
	if !ok {
		return nil, fmt.Errorf("optimizer: plan building is only defined for SELECT statements, got %T", ast)
	}
	if sel.From == nil {
		return nil, fmt.Errorf("optimizer: SELECT has no FROM clause to build a scan from")
	}

	var plan Plan = &Scan{Table: tableIdentifier(sel.From)}
	for _, j := range sel.From.Joins {
		plan = &Join{
			Left:      plan,
			Right:     &Scan{Table: tableIdentifier(j.Table)},
			Condition: j.On,
		}
	}

	if sel.Where != nil {
		plan = &Filter{Input: plan, Condition: sel.Where.Condition}
	}

	plan = &Project{Input: plan, Columns: sel.Columns}

	if len(sel.OrderBy) > 0 {
		plan = &Sort{Input: plan, Terms: sel.OrderBy}
	}

	// Having is not representable as a plan-level filter distinct from an
	// aggregate node the current grammar has no producer for; it is left
	// to the validator (runs over the AST directly, not the plan).

	return plan, nil
}

func tableIdentifier(t *queryfe.Table) string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}
