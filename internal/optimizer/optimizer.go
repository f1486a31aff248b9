package optimizer

import (
	"sort"

	"github.com/canonica-labs/lakequery/internal/queryfe"
)

// Result is optimize's output (spec §4.3: `optimize(plan) → (plan',
// applied[])`).
type Result struct {
	Plan    Plan
	Applied []string
}

// maxIterations bounds the fixed-point loop; the five rewrites always
// converge in far fewer passes than this over realistic plans, this is a
// backstop against an unforeseen rewrite cycle.
const maxIterations = 50

// Optimize applies the five rewrites in the fixed order spec §4.3
// specifies, repeating until no rewrite changes the plan (a fixed
// point), which also makes the transformation idempotent:
// Optimize(Optimize(p).Plan) reports no further changes.
func Optimize(plan Plan) Result {
	applied := []string{}
	for i := 0; i < maxIterations; i++ {
		changed := false

		if p, ok := pushdownPredicates(plan); ok {
			plan, changed = p, true
			applied = append(applied, "predicate_pushdown")
		}
		if p, ok := pruneProjections(plan); ok {
			plan, changed = p, true
			applied = append(applied, "projection_pruning")
		}
		if p, ok := reorderJoins(plan); ok {
			plan, changed = p, true
			applied = append(applied, "join_reordering")
		}
		if p, ok := foldConstants(plan); ok {
			plan, changed = p, true
			applied = append(applied, "constant_folding")
		}
		if p, ok := pushdownLimit(plan); ok {
			plan, changed = p, true
			applied = append(applied, "limit_pushdown")
		}

		if !changed {
			break
		}
	}
	return Result{Plan: plan, Applied: applied}
}

// rebuildChildren reconstructs node with each of its children replaced by
// f(child), preserving every other field. Every rewrite pass composes its
// own node-local check with a call into this helper for recursion.
func rebuildChildren(p Plan, f func(Plan) Plan) Plan {
	switch n := p.(type) {
	case *Scan:
		return n
	case *Filter:
		return &Filter{Input: f(n.Input), Condition: n.Condition}
	case *Project:
		return &Project{Input: f(n.Input), Columns: n.Columns}
	case *Join:
		return &Join{Left: f(n.Left), Right: f(n.Right), Condition: n.Condition}
	case *Sort:
		return &Sort{Input: f(n.Input), Terms: n.Terms}
	case *Limit:
		return &Limit{Input: f(n.Input), N: n.N}
	default:
		return p
	}
}

// --- 1. Predicate pushdown ---

// pushdownPredicates pushes a Filter below a Join when its condition
// references only one side's tables, and below a Project unconditionally
// (a projection never changes which rows survive a filter placed before
// or after it). Grounded on FilterPushdown.CanPush/Rewrite in
// internal/federation/pushdown.go, generalized from "push into one
// sub-query's SQL text" to "move a Filter node down the plan tree."
func pushdownPredicates(p Plan) (Plan, bool) {
	changed := false
	p = rebuildChildren(p, func(c Plan) Plan {
		nc, ch := pushdownPredicates(c)
		if ch {
			changed = true
		}
		return nc
	})

	f, ok := p.(*Filter)
	if !ok {
		return p, changed
	}

	switch input := f.Input.(type) {
	case *Join:
		refs := conditionReferencedTables(f.Condition)
		if len(refs) == 0 {
			return p, changed
		}
		if subsetOf(refs, scanTables(input.Left)) {
			return &Join{
				Left:      &Filter{Input: input.Left, Condition: f.Condition},
				Right:     input.Right,
				Condition: input.Condition,
			}, true
		}
		if subsetOf(refs, scanTables(input.Right)) {
			return &Join{
				Left:      input.Left,
				Right:     &Filter{Input: input.Right, Condition: f.Condition},
				Condition: input.Condition,
			}, true
		}
	case *Project:
		return &Project{Input: &Filter{Input: input.Input, Condition: f.Condition}, Columns: input.Columns}, true
	}
	return p, changed
}

func subsetOf(a, b map[string]bool) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// --- 2. Projection pruning ---

// pruneProjections restricts each Scan's output columns to those
// transitively required by the root: every column the plan's Projects,
// Filters, Joins, and Sorts actually reference. A Scan whose table has no
// discoverable requirement (e.g. a bare `SELECT *`) keeps reading all
// columns.
func pruneProjections(p Plan) (Plan, bool) {
	required := map[string]map[string]bool{}
	collectRequiredColumns(p, required)

	changed := false
	var rewrite func(Plan) Plan
	rewrite = func(node Plan) Plan {
		scan, ok := node.(*Scan)
		if !ok {
			return rebuildChildren(node, rewrite)
		}
		cols, ok := required[scan.Table]
		if !ok || len(cols) == 0 {
			return scan
		}
		sorted := make([]string, 0, len(cols))
		for c := range cols {
			sorted = append(sorted, c)
		}
		sort.Strings(sorted)
		if sameStrings(scan.Columns, sorted) {
			return scan
		}
		changed = true
		return &Scan{Table: scan.Table, Columns: sorted}
	}
	out := rewrite(p)
	return out, changed
}

func collectRequiredColumns(p Plan, out map[string]map[string]bool) {
	add := func(table, col string) {
		if table == "" || col == "" {
			return
		}
		if out[table] == nil {
			out[table] = map[string]bool{}
		}
		out[table][col] = true
	}
	switch n := p.(type) {
	case *Project:
		for _, c := range n.Columns {
			add(c.Qualifier, c.Name)
		}
	case *Filter:
		for _, qc := range collectColumnRefs(n.Condition) {
			add(qc.table, qc.name)
		}
	case *Join:
		for _, qc := range collectColumnRefs(n.Condition) {
			add(qc.table, qc.name)
		}
	case *Sort:
		for _, t := range n.Terms {
			add(t.Column.Qualifier, t.Column.Name)
		}
	}
	for _, c := range p.children() {
		collectRequiredColumns(c, out)
	}
}

type qualifiedColumn struct{ table, name string }

func collectColumnRefs(c *queryfe.Condition) []qualifiedColumn {
	var out []qualifiedColumn
	var walk func(queryfe.Node)
	walk = func(n queryfe.Node) {
		switch v := n.(type) {
		case *queryfe.Condition:
			walk(v.Left)
			walk(v.Right)
		case *queryfe.Column:
			out = append(out, qualifiedColumn{table: v.Qualifier, name: v.Name})
		}
	}
	walk(c)
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- 3. Join reordering ---

// reorderJoins orders a chain of inner joins by estimated selectivity =
// 1/(1+|conditions|) (spec §3/§4.3 — more conditions on a join give a
// smaller value, so it sorts later), tie-broken by child fan-out
// (here approximated by the number of Scan leaves under each side, a
// stand-in for estimated row count absent real table statistics). Bushy
// trees are disallowed: the result is always left-deep, matching Build's
// own left-deep construction.
func reorderJoins(p Plan) (Plan, bool) {
	changed := false
	p = rebuildChildren(p, func(c Plan) Plan {
		nc, ch := reorderJoins(c)
		if ch {
			changed = true
		}
		return nc
	})

	join, ok := p.(*Join)
	if !ok {
		return p, changed
	}

	base, chain := flattenJoinChain(join)
	if len(chain) < 2 {
		return p, changed
	}
	sorted := make([]joinLeaf, len(chain))
	copy(sorted, chain)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := selectivity(sorted[i].condition), selectivity(sorted[j].condition)
		if si != sj {
			return si > sj // higher selectivity (fewer rows survive) joins first
		}
		return fanOut(sorted[i].plan) < fanOut(sorted[j].plan)
	})
	if sameOrder(chain, sorted) {
		return p, changed
	}
	return rebuildLeftDeepJoin(base, sorted), true
}

// joinLeaf is one right-hand input of a left-deep join chain, paired with
// the condition that attaches it.
type joinLeaf struct {
	plan      Plan
	condition *queryfe.Condition
}

// flattenJoinChain walks a left-deep Join spine down to its base (the
// leftmost non-Join plan) and an ordered list of (rightInput, condition)
// leaves attached above it. Bushy trees (a Join whose Left is itself a
// Join with two non-trivial sides already reordered) are never produced
// by Build or by this rewrite, so every chain this optimizer encounters
// is left-deep by construction.
func flattenJoinChain(j *Join) (Plan, []joinLeaf) {
	var leaves []joinLeaf
	var cur Plan = j
	for {
		cj, ok := cur.(*Join)
		if !ok {
			break
		}
		leaves = append([]joinLeaf{{plan: cj.Right, condition: cj.Condition}}, leaves...)
		cur = cj.Left
	}
	return cur, leaves
}

func rebuildLeftDeepJoin(base Plan, leaves []joinLeaf) Plan {
	plan := base
	for _, leaf := range leaves {
		plan = &Join{Left: plan, Right: leaf.plan, Condition: leaf.condition}
	}
	return plan
}

func sameOrder(a, b []joinLeaf) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].plan.String() != b[i].plan.String() {
			return false
		}
	}
	return true
}

// selectivity implements the spec's fixed formula: 1/(1+|conditions|).
func selectivity(c *queryfe.Condition) float64 {
	return 1.0 / float64(1+countConditions(c))
}

func countConditions(n queryfe.Node) int {
	cond, ok := n.(*queryfe.Condition)
	if !ok {
		return 0
	}
	return 1 + countConditions(cond.Left) + countConditions(cond.Right)
}

// fanOut approximates a plan's output cardinality by the number of base
// scans it reads from, used only to break selectivity ties.
func fanOut(p Plan) int {
	return len(scanTables(p))
}

// --- 4. Constant folding ---

// foldConstants evaluates a condition whose both operands are Literals at
// optimize time, replacing e.g. `1 = 1` with a tautology marker and
// `1 = 2` with a contradiction marker baked into the condition's operator
// so the rewrite is visible in String() and stable under re-application.
func foldConstants(p Plan) (Plan, bool) {
	changed := false
	p = rebuildChildren(p, func(c Plan) Plan {
		nc, ch := foldConstants(c)
		if ch {
			changed = true
		}
		return nc
	})

	f, ok := p.(*Filter)
	if !ok || f.Condition == nil {
		return p, changed
	}
	folded, didFold := foldCondition(f.Condition)
	if !didFold {
		return p, changed
	}
	return &Filter{Input: f.Input, Condition: folded}, true
}

func foldCondition(c *queryfe.Condition) (*queryfe.Condition, bool) {
	if c.Operator == "TRUE" || c.Operator == "FALSE" {
		return c, false // already folded
	}
	left, leftLit := c.Left.(*queryfe.Literal)
	right, rightLit := c.Right.(*queryfe.Literal)
	if leftLit && rightLit {
		if evaluateLiteralComparison(c.Operator, left.Value, right.Value) {
			return &queryfe.Condition{Left: &queryfe.Literal{Value: true}, Operator: "TRUE", Right: &queryfe.Literal{Value: true}}, true
		}
		return &queryfe.Condition{Left: &queryfe.Literal{Value: false}, Operator: "FALSE", Right: &queryfe.Literal{Value: false}}, true
	}

	changed := false
	if lc, ok := c.Left.(*queryfe.Condition); ok {
		if nl, did := foldCondition(lc); did {
			c = &queryfe.Condition{Left: nl, Operator: c.Operator, Right: c.Right}
			changed = true
		}
	}
	if rc, ok := c.Right.(*queryfe.Condition); ok {
		if nr, did := foldCondition(rc); did {
			c = &queryfe.Condition{Left: c.Left, Operator: c.Operator, Right: nr}
			changed = true
		}
	}
	return c, changed
}

func evaluateLiteralComparison(op string, left, right any) bool {
	switch op {
	case "=":
		return left == right
	case "!=":
		return left != right
	}
	lf, lok := left.(float64)
	rf, rok := right.(float64)
	if !lok || !rok {
		return false
	}
	switch op {
	case "<":
		return lf < rf
	case "<=":
		return lf <= rf
	case ">":
		return lf > rf
	case ">=":
		return lf >= rf
	default:
		return false
	}
}

// --- 5. Limit pushdown ---

// pushdownLimit moves a Limit below a Project. It never moves a Limit
// below a Sort (pushing a limit below a yet-to-be-applied sort would be
// unsound, so Sort is the barrier) or below any other node.
func pushdownLimit(p Plan) (Plan, bool) {
	changed := false
	p = rebuildChildren(p, func(c Plan) Plan {
		nc, ch := pushdownLimit(c)
		if ch {
			changed = true
		}
		return nc
	})

	l, ok := p.(*Limit)
	if !ok {
		return p, changed
	}
	if proj, ok := l.Input.(*Project); ok {
		return &Project{Input: &Limit{Input: proj.Input, N: l.N}, Columns: proj.Columns}, true
	}
	return p, changed
}
