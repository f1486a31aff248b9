package validator

import (
	"context"
	"strings"

	"github.com/canonica-labs/lakequery/internal/ports"
	"github.com/canonica-labs/lakequery/internal/queryfe"
)

// DefaultRules returns the full catalog spec §4.2 requires, in the order
// they should run: Syntax first (so later rules can assume a sane AST
// shape), then semantic, resource, security, and performance rules.
// Grounded on query_validation_core.py's TableExistsRule/ColumnExistsRule/
// TypeCompatibilityRule/ResourceLimitRule/SecurityRule and
// validation_sql_advanced.py's SQLComplexityRule/SQLPerformanceRule/
// SQLIndexUsageRule.
func DefaultRules() []Rule {
	return []Rule{
		syntaxRule(),
		tableExistsRule(),
		columnExistsRule(),
		typeCompatibilityRule(),
		resourceLimitRule(),
		securityRule(),
		complexityRule(),
		performanceHeuristicsRule(),
		indexUsageRule(),
	}
}

// queryShape is the information every rule needs, extracted once per
// validation run from whichever concrete AST node was parsed (*Select,
// *Delete, *Insert, *Update, or *queryfe.Query). Centralizing the walk
// here avoids every rule re-implementing its own type switch, mirroring
// how the original's rules each call the same `context.get(...)` shape
// rather than re-parsing.
type queryShape struct {
	operation   Permission
	tables      []string
	columns     []qualifiedColumn
	whereCols   []qualifiedColumn
	orderByCols []qualifiedColumn
	joinCount   int
	conditions  []*queryfe.Condition
	hasWhere    bool
	hasFrom     bool
	selectStar  bool
	distinct    bool
	inCount     int
	orCount     int
	leadingLike bool
}

type qualifiedColumn struct {
	table string
	name  string
}

func shapeOf(ast queryfe.Node) queryShape {
	switch n := ast.(type) {
	case *queryfe.Select:
		return shapeOfSelect(n)
	case *queryfe.Delete:
		s := queryShape{operation: PermDelete, hasFrom: true}
		if n.Table != nil {
			s.tables = append(s.tables, n.Table.Name)
		}
		if n.Where != nil {
			s.hasWhere = true
			s.conditions = append(s.conditions, n.Where.Condition)
			s.whereCols = append(s.whereCols, collectColumns(n.Where.Condition)...)
			s.inCount, s.orCount = countOperators(n.Where.Condition)
		}
		return s
	case *queryfe.Insert:
		s := queryShape{operation: PermInsert, hasFrom: true}
		if n.Table != nil {
			s.tables = append(s.tables, n.Table.Name)
		}
		return s
	case *queryfe.Update:
		s := queryShape{operation: PermUpdate, hasFrom: true}
		if n.Table != nil {
			s.tables = append(s.tables, n.Table.Name)
		}
		if n.Where != nil {
			s.hasWhere = true
			s.conditions = append(s.conditions, n.Where.Condition)
			s.whereCols = append(s.whereCols, collectColumns(n.Where.Condition)...)
			s.inCount, s.orCount = countOperators(n.Where.Condition)
		}
		return s
	case *queryfe.Query:
		return shapeOfDoc(n)
	default:
		return queryShape{}
	}
}

func shapeOfSelect(n *queryfe.Select) queryShape {
	s := queryShape{operation: PermSelect}
	for _, c := range n.Columns {
		if c.Name == "*" {
			s.selectStar = true
		}
		s.columns = append(s.columns, qualifiedColumn{table: c.Qualifier, name: c.Name})
	}
	if n.From != nil {
		s.hasFrom = true
		s.tables = append(s.tables, n.From.Name)
		s.joinCount = len(n.From.Joins)
		for _, j := range n.From.Joins {
			if j.Table != nil {
				s.tables = append(s.tables, j.Table.Name)
			}
			if j.On != nil {
				s.conditions = append(s.conditions, j.On)
				s.whereCols = append(s.whereCols, collectColumns(j.On)...)
			}
		}
	}
	if n.Where != nil {
		s.hasWhere = true
		s.conditions = append(s.conditions, n.Where.Condition)
		cols := collectColumns(n.Where.Condition)
		s.whereCols = append(s.whereCols, cols...)
		in, or := countOperators(n.Where.Condition)
		s.inCount += in
		s.orCount += or
		s.leadingLike = hasLeadingWildcardLike(n.Where.Condition)
	}
	for _, c := range n.GroupBy {
		s.orderByCols = append(s.orderByCols, qualifiedColumn{table: c.Qualifier, name: c.Name})
	}
	for _, t := range n.OrderBy {
		s.orderByCols = append(s.orderByCols, qualifiedColumn{table: t.Column.Qualifier, name: t.Column.Name})
	}
	if n.Having != nil {
		s.conditions = append(s.conditions, n.Having)
	}
	return s
}

func shapeOfDoc(n *queryfe.Query) queryShape {
	s := queryShape{operation: PermSelect, hasFrom: true}
	s.tables = append(s.tables, n.Collection)
	for f := n.Filter; f != nil; f = f.NextFilter {
		s.hasWhere = true
		s.whereCols = append(s.whereCols, qualifiedColumn{table: n.Collection, name: f.Field})
		if f.Operator == "IN" {
			s.inCount++
		}
		if f.LogicalOp == "OR" {
			s.orCount++
		}
		if f.Operator == "LIKE" {
			if str, ok := f.Value.(string); ok && strings.HasPrefix(str, "%") {
				s.leadingLike = true
			}
		}
	}
	for field := range n.Sort {
		s.orderByCols = append(s.orderByCols, qualifiedColumn{table: n.Collection, name: field})
	}
	return s
}

func collectColumns(c *queryfe.Condition) []qualifiedColumn {
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

func countOperators(c *queryfe.Condition) (inCount, orCount int) {
	var walk func(queryfe.Node)
	walk = func(n queryfe.Node) {
		cond, ok := n.(*queryfe.Condition)
		if !ok {
			return
		}
		if cond.Operator == "IN" {
			inCount++
		}
		if cond.Operator == "OR" {
			orCount++
		}
		walk(cond.Left)
		walk(cond.Right)
	}
	walk(c)
	return
}

func hasLeadingWildcardLike(c *queryfe.Condition) bool {
	found := false
	var walk func(queryfe.Node)
	walk = func(n queryfe.Node) {
		cond, ok := n.(*queryfe.Condition)
		if !ok {
			return
		}
		if cond.Operator == "LIKE" {
			if lit, ok := cond.Right.(*queryfe.Literal); ok {
				if str, ok := lit.Value.(string); ok && strings.HasPrefix(str, "%") {
					found = true
				}
			}
		}
		walk(cond.Left)
		walk(cond.Right)
	}
	walk(c)
	return found
}

func conditionDepth(n queryfe.Node) int {
	cond, ok := n.(*queryfe.Condition)
	if !ok {
		return 0
	}
	l, r := conditionDepth(cond.Left), conditionDepth(cond.Right)
	if l > r {
		return l + 1
	}
	return r + 1
}

func countConditionNodes(n queryfe.Node) int {
	cond, ok := n.(*queryfe.Condition)
	if !ok {
		return 0
	}
	return 1 + countConditionNodes(cond.Left) + countConditionNodes(cond.Right)
}

// --- rules ---

// syntaxRule re-asserts the structural invariants spec §4.2 lists for
// Syntax: these are largely already guaranteed by a successful parse
// (the grammar cannot produce a SELECT without FROM's absence being
// legal per spec §4.1, since FROM is optional there) — this rule instead
// catches a nil AST reaching the validator at all (e.g. a caller skipping
// the parse-error check) and a SELECT with no columns.
func syntaxRule() Rule {
	return Rule{
		Name: "syntax", Level: LevelError, Category: CategorySyntax,
		Check: func(ast queryfe.Node, ctx Context) []Result {
			if ast == nil {
				return []Result{{
					Level: LevelError, Category: CategorySyntax,
					Message:    "query has no parse tree to validate",
					Suggestion: "fix the underlying syntax error before validating",
				}}
			}
			if sel, ok := ast.(*queryfe.Select); ok && len(sel.Columns) == 0 {
				return []Result{{
					Level: LevelError, Category: CategorySyntax,
					Message:    "SELECT has no columns",
					Suggestion: "list at least one column or use SELECT *",
				}}
			}
			return nil
		},
	}
}

func tableExistsRule() Rule {
	return Rule{
		Name: "table_exists", Level: LevelError, Category: CategorySemantic,
		Check: func(ast queryfe.Node, ctx Context) []Result {
			if ctx.Schema == nil {
				return nil
			}
			shape := shapeOf(ast)
			var out []Result
			for _, table := range shape.tables {
				cols, err := ctx.Schema.Get(context.Background(), table)
				if err != nil || cols == nil {
					out = append(out, Result{
						Level: LevelError, Category: CategorySemantic,
						Message:    "table or collection does not exist: " + table,
						Context:    map[string]any{"table": table},
						Suggestion: "check the table/collection name against the catalog",
					})
				}
			}
			return out
		},
	}
}

func columnExistsRule() Rule {
	return Rule{
		Name: "column_exists", Level: LevelError, Category: CategorySemantic,
		Check: func(ast queryfe.Node, ctx Context) []Result {
			if ctx.Schema == nil {
				return nil
			}
			shape := shapeOf(ast)
			all := append(append([]qualifiedColumn{}, shape.columns...), shape.whereCols...)
			all = append(all, shape.orderByCols...)
			var out []Result
			for _, qc := range all {
				if qc.table == "" || qc.name == "*" {
					continue
				}
				table := resolveTableAlias(shape, qc.table)
				cols, err := ctx.Schema.Get(context.Background(), table)
				if err != nil || cols == nil {
					continue // TableExists already reports this
				}
				if _, ok := cols[qc.name]; !ok {
					out = append(out, Result{
						Level: LevelError, Category: CategorySemantic,
						Message:    "column does not exist: " + qc.table + "." + qc.name,
						Context:    map[string]any{"table": qc.table, "column": qc.name},
						Suggestion: "check the column name against the table's schema",
					})
				}
			}
			return out
		},
	}
}

// resolveTableAlias is a no-op placeholder resolving a column qualifier
// back to its base table name; the current grammar does not track
// alias→table bindings beyond the immediate Table/Join node, so qualifier
// text is used as-is. Full alias resolution belongs to the optimizer's
// plan-building stage (C3), which has the whole FROM clause in scope.
func resolveTableAlias(shape queryShape, qualifier string) string {
	return qualifier
}

func typeCompatibilityRule() Rule {
	return Rule{
		Name: "type_compatibility", Level: LevelError, Category: CategorySemantic,
		Check: func(ast queryfe.Node, ctx Context) []Result {
			if ctx.Schema == nil {
				return nil
			}
			shape := shapeOf(ast)
			var out []Result
			for _, cond := range shape.conditions {
				out = append(out, checkConditionTypes(cond, shape, ctx)...)
			}
			return out
		},
	}
}

func checkConditionTypes(n queryfe.Node, shape queryShape, ctx Context) []Result {
	cond, ok := n.(*queryfe.Condition)
	if !ok {
		return nil
	}
	var out []Result
	out = append(out, checkConditionTypes(cond.Left, shape, ctx)...)
	out = append(out, checkConditionTypes(cond.Right, shape, ctx)...)

	col, colOK := operandColumn(cond.Left)
	lit, litOK := operandLiteral(cond.Right)
	if !colOK || !litOK || col.table == "" {
		return out
	}
	cols, err := ctx.Schema.Get(context.Background(), col.table)
	if err != nil || cols == nil {
		return out
	}
	schema, ok := cols[col.name]
	if !ok {
		return out
	}
	if !compatible(schema.Type, lit.Value) {
		out = append(out, Result{
			Level: LevelError, Category: CategorySemantic,
			Message: "incompatible comparison: " + col.table + "." + col.name +
				" is " + schema.Type,
			Context:    map[string]any{"table": col.table, "column": col.name, "operator": cond.Operator},
			Suggestion: "compare against a value of a compatible type",
		})
	}
	return out
}

func operandColumn(n queryfe.Node) (qualifiedColumn, bool) {
	c, ok := n.(*queryfe.Column)
	if !ok {
		return qualifiedColumn{}, false
	}
	return qualifiedColumn{table: c.Qualifier, name: c.Name}, true
}

func operandLiteral(n queryfe.Node) (*queryfe.Literal, bool) {
	l, ok := n.(*queryfe.Literal)
	return l, ok
}

// compatible implements the small type lattice spec §4.2 defines:
// integer⊆number, float⊆number; string ops require string.
func compatible(schemaType string, value any) bool {
	switch schemaType {
	case "integer", "float", "number":
		switch value.(type) {
		case float64:
			return true
		default:
			return false
		}
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	default:
		return true // unknown schema types are not second-guessed here
	}
}

func resourceLimitRule() Rule {
	return Rule{
		Name: "resource_limit", Level: LevelWarning, Category: CategoryResource,
		Check: func(ast queryfe.Node, ctx Context) []Result {
			shape := shapeOf(ast)
			maxTables, maxJoins := ctx.MaxTables, ctx.MaxJoins
			if maxTables == 0 {
				maxTables = DefaultContext().MaxTables
			}
			if maxJoins == 0 {
				maxJoins = DefaultContext().MaxJoins
			}
			var out []Result
			if len(shape.tables) > maxTables {
				out = append(out, resourceResult("tables", len(shape.tables), maxTables))
			}
			if shape.joinCount > maxJoins {
				out = append(out, resourceResult("joins", shape.joinCount, maxJoins))
			}
			// Subqueries are not representable in the current grammar, so
			// no subquery count is checked and MaxSubqueries is not read.
			return out
		},
	}
}

func resourceResult(kind string, actual, max int) Result {
	return Result{
		Level: LevelWarning, Category: CategoryResource,
		Message:    kind + " count exceeds configured limit",
		Context:    map[string]any{"limit": kind, "actual": actual, "max": max},
		Suggestion: "simplify the query or raise the configured limit",
	}
}

// securityRule implements `required ⊆ context.permissions` over the
// operation the parsed statement performs (spec §4.2 Security): a DELETE
// requires PermDelete, a SELECT requires PermSelect, and so on.
func securityRule() Rule {
	return Rule{
		Name: "security", Level: LevelError, Category: CategorySecurity,
		Check: func(ast queryfe.Node, ctx Context) []Result {
			shape := shapeOf(ast)
			if shape.operation == "" {
				return nil
			}
			if ctx.Permissions[shape.operation] {
				return nil
			}
			return []Result{{
				Level: LevelError, Category: CategorySecurity,
				Message:    "operation requires permission " + string(shape.operation),
				Context:    map[string]any{"required": shape.operation},
				Suggestion: "request the missing permission from an administrator",
			}}
		},
	}
}

func complexityRule() Rule {
	return Rule{
		Name: "sql_complexity", Level: LevelWarning, Category: CategoryPerformance,
		Check: func(ast queryfe.Node, ctx Context) []Result {
			shape := shapeOf(ast)
			maxDepth, maxConditions := ctx.MaxDepth, ctx.MaxConditions
			if maxDepth == 0 {
				maxDepth = DefaultContext().MaxDepth
			}
			if maxConditions == 0 {
				maxConditions = DefaultContext().MaxConditions
			}
			depth, conditions := 0, 0
			for _, c := range shape.conditions {
				if d := conditionDepth(c); d > depth {
					depth = d
				}
				conditions += countConditionNodes(c)
			}
			var issues []string
			if depth > maxDepth {
				issues = append(issues, "query depth exceeds limit")
			}
			if conditions > maxConditions {
				issues = append(issues, "condition count exceeds limit")
			}
			// Unions are not representable in the current grammar.
			if len(issues) == 0 {
				return nil
			}
			return []Result{{
				Level: LevelWarning, Category: CategoryPerformance,
				Message:    "query is too complex",
				Context:    map[string]any{"issues": issues, "depth": depth, "conditions": conditions},
				Suggestion: "consider simplifying the query",
			}}
		},
	}
}

func performanceHeuristicsRule() Rule {
	return Rule{
		Name: "sql_performance", Level: LevelWarning, Category: CategoryPerformance,
		Check: func(ast queryfe.Node, ctx Context) []Result {
			shape := shapeOf(ast)
			var issues []string
			if shape.selectStar {
				issues = append(issues, "using SELECT * can impact performance")
			}
			if shape.distinct {
				issues = append(issues, "DISTINCT operation can be expensive")
			}
			if shape.inCount > 1 {
				issues = append(issues, "multiple IN clauses can impact performance")
			}
			if shape.orCount > 0 {
				issues = append(issues, "OR conditions may prevent index usage")
			}
			if len(issues) == 0 {
				return nil
			}
			return []Result{{
				Level: LevelWarning, Category: CategoryPerformance,
				Message:    "query may have performance issues",
				Context:    map[string]any{"issues": issues},
				Suggestion: "review the query for performance optimizations",
			}}
		},
	}
}

func indexUsageRule() Rule {
	return Rule{
		Name: "sql_index_usage", Level: LevelWarning, Category: CategoryPerformance,
		Check: func(ast queryfe.Node, ctx Context) []Result {
			shape := shapeOf(ast)
			var issues []string
			if shape.leadingLike {
				issues = append(issues, "leading wildcard LIKE cannot use an index")
			}
			if ctx.Indexes != nil {
				checked := append(append([]qualifiedColumn{}, shape.whereCols...), shape.orderByCols...)
				for _, qc := range checked {
					if qc.table == "" {
						continue
					}
					idxs, err := ctx.Indexes.Get(context.Background(), qc.table)
					if err != nil {
						continue
					}
					if !coveredByIndex(idxs, qc.name) {
						issues = append(issues, "no index covers "+qc.table+"."+qc.name)
					}
				}
			}
			if len(issues) == 0 {
				return nil
			}
			return []Result{{
				Level: LevelWarning, Category: CategoryPerformance,
				Message:    "query may not use an index efficiently",
				Context:    map[string]any{"issues": issues},
				Suggestion: "add or adjust an index covering the filtered/sorted columns",
			}}
		},
	}
}

// coveredByIndex reports whether col is the leading column of any index
// on the table (a simple prefix-coverage model, sufficient for the
// warn-don't-block heuristic spec §4.2 describes).
func coveredByIndex(idxs map[string]ports.IndexDescriptor, col string) bool {
	for _, idx := range idxs {
		if len(idx.Columns) > 0 && idx.Columns[0] == col {
			return true
		}
	}
	return false
}
