// Package queryfe holds the two-dialect query front-end: AST node types
// for the SQL and document variants (spec §3), their recursive-descent
// parsers, a dialect registry, and unparsers supporting the
// parse(unparse(ast)) == ast round-trip property (spec §8).
package queryfe

// Dialect names looked up in the Registry (spec §4.1: "sql", "nosql").
type Dialect string

const (
	DialectSQL Dialect = "sql"
	DialectDoc Dialect = "nosql"
)

// Node is implemented by every AST node in both dialects. Accept dispatches
// to the visitor method for the node's concrete type (spec §3: "every node
// supports a visitor-style dispatch").
type Node interface {
	Accept(v Visitor) any
	// String renders the node back to dialect surface syntax.
	String() string
}

// Visitor is implemented by consumers that walk an AST (e.g. the validator,
// the optimizer's plan builder, the unparser).
type Visitor interface {
	VisitSelect(*Select) any
	VisitColumn(*Column) any
	VisitTable(*Table) any
	VisitJoin(*Join) any
	VisitWhere(*Where) any
	VisitCondition(*Condition) any
	VisitQuery(*Query) any
	VisitFilter(*Filter) any
	VisitInsert(*Insert) any
	VisitUpdate(*Update) any
	VisitDelete(*Delete) any
}
