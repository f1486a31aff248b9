package queryfe

import (
	"fmt"
	"strconv"
	"strings"
)

// Select is the SQL dialect's root node (spec §3:
// Select{columns, from, where?, group_by?, having?, order_by?}).
type Select struct {
	Columns []*Column
	From    *Table
	Where   *Where
	GroupBy []*Column
	Having  *Condition
	OrderBy []OrderTerm
}

func (n *Select) Accept(v Visitor) any { return v.VisitSelect(n) }

func (n *Select) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	cols := make([]string, len(n.Columns))
	for i, c := range n.Columns {
		cols[i] = c.String()
	}
	b.WriteString(strings.Join(cols, ", "))
	if n.From != nil {
		b.WriteString(" FROM ")
		b.WriteString(n.From.String())
	}
	if n.Where != nil {
		b.WriteString(" ")
		b.WriteString(n.Where.String())
	}
	if len(n.GroupBy) > 0 {
		gb := make([]string, len(n.GroupBy))
		for i, c := range n.GroupBy {
			gb[i] = c.String()
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(gb, ", "))
	}
	if n.Having != nil {
		b.WriteString(" HAVING ")
		b.WriteString(n.Having.String())
	}
	if len(n.OrderBy) > 0 {
		ob := make([]string, len(n.OrderBy))
		for i, t := range n.OrderBy {
			ob[i] = t.String()
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(ob, ", "))
	}
	return b.String()
}

// OrderTerm is one column of an ORDER BY list.
type OrderTerm struct {
	Column *Column
	Desc   bool
}

func (t OrderTerm) String() string {
	if t.Desc {
		return t.Column.String() + " DESC"
	}
	return t.Column.String() + " ASC"
}

// Column is a (possibly qualified, possibly aliased) column reference
// (spec §3: Column{name, alias?, qualifier?}).
type Column struct {
	Name      string
	Alias     string
	Qualifier string
}

func (n *Column) Accept(v Visitor) any { return v.VisitColumn(n) }

func (n *Column) String() string {
	s := n.Name
	if n.Qualifier != "" {
		s = n.Qualifier + "." + s
	}
	if n.Alias != "" {
		s += " AS " + n.Alias
	}
	return s
}

// Table is a table reference with zero or more joins (spec §3:
// Table{name, alias?, joins[]}).
type Table struct {
	Name  string
	Alias string
	Joins []*Join
}

func (n *Table) Accept(v Visitor) any { return v.VisitTable(n) }

func (n *Table) String() string {
	s := n.Name
	if n.Alias != "" {
		s += " AS " + n.Alias
	}
	for _, j := range n.Joins {
		s += " " + j.String()
	}
	return s
}

// Join is a JOIN clause; Kind is always "INNER" (spec §3: Join{table, on,
// kind∈{INNER}}).
type Join struct {
	Table *Table
	On    *Condition
	Kind  string
}

func (n *Join) Accept(v Visitor) any { return v.VisitJoin(n) }

func (n *Join) String() string {
	return fmt.Sprintf("JOIN %s ON %s", n.Table.String(), n.On.String())
}

// Where wraps the top-level WHERE predicate.
type Where struct {
	Condition *Condition
}

func (n *Where) Accept(v Visitor) any { return v.VisitWhere(n) }

func (n *Where) String() string {
	return "WHERE " + n.Condition.String()
}

// Condition is a binary node whose Left/Right may themselves be nested
// Conditions (forming AND/OR trees), Columns, or Literals (spec §3:
// Condition{left, op, right} — a sum type over SQLNode operands).
type Condition struct {
	Left     Node
	Operator string
	Right    Node
}

func (n *Condition) Accept(v Visitor) any { return v.VisitCondition(n) }

func (n *Condition) String() string {
	_, leftIsCond := n.Left.(*Condition)
	_, rightIsCond := n.Right.(*Condition)
	left, right := n.Left.String(), n.Right.String()
	if leftIsCond {
		left = "(" + left + ")"
	}
	if rightIsCond {
		right = "(" + right + ")"
	}
	return fmt.Sprintf("%s %s %s", left, n.Operator, right)
}

// Insert, Update, and Delete are recognized but not executable (spec
// Non-goals: "no SQL DDL execution"). They exist so the validator's
// Security rule has a concrete AST to check write permissions against —
// the spec's security seed test requires a DELETE to be parsed far enough
// to reach permission checking before being denied, rather than failing
// earlier as a plain syntax error.

// Insert is an INSERT INTO ... VALUES (...) statement.
type Insert struct {
	Table   *Table
	Columns []string
	Values  []Node
}

func (n *Insert) Accept(v Visitor) any { return v.VisitInsert(n) }

func (n *Insert) String() string {
	vals := make([]string, len(n.Values))
	for i, val := range n.Values {
		vals[i] = val.String()
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		n.Table.String(), strings.Join(n.Columns, ", "), strings.Join(vals, ", "))
}

// Assignment is one `column = value` pair in an UPDATE's SET clause.
type Assignment struct {
	Column string
	Value  Node
}

func (a Assignment) String() string {
	return a.Column + " = " + a.Value.String()
}

// Update is an UPDATE ... SET ... WHERE ... statement.
type Update struct {
	Table       *Table
	Assignments []Assignment
	Where       *Where
}

func (n *Update) Accept(v Visitor) any { return v.VisitUpdate(n) }

func (n *Update) String() string {
	sets := make([]string, len(n.Assignments))
	for i, a := range n.Assignments {
		sets[i] = a.String()
	}
	s := fmt.Sprintf("UPDATE %s SET %s", n.Table.String(), strings.Join(sets, ", "))
	if n.Where != nil {
		s += " " + n.Where.String()
	}
	return s
}

// Delete is a DELETE FROM ... WHERE ... statement.
type Delete struct {
	Table *Table
	Where *Where
}

func (n *Delete) Accept(v Visitor) any { return v.VisitDelete(n) }

func (n *Delete) String() string {
	s := "DELETE FROM " + n.Table.String()
	if n.Where != nil {
		s += " " + n.Where.String()
	}
	return s
}

// Literal is a scalar value appearing in a condition (number, string,
// boolean, or null). Go's Condition generalizes the original's
// parse_expression (which only ever returned a ColumnNode) to support
// literal comparisons such as `age > 18`.
type Literal struct {
	Value any // float64, string, bool, or nil
}

func (n *Literal) Accept(v Visitor) any { return nil }

func (n *Literal) String() string {
	switch val := n.Value.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	default:
		return fmt.Sprintf("%v", val)
	}
}
