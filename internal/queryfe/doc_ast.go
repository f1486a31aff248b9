package queryfe

import (
	"fmt"
	"sort"
	"strings"
)

// Query is the document dialect's root node (spec §3: Query{collection,
// filter?, projection[], sort{field→±1}, limit?, skip?}).
type Query struct {
	Collection  string
	Filter      *Filter
	Projections []string
	Sort        map[string]int
	Limit       *int
	Skip        *int
}

func (n *Query) Accept(v Visitor) any { return v.VisitQuery(n) }

func (n *Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "FIND IN %s", n.Collection)
	if n.Filter != nil {
		b.WriteString(" WHERE ")
		b.WriteString(n.Filter.String())
	}
	if len(n.Projections) > 0 {
		b.WriteString(" PROJECT ")
		b.WriteString(strings.Join(n.Projections, ", "))
	}
	if len(n.Sort) > 0 {
		fields := make([]string, 0, len(n.Sort))
		for f := range n.Sort {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		terms := make([]string, len(fields))
		for i, f := range fields {
			if n.Sort[f] < 0 {
				terms[i] = f + " DESC"
			} else {
				terms[i] = f + " ASC"
			}
		}
		b.WriteString(" SORT ")
		b.WriteString(strings.Join(terms, ", "))
	}
	if n.Limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *n.Limit)
	}
	if n.Skip != nil {
		fmt.Fprintf(&b, " SKIP %d", *n.Skip)
	}
	return b.String()
}

// Filter is a single field predicate, optionally chained to the next
// filter by a logical operator (spec §3: Filter{field, op, value, chain?:
// {logical∈{AND,OR}, next}}).
type Filter struct {
	Field      string
	Operator   string
	Value      any
	LogicalOp  string
	NextFilter *Filter
}

func (n *Filter) Accept(v Visitor) any { return v.VisitFilter(n) }

func (n *Filter) String() string {
	s := fmt.Sprintf("%s %s %s", n.Field, n.Operator, literalString(n.Value))
	if n.LogicalOp != "" && n.NextFilter != nil {
		s += " " + n.LogicalOp + " " + n.NextFilter.String()
	}
	return s
}

func literalString(v any) string {
	return (&Literal{Value: v}).String()
}
