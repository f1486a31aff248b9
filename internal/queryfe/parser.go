package queryfe

import (
	"fmt"

	"github.com/canonica-labs/lakequery/internal/errors"
)

// ParseResult is the C1 contract: parse(dialect, text) → (AST?, Errors[])
// (spec §4.1). AST is nil when parsing failed outright; Errors is always
// populated on failure and empty on success.
type ParseResult struct {
	AST    Node
	Errors []*errors.TaxonomyError
}

// Parser is implemented by each dialect's parser.
type Parser interface {
	Parse(text string) ParseResult
}

// Registry looks dialects up by name (spec §4.1: "unknown dialect ⇒ fatal
// error... new dialects register by name without modifying existing
// ones"). Grounded on the teacher's AdapterRegistry
// (internal/federation/executor.go) register/get/list pattern.
type Registry struct {
	parsers map[Dialect]Parser
}

// NewRegistry constructs a registry pre-populated with the SQL and
// document dialect parsers.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[Dialect]Parser)}
	r.Register(DialectSQL, NewSQLParser())
	r.Register(DialectDoc, NewDocParser())
	return r
}

// Register adds or replaces the parser for a dialect name.
func (r *Registry) Register(dialect Dialect, p Parser) {
	r.parsers[dialect] = p
}

// Parse looks up the dialect's parser and runs it. An unknown dialect
// produces a single fatal syntax error rather than panicking.
func (r *Registry) Parse(dialect Dialect, text string) ParseResult {
	p, ok := r.parsers[dialect]
	if !ok {
		return ParseResult{Errors: []*errors.TaxonomyError{
			errors.NewSyntaxError(text, 1, 1, fmt.Sprintf("unknown dialect %q", dialect)),
		}}
	}
	return p.Parse(text)
}

// List returns the names of every registered dialect.
func (r *Registry) List() []Dialect {
	names := make([]Dialect, 0, len(r.parsers))
	for d := range r.parsers {
		names = append(names, d)
	}
	return names
}
