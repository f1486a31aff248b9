package queryfe

import (
	"strconv"
	"strings"

	"github.com/canonica-labs/lakequery/internal/errors"
	"github.com/canonica-labs/lakequery/internal/lexer"
)

// DocParser implements Parser for the document/NoSQL dialect. Grounded on
// original_source's NoSQLParser (parse_query/parse_filters/
// parse_projections/parse_sort/parse_value/parse_number).
type DocParser struct{}

// NewDocParser constructs the document dialect parser.
func NewDocParser() *DocParser { return &DocParser{} }

func (p *DocParser) Parse(text string) ParseResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ParseResult{Errors: []*errors.TaxonomyError{
			errors.NewSyntaxError(text, 1, 1, "empty query"),
		}}
	}

	sc := lexer.NewScanner(trimmed, lexer.DocKeywords, true)
	st := &docParserState{tokens: sc.Tokenize(), raw: text}
	ast := st.parseQuery()
	return ParseResult{AST: ast, Errors: st.errs}
}

type docParserState struct {
	tokens []lexer.Token
	pos    int
	errs   []*errors.TaxonomyError
	raw    string
}

func (s *docParserState) fail(detail string) {
	t := s.peek()
	s.errs = append(s.errs, errors.NewSyntaxError(s.raw, t.Line, t.Column, detail))
}

func (s *docParserState) parseQuery() *Query {
	if !s.consume(lexer.SELECT, "expected FIND") {
		return nil
	}
	if !s.consume(lexer.FROM, "expected IN") {
		return nil
	}
	if !s.check(lexer.IDENTIFIER) {
		s.fail("expected collection name")
		return nil
	}
	collection := s.advance().Lexeme

	q := &Query{Collection: collection, Sort: map[string]int{}}

	for !s.atEnd() {
		switch {
		case s.match(lexer.WHERE):
			f := s.parseFilters()
			if f == nil {
				return nil
			}
			q.Filter = f
		case s.matchKeyword("PROJECT"):
			fields := s.parseIdentList()
			if fields == nil {
				return nil
			}
			q.Projections = fields
		case s.match(lexer.ORDER_BY):
			sort := s.parseSort()
			if sort == nil {
				return nil
			}
			q.Sort = sort
		case s.matchKeyword("LIMIT"):
			n, ok := s.parseNonNegativeInt()
			if !ok {
				s.fail("LIMIT must be a non-negative integer")
				return nil
			}
			q.Limit = &n
		case s.matchKeyword("SKIP"):
			n, ok := s.parseNonNegativeInt()
			if !ok {
				s.fail("SKIP must be a non-negative integer")
				return nil
			}
			q.Skip = &n
		default:
			goto done
		}
	}
done:
	return q
}

func (s *docParserState) parseFilters() *Filter {
	if !s.check(lexer.IDENTIFIER) {
		s.fail("expected field name")
		return nil
	}
	field := s.advance().Lexeme
	op := s.parseFilterOperator()
	if op == "" {
		s.fail("expected filter operator")
		return nil
	}
	value, ok := s.parseValue()
	if !ok {
		s.fail("expected filter value")
		return nil
	}

	f := &Filter{Field: field, Operator: op, Value: value}

	if s.match(lexer.AND) {
		next := s.parseFilters()
		if next == nil {
			return nil
		}
		f.LogicalOp = "AND"
		f.NextFilter = next
	} else if s.match(lexer.OR) {
		next := s.parseFilters()
		if next == nil {
			return nil
		}
		f.LogicalOp = "OR"
		f.NextFilter = next
	}

	return f
}

func (s *docParserState) parseFilterOperator() string {
	switch {
	case s.match(lexer.EQUALS):
		return "="
	case s.match(lexer.NOT_EQUALS):
		return "!="
	case s.match(lexer.LESS_EQUALS):
		return "<="
	case s.match(lexer.LESS_THAN):
		return "<"
	case s.match(lexer.GREATER_EQUALS):
		return ">="
	case s.match(lexer.GREATER_THAN):
		return ">"
	default:
		return ""
	}
}

func (s *docParserState) parseIdentList() []string {
	var fields []string
	for {
		if !s.check(lexer.IDENTIFIER) {
			s.fail("expected field name")
			return nil
		}
		fields = append(fields, s.advance().Lexeme)
		if !s.match(lexer.COMMA) {
			break
		}
	}
	return fields
}

func (s *docParserState) parseSort() map[string]int {
	sort := map[string]int{}
	for {
		if !s.check(lexer.IDENTIFIER) {
			s.fail("expected field name in SORT")
			return nil
		}
		field := s.advance().Lexeme
		direction := 1
		if s.matchKeyword("DESC") {
			direction = -1
		} else {
			s.matchKeyword("ASC")
		}
		sort[field] = direction
		if !s.match(lexer.COMMA) {
			break
		}
	}
	return sort
}

func (s *docParserState) parseValue() (any, bool) {
	t := s.peek()
	switch t.Kind {
	case lexer.NUMBER:
		s.advance()
		f, _ := strconv.ParseFloat(t.Lexeme, 64)
		return f, true
	case lexer.STRING:
		s.advance()
		return unquote(t.Lexeme), true
	case lexer.BOOLEAN:
		s.advance()
		return strings.EqualFold(t.Lexeme, "TRUE"), true
	case lexer.NULL:
		s.advance()
		return nil, true
	case lexer.IDENTIFIER:
		s.advance()
		return t.Lexeme, true
	default:
		return nil, false
	}
}

// parseNonNegativeInt parses a LIMIT/SKIP argument. Grounded on
// NoSQLParser.parse_number, which only accepts a NUMBER token; negative
// values are rejected here directly (the original post-hoc-validates in
// validate_query, this parser enforces it at parse time per spec §4.1).
func (s *docParserState) parseNonNegativeInt() (int, bool) {
	if !s.check(lexer.NUMBER) {
		return 0, false
	}
	t := s.advance()
	n, err := strconv.Atoi(t.Lexeme)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *docParserState) consume(kind lexer.Kind, message string) bool {
	if s.check(kind) {
		s.advance()
		return true
	}
	s.fail(message)
	return false
}

func (s *docParserState) match(kind lexer.Kind) bool {
	if s.check(kind) {
		s.advance()
		return true
	}
	return false
}

func (s *docParserState) matchKeyword(keyword string) bool {
	if s.check(lexer.IDENTIFIER) && strings.EqualFold(s.peek().Lexeme, keyword) {
		s.advance()
		return true
	}
	return false
}

func (s *docParserState) check(kind lexer.Kind) bool {
	if s.atEnd() {
		return false
	}
	return s.peek().Kind == kind
}

func (s *docParserState) advance() lexer.Token {
	if !s.atEnd() {
		s.pos++
	}
	return s.previous()
}

func (s *docParserState) peek() lexer.Token  { return s.tokens[s.pos] }
func (s *docParserState) previous() lexer.Token { return s.tokens[s.pos-1] }
func (s *docParserState) atEnd() bool        { return s.peek().Kind == lexer.EOF }
