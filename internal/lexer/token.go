// Package lexer provides the single-pass scanner shared by the SQL and
// document query dialects. Both dialects tokenize with the same
// character-class rules and differ only in their keyword table and
// whether brace/bracket literals are scanned.
package lexer

import "fmt"

// Kind is the closed token-kind enumeration (spec §3: Token).
type Kind int

const (
	ERROR Kind = iota
	EOF

	IDENTIFIER
	NUMBER
	STRING
	BOOLEAN
	NULL

	// Keywords. Dialects map their surface syntax onto this shared set so
	// the recursive-descent parsers can share grammar shapes.
	SELECT
	FROM
	WHERE
	GROUP_BY
	ORDER_BY
	HAVING
	JOIN
	ON
	AND
	OR
	NOT
	IN
	LIKE
	INSERT
	UPDATE
	DELETE
	INTO
	VALUES
	SET

	// Operators and delimiters.
	EQUALS
	NOT_EQUALS
	LESS_THAN
	LESS_EQUALS
	GREATER_THAN
	GREATER_EQUALS
	LPAREN
	RPAREN
	COMMA
	DOT
	SEMICOLON
)

var kindNames = map[Kind]string{
	ERROR: "ERROR", EOF: "EOF",
	IDENTIFIER: "IDENTIFIER", NUMBER: "NUMBER", STRING: "STRING",
	BOOLEAN: "BOOLEAN", NULL: "NULL",
	SELECT: "SELECT", FROM: "FROM", WHERE: "WHERE", GROUP_BY: "GROUP_BY",
	ORDER_BY: "ORDER_BY", HAVING: "HAVING", JOIN: "JOIN", ON: "ON",
	AND: "AND", OR: "OR", NOT: "NOT", IN: "IN", LIKE: "LIKE",
	INSERT: "INSERT", UPDATE: "UPDATE", DELETE: "DELETE",
	INTO: "INTO", VALUES: "VALUES", SET: "SET",
	EQUALS: "EQUALS", NOT_EQUALS: "NOT_EQUALS", LESS_THAN: "LESS_THAN",
	LESS_EQUALS: "LESS_EQUALS", GREATER_THAN: "GREATER_THAN",
	GREATER_EQUALS: "GREATER_EQUALS", LPAREN: "LPAREN", RPAREN: "RPAREN",
	COMMA: "COMMA", DOT: "DOT", SEMICOLON: "SEMICOLON",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is immutable once produced by the scanner (spec §3: Token).
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Lexeme, t.Line, t.Column)
}

// KeywordTable maps an upper-cased identifier onto a keyword Kind. Entries
// absent from the table scan as plain IDENTIFIER tokens.
type KeywordTable map[string]Kind

// SQLKeywords is the keyword table for the SQL dialect, grounded on
// SQLLexer.KEYWORDS in the original parser.
var SQLKeywords = KeywordTable{
	"SELECT": SELECT, "FROM": FROM, "WHERE": WHERE,
	"GROUP": GROUP_BY, "ORDER": ORDER_BY, "HAVING": HAVING,
	"JOIN": JOIN, "ON": ON, "AND": AND, "OR": OR, "NOT": NOT,
	"IN": IN, "LIKE": LIKE, "NULL": NULL,
	"TRUE": BOOLEAN, "FALSE": BOOLEAN,
	"INSERT": INSERT, "UPDATE": UPDATE, "DELETE": DELETE,
	"INTO": INTO, "VALUES": VALUES, "SET": SET,
}

// DocKeywords is the keyword table for the document dialect, grounded on
// NoSQLLexer.KEYWORDS. Per the resolved Open Question (spec §9), LIMIT and
// SKIP are NOT keywords here: the original's NoSQLLexer table maps them to
// TokenType.IDENTIFIER and the parser matches them positionally by lexeme
// text (match_keyword), so this table follows that behavior rather than
// the alternative query_parser_nosql entry point that treats them as
// reserved words.
var DocKeywords = KeywordTable{
	"FIND": SELECT, "IN": FROM, "WHERE": WHERE, "SORT": ORDER_BY,
	"AND": AND, "OR": OR, "NOT": NOT, "NULL": NULL,
	"TRUE": BOOLEAN, "FALSE": BOOLEAN,
}
