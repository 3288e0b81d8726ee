package types

import (
	"fmt"
	"strconv"
)

type Position struct {
	Line     int
	Column   int
	Filename string
}

type Span struct {
	From Position
	To   Position
}

type TokenKind int

const (
	EOF TokenKind = iota
	ILLEGAL

	INT
	IDENT

	// punctuation
	COLON
	SEMICOLON
	COMMA
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	ARROW

	// operators
	PLUS
	MINUS
	ASTERISK
	SLASH
	AMPERSAND
	ASSIGN
	EQ
	NE
	LT
	LE
	GT
	GE

	// keywords
	FN
	LET
	IF
	ELSE
	WHILE
	RETURN
	PRINT
)

var kindNames = map[TokenKind]string{
	EOF:       "EOF",
	ILLEGAL:   "ILLEGAL",
	INT:       "INT",
	IDENT:     "IDENT",
	COLON:     ":",
	SEMICOLON: ";",
	COMMA:     ",",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	ARROW:     "->",
	PLUS:      "+",
	MINUS:     "-",
	ASTERISK:  "*",
	SLASH:     "/",
	AMPERSAND: "&",
	ASSIGN:    "=",
	EQ:        "==",
	NE:        "!=",
	LT:        "<",
	LE:        "<=",
	GT:        ">",
	GE:        ">=",
	FN:        "fn",
	LET:       "let",
	IF:        "if",
	ELSE:      "else",
	WHILE:     "while",
	RETURN:    "return",
	PRINT:     "print",
}

func (t TokenKind) String() string {
	if name, ok := kindNames[t]; ok {
		return name
	}
	return "TokenKind(" + strconv.Itoa(int(t)) + ")"
}

// Operators lists every operator and punctuation token by its source text.
// The lexer matches against this table, longest text first.
var Operators = map[string]TokenKind{
	":":  COLON,
	";":  SEMICOLON,
	",":  COMMA,
	"(":  LPAREN,
	")":  RPAREN,
	"{":  LBRACE,
	"}":  RBRACE,
	"->": ARROW,
	"+":  PLUS,
	"-":  MINUS,
	"*":  ASTERISK,
	"/":  SLASH,
	"&":  AMPERSAND,
	"=":  ASSIGN,
	"==": EQ,
	"!=": NE,
	"<":  LT,
	"<=": LE,
	">":  GT,
	">=": GE,
}

// Keywords maps reserved words to their dedicated token kinds.
var Keywords = map[string]TokenKind{
	"fn":     FN,
	"let":    LET,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"return": RETURN,
	"print":  PRINT,
}

func (p Position) String() string {
	if p.Filename == "" {
		p.Filename = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%d:%d", s.From, s.To.Line, s.To.Column)
}

func SingleCharSpan(p Position) Span {
	return Span{p, p}
}

// Token is a single lexical unit. Literal holds the source text for INT and
// IDENT tokens and is empty otherwise; Value holds the parsed integer for INT.
type Token struct {
	Kind     TokenKind
	Literal  string
	Value    int64
	Location Span
}

// Equal compares tokens structurally, ignoring where they were found.
func (t Token) Equal(o Token) bool {
	return t.Kind == o.Kind && t.Literal == o.Literal && t.Value == o.Value
}

func (t Token) Is(kinds ...TokenKind) bool {
	for _, k := range kinds {
		if t.Kind == k {
			return true
		}
	}
	return false
}

func (t Token) String() string {
	switch t.Kind {
	case INT:
		return strconv.FormatInt(t.Value, 10)
	case IDENT:
		return t.Literal
	}
	return t.Kind.String()
}
