package lexer

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/pontaoski/icd/errors"
	"github.com/pontaoski/icd/types"
)

type putBack struct {
	r      rune
	before types.Position
}

// Lexer turns a character stream into tokens. Characters can be pushed back
// onto a stack so any lookahead can be undone.
type Lexer struct {
	pos      types.Position
	reader   *bufio.Reader
	putBacks []putBack
	last     putBack
	done     bool
}

func NewLexer(reader io.Reader, filename string) *Lexer {
	return &Lexer{
		pos:    types.Position{Line: 1, Column: 0, Filename: filename},
		reader: bufio.NewReader(reader),
	}
}

// next reads one character. ok is false at end of input.
func (l *Lexer) next() (r rune, ok bool, err error) {
	before := l.pos

	if n := len(l.putBacks); n > 0 {
		pb := l.putBacks[n-1]
		l.putBacks = l.putBacks[:n-1]
		r = pb.r
	} else {
		r, _, err = l.reader.ReadRune()
		if err == io.EOF {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, errors.FileReadError{Path: l.pos.Filename, Cause: err}
		}
	}

	if r == '\n' {
		l.pos.Line++
		l.pos.Column = 0
	} else {
		l.pos.Column++
	}
	l.last = putBack{r, before}

	return r, true, nil
}

// backup undoes the most recent call to next.
func (l *Lexer) backup() {
	l.putBacks = append(l.putBacks, l.last)
	l.pos = l.last.before
}

func (l *Lexer) kinded(t types.TokenKind, from types.Position) types.Token {
	return types.Token{
		Kind:     t,
		Location: types.Span{From: from, To: l.pos},
	}
}

// Identifiers are ASCII only; they become IR names, which LLVM takes
// unquoted only in this alphabet.
func firstChar(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func otherChar(r rune) bool {
	return firstChar(r) || isDigit(r)
}

// Scan returns the next token. Once the input is exhausted every call
// returns an EOF token.
func (l *Lexer) Scan() (types.Token, error) {
	if l.done {
		return l.kinded(types.EOF, l.pos), nil
	}

	r, err := l.skipSpace()
	if err != nil {
		return types.Token{}, err
	}
	if l.done {
		return l.kinded(types.EOF, l.pos), nil
	}

	from := l.pos

	switch {
	case isDigit(r):
		return l.lexInt(r, from)
	case firstChar(r):
		return l.lexIdent(r, from)
	}

	return l.lexOperator(r, from)
}

// skipSpace consumes whitespace and line comments and returns the first
// significant character.
func (l *Lexer) skipSpace() (rune, error) {
	for {
		r, ok, err := l.next()
		if err != nil {
			return 0, err
		}
		if !ok {
			l.done = true
			return 0, nil
		}

		if unicode.IsSpace(r) {
			continue
		}

		if r == '/' {
			c, ok, err := l.next()
			if err != nil {
				return 0, err
			}
			if ok && c == '/' {
				if err := l.skipLine(); err != nil {
					return 0, err
				}
				continue
			}
			if ok {
				l.backup()
			}
		}

		return r, nil
	}
}

func (l *Lexer) skipLine() error {
	for {
		r, ok, err := l.next()
		if err != nil {
			return err
		}
		if !ok || r == '\n' {
			return nil
		}
	}
}

func (l *Lexer) lexInt(r rune, from types.Position) (types.Token, error) {
	var lit strings.Builder
	var value int64

	for {
		lit.WriteRune(r)
		// overflow wraps silently
		value = value*10 + int64(r-'0')

		to := l.pos
		c, ok, err := l.next()
		if err != nil {
			return types.Token{}, err
		}
		if !ok || !isDigit(c) {
			if ok {
				l.backup()
			}
			return types.Token{
				Kind:     types.INT,
				Literal:  lit.String(),
				Value:    value,
				Location: types.Span{From: from, To: to},
			}, nil
		}
		r = c
	}
}

func (l *Lexer) lexIdent(r rune, from types.Position) (types.Token, error) {
	var lit strings.Builder

	for {
		lit.WriteRune(r)

		to := l.pos
		c, ok, err := l.next()
		if err != nil {
			return types.Token{}, err
		}
		if !ok || !otherChar(c) {
			if ok {
				l.backup()
			}
			span := types.Span{From: from, To: to}
			if kind, ok := types.Keywords[lit.String()]; ok {
				return types.Token{Kind: kind, Location: span}, nil
			}
			return types.Token{Kind: types.IDENT, Literal: lit.String(), Location: span}, nil
		}
		r = c
	}
}

// lexOperator performs longest-match lexing over types.Operators. The
// candidate set starts as every operator beginning with r and is narrowed
// one character at a time.
func (l *Lexer) lexOperator(r rune, from types.Position) (types.Token, error) {
	text := string(r)
	candidates := operatorsWithPrefix(nil, text)

	for {
		if len(candidates) == 1 && candidates[0] == text {
			break
		}

		c, ok, err := l.next()
		if err != nil {
			return types.Token{}, err
		}
		if !ok {
			break
		}
		if otherChar(c) || unicode.IsSpace(c) {
			l.backup()
			break
		}

		narrowed := operatorsWithPrefix(candidates, text+string(c))
		if len(narrowed) == 0 {
			l.backup()
			break
		}
		text += string(c)
		candidates = narrowed
	}

	kind, ok := types.Operators[text]
	if !ok {
		return types.Token{}, errors.UnknownToken{
			Received: text,
			Location: types.Span{From: from, To: l.pos},
		}
	}

	return l.kinded(kind, from), nil
}

// operatorsWithPrefix filters from (or every operator when from is nil)
// down to the texts beginning with prefix.
func operatorsWithPrefix(from []string, prefix string) []string {
	if from == nil {
		for text := range types.Operators {
			from = append(from, text)
		}
	}

	var out []string
	for _, text := range from {
		if strings.HasPrefix(text, prefix) {
			out = append(out, text)
		}
	}
	return out
}

// ScanAll scans to the end of input and returns every token, ending with
// the EOF token.
func (l *Lexer) ScanAll() ([]types.Token, error) {
	var ret []types.Token
	for {
		t, err := l.Scan()
		if err != nil {
			return ret, err
		}
		ret = append(ret, t)
		if t.Kind == types.EOF {
			return ret, nil
		}
	}
}
