package lexer

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/pontaoski/icd/errors"
	"github.com/pontaoski/icd/types"
)

func scanKinds(t *testing.T, src string) []types.TokenKind {
	t.Helper()

	tokens, err := NewLexer(strings.NewReader(src), "test").ScanAll()
	if err != nil {
		t.Fatalf("scanning %q: %s", src, err)
	}
	kinds := make([]types.TokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	return kinds
}

func equalKinds(a, b []types.TokenKind) bool {
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

func TestOperatorsRoundTrip(t *testing.T) {
	for text, kind := range types.Operators {
		got := scanKinds(t, text)
		want := []types.TokenKind{kind, types.EOF}
		if !equalKinds(got, want) {
			t.Errorf("%q: got %v, want %v", text, got, want)
		}
	}
}

func TestLongestMatch(t *testing.T) {
	tests := []struct {
		src  string
		want []types.TokenKind
	}{
		{"==", []types.TokenKind{types.EQ, types.EOF}},
		{"= =", []types.TokenKind{types.ASSIGN, types.ASSIGN, types.EOF}},
		{"a==b", []types.TokenKind{types.IDENT, types.EQ, types.IDENT, types.EOF}},
		{"a<=b", []types.TokenKind{types.IDENT, types.LE, types.IDENT, types.EOF}},
		{"a<b", []types.TokenKind{types.IDENT, types.LT, types.IDENT, types.EOF}},
		{"x=(y)", []types.TokenKind{types.IDENT, types.ASSIGN, types.LPAREN, types.IDENT, types.RPAREN, types.EOF}},
		{"-> int", []types.TokenKind{types.ARROW, types.IDENT, types.EOF}},
		{"a-1", []types.TokenKind{types.IDENT, types.MINUS, types.INT, types.EOF}},
		{"a!=b", []types.TokenKind{types.IDENT, types.NE, types.IDENT, types.EOF}},
		{"*&x", []types.TokenKind{types.ASTERISK, types.AMPERSAND, types.IDENT, types.EOF}},
		{"f(a,b);", []types.TokenKind{types.IDENT, types.LPAREN, types.IDENT, types.COMMA, types.IDENT, types.RPAREN, types.SEMICOLON, types.EOF}},
		{"){", []types.TokenKind{types.RPAREN, types.LBRACE, types.EOF}},
	}

	for _, test := range tests {
		if got := scanKinds(t, test.src); !equalKinds(got, test.want) {
			t.Errorf("%q: got %v, want %v", test.src, got, test.want)
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	l := NewLexer(strings.NewReader("fn let if else while return print lets _x9 fnord Zed_1"), "test")
	tokens, err := l.ScanAll()
	if err != nil {
		t.Fatal(err)
	}

	want := []types.Token{
		{Kind: types.FN},
		{Kind: types.LET},
		{Kind: types.IF},
		{Kind: types.ELSE},
		{Kind: types.WHILE},
		{Kind: types.RETURN},
		{Kind: types.PRINT},
		{Kind: types.IDENT, Literal: "lets"},
		{Kind: types.IDENT, Literal: "_x9"},
		{Kind: types.IDENT, Literal: "fnord"},
		{Kind: types.IDENT, Literal: "Zed_1"},
		{Kind: types.EOF},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i := range want {
		if !tokens[i].Equal(want[i]) {
			t.Errorf("token %d: got %s, want %s", i, tokens[i], want[i])
		}
	}
}

func TestIntegers(t *testing.T) {
	tokens, err := NewLexer(strings.NewReader("0 42 9000000000;"), "test").ScanAll()
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{0, 42, 9000000000}
	for i, v := range want {
		if tokens[i].Kind != types.INT || tokens[i].Value != v {
			t.Errorf("token %d: got %s, want %d", i, tokens[i], v)
		}
	}
	if tokens[3].Kind != types.SEMICOLON {
		t.Errorf("integer swallowed the following token: %s", tokens[3])
	}
}

func TestComments(t *testing.T) {
	src := "// leading\nlet x = 4 / 2; // trailing\n// last line without newline"
	got := scanKinds(t, src)
	want := []types.TokenKind{types.LET, types.IDENT, types.ASSIGN, types.INT, types.SLASH, types.INT, types.SEMICOLON, types.EOF}
	if !equalKinds(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEOFIsSticky(t *testing.T) {
	l := NewLexer(strings.NewReader("x"), "test")
	if tok, _ := l.Scan(); tok.Kind != types.IDENT {
		t.Fatalf("got %s, want IDENT", tok)
	}
	for i := 0; i < 3; i++ {
		tok, err := l.Scan()
		if err != nil || tok.Kind != types.EOF {
			t.Fatalf("scan %d after end: got %s, %v", i, tok, err)
		}
	}
}

func TestUnknownToken(t *testing.T) {
	for _, src := range []string{"!", "a ! b", "$", "#x", "é", "let café = 1;", "fn 名前() {}", "x٣"} {
		_, err := NewLexer(strings.NewReader(src), "test").ScanAll()

		var unknown errors.UnknownToken
		if !stderrors.As(err, &unknown) {
			t.Errorf("%q: got %v, want UnknownToken", src, err)
		}
	}
}

func TestPositions(t *testing.T) {
	tokens, err := NewLexer(strings.NewReader("let abc\n  == 12"), "pos.src").ScanAll()
	if err != nil {
		t.Fatal(err)
	}

	want := []types.Span{
		{From: types.Position{Line: 1, Column: 1, Filename: "pos.src"}, To: types.Position{Line: 1, Column: 3, Filename: "pos.src"}},
		{From: types.Position{Line: 1, Column: 5, Filename: "pos.src"}, To: types.Position{Line: 1, Column: 7, Filename: "pos.src"}},
		{From: types.Position{Line: 2, Column: 3, Filename: "pos.src"}, To: types.Position{Line: 2, Column: 4, Filename: "pos.src"}},
		{From: types.Position{Line: 2, Column: 6, Filename: "pos.src"}, To: types.Position{Line: 2, Column: 7, Filename: "pos.src"}},
	}
	for i, span := range want {
		if tokens[i].Location != span {
			t.Errorf("token %d (%s): got %s, want %s", i, tokens[i], tokens[i].Location, span)
		}
	}
}
