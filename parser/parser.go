// Package parser builds syntax trees from a token stream, one top-level
// function at a time. Expressions use precedence climbing; statements and
// functions are plain recursive descent.
package parser

import (
	"github.com/pontaoski/icd/ast"
	"github.com/pontaoski/icd/errors"
	"github.com/pontaoski/icd/lexer"
	"github.com/pontaoski/icd/types"
)

// precedence binds every binary operator; higher binds tighter.
var precedence = map[types.TokenKind]int{
	types.ASTERISK: 12,
	types.SLASH:    12,
	types.PLUS:     11,
	types.MINUS:    11,
	types.LT:       10,
	types.LE:       10,
	types.GT:       10,
	types.GE:       10,
	types.EQ:       9,
	types.NE:       9,
	types.ASSIGN:   1,
}

var rightAssociative = map[types.TokenKind]bool{
	types.ASSIGN: true,
}

// finishers end an expression without being part of it.
var finishers = []types.TokenKind{
	types.SEMICOLON,
	types.LBRACE,
	types.RBRACE,
	types.RPAREN,
	types.COMMA,
	types.EOF,
}

// Precedence returns the binding strength of a binary operator.
func Precedence(k types.TokenKind) (int, bool) {
	p, ok := precedence[k]
	return p, ok
}

type Parser struct {
	l       *lexer.Lexer
	current types.Token
}

// New primes the parser with its first token of lookahead.
func New(l *lexer.Lexer) (*Parser, error) {
	p := &Parser{l: l}
	if err := p.scanNext(); err != nil {
		return nil, err
	}
	return p, nil
}

// Current is the token of lookahead.
func (p *Parser) Current() types.Token {
	return p.current
}

func (p *Parser) scanNext() error {
	tok, err := p.l.Scan()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

// expect checks the lookahead against kinds without consuming it.
func (p *Parser) expect(kinds ...types.TokenKind) (types.Token, error) {
	if p.current.Is(kinds...) {
		return p.current, nil
	}
	if p.current.Kind == types.EOF {
		return types.Token{}, errors.UnexpectedEOF{Expected: kinds[0], Location: p.current.Location}
	}
	return types.Token{}, errors.InvalidToken{Expected: kinds, Received: p.current}
}

// consume is expect followed by a scan past the matched token.
func (p *Parser) consume(kinds ...types.TokenKind) (types.Token, error) {
	tok, err := p.expect(kinds...)
	if err != nil {
		return tok, err
	}
	return tok, p.scanNext()
}

func (p *Parser) consumeIdentifier() (string, error) {
	if p.current.Kind != types.IDENT {
		return "", errors.IdentifierExpected{Received: p.current}
	}
	name := p.current.Literal
	return name, p.scanNext()
}

// ParseGlobalStatement parses one function definition. It returns nil at
// end of file.
func (p *Parser) ParseGlobalStatement() (ast.Node, error) {
	if p.current.Kind == types.EOF {
		return nil, nil
	}

	if p.current.Kind != types.FN {
		return nil, errors.InvalidIdentifier{Expected: []string{types.FN.String()}, Received: p.current}
	}
	if err := p.scanNext(); err != nil {
		return nil, err
	}

	name, err := p.consumeIdentifier()
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(types.LPAREN); err != nil {
		return nil, err
	}

	var params []ast.FunctionParameter
	if p.current.Kind != types.RPAREN {
		for {
			pname, err := p.consumeIdentifier()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(types.COLON); err != nil {
				return nil, err
			}
			kind, err := p.ParseType()
			if err != nil {
				return nil, err
			}
			params = append(params, ast.FunctionParameter{Name: pname, Type: kind})

			if p.current.Kind != types.COMMA {
				break
			}
			if err := p.scanNext(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.consume(types.RPAREN); err != nil {
		return nil, err
	}

	var returns ast.Type = ast.Void{}
	if p.current.Kind == types.ARROW {
		if err := p.scanNext(); err != nil {
			return nil, err
		}
		if returns, err = p.ParseType(); err != nil {
			return nil, err
		}
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return ast.FunctionDefinition{
		Name:       name,
		Parameters: params,
		Body:       body,
		Returns:    returns,
	}, nil
}

// ParseStatement parses one statement inside a function body. It returns
// nil at end of file or at the closing brace of the enclosing block.
func (p *Parser) ParseStatement() (ast.Node, error) {
	switch p.current.Kind {
	case types.EOF, types.RBRACE:
		return nil, nil
	case types.LET:
		return p.parseLet()
	case types.PRINT:
		if err := p.scanNext(); err != nil {
			return nil, err
		}
		expr, err := p.ParseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(types.SEMICOLON); err != nil {
			return nil, err
		}
		return ast.Print{Value: expr}, nil
	case types.IF:
		return p.parseIf()
	case types.WHILE:
		if err := p.scanNext(); err != nil {
			return nil, err
		}
		cond, err := p.ParseExpression(0)
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return ast.While{Condition: cond, Body: body}, nil
	case types.RETURN:
		if err := p.scanNext(); err != nil {
			return nil, err
		}
		var val ast.Node
		if p.current.Kind != types.SEMICOLON {
			expr, err := p.ParseExpression(0)
			if err != nil {
				return nil, err
			}
			val = expr
		}
		if _, err := p.consume(types.SEMICOLON); err != nil {
			return nil, err
		}
		return ast.Return{Value: val}, nil
	}

	expr, err := p.ParseExpression(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(types.SEMICOLON); err != nil {
		return nil, err
	}
	return expr, nil
}

// let name [: Type] [= expr];
func (p *Parser) parseLet() (ast.Node, error) {
	if err := p.scanNext(); err != nil {
		return nil, err
	}

	name, err := p.consumeIdentifier()
	if err != nil {
		return nil, err
	}
	let := ast.Let{Name: name}

	if p.current.Kind == types.COLON {
		if err := p.scanNext(); err != nil {
			return nil, err
		}
		if let.Type, err = p.ParseType(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(types.ASSIGN, types.SEMICOLON); err != nil {
		return nil, err
	}
	if p.current.Kind == types.ASSIGN {
		if err := p.scanNext(); err != nil {
			return nil, err
		}
		if let.Value, err = p.ParseExpression(0); err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(types.SEMICOLON); err != nil {
		return nil, err
	}
	return let, nil
}

// if expr block [else (block | if ...)]
func (p *Parser) parseIf() (ast.Node, error) {
	if err := p.scanNext(); err != nil {
		return nil, err
	}
	cond, err := p.ParseExpression(0)
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	node := ast.If{Condition: cond, Then: then}
	if p.current.Kind != types.ELSE {
		return node, nil
	}
	if err := p.scanNext(); err != nil {
		return nil, err
	}

	if p.current.Kind == types.IF {
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		node.Else = ast.Block{nested}
		return node, nil
	}

	if node.Else, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return node, nil
}

// parseBlock parses { statement* }. The result is never nil.
func (p *Parser) parseBlock() (ast.Block, error) {
	if _, err := p.consume(types.LBRACE); err != nil {
		return nil, err
	}

	statements := ast.Block{}
	for p.current.Kind != types.RBRACE {
		if p.current.Kind == types.EOF {
			return nil, errors.UnexpectedEOF{Expected: types.RBRACE, Location: p.current.Location}
		}
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	return statements, p.scanNext()
}

// ParseExpression climbs precedence starting above prev. Operators that
// bind at exactly prev continue only when right associative, which makes
// a = b = c parse as a = (b = c).
func (p *Parser) ParseExpression(prev int) (ast.Node, error) {
	left, err := p.parseTerminal()
	if err != nil {
		return nil, err
	}

	for {
		op := p.current
		if op.Is(finishers...) {
			return left, nil
		}

		prec, ok := precedence[op.Kind]
		if !ok {
			return nil, errors.BinaryOperatorExpected{Received: op}
		}
		if prec < prev || (prec == prev && !rightAssociative[op.Kind]) {
			return left, nil
		}

		if err := p.scanNext(); err != nil {
			return nil, err
		}
		right, err := p.ParseExpression(prec)
		if err != nil {
			return nil, err
		}

		left = ast.Binary{Operator: op.Kind, Left: left, Right: right}
	}
}

func (p *Parser) parseTerminal() (ast.Node, error) {
	tok := p.current

	switch tok.Kind {
	case types.LPAREN:
		if err := p.scanNext(); err != nil {
			return nil, err
		}
		expr, err := p.ParseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(types.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case types.ASTERISK, types.AMPERSAND:
		if err := p.scanNext(); err != nil {
			return nil, err
		}
		child, err := p.parseTerminal()
		if err != nil {
			return nil, err
		}
		if tok.Kind == types.ASTERISK {
			return ast.Dereference{Child: child}, nil
		}
		return ast.Reference{Child: child}, nil
	case types.INT:
		return ast.Lit{Literal: ast.Integer(tok.Value)}, p.scanNext()
	case types.IDENT:
		if err := p.scanNext(); err != nil {
			return nil, err
		}
		if p.current.Kind != types.LPAREN {
			return ast.Lit{Literal: ast.Identifier(tok.Literal)}, nil
		}
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		return ast.FunctionCall{Name: tok.Literal, Arguments: args}, nil
	}

	return nil, errors.LiteralExpected{Received: tok}
}

// parseArguments parses (expr, expr, ...) with no trailing comma.
func (p *Parser) parseArguments() ([]ast.Node, error) {
	if _, err := p.consume(types.LPAREN); err != nil {
		return nil, err
	}

	var args []ast.Node
	if p.current.Kind != types.RPAREN {
		for {
			arg, err := p.ParseExpression(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.current.Kind != types.COMMA {
				break
			}
			if err := p.scanNext(); err != nil {
				return nil, err
			}
		}
	}

	_, err := p.consume(types.RPAREN)
	return args, err
}

// ParseType parses a named type followed by any number of '*'.
func (p *Parser) ParseType() (ast.Type, error) {
	if p.current.Kind != types.IDENT {
		return nil, errors.TypeExpected{Received: p.current}
	}

	var t ast.Type = ast.Named(p.current.Literal)
	if err := p.scanNext(); err != nil {
		return nil, err
	}

	for p.current.Kind == types.ASTERISK {
		t = ast.Pointer{Pointee: t}
		if err := p.scanNext(); err != nil {
			return nil, err
		}
	}

	return t, nil
}
