// Package ast defines the syntax tree built by the parser. Every composite
// node owns its children; nothing is shared.
package ast

import "github.com/pontaoski/icd/types"

type Type interface {
	is_Type()
}

type Named string

func (v Named) is_Type() {}

type Pointer struct {
	Pointee Type
}

func (v Pointer) is_Type() {}

type Void struct{}

func (v Void) is_Type() {}

type Literal interface {
	is_Literal()
}

type Integer int64

func (v Integer) is_Literal() {}

type Identifier string

func (v Identifier) is_Literal() {}

type Node interface {
	is_Node()
}

// Block is a braced statement list. A nil Block means the block is absent.
type Block []Node

type Lit struct {
	Literal
}

func (v Lit) is_Node() {}

type Binary struct {
	Operator types.TokenKind
	Left     Node
	Right    Node
}

func (v Binary) is_Node() {}

// Let declares a local. Type and Value are nil when omitted.
type Let struct {
	Name  string
	Type  Type
	Value Node
}

func (v Let) is_Node() {}

type If struct {
	Condition Node
	Then      Block
	Else      Block
}

func (v If) is_Node() {}

type While struct {
	Condition Node
	Body      Block
}

func (v While) is_Node() {}

type FunctionParameter struct {
	Name string
	Type Type
}

type FunctionDefinition struct {
	Name       string
	Parameters []FunctionParameter
	Body       Block
	Returns    Type
}

func (v FunctionDefinition) is_Node() {}

type FunctionCall struct {
	Name      string
	Arguments []Node
}

func (v FunctionCall) is_Node() {}

// Return carries a nil Value for a bare return.
type Return struct {
	Value Node
}

func (v Return) is_Node() {}

type Print struct {
	Value Node
}

func (v Print) is_Node() {}

type Dereference struct {
	Child Node
}

func (v Dereference) is_Node() {}

type Reference struct {
	Child Node
}

func (v Reference) is_Node() {}
