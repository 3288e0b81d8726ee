// Package llvm models the values and static formats the code generator works
// with, and builds them into an llir module that prints as LLVM IR.
package llvm

import (
	"strings"

	"github.com/llir/llvm/ir/types"
)

// RegisterFormat is the compiler's static type tag. The set of formats is
// closed: Void, Null, Integer, Boolean, Identifier, Pointer and Function.
type RegisterFormat interface {
	// LLType returns the LLVM type values of this format are stored as.
	LLType() types.Type
	String() string

	isRegisterFormat()
}

type basicFormat int

const (
	Void basicFormat = iota
	Null
	Integer
	Boolean
)

func (basicFormat) isRegisterFormat() {}

func (f basicFormat) LLType() types.Type {
	switch f {
	case Integer:
		return types.I64
	case Boolean:
		return types.I1
	case Null:
		return types.NewPointer(types.I8)
	}
	return types.Void
}

func (f basicFormat) String() string {
	switch f {
	case Integer:
		return "int"
	case Boolean:
		return "bool"
	case Null:
		return "null"
	}
	return "void"
}

// Identifier is a transparent alias for another format.
type Identifier struct {
	Aliased RegisterFormat
}

func (Identifier) isRegisterFormat()    {}
func (f Identifier) LLType() types.Type { return f.Aliased.LLType() }
func (f Identifier) String() string     { return f.Aliased.String() }

type Pointer struct {
	Pointee RegisterFormat
}

func (Pointer) isRegisterFormat() {}

func (f Pointer) LLType() types.Type {
	return types.NewPointer(f.Pointee.LLType())
}

func (f Pointer) String() string { return f.Pointee.String() + "*" }

type Function struct {
	Signature Signature
}

func (Function) isRegisterFormat() {}

func (f Function) LLType() types.Type {
	return types.NewPointer(f.Signature.LLType())
}

func (f Function) String() string { return "fn" + f.Signature.String() }

// Signature is a function's parameter formats and return format.
type Signature struct {
	Params []RegisterFormat
	Return RegisterFormat
}

func (s Signature) LLType() *types.FuncType {
	params := make([]types.Type, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.LLType()
	}
	return types.NewFunc(s.Return.LLType(), params...)
}

func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	return "(" + strings.Join(params, ", ") + ") -> " + s.Return.String()
}

func (s Signature) Equal(o Signature) bool {
	if len(s.Params) != len(o.Params) || !Equal(s.Return, o.Return) {
		return false
	}
	for i := range s.Params {
		if !Equal(s.Params[i], o.Params[i]) {
			return false
		}
	}
	return true
}

// Underlying strips any Identifier aliases from f.
func Underlying(f RegisterFormat) RegisterFormat {
	for {
		id, ok := f.(Identifier)
		if !ok {
			return f
		}
		f = id.Aliased
	}
}

// Equal reports whether two formats are structurally identical.
func Equal(a, b RegisterFormat) bool {
	a, b = Underlying(a), Underlying(b)
	switch a := a.(type) {
	case basicFormat:
		b, ok := b.(basicFormat)
		return ok && a == b
	case Pointer:
		b, ok := b.(Pointer)
		return ok && Equal(a.Pointee, b.Pointee)
	case Function:
		b, ok := b.(Function)
		return ok && a.Signature.Equal(b.Signature)
	}
	return false
}

// CanConvertTo reports whether a value of format from may be used where
// format to is expected. Every pair except Pointer to Boolean shares its
// representation; that one needs a null check, see Generator.Coerce.
func CanConvertTo(from, to RegisterFormat) bool {
	if Equal(from, to) {
		return true
	}
	from, to = Underlying(from), Underlying(to)
	switch from.(type) {
	case Pointer:
		return to == Boolean
	case basicFormat:
		_, isPtr := to.(Pointer)
		return from == Null && isPtr
	}
	return false
}

// CanCompareTo reports whether two formats may be ordered or tested for
// equality against each other. The relation is symmetric.
func CanCompareTo(a, b RegisterFormat) bool {
	a, b = Underlying(a), Underlying(b)
	return a == Integer && b == Integer
}

// IsPointer reports whether f is a Pointer and returns its pointee.
func IsPointer(f RegisterFormat) (RegisterFormat, bool) {
	p, ok := Underlying(f).(Pointer)
	if !ok {
		return nil, false
	}
	return p.Pointee, true
}

// Align is the stack alignment, in bytes, for slots holding f.
func Align(f RegisterFormat) int {
	switch Underlying(f) {
	case Boolean:
		return 1
	}
	return 8
}
