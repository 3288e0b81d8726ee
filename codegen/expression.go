package codegen

import (
	"github.com/llir/llvm/ir/enum"
	"github.com/pontaoski/icd/ast"
	"github.com/pontaoski/icd/errors"
	"github.com/pontaoski/icd/llvm"
	"github.com/pontaoski/icd/types"
)

var predicates = map[types.TokenKind]enum.IPred{
	types.EQ: enum.IPredEQ,
	types.NE: enum.IPredNE,
	types.LT: enum.IPredSLT,
	types.LE: enum.IPredSLE,
	types.GT: enum.IPredSGT,
	types.GE: enum.IPredSGE,
}

func (g *Generator) generateExpression(n ast.Node) (llvm.Value, error) {
	switch expr := n.(type) {
	case ast.Lit:
		return g.generateLiteral(expr)
	case ast.Binary:
		return g.generateBinary(expr)
	case ast.FunctionCall:
		return g.generateFunctionCall(expr)
	case ast.Dereference:
		return g.generateDeref(expr)
	case ast.Reference:
		return g.generateRef(expr)
	}

	panic("unhandled")
}

func (g *Generator) generateRValue(n ast.Node) (llvm.Value, error) {
	v, err := g.generateExpression(n)
	if err != nil {
		return nil, err
	}
	return g.EnsureRValue(v)
}

// EnsureRValue loads through v if it is an address, giving a value usable
// as an operand.
func (g *Generator) EnsureRValue(v llvm.Value) (llvm.Value, error) {
	switch val := v.(type) {
	case nil, llvm.NoneValue:
		return nil, errors.UnexpectedValue{Expected: "a value", Received: llvm.None}
	case llvm.Indirect:
		dst := g.claimRegister(val.Referenced)
		g.w.Load(dst, val.Address)
		return dst, nil
	}
	return v, nil
}

// EnsureLValue returns the address behind v, which must not have been
// loaded yet.
func (g *Generator) EnsureLValue(v llvm.Value) (llvm.Value, error) {
	ind, ok := v.(llvm.Indirect)
	if !ok {
		if v == nil {
			v = llvm.None
		}
		return nil, errors.ExpectedLValue{Received: v}
	}
	return ind.Address, nil
}

// Coerce converts v to format to. Only pointer to boolean needs code: a
// comparison against null.
func (g *Generator) Coerce(v llvm.Value, to llvm.RegisterFormat) (llvm.Value, error) {
	from := v.Format()
	if !llvm.CanConvertTo(from, to) {
		return nil, errors.UnexpectedFormat{Expected: to, Received: from}
	}
	if llvm.Equal(from, to) {
		return v, nil
	}

	if _, isPtr := llvm.IsPointer(from); isPtr && llvm.Equal(to, llvm.Boolean) {
		dst := g.claimRegister(llvm.Boolean)
		g.w.Compare(dst, predicates[types.NE], v, llvm.NullValue{Fmt: from})
		return dst, nil
	}
	if _, isNull := v.(llvm.NullValue); isNull {
		return llvm.NullValue{Fmt: to}, nil
	}
	return v, nil
}

func (g *Generator) generateLiteral(lit ast.Lit) (llvm.Value, error) {
	switch l := lit.Literal.(type) {
	case ast.Integer:
		return llvm.Constant{Int: int64(l)}, nil
	case ast.Identifier:
		sym, err := g.locals.Get(string(l))
		if err == nil {
			return sym.Value, nil
		}
		sym, err = g.globals.Get(string(l))
		if err != nil {
			return nil, err
		}
		return sym.Value, nil
	}

	panic("unhandled")
}

func (g *Generator) generateBinary(b ast.Binary) (llvm.Value, error) {
	if b.Operator == types.ASSIGN {
		return g.generateAssignment(b)
	}

	left, err := g.generateRValue(b.Left)
	if err != nil {
		return nil, err
	}
	right, err := g.generateRValue(b.Right)
	if err != nil {
		return nil, err
	}

	if pred, ok := predicates[b.Operator]; ok {
		if !llvm.CanCompareTo(left.Format(), right.Format()) {
			return nil, errors.InvalidComparisonOperands{Operator: b.Operator, Left: left, Right: right}
		}
		dst := g.claimRegister(llvm.Boolean)
		g.w.Compare(dst, pred, left, right)
		return dst, nil
	}

	for _, operand := range []llvm.Value{left, right} {
		if !llvm.Equal(operand.Format(), llvm.Integer) {
			return nil, errors.InvalidArithmeticOperand{Operator: b.Operator, Received: operand}
		}
	}

	var emit func(llvm.VirtualRegister, llvm.Value, llvm.Value)
	switch b.Operator {
	case types.PLUS:
		emit = g.w.Add
	case types.MINUS:
		emit = g.w.Sub
	case types.ASTERISK:
		emit = g.w.Mul
	case types.SLASH:
		emit = g.w.Div
	default:
		panic("unhandled")
	}

	dst := g.claimRegister(llvm.Integer)
	emit(dst, left, right)
	return dst, nil
}

// generateAssignment stores the right side through the left side's address
// and yields the left side unchanged, so assignments chain.
func (g *Generator) generateAssignment(b ast.Binary) (llvm.Value, error) {
	right, err := g.generateRValue(b.Right)
	if err != nil {
		return nil, err
	}

	left, err := g.generateExpression(b.Left)
	if err != nil {
		return nil, err
	}
	address, err := g.EnsureLValue(left)
	if err != nil {
		return nil, err
	}

	stored := left.(llvm.Indirect).Referenced
	if !llvm.Equal(stored, right.Format()) {
		return nil, errors.InvalidAssignment{Expected: stored, Received: right.Format()}
	}

	g.w.Store(right, address)
	return left, nil
}

func (g *Generator) generateFunctionCall(call ast.FunctionCall) (llvm.Value, error) {
	sym, err := g.globals.Get(call.Name)
	if err != nil {
		if g.locals.Has(call.Name) {
			return nil, errors.ExpressionExpected{Name: call.Name}
		}
		return nil, err
	}
	fn, ok := sym.Value.(llvm.VirtualRegister)
	if !ok {
		return nil, errors.ExpressionExpected{Name: call.Name}
	}
	fnFmt, ok := llvm.Underlying(fn.Fmt).(llvm.Function)
	if !ok {
		return nil, errors.ExpressionExpected{Name: call.Name}
	}
	sig := fnFmt.Signature

	args := make([]llvm.Value, len(call.Arguments))
	for i, arg := range call.Arguments {
		if args[i], err = g.generateRValue(arg); err != nil {
			return nil, err
		}
	}

	mismatch := errors.ArgumentMismatch{Function: call.Name, Expected: sig, Received: args}
	if len(args) != len(sig.Params) {
		return nil, mismatch
	}
	for i, arg := range args {
		if !llvm.CanConvertTo(arg.Format(), sig.Params[i]) {
			return nil, mismatch
		}
	}
	for i, arg := range args {
		if args[i], err = g.Coerce(arg, sig.Params[i]); err != nil {
			return nil, err
		}
	}

	if llvm.Equal(sig.Return, llvm.Void) {
		g.w.Call(nil, fn, args)
		return llvm.None, nil
	}

	dst := g.claimRegister(sig.Return)
	g.w.Call(&dst, fn, args)
	return dst, nil
}

// generateDeref loads the pointer and rewraps it as an address, so that a
// later read loads the pointee and a later '&' recovers the pointer.
func (g *Generator) generateDeref(d ast.Dereference) (llvm.Value, error) {
	ptr, err := g.generateRValue(d.Child)
	if err != nil {
		return nil, err
	}

	pointee, ok := llvm.IsPointer(ptr.Format())
	if !ok {
		return nil, errors.ExpectedPointer{Received: ptr.Format()}
	}
	return llvm.Indirect{Address: ptr, Referenced: pointee}, nil
}

func (g *Generator) generateRef(r ast.Reference) (llvm.Value, error) {
	v, err := g.generateExpression(r.Child)
	if err != nil {
		return nil, err
	}
	return g.EnsureLValue(v)
}
