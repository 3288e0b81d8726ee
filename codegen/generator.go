// Package codegen lowers syntax trees to textual IR in a single pass.
//
// Every operand an expression produces is an llvm.Value. Names of locals
// resolve to an llvm.Indirect (the address of their stack slot) and are only
// loaded when an operation needs the value itself; this is what lets the same
// expression serve as the target of an assignment, the operand of '&', or a
// plain read.
package codegen

import (
	"github.com/pontaoski/icd/ast"
	"github.com/pontaoski/icd/errors"
	"github.com/pontaoski/icd/llvm"
	"github.com/pontaoski/icd/symtab"
)

const (
	firstRegister = 0
	firstLabel    = 0
)

// Source yields top-level definitions until it returns nil.
type Source interface {
	ParseGlobalStatement() (ast.Node, error)
}

type function struct {
	name    string
	returns llvm.RegisterFormat
	// entry is set for a void main, which is emitted returning an exit status.
	entry bool
}

type Generator struct {
	w        *llvm.Writer
	moduleID string

	nextRegister int
	nextLabel    int

	locals  *symtab.Table
	globals *symtab.Table
	defined map[string]bool

	fn *function
	// terminated is set once the current block has ended with a branch or
	// return.
	terminated bool
}

func New(w *llvm.Writer, moduleID string) *Generator {
	return &Generator{
		w:            w,
		moduleID:     moduleID,
		nextRegister: firstRegister,
		nextLabel:    firstLabel,
		locals:       symtab.New(),
		globals:      symtab.New(),
		defined:      make(map[string]bool),
	}
}

// NextRegister is the id the next claimed register will get.
func (g *Generator) NextRegister() int {
	return g.nextRegister
}

func (g *Generator) NextLabel() int {
	return g.nextLabel
}

// Globals exposes the function table.
func (g *Generator) Globals() *symtab.Table {
	return g.globals
}

// Generate reads every definition from src, declares them all so that any
// function may call any other, then lowers them in source order. The first
// error aborts the whole module.
func (g *Generator) Generate(src Source) error {
	var defs []ast.FunctionDefinition
	for {
		node, err := src.ParseGlobalStatement()
		if err != nil {
			return err
		}
		if node == nil {
			break
		}

		def, ok := node.(ast.FunctionDefinition)
		if !ok {
			panic("unhandled")
		}
		if err := g.Declare(def); err != nil {
			return err
		}
		defs = append(defs, def)
	}

	g.w.Preamble(g.moduleID)
	for _, def := range defs {
		if err := g.GenerateFunction(def); err != nil {
			return err
		}
		if err := g.w.Err(); err != nil {
			return err
		}
	}
	g.w.Postamble()

	return g.w.Err()
}

func (g *Generator) signature(def ast.FunctionDefinition) (llvm.Signature, error) {
	ret, err := FormatFromType(def.Returns)
	if err != nil {
		return llvm.Signature{}, err
	}

	sig := llvm.Signature{Return: ret}
	for _, param := range def.Parameters {
		f, err := FormatFromType(param.Type)
		if err != nil {
			return llvm.Signature{}, err
		}
		sig.Params = append(sig.Params, f)
	}
	return sig, nil
}

// Declare adds def's symbol to the global table. Names the module defines
// for itself count as already declared.
func (g *Generator) Declare(def ast.FunctionDefinition) error {
	if g.globals.Has(def.Name) || llvm.Reserved(def.Name) {
		return errors.SymbolDeclared{Name: def.Name}
	}

	sig, err := g.signature(def)
	if err != nil {
		return err
	}

	g.globals.Insert(symtab.NewFunction(def.Name, sig))
	return nil
}

func (g *Generator) claimRegister(f llvm.RegisterFormat) llvm.VirtualRegister {
	r := llvm.VirtualRegister{ID: g.nextRegister, Fmt: f, Local: true}
	g.nextRegister++
	return r
}

func (g *Generator) claimLabel() llvm.Label {
	l := llvm.Label(g.nextLabel)
	g.nextLabel++
	return l
}

// BeginFunction starts a fresh numbering universe for fn.
func (g *Generator) BeginFunction(fn *function) {
	g.fn = fn
	g.nextRegister = firstRegister
	g.nextLabel = firstLabel
	g.terminated = false
	g.locals.Clear()
}

// EndFunction closes the open block and the definition, then forgets every
// local and resets numbering.
func (g *Generator) EndFunction() {
	if !g.terminated {
		switch {
		case g.fn.entry:
			g.w.ReturnStatus(0)
		case llvm.Equal(g.fn.returns, llvm.Void):
			g.w.Return(llvm.None)
		default:
			g.w.Unreachable()
		}
	}
	g.w.FunctionClose()

	g.fn = nil
	g.nextRegister = firstRegister
	g.nextLabel = firstLabel
	g.terminated = false
	g.locals.Clear()
}

func (g *Generator) startBlock(l llvm.Label) {
	g.w.Label(l)
	g.terminated = false
}

func (g *Generator) branch(l llvm.Label) {
	if !g.terminated {
		g.w.Branch(l)
	}
	g.terminated = true
}

// GenerateFunction lowers one definition. Parameters are copied into stack
// slots so they behave exactly like let-bound locals. The writer places
// every slot in the entry block; only the stores stay where they are.
func (g *Generator) GenerateFunction(def ast.FunctionDefinition) error {
	if !g.globals.Has(def.Name) {
		if err := g.Declare(def); err != nil {
			return err
		}
	}
	if g.defined[def.Name] {
		return errors.SymbolDeclared{Name: def.Name}
	}

	sym, err := g.globals.Get(def.Name)
	if err != nil {
		return err
	}
	fnReg := sym.Value.(llvm.VirtualRegister)
	sig := fnReg.Fmt.(llvm.Function).Signature

	fn := &function{
		name:    def.Name,
		returns: sig.Return,
		entry:   llvm.IsEntry(def.Name, sig),
	}
	g.BeginFunction(fn)
	g.defined[def.Name] = true

	params := make([]llvm.VirtualRegister, len(def.Parameters))
	for i, param := range def.Parameters {
		params[i] = llvm.VirtualRegister{Name: "arg." + param.Name, Fmt: sig.Params[i], Local: true}
	}

	if fn.entry {
		g.w.EntryHeader(fnReg)
	} else {
		g.w.FunctionHeader(fnReg, params)
	}

	for i, param := range def.Parameters {
		if g.locals.Has(param.Name) {
			return errors.SymbolDeclared{Name: param.Name}
		}
		slot := g.claimRegister(llvm.Pointer{Pointee: params[i].Fmt})
		g.w.Alloca(slot, params[i].Fmt)
		g.w.Store(params[i], slot)
		g.locals.Insert(symtab.NewLocal(param.Name, slot.ID, params[i].Fmt))
	}

	if err := g.generateBlock(def.Body); err != nil {
		return err
	}

	g.EndFunction()
	return nil
}

func (g *Generator) generateBlock(b ast.Block) error {
	for _, stmt := range b {
		if g.terminated {
			// code after a return still needs a block to live in
			g.startBlock(g.claimLabel())
		}
		if err := g.generateStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) generateStatement(n ast.Node) error {
	switch stmt := n.(type) {
	case ast.Let:
		return g.generateLet(stmt)
	case ast.If:
		return g.generateIf(stmt)
	case ast.While:
		return g.generateWhile(stmt)
	case ast.Return:
		return g.generateReturn(stmt)
	case ast.Print:
		return g.generatePrint(stmt)
	}

	_, err := g.generateExpression(n)
	return err
}

func (g *Generator) generateLet(let ast.Let) error {
	if g.locals.Has(let.Name) {
		return errors.SymbolDeclared{Name: let.Name}
	}

	var declared llvm.RegisterFormat
	if let.Type != nil {
		f, err := FormatFromType(let.Type)
		if err != nil {
			return err
		}
		declared = f
	}

	var init llvm.Value
	slotFmt := declared
	if let.Value != nil {
		v, err := g.generateRValue(let.Value)
		if err != nil {
			return err
		}
		if declared != nil {
			if !llvm.CanConvertTo(v.Format(), declared) {
				return errors.InvalidAssignment{Expected: declared, Received: v.Format()}
			}
			if v, err = g.Coerce(v, declared); err != nil {
				return err
			}
		}
		init = v
		if slotFmt == nil {
			slotFmt = v.Format()
		}
	}
	if slotFmt == nil {
		slotFmt = llvm.Integer
	}

	slot := g.claimRegister(llvm.Pointer{Pointee: slotFmt})
	g.w.Alloca(slot, slotFmt)
	if init != nil {
		g.w.Store(init, slot)
	}

	g.locals.Insert(symtab.NewLocal(let.Name, slot.ID, slotFmt))
	return nil
}

// condition evaluates n as a branch condition.
func (g *Generator) condition(n ast.Node) (llvm.Value, error) {
	v, err := g.generateRValue(n)
	if err != nil {
		return nil, err
	}
	return g.Coerce(v, llvm.Boolean)
}

func (g *Generator) generateIf(stmt ast.If) error {
	cond, err := g.condition(stmt.Condition)
	if err != nil {
		return err
	}

	then := g.claimLabel()
	var els llvm.Label
	if stmt.Else != nil {
		els = g.claimLabel()
	}
	tail := g.claimLabel()
	if stmt.Else == nil {
		els = tail
	}

	g.w.CondBranch(cond, then, els)
	g.terminated = true

	g.startBlock(then)
	if err := g.generateBlock(stmt.Then); err != nil {
		return err
	}
	g.branch(tail)

	if stmt.Else != nil {
		g.startBlock(els)
		if err := g.generateBlock(stmt.Else); err != nil {
			return err
		}
		g.branch(tail)
	}

	g.startBlock(tail)
	return nil
}

func (g *Generator) generateWhile(stmt ast.While) error {
	check := g.claimLabel()
	body := g.claimLabel()
	tail := g.claimLabel()

	g.branch(check)
	g.startBlock(check)

	cond, err := g.condition(stmt.Condition)
	if err != nil {
		return err
	}
	g.w.CondBranch(cond, body, tail)
	g.terminated = true

	g.startBlock(body)
	if err := g.generateBlock(stmt.Body); err != nil {
		return err
	}
	g.branch(check)

	g.startBlock(tail)
	return nil
}

func (g *Generator) generateReturn(stmt ast.Return) error {
	v := llvm.None
	if stmt.Value != nil {
		rv, err := g.generateRValue(stmt.Value)
		if err != nil {
			return err
		}
		v = rv
	}

	if err := expect(v.Format(), g.fn.returns); err != nil {
		return err
	}

	if g.fn.entry {
		g.w.ReturnStatus(0)
	} else {
		g.w.Return(v)
	}
	g.terminated = true
	return nil
}

func (g *Generator) generatePrint(stmt ast.Print) error {
	v, err := g.generateRValue(stmt.Value)
	if err != nil {
		return err
	}

	switch llvm.Underlying(v.Format()) {
	case llvm.Integer:
	case llvm.Boolean:
		wide := g.claimRegister(llvm.Integer)
		g.w.ZeroExtend(wide, v)
		v = wide
	default:
		return errors.UnexpectedFormat{Expected: llvm.Integer, Received: v.Format()}
	}

	// printf's i32 result takes a register even though nothing reads it
	g.w.Print(g.claimRegister(llvm.Integer), v)
	return nil
}

func expect(got, want llvm.RegisterFormat) error {
	if !llvm.Equal(got, want) {
		return errors.UnexpectedFormat{Expected: want, Received: got}
	}
	return nil
}

// FormatFromType maps surface types to formats.
func FormatFromType(t ast.Type) (llvm.RegisterFormat, error) {
	switch kind := t.(type) {
	case nil, ast.Void:
		return llvm.Void, nil
	case ast.Named:
		f, ok := namedFormats[string(kind)]
		if !ok {
			return nil, errors.TypeUnknown{Name: string(kind)}
		}
		return f, nil
	case ast.Pointer:
		pointee, err := FormatFromType(kind.Pointee)
		if err != nil {
			return nil, err
		}
		return llvm.Pointer{Pointee: pointee}, nil
	}

	panic("unhandled")
}

var namedFormats = map[string]llvm.RegisterFormat{
	"int":  llvm.Integer,
	"bool": llvm.Boolean,
}
