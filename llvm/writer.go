package llvm

import (
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

const (
	DefaultTriple     = "x86_64-pc-linux-gnu"
	DefaultDataLayout = "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128"

	// EntryPoint is the function the module is run from.
	EntryPoint = "main"

	printFunction     = "printf"
	printFormatGlobal = "print_int_fstring"
	printFormat       = "%ld\n\x00"
)

// Reserved reports whether name is taken by a symbol the module always
// defines, so no source function may use it.
func Reserved(name string) bool {
	return name == printFunction || name == printFormatGlobal
}

// IsEntry reports whether a function called name with signature sig is the
// program entry point. It is emitted returning an i32 exit status.
func IsEntry(name string, sig Signature) bool {
	return name == EntryPoint && len(sig.Params) == 0 && Equal(sig.Return, Void)
}

// Writer builds a module one IR construct at a time and renders it once, in
// Postamble. Registers the generator claims are bound to the instructions
// that define them; llir numbers them when the module is printed.
//
// Every stack slot is allocated at the top of the entry block, wherever in
// the function it was declared, so a slot dominates all of its uses and a
// loop never grows the stack.
type Writer struct {
	out io.Writer
	m   *ir.Module
	err error

	Triple     string
	DataLayout string

	funcs      map[string]*ir.Func
	printf     *ir.Func
	format     *ir.Global
	formatType types.Type

	fn      *ir.Func
	entry   *ir.Block
	cur     *ir.Block
	slots   int
	blocks  map[Label]*ir.Block
	order   []*ir.Block
	regs    map[int]value.Value
	params  map[string]*ir.Param
	returns types.Type
}

func NewWriter(out io.Writer) *Writer {
	w := &Writer{
		out:        out,
		m:          ir.NewModule(),
		Triple:     DefaultTriple,
		DataLayout: DefaultDataLayout,
		funcs:      make(map[string]*ir.Func),
	}

	fstring := constant.NewCharArrayFromString(printFormat)
	w.formatType = fstring.Type()
	w.format = w.m.NewGlobalDef(printFormatGlobal, fstring)
	w.format.Linkage = enum.LinkagePrivate
	w.format.UnnamedAddr = enum.UnnamedAddrUnnamedAddr
	w.format.Immutable = true
	w.format.Align = ir.Align(1)

	w.printf = ir.NewFunc(printFunction, types.I32, ir.NewParam("format", types.NewPointer(types.I8)))
	w.printf.Sig.Variadic = true
	w.printf.Parent = w.m
	return w
}

// Err returns the first error encountered while building or writing.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Preamble names the module and fixes its target.
func (w *Writer) Preamble(moduleID string) {
	w.m.SourceFilename = moduleID
	w.m.DataLayout = w.DataLayout
	w.m.TargetTriple = w.Triple
}

// Postamble declares printf after every definition and writes the module.
func (w *Writer) Postamble() {
	if w.err != nil {
		return
	}
	w.m.Funcs = append(w.m.Funcs, w.printf)
	if _, err := io.WriteString(w.out, w.m.String()); err != nil {
		w.fail(err)
	}
}

// function returns the IR function for fn, creating it the first time it is
// referenced. A call may name a function whose body comes later.
func (w *Writer) function(fn VirtualRegister) *ir.Func {
	if f, ok := w.funcs[fn.Name]; ok {
		return f
	}

	sig := Underlying(fn.Fmt).(Function).Signature
	params := make([]*ir.Param, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = ir.NewParam("", p.LLType())
	}
	ret := sig.Return.LLType()
	if IsEntry(fn.Name, sig) {
		ret = types.I32
	}

	f := ir.NewFunc(fn.Name, ret, params...)
	f.Parent = w.m
	w.funcs[fn.Name] = f
	return f
}

func (w *Writer) block(l Label) *ir.Block {
	if b, ok := w.blocks[l]; ok {
		return b
	}
	b := w.fn.NewBlock(l.String())
	w.blocks[l] = b
	return b
}

// value maps an operand to the IR value it stands for.
func (w *Writer) value(v Value) value.Value {
	switch v := v.(type) {
	case Constant:
		return constant.NewInt(types.I64, v.Int)
	case NullValue:
		if t, ok := v.Format().LLType().(*types.PointerType); ok {
			return constant.NewNull(t)
		}
	case VirtualRegister:
		if !v.Local {
			return w.function(v)
		}
		if v.Name != "" {
			if p, ok := w.params[v.Name]; ok {
				return p
			}
		} else if r, ok := w.regs[v.ID]; ok {
			return r
		}
	}

	w.fail(fmt.Errorf("no IR value for operand %s", v))
	return constant.NewUndef(v.Format().LLType())
}

func (w *Writer) bind(dst VirtualRegister, v value.Value) {
	w.regs[dst.ID] = v
}

// Alloca reserves a slot for a value of format f at the top of the entry
// block, after the slots reserved before it.
func (w *Writer) Alloca(dst VirtualRegister, f RegisterFormat) {
	inst := ir.NewAlloca(f.LLType())
	inst.Align = ir.Align(Align(f))

	insts := make([]ir.Instruction, 0, len(w.entry.Insts)+1)
	insts = append(insts, w.entry.Insts[:w.slots]...)
	insts = append(insts, inst)
	insts = append(insts, w.entry.Insts[w.slots:]...)
	w.entry.Insts = insts
	w.slots++

	w.bind(dst, inst)
}

// Load reads the value stored at src into dst; dst's format is the format
// of the stored value.
func (w *Writer) Load(dst VirtualRegister, src Value) {
	inst := w.cur.NewLoad(dst.Fmt.LLType(), w.value(src))
	inst.Align = ir.Align(Align(dst.Fmt))
	w.bind(dst, inst)
}

func (w *Writer) Store(val Value, dst Value) {
	inst := w.cur.NewStore(w.value(val), w.value(dst))
	inst.Align = ir.Align(Align(val.Format()))
}

func (w *Writer) Add(dst VirtualRegister, l, r Value) {
	w.bind(dst, w.cur.NewAdd(w.value(l), w.value(r)))
}

func (w *Writer) Sub(dst VirtualRegister, l, r Value) {
	w.bind(dst, w.cur.NewSub(w.value(l), w.value(r)))
}

func (w *Writer) Mul(dst VirtualRegister, l, r Value) {
	w.bind(dst, w.cur.NewMul(w.value(l), w.value(r)))
}

func (w *Writer) Div(dst VirtualRegister, l, r Value) {
	w.bind(dst, w.cur.NewSDiv(w.value(l), w.value(r)))
}

func (w *Writer) Compare(dst VirtualRegister, pred enum.IPred, l, r Value) {
	w.bind(dst, w.cur.NewICmp(pred, w.value(l), w.value(r)))
}

func (w *Writer) ZeroExtend(dst VirtualRegister, v Value) {
	w.bind(dst, w.cur.NewZExt(w.value(v), dst.Fmt.LLType()))
}

func (w *Writer) Branch(target Label) {
	w.cur.NewBr(w.block(target))
}

func (w *Writer) CondBranch(cond Value, then, els Label) {
	w.cur.NewCondBr(w.value(cond), w.block(then), w.block(els))
}

// Label starts the block l; instructions go there until the next Label.
func (w *Writer) Label(l Label) {
	b := w.block(l)
	w.order = append(w.order, b)
	w.cur = b
}

// FunctionHeader opens the definition of fn and its entry block. Each
// parameter keeps the name it was given.
func (w *Writer) FunctionHeader(fn VirtualRegister, params []VirtualRegister) {
	f := w.function(fn)
	w.m.Funcs = append(w.m.Funcs, f)

	w.fn = f
	w.returns = f.Sig.RetType
	w.entry = f.NewBlock("entry")
	w.cur = w.entry
	w.slots = 0
	w.blocks = make(map[Label]*ir.Block)
	w.order = []*ir.Block{w.entry}
	w.regs = make(map[int]value.Value)
	w.params = make(map[string]*ir.Param)

	if len(params) != len(f.Params) {
		w.fail(fmt.Errorf("%s takes %d parameters, got %d names", fn.Name, len(f.Params), len(params)))
		return
	}
	for i, p := range params {
		f.Params[i].SetName(p.Name)
		w.params[p.Name] = f.Params[i]
	}
}

// EntryHeader opens a parameterless main that returns an exit status, so the
// module links as a program.
func (w *Writer) EntryHeader(fn VirtualRegister) {
	w.FunctionHeader(fn, nil)
}

// FunctionClose lays the blocks out in the order they were started.
func (w *Writer) FunctionClose() {
	w.fn.Blocks = w.order

	w.fn, w.entry, w.cur = nil, nil, nil
	w.blocks, w.order = nil, nil
	w.regs, w.params = nil, nil
}

// Call invokes fn. dst is nil for calls whose signature returns void.
func (w *Writer) Call(dst *VirtualRegister, fn VirtualRegister, args []Value) {
	vs := make([]value.Value, len(args))
	for i, a := range args {
		vs[i] = w.value(a)
	}
	inst := w.cur.NewCall(w.function(fn), vs...)
	if dst != nil {
		w.bind(*dst, inst)
	}
}

func (w *Writer) Return(v Value) {
	if v == nil || Equal(v.Format(), Void) {
		w.cur.NewRet(nil)
		return
	}
	w.cur.NewRet(w.value(v))
}

func (w *Writer) Unreachable() {
	w.cur.NewUnreachable()
}

// Print writes an i64 through printf. dst receives printf's i32 result.
func (w *Writer) Print(dst VirtualRegister, v Value) {
	zero := constant.NewInt(types.I64, 0)
	fstring := constant.NewGetElementPtr(w.formatType, w.format, zero, zero)
	fstring.InBounds = true
	w.bind(dst, w.cur.NewCall(w.printf, fstring, w.value(v)))
}

func (w *Writer) ReturnStatus(code int) {
	if !types.Equal(w.returns, types.I32) {
		w.fail(fmt.Errorf("exit status returned from %s, which returns %s", w.fn.Name(), w.returns))
		return
	}
	w.cur.NewRet(constant.NewInt(types.I32, int64(code)))
}
