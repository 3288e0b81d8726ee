// Package irexec executes the subset of LLVM IR the code generator emits.
// Modules are parsed with llir's asm package and interpreted directly,
// which makes it possible to check compiled programs without a toolchain.
package irexec

import (
	"fmt"
	"io"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
)

const (
	DefaultMaxSteps = 10000000
	maxDepth        = 10000
)

type cell struct {
	v word
}

// word is a runtime value: an integer (booleans are 0 or 1) or a pointer,
// where a nil pointer is null.
type word struct {
	i int64
	p *cell
}

type Machine struct {
	// Out receives everything the program prints.
	Out io.Writer
	// MaxSteps bounds the number of executed instructions.
	MaxSteps int

	steps int
}

func New(out io.Writer) *Machine {
	return &Machine{Out: out, MaxSteps: DefaultMaxSteps}
}

// RunSource parses and verifies src, then runs its main function.
func (m *Machine) RunSource(name, src string) (int64, error) {
	mod, err := asm.ParseString(name, src)
	if err != nil {
		return 0, err
	}
	if err := Verify(mod); err != nil {
		return 0, err
	}
	return m.Run(mod, "main")
}

// Run calls the parameterless function entry and returns its result.
func (m *Machine) Run(mod *ir.Module, entry string) (int64, error) {
	m.steps = 0
	for _, f := range mod.Funcs {
		if f.Name() == entry {
			if len(f.Params) != 0 {
				return 0, fmt.Errorf("%s takes parameters", entry)
			}
			ret, err := m.call(f, nil, 0)
			return ret.i, err
		}
	}
	return 0, fmt.Errorf("no function named %s", entry)
}

type frame map[value.Value]word

func (fr frame) eval(v value.Value) (word, error) {
	switch c := v.(type) {
	case *constant.Int:
		return word{i: c.X.Int64()}, nil
	case *constant.Null:
		return word{}, nil
	}
	w, ok := fr[v]
	if !ok {
		return word{}, fmt.Errorf("operand %s has no value", v.Ident())
	}
	return w, nil
}

func (m *Machine) external(f *ir.Func, args []word) (word, error) {
	switch f.Name() {
	case "printf":
		if len(args) < 2 {
			return word{}, fmt.Errorf("printf called without a value")
		}
		n, err := fmt.Fprintf(m.Out, "%d\n", args[1].i)
		return word{i: int64(n)}, err
	}
	return word{}, fmt.Errorf("call to undefined function %s", f.Name())
}

func asBlock(v interface{}) (*ir.Block, error) {
	b, ok := v.(*ir.Block)
	if !ok {
		return nil, fmt.Errorf("branch target %v is not a block", v)
	}
	return b, nil
}

func (m *Machine) call(f *ir.Func, args []word, depth int) (word, error) {
	if len(f.Blocks) == 0 {
		return m.external(f, args)
	}
	if depth > maxDepth {
		return word{}, fmt.Errorf("call depth exceeded in %s", f.Name())
	}

	fr := frame{}
	for i, p := range f.Params {
		fr[p] = args[i]
	}

	block := f.Blocks[0]
	for {
		for _, inst := range block.Insts {
			if err := m.step(); err != nil {
				return word{}, err
			}
			if err := m.exec(fr, inst, depth); err != nil {
				return word{}, fmt.Errorf("%s: %w", f.Name(), err)
			}
		}
		// terminators count too, or an empty loop would never stop
		if err := m.step(); err != nil {
			return word{}, err
		}

		var err error
		switch term := block.Term.(type) {
		case *ir.TermRet:
			if term.X == nil {
				return word{}, nil
			}
			return fr.eval(term.X)
		case *ir.TermBr:
			block, err = asBlock(interface{}(term.Target))
		case *ir.TermCondBr:
			var cond word
			if cond, err = fr.eval(term.Cond); err != nil {
				return word{}, err
			}
			if cond.i != 0 {
				block, err = asBlock(interface{}(term.TargetTrue))
			} else {
				block, err = asBlock(interface{}(term.TargetFalse))
			}
		case *ir.TermUnreachable:
			return word{}, fmt.Errorf("%s: reached unreachable", f.Name())
		default:
			return word{}, fmt.Errorf("%s: unsupported terminator %T", f.Name(), term)
		}
		if err != nil {
			return word{}, err
		}
	}
}

func (m *Machine) step() error {
	m.steps++
	if m.MaxSteps > 0 && m.steps > m.MaxSteps {
		return fmt.Errorf("step limit of %d exceeded", m.MaxSteps)
	}
	return nil
}

func (m *Machine) exec(fr frame, inst ir.Instruction, depth int) error {
	switch in := inst.(type) {
	case *ir.InstAlloca:
		fr[in] = word{p: &cell{}}
	case *ir.InstLoad:
		src, err := fr.eval(in.Src)
		if err != nil {
			return err
		}
		if src.p == nil {
			return fmt.Errorf("load through null pointer")
		}
		fr[in] = src.p.v
	case *ir.InstStore:
		dst, err := fr.eval(in.Dst)
		if err != nil {
			return err
		}
		if dst.p == nil {
			return fmt.Errorf("store through null pointer")
		}
		val, err := fr.eval(in.Src)
		if err != nil {
			return err
		}
		dst.p.v = val
	case *ir.InstAdd:
		return arith(fr, in, in.X, in.Y, func(x, y int64) (int64, error) { return x + y, nil })
	case *ir.InstSub:
		return arith(fr, in, in.X, in.Y, func(x, y int64) (int64, error) { return x - y, nil })
	case *ir.InstMul:
		return arith(fr, in, in.X, in.Y, func(x, y int64) (int64, error) { return x * y, nil })
	case *ir.InstSDiv:
		return arith(fr, in, in.X, in.Y, func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return x / y, nil
		})
	case *ir.InstICmp:
		x, err := fr.eval(in.X)
		if err != nil {
			return err
		}
		y, err := fr.eval(in.Y)
		if err != nil {
			return err
		}
		ok, err := compare(in.Pred, x, y)
		if err != nil {
			return err
		}
		fr[in] = word{}
		if ok {
			fr[in] = word{i: 1}
		}
	case *ir.InstZExt:
		x, err := fr.eval(in.From)
		if err != nil {
			return err
		}
		fr[in] = x
	case *ir.InstCall:
		callee, ok := in.Callee.(*ir.Func)
		if !ok {
			return fmt.Errorf("indirect calls are not supported")
		}
		args := make([]word, len(in.Args))
		for i, a := range in.Args {
			if _, isGEP := a.(*constant.ExprGetElementPtr); isGEP {
				continue
			}
			w, err := fr.eval(a)
			if err != nil {
				return err
			}
			args[i] = w
		}
		ret, err := m.call(callee, args, depth+1)
		if err != nil {
			return err
		}
		fr[in] = ret
	default:
		return fmt.Errorf("unsupported instruction %T", inst)
	}
	return nil
}

func arith(fr frame, dst value.Value, x, y value.Value, op func(x, y int64) (int64, error)) error {
	a, err := fr.eval(x)
	if err != nil {
		return err
	}
	b, err := fr.eval(y)
	if err != nil {
		return err
	}
	r, err := op(a.i, b.i)
	if err != nil {
		return err
	}
	fr[dst] = word{i: r}
	return nil
}

func compare(pred enum.IPred, x, y word) (bool, error) {
	if x.p != nil || y.p != nil {
		switch pred {
		case enum.IPredEQ:
			return x.p == y.p, nil
		case enum.IPredNE:
			return x.p != y.p, nil
		}
		return false, fmt.Errorf("ordered comparison of pointers")
	}

	switch pred {
	case enum.IPredEQ:
		return x.i == y.i, nil
	case enum.IPredNE:
		return x.i != y.i, nil
	case enum.IPredSLT:
		return x.i < y.i, nil
	case enum.IPredSLE:
		return x.i <= y.i, nil
	case enum.IPredSGT:
		return x.i > y.i, nil
	case enum.IPredSGE:
		return x.i >= y.i, nil
	}
	return false, fmt.Errorf("unsupported predicate %v", pred)
}
