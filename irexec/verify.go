package irexec

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// Verify checks the rules the textual parser leaves to LLVM's own verifier
// for the subset the code generator emits: every stack slot is allocated in
// the entry block, and every instruction result is defined before each use
// on every path that reaches it. Uses in blocks that cannot be reached from
// the entry block are not checked.
func Verify(mod *ir.Module) error {
	for _, f := range mod.Funcs {
		if len(f.Blocks) == 0 {
			continue
		}
		if err := verifyFunc(f); err != nil {
			return fmt.Errorf("%s: %w", f.Name(), err)
		}
	}
	return nil
}

type site struct {
	block int
	pos   int
}

func verifyFunc(f *ir.Func) error {
	index := make(map[*ir.Block]int, len(f.Blocks))
	for i, b := range f.Blocks {
		index[b] = i
	}

	succs := make([][]int, len(f.Blocks))
	for i, b := range f.Blocks {
		targets, err := successors(b)
		if err != nil {
			return err
		}
		for _, t := range targets {
			j, ok := index[t]
			if !ok {
				return fmt.Errorf("block %s branches outside the function", b.Name())
			}
			succs[i] = append(succs[i], j)
		}
	}

	reachable := reach(succs)
	dom := dominators(succs, reachable)

	defs := make(map[value.Value]site)
	for i, b := range f.Blocks {
		for j, inst := range b.Insts {
			if _, ok := inst.(*ir.InstAlloca); ok && i != 0 {
				return fmt.Errorf("alloca in block %s, outside the entry block", b.Name())
			}
			if v, ok := inst.(value.Value); ok {
				defs[v] = site{block: i, pos: j}
			}
		}
	}

	check := func(user site, v value.Value) error {
		def, ok := defs[v]
		if !ok {
			// parameters, constants and globals
			return nil
		}
		if def.block == user.block && def.pos < user.pos {
			return nil
		}
		if def.block != user.block && dom[user.block][def.block] {
			return nil
		}
		return fmt.Errorf("%s does not dominate its use in block %s", v.Ident(), f.Blocks[user.block].Name())
	}

	for i, b := range f.Blocks {
		if !reachable[i] {
			continue
		}
		for j, inst := range b.Insts {
			for _, v := range operands(inst) {
				if err := check(site{block: i, pos: j}, v); err != nil {
					return err
				}
			}
		}
		for _, v := range termOperands(b.Term) {
			if err := check(site{block: i, pos: len(b.Insts)}, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func successors(b *ir.Block) ([]*ir.Block, error) {
	var targets []interface{}
	switch term := b.Term.(type) {
	case *ir.TermRet, *ir.TermUnreachable:
		return nil, nil
	case *ir.TermBr:
		targets = []interface{}{term.Target}
	case *ir.TermCondBr:
		targets = []interface{}{term.TargetTrue, term.TargetFalse}
	default:
		return nil, fmt.Errorf("block %s: unsupported terminator %T", b.Name(), term)
	}

	blocks := make([]*ir.Block, len(targets))
	for i, t := range targets {
		target, err := asBlock(t)
		if err != nil {
			return nil, err
		}
		blocks[i] = target
	}
	return blocks, nil
}

func reach(succs [][]int) []bool {
	seen := make([]bool, len(succs))
	stack := []int{0}
	seen[0] = true
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range succs[b] {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

// dominators returns, for each reachable block, the set of blocks that
// dominate it, found by iterating the dataflow equations to a fixed point.
func dominators(succs [][]int, reachable []bool) [][]bool {
	n := len(succs)
	preds := make([][]int, n)
	for b, ss := range succs {
		if !reachable[b] {
			continue
		}
		for _, s := range ss {
			preds[s] = append(preds[s], b)
		}
	}

	dom := make([][]bool, n)
	for b := range dom {
		dom[b] = make([]bool, n)
		if b == 0 {
			dom[b][0] = true
			continue
		}
		for d := range dom[b] {
			dom[b][d] = reachable[d]
		}
	}

	for changed := true; changed; {
		changed = false
		for b := 1; b < n; b++ {
			if !reachable[b] {
				continue
			}
			for d := 0; d < n; d++ {
				in := d == b
				if !in {
					in = len(preds[b]) > 0
					for _, p := range preds[b] {
						if !dom[p][d] {
							in = false
							break
						}
					}
				}
				if dom[b][d] != in {
					dom[b][d] = in
					changed = true
				}
			}
		}
	}
	return dom
}

func operands(inst ir.Instruction) []value.Value {
	switch in := inst.(type) {
	case *ir.InstLoad:
		return []value.Value{in.Src}
	case *ir.InstStore:
		return []value.Value{in.Src, in.Dst}
	case *ir.InstAdd:
		return []value.Value{in.X, in.Y}
	case *ir.InstSub:
		return []value.Value{in.X, in.Y}
	case *ir.InstMul:
		return []value.Value{in.X, in.Y}
	case *ir.InstSDiv:
		return []value.Value{in.X, in.Y}
	case *ir.InstICmp:
		return []value.Value{in.X, in.Y}
	case *ir.InstZExt:
		return []value.Value{in.From}
	case *ir.InstCall:
		return append([]value.Value{in.Callee}, in.Args...)
	}
	return nil
}

func termOperands(term ir.Terminator) []value.Value {
	switch t := term.(type) {
	case *ir.TermRet:
		if t.X != nil {
			return []value.Value{t.X}
		}
	case *ir.TermCondBr:
		return []value.Value{t.Cond}
	}
	return nil
}
