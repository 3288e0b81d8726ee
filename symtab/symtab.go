// Package symtab resolves names to the IR values that stand for them.
package symtab

import (
	"github.com/pontaoski/icd/errors"
	"github.com/pontaoski/icd/llvm"
)

type Kind int

const (
	Local Kind = iota
	Function
)

func (k Kind) String() string {
	if k == Function {
		return "function"
	}
	return "local"
}

type Symbol struct {
	Kind  Kind
	Name  string
	Value llvm.Value
}

// NewLocal builds a local whose value is the address of a stack slot with
// the given id, so reads of it always go through a load.
func NewLocal(name string, id int, f llvm.RegisterFormat) Symbol {
	address := llvm.VirtualRegister{ID: id, Fmt: llvm.Pointer{Pointee: f}, Local: true}
	return Symbol{
		Kind:  Local,
		Name:  name,
		Value: llvm.Indirect{Address: address, Referenced: f},
	}
}

// NewFunction builds a function with global linkage.
func NewFunction(name string, sig llvm.Signature) Symbol {
	return Symbol{
		Kind:  Function,
		Name:  name,
		Value: llvm.VirtualRegister{Name: name, Fmt: llvm.Function{Signature: sig}},
	}
}

// Table stores symbols in insertion order. Entries never move; a removed
// entry leaves a hole until the next Clear.
type Table struct {
	entries []*Symbol
	// index maps a name to the entries holding it, most recent last.
	index map[string][]int
}

func New() *Table {
	return &Table{index: make(map[string][]int)}
}

// Insert adds s. A second symbol with the same name shadows the first;
// callers that forbid redeclaration must check Get beforehand.
func (t *Table) Insert(s Symbol) {
	t.entries = append(t.entries, &s)
	t.index[s.Name] = append(t.index[s.Name], len(t.entries)-1)
}

// Get returns the most recent symbol called name. The returned symbol may
// be modified in place.
func (t *Table) Get(name string) (*Symbol, error) {
	idx := t.index[name]
	if len(idx) == 0 {
		return nil, errors.SymbolUndefined{Name: name}
	}
	return t.entries[idx[len(idx)-1]], nil
}

func (t *Table) Has(name string) bool {
	return len(t.index[name]) > 0
}

// Remove drops the most recent symbol called name, uncovering any it
// shadowed. Removing an absent name does nothing.
func (t *Table) Remove(name string) {
	idx := t.index[name]
	if len(idx) == 0 {
		return
	}
	t.entries[idx[len(idx)-1]] = nil
	if len(idx) == 1 {
		delete(t.index, name)
		return
	}
	t.index[name] = idx[:len(idx)-1]
}

func (t *Table) Clear() {
	t.entries = nil
	t.index = make(map[string][]int)
}

// Len counts live symbols.
func (t *Table) Len() int {
	n := 0
	for _, s := range t.entries {
		if s != nil {
			n++
		}
	}
	return n
}

// Symbols returns the live symbols in insertion order.
func (t *Table) Symbols() []Symbol {
	var out []Symbol
	for _, s := range t.entries {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
