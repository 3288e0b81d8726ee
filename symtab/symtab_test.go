package symtab

import (
	stderrors "errors"
	"testing"

	"github.com/pontaoski/icd/errors"
	"github.com/pontaoski/icd/llvm"
)

func TestInsertGet(t *testing.T) {
	table := New()
	table.Insert(NewLocal("a", 0, llvm.Integer))
	table.Insert(NewLocal("b", 1, llvm.Boolean))

	sym, err := table.Get("b")
	if err != nil {
		t.Fatal(err)
	}
	if sym.Kind != Local || sym.Name != "b" {
		t.Errorf("got %v %s, want local b", sym.Kind, sym.Name)
	}
	if !llvm.Equal(sym.Value.Format(), llvm.Boolean) {
		t.Errorf("b has format %s, want bool", sym.Value.Format())
	}

	if _, err := table.Get("c"); err == nil {
		t.Error("expected an error for an undefined name")
	} else {
		var undefined errors.SymbolUndefined
		if !stderrors.As(err, &undefined) || undefined.Name != "c" {
			t.Errorf("got %v, want SymbolUndefined for c", err)
		}
	}

	if !table.Has("a") || table.Has("c") {
		t.Error("Has disagrees with Get")
	}
	if table.Len() != 2 {
		t.Errorf("Len is %d, want 2", table.Len())
	}
}

func TestShadowing(t *testing.T) {
	table := New()
	table.Insert(NewLocal("x", 0, llvm.Integer))
	table.Insert(NewLocal("x", 3, llvm.Boolean))

	sym, _ := table.Get("x")
	if !llvm.Equal(sym.Value.Format(), llvm.Boolean) {
		t.Fatalf("shadowing symbol not returned, got %s", sym.Value.Format())
	}

	table.Remove("x")
	sym, err := table.Get("x")
	if err != nil {
		t.Fatalf("removing the shadow lost the original: %s", err)
	}
	if !llvm.Equal(sym.Value.Format(), llvm.Integer) {
		t.Errorf("got %s after removing the shadow, want int", sym.Value.Format())
	}

	table.Remove("x")
	if table.Has("x") {
		t.Error("x still present after removing both entries")
	}

	// removing an absent name is a no-op
	table.Remove("x")
	table.Remove("never")
	if table.Len() != 0 {
		t.Errorf("Len is %d, want 0", table.Len())
	}
}

func TestGetIsMutable(t *testing.T) {
	table := New()
	table.Insert(NewLocal("x", 0, llvm.Integer))

	sym, _ := table.Get("x")
	sym.Value = llvm.Constant{Int: 4}

	again, _ := table.Get("x")
	if again.Value != (llvm.Constant{Int: 4}) {
		t.Errorf("modification through Get was lost, got %s", again.Value)
	}
}

func TestClear(t *testing.T) {
	table := New()
	for i, name := range []string{"a", "b", "c"} {
		table.Insert(NewLocal(name, i, llvm.Integer))
	}
	table.Clear()

	if table.Len() != 0 || len(table.Symbols()) != 0 {
		t.Errorf("table not empty after Clear: %v", table.Symbols())
	}
	if table.Has("a") {
		t.Error("a survived Clear")
	}

	table.Insert(NewLocal("a", 0, llvm.Integer))
	if !table.Has("a") {
		t.Error("table unusable after Clear")
	}
}

func TestSymbolsOrder(t *testing.T) {
	table := New()
	table.Insert(NewLocal("a", 0, llvm.Integer))
	table.Insert(NewLocal("b", 1, llvm.Integer))
	table.Insert(NewLocal("c", 2, llvm.Integer))
	table.Remove("b")

	syms := table.Symbols()
	if len(syms) != 2 || syms[0].Name != "a" || syms[1].Name != "c" {
		t.Errorf("got %v, want [a c]", syms)
	}
}

func TestNewLocal(t *testing.T) {
	sym := NewLocal("p", 7, llvm.Pointer{Pointee: llvm.Integer})

	ind, ok := sym.Value.(llvm.Indirect)
	if !ok {
		t.Fatalf("local value is %T, want llvm.Indirect", sym.Value)
	}
	if !llvm.Equal(ind.Referenced, llvm.Pointer{Pointee: llvm.Integer}) {
		t.Errorf("referenced format is %s, want int*", ind.Referenced)
	}
	if !llvm.Equal(ind.Address.Format(), llvm.Pointer{Pointee: llvm.Pointer{Pointee: llvm.Integer}}) {
		t.Errorf("address format is %s, want int**", ind.Address.Format())
	}
	if got := ind.Address.String(); got != "%7" {
		t.Errorf("address renders as %s, want %%7", got)
	}
}

func TestNewFunction(t *testing.T) {
	sig := llvm.Signature{Params: []llvm.RegisterFormat{llvm.Integer}, Return: llvm.Integer}
	sym := NewFunction("fact", sig)

	if sym.Kind != Function {
		t.Errorf("kind is %s, want function", sym.Kind)
	}
	if got := sym.Value.String(); got != "@fact" {
		t.Errorf("renders as %s, want @fact", got)
	}
	fn, ok := sym.Value.Format().(llvm.Function)
	if !ok || !fn.Signature.Equal(sig) {
		t.Errorf("format is %s, want fn%s", sym.Value.Format(), sig)
	}
}
