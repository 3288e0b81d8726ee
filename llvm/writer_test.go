package llvm

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"

	"github.com/pontaoski/icd/irexec"
)

func reg(id int, f RegisterFormat) VirtualRegister {
	return VirtualRegister{ID: id, Fmt: f, Local: true}
}

func fnReg(name string, sig Signature) VirtualRegister {
	return VirtualRegister{Name: name, Fmt: Function{sig}}
}

var mainReg = fnReg("main", Signature{Return: Void})

// render closes the module and parses the text back.
func render(t *testing.T, w *Writer, buf *bytes.Buffer) *ir.Module {
	t.Helper()

	w.Postamble()
	if err := w.Err(); err != nil {
		t.Fatal(err)
	}
	mod, err := asm.ParseString("test.ll", buf.String())
	if err != nil {
		t.Fatalf("%s\n%s", err, buf.String())
	}
	return mod
}

func lookup(t *testing.T, mod *ir.Module, name string) *ir.Func {
	t.Helper()
	for _, f := range mod.Funcs {
		if f.Name() == name {
			return f
		}
	}
	t.Fatalf("no function %s", name)
	return nil
}

func TestWriterInstructions(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Preamble("test")
	w.EntryHeader(mainReg)

	slot := reg(0, intPtr)
	w.Alloca(slot, Integer)
	w.Store(Constant{Int: 5}, slot)
	w.Load(reg(1, Integer), slot)
	w.Add(reg(2, Integer), reg(1, Integer), Constant{Int: 1})
	w.Div(reg(3, Integer), reg(2, Integer), Constant{Int: 2})
	w.Compare(reg(4, Boolean), enum.IPredSLT, reg(3, Integer), Constant{Int: 10})
	w.CondBranch(reg(4, Boolean), Label(0), Label(1))
	w.Label(Label(0))
	w.ZeroExtend(reg(5, Integer), reg(4, Boolean))
	w.Print(reg(6, Integer), reg(5, Integer))
	w.Branch(Label(1))
	w.Label(Label(1))
	late := reg(7, intPtr)
	w.Alloca(late, Integer)
	w.Store(Constant{Int: 9}, late)
	w.Load(reg(8, Integer), late)
	w.Print(reg(9, Integer), reg(8, Integer))
	w.ReturnStatus(0)
	w.FunctionClose()

	mod := render(t, w, &buf)
	main := lookup(t, mod, "main")

	var names []string
	for _, b := range main.Blocks {
		names = append(names, b.Name())
	}
	if got := strings.Join(names, " "); got != "entry L0 L1" {
		t.Errorf("blocks are %q, want %q", got, "entry L0 L1")
	}

	entry := main.Blocks[0].Insts
	for i := 0; i < 2; i++ {
		if _, ok := entry[i].(*ir.InstAlloca); !ok {
			t.Errorf("entry instruction %d is %T, want an alloca", i, entry[i])
		}
	}
	if _, ok := entry[2].(*ir.InstStore); !ok {
		t.Errorf("entry instruction 2 is %T, want the first store", entry[2])
	}
	for _, b := range main.Blocks[1:] {
		for _, inst := range b.Insts {
			if _, ok := inst.(*ir.InstAlloca); ok {
				t.Errorf("alloca left in block %s", b.Name())
			}
		}
	}

	var out bytes.Buffer
	status, err := irexec.New(&out).RunSource("test.ll", buf.String())
	if err != nil {
		t.Fatalf("%s\n%s", err, buf.String())
	}
	if status != 0 {
		t.Errorf("status is %d, want 0", status)
	}
	if got, want := out.String(), "1\n9\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriterFunctions(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Preamble("test")

	sig := Signature{Params: []RegisterFormat{Integer}, Return: Integer}
	id := fnReg("id", sig)
	hello := fnReg("hello", Signature{Return: Void})

	// main calls both functions before either is defined
	w.EntryHeader(mainReg)
	dst := reg(0, Integer)
	w.Call(&dst, id, []Value{Constant{Int: 4}})
	w.Print(reg(1, Integer), dst)
	w.Call(nil, hello, nil)
	w.ReturnStatus(0)
	w.FunctionClose()

	w.FunctionHeader(id, []VirtualRegister{{Name: "arg.x", Fmt: Integer, Local: true}})
	w.Return(VirtualRegister{Name: "arg.x", Fmt: Integer, Local: true})
	w.FunctionClose()

	w.FunctionHeader(hello, nil)
	w.Return(None)
	w.Label(Label(0))
	w.Unreachable()
	w.FunctionClose()

	mod := render(t, w, &buf)
	text := buf.String()
	for _, want := range []string{
		"define i32 @main()",
		"define i64 @id(i64 %arg.x)",
		"define void @hello()",
		"call void @hello()",
		"unreachable",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output is missing %q:\n%s", want, text)
		}
	}

	var order []string
	for _, f := range mod.Funcs {
		order = append(order, f.Name())
	}
	if got, want := strings.Join(order, " "), "main id hello printf"; got != want {
		t.Errorf("functions are %q, want %q", got, want)
	}
	if err := irexec.Verify(mod); err != nil {
		t.Error(err)
	}
}

func TestWriterPreamble(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Triple = "aarch64-unknown-linux-gnu"

	w.Preamble("prog.src")
	mod := render(t, w, &buf)

	if mod.SourceFilename != "prog.src" {
		t.Errorf("source filename is %q", mod.SourceFilename)
	}
	if mod.TargetTriple != "aarch64-unknown-linux-gnu" {
		t.Errorf("triple is %q", mod.TargetTriple)
	}
	if mod.DataLayout != DefaultDataLayout {
		t.Errorf("data layout is %q", mod.DataLayout)
	}

	out := buf.String()
	for _, want := range []string{
		`@print_int_fstring = private unnamed_addr constant [5 x i8] c"%ld\0A\00", align 1`,
		"declare i32 @printf(",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestWriterUnknownOperand(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	w.EntryHeader(mainReg)
	w.Load(reg(1, Integer), reg(0, intPtr))

	if w.Err() == nil {
		t.Error("loading through a register nothing defined did not fail")
	}
}

type failingWriter struct{ writes int }

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	return 0, stderrors.New("disk full")
}

func TestWriterStickyError(t *testing.T) {
	out := &failingWriter{}
	w := NewWriter(out)

	w.Preamble("x")
	w.EntryHeader(mainReg)
	w.Alloca(reg(0, intPtr), Integer)
	w.ReturnStatus(0)
	w.FunctionClose()
	w.Postamble()
	w.Postamble()

	if w.Err() == nil || w.Err().Error() != "disk full" {
		t.Errorf("got %v, want the write error", w.Err())
	}
	if out.writes != 1 {
		t.Errorf("writer kept writing after failing: %d writes", out.writes)
	}
}

func TestReserved(t *testing.T) {
	for _, name := range []string{"printf", "print_int_fstring"} {
		if !Reserved(name) {
			t.Errorf("%s is not reserved", name)
		}
	}
	for _, name := range []string{"main", "print", "f"} {
		if Reserved(name) {
			t.Errorf("%s is reserved", name)
		}
	}
}

func TestIsEntry(t *testing.T) {
	tests := []struct {
		name string
		sig  Signature
		want bool
	}{
		{"main", Signature{Return: Void}, true},
		{"main", Signature{Return: Integer}, false},
		{"main", Signature{Params: []RegisterFormat{Integer}, Return: Void}, false},
		{"start", Signature{Return: Void}, false},
	}
	for _, test := range tests {
		if got := IsEntry(test.name, test.sig); got != test.want {
			t.Errorf("IsEntry(%s, %s) = %v, want %v", test.name, test.sig, got, test.want)
		}
	}
}
