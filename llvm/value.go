package llvm

import (
	"fmt"
	"strconv"
)

// Value is an IR operand: a register, an address waiting to be loaded, a
// constant, null, or nothing at all.
type Value interface {
	Format() RegisterFormat
	String() string

	isValue()
}

// VirtualRegister is a numbered or named IR register. Registers that are not
// Local have global linkage and render as @Name.
type VirtualRegister struct {
	ID    int
	Name  string
	Fmt   RegisterFormat
	Local bool
}

func (VirtualRegister) isValue()                 {}
func (r VirtualRegister) Format() RegisterFormat { return r.Fmt }

func (r VirtualRegister) String() string {
	if !r.Local {
		return "@" + r.Name
	}
	if r.Name != "" {
		return "%" + r.Name
	}
	return "%" + strconv.Itoa(r.ID)
}

// Indirect is the address of a typed storage location (an lvalue).
// Referenced is always the pointee format, never the pointer's own.
type Indirect struct {
	Address    Value
	Referenced RegisterFormat
}

func (Indirect) isValue()                 {}
func (v Indirect) Format() RegisterFormat { return v.Referenced }
func (v Indirect) String() string         { return fmt.Sprintf("[%s %s]", v.Referenced, v.Address) }

type Constant struct {
	Int int64
}

func (Constant) isValue()               {}
func (Constant) Format() RegisterFormat { return Integer }
func (c Constant) String() string       { return strconv.FormatInt(c.Int, 10) }

type NoneValue struct{}

func (NoneValue) isValue()               {}
func (NoneValue) Format() RegisterFormat { return Void }
func (NoneValue) String() string         { return "none" }

type NullValue struct {
	// Fmt is the pointer format the null stands in for, or nil.
	Fmt RegisterFormat
}

func (NullValue) isValue() {}

func (v NullValue) Format() RegisterFormat {
	if v.Fmt == nil {
		return Null
	}
	return v.Fmt
}

func (NullValue) String() string { return "null" }

var None Value = NoneValue{}

// Label names a basic block.
type Label int

func (l Label) String() string { return "L" + strconv.Itoa(int(l)) }
