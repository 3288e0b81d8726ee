package ast

import (
	"fmt"
	"strings"
)

func TypeString(t Type) string {
	switch v := t.(type) {
	case nil:
		return ""
	case Named:
		return string(v)
	case Pointer:
		return TypeString(v.Pointee) + "*"
	case Void:
		return "void"
	}

	panic("unhandled")
}

// String renders n back as source. Binary expressions are fully
// parenthesised so the tree shape is visible.
func String(n Node) string {
	var sb strings.Builder
	write(&sb, n, 0)
	return sb.String()
}

func indent(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("\t", depth))
}

func writeBlock(sb *strings.Builder, b Block, depth int) {
	sb.WriteString("{\n")
	for _, stmt := range b {
		indent(sb, depth+1)
		write(sb, stmt, depth+1)
		switch stmt.(type) {
		case Lit, Binary, FunctionCall, Dereference, Reference:
			sb.WriteString(";")
		}
		sb.WriteString("\n")
	}
	indent(sb, depth)
	sb.WriteString("}")
}

func write(sb *strings.Builder, n Node, depth int) {
	switch v := n.(type) {
	case Lit:
		switch lit := v.Literal.(type) {
		case Integer:
			fmt.Fprintf(sb, "%d", int64(lit))
		case Identifier:
			sb.WriteString(string(lit))
		}
	case Binary:
		sb.WriteString("(")
		write(sb, v.Left, depth)
		fmt.Fprintf(sb, " %s ", v.Operator)
		write(sb, v.Right, depth)
		sb.WriteString(")")
	case Dereference:
		sb.WriteString("*")
		write(sb, v.Child, depth)
	case Reference:
		sb.WriteString("&")
		write(sb, v.Child, depth)
	case FunctionCall:
		sb.WriteString(v.Name + "(")
		for i, arg := range v.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			write(sb, arg, depth)
		}
		sb.WriteString(")")
	case Let:
		sb.WriteString("let " + v.Name)
		if v.Type != nil {
			sb.WriteString(": " + TypeString(v.Type))
		}
		if v.Value != nil {
			sb.WriteString(" = ")
			write(sb, v.Value, depth)
		}
		sb.WriteString(";")
	case Print:
		sb.WriteString("print ")
		write(sb, v.Value, depth)
		sb.WriteString(";")
	case Return:
		sb.WriteString("return")
		if v.Value != nil {
			sb.WriteString(" ")
			write(sb, v.Value, depth)
		}
		sb.WriteString(";")
	case If:
		sb.WriteString("if ")
		write(sb, v.Condition, depth)
		sb.WriteString(" ")
		writeBlock(sb, v.Then, depth)
		if v.Else != nil {
			sb.WriteString(" else ")
			writeBlock(sb, v.Else, depth)
		}
	case While:
		sb.WriteString("while ")
		write(sb, v.Condition, depth)
		sb.WriteString(" ")
		writeBlock(sb, v.Body, depth)
	case FunctionDefinition:
		sb.WriteString("fn " + v.Name + "(")
		for i, p := range v.Parameters {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Name + ": " + TypeString(p.Type))
		}
		sb.WriteString(")")
		if _, void := v.Returns.(Void); !void && v.Returns != nil {
			sb.WriteString(" -> " + TypeString(v.Returns))
		}
		sb.WriteString(" ")
		writeBlock(sb, v.Body, depth)
	default:
		panic("unhandled")
	}
}
