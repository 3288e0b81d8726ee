// Package errors holds every failure the compiler can report. Each kind is a
// distinct type so callers can pick them apart with errors.As.
package errors

import (
	"fmt"
	"strings"

	"github.com/pontaoski/icd/llvm"
	"github.com/pontaoski/icd/types"
)

// I/O

type FileOpenError struct {
	Path  string
	Cause error
}

func (e FileOpenError) Error() string {
	return fmt.Sprintf("FileOpenError: %s: %s", e.Path, e.Cause)
}

func (e FileOpenError) Unwrap() error { return e.Cause }

type FileReadError struct {
	Path  string
	Cause error
}

func (e FileReadError) Error() string {
	return fmt.Sprintf("FileReadError: %s: %s", e.Path, e.Cause)
}

func (e FileReadError) Unwrap() error { return e.Cause }

type FileWriteError struct {
	Path  string
	Cause error
}

func (e FileWriteError) Error() string {
	return fmt.Sprintf("FileWriteError: %s: %s", e.Path, e.Cause)
}

func (e FileWriteError) Unwrap() error { return e.Cause }

// Lexical

type UnknownToken struct {
	Received string
	Location types.Span
}

func (e UnknownToken) Error() string {
	return fmt.Sprintf("UnknownToken: %q. %s", e.Received, e.Location)
}

// Syntactic

type InvalidToken struct {
	Expected []types.TokenKind
	Received types.Token
}

func (e InvalidToken) Error() string {
	return fmt.Sprintf("InvalidToken: Expected %s; got %s. %s", joinKinds(e.Expected), e.Received, e.Received.Location)
}

type InvalidIdentifier struct {
	Expected []string
	Received types.Token
}

func (e InvalidIdentifier) Error() string {
	return fmt.Sprintf("InvalidIdentifier: Expected %s; got %s. %s", strings.Join(e.Expected, ", "), e.Received, e.Received.Location)
}

type IdentifierExpected struct {
	Received types.Token
}

func (e IdentifierExpected) Error() string {
	return fmt.Sprintf("IdentifierExpected: Expected an identifier, but got %s. %s", e.Received, e.Received.Location)
}

// LiteralExpected is reported when an expression position holds neither a
// literal nor an identifier.
type LiteralExpected struct {
	Received types.Token
}

func (e LiteralExpected) Error() string {
	return fmt.Sprintf("LiteralExpected: Expected a literal, but received %s. %s", e.Received, e.Received.Location)
}

type TypeExpected struct {
	Received types.Token
}

func (e TypeExpected) Error() string {
	return fmt.Sprintf("TypeExpected: Expected a type, but received %s. %s", e.Received, e.Received.Location)
}

type UnexpectedEOF struct {
	Expected types.TokenKind
	Location types.Span
}

func (e UnexpectedEOF) Error() string {
	return fmt.Sprintf("UnexpectedEOF: Expected %s, but reached EOF. %s", e.Expected, e.Location)
}

type BinaryOperatorExpected struct {
	Received types.Token
}

func (e BinaryOperatorExpected) Error() string {
	return fmt.Sprintf("BinaryOperatorExpected: Expected a binary operator, but got %s. %s", e.Received, e.Received.Location)
}

// Semantic

type SymbolUndefined struct {
	Name string
}

func (e SymbolUndefined) Error() string {
	return fmt.Sprintf("SymbolUndefined: %s is not defined", e.Name)
}

type SymbolDeclared struct {
	Name string
}

func (e SymbolDeclared) Error() string {
	return fmt.Sprintf("SymbolDeclared: %s is already declared", e.Name)
}

type TypeUnknown struct {
	Name string
}

func (e TypeUnknown) Error() string {
	return fmt.Sprintf("TypeUnknown: %s is not a type", e.Name)
}

type InvalidArithmeticOperand struct {
	Operator types.TokenKind
	Received llvm.Value
}

func (e InvalidArithmeticOperand) Error() string {
	return fmt.Sprintf("InvalidArithmeticOperand: %s expects %s operands, got %s", e.Operator, llvm.Integer, e.Received.Format())
}

type InvalidComparisonOperands struct {
	Operator types.TokenKind
	Left     llvm.Value
	Right    llvm.Value
}

func (e InvalidComparisonOperands) Error() string {
	return fmt.Sprintf("InvalidComparisonOperands: cannot compare %s %s %s", e.Left.Format(), e.Operator, e.Right.Format())
}

type InvalidAssignment struct {
	Expected llvm.RegisterFormat
	Received llvm.RegisterFormat
}

func (e InvalidAssignment) Error() string {
	return fmt.Sprintf("InvalidAssignment: cannot assign %s to %s", e.Received, e.Expected)
}

// UnexpectedFormat is reported when a value does not carry the format its
// position requires, such as a return value or a print operand.
type UnexpectedFormat struct {
	Expected llvm.RegisterFormat
	Received llvm.RegisterFormat
}

func (e UnexpectedFormat) Error() string {
	return fmt.Sprintf("UnexpectedFormat: Expected %s, but received %s", e.Expected, e.Received)
}

type ArgumentMismatch struct {
	Function string
	Expected llvm.Signature
	Received []llvm.Value
}

func (e ArgumentMismatch) Error() string {
	got := make([]string, len(e.Received))
	for i, v := range e.Received {
		got[i] = v.Format().String()
	}
	return fmt.Sprintf("ArgumentMismatch: %s expects %s, but received (%s)", e.Function, e.Expected, strings.Join(got, ", "))
}

type ExpectedLValue struct {
	Received llvm.Value
}

func (e ExpectedLValue) Error() string {
	return fmt.Sprintf("ExpectedLValue: %s is not addressable", e.Received)
}

type ExpectedPointer struct {
	Received llvm.RegisterFormat
}

func (e ExpectedPointer) Error() string {
	return fmt.Sprintf("ExpectedPointer: cannot dereference %s", e.Received)
}

// ExpressionExpected is reported when a name used as a callee does not
// resolve to a function.
type ExpressionExpected struct {
	Name string
}

func (e ExpressionExpected) Error() string {
	return fmt.Sprintf("ExpressionExpected: %s is not a function", e.Name)
}

// UnexpectedValue is reported when an operation needs an operand but the
// expression produced none, as with the result of a void call.
type UnexpectedValue struct {
	Expected string
	Received llvm.Value
}

func (e UnexpectedValue) Error() string {
	return fmt.Sprintf("UnexpectedValue: Expected %s, but received %s", e.Expected, e.Received)
}

func joinKinds(kinds []types.TokenKind) string {
	s := make([]string, len(kinds))
	for i, k := range kinds {
		s[i] = k.String()
	}
	return strings.Join(s, ", ")
}

// InvalidOutput is reported when generated IR fails to parse back.
type InvalidOutput struct {
	Path  string
	Cause error
}

func (e InvalidOutput) Error() string {
	return fmt.Sprintf("InvalidOutput: %s: %s", e.Path, e.Cause)
}

func (e InvalidOutput) Unwrap() error { return e.Cause }
