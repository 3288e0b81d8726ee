// Package compiler runs the whole pipeline for a source file: scan, parse,
// generate, and write the module next to the input.
package compiler

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/llir/llvm/asm"
	"github.com/ztrue/tracerr"
	"go.uber.org/zap"

	"github.com/pontaoski/icd/codegen"
	"github.com/pontaoski/icd/errors"
	"github.com/pontaoski/icd/irexec"
	"github.com/pontaoski/icd/lexer"
	"github.com/pontaoski/icd/llvm"
	"github.com/pontaoski/icd/parser"
)

const DefaultSuffix = ".ll"

type Options struct {
	// OutputDir holds the modules; empty means next to each input.
	OutputDir  string
	Suffix     string
	Triple     string
	DataLayout string
	// Verify parses the generated module back and checks that every value
	// is defined before it is used, before the module is written.
	Verify bool
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// OutputPath is where the module for input is written: foo.src becomes
// foo.src.ll.
func (o Options) OutputPath(input string) string {
	suffix := o.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	out := input + suffix
	if o.OutputDir != "" {
		out = filepath.Join(o.OutputDir, filepath.Base(out))
	}
	return out
}

// Compile translates the source read from r into a complete module. name
// identifies the module in its header and in positions.
func Compile(r io.Reader, name string, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	w := llvm.NewWriter(&buf)
	if opts.Triple != "" {
		w.Triple = opts.Triple
	}
	if opts.DataLayout != "" {
		w.DataLayout = opts.DataLayout
	}

	p, err := parser.New(lexer.NewLexer(r, name))
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	if err := codegen.New(w, name).Generate(p); err != nil {
		return nil, tracerr.Wrap(err)
	}

	if opts.Verify {
		mod, err := asm.ParseBytes(name, buf.Bytes())
		if err == nil {
			err = irexec.Verify(mod)
		}
		if err != nil {
			return nil, tracerr.Wrap(errors.InvalidOutput{Path: name, Cause: err})
		}
	}

	return buf.Bytes(), nil
}

// CompileFile compiles input and writes its module. The module only
// appears once it is complete; a failed compilation leaves nothing behind.
func CompileFile(input string, opts Options) (string, error) {
	log := opts.logger().With(zap.String("input", input))
	log.Debug("compiling")

	f, err := os.Open(input)
	if err != nil {
		return "", tracerr.Wrap(errors.FileOpenError{Path: input, Cause: err})
	}
	defer f.Close()

	module, err := Compile(f, input, opts)
	if err != nil {
		log.Debug("failed", zap.Error(tracerr.Unwrap(err)))
		return "", err
	}

	out := opts.OutputPath(input)
	if err := writeAtomic(out, module); err != nil {
		return "", tracerr.Wrap(errors.FileWriteError{Path: out, Cause: err})
	}

	log.Debug("wrote", zap.String("output", out), zap.Int("bytes", len(module)))
	return out, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
