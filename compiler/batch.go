package compiler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of compiling one input.
type Result struct {
	Input  string
	Output string
	Err    error
}

// Build compiles every input, at most jobs at a time (jobs <= 0 means one
// per CPU). A failing file does not stop the others; results come back in
// input order.
func Build(ctx context.Context, inputs []string, opts Options, jobs int) []Result {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	results := make([]Result, len(inputs))

	var g errgroup.Group
	g.SetLimit(jobs)

	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			results[i].Input = input
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Output, results[i].Err = CompileFile(input, opts)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
