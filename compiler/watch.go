package compiler

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch compiles every input once, then again each time it is written,
// until ctx is done. Directories are watched rather than files so editors
// that save by renaming are still noticed.
func Watch(ctx context.Context, inputs []string, opts Options, report func(Result)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := make(map[string]string)
	dirs := make(map[string]bool)
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return err
		}
		watched[abs] = input

		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return err
			}
			dirs[dir] = true
		}
	}

	for _, r := range Build(ctx, inputs, opts, 0) {
		report(r)
	}

	log := opts.logger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			input, ok := watched[ev.Name]
			if !ok {
				continue
			}
			log.Debug("changed", zap.String("input", input), zap.Stringer("op", ev.Op))
			out, err := CompileFile(input, opts)
			report(Result{Input: input, Output: out, Err: err})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}
