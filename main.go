package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/repr"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"
	"go.uber.org/zap"

	"github.com/pontaoski/icd/ast"
	"github.com/pontaoski/icd/compiler"
	"github.com/pontaoski/icd/config"
	"github.com/pontaoski/icd/irexec"
	"github.com/pontaoski/icd/lexer"
	"github.com/pontaoski/icd/parser"
)

const version = "0.3.0"

var buildFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:    "debug",
		Aliases: []string{"d"},
		Usage:   "log progress and print stack traces for failures",
	},
	&cli.StringFlag{
		Name:  "config",
		Usage: "project file (default: icd.yaml, icd.yml or icd.toml in the working directory)",
	},
	&cli.StringFlag{
		Name:  "output-dir",
		Usage: "write modules here instead of next to each input",
	},
	&cli.IntFlag{
		Name:  "jobs",
		Usage: "files compiled at once (0 means one per CPU)",
	},
	&cli.BoolFlag{
		Name:  "verify",
		Usage: "parse each module back before writing it",
	},
}

// loadOptions merges the project file with the command line, the latter
// taking precedence.
func loadOptions(c *cli.Context) (compiler.Options, int, error) {
	path := c.String("config")
	if path == "" {
		path = config.Find(".")
	}

	conf := config.Default()
	if path != "" {
		var err error
		if conf, err = config.Load(path); err != nil {
			return compiler.Options{}, 0, err
		}
	}
	if err := conf.CheckVersion(version); err != nil {
		return compiler.Options{}, 0, err
	}

	log := zap.NewNop()
	if c.Bool("debug") {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			return compiler.Options{}, 0, err
		}
		log.Debug("configuration", zap.String("file", path), zap.String("triple", conf.Triple))
	}

	opts := compiler.Options{
		OutputDir:  conf.OutputDir,
		Suffix:     conf.Suffix,
		Triple:     conf.Triple,
		DataLayout: conf.DataLayout,
		Verify:     conf.Verify || c.Bool("verify"),
		Logger:     log,
	}
	if c.IsSet("output-dir") {
		opts.OutputDir = c.String("output-dir")
	}

	jobs := conf.Jobs
	if c.IsSet("jobs") {
		jobs = c.Int("jobs")
	}

	return opts, jobs, nil
}

func report(debug bool, r compiler.Result) bool {
	if r.Err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", r.Input, tracerr.Unwrap(r.Err))
		if debug {
			tracerr.PrintSourceColor(r.Err)
		}
		return false
	}
	fmt.Printf("%s -> %s\n", r.Input, r.Output)
	return true
}

func build(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("no input files", 1)
	}

	opts, jobs, err := loadOptions(c)
	if err != nil {
		return err
	}
	defer opts.Logger.Sync()

	failed := 0
	for _, r := range compiler.Build(c.Context, c.Args().Slice(), opts, jobs) {
		if !report(c.Bool("debug"), r) {
			failed++
		}
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", failed, c.NArg()), 1)
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:      "icd",
		Usage:     "compile source files to LLVM IR",
		Version:   version,
		ArgsUsage: "FILE...",
		Flags:     buildFlags,
		Action:    build,
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "compile each file to FILE.ll",
				ArgsUsage: "FILE...",
				Flags:     buildFlags,
				Action:    build,
			},
			{
				Name:      "run",
				Usage:     "compile a file in memory and interpret it",
				ArgsUsage: "FILE",
				Flags:     buildFlags,
				Action: func(c *cli.Context) error {
					input := c.Args().First()
					if input == "" {
						return cli.Exit("no input file", 1)
					}
					opts, _, err := loadOptions(c)
					if err != nil {
						return err
					}

					f, err := os.Open(input)
					if err != nil {
						return err
					}
					defer f.Close()

					module, err := compiler.Compile(f, input, opts)
					if err != nil {
						if c.Bool("debug") {
							tracerr.PrintSourceColor(err)
						}
						return cli.Exit(tracerr.Unwrap(err).Error(), 1)
					}

					status, err := irexec.New(os.Stdout).RunSource(input, string(module))
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return cli.Exit("", int(status))
				},
			},
			{
				Name:      "dump",
				Usage:     "print the tokens, syntax tree or module for a file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "tokens", Usage: "print tokens"},
					&cli.BoolFlag{Name: "repr", Usage: "print syntax trees as Go values"},
					&cli.BoolFlag{Name: "ir", Usage: "print the generated module"},
				},
				Action: dump,
			},
			{
				Name:      "watch",
				Usage:     "recompile files whenever they change",
				ArgsUsage: "FILE...",
				Flags:     buildFlags,
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("no input files", 1)
					}
					opts, _, err := loadOptions(c)
					if err != nil {
						return err
					}
					defer opts.Logger.Sync()

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
					defer stop()

					return compiler.Watch(ctx, c.Args().Slice(), opts, func(r compiler.Result) {
						report(c.Bool("debug"), r)
					})
				},
			},
			{
				Name:  "init",
				Usage: "write a project file with the default settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "toml", Usage: "write icd.toml instead of icd.yaml"},
				},
				Action: func(c *cli.Context) error {
					name := config.FileNames[0]
					if c.Bool("toml") {
						name = "icd.toml"
					}
					if existing := config.Find("."); existing != "" {
						return cli.Exit(fmt.Sprintf("%s already exists", existing), 1)
					}
					conf := config.Default()
					conf.Requires = ">= " + version
					return conf.Save(filepath.Join(".", name))
				},
			},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dump(c *cli.Context) error {
	input := c.Args().First()
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	if c.Bool("ir") {
		module, err := compiler.Compile(f, input, compiler.Options{})
		if err != nil {
			return cli.Exit(tracerr.Unwrap(err).Error(), 1)
		}
		_, err = os.Stdout.Write(module)
		return err
	}

	l := lexer.NewLexer(f, input)
	if c.Bool("tokens") {
		tokens, err := l.ScanAll()
		for _, t := range tokens {
			fmt.Printf("%s\t%s\n", t.Location.From, t)
		}
		return err
	}

	p, err := parser.New(l)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	for {
		node, err := p.ParseGlobalStatement()
		if err != nil {
			return err
		}
		if node == nil {
			break
		}
		if c.Bool("repr") {
			repr.Println(node)
			continue
		}
		out.WriteString(ast.String(node))
		out.WriteString("\n\n")
	}
	_, err = out.WriteTo(os.Stdout)
	return err
}
