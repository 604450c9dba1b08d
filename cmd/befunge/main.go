// befunge runs Befunge-93 programs from a file, stdin, or an interactive prompt.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goforj/godump"
	"github.com/tliron/commonlog"
	"golang.org/x/term"

	befunge "github.com/dittos/befungego"

	_ "github.com/tliron/commonlog/simple"
)

const (
	exitOK = iota
	exitError
	exitUsage
	exitStepLimit
)

type options struct {
	config   string
	maxSteps int
	timeout  time.Duration
	seed     int64
	rect     bool
	verbose  int
	dump     bool
	snapshot string
	resume   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var o options
	fs := flag.NewFlagSet("befunge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.config, "config", "", "Config file (default: nearest "+befunge.ConfigFile+")")
	fs.IntVar(&o.maxSteps, "max-steps", 0, "Stop after this many steps (0 = no limit)")
	fs.DurationVar(&o.timeout, "timeout", 0, "Stop after this long (0 = no limit)")
	fs.Int64Var(&o.seed, "seed", 0, "Seed for '?' (0 = random)")
	fs.BoolVar(&o.rect, "rect", false, "Pad rows to the widest row before running")
	fs.IntVar(&o.verbose, "v", 0, "Log verbosity")
	fs.BoolVar(&o.dump, "dump", false, "Dump the final machine state")
	fs.StringVar(&o.snapshot, "snapshot", "", "Write a snapshot here if the program is stopped by a limit")
	fs.StringVar(&o.resume, "resume", "", "Continue from a snapshot instead of loading a program")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: befunge [options] [file.bf | -]\n\n")
		fmt.Fprintf(stderr, "Runs a Befunge-93 program. With no file and a terminal on stdin,\n")
		fmt.Fprintf(stderr, "program lines are read interactively; an empty line runs them.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(o.config)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-steps":
			cfg.MaxSteps = o.maxSteps
		case "timeout":
			cfg.Timeout.Duration = o.timeout
		case "seed":
			cfg.Seed = o.seed
		case "rect":
			cfg.Rectangular = o.rect
		case "v":
			cfg.Verbosity = o.verbose
		}
	})

	if cfg.LogFile != "" {
		commonlog.Configure(cfg.Verbosity, &cfg.LogFile)
	} else {
		commonlog.Configure(cfg.Verbosity, nil)
	}

	h := &host{cfg: cfg, opts: o, stdout: stdout, stderr: stderr}

	if o.resume != "" {
		data, err := os.ReadFile(o.resume)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		m, err := befunge.Restore(data, h.machineOptions()...)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		return h.execute(m)
	}

	path := fs.Arg(0)
	if path == "" && isTerminal(stdin) {
		return repl(h)
	}

	grid, err := readProgram(path, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	m, err := befunge.New(grid, h.machineOptions()...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return h.execute(m)
}

func loadConfig(path string) (*befunge.Config, error) {
	if path != "" {
		return befunge.LoadConfig(path)
	}
	return befunge.FindConfig(".")
}

func readProgram(path string, stdin io.Reader) (*befunge.Grid, error) {
	if path == "" || path == "-" {
		return befunge.Parse(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return befunge.Parse(f)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type host struct {
	cfg    *befunge.Config
	opts   options
	stdout io.Writer
	stderr io.Writer
}

func (h *host) machineOptions() []befunge.Option {
	return append(h.cfg.Options(), befunge.WithOutput(h.stdout))
}

// execute runs m with the configured timeout and reports how it ended.
func (h *host) execute(m *befunge.Machine) int {
	ctx := context.Background()
	if h.cfg.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout.Duration)
		defer cancel()
	}

	_, err := m.Run(ctx)

	if h.opts.dump {
		godump.Fdump(h.stderr, stateOf(m))
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, befunge.ErrStepLimitExceeded):
		fmt.Fprintf(h.stderr, "\nError: %v\n", err)
		if h.opts.snapshot != "" {
			if err := writeSnapshot(m, h.opts.snapshot); err != nil {
				fmt.Fprintf(h.stderr, "Error: %v\n", err)
				return exitError
			}
		}
		return exitStepLimit
	default:
		fmt.Fprintf(h.stderr, "\nError: %v\n", err)
		return exitError
	}
}

func writeSnapshot(m *befunge.Machine, path string) error {
	data, err := m.Snapshot()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write snapshot %s: %w", path, err)
	}
	return nil
}

// machineState is what -dump prints.
type machineState struct {
	ID         string
	State      string
	Steps      int
	X, Y       int
	Dir        string
	StringMode bool
	Stack      []int
	Grid       string
}

func stateOf(m *befunge.Machine) machineState {
	x, y, dir := m.Position()
	return machineState{
		ID:         m.ID().String(),
		State:      m.State().String(),
		Steps:      m.Steps(),
		X:          x,
		Y:          y,
		Dir:        dir.String(),
		StringMode: m.StringMode(),
		Stack:      m.Stack(),
		Grid:       m.Grid().String(),
	}
}
