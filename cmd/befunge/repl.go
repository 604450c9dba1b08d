package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/danswartzendruber/liner"

	befunge "github.com/dittos/befungego"
)

const (
	firstPrompt = "bf> "
	morePrompt  = "... "
)

// repl collects program rows until an empty line, runs them, and starts
// over. ^C drops the rows entered so far; ^D at the prompt quits.
func repl(h *host) int {
	l := liner.NewLiner()
	defer l.Close()

	l.SetMultiLineMode(true)

	for {
		rows, ok := readRows(l)
		if !ok {
			return exitOK
		}
		if len(rows) == 0 {
			continue
		}

		m, err := befunge.New(befunge.NewGrid(strings.Join(rows, "\n")), h.machineOptions()...)
		if err != nil {
			fmt.Fprintf(h.stderr, "Error: %v\n", err)
			continue
		}
		h.execute(m)
		fmt.Fprintln(h.stdout)
	}
}

// prompter is the part of *liner.State that readRows needs.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// readRows returns false once input is exhausted.
func readRows(l prompter) ([]string, bool) {
	var rows []string
	prompt := firstPrompt

	for {
		s, err := l.Prompt(prompt)
		switch {
		case err == io.EOF:
			return rows, len(rows) > 0
		case err == liner.ErrPromptAborted:
			return nil, true
		case err != nil:
			return nil, false
		}

		if s == "" {
			return rows, true
		}
		rows = append(rows, s)
		l.AppendHistory(s)
		prompt = morePrompt
	}
}
