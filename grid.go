package befunge

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const Space = ' '

// Writes past this column or row don't grow the grid. They go to a sparse
// side table instead, where 'g' can still read them.
const maxDenseExtent = 1 << 10

// Grid is the program surface. Rows keep the length they were loaded with
// and only grow when a cell past their end is written.
type Grid struct {
	rows [][]rune
	far  map[cell]rune
}

type cell struct {
	X, Y int
}

func NewGrid(src string) *Grid {
	// Reading from a strings.Reader can't fail.
	g, _ := Parse(strings.NewReader(src))
	return g
}

// Parse reads program text one row per line. A trailing CR is dropped from
// every row and a final newline does not start a new row.
func Parse(r io.Reader) (*Grid, error) {
	reader := bufio.NewReader(r)
	g := &Grid{}

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read program: %w", err)
		}
		if err == io.EOF && line == "" {
			break
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		g.rows = append(g.rows, []rune(line))

		if err == io.EOF {
			break
		}
	}

	return g, nil
}

func (g *Grid) Height() int {
	return len(g.rows)
}

// Width returns the length of row y, or 0 for a row that doesn't exist.
func (g *Grid) Width(y int) int {
	if y < 0 || y >= len(g.rows) {
		return 0
	}
	return len(g.rows[y])
}

// Size returns the row count and the length of the widest row.
func (g *Grid) Size() (height, width int) {
	for _, row := range g.rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return len(g.rows), width
}

// Get returns the character at column x of row y, or a space for any cell
// that was never materialized.
func (g *Grid) Get(x, y int) rune {
	if c, ok := g.far[cell{x, y}]; ok {
		return c
	}
	if y < 0 || y >= len(g.rows) || x < 0 || x >= len(g.rows[y]) {
		return Space
	}
	return g.rows[y][x]
}

// Put stores c at column x of row y, growing the grid with spaces as needed.
// Negative coordinates are ignored. A cell beyond maxDenseExtent that isn't
// already part of a loaded row is kept aside and never executed.
func (g *Grid) Put(x, y int, c rune) {
	if x < 0 || y < 0 {
		return
	}
	if x >= g.Width(y) && (x >= maxDenseExtent || y >= maxDenseExtent) {
		if g.far == nil {
			g.far = make(map[cell]rune)
		}
		g.far[cell{x, y}] = c
		return
	}
	delete(g.far, cell{x, y})

	for len(g.rows) <= y {
		g.rows = append(g.rows, nil)
	}
	row := g.rows[y]
	for len(row) <= x {
		row = append(row, Space)
	}
	row[x] = c
	g.rows[y] = row
}

// Pad extends every row with spaces to the width of the widest row.
func (g *Grid) Pad() {
	_, w := g.Size()
	for y, row := range g.rows {
		for len(row) < w {
			row = append(row, Space)
		}
		g.rows[y] = row
	}
}

func (g *Grid) String() string {
	var b strings.Builder
	for y, row := range g.rows {
		if y > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}
