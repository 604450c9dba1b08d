package befunge

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("befunge")

// How often Run looks at its context, in steps.
const ctxCheckInterval = 1024

type Dir struct {
	DX, DY int
}

var (
	Right = Dir{1, 0}
	Left  = Dir{-1, 0}
	Up    = Dir{0, -1}
	Down  = Dir{0, 1}
)

func (d Dir) String() string {
	switch d {
	case Right:
		return "right"
	case Left:
		return "left"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return fmt.Sprintf("(%d,%d)", d.DX, d.DY)
}

type State int

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

// Rand picks the direction for '?'. IntN returns a value in [0, n).
type Rand interface {
	IntN(n int) int
}

type Option func(*Machine)

// WithRand replaces the random source used by '?'.
func WithRand(r Rand) Option {
	return func(m *Machine) { m.rand = r }
}

// WithSeed makes '?' deterministic.
func WithSeed(seed int64) Option {
	return func(m *Machine) { m.rand = newRand(seed) }
}

// WithMaxSteps bounds execution. Zero means no bound.
func WithMaxSteps(n int) Option {
	return func(m *Machine) { m.maxSteps = n }
}

// WithOutput streams every output fragment to w as it is produced, in
// addition to accumulating it.
func WithOutput(w io.Writer) Option {
	return func(m *Machine) { m.sink = w }
}

// WithRectangular pads the grid to its widest row before running, so every
// row wraps at the same column.
func WithRectangular() Option {
	return func(m *Machine) { m.grid.Pad() }
}

func WithLogger(l commonlog.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// Machine is one running program. It owns its grid, stack and output, so
// separate machines can run on separate goroutines.
type Machine struct {
	id   uuid.UUID
	grid *Grid

	x, y int
	dir  Dir

	stack      Stack
	stringMode bool
	skipNext   bool

	out  strings.Builder
	sink io.Writer

	rand     Rand
	steps    int
	maxSteps int
	state    State

	log commonlog.Logger
}

// New prepares a machine for g. The machine mutates g as the program runs.
func New(g *Grid, opts ...Option) (*Machine, error) {
	m, err := newMachine(uuid.New(), g, opts)
	if err != nil {
		return nil, err
	}

	h, w := g.Size()
	m.log.Debugf("new machine for %dx%d grid", w, h)
	return m, nil
}

func newMachine(id uuid.UUID, g *Grid, opts []Option) (*Machine, error) {
	if g == nil || g.Height() == 0 {
		return nil, ErrMalformedProgram
	}

	m := &Machine{
		id:   id,
		grid: g,
		dir:  Right,
		log:  log,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rand == nil {
		m.rand = newRand(0)
	}
	m.log = commonlog.NewKeyValueLogger(m.log, "run", id.String())
	return m, nil
}

// Run parses src and runs it to completion.
func Run(ctx context.Context, src string, opts ...Option) (string, error) {
	m, err := New(NewGrid(src), opts...)
	if err != nil {
		return "", err
	}
	return m.Run(ctx)
}

func (m *Machine) ID() uuid.UUID { return m.id }
func (m *Machine) Grid() *Grid { return m.grid }
func (m *Machine) Stack() []int { return m.stack.Values() }
func (m *Machine) Steps() int { return m.steps }
func (m *Machine) State() State { return m.state }
func (m *Machine) Output() string { return m.out.String() }
func (m *Machine) StringMode() bool { return m.stringMode }
func (m *Machine) Position() (x, y int, dir Dir) {
	return m.x, m.y, m.dir
}

// Run steps the machine until '@', the step limit, or ctx is done. The
// output produced so far is returned in every case.
func (m *Machine) Run(ctx context.Context) (string, error) {
	for {
		if m.steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				m.log.Warningf("stopped after %d steps: %s", m.steps, err)
				return m.Output(), fmt.Errorf("%w: %w", ErrStepLimitExceeded, err)
			}
		}

		done, err := m.Step()
		if err != nil {
			m.log.Warningf("stopped after %d steps: %s", m.steps, err)
			return m.Output(), err
		}
		if done {
			m.log.Debugf("terminated after %d steps", m.steps)
			return m.Output(), nil
		}
	}
}

// Step executes the cell under the instruction pointer and moves on. It
// reports true once the program has terminated.
func (m *Machine) Step() (bool, error) {
	if m.state == Terminated {
		return true, nil
	}
	if m.maxSteps > 0 && m.steps >= m.maxSteps {
		return false, fmt.Errorf("%w: %d steps", ErrStepLimitExceeded, m.steps)
	}
	m.steps++

	c := m.grid.Get(m.x, m.y)
	switch {
	case m.skipNext:
		m.skipNext = false
	case m.stringMode && c != '"':
		m.stack.Push(int(c))
	case c >= 0 && int(c) < len(ops):
		if op := ops[c]; op != nil {
			op(m)
		}
	}

	m.move()
	return m.state == Terminated, nil
}

// Rows wrap against the row count and columns against the length of the
// row being entered.
func (m *Machine) move() {
	m.y = wrap(m.y+m.dir.DY, m.grid.Height())
	m.x = wrap(m.x+m.dir.DX, max(m.grid.Width(m.y), 1))
}

func wrap(pos, extent int) int {
	return (pos%extent + extent) % extent
}

func (m *Machine) write(s string) {
	m.out.WriteString(s)
	if m.sink == nil {
		return
	}
	if _, err := io.WriteString(m.sink, s); err != nil {
		m.log.Errorf("output sink: %s", err)
		m.sink = nil
	}
}

func newRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>32))
}
