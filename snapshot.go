package befunge

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("befunge: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// snapshot is the wire form of a paused machine.
type snapshot struct {
	ID         string   `cbor:"1,keyasint"`
	Rows       []string `cbor:"2,keyasint"`
	X          int      `cbor:"3,keyasint"`
	Y          int      `cbor:"4,keyasint"`
	DX         int      `cbor:"5,keyasint"`
	DY         int      `cbor:"6,keyasint"`
	Stack      []int    `cbor:"7,keyasint"`
	StringMode bool     `cbor:"8,keyasint"`
	SkipNext   bool     `cbor:"9,keyasint"`
	Output     string   `cbor:"10,keyasint"`
	Steps      int      `cbor:"11,keyasint"`
	Terminated bool     `cbor:"12,keyasint"`
	Far        []farPut `cbor:"13,keyasint,omitempty"`
}

// farPut is one cell stored outside the grid rows.
type farPut struct {
	_ struct{} `cbor:",toarray"`
	X int
	Y int
	C rune
}

// Snapshot encodes everything needed to continue the machine later: the
// grid as modified so far, the instruction pointer, stack, flags, output and
// step count. The step limit, random source and output sink are not saved.
func (m *Machine) Snapshot() ([]byte, error) {
	s := snapshot{
		ID:         m.id.String(),
		Rows:       make([]string, len(m.grid.rows)),
		X:          m.x,
		Y:          m.y,
		DX:         m.dir.DX,
		DY:         m.dir.DY,
		Stack:      m.stack.Values(),
		StringMode: m.stringMode,
		SkipNext:   m.skipNext,
		Output:     m.out.String(),
		Steps:      m.steps,
		Terminated: m.state == Terminated,
	}
	for y, row := range m.grid.rows {
		s.Rows[y] = string(row)
	}
	for k, c := range m.grid.far {
		s.Far = append(s.Far, farPut{X: k.X, Y: k.Y, C: c})
	}
	sort.Slice(s.Far, func(i, j int) bool {
		if s.Far[i].Y != s.Far[j].Y {
			return s.Far[i].Y < s.Far[j].Y
		}
		return s.Far[i].X < s.Far[j].X
	})

	data, err := snapshotEncMode.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("befunge: marshal snapshot: %w", err)
	}
	return data, nil
}

// Restore rebuilds a machine from Snapshot output. It keeps the original run
// id; opts apply as for New. A step limit given here counts from the
// restored step count.
func Restore(data []byte, opts ...Option) (*Machine, error) {
	var s snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	g := &Grid{rows: make([][]rune, len(s.Rows))}
	for y, row := range s.Rows {
		g.rows[y] = []rune(row)
	}
	for _, f := range s.Far {
		if f.X < 0 || f.Y < 0 {
			return nil, fmt.Errorf("%w: cell (%d,%d)", ErrBadSnapshot, f.X, f.Y)
		}
		if g.far == nil {
			g.far = make(map[cell]rune)
		}
		g.far[cell{f.X, f.Y}] = f.C
	}

	dir := Dir{s.DX, s.DY}
	switch dir {
	case Right, Left, Up, Down:
	default:
		return nil, fmt.Errorf("%w: direction %s", ErrBadSnapshot, dir)
	}
	if s.Y < 0 || s.Y >= g.Height() || s.X < 0 || s.X >= max(g.Width(s.Y), 1) {
		return nil, fmt.Errorf("%w: position (%d,%d)", ErrBadSnapshot, s.X, s.Y)
	}
	if s.Steps < 0 {
		return nil, fmt.Errorf("%w: %d steps", ErrBadSnapshot, s.Steps)
	}

	id, err := uuid.Parse(s.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: run id: %w", ErrBadSnapshot, err)
	}
	m, err := newMachine(id, g, opts)
	if err != nil {
		return nil, err
	}

	m.x, m.y = s.X, s.Y
	m.dir = dir
	m.stack.values = s.Stack
	m.stringMode = s.StringMode
	m.skipNext = s.SkipNext
	m.out.WriteString(s.Output)
	m.steps = s.Steps
	if m.maxSteps > 0 {
		m.maxSteps += s.Steps
	}
	if s.Terminated {
		m.state = Terminated
	}

	m.log.Debugf("restored at (%d,%d) after %d steps", m.x, m.y, m.steps)
	return m, nil
}
