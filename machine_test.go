package befunge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRunPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"digit", "7.@", "7"},
		{"multiply", "25*.@", "10"},
		{"add", "34+.@", "7"},
		{"subtract order", "52-.@", "3"},
		{"divide", "72/.@", "3"},
		{"divide by zero", "50/.@", "0"},
		{"divide floors", "07-2/.@", "-4"},
		{"modulo", "73%.@", "1"},
		{"modulo by zero", "50%.@", "0"},
		{"modulo keeps dividend sign", "07-3%.@", "-1"},
		{"not zero", "0!.@", "1"},
		{"not nonzero", "5!.@", "0"},
		{"greater", "52`.@", "1"},
		{"not greater", "25`.@", "0"},
		{"equal not greater", "55`.@", "0"},
		{"dup", "3:+.@", "6"},
		{"dup empty", ":..@", "00"},
		{"swap", `12\..@`, "12"},
		{"swap single", `5\..@`, "05"},
		{"discard", "12$.@", "1"},
		{"discard empty", "$7.@", "7"},
		{"pop empty", ".@", "0"},
		{"string mode reverses", `"Hi",,@`, "iH"},
		{"string mode pushes codes", `"1 "..@`, "3249"},
		{"char output", `"A",@`, "A"},
		{"trampoline", "1#2.@", "1"},
		{"letters are no-ops", "7xyz.@", "7"},
		{"input instructions are no-ops", "7&~.@", "7"},
		{"horizontal if zero", "0_1.@", "1"},
		{"horizontal if nonzero", "1_@.5", "5"},
		{"vertical if zero", "0|\n 7\n .\n @", "7"},
		{"vertical if nonzero", "1|\n @\n 9\n .", "0"},
		{"left wraps to last column", "<@.7", "7"},
		{"hello world", `"dlrow olleH">:#,_@`, "Hello world"},
		{"put then get", `"5"00p00g,@`, "5"},
		{"get beyond grid", "99g.@", "32"},
		{"put ahead of the pointer", `"@"90p5.  `, "5"},
		{"empty row", "v\n\n@", ""},
		{"column wraps against destination row", "  v\n@", ""},
		{"unicode output", "\"\u00e9\",@", "\u00e9"},
		{"invalid code point", "01-,@", "\uFFFD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Run(context.Background(), tt.src, WithMaxSteps(10000))
			if err != nil {
				t.Fatalf("Run(%q) error: %v", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Run(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestRunEmptyProgram(t *testing.T) {
	if _, err := Run(context.Background(), ""); !errors.Is(err, ErrMalformedProgram) {
		t.Fatalf("expected ErrMalformedProgram, got %v", err)
	}
	if _, err := New(nil); !errors.Is(err, ErrMalformedProgram) {
		t.Fatalf("expected ErrMalformedProgram for nil grid, got %v", err)
	}
}

func TestPutFarAwayFinishesPromptly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 99*:*:* is 9^8.
	src := `"A"099*:*:*p099*:*:*g,@`
	m, err := New(NewGrid(src), WithMaxSteps(100))
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	out, err := m.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out != "A" {
		t.Errorf("expected %q, got %q", "A", out)
	}
	if m.Grid().Height() != 1 {
		t.Errorf("expected the grid to keep 1 row, got %d", m.Grid().Height())
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("run took %s", d)
	}
}

func TestStepLimit(t *testing.T) {
	m, err := New(NewGrid(" "), WithMaxSteps(100))
	if err != nil {
		t.Fatal(err)
	}

	out, err := m.Run(context.Background())
	if !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("expected ErrStepLimitExceeded, got %v", err)
	}
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
	if m.Steps() != 100 {
		t.Errorf("expected 100 steps, got %d", m.Steps())
	}
	if m.State() != Running {
		t.Errorf("expected running state, got %s", m.State())
	}
}

func TestStepLimitKeepsPartialOutput(t *testing.T) {
	out, err := Run(context.Background(), "1.", WithMaxSteps(6))
	if !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("expected ErrStepLimitExceeded, got %v", err)
	}
	// Moving right off the last column re-enters at column 0.
	if out != "111" {
		t.Errorf("expected %q, got %q", "111", out)
	}
}

func TestStepLimitAllowsExactFit(t *testing.T) {
	out, err := Run(context.Background(), "7.@", WithMaxSteps(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "7" {
		t.Errorf("expected %q, got %q", "7", out)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, " ")
	if !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("expected ErrStepLimitExceeded, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in %v", err)
	}
}

func TestRunDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Run(ctx, ">v\n^<")
	if !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("expected ErrStepLimitExceeded, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded in %v", err)
	}
}

func TestStepMovement(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		steps int
		x, y  int
		dir   Dir
	}{
		{"right", "123", 2, 2, 0, Right},
		{"right wraps", "123", 3, 0, 0, Right},
		{"left wraps", "<23", 1, 2, 0, Left},
		{"down wraps", "v\n \n ", 3, 0, 0, Down},
		{"up wraps", "^\n \n ", 1, 0, 2, Up},
		{"short row", "  v\n1", 3, 0, 1, Down},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(NewGrid(tt.src))
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < tt.steps; i++ {
				if _, err := m.Step(); err != nil {
					t.Fatal(err)
				}
			}
			x, y, dir := m.Position()
			if x != tt.x || y != tt.y || dir != tt.dir {
				t.Errorf("expected (%d,%d) %s, got (%d,%d) %s", tt.x, tt.y, tt.dir, x, y, dir)
			}
		})
	}
}

func TestStepAfterTermination(t *testing.T) {
	m, err := New(NewGrid("@"))
	if err != nil {
		t.Fatal(err)
	}

	done, err := m.Step()
	if err != nil || !done {
		t.Fatalf("expected done, got %v %v", done, err)
	}
	if m.State() != Terminated {
		t.Fatalf("expected terminated, got %s", m.State())
	}

	done, err = m.Step()
	if err != nil || !done {
		t.Fatalf("expected done again, got %v %v", done, err)
	}
	if m.Steps() != 1 {
		t.Errorf("expected 1 step, got %d", m.Steps())
	}
}

func TestStringModeFlag(t *testing.T) {
	m, err := New(NewGrid(`"a"@`))
	if err != nil {
		t.Fatal(err)
	}
	m.Step()
	if !m.StringMode() {
		t.Fatal("expected string mode after opening quote")
	}
	m.Step()
	m.Step()
	if m.StringMode() {
		t.Fatal("expected string mode off after closing quote")
	}
	if got := m.Stack(); len(got) != 1 || got[0] != 'a' {
		t.Errorf("expected stack [97], got %v", got)
	}
}

func TestTrampolineSkipsQuote(t *testing.T) {
	// '#' skips the quote, so 5 is pushed as a digit and not as a code.
	out, err := Run(context.Background(), `#"5.@`)
	if err != nil {
		t.Fatal(err)
	}
	if out != "5" {
		t.Errorf("expected %q, got %q", "5", out)
	}
}

// scriptedRand returns the queued values in order.
type scriptedRand struct {
	values []int
	ns     []int
}

func (r *scriptedRand) IntN(n int) int {
	r.ns = append(r.ns, n)
	v := r.values[0]
	r.values = r.values[1:]
	return v
}

func TestRandomDirection(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   string
	}{
		{"right", []int{1}, "1"},
		{"left", []int{0}, ""},
		{"up then right", []int{2, 1}, "1"},
		{"down then right", []int{3, 1}, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &scriptedRand{values: tt.values}
			out, err := Run(context.Background(), "?1.@", WithRand(r), WithMaxSteps(100))
			if err != nil {
				t.Fatal(err)
			}
			if out != tt.want {
				t.Errorf("expected %q, got %q", tt.want, out)
			}
			for _, n := range r.ns {
				if n != 4 {
					t.Errorf("expected IntN(4), got IntN(%d)", n)
				}
			}
		})
	}
}

func TestSeededRandIsRepeatable(t *testing.T) {
	src := "v>1.@\n>?2.@\n >3.@\n >4.@"
	first, err := Run(context.Background(), src, WithSeed(42), WithMaxSteps(1000))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := Run(context.Background(), src, WithSeed(42), WithMaxSteps(1000))
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("seed 42 gave %q then %q", first, again)
		}
	}
}

// fragments records every write separately.
type fragments struct {
	parts []string
}

func (f *fragments) Write(p []byte) (int, error) {
	f.parts = append(f.parts, string(p))
	return len(p), nil
}

func TestWithOutputStreams(t *testing.T) {
	f := &fragments{}
	out, err := Run(context.Background(), `"Hi",,77*.@`, WithOutput(f))
	if err != nil {
		t.Fatal(err)
	}
	if out != "iH49" {
		t.Fatalf("expected %q, got %q", "iH49", out)
	}
	want := []string{"i", "H", "49"}
	if strings.Join(f.parts, "|") != strings.Join(want, "|") {
		t.Errorf("expected fragments %q, got %q", want, f.parts)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("closed")
}

func TestWithOutputSinkFailure(t *testing.T) {
	out, err := Run(context.Background(), "12..@", WithOutput(failingWriter{}))
	if err != nil {
		t.Fatalf("a failing sink must not stop the program: %v", err)
	}
	if out != "21" {
		t.Errorf("expected %q, got %q", "21", out)
	}
}

func TestWithRectangular(t *testing.T) {
	// Without padding the pointer drops into column 0 of the short row and
	// hits '@'. Padded, column 2 is blank and the program never ends.
	if _, err := Run(context.Background(), "  v\n@", WithMaxSteps(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := Run(context.Background(), "  v\n@", WithRectangular(), WithMaxSteps(100))
	if !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("expected ErrStepLimitExceeded, got %v", err)
	}
}

func TestPutGrowsGrid(t *testing.T) {
	m, err := New(NewGrid(`"A"45*3p@`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	g := m.Grid()
	if g.Get(20, 3) != 'A' {
		t.Errorf("expected 'A' at (20,3), got %q", g.Get(20, 3))
	}
	if g.Height() != 4 {
		t.Errorf("expected 4 rows, got %d", g.Height())
	}
	if g.Width(3) != 21 {
		t.Errorf("expected row 3 width 21, got %d", g.Width(3))
	}
	if g.Width(1) != 0 {
		t.Errorf("expected row 1 to stay empty, got width %d", g.Width(1))
	}
}

func TestPutNegativeIgnored(t *testing.T) {
	src := `"A"01-0p@`
	m, err := New(NewGrid(src))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := m.Grid().String(); got != src {
		t.Errorf("expected grid unchanged, got %q", got)
	}
}

func TestConcurrentMachines(t *testing.T) {
	src := `"dlrow olleH">:#,_@`
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := Run(context.Background(), src)
			if err != nil {
				errs <- err
				return
			}
			if out != "Hello world" {
				errs <- errors.New("unexpected output " + out)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestMachineIDsAreUnique(t *testing.T) {
	a, _ := New(NewGrid("@"))
	b, _ := New(NewGrid("@"))
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct ids, both %s", a.ID())
	}
}
