package befunge

import (
	"strconv"
	"unicode/utf8"
)

// ops maps every ASCII instruction to its handler. Characters without an
// entry, and everything outside ASCII, are no-ops.
var ops = [128]func(m *Machine){
	'0': pushDigit(0),
	'1': pushDigit(1),
	'2': pushDigit(2),
	'3': pushDigit(3),
	'4': pushDigit(4),
	'5': pushDigit(5),
	'6': pushDigit(6),
	'7': pushDigit(7),
	'8': pushDigit(8),
	'9': pushDigit(9),

	'+': binary(func(a, b int) int { return b + a }),
	'-': binary(func(a, b int) int { return b - a }),
	'*': binary(func(a, b int) int { return b * a }),
	'/': binary(div),
	'%': binary(mod),
	'`': binary(func(a, b int) int { return boolInt(b > a) }),
	'!': func(m *Machine) { m.stack.Push(boolInt(m.stack.Pop() == 0)) },

	'>': func(m *Machine) { m.dir = Right },
	'<': func(m *Machine) { m.dir = Left },
	'^': func(m *Machine) { m.dir = Up },
	'v': func(m *Machine) { m.dir = Down },
	'?': func(m *Machine) { m.dir = randomDirs[m.rand.IntN(len(randomDirs))] },
	'_': func(m *Machine) { m.dir = branch(m.stack.Pop(), Right, Left) },
	'|': func(m *Machine) { m.dir = branch(m.stack.Pop(), Down, Up) },
	'#': func(m *Machine) { m.skipNext = true },
	'@': func(m *Machine) { m.state = Terminated },

	'"':  func(m *Machine) { m.stringMode = !m.stringMode },
	':':  func(m *Machine) { m.stack.Dup() },
	'\\': func(m *Machine) { m.stack.Swap() },
	'$':  func(m *Machine) { m.stack.Pop() },

	'.': func(m *Machine) { m.write(strconv.Itoa(m.stack.Pop())) },
	',': func(m *Machine) { m.write(string(toRune(m.stack.Pop()))) },

	'p': put,
	'g': get,
}

var randomDirs = [...]Dir{Left, Right, Up, Down}

func pushDigit(n int) func(m *Machine) {
	return func(m *Machine) { m.stack.Push(n) }
}

// binary pops a, then b, and pushes f(a, b).
func binary(f func(a, b int) int) func(m *Machine) {
	return func(m *Machine) {
		a := m.stack.Pop()
		b := m.stack.Pop()
		m.stack.Push(f(a, b))
	}
}

// div is b/a rounded toward negative infinity; division by zero gives 0.
func div(a, b int) int {
	if a == 0 {
		return 0
	}
	q := b / a
	if b%a != 0 && (b < 0) != (a < 0) {
		q--
	}
	return q
}

// mod is the truncated remainder b%a; modulo zero gives 0.
func mod(a, b int) int {
	if a == 0 {
		return 0
	}
	return b % a
}

func branch(v int, zero, nonzero Dir) Dir {
	if v == 0 {
		return zero
	}
	return nonzero
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toRune(v int) rune {
	if v < 0 || v > utf8.MaxRune {
		return utf8.RuneError
	}
	return rune(v)
}

func put(m *Machine) {
	y := m.stack.Pop()
	x := m.stack.Pop()
	v := m.stack.Pop()
	m.grid.Put(x, y, toRune(v))
}

func get(m *Machine) {
	y := m.stack.Pop()
	x := m.stack.Pop()
	m.stack.Push(int(m.grid.Get(x, y)))
}
