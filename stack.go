package befunge

// Stack is the data stack. Popping an empty stack yields 0.
type Stack struct {
	values []int
}

func (s *Stack) Len() int {
	return len(s.values)
}

func (s *Stack) Push(value int) {
	s.values = append(s.values, value)
}

func (s *Stack) Pop() (value int) {
	last := len(s.values) - 1
	if last < 0 {
		return 0
	}
	value = s.values[last]
	s.values = s.values[:last]
	return
}

func (s *Stack) Peek() int {
	if len(s.values) == 0 {
		return 0
	}
	return s.values[len(s.values)-1]
}

// Dup pushes a copy of the top value, or two zeros on an empty stack.
func (s *Stack) Dup() {
	if len(s.values) == 0 {
		s.Push(0)
	}
	s.Push(s.Peek())
}

// Swap exchanges the top two values. A missing second value is taken as 0.
func (s *Stack) Swap() {
	a := s.Pop()
	b := s.Pop()
	s.Push(a)
	s.Push(b)
}

// Values returns a copy of the stack, bottom first.
func (s *Stack) Values() []int {
	return append([]int(nil), s.values...)
}
