package dice

import "sync"

// Sequence is a scripted Source that replays fixed values. It is intended for
// tests that need to force a specific branch (a critical hit, a run state).
//
// Float64 returns Floats in order and then repeats the last one; Intn returns
// Ints in order (each reduced modulo n) and then repeats the last one. An empty
// list yields 0.
type Sequence struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
	fi, ii int
}

// NewSequence returns a Sequence that replays floats from Float64.
func NewSequence(floats ...float64) *Sequence {
	return &Sequence{Floats: floats}
}

// WithInts sets the values replayed by Intn and returns s.
func (s *Sequence) WithInts(ints ...int) *Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Ints = ints
	s.ii = 0
	return s
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[min(s.fi, len(s.Floats)-1)]
	s.fi++
	return v
}

func (s *Sequence) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[min(s.ii, len(s.Ints)-1)]
	s.ii++
	if v < 0 {
		v = -v
	}
	return v % n
}
