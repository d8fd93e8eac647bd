package indicators

import "fmt"

// Window is a fixed-capacity FIFO of float64 samples. When full, pushing a
// new sample evicts the oldest one.
type Window struct {
	capacity int
	values   []float64
}

// NewWindow creates a window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		panic(fmt.Sprintf("indicators: window capacity must be positive, got %d", capacity))
	}
	return &Window{
		capacity: capacity,
		values:   make([]float64, 0, capacity),
	}
}

func (w *Window) Name() string {
	return fmt.Sprintf("Window(%d)", w.capacity)
}

func (w *Window) Len() int { return len(w.values) }

func (w *Window) Cap() int { return w.capacity }

func (w *Window) Reset() {
	w.values = w.values[:0]
}

// Push appends v, dropping the oldest sample if the window is full.
func (w *Window) Push(v float64) {
	if len(w.values) == w.capacity {
		copy(w.values, w.values[1:])
		w.values = w.values[:len(w.values)-1]
	}
	w.values = append(w.values, v)
}

// Values returns a copy, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// Last returns the newest sample.
func (w *Window) Last() (float64, bool) {
	if len(w.values) == 0 {
		return 0, false
	}
	return w.values[len(w.values)-1], true
}

// Tail returns the newest n samples (all of them if fewer are held).
// The returned slice aliases the window and must not be retained.
func (w *Window) Tail(n int) []float64 {
	if n > len(w.values) {
		n = len(w.values)
	}
	if n < 0 {
		n = 0
	}
	return w.values[len(w.values)-n:]
}

// Mean is the arithmetic mean of all held samples.
func (w *Window) Mean() float64 {
	return Mean(w.values)
}

// StdDev is the population standard deviation of all held samples.
func (w *Window) StdDev() float64 {
	return StdDev(w.values)
}

// TailMean averages the newest n samples.
func (w *Window) TailMean(n int) float64 {
	return Mean(w.Tail(n))
}
