package slicer

import "math"

// RollingStats keeps a bounded FIFO of recent dissimilarity scores and
// exposes the mean and standard deviation of its current contents. The
// oldest score is evicted first once the window is full.
type RollingStats struct {
	values   []float64
	capacity int
}

// NewRollingStats creates a window holding at most capacity scores.
func NewRollingStats(capacity int) *RollingStats {
	if capacity <= 0 {
		capacity = 1
	}
	return &RollingStats{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a score, evicting the oldest one when the window is full.
func (r *RollingStats) Push(v float64) {
	if len(r.values) >= r.capacity {
		r.values = r.values[1:]
	}
	r.values = append(r.values, v)
}

// Len returns the number of scores currently held.
func (r *RollingStats) Len() int {
	return len(r.values)
}

// Mean returns the arithmetic mean of the window, 0 when empty.
func (r *RollingStats) Mean() float64 {
	if len(r.values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range r.values {
		sum += v
	}
	return sum / float64(len(r.values))
}

// StdDev returns the population standard deviation of the window, 0 when empty.
func (r *RollingStats) StdDev() float64 {
	n := len(r.values)
	if n == 0 {
		return 0
	}
	mean := r.Mean()
	sum := 0.0
	for _, v := range r.values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// Reset empties the window.
func (r *RollingStats) Reset() {
	r.values = r.values[:0]
}
