package state

// Ring is a fixed-capacity FIFO buffer of float64 samples. Pushing onto a
// full ring evicts the oldest sample. The zero value is not usable; use
// NewRing.
type Ring struct {
	buf   []float64
	size  int
	start int
}

// NewRing creates a ring with the given capacity.
func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value when full. O(1).
func (r *Ring) Push(v float64) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of stored samples.
func (r *Ring) Len() int { return r.size }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Full reports whether the ring is at capacity.
func (r *Ring) Full() bool { return r.size == len(r.buf) }

// Values returns the samples oldest-first. The result is a fresh slice.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Clear drops all samples but keeps the capacity.
func (r *Ring) Clear() {
	r.size = 0
	r.start = 0
}
