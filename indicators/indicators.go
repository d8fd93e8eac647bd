// Package indicators provides bounded rolling statistics over price streams.
package indicators

// Series is a read-only view over a rolling window, oldest first.
type Series interface {
	// Len returns how many points are currently held.
	Len() int

	// Cap returns the maximum number of points held before eviction.
	Cap() int

	// Values returns a copy of the held points, oldest first.
	Values() []float64
}
