package engine

import "time"

// SystemClock reads the host clock.
type SystemClock struct{}

// Now returns the current unix timestamp.
func (SystemClock) Now() int64 {
	return time.Now().Unix()
}
