package clock

import "time"

// Clock abstracts wall-clock time so sweeps and holds can be driven in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the process clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
