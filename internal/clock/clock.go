package clock

import "time"

// Clock abstracts wall time so reconciliation sweeps and remark stamps are
// testable with a fake.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
