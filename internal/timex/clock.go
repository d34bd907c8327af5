package timex

import "time"

// Clock is the time source used by services. Production code uses RealClock;
// tests inject a fake so window and expiry arithmetic is deterministic.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
