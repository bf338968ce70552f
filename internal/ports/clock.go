package ports

import "time"

// Timer is the handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
