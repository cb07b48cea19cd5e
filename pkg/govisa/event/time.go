package event

import "time"

func afterMs(ms uint32) <-chan time.Time {
	return time.After(time.Duration(ms) * time.Millisecond)
}
