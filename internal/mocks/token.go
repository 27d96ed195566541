package mocks

import (
	"time"
)

// DoneToken is an already completed mqtt.Token carrying err.
type DoneToken struct {
	Err error
}

func (t *DoneToken) Wait() bool                     { return true }
func (t *DoneToken) WaitTimeout(time.Duration) bool { return true }
func (t *DoneToken) Error() error                   { return t.Err }

func (t *DoneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
