package moveset

import (
	"go.uber.org/atomic"
)

// Progress is a percentage that only moves forward. It may be polled from another
// goroutine while an extraction or import runs.
type Progress struct {
	value atomic.Uint32
}

// Set raises the percentage to pct. Lower values are ignored.
func (p *Progress) Set(pct uint8) {
	if pct > 100 {
		pct = 100
	}
	for {
		current := p.value.Load()
		if uint32(pct) <= current {
			return
		}
		if p.value.CompareAndSwap(current, uint32(pct)) {
			return
		}
	}
}

func (p *Progress) Get() uint8 {
	return uint8(p.value.Load())
}

// Fail wraps err into an OperationError carrying the current percentage
func (p *Progress) Fail(op string, err error) error {
	return &OperationError{Op: op, Progress: p.Get(), Err: err}
}
