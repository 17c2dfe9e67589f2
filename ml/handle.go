package ml

import "sync/atomic"

// ModelHandle holds the predictor currently serving requests. Each predictor
// is immutable; a reload replaces the pointer as a whole.
type ModelHandle struct {
	current atomic.Pointer[Predictor]
}

func NewModelHandle(p *Predictor) *ModelHandle {
	h := &ModelHandle{}
	h.current.Store(p)
	return h
}

func (h *ModelHandle) Current() *Predictor {
	return h.current.Load()
}

// Swap installs p and returns the predictor it replaced.
func (h *ModelHandle) Swap(p *Predictor) *Predictor {
	return h.current.Swap(p)
}
