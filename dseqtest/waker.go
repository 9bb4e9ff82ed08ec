// Package dseqtest contains helpers for testing code built on package dseq.
package dseqtest

import (
	"github.com/gordian-engine/dseq"
)

// Waker is a [dseq.Waker] that counts how many times it was woken.
type Waker struct {
	// Label is only for identifying the waker in test output.
	Label string

	Wakes int
}

var _ dseq.Waker = (*Waker)(nil)

// NewWaker returns a Waker with the given label.
func NewWaker(label string) *Waker {
	return &Waker{Label: label}
}

func (w *Waker) Wake() {
	w.Wakes++
}

// Woken reports whether w was woken at least once.
func (w *Waker) Woken() bool {
	return w.Wakes > 0
}
