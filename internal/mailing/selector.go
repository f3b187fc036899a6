package mailing

import (
	"math/rand/v2"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

// Chooser draws a uniform integer in [0, n).
type Chooser interface {
	IntN(n int) int
}

type globalChooser struct{}

func (globalChooser) IntN(n int) int { return rand.IntN(n) }

// NewSeededChooser returns a deterministic Chooser for reproducible runs.
func NewSeededChooser(seed uint64) Chooser {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Selector picks a template and a sender for each contact. Every draw is
// independent and uniform, with replacement; nothing carries over between
// contacts.
type Selector struct {
	chooser Chooser
}

// NewSelector creates a selector. A nil chooser uses the process-wide source.
func NewSelector(chooser Chooser) *Selector {
	if chooser == nil {
		chooser = globalChooser{}
	}
	return &Selector{chooser: chooser}
}

// SelectTemplate returns the index of the template to use, or -1 when the
// pool is empty.
func (s *Selector) SelectTemplate(templates []domain.Template) int {
	return s.pick(len(templates))
}

// SelectSender returns the index of the sender identity to use, or -1 when
// the pool is empty.
func (s *Selector) SelectSender(senders []string) int {
	return s.pick(len(senders))
}

func (s *Selector) pick(n int) int {
	switch {
	case n <= 0:
		return -1
	case n == 1:
		return 0
	default:
		return s.chooser.IntN(n)
	}
}
