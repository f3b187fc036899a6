package mailing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

type fixedChooser struct {
	values []int
	calls  int
}

func (f *fixedChooser) IntN(n int) int {
	v := f.values[f.calls%len(f.values)] % n
	f.calls++
	return v
}

func TestSelectorUsesChooser(t *testing.T) {
	chooser := &fixedChooser{values: []int{2, 1}}
	sel := NewSelector(chooser)

	templates := []domain.Template{{BodySource: "a.txt"}, {BodySource: "b.txt"}, {BodySource: "c.txt"}}
	senders := []string{"one@x.com", "two@x.com"}

	assert.Equal(t, 2, sel.SelectTemplate(templates))
	assert.Equal(t, 1, sel.SelectSender(senders))
	assert.Equal(t, 2, chooser.calls)
}

func TestSelectorSingleOptionIsDeterministic(t *testing.T) {
	chooser := &fixedChooser{values: []int{7}}
	sel := NewSelector(chooser)

	for i := 0; i < 10; i++ {
		assert.Equal(t, 0, sel.SelectTemplate([]domain.Template{{BodySource: "only.txt"}}))
		assert.Equal(t, 0, sel.SelectSender([]string{"only@x.com"}))
	}
	assert.Zero(t, chooser.calls, "single-entry pools should not draw")
}

func TestSelectorEmptyPool(t *testing.T) {
	sel := NewSelector(nil)
	assert.Equal(t, -1, sel.SelectTemplate(nil))
	assert.Equal(t, -1, sel.SelectSender(nil))
}

func TestSelectorUniformDistribution(t *testing.T) {
	const draws = 20000
	sel := NewSelector(NewSeededChooser(42))

	templates := make([]domain.Template, 4)
	senders := []string{"a@x.com", "b@x.com", "c@x.com"}

	templateCounts := make([]int, len(templates))
	senderCounts := make([]int, len(senders))
	for i := 0; i < draws; i++ {
		templateCounts[sel.SelectTemplate(templates)]++
		senderCounts[sel.SelectSender(senders)]++
	}

	for i, c := range templateCounts {
		freq := float64(c) / draws
		assert.InDelta(t, 0.25, freq, 0.03, "template %d frequency %.3f", i, freq)
	}
	for i, c := range senderCounts {
		freq := float64(c) / draws
		assert.InDelta(t, 1.0/3, freq, 0.03, "sender %d frequency %.3f", i, freq)
	}
}

func TestSeededChooserIsReproducible(t *testing.T) {
	a := NewSeededChooser(7)
	b := NewSeededChooser(7)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.IntN(10), b.IntN(10))
	}
}

func TestDefaultChooserInRange(t *testing.T) {
	sel := NewSelector(nil)
	senders := []string{"a@x.com", "b@x.com"}
	for i := 0; i < 100; i++ {
		idx := sel.SelectSender(senders)
		assert.True(t, idx == 0 || idx == 1)
	}
}
