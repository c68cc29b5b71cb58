package backtest

import (
	"iter"

	"github.com/rustyeddy/tradesim/market"
)

// Window is a read-only snapshot of the most recent bars, oldest first.
// Each callback gets its own snapshot; holding on to one across bars is
// safe but it will not see newer bars.
type Window struct {
	bars []market.IndicatorBar
}

// Len returns the number of bars in the window.
func (w Window) Len() int { return len(w.bars) }

// At returns the i'th bar, 0 being the oldest.
func (w Window) At(i int) market.IndicatorBar { return w.bars[i] }

// Latest returns the newest bar, which is the bar being evaluated.
func (w Window) Latest() market.IndicatorBar { return w.bars[len(w.bars)-1] }

// Ago returns the bar n steps before the latest (Ago(0) == Latest()).
func (w Window) Ago(n int) market.IndicatorBar { return w.bars[len(w.bars)-1-n] }

// Bars returns a copy of the window's bars.
func (w Window) Bars() []market.IndicatorBar {
	out := make([]market.IndicatorBar, len(w.bars))
	copy(out, w.bars)
	return out
}

// All iterates the window oldest first.
func (w Window) All() iter.Seq2[int, market.IndicatorBar] {
	return func(yield func(int, market.IndicatorBar) bool) {
		for i, b := range w.bars {
			if !yield(i, b) {
				return
			}
		}
	}
}

// lookback is a fixed capacity ring of the last n bars.
type lookback struct {
	buf   []market.IndicatorBar
	start int
	n     int
}

func newLookback(period int) *lookback {
	return &lookback{buf: make([]market.IndicatorBar, period)}
}

func (l *lookback) push(b market.IndicatorBar) {
	if l.n < len(l.buf) {
		l.buf[(l.start+l.n)%len(l.buf)] = b
		l.n++
		return
	}
	l.buf[l.start] = b
	l.start = (l.start + 1) % len(l.buf)
}

func (l *lookback) full() bool { return l.n == len(l.buf) }

func (l *lookback) snapshot() Window {
	out := make([]market.IndicatorBar, l.n)
	for i := 0; i < l.n; i++ {
		out[i] = l.buf[(l.start+i)%len(l.buf)]
	}
	return Window{bars: out}
}
