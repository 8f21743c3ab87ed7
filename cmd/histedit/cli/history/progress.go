package history

// DefaultProgressInterval is how many commits are processed between progress ticks.
const DefaultProgressInterval = 100

// ProgressFunc observes a long-running walk. It is called synchronously from
// the rewrite loop with a monotonically increasing current value and must
// return quickly; it cannot influence the outcome.
type ProgressFunc func(current, total int)

// progressTracker emits a tick at every interval boundary and once at the end.
type progressTracker struct {
	fn       ProgressFunc
	interval int
	total    int
	last     int
}

func newProgressTracker(fn ProgressFunc, interval, total int) *progressTracker {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &progressTracker{fn: fn, interval: interval, total: total, last: -1}
}

// step records that current commits have been processed and reports whether
// a batch boundary was crossed.
func (p *progressTracker) step(current int) bool {
	if current%p.interval != 0 {
		return false
	}
	p.emit(current)
	return true
}

// done emits the final tick unless it was already sent.
func (p *progressTracker) done() {
	p.emit(p.total)
}

func (p *progressTracker) emit(current int) {
	if p.fn == nil || current == p.last {
		return
	}
	p.last = current
	p.fn(current, p.total)
}
