package watcher

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Debouncer folds changes per path and hands them to flush once the
// window passes without a new change, or as soon as maxBatch distinct
// paths are pending. Batches are sorted by path and delivered from a
// single goroutine.
type Debouncer struct {
	window   time.Duration
	maxBatch int
	flush    func([]Change)

	in       chan Change
	quit     chan struct{}
	done     chan struct{}
	pending  atomic.Int64
	stopOnce sync.Once
}

func NewDebouncer(window time.Duration, maxBatch int, flush func([]Change)) *Debouncer {
	d := &Debouncer{
		window:   window,
		maxBatch: max(maxBatch, 1),
		flush:    flush,
		in:       make(chan Change, 64),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go d.loop()
	return d
}

// Add queues c. Changes added after Stop are dropped.
func (d *Debouncer) Add(c Change) {
	select {
	case <-d.quit:
		return
	default:
	}
	select {
	case d.in <- c:
	case <-d.quit:
	}
}

// Pending is the number of distinct paths held for the next batch.
func (d *Debouncer) Pending() int {
	return int(d.pending.Load())
}

// Stop delivers what is pending and waits for the last batch.
func (d *Debouncer) Stop() {
	d.stopOnce.Do(func() { close(d.quit) })
	<-d.done
}

func (d *Debouncer) loop() {
	defer close(d.done)

	held := make(map[string]Change)
	timer := time.NewTimer(d.window)
	timer.Stop()
	defer timer.Stop()
	var fire <-chan time.Time

	hold := func(c Change) {
		if prev, ok := held[c.Path]; ok {
			c = fold(prev, c)
		}
		held[c.Path] = c
		d.pending.Store(int64(len(held)))
	}
	emit := func() {
		fire = nil
		if len(held) == 0 {
			return
		}
		batch := make([]Change, 0, len(held))
		for _, c := range held {
			batch = append(batch, c)
		}
		clear(held)
		d.pending.Store(0)
		slices.SortFunc(batch, func(a, b Change) int { return cmp.Compare(a.Path, b.Path) })
		if d.flush != nil {
			d.flush(batch)
		}
	}

	for {
		select {
		case c := <-d.in:
			hold(c)
			if len(held) >= d.maxBatch {
				timer.Stop()
				emit()
				continue
			}
			timer.Reset(d.window)
			fire = timer.C

		case <-fire:
			emit()

		case <-d.quit:
			for {
				select {
				case c := <-d.in:
					hold(c)
				default:
					emit()
					return
				}
			}
		}
	}
}
