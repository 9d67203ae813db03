package workflow

import (
	"sync"
	"time"
)

// Progress cycles decorative stage captions while a request is in flight.
// It has no bearing on when the request completes. Stop must be called
// once the request settles; after Stop returns no caption is published.
type Progress struct {
	stages   []string
	interval time.Duration
	publish  func(stage string)

	mu       sync.Mutex
	index    int
	stopped  bool
	stopOnce sync.Once
	done     chan struct{}
	exited   chan struct{}
}

// StartProgress publishes the first caption immediately and then advances
// to the next one every interval, wrapping around after the last.
func StartProgress(stages []string, interval time.Duration, publish func(stage string)) *Progress {
	p := &Progress{
		stages:   stages,
		interval: interval,
		publish:  publish,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}

	if len(stages) == 0 || interval <= 0 {
		close(p.exited)
		return p
	}

	p.publish(stages[0])
	go p.run()
	return p
}

func (p *Progress) run() {
	defer close(p.exited)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.advance()
		}
	}
}

func (p *Progress) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()

	// a tick can race with Stop; the flag settles it under the lock
	if p.stopped {
		return
	}
	p.index = (p.index + 1) % len(p.stages)
	p.publish(p.stages[p.index])
}

// Stop halts the ticker and waits for its goroutine to exit. Calling it
// more than once is safe.
func (p *Progress) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		close(p.done)
	})
	<-p.exited
}

// Stopped reports whether Stop has been called
func (p *Progress) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}
