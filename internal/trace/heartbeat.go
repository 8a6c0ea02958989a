package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits periodic events so a stuck scan can be told apart from a
// slow one: heartbeats keep arriving while span ends stop.
type Heartbeat struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartHeartbeat returns nil when t is disabled or interval is not positive.
// Stop is safe on a nil Heartbeat.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{}), done: make(chan struct{})}
	go h.run(t, interval)
	return h
}

func (h *Heartbeat) run(t Tracer, interval time.Duration) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	began := time.Now()
	for beat := 1; ; beat++ {
		select {
		case <-h.stop:
			return
		case now := <-ticker.C:
			t.Emit(&Event{
				Time:    now,
				Seq:     nextSeq(),
				Kind:    KindHeartbeat,
				Scope:   ScopeDriver,
				Name:    "heartbeat",
				Detail:  fmt.Sprintf("#%d", beat),
				Elapsed: now.Sub(began),
			})
		}
	}
}

// Stop halts the goroutine and waits for it to exit.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.done
}
