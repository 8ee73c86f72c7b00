package sim

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Loop runs the engine on one goroutine. A fixed-period ticker drives Tick,
// and every external access funnels through a closure channel, so handlers and
// the tick share a single serialized timeline and the store needs no lock.
type Loop struct {
	eng     *Engine
	calls   chan func()
	stopped chan struct{}
}

// NewLoop wraps eng. Run must be called before Do will make progress.
func NewLoop(eng *Engine) *Loop {
	return &Loop{
		eng:     eng,
		calls:   make(chan func()),
		stopped: make(chan struct{}),
	}
}

// Run drives the tick loop until ctx is cancelled. Pending Do calls execute
// between ticks; a slow notification sink never delays this loop because sinks
// only enqueue (see server websocket transport).
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)

	ticker := time.NewTicker(l.eng.TickPeriod())
	defer ticker.Stop()

	logrus.Infof("engine loop: ticking every %s", l.eng.TickPeriod())
	for {
		select {
		case <-ctx.Done():
			logrus.Info("engine loop: stopped")
			return
		case <-ticker.C:
			l.eng.Tick()
		case fn := <-l.calls:
			fn()
		}
	}
}

// Do executes fn against the engine inside the loop's timeline and waits for
// it to finish. Returns a transport error if the loop has stopped.
func (l *Loop) Do(fn func(*Engine)) error {
	done := make(chan struct{})
	wrapped := func() {
		fn(l.eng)
		close(done)
	}
	select {
	case l.calls <- wrapped:
		<-done
		return nil
	case <-l.stopped:
		return Errorf(KindTransport, "engine loop stopped")
	}
}
