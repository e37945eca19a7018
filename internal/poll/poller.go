package poll

import (
	"context"
	"log"
	"time"
)

// Poller drives RunOnce on a fixed interval. After a failed cycle it
// waits the backoff interval instead, so a dead Telegram token doesn't
// hammer the API every tick.
type Poller struct {
	deps     Deps
	interval time.Duration
	backoff  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(deps Deps, interval, backoff time.Duration) *Poller {
	if interval <= 0 {
		interval = 90 * time.Second
	}
	if backoff <= 0 {
		backoff = interval
	}
	return &Poller{deps: deps, interval: interval, backoff: backoff}
}

// Start launches the loop. The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		for {
			wait := p.interval

			sent, err := RunOnce(ctx, p.deps)
			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				log.Printf("[poll] cycle error: %v", err)
				wait = p.backoff
			case sent > 0:
				log.Printf("[poll] ok sent=%d", sent)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
}

// Stop cancels the loop and blocks until the in-flight cycle returns.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}
