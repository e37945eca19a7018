package poll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPollerStopBlocksUntilCycleDone(t *testing.T) {
	sink := &fakeSink{}
	deps := baseDeps(loadRows(1), sink)

	p := NewPoller(deps, time.Hour, time.Hour)
	p.Start(context.Background())

	// The first cycle runs immediately; give it a moment before stopping.
	require.Eventually(t, func() bool { return sink.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestPollerStopWithoutStart(t *testing.T) {
	p := NewPoller(Deps{}, time.Hour, time.Hour)
	p.Stop()
}
