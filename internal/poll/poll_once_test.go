package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"loadwatch-engine/internal/dedup"
	"loadwatch-engine/internal/domain"
	"loadwatch-engine/internal/extract"
	"loadwatch-engine/internal/notify"
	"loadwatch-engine/internal/provider"
)

type fakeProvider struct {
	name string
	rows []extract.RawRow
	err  error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Fetch(context.Context) ([]extract.RawRow, error) {
	return p.rows, p.err
}

// fakeSink records every message; failAt is the 1-based call index that
// returns an error (0 never fails).
type fakeSink struct {
	mu     sync.Mutex
	sent   []string
	failAt int
}

func (s *fakeSink) Send(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.sent)+1 == s.failAt {
		return errors.New("sink down")
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func loadRow(loadID string) extract.RawRow {
	return extract.RawRow{Cells: []string{"ACME CO", "CARGO VAN " + loadID, "-"}}
}

func loadRows(n int) []extract.RawRow {
	rows := make([]extract.RawRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, loadRow(fmt.Sprintf("%06d", 100001+i)))
	}
	return rows
}

func baseDeps(rows []extract.RawRow, sink *fakeSink) Deps {
	return Deps{
		Providers:      []provider.Provider{&fakeProvider{name: "board", rows: rows}},
		Extractor:      extract.New(extract.Options{}),
		Seen:           dedup.NewMemoryStore(),
		Formatter:      notify.NewFormatter(0.75, 4096),
		Sink:           sink,
		BatchSummaryAt: 5,
		Now:            func() time.Time { return time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC) },
	}
}

func TestRunOnceSendsNewLoads(t *testing.T) {
	sink := &fakeSink{}
	deps := baseDeps(loadRows(3), sink)

	sent, err := RunOnce(context.Background(), deps)
	require.NoError(t, err)
	require.Equal(t, 3, sent)
	require.Len(t, sink.sent, 3)
	require.Contains(t, sink.sent[0], "100001")

	// Second cycle with the same rows is silent.
	sent, err = RunOnce(context.Background(), deps)
	require.NoError(t, err)
	require.Zero(t, sent)
	require.Len(t, sink.sent, 3)
}

func TestRunOnceDedupsWithinCycle(t *testing.T) {
	rows := append(loadRows(2), loadRow("100001"))
	sink := &fakeSink{}

	sent, err := RunOnce(context.Background(), baseDeps(rows, sink))
	require.NoError(t, err)
	require.Equal(t, 2, sent)
}

func TestRunOnceBatchSummary(t *testing.T) {
	sink := &fakeSink{}
	deps := baseDeps(loadRows(6), sink)

	sent, err := RunOnce(context.Background(), deps)
	require.NoError(t, err)
	require.Equal(t, 6, sent)
	require.Len(t, sink.sent, 7)
	require.Contains(t, sink.sent[0], "6 NEW LOADS FOUND")
}

func TestRunOnceSummaryFailureRecordsNothing(t *testing.T) {
	sink := &fakeSink{failAt: 1}
	deps := baseDeps(loadRows(6), sink)

	sent, err := RunOnce(context.Background(), deps)
	require.Error(t, err)
	require.Zero(t, sent)

	// Everything re-surfaces next cycle.
	sink.failAt = 0
	sent, err = RunOnce(context.Background(), deps)
	require.NoError(t, err)
	require.Equal(t, 6, sent)
}

func TestRunOnceStopsBatchOnSendFailure(t *testing.T) {
	// Call 1 is the summary, call 2 is the first load, call 3 fails.
	sink := &fakeSink{failAt: 3}
	deps := baseDeps(loadRows(6), sink)

	sent, err := RunOnce(context.Background(), deps)
	require.Error(t, err)
	require.Equal(t, 1, sent)

	// Only the delivered load was recorded; the other five come back, and
	// at five they no longer trip the batch summary.
	sink.failAt = 0
	sink.sent = nil
	sent, err = RunOnce(context.Background(), deps)
	require.NoError(t, err)
	require.Equal(t, 5, sent)
	require.Len(t, sink.sent, 5)
	require.NotContains(t, sink.sent[0], "NEW LOADS FOUND")
}

func TestRunOnceProviderFailureIsIsolated(t *testing.T) {
	sink := &fakeSink{}
	deps := baseDeps(nil, sink)
	deps.Providers = []provider.Provider{
		&fakeProvider{name: "board", err: errors.New("session expired")},
		&fakeProvider{name: "email", rows: loadRows(2)},
	}

	sent, err := RunOnce(context.Background(), deps)
	require.NoError(t, err)
	require.Equal(t, 2, sent)
}

func TestRunOnceStampsFoundAt(t *testing.T) {
	sink := &fakeSink{}
	deps := baseDeps(loadRows(1), sink)

	var recorded []string
	deps.OnNewLoad = func(key string, rec domain.LoadRecord) {
		recorded = append(recorded, key)
		require.Equal(t, time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC), rec.FoundAt)
	}

	sent, err := RunOnce(context.Background(), deps)
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Equal(t, []string{"100001_Unknown, Unknown_Unknown, Unknown"}, recorded)
}
