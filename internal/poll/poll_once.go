package poll

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"loadwatch-engine/internal/dedup"
	"loadwatch-engine/internal/domain"
	"loadwatch-engine/internal/enrich"
	"loadwatch-engine/internal/extract"
	"loadwatch-engine/internal/notify"
	"loadwatch-engine/internal/provider"
	"loadwatch-engine/internal/store"
)

// Deps wires one polling cycle. Everything optional is nil-checked so
// tests can hand in only the pieces they exercise.
type Deps struct {
	Providers []provider.Provider
	Extractor *extract.Extractor
	Seen      dedup.Store
	Formatter notify.Formatter
	Sink      notify.Sink
	Enricher  *enrich.Enricher
	Archive   *store.DB

	// BatchSummaryAt: when one cycle yields more than this many new loads,
	// a summary line is sent ahead of the individual messages.
	BatchSummaryAt  int
	ProviderTimeout time.Duration

	// OnNewLoad fires after a load is delivered and recorded, for SSE.
	OnNewLoad func(key string, rec domain.LoadRecord)

	// Now is stubbed in tests; nil means time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// RunOnce executes a single poll cycle: fan out to every provider,
// extract and dedup the rows, then deliver the fresh loads in order.
// A load counts as handled only after its notification went through;
// anything still pending when a send fails is retried next cycle.
func RunOnce(ctx context.Context, d Deps) (sent int, err error) {
	rows := d.fetchAll(ctx)

	fresh := make([]pending, 0, len(rows))
	seenThisCycle := make(map[string]bool)

	for _, row := range rows {
		rec, ok := d.Extractor.Extract(row)
		if !ok {
			continue
		}
		rec.FoundAt = d.now()

		key := dedup.Key(rec)
		if seenThisCycle[key] {
			// Board page and alert email can both carry the same posting
			// within one cycle.
			continue
		}
		seenThisCycle[key] = true

		dup, err := d.Seen.Contains(ctx, key)
		if err != nil {
			return sent, fmt.Errorf("dedup lookup: %w", err)
		}
		if dup {
			continue
		}
		fresh = append(fresh, pending{key: key, rec: rec})
	}

	if len(fresh) == 0 {
		return 0, nil
	}
	log.Printf("[poll] %d new loads this cycle", len(fresh))

	d.enrichAll(ctx, fresh)

	if d.BatchSummaryAt > 0 && len(fresh) > d.BatchSummaryAt {
		if err := d.Sink.Send(ctx, d.Formatter.RenderSummary(len(fresh))); err != nil {
			// Nothing was recorded yet; the whole batch comes back next
			// cycle.
			return 0, fmt.Errorf("send batch summary: %w", err)
		}
	}

	for _, p := range fresh {
		if err := d.Sink.Send(ctx, d.Formatter.Render(p.rec)); err != nil {
			// Stop the batch: the rest stay unrecorded and re-surface
			// next cycle rather than arriving out of order later.
			return sent, fmt.Errorf("send load %s: %w", p.key, err)
		}
		sent++

		if err := d.Seen.Add(ctx, p.key); err != nil {
			log.Printf("[poll] record seen %s: %v", p.key, err)
		}
		if d.Archive != nil {
			if err := store.InsertLoad(ctx, d.Archive.Pool, p.key, p.rec); err != nil {
				log.Printf("[poll] archive %s: %v", p.key, err)
			}
		}
		if d.OnNewLoad != nil {
			d.OnNewLoad(p.key, p.rec)
		}
	}

	return sent, nil
}

type pending struct {
	key string
	rec domain.LoadRecord
}

// fetchAll runs every provider concurrently with its own timeout. One
// provider failing must not sink the cycle for the others.
func (d Deps) fetchAll(ctx context.Context) []extract.RawRow {
	var g errgroup.Group
	results := make(chan []extract.RawRow, len(d.Providers))

	for _, p := range d.Providers {
		p := p
		g.Go(func() error {
			timeout := d.ProviderTimeout
			if timeout == 0 {
				timeout = time.Minute
			}
			fctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			rows, err := p.Fetch(fctx)
			if err != nil {
				log.Printf("[%s] fetch: %v", p.Name(), err)
				return nil
			}
			results <- rows
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	var all []extract.RawRow
	for rows := range results {
		all = append(all, rows...)
	}
	return all
}

// enrichAll follows profile links for loads that surfaced without an
// email. Enrichment failures are logged and the load goes out with its
// NO EMAIL marker.
func (d Deps) enrichAll(ctx context.Context, fresh []pending) {
	if d.Enricher == nil {
		return
	}
	for i := range fresh {
		rec := &fresh[i].rec
		if rec.HasContactEmail() {
			continue
		}
		url, ok := rec.ProfileURL.Get()
		if !ok {
			continue
		}
		email, err := d.Enricher.Email(ctx, url)
		if err != nil {
			log.Printf("[enrich] %s: %v", fresh[i].key, err)
			continue
		}
		if email != "" {
			rec.ContactEmail.SetIfUnknown(email)
		}
	}
}
