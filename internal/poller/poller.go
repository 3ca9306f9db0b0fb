package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"thera-watch/internal/esi"
	"thera-watch/internal/evescout"
	"thera-watch/internal/metrics"
	"thera-watch/internal/notify"
)

// ErrNoReferences is returned by Init when none of the configured systems resolved.
var ErrNoReferences = errors.New("no reference systems to check routes against")

type Resolver interface {
	ResolveSystem(ctx context.Context, name string) (id int64, found bool, err error)
}

type Router interface {
	Route(ctx context.Context, from, to int64) esi.Route
}

type Feed interface {
	Snapshot(ctx context.Context) ([]evescout.Wormhole, error)
}

// Reference is a watched system distances are measured against.
type Reference struct {
	Name string
	ID   int64
}

// Cursor tracks feed ids. LastProcessed is committed once per cycle and
// never decreases; HighWatermark is the largest id seen so far.
type Cursor struct {
	LastProcessed int64
	HighWatermark int64
}

type Config struct {
	Systems     []string // reference system names, in notification order
	MaxDistance int      // inclusive jump threshold
	Interval    time.Duration
	DotlanURL   string
}

type Poller struct {
	cfg Config

	resolver Resolver
	router   Router
	feed     Feed
	notifier notify.Notifier
	sink     metrics.Sink

	refs   []Reference
	cursor Cursor

	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, resolver Resolver, router Router, feed Feed, n notify.Notifier, sink metrics.Sink) *Poller {
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &Poller{
		cfg:      cfg,
		resolver: resolver,
		router:   router,
		feed:     feed,
		notifier: n,
		sink:     sink,
		sleep:    sleepCtx,
	}
}

func (p *Poller) Cursor() Cursor          { return p.cursor }
func (p *Poller) References() []Reference { return p.refs }

// Run initialises the poller, waits one interval and then polls until ctx
// is cancelled. Init failures are returned as-is; otherwise Run only
// returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Init(ctx); err != nil {
		return err
	}

	for {
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			slog.Info("context cancelled, stopping poller")
			return err
		}
		if err := p.Cycle(ctx); err != nil {
			slog.Error("cycle aborted", "err", err)
		}
	}
}

// ----------------------------------------------------------------------
// INIT
// ----------------------------------------------------------------------

// Init resolves the reference systems and takes the baseline snapshot.
// Entries in the baseline are never notified.
func (p *Poller) Init(ctx context.Context) error {
	slog.Info("resolving reference systems", "systems", p.cfg.Systems)

	refs := make([]Reference, 0, len(p.cfg.Systems))
	for _, name := range p.cfg.Systems {
		id, found, err := p.resolver.ResolveSystem(ctx, name)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", name, err)
		}
		if !found {
			continue
		}
		refs = append(refs, Reference{Name: name, ID: id})
	}
	if len(refs) == 0 {
		return ErrNoReferences
	}
	p.refs = refs
	slog.Info("reference systems resolved", "references", refs)

	snapshot, err := p.feed.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetching initial snapshot: %w", err)
	}
	p.sink.SetScoutData(len(snapshot))

	var maxID int64
	for _, w := range snapshot {
		if w.ID > maxID {
			maxID = w.ID
		}
	}
	if len(snapshot) == 0 {
		slog.Warn("initial snapshot is empty, starting from id 0")
	}

	p.cursor = Cursor{LastProcessed: maxID, HighWatermark: maxID}
	slog.Info("baseline set", "scout_id", maxID, "entries", len(snapshot))

	return nil
}

// ----------------------------------------------------------------------
// STEADY
// ----------------------------------------------------------------------

// Cycle runs one poll. A failed fetch aborts the cycle without touching
// the cursor and is returned.
func (p *Poller) Cycle(ctx context.Context) error {
	slog.Info("fetching eve-scout snapshot")
	slog.Debug("cursor", "last_scout_id", p.cursor.LastProcessed)

	snapshot, err := p.feed.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetching snapshot: %w", err)
	}

	if len(snapshot) == 0 {
		slog.Warn("eve-scout snapshot is empty")
		p.sink.SetScoutData(0)
		return nil
	}
	slog.Info("snapshot fetched", "entries", len(snapshot))
	p.sink.SetScoutData(len(snapshot))

	last := p.cursor.LastProcessed
	for _, w := range snapshot {
		if w.ID > p.cursor.HighWatermark {
			slog.Debug("new high watermark", "scout_id", w.ID, "previous", p.cursor.HighWatermark)
			p.cursor.HighWatermark = w.ID
		}

		if w.ID <= last {
			slog.Debug("skipping known entry", "scout_id", w.ID, "last_scout_id", last)
			continue
		}

		slog.Info("processing new entry", "scout_id", w.ID, "last_scout_id", last)
		p.evaluate(ctx, w)
	}

	p.cursor.LastProcessed = p.cursor.HighWatermark
	slog.Debug("cursor committed", "last_scout_id", p.cursor.LastProcessed)

	return nil
}

// evaluate checks one new wormhole against every reference, in order.
// Each reference within range gets its own notification.
func (p *Poller) evaluate(ctx context.Context, w evescout.Wormhole) {
	for _, ref := range p.refs {
		jumps := p.router.Route(ctx, w.RouteOrigin(), ref.ID).Hops()

		attrs := []any{
			"scout_id", w.ID,
			"system", w.DestinationSystemName,
			"region", w.DestinationRegionName,
			"reference", ref.Name,
		}

		switch {
		case jumps == 0:
			slog.Info("no route to reference", attrs...)
		case jumps <= p.cfg.MaxDistance:
			slog.Info("wormhole within range", append(attrs, "jumps", jumps)...)
			p.dispatch(ctx, w, ref, jumps)
		default:
			slog.Info("wormhole out of range", append(attrs, "jumps", jumps)...)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, w evescout.Wormhole, ref Reference, jumps int) {
	n := notify.Notification{
		ScoutID:      w.ID,
		Reference:    ref.Name,
		ReferenceID:  ref.ID,
		System:       w.DestinationSystemName,
		Region:       w.DestinationRegionName,
		Jumps:        jumps,
		InSignature:  w.InSignature,
		OutSignature: w.OutSignature,
	}
	n.Content = notify.Render(n, p.cfg.DotlanURL)

	slog.Debug("notifying", "scout_id", w.ID, "reference", ref.Name)
	p.notifier.Notify(ctx, n)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
