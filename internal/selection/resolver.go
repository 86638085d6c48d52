package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"lunemusic/internal/domain"
	"lunemusic/internal/domain/ports"
	"lunemusic/internal/metrics"
	"lunemusic/internal/telemetry"
)

var (
	ErrInvalidSelection = errors.New("invalid selection")
	ErrNotFound         = errors.New("selection not found")
	ErrFetch            = errors.New("fetch failed")
	ErrStore            = errors.New("catalog store error")
	ErrReplay           = errors.New("replay failed")
)

type Status int

const (
	StatusFailed Status = iota
	StatusReplayed
	StatusFetched
)

func (s Status) String() string {
	switch s {
	case StatusReplayed:
		return "replayed"
	case StatusFetched:
		return "fetched"
	default:
		return "failed"
	}
}

type Reason string

const (
	ReasonInvalidID  Reason = "invalid-id"
	ReasonNotFound   Reason = "not-found"
	ReasonFetchError Reason = "fetch-error"
	ReasonStoreError Reason = "store-error"
	ReasonReplay     Reason = "replay-error"
)

// Outcome is the terminal result of one resolution.
type Outcome struct {
	Status Status
	Entry  domain.CatalogEntry
	Reason Reason
	Err    error
}

func (o Outcome) Ref() domain.DistributionRef { return o.Entry.DistributionRef }

func (o Outcome) OK() bool { return o.Status != StatusFailed }

// State names a step of the resolution state machine.
type State string

const (
	StatePending State = "pending"
	StateLookup  State = "lookup"
	StateReplay  State = "replay"
	StateFetch   State = "fetch"
	StatePersist State = "persist"
	StateDone    State = "done"
)

// Request is what a resolution works on: a namespace, an id and whether that
// id is a catalog id or a provider-native id.
type Request struct {
	Namespace   domain.Namespace
	ID          string
	ByCatalogID bool
	To          domain.Delivery
	// OnFetch runs once before a download starts.
	OnFetch func()
}

// RequestFor maps a decoded play token to a request.
func RequestFor(tok Token, to domain.Delivery) Request {
	return Request{
		Namespace:   tok.Origin.Namespace(),
		ID:          tok.ID,
		ByCatalogID: tok.Origin.IsCatalog(),
		To:          to,
	}
}

type Resolver struct {
	catalog  ports.CatalogStore
	replayer ports.Replayer
	fetchers map[domain.Namespace]ports.Fetcher
	logger   *slog.Logger
	now      func() time.Time
	inflight singleflight.Group
	onStep   func(from, to State)
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithFetcher(ns domain.Namespace, fetcher ports.Fetcher) Option {
	return func(r *Resolver) {
		if fetcher != nil {
			r.fetchers[ns] = fetcher
		}
	}
}

// WithTransitionHook observes every state transition.
func WithTransitionHook(hook func(from, to State)) Option {
	return func(r *Resolver) {
		r.onStep = hook
	}
}

func NewResolver(catalog ports.CatalogStore, replayer ports.Replayer, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:  catalog,
		replayer: replayer,
		fetchers: make(map[domain.Namespace]ports.Fetcher),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run carries one resolution through the state machine.
type run struct {
	req     Request
	entry   domain.CatalogEntry
	outcome Outcome
}

// Resolve resolves a play token selected from a listing.
func (r *Resolver) Resolve(ctx context.Context, tok Token, to domain.Delivery) Outcome {
	if tok.Kind != KindPlay {
		return r.finish(&run{req: Request{ID: tok.ID}}, failed(ReasonInvalidID, ErrInvalidSelection))
	}
	return r.ResolveRequest(ctx, RequestFor(tok, to))
}

// ResolveRequest runs the pending, lookup, replay or fetch, persist sequence.
func (r *Resolver) ResolveRequest(ctx context.Context, req Request) Outcome {
	ctx, span := telemetry.Tracer().Start(ctx, "selection.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("namespace", string(req.Namespace)),
		attribute.Bool("byCatalogId", req.ByCatalogID),
	)

	rn := &run{req: req}
	state := StatePending
	for state != StateDone {
		next := r.step(ctx, state, rn)
		if r.onStep != nil {
			r.onStep(state, next)
		}
		if next == StateFetch && req.OnFetch != nil {
			req.OnFetch()
		}
		state = next
	}

	span.SetAttributes(attribute.String("outcome", rn.outcome.Status.String()))
	if rn.outcome.Err != nil {
		span.SetStatus(codes.Error, rn.outcome.Err.Error())
	}
	return r.finish(rn, rn.outcome)
}

func (r *Resolver) step(ctx context.Context, state State, rn *run) State {
	switch state {
	case StatePending:
		return r.pending(rn)
	case StateLookup:
		return r.lookup(ctx, rn)
	case StateReplay:
		return r.replay(ctx, rn)
	case StateFetch:
		return r.fetch(ctx, rn)
	case StatePersist:
		return r.persist(ctx, rn)
	default:
		return StateDone
	}
}

func (r *Resolver) pending(rn *run) State {
	if !rn.req.Namespace.Valid() || !validID(rn.req.ID) {
		rn.outcome = failed(ReasonInvalidID, ErrInvalidSelection)
		return StateDone
	}
	return StateLookup
}

func (r *Resolver) lookup(ctx context.Context, rn *run) State {
	var (
		entry domain.CatalogEntry
		err   error
	)
	if rn.req.ByCatalogID {
		entry, err = r.catalog.FindByID(ctx, rn.req.Namespace, rn.req.ID)
	} else {
		entry, err = r.catalog.FindByProviderID(ctx, rn.req.Namespace, rn.req.ID)
	}
	switch {
	case err == nil:
		rn.entry = entry
		return StateReplay
	case !errors.Is(err, domain.ErrNotFound):
		rn.outcome = failed(ReasonStoreError, fmt.Errorf("%w: %w", ErrStore, err))
		return StateDone
	case rn.req.ByCatalogID:
		// A catalog id that no longer resolves cannot be fetched again.
		rn.outcome = failed(ReasonNotFound, ErrNotFound)
		return StateDone
	default:
		return StateFetch
	}
}

func (r *Resolver) replay(ctx context.Context, rn *run) State {
	if err := r.replayer.Replay(ctx, rn.entry, rn.req.To); err != nil {
		rn.outcome = failed(ReasonReplay, fmt.Errorf("%w: %w", ErrReplay, err))
		return StateDone
	}
	rn.outcome = Outcome{Status: StatusReplayed, Entry: rn.entry}
	return StateDone
}

// fetch downloads, publishes and stores the track. Concurrent selections of
// the same track in this process share one download. The key stays in flight
// until the catalog write is done, so a selection arriving later finds the
// entry on lookup. Only the caller that ran the download has the track
// delivered; the others replay it.
func (r *Resolver) fetch(ctx context.Context, rn *run) State {
	fetcher, ok := r.fetchers[rn.req.Namespace]
	if !ok {
		rn.outcome = failed(ReasonFetchError, fmt.Errorf("%w: no fetcher for %s", ErrFetch, rn.req.Namespace))
		return StateDone
	}

	ns := rn.req.Namespace
	key := string(ns) + ":" + rn.req.ID
	leader := false
	value, err, _ := r.inflight.Do(key, func() (any, error) {
		leader = true
		track, err := fetcher.FetchAndPublish(ctx, rn.req.ID, rn.req.To)
		if err != nil {
			return nil, err
		}
		if track.ProviderID == "" {
			track.ProviderID = rn.req.ID
		}
		return r.store(ctx, ns, track), nil
	})
	if err != nil {
		rn.outcome = failed(ReasonFetchError, fmt.Errorf("%w: %w", ErrFetch, err))
		return StateDone
	}

	rn.entry = value.(domain.CatalogEntry)
	if !leader {
		return StateReplay
	}
	return StatePersist
}

// persist reports the entry stored for a track this caller published.
func (r *Resolver) persist(_ context.Context, rn *run) State {
	rn.outcome = Outcome{Status: StatusFetched, Entry: rn.entry}
	return StateDone
}

// store writes the catalog entry for a published track. The track already
// reached the requester, so a failed write is logged and not surfaced.
func (r *Resolver) store(ctx context.Context, ns domain.Namespace, track domain.Track) domain.CatalogEntry {
	entry := track.Entry(ns, r.now().UTC())
	created, err := r.catalog.Create(ctx, entry)
	switch {
	case err == nil:
		return created
	case errors.Is(err, domain.ErrAlreadyExists):
		if existing, findErr := r.catalog.FindByProviderID(ctx, ns, track.ProviderID); findErr == nil {
			return existing
		}
	default:
		r.logger.Error("catalog write failed after publish",
			slog.String("namespace", string(ns)),
			slog.String("providerId", track.ProviderID),
			slog.String("error", err.Error()),
		)
	}
	return entry
}

func (r *Resolver) finish(rn *run, outcome Outcome) Outcome {
	label := outcome.Status.String()
	if outcome.Status == StatusFailed {
		label = string(outcome.Reason)
	}
	ns := string(rn.req.Namespace)
	if ns == "" {
		ns = "unknown"
	}
	metrics.ResolveOutcomesTotal.WithLabelValues(ns, label).Inc()

	attrs := []any{
		slog.String("namespace", ns),
		slog.String("id", rn.req.ID),
		slog.String("outcome", label),
	}
	if outcome.Err != nil {
		attrs = append(attrs, slog.String("error", outcome.Err.Error()))
		r.logger.Warn("selection failed", attrs...)
	} else {
		r.logger.Info("selection resolved", attrs...)
	}
	return outcome
}

func failed(reason Reason, err error) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason, Err: err}
}
