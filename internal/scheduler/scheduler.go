package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wikicoord/core-go/internal/geo"
	"wikicoord/core-go/internal/markers"
	"wikicoord/core-go/internal/metrics"
	"wikicoord/core-go/internal/sparql"
	"wikicoord/core-go/internal/status"
	"wikicoord/core-go/internal/viewport"
)

const (
	DefaultDebounce      = 500 * time.Millisecond
	DefaultZoomThreshold = 12
)

// Viewport reads the map widget's current view.
type Viewport interface {
	Current() viewport.State
}

// Transport runs a query against the geospatial query service. *sparql.Client satisfies this.
type Transport interface {
	Fetch(ctx context.Context, query string) (io.ReadCloser, error)
}

// Applier merges fetched items into the marker set. *markers.Reconciler satisfies this.
type Applier interface {
	Apply(items []geo.Item) markers.Result
}

// Scheduler decides when viewport fetches run. Viewport events are debounced, a pause gate and a
// zoom threshold suppress fetches, and every attempt gets a token so that only the newest attempt's
// result is applied.
type Scheduler struct {
	log       zerolog.Logger
	viewport  Viewport
	transport Transport
	applier   Applier
	board     *status.Board
	metrics   *metrics.Metrics
	debounce  time.Duration
	limit     int

	mu            sync.Mutex
	latest        uint64
	paused        bool
	zoomThreshold int

	trigger   chan struct{}
	immediate chan struct{}
	inflight  sync.WaitGroup
}

type Options struct {
	Debounce      time.Duration
	ZoomThreshold int
	Limit         int
	Paused        bool
}

type attempt struct {
	token uint64
	query string
	zoom  int
}

func New(log zerolog.Logger, vp Viewport, tr Transport, ap Applier, board *status.Board, opts Options, m *metrics.Metrics) *Scheduler {
	d := opts.Debounce
	if d <= 0 {
		d = DefaultDebounce
	}
	zt := opts.ZoomThreshold
	if zt <= 0 {
		zt = DefaultZoomThreshold
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = sparql.DefaultLimit
	}
	if board == nil {
		board = status.NewBoard()
	}
	if opts.Paused {
		board.Set(status.StatePaused, "paused")
	}

	return &Scheduler{
		log:           log,
		viewport:      vp,
		transport:     tr,
		applier:       ap,
		board:         board,
		metrics:       m,
		debounce:      d,
		limit:         limit,
		paused:        opts.Paused,
		zoomThreshold: zt,
		trigger:       make(chan struct{}, 1),
		immediate:     make(chan struct{}, 1),
	}
}

// Run owns the debounce timer until ctx is done, then waits for in-flight fetches to return.
func (s *Scheduler) Run(ctx context.Context) {
	if s == nil {
		return
	}

	timer := time.NewTimer(s.debounce)
	stopTimer(timer)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait()
			return
		case <-s.trigger:
			// Re-arming cancels the pending fire; at most one is outstanding.
			stopTimer(timer)
			timer.Reset(s.debounce)
		case <-s.immediate:
			stopTimer(timer)
			s.fire(ctx)
		case <-timer.C:
			s.fire(ctx)
		}
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// Schedule requests a fetch after the quiet period. Calls within the window collapse into one.
func (s *Scheduler) Schedule() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// SetPaused toggles the pause gate. Resuming forces an immediate fetch, bypassing the debounce.
// Pausing does not affect a fetch already in flight.
func (s *Scheduler) SetPaused(paused bool) {
	s.mu.Lock()
	was := s.paused
	s.paused = paused
	s.mu.Unlock()

	if paused {
		s.board.Set(status.StatePaused, "paused")
		return
	}
	s.board.Set(status.StateIdle, "ready")
	if was {
		select {
		case s.immediate <- struct{}{}:
		default:
		}
	}
}

func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SetZoomThreshold changes the minimum zoom for fetching and reschedules. A non-positive value
// restores the default.
func (s *Scheduler) SetZoomThreshold(z int) {
	if z <= 0 {
		z = DefaultZoomThreshold
	}
	s.mu.Lock()
	s.zoomThreshold = z
	s.mu.Unlock()
	s.Schedule()
}

func (s *Scheduler) ZoomThreshold() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoomThreshold
}

// Latest returns the newest token minted.
func (s *Scheduler) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Status returns the current status line.
func (s *Scheduler) Status() status.Snapshot {
	return s.board.Snapshot()
}

func (s *Scheduler) fire(ctx context.Context) {
	a, ok := s.begin()
	if !ok {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.fetch(ctx, a)
	}()
}

// begin applies the pause and zoom gates and, when both pass, mints a token and builds the query.
func (s *Scheduler) begin() (attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		s.board.Set(status.StatePaused, "paused (not fetching)")
		s.metrics.IncFetch(metrics.FetchPaused)
		return attempt{}, false
	}

	vp := s.viewport.Current()
	if vp.Zoom < s.zoomThreshold {
		// Markers already on the map stay; nothing is pruned.
		s.board.Set(status.StateIdle, fmt.Sprintf("zoom below threshold (current %d)", vp.Zoom))
		s.metrics.IncFetch(metrics.FetchBelowThreshold)
		return attempt{}, false
	}

	s.latest++
	area := geo.SearchAreaFor(vp.Center, vp.Zoom)
	s.board.Set(status.StateFetching, fmt.Sprintf("fetching... center %.5f,%.5f radius %dm",
		vp.Center.Lat(), vp.Center.Lon(), int(math.Round(area.RadiusMeters))))

	return attempt{
		token: s.latest,
		query: sparql.BuildBoxQuery(area.Bound, s.limit),
		zoom:  vp.Zoom,
	}, true
}

func (s *Scheduler) isLatest(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest == token
}

func (s *Scheduler) fetch(ctx context.Context, a attempt) {
	start := time.Now()
	log := s.log.With().Uint64("token", a.token).Int("zoom", a.zoom).Logger()
	log.Debug().Msg("viewport fetch started")

	body, err := s.transport.Fetch(ctx, a.query)
	if !s.isLatest(a.token) {
		if body != nil {
			_ = body.Close()
		}
		s.stale(log)
		return
	}
	if err != nil {
		s.failed(log, err)
		return
	}

	res, err := sparql.Decode(body)
	_ = body.Close()
	if !s.isLatest(a.token) {
		s.stale(log)
		return
	}
	if err != nil {
		s.failed(log, err)
		return
	}
	s.metrics.ObserveFetchDuration(time.Since(start))

	items, dropped := res.Items()

	// The token check and the merge happen under one lock so a newer attempt cannot be minted
	// between them.
	s.mu.Lock()
	if s.latest != a.token {
		s.mu.Unlock()
		s.stale(log)
		return
	}
	r := s.applier.Apply(items)
	s.board.Loaded(a.token, res.Len(), a.zoom, fmt.Sprintf("loaded %d items (zoom %d)", res.Len(), a.zoom))
	s.mu.Unlock()

	s.metrics.IncFetch(metrics.FetchApplied)
	s.metrics.AddItemsDropped(dropped)
	s.metrics.SetMarkers(r.Total)
	log.Info().
		Int("rows", res.Len()).
		Int("dropped", dropped).
		Int("created", r.Created).
		Int("moved", r.Moved).
		Int("markers", r.Total).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("viewport fetch applied")
}

func (s *Scheduler) stale(log zerolog.Logger) {
	s.metrics.IncFetch(metrics.FetchStale)
	log.Debug().Msg("viewport fetch superseded; result discarded")
}

func (s *Scheduler) failed(log zerolog.Logger, err error) {
	s.metrics.IncFetch(metrics.FetchError)

	msg := "fetch failed"
	var se *sparql.StatusError
	if errors.As(err, &se) {
		msg = fmt.Sprintf("SPARQL error: %d", se.StatusCode)
	}
	s.board.Set(status.StateError, msg)
	log.Error().Err(err).Msg("viewport fetch failed")
}
