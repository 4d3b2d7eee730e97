// Package autoplay implements the clip queue and playback-advancement
// controller: a single event-driven actor that pages clips in from the
// catalog, keeps a filtered ordered queue, and advances playback from a
// deadline timer reconciled with untrusted player reports.
package autoplay

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"cliploop/player"
	"cliploop/twitch"
)

// Catalog is the remote clip catalog consumed by the controller.
type Catalog interface {
	ResolveBroadcaster(ctx context.Context, query string) (twitch.Broadcaster, error)
	FetchClips(ctx context.Context, params twitch.ClipsParams) (twitch.ClipsPage, error)
}

// Credentials refreshes the catalog bearer credential. The controller
// calls Refresh at most once per logical user action and never resubmits
// the failed operation itself.
type Credentials interface {
	Refresh(ctx context.Context) error
}

// History receives a record each time a clip becomes current. Optional.
type History interface {
	RecordPlayback(clip twitch.Clip, cause string)
}

// Stats receives controller counters. Optional.
type Stats interface {
	PageFetched(prefetch bool)
	FetchFailed(kind string)
	Advanced(cause string)
	SignalHandled(outcome string)
	StaleDropped(what string)
}

// Phase is the session controller's top-level state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSearching
	PhaseActive
	PhaseError
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSearching:
		return "searching"
	case PhaseActive:
		return "active"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Causes recorded when a clip becomes current.
const (
	CauseStart       = "start"
	CauseAuto        = "auto"
	CausePlayerEnded = "player-ended"
	CauseManualNext  = "manual-next"
	CauseManualPrev  = "manual-prev"
)

// Config tunes the controller.
type Config struct {
	// Timer holds the advancement timing constants.
	Timer TimerConfig

	// PrefetchFraction is the queue-position fraction at which a
	// background page fetch is triggered. Default 0.8.
	PrefetchFraction float64

	// FetchTimeout bounds each catalog call. Default 20s.
	FetchTimeout time.Duration

	// AutoAdvance is the initial auto-advance setting. The zero Config
	// disables it; DefaultControllerConfig enables it.
	AutoAdvance bool

	// History, when set, records every clip shown.
	History History

	// Stats, when set, receives controller counters.
	Stats Stats
}

// DefaultControllerConfig returns the production configuration.
func DefaultControllerConfig() Config {
	return Config{
		Timer:            DefaultTimerConfig(),
		PrefetchFraction: 0.8,
		FetchTimeout:     20 * time.Second,
		AutoAdvance:      true,
	}
}

// Snapshot is a consistent read of the session state.
type Snapshot struct {
	Phase       Phase
	Query       string
	Broadcaster twitch.Broadcaster
	Filter      Spec
	AutoAdvance bool

	// Current is nil outside PhaseActive or when the queue is empty.
	Current   *twitch.Clip
	Position  int
	QueueLen  int
	Exhausted bool

	// Message is the user-visible error or transient notice, if any.
	Message string
}

// Controller is the session controller. All mutable state is owned by one
// event-loop goroutine; public methods post events onto its channel, and
// asynchronous fetch completions carry the generation captured at fetch
// start so stale results are discarded instead of applied.
type Controller struct {
	catalog Catalog
	creds   Credentials
	cfg     Config
	timer   *AdvanceTimer
	events  chan event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Loop-owned state. Never touched outside run().
	phase         Phase
	query         string
	broadcaster   twitch.Broadcaster
	spec          Spec
	queue         *Queue
	gen           uint64
	errMsg        string
	reauthUsed    bool
	fetchInFlight bool
	pendingCause  string // non-empty while an advance waits on a fetch
}

// Events posted onto the loop.
type event interface{}

type evSearch struct{ query string }
type evNext struct{}
type evPrev struct{}
type evSetFilter struct{ spec Spec }
type evSetAutoAdvance struct{ enabled bool }
type evSignal struct{ sig player.Signal }
type evDeadline struct{ clipID string }
type evResolved struct {
	gen uint64
	b   twitch.Broadcaster
	err error
}
type evPage struct {
	gen      uint64
	page     twitch.ClipsPage
	replace  bool
	prefetch bool
	err      error
}
type evReauthDone struct {
	gen uint64
	err error
}
type evSnapshot struct{ reply chan Snapshot }

// New creates a controller. Start must be called before any other method.
func New(catalog Catalog, creds Credentials, cfg Config) *Controller {
	if cfg.PrefetchFraction <= 0 || cfg.PrefetchFraction > 1 {
		cfg.PrefetchFraction = 0.8
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}

	c := &Controller{
		catalog: catalog,
		creds:   creds,
		cfg:     cfg,
		events:  make(chan event, 64),
		queue:   NewQueue(),
		spec:    DefaultSpec(),
	}
	c.timer = NewAdvanceTimer(cfg.Timer, func(clipID string) {
		c.post(evDeadline{clipID: clipID})
	})
	c.timer.SetEnabled(cfg.AutoAdvance)
	return c
}

// Start launches the event loop. The controller stops when ctx is
// cancelled or Close is called.
func (c *Controller) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run()
}

// Close stops the event loop and cancels any pending deadline.
func (c *Controller) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.timer.Cancel()
	c.wg.Wait()
}

// Search starts a new session for the given free-text broadcaster query.
func (c *Controller) Search(query string) { c.post(evSearch{query: query}) }

// Next advances to the next clip (manual navigation).
func (c *Controller) Next() { c.post(evNext{}) }

// Prev moves back one clip; a no-op at the head of the queue.
func (c *Controller) Prev() { c.post(evPrev{}) }

// SetFilter replaces the filter/sort/window selection. Any change rebuilds
// the queue from scratch for the already-resolved broadcaster.
func (c *Controller) SetFilter(spec Spec) { c.post(evSetFilter{spec: spec}) }

// SetAutoAdvance toggles automatic advancement.
func (c *Controller) SetAutoAdvance(enabled bool) { c.post(evSetAutoAdvance{enabled: enabled}) }

// PlayerSignal feeds a normalized player report into the session.
func (c *Controller) PlayerSignal(sig player.Signal) { c.post(evSignal{sig: sig}) }

// Snapshot returns a consistent view of the session state.
func (c *Controller) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	c.post(evSnapshot{reply: reply})
	select {
	case s := <-reply:
		return s
	case <-c.ctx.Done():
		return Snapshot{}
	}
}

func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func (c *Controller) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev event) {
	switch ev := ev.(type) {
	case evSearch:
		c.handleSearch(ev.query)
	case evNext:
		c.handleNext()
	case evPrev:
		c.handlePrev()
	case evSetFilter:
		c.handleSetFilter(ev.spec)
	case evSetAutoAdvance:
		c.handleSetAutoAdvance(ev.enabled)
	case evSignal:
		c.handleSignal(ev.sig)
	case evDeadline:
		c.handleDeadline(ev.clipID)
	case evResolved:
		c.handleResolved(ev)
	case evPage:
		c.handlePage(ev)
	case evReauthDone:
		c.handleReauthDone(ev)
	case evSnapshot:
		ev.reply <- c.snapshot()
	}
}

func (c *Controller) handleSearch(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	c.newGeneration()
	c.query = query
	c.broadcaster = twitch.Broadcaster{}
	c.phase = PhaseSearching
	log.Printf("cliploop: searching for %q", query)

	gen := c.gen
	go func() {
		ctx, cancelFn := context.WithTimeout(c.ctx, c.cfg.FetchTimeout)
		defer cancelFn()
		b, err := c.catalog.ResolveBroadcaster(ctx, query)
		c.post(evResolved{gen: gen, b: b, err: err})
	}()
}

// newGeneration invalidates every outstanding fetch and pending deadline:
// stale completions check the counter and are discarded.
func (c *Controller) newGeneration() {
	c.gen++
	c.queue.Reset()
	c.timer.Cancel()
	c.errMsg = ""
	c.reauthUsed = false
	c.fetchInFlight = false
	c.pendingCause = ""
}

func (c *Controller) handleResolved(ev evResolved) {
	if ev.gen != c.gen {
		c.statStale("resolve")
		return
	}
	if ev.err != nil {
		c.failFetch(ev.err)
		return
	}

	c.broadcaster = ev.b
	log.Printf("cliploop: resolved %q to broadcaster %s (%s)", c.query, ev.b.ID, ev.b.DisplayName)
	c.startFetch(true, false)
}

// startFetch launches a page fetch for the current generation. replace
// marks the first page of a rebuilt queue; prefetch marks an advisory
// background fetch.
func (c *Controller) startFetch(replace, prefetch bool) {
	c.fetchInFlight = true

	params := twitch.ClipsParams{BroadcasterID: c.broadcaster.ID}
	if start, end, ok := c.spec.Window.Bounds(time.Now()); ok {
		params.StartedAt = start
		params.EndedAt = end
	}
	if !replace {
		params.After = c.queue.Cursor()
	}

	gen := c.gen
	go func() {
		ctx, cancelFn := context.WithTimeout(c.ctx, c.cfg.FetchTimeout)
		defer cancelFn()
		page, err := c.catalog.FetchClips(ctx, params)
		c.post(evPage{gen: gen, page: page, replace: replace, prefetch: prefetch, err: err})
	}()
}

func (c *Controller) handlePage(ev evPage) {
	if ev.gen != c.gen {
		c.statStale("page")
		return
	}
	c.fetchInFlight = false

	if ev.err != nil {
		if ev.prefetch {
			// Prefetch is advisory; a failure never interrupts playback.
			if c.cfg.Stats != nil {
				c.cfg.Stats.FetchFailed("prefetch")
			}
			log.Printf("cliploop: prefetch failed: %v", ev.err)
			// An advance may have parked on this fetch; it falls back to
			// a demand fetch instead of being dropped.
			if c.pendingCause != "" {
				c.startFetch(false, false)
			}
			return
		}
		c.failFetch(ev.err)
		return
	}

	filtered := c.spec.Apply(ev.page.Clips)
	c.queue.AppendPage(twitch.ClipsPage{Clips: filtered, Cursor: ev.page.Cursor}, ev.replace)
	if c.cfg.Stats != nil {
		c.cfg.Stats.PageFetched(ev.prefetch)
	}
	log.Printf("cliploop: page applied: %d/%d clips kept, queue=%d, exhausted=%v",
		len(filtered), len(ev.page.Clips), c.queue.Len(), c.queue.Exhausted())

	if ev.replace {
		if clip, ok := c.queue.Current(); ok {
			c.phase = PhaseActive
			c.errMsg = ""
			c.show(clip, CauseStart)
		} else {
			c.phase = PhaseError
			c.errMsg = "no clips found for the selected time window and filters"
		}
		return
	}

	if c.pendingCause != "" {
		cause := c.pendingCause
		c.pendingCause = ""
		c.advance(cause)
	}
}

// advance moves the queue forward, fetching another page first when the
// fetched items are used up and the catalog still has more.
func (c *Controller) advance(cause string) {
	clip, outcome := c.queue.Advance()
	switch outcome {
	case Advanced, Wrapped:
		if outcome == Wrapped {
			log.Printf("cliploop: catalog drained, wrapping to first clip")
		}
		c.show(clip, cause)
	case NeedMore:
		c.pendingCause = cause
		if !c.fetchInFlight {
			c.startFetch(false, false)
		}
	case AdvanceEmpty:
		// Exhausted and nothing fetched; nothing to play.
	}
}

// show makes a clip current: arms the timer, records history, and checks
// the prefetch threshold.
func (c *Controller) show(clip twitch.Clip, cause string) {
	c.timer.Arm(clip)
	if c.cfg.History != nil {
		c.cfg.History.RecordPlayback(clip, cause)
	}
	if c.cfg.Stats != nil {
		c.cfg.Stats.Advanced(cause)
	}
	log.Printf("cliploop: now playing %q (%.0fs, %s) at %d/%d",
		clip.Title, clip.Duration, cause, c.queue.Position()+1, c.queue.Len())

	if !c.fetchInFlight && c.queue.ShouldPrefetch(c.cfg.PrefetchFraction) {
		c.startFetch(false, true)
	}
}

func (c *Controller) handleNext() {
	if c.phase != PhaseActive {
		return
	}
	c.reauthUsed = false
	c.timer.Cancel()
	c.advance(CauseManualNext)
}

func (c *Controller) handlePrev() {
	if c.phase != PhaseActive {
		return
	}
	c.reauthUsed = false
	c.timer.Cancel()
	if clip, ok := c.queue.Retreat(); ok {
		c.show(clip, CauseManualPrev)
	} else if clip, ok := c.queue.Current(); ok {
		// At the head there is no backward wrap; keep the schedule for
		// the clip that stays current.
		c.timer.Arm(clip)
	}
}

func (c *Controller) handleSetFilter(spec Spec) {
	if err := spec.Validate(); err != nil {
		log.Printf("cliploop: rejecting filter change: %v", err)
		return
	}
	if spec == c.spec {
		return
	}
	c.spec = spec

	if c.broadcaster.ID == "" {
		// Nothing to rebuild yet; leave any search error behind.
		c.newGeneration()
		c.phase = PhaseIdle
		return
	}

	c.newGeneration()
	c.phase = PhaseSearching
	log.Printf("cliploop: filter changed (%s/%s/%s), rebuilding queue",
		spec.Sort, spec.Duration, spec.Window)
	c.startFetch(true, false)
}

func (c *Controller) handleSetAutoAdvance(enabled bool) {
	c.timer.SetEnabled(enabled)
	if enabled && c.phase == PhaseActive {
		if clip, ok := c.queue.Current(); ok {
			c.timer.Arm(clip)
		}
	}
}

func (c *Controller) handleSignal(sig player.Signal) {
	if c.phase != PhaseActive {
		c.statSignal("ignored")
		return
	}
	current, ok := c.queue.Current()
	if !ok {
		c.statSignal("ignored")
		return
	}
	if sig.ClipID != "" && sig.ClipID != current.ID {
		c.statSignal("stale")
		return
	}

	if sig.Ended {
		if c.timer.ObserveEnded(current.ID) {
			c.statSignal("ended")
			c.advance(CausePlayerEnded)
		} else {
			c.statSignal("ignored")
		}
		return
	}

	if sig.HasElapsed {
		if c.timer.ObserveElapsed(current.ID, sig.Elapsed) {
			c.statSignal("rearmed")
		} else {
			c.statSignal("ignored")
		}
	}
}

func (c *Controller) handleDeadline(clipID string) {
	if c.phase != PhaseActive {
		c.statStale("deadline")
		return
	}
	current, ok := c.queue.Current()
	if !ok || current.ID != clipID {
		c.statStale("deadline")
		return
	}
	c.advance(CauseAuto)
}

// failFetch classifies a fetch-path error and sets the user-visible
// state. Nothing is retried automatically; a ReauthRequired triggers one
// credential refresh and the next user action carries the retry.
func (c *Controller) failFetch(err error) {
	searching := c.phase == PhaseSearching
	var kind string

	switch {
	case errors.Is(err, twitch.ErrReauthRequired):
		kind = "reauth"
		if !c.reauthUsed && c.creds != nil {
			c.reauthUsed = true
			c.errMsg = "credentials expired; refreshing, please retry"
			gen := c.gen
			go func() {
				ctx, cancelFn := context.WithTimeout(c.ctx, c.cfg.FetchTimeout)
				defer cancelFn()
				c.post(evReauthDone{gen: gen, err: c.creds.Refresh(ctx)})
			}()
		} else {
			c.errMsg = "credentials expired"
		}
	case errors.Is(err, twitch.ErrNotFound):
		kind = "not_found"
		c.errMsg = "broadcaster not found"
	case errors.Is(err, twitch.ErrInvalidRequest):
		kind = "invalid"
		c.errMsg = "request rejected by the catalog"
	default:
		kind = "unavailable"
		c.errMsg = "catalog unavailable, try again"
	}

	if c.cfg.Stats != nil {
		c.cfg.Stats.FetchFailed(kind)
	}
	log.Printf("cliploop: fetch failed (%s): %v", kind, err)

	// Errors are terminal for the fetch that caused them: any pending
	// advance is dropped and the next user action carries the retry. In
	// an active session the current clip keeps playing and only the
	// message shows; a failed search ends in the error phase.
	c.pendingCause = ""
	if searching {
		c.phase = PhaseError
	}
}

func (c *Controller) handleReauthDone(ev evReauthDone) {
	if ev.gen != c.gen {
		c.statStale("reauth")
		return
	}
	if ev.err != nil {
		c.errMsg = "credential refresh failed"
		log.Printf("cliploop: credential refresh failed: %v", ev.err)
		return
	}
	c.errMsg = "credentials refreshed; retry your last action"
	log.Printf("cliploop: credentials refreshed")
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		Phase:       c.phase,
		Query:       c.query,
		Broadcaster: c.broadcaster,
		Filter:      c.spec,
		AutoAdvance: c.timer.Enabled(),
		Position:    c.queue.Position(),
		QueueLen:    c.queue.Len(),
		Exhausted:   c.queue.Exhausted(),
		Message:     c.errMsg,
	}
	if c.phase == PhaseActive {
		if clip, ok := c.queue.Current(); ok {
			s.Current = &clip
		}
	}
	return s
}

func (c *Controller) statStale(what string) {
	if c.cfg.Stats != nil {
		c.cfg.Stats.StaleDropped(what)
	}
	log.Printf("cliploop: discarding stale %s result", what)
}

func (c *Controller) statSignal(outcome string) {
	if c.cfg.Stats != nil {
		c.cfg.Stats.SignalHandled(outcome)
	}
}

