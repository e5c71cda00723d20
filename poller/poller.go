// Package poller drives the round client: it polls the backend series, folds it into
// candles and keeps the session status current.
package poller

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"tradebull/backend"
	"tradebull/config"
	"tradebull/db"
	"tradebull/game"
	"tradebull/metrics"
	"tradebull/state"
)

// Renderer receives the candle stream and status updates.
type Renderer interface {
	ResetRound(roundID, previousRoundID int64)
	AppendCandles(roundID int64, candles []game.Candle)
	ReplaceCandles(roundID int64, candles []game.Candle)
	PublishStatus(status state.StatusView)
}

// Options configures a Poller.
type Options struct {
	Client   *backend.Client
	Session  *state.Session
	Renderer Renderer
	Recorder db.Recorder
	Metrics  *metrics.Metrics

	UserID          string
	Interval        time.Duration
	PointsPerCandle int
	TimeLookback    int64
}

// Poller owns the aggregator state. Only the goroutine holding the in-flight flag
// touches the fields below it.
type Poller struct {
	client   *backend.Client
	agg      *game.Aggregator
	session  *state.Session
	renderer Renderer
	recorder db.Recorder
	metrics  *metrics.Metrics

	userID   string
	interval time.Duration
	lookback int64
	now      func() time.Time

	polling atomic.Bool
	wg      sync.WaitGroup

	current     *game.AggregatorState
	roundOrigin int64
	goldMult    float64
	resultRound int64
	needsResync bool

	healthMu   sync.RWMutex
	lastPollAt time.Time
	lastErr    error
}

// New validates opts and builds a Poller.
func New(opts Options) (*Poller, error) {
	if opts.Client == nil {
		return nil, errors.New("poller requires a backend client")
	}
	if opts.Session == nil {
		return nil, errors.New("poller requires a session")
	}
	ppc := opts.PointsPerCandle
	if ppc == 0 {
		ppc = config.PointsPerCandle
	}
	agg, err := game.NewAggregator(ppc)
	if err != nil {
		return nil, err
	}

	p := &Poller{
		client:   opts.Client,
		agg:      agg,
		session:  opts.Session,
		renderer: opts.Renderer,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		userID:   opts.UserID,
		interval: opts.Interval,
		lookback: opts.TimeLookback,
		now:      time.Now,
	}
	if p.renderer == nil {
		p.renderer = nopRenderer{}
	}
	if p.recorder == nil {
		p.recorder = db.NewNoopRecorder()
	}
	if p.metrics == nil {
		p.metrics = metrics.NewNop()
	}
	if p.interval <= 0 {
		p.interval = config.PollInterval
	}
	if p.lookback <= 0 {
		p.lookback = config.CandleTimeLookback
	}
	if p.userID == "" {
		p.userID = config.FallbackUserID
	}
	return p, nil
}

// Run polls immediately and then on every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	log.Printf("📊 Poller started (interval %s, user %s)", p.interval, p.userID)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.spawn(ctx)
	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			log.Println("🛑 Poller stopped")
			return
		case <-ticker.C:
			p.spawn(ctx)
		}
	}
}

func (p *Poller) spawn(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Tick(ctx)
	}()
}

// Tick runs one poll unless the previous one is still in flight. It reports whether
// a poll was started.
func (p *Poller) Tick(ctx context.Context) bool {
	if !p.polling.CompareAndSwap(false, true) {
		p.metrics.PollsSkipped.Inc()
		return false
	}
	defer p.polling.Store(false)

	p.poll(ctx)
	return true
}

// Health returns the time and error of the last completed poll.
func (p *Poller) Health() (time.Time, error) {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.lastPollAt, p.lastErr
}

func (p *Poller) setHealth(err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	p.lastPollAt = p.now()
	p.lastErr = err
}

func (p *Poller) poll(ctx context.Context) {
	start := time.Now()
	snap, err := p.client.FetchSeries(ctx)
	p.metrics.PollDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.metrics.PollsTotal.WithLabelValues("error").Inc()
		log.Printf("⚠️ Series poll failed: %v", err)
		p.setHealth(err)
		p.session.SetLastError(err)
		p.renderer.PublishStatus(p.session.StatusSnapshot())
		return
	}
	p.metrics.PollsTotal.WithLabelValues("ok").Inc()
	p.setHealth(nil)

	if !p.handleSnapshot(ctx, snap) {
		return
	}

	p.session.ApplySnapshot(snap)
	p.metrics.CurrentRound.Set(float64(snap.RoundID))
	if err := p.recorder.RecordSnapshot(ctx, snap); err != nil {
		log.Printf("⚠️ Failed to cache snapshot: %v", err)
	}

	p.refreshAccount(ctx, snap)
	p.renderer.PublishStatus(p.session.StatusSnapshot())
}

// handleSnapshot feeds a snapshot to the aggregator. It returns false when the
// snapshot was discarded.
func (p *Poller) handleSnapshot(ctx context.Context, snap *game.RoundSnapshot) bool {
	// Polls never overlap, so any other round id (lower ones included, after a
	// backend restart) is a rollover. Only a shrunken series of the same round is stale.
	cur := p.current
	if cur != nil && snap.RoundID == cur.RoundID && len(snap.Points) < cur.ConsumedCount {
		p.metrics.StaleSnapshots.Inc()
		log.Printf("⚠️ Discarding stale snapshot: round %d has %d points, %d already consumed",
			snap.RoundID, len(snap.Points), cur.ConsumedCount)
		return false
	}

	replace := false
	switch {
	case cur == nil || snap.RoundID != cur.RoundID:
		p.startRound(ctx, snap.RoundID)
	case p.needsResync:
		log.Printf("🔄 Resyncing round %d", snap.RoundID)
		p.current = game.NewAggregatorState(snap.RoundID, p.roundOrigin)
		p.session.ResetRender(snap.RoundID)
		p.needsResync = false
		replace = true
	}

	candles, err := p.agg.Apply(p.current, snap.Points)
	if err != nil {
		p.metrics.InvalidState.Inc()
		p.needsResync = true
		log.Printf("❌ Aggregator rejected snapshot: %v", err)
		return false
	}
	p.goldMult = snap.GoldMult

	if len(candles) > 0 {
		p.session.AppendCandles(snap.RoundID, candles)
		p.metrics.CandlesTotal.Add(float64(len(candles)))
		if err := p.recorder.RecordCandles(ctx, snap.RoundID, candles); err != nil {
			log.Printf("⚠️ Failed to cache candles for round %d: %v", snap.RoundID, err)
		}
	}

	if replace {
		p.renderer.ReplaceCandles(snap.RoundID, p.session.RenderSnapshot().Candles)
	} else if len(candles) > 0 {
		p.renderer.AppendCandles(snap.RoundID, candles)
	}
	return true
}

// startRound persists the finished round and seeds fresh state for roundID.
func (p *Poller) startRound(ctx context.Context, roundID int64) {
	var previousID, previousTime int64
	if prev := p.current; prev != nil {
		previousID = prev.RoundID
		previousTime = prev.LastCandleTime
		p.metrics.RoundRollovers.Inc()
		p.completeRound(ctx, prev.RoundID)
		log.Printf("🎲 Round %d → %d", prev.RoundID, roundID)
	} else {
		log.Printf("🎲 Tracking round %d", roundID)
	}

	p.roundOrigin = p.origin(previousTime)
	p.current = game.NewAggregatorState(roundID, p.roundOrigin)
	p.goldMult = 0
	p.needsResync = false
	p.session.ResetRender(roundID)
	p.session.SetBet(nil)
	p.renderer.ResetRound(roundID, previousID)
}

// origin picks the candle time origin for a new round, strictly after previousTime.
func (p *Poller) origin(previousTime int64) int64 {
	o := p.now().Unix() - p.lookback
	if o <= previousTime {
		o = previousTime + 1
	}
	return o
}

func (p *Poller) completeRound(ctx context.Context, roundID int64) {
	render := p.session.RenderSnapshot()
	if render.RoundID != roundID || len(render.Candles) == 0 {
		return
	}
	rec := &db.RoundRecord{
		RoundID:     roundID,
		GoldMult:    p.goldMult,
		Candles:     render.Candles,
		CompletedAt: p.now(),
	}
	if err := p.recorder.RecordRound(ctx, rec); err != nil {
		log.Printf("⚠️ Failed to store round %d: %v", roundID, err)
	}
}

// refreshAccount updates balance and bet status. Failures never stop polling.
func (p *Poller) refreshAccount(ctx context.Context, snap *game.RoundSnapshot) {
	if acc, err := p.client.FetchAccount(ctx, p.userID); err != nil {
		p.statusError("init", err)
	} else {
		p.session.SetBalance(acc.Balance)
	}

	if my, err := p.client.FetchMyBet(ctx, p.userID); err != nil {
		p.statusError("mybet", err)
	} else if my.RoundID == 0 || my.RoundID == snap.RoundID {
		p.session.SetBet(my.Bet)
	}

	if snap.Phase == game.PhaseDone && p.resultRound != snap.RoundID {
		if res, err := p.client.FetchLastResult(ctx, p.userID); err != nil {
			p.statusError("last_result", err)
		} else {
			p.resultRound = snap.RoundID
			if res != nil {
				p.session.SetLastResult(game.ResultText(res))
			}
		}
	}
}

func (p *Poller) statusError(call string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	p.metrics.StatusErrors.WithLabelValues(call).Inc()
	log.Printf("⚠️ Status refresh (%s) failed: %v", call, err)
	p.session.SetLastError(err)
}

type nopRenderer struct{}

func (nopRenderer) ResetRound(int64, int64)             {}
func (nopRenderer) AppendCandles(int64, []game.Candle)  {}
func (nopRenderer) ReplaceCandles(int64, []game.Candle) {}
func (nopRenderer) PublishStatus(state.StatusView)      {}
