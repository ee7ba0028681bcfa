/*
scheduler.go - Automated daily team bonus payouts

PURPOSE:
  Periodically pays the day's team bonus to every stored affiliate, so
  bonuses land without anyone calling the payout endpoint.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each run pays with the default reference, so the idempotency key
    team:{affiliate}:{day}:daily makes repeated runs on one day no-ops
  - Inactive affiliates and zero amounts are skipped, not errors
  - Elite bonuses are paid after all team bonuses, since they are computed
    from what the downline was paid

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewPayoutScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerPayouts endpoint (manual run)
  - compensation/payout.go: PayoutService
*/
package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/bonus-engine/compensation"
	"github.com/warp/bonus-engine/generic"
)

// PayoutRunSummary reports one payout run.
type PayoutRunSummary struct {
	Date        string   `json:"date"`
	TeamPaid    int      `json:"team_paid"`
	ElitePaid   int      `json:"elite_paid"`
	Skipped     int      `json:"skipped"`
	AlreadyPaid int      `json:"already_paid"`
	Failed      int      `json:"failed"`
	TotalPaid   float64  `json:"total_paid"`
	Errors      []string `json:"errors,omitempty"`
}

// RunDailyPayouts pays the team bonus, then the elite bonus, of every
// affiliate for day.
func (h *Handler) RunDailyPayouts(ctx context.Context, day generic.TimePoint, actor string) (PayoutRunSummary, error) {
	summary := PayoutRunSummary{Date: day.String()}
	total := compensation.USD(0)

	net, err := h.loadNetwork(ctx)
	if err != nil {
		return summary, err
	}
	records, err := h.Store.ListAffiliates(ctx)
	if err != nil {
		return summary, err
	}

	record := func(id string, tx *generic.Transaction, err error, paid *int) {
		switch {
		case errors.Is(err, generic.ErrDuplicateIdempotencyKey):
			summary.AlreadyPaid++
		case errors.Is(err, compensation.ErrInactiveMembership),
			errors.Is(err, compensation.ErrIneligibleTier):
			summary.Skipped++
		case err != nil:
			summary.Failed++
			summary.Errors = append(summary.Errors, id+": "+err.Error())
		case tx == nil:
			summary.Skipped++
		default:
			*paid++
			total = total.Add(tx.Delta)
		}
	}

	for _, rec := range records {
		a, ok := net.Get(generic.AffiliateID(rec.ID))
		if !ok {
			summary.Skipped++
			continue
		}
		payout, err := h.Payouts.PayTeamBonus(ctx, a, day, compensation.DefaultReference, actor)
		record(rec.ID, payout.Transaction, err, &summary.TeamPaid)
	}

	plan := h.Plan()
	for _, rec := range records {
		a, ok := net.Get(generic.AffiliateID(rec.ID))
		if !ok {
			continue
		}
		if rule, err := plan.Rule(a.Tier); err != nil || !rule.EliteEligible() {
			continue
		}
		payout, err := h.Payouts.PayEliteBonus(ctx, net, a.ID, day, actor)
		record(rec.ID, payout.Transaction, err, &summary.ElitePaid)
	}

	summary.TotalPaid = toFloat(total)
	return summary, nil
}

// PayoutScheduler runs RunDailyPayouts on a ticker.
type PayoutScheduler struct {
	Handler       *Handler
	Logger        *slog.Logger
	CheckInterval time.Duration
	Enabled       bool

	// Now is the clock; tests replace it.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPayoutScheduler creates a new scheduler.
func NewPayoutScheduler(handler *Handler) *PayoutScheduler {
	return &PayoutScheduler{
		Handler:       handler,
		Logger:        handler.Logger.WithGroup("scheduler"),
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           time.Now,
	}
}

// Start begins the scheduler. Starting a running scheduler does nothing;
// a stopped one can be started again.
func (ps *PayoutScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		ps.Logger.Info("disabled, not starting")
		return
	}
	if ps.ticker != nil {
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.stop = make(chan bool)
	ps.wg.Add(1)

	go ps.run(ps.ticker, ps.stop)

	ps.Logger.Info("started", "interval", ps.CheckInterval)
}

// Stop stops the scheduler.
func (ps *PayoutScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		ps.ticker = nil
		ps.Logger.Info("stopped")
	}
}

// Running reports whether the scheduler has been started and not stopped.
func (ps *PayoutScheduler) Running() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.ticker != nil
}

func (ps *PayoutScheduler) run(ticker *time.Ticker, stop <-chan bool) {
	defer ps.wg.Done()

	// Run immediately on start
	ps.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			ps.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce pays today's bonuses and logs the outcome.
func (ps *PayoutScheduler) RunOnce(ctx context.Context) PayoutRunSummary {
	day := generic.DayOf(ps.Now())

	summary, err := ps.Handler.RunDailyPayouts(ctx, day, "scheduler")
	if err != nil {
		ps.Logger.Error("payout run failed", "day", day.String(), "error", err)
		return summary
	}

	ps.Logger.Info("payout run complete",
		"day", summary.Date,
		"team_paid", summary.TeamPaid,
		"elite_paid", summary.ElitePaid,
		"already_paid", summary.AlreadyPaid,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"total_paid", summary.TotalPaid,
	)
	for _, e := range summary.Errors {
		ps.Logger.Warn("payout failed", "detail", e)
	}
	return summary
}
