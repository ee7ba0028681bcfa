/*
handlers_test.go - HTTP tests for the bonus API

Tests for:
- Plan and calculator endpoints
- Affiliate CRUD and network projection
- Team and elite payouts, history and reversal
- Scenario loading and the daily payout run
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/compensation"
	"github.com/warp/bonus-engine/factory"
	"github.com/warp/bonus-engine/generic"
	"github.com/warp/bonus-engine/logging"
	"github.com/warp/bonus-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, compensation.DefaultPlan(), logging.Discard())
	return &testServer{handler: h, router: NewRouter(h, nil)}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func ptr[T any](v T) *T { return &v }

// seedDocumentedExample stores Sofía (Senior) sponsoring Mateo (Master).
func (ts *testServer) seedDocumentedExample(t *testing.T) {
	t.Helper()
	for _, rec := range documentedExample() {
		require.NoError(t, ts.handler.Store.SaveAffiliate(context.Background(), rec))
	}
}

const payday = "2025-03-10"

// =============================================================================
// PLAN & CALCULATORS
// =============================================================================

func TestSelectStartupPlan(t *testing.T) {
	ctx := context.Background()

	// A preset is stored and used
	ts := newTestServer(t)
	require.NoError(t, ts.handler.SelectStartupPlan(ctx, "", "launch-week"))
	assert.Equal(t, "launch-week", ts.handler.Plan().ID)

	// On the next start without flags the stored plan comes back
	restarted := NewHandler(ts.handler.Store, compensation.DefaultPlan(), logging.Discard())
	require.NoError(t, restarted.SelectStartupPlan(ctx, "", ""))
	assert.Equal(t, "launch-week", restarted.Plan().ID)

	// A plan file wins over a preset
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(compensation.StandardPlanJSON("from-file", "File")), 0o644))
	require.NoError(t, restarted.SelectStartupPlan(ctx, path, "double-days"))
	assert.Equal(t, "from-file", restarted.Plan().ID)

	assert.ErrorIs(t, restarted.SelectStartupPlan(ctx, "", "black-friday"), factory.ErrUnknownPreset)
}

func TestPlanPresets(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/plan/presets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	presets := decode[[]PlanPresetDTO](t, rec)
	require.Len(t, presets, len(compensation.PresetNames()))
	assert.Equal(t, "double-days", presets[0].Name)

	// WHEN: Applying the double-days preset
	rec = ts.do(t, http.MethodPost, "/api/plan/presets/double-days", nil)

	// THEN: It is stored and paid with
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decode[PlanDTO](t, rec)
	assert.Equal(t, "double-days", plan.Config.ID)
	assert.Equal(t, 1, plan.Version)
	assert.Equal(t, "double-days", ts.handler.Plan().ID)

	rec = ts.do(t, http.MethodGet, "/api/tiers", nil)
	tiers := decode[[]TierDTO](t, rec)
	assert.InDelta(t, 1440, tiers[3].DailyCap, 1e-9)

	rec = ts.do(t, http.MethodPost, "/api/plan/presets/black-friday", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTiers(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/tiers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tiers := decode[[]TierDTO](t, rec)
	require.Len(t, tiers, 4)
	assert.Equal(t, "pre_junior", tiers[0].Tier)
	assert.Equal(t, "Master", tiers[3].Name)
	assert.InDelta(t, 0.10, tiers[3].Rate, 1e-9)
	assert.InDelta(t, 720, tiers[3].DailyCap, 1e-9)
	assert.Equal(t, 6, tiers[3].EliteGenerations)
	assert.False(t, tiers[1].EliteEligible)
}

func TestUpdatePlan_BumpsVersion(t *testing.T) {
	ts := newTestServer(t)

	var pj map[string]any
	require.NoError(t, json.Unmarshal([]byte(compensation.PromotionPlanJSON("promo", "Double Days", 2)), &pj))

	rec := ts.do(t, http.MethodPut, "/api/plan", pj)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decode[PlanDTO](t, rec)
	assert.Equal(t, "promo", plan.Config.ID)
	assert.Equal(t, 1, plan.Version)
	assert.Equal(t, "promo", ts.handler.Payouts.Plan().ID)

	rec = ts.do(t, http.MethodPut, "/api/plan", map[string]any{"tiers": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateTeamBonus(t *testing.T) {
	ts := newTestServer(t)

	// GIVEN: The documented Master example
	rec := ts.do(t, http.MethodPost, "/api/bonus/team", TeamBonusRequest{
		Tier:         "Master",
		PublicLegBV:  3000,
		PrivateLegBV: 2000,
		MonthlyBV:    ptr(250.0),
	})

	// THEN: 10% of the weaker 2000 BV leg
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[TeamBonusDTO](t, rec)
	assert.InDelta(t, 2000, res.WeakerLeg, 1e-9)
	assert.InDelta(t, 200, res.Amount, 1e-9)
	assert.InDelta(t, 720, res.Remaining, 1e-9)
	assert.True(t, res.Active)
	assert.False(t, res.Capped)
	assert.Empty(t, res.Reason)
}

func TestCalculateTeamBonus_InactiveCarriesReason(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bonus/team", TeamBonusRequest{
		Tier:         "master",
		PublicLegBV:  3000,
		PrivateLegBV: 2000,
		Active:       ptr(false),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[TeamBonusDTO](t, rec)
	assert.Zero(t, res.Amount)
	assert.False(t, res.Active)
	assert.Contains(t, res.Reason, "inactive")
}

func TestCalculateTeamBonus_BadInput(t *testing.T) {
	ts := newTestServer(t)

	tests := map[string]TeamBonusRequest{
		"unknown tier":    {Tier: "gold", Active: ptr(true)},
		"negative leg":    {Tier: "junior", PublicLegBV: -1, Active: ptr(true)},
		"activity absent": {Tier: "junior"},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/bonus/team", req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCalculateEliteBonus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bonus/elite", EliteBonusRequest{
		Tier:   "senior",
		Active: ptr(true),
		Earnings: []GenerationEarningDTO{
			{Depth: 1, TeamBonus: 200},
			{Depth: 4, TeamBonus: 1000}, // beyond a Senior's window
		},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[EliteBonusDTO](t, rec)
	assert.InDelta(t, 8, res.Total, 1e-9)
	assert.Equal(t, 3, res.MaxDepth)

	// Juniors are not eligible
	rec = ts.do(t, http.MethodPost, "/api/bonus/elite", EliteBonusRequest{Tier: "junior", Active: ptr(true)})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "ineligible_tier", decode[ErrorResponse](t, rec).Code)
}

func TestSimulate(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/simulations", SimulationRequest{
		Tier:                  "master",
		PublicLegBV:           3000,
		PrivateLegBV:          2000,
		MonthlyBV:             50,
		Generations:           6,
		TeamBonusPerAffiliate: 100,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[SimulationDTO](t, rec)
	assert.InDelta(t, 200, res.Team.Amount, 1e-9)
	assert.InDelta(t, 80, res.Elite.Total, 1e-9)
	assert.InDelta(t, 280, res.Total, 1e-9)
	assert.Len(t, res.Tree, 21)

	rec = ts.do(t, http.MethodPost, "/api/simulations", SimulationRequest{Tier: "master", Generations: 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// AFFILIATES
// =============================================================================

func TestAffiliates_CreateAndGet(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/affiliates/", CreateAffiliateRequest{
		Name:         "Ana",
		Tier:         "Pre-Junior",
		MonthlyBV:    15,
		PublicLegBV:  100,
		PrivateLegBV: 50,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[AffiliateDTO](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "pre_junior", created.Tier)
	assert.Equal(t, "Pre-Junior", created.TierName)
	assert.True(t, created.Active)

	rec = ts.do(t, http.MethodGet, "/api/affiliates/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decode[AffiliateDTO](t, rec).Name)

	rec = ts.do(t, http.MethodGet, "/api/affiliates/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAffiliates_CreateRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	tests := map[string]CreateAffiliateRequest{
		"missing name":    {Tier: "junior"},
		"unknown tier":    {Name: "X", Tier: "gold"},
		"negative volume": {Name: "X", Tier: "junior", MonthlyBV: -5},
		"self sponsor":    {ID: "x", Name: "X", Tier: "junior", SponsorID: "x"},
		"unknown sponsor": {Name: "X", Tier: "junior", SponsorID: "ghost"},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/affiliates/", req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestGetNetwork(t *testing.T) {
	ts := newTestServer(t)
	ts.seedDocumentedExample(t)

	rec := ts.do(t, http.MethodGet, "/api/affiliates/sofia/network", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	net := decode[NetworkDTO](t, rec)
	assert.Equal(t, "sofia", net.Root.ID)
	assert.Equal(t, 3, net.Depth)
	require.Len(t, net.Downline, 1)
	assert.Equal(t, "mateo", net.Downline[0].Affiliate.ID)
	assert.Equal(t, 1, net.Downline[0].Depth)

	// Projected from Mateo's calculated $200 team bonus
	require.NotNil(t, net.ProjectedElite)
	assert.InDelta(t, 8, net.ProjectedElite.Total, 1e-9)

	rec = ts.do(t, http.MethodGet, "/api/affiliates/sofia/network?depth=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetNetwork_LoadsRequestedGenerations(t *testing.T) {
	// GIVEN: A Master over a chain of seven Juniors earning $70 each, plus a
	// recruit with an unreadable tier that sponsors its own recruit
	ts := newTestServer(t)
	ctx := context.Background()
	store := ts.handler.Store
	require.NoError(t, store.SaveAffiliate(ctx, affiliate("root", "Root", "", compensation.TierMaster, 250, 0, 0)))
	sponsor := "root"
	for _, id := range []string{"g1", "g2", "g3", "g4", "g5", "g6", "g7"} {
		require.NoError(t, store.SaveAffiliate(ctx, affiliate(id, id, sponsor, compensation.TierJunior, 20, 1000, 1000)))
		sponsor = id
	}
	broken := affiliate("broken", "Broken", "root", compensation.TierJunior, 20, 1000, 1000)
	broken.Tier = "platinum"
	require.NoError(t, store.SaveAffiliate(ctx, broken))
	require.NoError(t, store.SaveAffiliate(ctx, affiliate("below-broken", "Below", "broken", compensation.TierJunior, 20, 1000, 1000)))

	// WHEN: Asking for one generation
	rec := ts.do(t, http.MethodGet, "/api/affiliates/root/network?depth=1", nil)

	// THEN: Only g1 is listed, but the projection still covers six generations
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	net := decode[NetworkDTO](t, rec)
	require.Len(t, net.Downline, 1)
	assert.Equal(t, "g1", net.Downline[0].Affiliate.ID)
	require.NotNil(t, net.ProjectedElite)
	assert.InDelta(t, 16.8, net.ProjectedElite.Total, 1e-9)

	// AND: Unlimited depth lists the whole chain and leaves out the broken branch
	rec = ts.do(t, http.MethodGet, "/api/affiliates/root/network?depth=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	net = decode[NetworkDTO](t, rec)
	require.Len(t, net.Downline, 7)
	assert.Equal(t, "g7", net.Downline[6].Affiliate.ID)
	assert.Equal(t, 7, net.Downline[6].Depth)

	rec = ts.do(t, http.MethodGet, "/api/affiliates/ghost/network", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PAYOUTS
// =============================================================================

func TestPayTeamBonus_Flow(t *testing.T) {
	ts := newTestServer(t)
	ts.seedDocumentedExample(t)

	// WHEN: Paying Mateo's team bonus
	rec := ts.do(t, http.MethodPost, "/api/affiliates/mateo/payouts/team", PayoutRequest{Date: payday})

	// THEN: $200 is recorded
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payout := decode[PayoutDTO](t, rec)
	assert.True(t, payout.Paid)
	require.NotNil(t, payout.Transaction)
	assert.InDelta(t, 200, payout.Transaction.Amount, 1e-9)
	assert.Equal(t, payday, payout.Transaction.EffectiveAt)
	assert.Equal(t, string(compensation.KindTeamBonus), payout.Transaction.Kind)

	// AND: Paying again for the same day and reference conflicts
	rec = ts.do(t, http.MethodPost, "/api/affiliates/mateo/payouts/team", PayoutRequest{Date: payday})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate", decode[ErrorResponse](t, rec).Code)

	// AND: A new reference finds the remaining $520 of headroom
	rec = ts.do(t, http.MethodPost, "/api/affiliates/mateo/payouts/team", PayoutRequest{Date: payday, Reference: "bonus-run"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.InDelta(t, 200, decode[PayoutDTO](t, rec).Transaction.Amount, 1e-9)

	// AND: Elite pays Sofía 4% of Mateo's $400
	rec = ts.do(t, http.MethodPost, "/api/affiliates/sofia/payouts/elite", PayoutRequest{Date: payday})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.InDelta(t, 16, decode[PayoutDTO](t, rec).Transaction.Amount, 1e-9)
}

func TestPayTeamBonus_Errors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.handler.Store.SaveAffiliate(ctx, affiliate("idle", "Idle", "", compensation.TierMaster, 2, 3000, 2000)))

	rec := ts.do(t, http.MethodPost, "/api/affiliates/ghost/payouts/team", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/affiliates/idle/payouts/team", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "inactive_membership", decode[ErrorResponse](t, rec).Code)

	rec = ts.do(t, http.MethodPost, "/api/affiliates/idle/payouts/team", PayoutRequest{Date: "10/03/2025"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayouts_HistoryAndReversal(t *testing.T) {
	ts := newTestServer(t)
	ts.seedDocumentedExample(t)

	rec := ts.do(t, http.MethodPost, "/api/affiliates/mateo/payouts/team", PayoutRequest{Date: payday})
	require.Equal(t, http.StatusCreated, rec.Code)
	txID := decode[PayoutDTO](t, rec).Transaction.ID

	// WHEN: Reversing the payout
	rec = ts.do(t, http.MethodDelete, "/api/payouts/"+txID+"?reason=wrong+volume&actor=ops", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reversal := decode[ReversalDTO](t, rec)
	assert.Equal(t, "reversed", reversal.Status)
	assert.Equal(t, payday, reversal.Date)
	assert.InDelta(t, 200, reversal.Amount, 1e-9)

	// THEN: History shows both and nets to zero
	rec = ts.do(t, http.MethodGet, "/api/affiliates/mateo/payouts?from="+payday+"&to="+payday, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[PayoutHistoryDTO](t, rec)
	assert.Len(t, history.Transactions, 2)
	assert.InDelta(t, 0, history.Totals[string(compensation.KindTeamBonus)], 1e-9)

	// AND: A second reversal conflicts, an unknown one is not found
	rec = ts.do(t, http.MethodDelete, "/api/payouts/"+txID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/payouts/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/affiliates/mateo/payouts?from=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRecentPayouts(t *testing.T) {
	ts := newTestServer(t)
	ts.seedDocumentedExample(t)

	for _, id := range []string{"mateo", "sofia"} {
		rec := ts.do(t, http.MethodPost, "/api/affiliates/"+id+"/payouts/team", PayoutRequest{Date: payday})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// WHEN: Asking for the single newest entry
	rec := ts.do(t, http.MethodGet, "/api/payouts?limit=1", nil)

	// THEN: Sofía's payout, written last, comes back
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	recent := decode[[]TransactionDTO](t, rec)
	require.Len(t, recent, 1)
	assert.Equal(t, "sofia", recent[0].AffiliateID)

	rec = ts.do(t, http.MethodGet, "/api/payouts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]TransactionDTO](t, rec), 2)

	for _, bad := range []string{"0", "-3", "many"} {
		rec = ts.do(t, http.MethodGet, "/api/payouts?limit="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestTriggerPayouts(t *testing.T) {
	ts := newTestServer(t)
	ts.seedDocumentedExample(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/payouts/run", PayoutRequest{Date: payday})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Sofía $64 + Mateo $200 team, Sofía $8 elite, Mateo has no downline
	summary := decode[PayoutRunSummary](t, rec)
	assert.Equal(t, payday, summary.Date)
	assert.Equal(t, 2, summary.TeamPaid)
	assert.Equal(t, 1, summary.ElitePaid)
	assert.Equal(t, 1, summary.Skipped)
	assert.InDelta(t, 272, summary.TotalPaid, 1e-9)

	// Running the same day again pays nothing new
	rec = ts.do(t, http.MethodPost, "/api/admin/payouts/run", PayoutRequest{Date: payday})
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[PayoutRunSummary](t, rec)
	assert.Zero(t, again.TeamPaid)
	assert.Zero(t, again.ElitePaid)
	assert.Equal(t, 3, again.AlreadyPaid)
}

func TestPayoutScheduler_RunOnce(t *testing.T) {
	ts := newTestServer(t)
	ts.seedDocumentedExample(t)

	ps := NewPayoutScheduler(ts.handler)
	ps.Now = func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }

	summary := ps.RunOnce(context.Background())
	assert.Equal(t, payday, summary.Date)
	assert.Equal(t, 2, summary.TeamPaid)

	day, err := generic.ParseDate(payday)
	require.NoError(t, err)
	total, err := ts.handler.Ledger.DailyTotal(context.Background(), "mateo", compensation.KindTeamBonus, day, compensation.UnitUSD)
	require.NoError(t, err)
	assert.Equal(t, "200.00 usd", total.String())
}

func TestPayoutScheduler_Restart(t *testing.T) {
	// GIVEN: A scheduler with a long interval so only the start-up run fires
	ts := newTestServer(t)
	ps := NewPayoutScheduler(ts.handler)
	ps.CheckInterval = time.Hour

	// WHEN: Starting twice, stopping, then starting and stopping again
	ps.Start()
	ps.Start()
	assert.True(t, ps.Running())
	ps.Stop()
	assert.False(t, ps.Running())

	// THEN: The second cycle neither panics nor leaves the scheduler running
	assert.NotPanics(t, func() {
		ps.Start()
		assert.True(t, ps.Running())
		ps.Stop()
		ps.Stop()
	})
	assert.False(t, ps.Running())
}

func TestPayoutScheduler_DisabledDoesNotStart(t *testing.T) {
	ts := newTestServer(t)
	ps := NewPayoutScheduler(ts.handler)
	ps.Enabled = false

	ps.Start()
	assert.False(t, ps.Running())
	ps.Stop()
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_LoadAndReset(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/scenarios/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ScenarioDTO](t, rec)
	assert.Len(t, list, len(scenarios))

	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "inactive-sponsor"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inactive-sponsor", decode[ScenarioDTO](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/api/affiliates/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AffiliateDTO](t, rec), 4)

	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/affiliates/", nil)
	assert.Empty(t, decode[[]AffiliateDTO](t, rec))
}
