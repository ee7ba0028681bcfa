/*
scenarios.go - Demo network loaders for testing and demonstrations

PURPOSE:

	Provides pre-built networks that populate the database with realistic
	affiliates for testing and demos. Each scenario demonstrates one rule
	of the plan.

AVAILABLE SCENARIOS:

	documented-example: Master with 3000/2000 BV legs under a Senior sponsor
	master-network:     Master with the default 5-then-3 downline, 7 levels deep
	inactive-sponsor:   Senior below the activity threshold, Junior recruits
	daily-cap:          Legs large enough to hit every tier's daily cap

HOW SCENARIOS WORK:
 1. Reset database (clear affiliates and payouts)
 2. Create affiliates, sponsors first
 3. Optionally run today's payouts so the ledger has history

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "master-network"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Affiliate and payout handlers
  - compensation/simulate.go: BuildTree, used for master-network
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/compensation"
	"github.com/warp/bonus-engine/generic"
	"github.com/warp/bonus-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	build func() []sqlite.AffiliateRecord
	pay   bool
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "documented-example",
			Name:        "Documented Example",
			Description: "Master earning $200 on a 2000 BV weaker leg; the Senior sponsor earns $8 elite bonus",
		},
		build: documentedExample,
		pay:   true,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "master-network",
			Name:        "Master Network",
			Description: "Master with 5 first-generation and 3 later-generation affiliates; generation 7 is outside the elite window",
		},
		build: masterNetwork,
		pay:   true,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "inactive-sponsor",
			Name:        "Inactive Sponsor",
			Description: "Senior with 5 BV monthly volume earns neither bonus; Junior recruits earn team bonus only",
		},
		build: inactiveSponsor,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "daily-cap",
			Name:        "Daily Cap",
			Description: "One affiliate per tier with 10,000 BV legs, all paid at their daily cap",
		},
		build: dailyCap,
		pay:   true,
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
		dtos[i].Affiliates = len(s.build())
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s.ScenarioDTO)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var sc *scenario
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			sc = &scenarios[i]
		}
	}
	if sc == nil {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	summary, err := h.loadScenario(r.Context(), *sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	resp := map[string]any{"status": "loaded", "scenario": sc.ID}
	if summary != nil {
		resp["payouts"] = summary
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) loadScenario(ctx context.Context, sc scenario) (*PayoutRunSummary, error) {
	if err := h.Store.Reset(ctx); err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	for _, rec := range sc.build() {
		if err := h.Store.SaveAffiliate(ctx, rec); err != nil {
			return nil, fmt.Errorf("save %s: %w", rec.ID, err)
		}
	}

	var summary *PayoutRunSummary
	if sc.pay {
		s, err := h.RunDailyPayouts(ctx, generic.Today(), "scenario")
		if err != nil {
			return nil, err
		}
		summary = &s
	}

	h.mu.Lock()
	h.currentScenario = sc.ID
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", "scenario", sc.ID)
	return summary, nil
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func affiliate(id, name, sponsor string, tier compensation.Tier, monthly, public, private int64) sqlite.AffiliateRecord {
	return sqlite.AffiliateRecord{
		ID:           id,
		Name:         name,
		SponsorID:    sponsor,
		Tier:         string(tier),
		MonthlyBV:    decimal.NewFromInt(monthly),
		PublicLegBV:  decimal.NewFromInt(public),
		PrivateLegBV: decimal.NewFromInt(private),
	}
}

func documentedExample() []sqlite.AffiliateRecord {
	return []sqlite.AffiliateRecord{
		affiliate("sofia", "Sofía Ramírez", "", compensation.TierSenior, 120, 1000, 800),
		affiliate("mateo", "Mateo López", "sofia", compensation.TierMaster, 250, 3000, 2000),
	}
}

// masterNetwork lays the default downline out with BuildTree and adds one
// affiliate in generation 7.
func masterNetwork() []sqlite.AffiliateRecord {
	tiers := []compensation.Tier{compensation.TierJunior, compensation.TierSenior, compensation.TierPreJunior}

	out := []sqlite.AffiliateRecord{
		affiliate("valentina", "Valentina Torres", "", compensation.TierMaster, 500, 6000, 4500),
	}
	profile := compensation.DefaultDownline(compensation.MaxSimulatedGenerations, compensation.USD(0))
	last := ""
	for i, n := range compensation.BuildTree(profile) {
		if n.ID == compensation.RootNodeID {
			continue
		}
		parent := n.Parent
		if parent == compensation.RootNodeID {
			parent = "valentina"
		}
		weak := int64(400 + 100*(i%5))
		out = append(out, affiliate(n.ID, "Affiliate "+n.ID, parent, tiers[i%len(tiers)], 40, weak+250, weak))
		last = n.ID
	}
	out = append(out, affiliate("G7-1", "Affiliate G7-1", last, compensation.TierJunior, 40, 900, 900))
	return out
}

func inactiveSponsor() []sqlite.AffiliateRecord {
	return []sqlite.AffiliateRecord{
		affiliate("lucia", "Lucía Fernández", "", compensation.TierSenior, 5, 2500, 2000),
		affiliate("diego", "Diego Castro", "lucia", compensation.TierJunior, 30, 700, 900),
		affiliate("camila", "Camila Rojas", "lucia", compensation.TierJunior, 15, 1200, 1000),
		affiliate("tomas", "Tomás Vega", "diego", compensation.TierPreJunior, 10, 300, 450),
	}
}

func dailyCap() []sqlite.AffiliateRecord {
	out := make([]sqlite.AffiliateRecord, 0, len(compensation.Tiers()))
	for _, t := range compensation.Tiers() {
		out = append(out, affiliate("cap-"+string(t), t.DisplayName()+" at cap", "", t, 100, 10000, 10000))
	}
	return out
}
