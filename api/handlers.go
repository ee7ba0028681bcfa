/*
handlers.go - HTTP API handlers for the bonus engine

PURPOSE:
  Exposes the compensation calculators, the affiliate roster and the payout
  ledger via REST API. Handles HTTP request/response, JSON serialization,
  and delegates to the compensation package.

ENDPOINTS:
  Plan:
    GET    /api/tiers                          Tier table of the active plan
    GET    /api/plan                           Active plan
    PUT    /api/plan                           Replace the active plan

  Calculators (pure, nothing is stored):
    POST   /api/bonus/team                     Team bonus for given legs
    POST   /api/bonus/elite                    Elite bonus for given earnings
    POST   /api/simulations                    What-if with a synthetic downline

  Affiliates:
    GET    /api/affiliates                     List affiliates
    POST   /api/affiliates                     Create or update an affiliate
    GET    /api/affiliates/{id}                Affiliate details
    DELETE /api/affiliates/{id}                Remove an affiliate
    GET    /api/affiliates/{id}/network        Downline and projected elite bonus

  Payouts:
    POST   /api/affiliates/{id}/payouts/team   Pay today's team bonus
    POST   /api/affiliates/{id}/payouts/elite  Pay today's elite bonus
    GET    /api/affiliates/{id}/payouts        Payout history
    DELETE /api/payouts/{id}                   Reverse a payout
    POST   /api/admin/payouts/run              Pay every affiliate's team bonus

  Scenarios:
    GET    /api/scenarios                      List demo networks
    POST   /api/scenarios/load                 Load a demo network

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - PlanFactory: JSON to Plan conversion
  - Ledger / Payouts: Append-only payout log and the service writing to it

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Affiliate or payout not found
  - 409: Conflict (idempotency, already reversed)
  - 422: Valid input the plan refuses (inactive, tier not eligible)
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo network loaders
  - scheduler.go: Daily payout run
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/bonus-engine/compensation"
	"github.com/warp/bonus-engine/factory"
	"github.com/warp/bonus-engine/generic"
	"github.com/warp/bonus-engine/store/sqlite"
)

// ActivePlanKey is the plans-table row holding the plan in force.
const ActivePlanKey = "active"

// DefaultActor is recorded as CreatedBy when a request names no actor.
const DefaultActor = "api"

// Page sizes for the recent payouts feed.
const (
	DefaultRecentPayouts = 50
	MaxRecentPayouts     = 500
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	PlanFactory *factory.PlanFactory
	Ledger      generic.Ledger
	Payouts     *compensation.PayoutService
	Logger      *slog.Logger

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler paying bonuses under plan.
func NewHandler(store *sqlite.Store, plan compensation.Plan, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ledger := generic.NewLedger(store)
	return &Handler{
		Store:       store,
		PlanFactory: factory.NewPlanFactory(),
		Ledger:      ledger,
		Payouts:     compensation.NewPayoutService(plan, store),
		Logger:      logger,
	}
}

// Plan returns the plan in force.
func (h *Handler) Plan() compensation.Plan {
	return h.Payouts.Plan()
}

// LoadPlan replaces the in-memory plan with the stored one, if any.
// Returns false when nothing is stored.
func (h *Handler) LoadPlan(ctx context.Context) (bool, error) {
	rec, err := h.Store.GetPlan(ctx, ActivePlanKey)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	plan, err := h.PlanFactory.ParsePlan(rec.ConfigJSON)
	if err != nil {
		return false, fmt.Errorf("stored plan: %w", err)
	}
	h.Payouts.SetPlan(*plan)
	return true, nil
}

// SetPlan persists plan as the active plan and starts paying with it.
func (h *Handler) SetPlan(ctx context.Context, plan compensation.Plan) error {
	configJSON, err := h.PlanFactory.Marshal(plan)
	if err != nil {
		return err
	}
	if err := h.Store.SavePlan(ctx, sqlite.PlanRecord{
		ID:         ActivePlanKey,
		Name:       plan.Name,
		ConfigJSON: configJSON,
	}); err != nil {
		return err
	}
	h.Payouts.SetPlan(plan)
	return nil
}

// SelectStartupPlan activates the plan file when given, otherwise the named
// preset, otherwise the stored plan. With none of them the current plan
// stays in force and is stored.
func (h *Handler) SelectStartupPlan(ctx context.Context, planFile, preset string) error {
	var (
		plan *compensation.Plan
		err  error
	)
	switch {
	case planFile != "":
		plan, err = h.PlanFactory.LoadPlanFile(planFile)
	case preset != "":
		plan, err = h.PlanFactory.Preset(preset)
	default:
		found, err := h.LoadPlan(ctx)
		if err != nil || found {
			return err
		}
		return h.SetPlan(ctx, h.Plan())
	}
	if err != nil {
		return err
	}
	return h.SetPlan(ctx, *plan)
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// ListTiers returns the tier table.
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	rules := h.Plan().Rules()
	dtos := make([]TierDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toTierDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPlan returns the active plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	dto := PlanDTO{Config: h.PlanFactory.ToJSON(h.Plan())}

	rec, err := h.Store.GetPlan(r.Context(), ActivePlanKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get plan", err)
		return
	}
	if rec != nil {
		dto.Version = rec.Version
		dto.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, dto)
}

// UpdatePlan replaces the active plan.
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var pj factory.PlanJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	plan, err := h.PlanFactory.FromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid plan", err)
		return
	}

	if err := h.SetPlan(r.Context(), *plan); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save plan", err)
		return
	}
	h.Logger.Info("plan updated", "plan_id", plan.ID, "name", plan.Name)

	h.GetPlan(w, r)
}

// ListPlanPresets returns the named plans ApplyPlanPreset accepts.
func (h *Handler) ListPlanPresets(w http.ResponseWriter, r *http.Request) {
	names := compensation.PresetNames()
	dtos := make([]PlanPresetDTO, 0, len(names))
	for _, name := range names {
		plan, err := h.PlanFactory.Preset(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Invalid preset", err)
			return
		}
		dtos = append(dtos, PlanPresetDTO{Name: name, Config: h.PlanFactory.ToJSON(*plan)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApplyPlanPreset makes a named preset the active plan.
func (h *Handler) ApplyPlanPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	plan, err := h.PlanFactory.Preset(name)
	if err != nil {
		if errors.Is(err, factory.ErrUnknownPreset) {
			writeError(w, http.StatusNotFound, "Preset not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Invalid preset", err)
		return
	}

	if err := h.SetPlan(r.Context(), *plan); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save plan", err)
		return
	}
	h.Logger.Info("plan preset applied", "preset", name, "plan_id", plan.ID)

	h.GetPlan(w, r)
}

// =============================================================================
// CALCULATOR HANDLERS
// =============================================================================

// CalculateTeamBonus runs the team bonus calculator. An inactive affiliate
// is not an HTTP error: the result is zero and carries the reason.
func (h *Handler) CalculateTeamBonus(w http.ResponseWriter, r *http.Request) {
	var req TeamBonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	plan := h.Plan()
	tier, err := compensation.ParseTier(req.Tier)
	if err != nil {
		writeDomainError(w, "Invalid tier", err)
		return
	}
	active, err := resolveActivity(plan, req.Active, req.MonthlyBV)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid activity", err)
		return
	}

	in := compensation.TeamBonusInput{
		Tier:         tier,
		PublicLegBV:  compensation.BV(req.PublicLegBV),
		PrivateLegBV: compensation.BV(req.PrivateLegBV),
		Active:       active,
		PaidToday:    compensation.USD(req.PaidToday),
	}
	if req.MonthlyBV != nil {
		in.MonthlyBV = compensation.BV(*req.MonthlyBV)
	}

	res, err := plan.TeamBonus(in)
	dto := toTeamBonusDTO(res, active)
	switch {
	case errors.Is(err, compensation.ErrInactiveMembership):
		dto.Reason = err.Error()
	case err != nil:
		writeDomainError(w, "Failed to calculate team bonus", err)
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// CalculateEliteBonus runs the elite bonus calculator over the given
// downline earnings.
func (h *Handler) CalculateEliteBonus(w http.ResponseWriter, r *http.Request) {
	var req EliteBonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	plan := h.Plan()
	tier, err := compensation.ParseTier(req.Tier)
	if err != nil {
		writeDomainError(w, "Invalid tier", err)
		return
	}
	active, err := resolveActivity(plan, req.Active, req.MonthlyBV)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid activity", err)
		return
	}

	earnings := make([]compensation.GenerationEarning, len(req.Earnings))
	for i, e := range req.Earnings {
		earnings[i] = compensation.GenerationEarning{Depth: e.Depth, TeamBonus: compensation.USD(e.TeamBonus)}
	}

	res, err := plan.EliteBonus(tier, active, slices.Values(earnings))
	if err != nil {
		writeDomainError(w, "Failed to calculate elite bonus", err)
		return
	}

	writeJSON(w, http.StatusOK, toEliteBonusDTO(res))
}

// Simulate runs both calculators against a synthetic downline.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tier, err := compensation.ParseTier(req.Tier)
	if err != nil {
		writeDomainError(w, "Invalid tier", err)
		return
	}

	in := compensation.SimulationInput{
		Tier:         tier,
		PublicLegBV:  compensation.BV(req.PublicLegBV),
		PrivateLegBV: compensation.BV(req.PrivateLegBV),
		MonthlyBV:    compensation.BV(req.MonthlyBV),
	}
	if len(req.Downline) > 0 {
		for _, g := range req.Downline {
			in.Downline = append(in.Downline, compensation.DownlineProfile{
				Affiliates:            g.Affiliates,
				TeamBonusPerAffiliate: compensation.USD(g.TeamBonusPerAffiliate),
			})
		}
	} else {
		if req.Generations < 0 || req.Generations > compensation.MaxSimulatedGenerations {
			writeError(w, http.StatusBadRequest, "Invalid simulation",
				fmt.Errorf("generations must be between 0 and %d", compensation.MaxSimulatedGenerations))
			return
		}
		in.Downline = compensation.DefaultDownline(req.Generations, compensation.USD(req.TeamBonusPerAffiliate))
	}

	res, err := h.Plan().Simulate(in)
	if err != nil {
		writeDomainError(w, "Failed to run simulation", err)
		return
	}

	dto := SimulationDTO{
		Active:        res.Active,
		EliteEligible: res.EliteEligible,
		Team:          toTeamBonusDTO(res.Team, res.Active),
		Elite:         toEliteBonusDTO(res.Elite),
		Total:         toFloat(res.Total),
		Notes:         res.Notes,
		Tree:          make([]TreeNodeDTO, len(res.Tree)),
	}
	for i, n := range res.Tree {
		dto.Tree[i] = TreeNodeDTO{ID: n.ID, Parent: n.Parent, Generation: n.Generation}
	}

	writeJSON(w, http.StatusOK, dto)
}

// resolveActivity prefers an explicit flag over monthly volume.
func resolveActivity(plan compensation.Plan, active *bool, monthlyBV *float64) (bool, error) {
	switch {
	case active != nil:
		return *active, nil
	case monthlyBV != nil:
		if *monthlyBV < 0 {
			return false, &compensation.NegativeVolumeError{Field: "monthly BV", Value: compensation.BV(*monthlyBV)}
		}
		return plan.IsActive(compensation.BV(*monthlyBV)), nil
	default:
		return false, errors.New("one of active or monthly_bv is required")
	}
}

// =============================================================================
// AFFILIATE HANDLERS
// =============================================================================

// ListAffiliates returns all affiliates.
func (h *Handler) ListAffiliates(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListAffiliates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list affiliates", err)
		return
	}

	plan := h.Plan()
	dtos := make([]AffiliateDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAffiliateDTO(rec, plan)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetAffiliate returns a single affiliate.
func (h *Handler) GetAffiliate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.Store.GetAffiliate(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get affiliate", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Affiliate not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toAffiliateDTO(*rec, h.Plan()))
}

// CreateAffiliate creates or updates an affiliate.
func (h *Handler) CreateAffiliate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAffiliateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	tier, err := compensation.ParseTier(req.Tier)
	if err != nil {
		writeDomainError(w, "Invalid tier", err)
		return
	}
	for field, v := range map[string]float64{
		"monthly BV":     req.MonthlyBV,
		"public leg BV":  req.PublicLegBV,
		"private leg BV": req.PrivateLegBV,
	} {
		if v < 0 {
			writeDomainError(w, "Invalid volume", &compensation.NegativeVolumeError{Field: field, Value: compensation.BV(v)})
			return
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.SponsorID == req.ID {
		writeError(w, http.StatusBadRequest, "An affiliate cannot sponsor itself", nil)
		return
	}
	if req.SponsorID != "" {
		sponsor, err := h.Store.GetAffiliate(ctx, req.SponsorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get sponsor", err)
			return
		}
		if sponsor == nil {
			writeError(w, http.StatusBadRequest, "Sponsor not found", &generic.AffiliateNotFoundError{AffiliateID: generic.AffiliateID(req.SponsorID)})
			return
		}
	}

	rec := sqlite.AffiliateRecord{
		ID:           req.ID,
		Name:         req.Name,
		SponsorID:    req.SponsorID,
		Tier:         string(tier),
		MonthlyBV:    compensation.BV(req.MonthlyBV).Value,
		PublicLegBV:  compensation.BV(req.PublicLegBV).Value,
		PrivateLegBV: compensation.BV(req.PrivateLegBV).Value,
	}
	if err := h.Store.SaveAffiliate(ctx, rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save affiliate", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAffiliateDTO(rec, h.Plan()))
}

// DeleteAffiliate removes an affiliate. Payout history is kept.
func (h *Handler) DeleteAffiliate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteAffiliate(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete affiliate", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

// GetNetwork returns an affiliate's downline. depth defaults to the
// affiliate's elite depth, or the plan's deepest when the tier has none.
func (h *Handler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plan := h.Plan()

	root, ok := h.rootAffiliate(w, r)
	if !ok {
		return
	}
	id := root.ID
	rule, err := plan.Rule(root.Tier)
	if err != nil {
		writeDomainError(w, "Invalid tier", err)
		return
	}

	depth := rule.EliteDepth
	if depth == 0 {
		depth = plan.MaxEliteDepth()
	}
	if s := r.URL.Query().Get("depth"); s != "" {
		depth, err = strconv.Atoi(s)
		if err != nil || depth < 0 {
			writeError(w, http.StatusBadRequest, "Invalid depth (non-negative integer, 0 = unlimited)", err)
			return
		}
	}

	// The elite projection needs the full elite depth even when less is shown.
	load := depth
	if load != 0 && load < rule.EliteDepth {
		load = rule.EliteDepth
	}
	net, err := h.loadDownline(ctx, root, load)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load network", err)
		return
	}

	downline, err := net.Downline(id, depth)
	if err != nil {
		writeDomainError(w, "Failed to walk downline", err)
		return
	}

	dto := NetworkDTO{
		Root:     affiliateToDTO(root, plan),
		Depth:    depth,
		Downline: make([]DownlineEntryDTO, len(downline)),
	}
	for i, e := range downline {
		dto.Downline[i] = DownlineEntryDTO{Depth: e.Depth, Affiliate: affiliateToDTO(e.Affiliate, plan)}
	}
	if rule.EliteEligible() {
		elite, err := net.EliteBonusFor(plan, id)
		if err != nil {
			writeDomainError(w, "Failed to project elite bonus", err)
			return
		}
		eliteDTO := toEliteBonusDTO(elite)
		dto.ProjectedElite = &eliteDTO
	}

	writeJSON(w, http.StatusOK, dto)
}

// rootAffiliate loads the affiliate named by the {id} URL parameter and
// writes the error response when it cannot.
func (h *Handler) rootAffiliate(w http.ResponseWriter, r *http.Request) (compensation.Affiliate, bool) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.GetAffiliate(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get affiliate", err)
		return compensation.Affiliate{}, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Affiliate not found", &generic.AffiliateNotFoundError{AffiliateID: generic.AffiliateID(id)})
		return compensation.Affiliate{}, false
	}
	a, err := recordToAffiliate(*rec)
	if err != nil {
		writeDomainError(w, "Invalid affiliate", err)
		return compensation.Affiliate{}, false
	}
	return a, true
}

// loadDownline builds the sponsor tree under root one generation per query,
// down to depth generations (0 = unlimited). A recruit with an unknown tier
// is skipped together with everything below it.
func (h *Handler) loadDownline(ctx context.Context, root compensation.Affiliate, depth int) (*compensation.Network, error) {
	affiliates := []compensation.Affiliate{root}
	seen := map[generic.AffiliateID]bool{root.ID: true}
	frontier := []generic.AffiliateID{root.ID}

	for level := 1; len(frontier) > 0 && (depth == 0 || level <= depth); level++ {
		var next []generic.AffiliateID
		for _, sponsor := range frontier {
			recruits, err := h.Store.ListDirectRecruits(ctx, string(sponsor))
			if err != nil {
				return nil, err
			}
			for _, rec := range recruits {
				a, err := recordToAffiliate(rec)
				if err != nil {
					h.Logger.Warn("skipping affiliate", "affiliate_id", rec.ID, "error", err)
					continue
				}
				if seen[a.ID] {
					continue
				}
				seen[a.ID] = true
				affiliates = append(affiliates, a)
				next = append(next, a.ID)
			}
		}
		frontier = next
	}
	return compensation.NewNetwork(affiliates), nil
}

// loadNetwork builds the sponsor tree from every stored affiliate, for runs
// that visit the whole network. Records with an unknown tier are skipped.
func (h *Handler) loadNetwork(ctx context.Context) (*compensation.Network, error) {
	records, err := h.Store.ListAffiliates(ctx)
	if err != nil {
		return nil, err
	}
	affiliates := make([]compensation.Affiliate, 0, len(records))
	for _, rec := range records {
		a, err := recordToAffiliate(rec)
		if err != nil {
			h.Logger.Warn("skipping affiliate", "affiliate_id", rec.ID, "error", err)
			continue
		}
		affiliates = append(affiliates, a)
	}
	return compensation.NewNetwork(affiliates), nil
}

// =============================================================================
// PAYOUT HANDLERS
// =============================================================================

// PayTeamBonus pays the affiliate's team bonus for a day.
func (h *Handler) PayTeamBonus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, day, ok := decodePayoutRequest(w, r)
	if !ok {
		return
	}
	a, ok := h.rootAffiliate(w, r)
	if !ok {
		return
	}

	payout, err := h.Payouts.PayTeamBonus(ctx, a, day, req.Reference, req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to pay team bonus", err)
		return
	}

	team := toTeamBonusDTO(payout.Result, true)
	dto := PayoutDTO{Team: &team}
	status := http.StatusOK
	if payout.Transaction != nil {
		txDTO := toTransactionDTO(*payout.Transaction)
		dto.Paid = true
		dto.Transaction = &txDTO
		status = http.StatusCreated
		h.Logger.Info("team bonus paid",
			"affiliate_id", a.ID, "day", day.String(), "amount", payout.Transaction.Delta.String(), "capped", payout.Result.Capped)
	}

	writeJSON(w, status, dto)
}

// PayEliteBonus pays the affiliate's elite bonus for a day, from the team
// bonus its downline was paid that day.
func (h *Handler) PayEliteBonus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, day, ok := decodePayoutRequest(w, r)
	if !ok {
		return
	}
	root, ok := h.rootAffiliate(w, r)
	if !ok {
		return
	}
	id := root.ID

	// Only the generations the tier is paid on are loaded; an ineligible
	// tier needs no downline at all.
	net := compensation.NewNetwork([]compensation.Affiliate{root})
	if rule, err := h.Plan().Rule(root.Tier); err == nil && rule.EliteEligible() {
		net, err = h.loadDownline(ctx, root, rule.EliteDepth)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load network", err)
			return
		}
	}

	payout, err := h.Payouts.PayEliteBonus(ctx, net, id, day, req.Actor)
	if err != nil {
		writeDomainError(w, "Failed to pay elite bonus", err)
		return
	}

	elite := toEliteBonusDTO(payout.Result)
	dto := PayoutDTO{Elite: &elite}
	status := http.StatusOK
	if payout.Transaction != nil {
		txDTO := toTransactionDTO(*payout.Transaction)
		dto.Paid = true
		dto.Transaction = &txDTO
		status = http.StatusCreated
		h.Logger.Info("elite bonus paid",
			"affiliate_id", id, "day", day.String(), "amount", payout.Transaction.Delta.String())
	}

	writeJSON(w, status, dto)
}

// ListPayouts returns an affiliate's payout history, optionally limited to
// from/to (YYYY-MM-DD, inclusive).
func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.AffiliateID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	var (
		txs []generic.Transaction
		err error
	)
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, perr := parseRange(q.Get("from"), q.Get("to"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "Invalid date range", perr)
			return
		}
		txs, err = h.Ledger.TransactionsInRange(ctx, id, from, to)
	} else {
		txs, err = h.Ledger.Transactions(ctx, id)
	}
	if err != nil {
		writeDomainError(w, "Failed to get payouts", err)
		return
	}

	dto := PayoutHistoryDTO{
		AffiliateID:  string(id),
		Transactions: make([]TransactionDTO, len(txs)),
		Totals:       map[string]float64{},
	}
	totals := map[generic.Kind]generic.Amount{}
	for i, tx := range txs {
		dto.Transactions[i] = toTransactionDTO(tx)
		if t, ok := totals[tx.Kind]; ok {
			totals[tx.Kind] = t.Add(tx.Delta)
		} else {
			totals[tx.Kind] = tx.Delta
		}
	}
	for kind, total := range totals {
		dto.Totals[string(kind)] = toFloat(total)
	}

	writeJSON(w, http.StatusOK, dto)
}

// ListRecentPayouts returns the newest ledger entries across all
// affiliates, newest first. limit defaults to 50 and is capped at 500.
func (h *Handler) ListRecentPayouts(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRecentPayouts
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit (positive integer)", err)
			return
		}
		limit = min(n, MaxRecentPayouts)
	}

	txs, err := h.Store.RecentTransactions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payouts", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReversePayout reverses a payout by appending a negating transaction.
// The reversed amount frees the same share of that day's cap.
func (h *Handler) ReversePayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := generic.TransactionID(chi.URLParam(r, "id"))
	actor := r.URL.Query().Get("actor")
	if actor == "" {
		actor = DefaultActor
	}

	reversal, err := h.Ledger.Reverse(ctx, txID, r.URL.Query().Get("reason"), actor)
	if err != nil {
		writeDomainError(w, "Failed to reverse payout", err)
		return
	}
	h.Logger.Info("payout reversed", "transaction_id", txID, "reversal_id", reversal.ID)

	writeJSON(w, http.StatusOK, ReversalDTO{
		Status:        "reversed",
		TransactionID: string(txID),
		ReversalID:    string(reversal.ID),
		Date:          reversal.EffectiveAt.String(),
		Amount:        toFloat(reversal.Delta.Neg()),
	})
}

// TriggerPayouts runs the daily team bonus payout for every affiliate.
func (h *Handler) TriggerPayouts(w http.ResponseWriter, r *http.Request) {
	req, day, ok := decodePayoutRequest(w, r)
	if !ok {
		return
	}
	if req.Actor == "" || req.Actor == DefaultActor {
		req.Actor = "admin"
	}

	summary, err := h.RunDailyPayouts(r.Context(), day, req.Actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to run payouts", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ResetDatabase clears affiliates and payouts.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodePayoutRequest(w http.ResponseWriter, r *http.Request) (PayoutRequest, generic.TimePoint, bool) {
	var req PayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, generic.TimePoint{}, false
	}
	if req.Actor == "" {
		req.Actor = DefaultActor
	}

	day := generic.Today()
	if req.Date != "" {
		d, err := generic.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return req, generic.TimePoint{}, false
		}
		day = d
	}
	return req, day, true
}

func parseRange(fromStr, toStr string) (generic.TimePoint, generic.TimePoint, error) {
	from := generic.NewTimePoint(1970, time.January, 1)
	to := generic.Today()
	var err error
	if fromStr != "" {
		if from, err = generic.ParseDate(fromStr); err != nil {
			return from, to, err
		}
	}
	if toStr != "" {
		if to, err = generic.ParseDate(toStr); err != nil {
			return from, to, err
		}
	}
	return from, to, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func recordToAffiliate(rec sqlite.AffiliateRecord) (compensation.Affiliate, error) {
	tier, err := compensation.ParseTier(rec.Tier)
	if err != nil {
		return compensation.Affiliate{}, err
	}
	return compensation.Affiliate{
		ID:           generic.AffiliateID(rec.ID),
		Name:         rec.Name,
		SponsorID:    generic.AffiliateID(rec.SponsorID),
		Tier:         tier,
		MonthlyBV:    generic.NewAmountFromDecimal(rec.MonthlyBV, compensation.UnitBV),
		PublicLegBV:  generic.NewAmountFromDecimal(rec.PublicLegBV, compensation.UnitBV),
		PrivateLegBV: generic.NewAmountFromDecimal(rec.PrivateLegBV, compensation.UnitBV),
	}, nil
}

func toAffiliateDTO(rec sqlite.AffiliateRecord, plan compensation.Plan) AffiliateDTO {
	dto := AffiliateDTO{
		ID:        rec.ID,
		Name:      rec.Name,
		SponsorID: rec.SponsorID,
		Tier:      rec.Tier,
		TierName:  compensation.Tier(rec.Tier).DisplayName(),
	}
	dto.MonthlyBV, _ = rec.MonthlyBV.Float64()
	dto.PublicLegBV, _ = rec.PublicLegBV.Float64()
	dto.PrivateLegBV, _ = rec.PrivateLegBV.Float64()
	dto.Active = plan.IsActive(generic.NewAmountFromDecimal(rec.MonthlyBV, compensation.UnitBV))
	if !rec.CreatedAt.IsZero() {
		dto.CreatedAt = rec.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func affiliateToDTO(a compensation.Affiliate, plan compensation.Plan) AffiliateDTO {
	return AffiliateDTO{
		ID:           string(a.ID),
		Name:         a.Name,
		SponsorID:    string(a.SponsorID),
		Tier:         string(a.Tier),
		TierName:     a.Tier.DisplayName(),
		MonthlyBV:    toFloat(a.MonthlyBV),
		PublicLegBV:  toFloat(a.PublicLegBV),
		PrivateLegBV: toFloat(a.PrivateLegBV),
		Active:       a.Active(plan),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's category.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	resp := ErrorResponse{Error: message, Code: errorCode(err), Details: err.Error()}
	writeJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, compensation.ErrInactiveMembership),
		errors.Is(err, compensation.ErrIneligibleTier):
		return http.StatusUnprocessableEntity
	case compensation.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, compensation.ErrInactiveMembership):
		return "inactive_membership"
	case errors.Is(err, compensation.ErrIneligibleTier):
		return "ineligible_tier"
	case errors.Is(err, compensation.ErrUnknownTier):
		return "unknown_tier"
	case errors.Is(err, compensation.ErrNegativeVolume):
		return "negative_volume"
	case errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		return "duplicate"
	case errors.Is(err, generic.ErrAlreadyReversed):
		return "already_reversed"
	case errors.Is(err, generic.ErrNotReversible):
		return "not_reversible"
	case generic.IsNotFound(err):
		return "not_found"
	default:
		return ""
	}
}
