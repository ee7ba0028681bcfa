/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the compensation model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Plan:        TierDTO, PlanDTO (wraps factory.PlanJSON)
  Calculators: TeamBonusRequest/DTO, EliteBonusRequest/DTO
  Simulator:   SimulationRequest, SimulationDTO
  Affiliates:  AffiliateDTO, CreateAffiliateRequest, NetworkDTO
  Payouts:     PayoutRequest, PayoutDTO, TransactionDTO, PayoutHistoryDTO
  Scenarios:   ScenarioDTO, LoadScenarioRequest

AMOUNTS:
  Volumes (BV) and money (USD) travel as JSON numbers. All arithmetic
  happens on decimals; floats exist only at this boundary.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/plan.go: PlanJSON type
*/
package api

import (
	"time"

	"github.com/warp/bonus-engine/compensation"
	"github.com/warp/bonus-engine/factory"
	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// PLAN
// =============================================================================

// TierDTO is one row of the tier table.
type TierDTO struct {
	Tier             string  `json:"tier"`
	Name             string  `json:"name"`
	Rate             float64 `json:"rate"`
	DailyCap         float64 `json:"daily_cap"`
	EliteGenerations int     `json:"elite_generations"`
	EliteEligible    bool    `json:"elite_eligible"`
}

// PlanDTO is the active plan.
type PlanDTO struct {
	Config    factory.PlanJSON `json:"config"`
	Version   int              `json:"version,omitempty"`
	UpdatedAt string           `json:"updated_at,omitempty"`
}

// PlanPresetDTO is a named plan that can be applied in one call.
type PlanPresetDTO struct {
	Name   string           `json:"name"`
	Config factory.PlanJSON `json:"config"`
}

// =============================================================================
// CALCULATORS
// =============================================================================

// TeamBonusRequest asks for a team bonus calculation. Activity comes from
// Active when set, otherwise from MonthlyBV against the plan threshold.
type TeamBonusRequest struct {
	Tier         string   `json:"tier"`
	PublicLegBV  float64  `json:"public_leg_bv"`
	PrivateLegBV float64  `json:"private_leg_bv"`
	MonthlyBV    *float64 `json:"monthly_bv,omitempty"`
	Active       *bool    `json:"active,omitempty"`
	PaidToday    float64  `json:"paid_today"`
}

// TeamBonusDTO is a team bonus with its breakdown.
type TeamBonusDTO struct {
	Tier      string  `json:"tier"`
	WeakerLeg float64 `json:"weaker_leg_bv"`
	Rate      float64 `json:"rate"`
	Raw       float64 `json:"raw"`
	DailyCap  float64 `json:"daily_cap"`
	Remaining float64 `json:"remaining_cap"`
	Amount    float64 `json:"amount"`
	Capped    bool    `json:"capped"`
	Active    bool    `json:"active"`
	Reason    string  `json:"reason,omitempty"`
}

// GenerationEarningDTO is one downline team bonus at a depth.
type GenerationEarningDTO struct {
	Depth     int     `json:"depth"`
	TeamBonus float64 `json:"team_bonus"`
}

// EliteBonusRequest asks for an elite bonus calculation.
type EliteBonusRequest struct {
	Tier      string                 `json:"tier"`
	MonthlyBV *float64               `json:"monthly_bv,omitempty"`
	Active    *bool                  `json:"active,omitempty"`
	Earnings  []GenerationEarningDTO `json:"earnings"`
}

// EliteBonusDTO is an elite bonus with its per-generation split.
type EliteBonusDTO struct {
	Tier        string    `json:"tier"`
	Rate        float64   `json:"rate"`
	MaxDepth    int       `json:"max_depth"`
	Generations []float64 `json:"generations"`
	Total       float64   `json:"total"`
}

// =============================================================================
// SIMULATOR
// =============================================================================

// DownlineProfileDTO describes one synthetic generation.
type DownlineProfileDTO struct {
	Affiliates            int     `json:"affiliates"`
	TeamBonusPerAffiliate float64 `json:"team_bonus_per_affiliate"`
}

// SimulationRequest is a what-if scenario. When Downline is empty,
// Generations and TeamBonusPerAffiliate build the default 5-then-3 profile.
type SimulationRequest struct {
	Tier                  string               `json:"tier"`
	PublicLegBV           float64              `json:"public_leg_bv"`
	PrivateLegBV          float64              `json:"private_leg_bv"`
	MonthlyBV             float64              `json:"monthly_bv"`
	Downline              []DownlineProfileDTO `json:"downline,omitempty"`
	Generations           int                  `json:"generations,omitempty"`
	TeamBonusPerAffiliate float64              `json:"team_bonus_per_affiliate,omitempty"`
}

type TreeNodeDTO struct {
	ID         string `json:"id"`
	Parent     string `json:"parent,omitempty"`
	Generation int    `json:"generation"`
}

// SimulationDTO is the simulator result.
type SimulationDTO struct {
	Active        bool          `json:"active"`
	EliteEligible bool          `json:"elite_eligible"`
	Team          TeamBonusDTO  `json:"team"`
	Elite         EliteBonusDTO `json:"elite"`
	Total         float64       `json:"total"`
	Notes         []string      `json:"notes,omitempty"`
	Tree          []TreeNodeDTO `json:"tree"`
}

// =============================================================================
// AFFILIATES
// =============================================================================

// AffiliateDTO represents an affiliate in API responses.
type AffiliateDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	SponsorID    string  `json:"sponsor_id,omitempty"`
	Tier         string  `json:"tier"`
	TierName     string  `json:"tier_name"`
	MonthlyBV    float64 `json:"monthly_bv"`
	PublicLegBV  float64 `json:"public_leg_bv"`
	PrivateLegBV float64 `json:"private_leg_bv"`
	Active       bool    `json:"active"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// CreateAffiliateRequest creates or updates an affiliate. An empty ID gets
// a generated one.
type CreateAffiliateRequest struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	SponsorID    string  `json:"sponsor_id"`
	Tier         string  `json:"tier"`
	MonthlyBV    float64 `json:"monthly_bv"`
	PublicLegBV  float64 `json:"public_leg_bv"`
	PrivateLegBV float64 `json:"private_leg_bv"`
}

// DownlineEntryDTO is one downline affiliate and its generation.
type DownlineEntryDTO struct {
	Depth     int          `json:"depth"`
	Affiliate AffiliateDTO `json:"affiliate"`
}

// NetworkDTO is an affiliate's downline plus the elite bonus it projects.
type NetworkDTO struct {
	Root           AffiliateDTO       `json:"root"`
	Depth          int                `json:"depth"`
	Downline       []DownlineEntryDTO `json:"downline"`
	ProjectedElite *EliteBonusDTO     `json:"projected_elite,omitempty"`
}

// =============================================================================
// PAYOUTS
// =============================================================================

// PayoutRequest triggers a payout. Date defaults to today; Reference
// distinguishes several team bonus payouts on one day.
type PayoutRequest struct {
	Date      string `json:"date"`
	Reference string `json:"reference"`
	Actor     string `json:"actor"`
}

// PayoutDTO is the calculation plus the recorded transaction, if any.
type PayoutDTO struct {
	Paid        bool            `json:"paid"`
	Team        *TeamBonusDTO   `json:"team,omitempty"`
	Elite       *EliteBonusDTO  `json:"elite,omitempty"`
	Transaction *TransactionDTO `json:"transaction,omitempty"`
}

// TransactionDTO represents a ledger transaction.
type TransactionDTO struct {
	ID          string            `json:"id"`
	AffiliateID string            `json:"affiliate_id"`
	Kind        string            `json:"kind"`
	EffectiveAt string            `json:"effective_at"`
	Amount      float64           `json:"amount"`
	Unit        string            `json:"unit"`
	Type        string            `json:"type"`
	ReferenceID string            `json:"reference_id,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedBy   string            `json:"created_by,omitempty"`
	CreatedAt   string            `json:"created_at,omitempty"`
}

// PayoutHistoryDTO lists an affiliate's payouts with per-kind totals.
type PayoutHistoryDTO struct {
	AffiliateID  string             `json:"affiliate_id"`
	Transactions []TransactionDTO   `json:"transactions"`
	Totals       map[string]float64 `json:"totals"`
}

// ReversalDTO reports a reversed payout.
type ReversalDTO struct {
	Status        string  `json:"status"`
	TransactionID string  `json:"transaction_id"`
	ReversalID    string  `json:"reversal_id"`
	Date          string  `json:"date"`
	Amount        float64 `json:"amount"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo network.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Affiliates  int    `json:"affiliates"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toFloat(a generic.Amount) float64 {
	f, _ := a.Value.Float64()
	return f
}

func toTierDTO(r compensation.TierRule) TierDTO {
	rate, _ := r.Rate.Float64()
	return TierDTO{
		Tier:             string(r.Tier),
		Name:             r.Tier.DisplayName(),
		Rate:             rate,
		DailyCap:         toFloat(r.DailyCap),
		EliteGenerations: r.EliteDepth,
		EliteEligible:    r.EliteEligible(),
	}
}

func toTeamBonusDTO(res compensation.TeamBonusResult, active bool) TeamBonusDTO {
	rate, _ := res.Rate.Float64()
	return TeamBonusDTO{
		Tier:      string(res.Tier),
		WeakerLeg: toFloat(res.WeakerLeg),
		Rate:      rate,
		Raw:       toFloat(res.Raw),
		DailyCap:  toFloat(res.DailyCap),
		Remaining: toFloat(res.Remaining),
		Amount:    toFloat(res.Amount),
		Capped:    res.Capped,
		Active:    active,
	}
}

func toEliteBonusDTO(res compensation.EliteBonusResult) EliteBonusDTO {
	rate, _ := res.Rate.Float64()
	gens := make([]float64, len(res.Generations))
	for i, g := range res.Generations {
		gens[i] = toFloat(g)
	}
	return EliteBonusDTO{
		Tier:        string(res.Tier),
		Rate:        rate,
		MaxDepth:    res.MaxDepth,
		Generations: gens,
		Total:       toFloat(res.Total),
	}
}

func toTransactionDTO(tx generic.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          string(tx.ID),
		AffiliateID: string(tx.AffiliateID),
		Kind:        string(tx.Kind),
		EffectiveAt: tx.EffectiveAt.String(),
		Amount:      toFloat(tx.Delta),
		Unit:        string(tx.Delta.Unit),
		Type:        string(tx.Type),
		ReferenceID: tx.ReferenceID,
		Reason:      tx.Reason,
		Metadata:    tx.Metadata,
		CreatedBy:   tx.CreatedBy,
	}
	if !tx.CreatedAt.IsZero() {
		dto.CreatedAt = tx.CreatedAt.Time.Format(time.RFC3339)
	}
	return dto
}
