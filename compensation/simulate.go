package compensation

import (
	"errors"
	"fmt"
	"iter"

	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// SIMULATOR - What-if projections for a single affiliate
// =============================================================================

const (
	// MaxSimulatedGenerations bounds the synthetic downline.
	MaxSimulatedGenerations = 6

	DefaultFirstGeneration = 5
	DefaultOtherGeneration = 3
)

// DownlineProfile describes one synthetic generation: how many affiliates
// it has and the team bonus each of them earns.
type DownlineProfile struct {
	Affiliates            int
	TeamBonusPerAffiliate generic.Amount
}

// DefaultDownline builds a profile with 5 affiliates in the first generation
// and 3 in every later one, all earning the same amount.
func DefaultDownline(generations int, perAffiliate generic.Amount) []DownlineProfile {
	if generations < 0 {
		generations = 0
	}
	out := make([]DownlineProfile, generations)
	for i := range out {
		count := DefaultOtherGeneration
		if i == 0 {
			count = DefaultFirstGeneration
		}
		out[i] = DownlineProfile{Affiliates: count, TeamBonusPerAffiliate: perAffiliate}
	}
	return out
}

// SimulationInput is one what-if scenario.
type SimulationInput struct {
	Tier         Tier
	PublicLegBV  generic.Amount
	PrivateLegBV generic.Amount
	MonthlyBV    generic.Amount
	Downline     []DownlineProfile
}

// SimulationResult reports both bonuses. Activity and eligibility problems
// do not fail the simulation; they zero the affected bonus and are noted.
type SimulationResult struct {
	Active        bool
	EliteEligible bool
	Team          TeamBonusResult
	Elite         EliteBonusResult
	Total         generic.Amount
	Notes         []string
	Tree          []TreeNode
}

// TreeNode is one node of the synthetic network.
type TreeNode struct {
	ID         string
	Parent     string
	Generation int
}

const RootNodeID = "root"

// Simulate runs both calculators against a synthetic downline.
func (p Plan) Simulate(in SimulationInput) (SimulationResult, error) {
	if len(in.Downline) > MaxSimulatedGenerations {
		return SimulationResult{}, fmt.Errorf("%w: %d generations requested, at most %d", ErrInvalidSimulation, len(in.Downline), MaxSimulatedGenerations)
	}
	for i, g := range in.Downline {
		if g.Affiliates < 0 {
			return SimulationResult{}, fmt.Errorf("%w: generation %d has a negative affiliate count", ErrInvalidSimulation, i+1)
		}
		if err := requireNonNegative(fmt.Sprintf("generation %d team bonus", i+1), g.TeamBonusPerAffiliate); err != nil {
			return SimulationResult{}, err
		}
	}
	if err := requireNonNegative("monthly BV", in.MonthlyBV); err != nil {
		return SimulationResult{}, err
	}

	res := SimulationResult{Active: p.IsActive(in.MonthlyBV)}

	team, err := p.TeamBonus(TeamBonusInput{
		Tier:         in.Tier,
		PublicLegBV:  in.PublicLegBV,
		PrivateLegBV: in.PrivateLegBV,
		MonthlyBV:    in.MonthlyBV,
		Active:       res.Active,
	})
	switch {
	case errors.Is(err, ErrInactiveMembership):
		res.Notes = append(res.Notes, err.Error())
	case err != nil:
		return SimulationResult{}, err
	}
	res.Team = team

	elite, err := p.EliteBonus(in.Tier, res.Active, profileEarnings(in.Downline))
	switch {
	case errors.Is(err, ErrIneligibleTier):
		res.Notes = append(res.Notes, err.Error())
	case err != nil:
		return SimulationResult{}, err
	default:
		res.EliteEligible = true
	}
	res.Elite = elite

	res.Total = res.Team.Amount.Add(res.Elite.Total)
	res.Tree = BuildTree(in.Downline)
	return res, nil
}

// profileEarnings expands each generation into one earning per affiliate.
func profileEarnings(profile []DownlineProfile) iter.Seq[GenerationEarning] {
	return func(yield func(GenerationEarning) bool) {
		for i, g := range profile {
			for range g.Affiliates {
				if !yield(GenerationEarning{Depth: i + 1, TeamBonus: g.TeamBonusPerAffiliate}) {
					return
				}
			}
		}
	}
}

// BuildTree lays out the synthetic network. Affiliate j of a generation
// hangs under affiliate (j mod previous count) of the generation above, so
// every sponsor gets a share. A generation with no affiliates ends the tree.
func BuildTree(profile []DownlineProfile) []TreeNode {
	nodes := []TreeNode{{ID: RootNodeID}}
	prevCount := 1
	for gen, g := range profile {
		if g.Affiliates == 0 {
			break
		}
		for j := range g.Affiliates {
			parent := RootNodeID
			if gen > 0 {
				parent = nodeID(gen, j%prevCount+1)
			}
			nodes = append(nodes, TreeNode{ID: nodeID(gen+1, j+1), Parent: parent, Generation: gen + 1})
		}
		prevCount = g.Affiliates
	}
	return nodes
}

func nodeID(generation, n int) string {
	return fmt.Sprintf("G%d-%d", generation, n)
}
