package compensation

import (
	"iter"
	"sort"

	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// NETWORK - Sponsor tree
// =============================================================================

// Network indexes affiliates by sponsor. Affiliates whose sponsor is not in
// the set are treated as roots.
type Network struct {
	affiliates map[generic.AffiliateID]Affiliate
	children   map[generic.AffiliateID][]generic.AffiliateID
}

// DownlineEntry is an affiliate and its generation relative to the root.
type DownlineEntry struct {
	Affiliate Affiliate
	Depth     int
}

func NewNetwork(affiliates []Affiliate) *Network {
	n := &Network{
		affiliates: make(map[generic.AffiliateID]Affiliate, len(affiliates)),
		children:   make(map[generic.AffiliateID][]generic.AffiliateID),
	}
	for _, a := range affiliates {
		n.affiliates[a.ID] = a
	}
	for _, a := range affiliates {
		if a.SponsorID == "" || a.SponsorID == a.ID {
			continue
		}
		if _, ok := n.affiliates[a.SponsorID]; !ok {
			continue
		}
		n.children[a.SponsorID] = append(n.children[a.SponsorID], a.ID)
	}
	for id := range n.children {
		sort.Slice(n.children[id], func(i, j int) bool { return n.children[id][i] < n.children[id][j] })
	}
	return n
}

func (n *Network) Get(id generic.AffiliateID) (Affiliate, bool) {
	a, ok := n.affiliates[id]
	return a, ok
}

// Walk yields the downline of root breadth-first, generation by generation,
// down to maxDepth (0 means unlimited). Each affiliate is yielded once even
// if the sponsor data contains a cycle.
func (n *Network) Walk(root generic.AffiliateID, maxDepth int) iter.Seq[DownlineEntry] {
	return func(yield func(DownlineEntry) bool) {
		visited := map[generic.AffiliateID]bool{root: true}
		frontier := []generic.AffiliateID{root}
		for depth := 1; len(frontier) > 0 && (maxDepth == 0 || depth <= maxDepth); depth++ {
			var next []generic.AffiliateID
			for _, parent := range frontier {
				for _, child := range n.children[parent] {
					if visited[child] {
						continue
					}
					visited[child] = true
					if !yield(DownlineEntry{Affiliate: n.affiliates[child], Depth: depth}) {
						return
					}
					next = append(next, child)
				}
			}
			frontier = next
		}
	}
}

// Downline collects Walk into a slice.
func (n *Network) Downline(root generic.AffiliateID, maxDepth int) ([]DownlineEntry, error) {
	if _, ok := n.affiliates[root]; !ok {
		return nil, &generic.AffiliateNotFoundError{AffiliateID: root}
	}
	var out []DownlineEntry
	for e := range n.Walk(root, maxDepth) {
		out = append(out, e)
	}
	return out, nil
}

// Earnings lazily yields the gross daily team bonus of each downline
// affiliate, computed with nothing paid yet today. Inactive affiliates or
// unusable data contribute zero.
func (n *Network) Earnings(p Plan, root generic.AffiliateID, maxDepth int) iter.Seq[GenerationEarning] {
	return func(yield func(GenerationEarning) bool) {
		zero := generic.NewAmount(0, UnitUSD)
		for e := range n.Walk(root, maxDepth) {
			earned := zero
			res, err := p.TeamBonus(e.Affiliate.TeamBonusInput(p, zero))
			if err == nil {
				earned = res.Amount
			}
			if !yield(GenerationEarning{Depth: e.Depth, TeamBonus: earned}) {
				return
			}
		}
	}
}

// EliteBonusFor projects the elite bonus of an affiliate from the gross team
// bonus of its downline.
func (n *Network) EliteBonusFor(p Plan, id generic.AffiliateID) (EliteBonusResult, error) {
	a, ok := n.affiliates[id]
	if !ok {
		return EliteBonusResult{}, &generic.AffiliateNotFoundError{AffiliateID: id}
	}
	rule, err := p.Rule(a.Tier)
	if err != nil {
		return EliteBonusResult{}, err
	}
	return p.EliteBonus(a.Tier, a.Active(p), n.Earnings(p, id, rule.EliteDepth))
}
