package detect

import (
	"sort"
	"time"

	"github.com/adithya/forensiq/internal/txgraph"
)

// LegitimacyFilter classifies merchants, payroll sources and exchange
// platforms before rings are finalized, then strips them and their
// dependent counterparties from the detector output.
//
// Two tiers: legitimate accounts are removed from memberships and the
// suspect list; legitimate hubs additionally void any ring built around
// them.
type LegitimacyFilter struct {
	graph *txgraph.Graph
	loc   *time.Location

	accounts map[string]struct{}
	hubs     map[string]struct{}
}

// NewLegitimacyFilter classifies the whole graph eagerly so lookups are
// O(1) during filtering. A nil location defaults to UTC.
func NewLegitimacyFilter(g *txgraph.Graph, loc *time.Location) *LegitimacyFilter {
	if loc == nil {
		loc = time.UTC
	}
	f := &LegitimacyFilter{
		graph:    g,
		loc:      loc,
		accounts: make(map[string]struct{}),
		hubs:     make(map[string]struct{}),
	}
	f.classify()
	return f
}

func (f *LegitimacyFilter) classify() {
	for _, id := range f.graph.Accounts {
		switch {
		case f.isMerchant(id), f.isPayrollSource(id), f.isExchange(id):
			f.hubs[id] = struct{}{}
			f.accounts[id] = struct{}{}
		}
	}
	f.sweepCounterparties()
}

// IsLegitimateAccount reports whether the account was classified legitimate
// directly or via the counterparty sweep.
func (f *LegitimacyFilter) IsLegitimateAccount(id string) bool {
	_, ok := f.accounts[id]
	return ok
}

// IsLegitimateHub reports whether the account is a classified hub.
func (f *LegitimacyFilter) IsLegitimateHub(id string) bool {
	_, ok := f.hubs[id]
	return ok
}

// LegitimateAccounts returns the classified account ids in lexicographic
// order.
func (f *LegitimacyFilter) LegitimateAccounts() []string {
	out := make([]string, 0, len(f.accounts))
	for id := range f.accounts {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// isMerchant scores merchant-shaped nodes: many distinct payers, few
// payees, near-disjoint sets, then organic variance in amounts and timing.
func (f *LegitimacyFilter) isMerchant(id string) bool {
	st := f.graph.Stats[id]
	if st.UniqueSenders < 10 || st.UniqueReceivers > 5 {
		return false
	}
	senders := f.graph.UniqueSenderIDs(id)
	receivers := f.graph.UniqueReceiverIDs(id)
	if float64(overlapCount(senders, receivers))/float64(max(st.UniqueSenders, 1)) >= 0.2 {
		return false
	}

	in := f.graph.Reverse[id]
	amounts := edgeAmounts(in)
	times := sortedTimes(edgeTimes(in))
	window, _ := spanHours(times)

	points := 0.0
	if coefficientOfVariation(amounts) > 0.4 {
		points += 20
	}
	switch {
	case window > 168:
		points += 25
	case window > 72:
		points += 15
	}
	if hourFraction(times, f.loc, func(h int) bool { return h >= 8 && h <= 20 }) > 0.6 {
		points += 20
	}
	if deltas := interDeltas(times); len(deltas) > 0 && coefficientOfVariation(deltas) < 0.8 {
		points += 15
	}
	if window > 0 && st.TotalReceived/window < 500 {
		points += 10
	}
	return points >= 40
}

// isPayrollSource scores payroll-shaped nodes: one or few funders, a stable
// roster of payees receiving clustered amounts on a regular cadence.
func (f *LegitimacyFilter) isPayrollSource(id string) bool {
	st := f.graph.Stats[id]
	if st.UniqueReceivers < 10 || st.UniqueSenders > 5 || st.OutDegree < 10 {
		return false
	}
	senders := f.graph.UniqueSenderIDs(id)
	receivers := f.graph.UniqueReceiverIDs(id)
	if overlapCount(senders, receivers) != 0 {
		return false
	}

	out := f.graph.Forward[id]
	amounts := edgeAmounts(out)
	times := sortedTimes(edgeTimes(out))
	window, _ := spanHours(times)

	points := 0.0
	if largestAmountClusterFraction(amounts) > 0.3 {
		points += 20
	}
	nonZero := 0
	for _, a := range amounts {
		if hasNonZeroCents(a) {
			nonZero++
		}
	}
	if len(amounts) > 0 && float64(nonZero)/float64(len(amounts)) > 0.5 {
		points += 15
	}
	if repeatReceiverFraction(out) >= 0.4 {
		points += 15
	}
	if hasRegularInterval(interDeltas(times), 0.25) {
		points += 20
	}
	if hourFraction(times, f.loc, func(h int) bool { return h >= 8 && h <= 18 }) > 0.7 {
		points += 10
	}
	switch {
	case window > 168:
		points += 15
	case window > 72:
		points += 10
	}
	return points >= 40
}

// isExchange classifies high-degree pass-through platforms with mostly
// disjoint sender/receiver populations over a sustained window.
func (f *LegitimacyFilter) isExchange(id string) bool {
	st := f.graph.Stats[id]
	if st.UniqueSenders < 20 || st.UniqueReceivers < 20 {
		return false
	}
	senders := f.graph.UniqueSenderIDs(id)
	receivers := f.graph.UniqueReceiverIDs(id)
	denom := max(st.UniqueSenders, st.UniqueReceivers)
	if denom < 1 {
		denom = 1
	}
	if float64(overlapCount(senders, receivers))/float64(denom) >= 0.15 {
		return false
	}
	span, ok := spanHours(st.Timestamps)
	return ok && span > 48
}

// sweepCounterparties marks accounts that transact almost exclusively with
// a legitimate hub. Only hubs void rings; swept counterparties merely drop
// out of individual results.
func (f *LegitimacyFilter) sweepCounterparties() {
	hubs := make([]string, 0, len(f.hubs))
	for id := range f.hubs {
		hubs = append(hubs, id)
	}
	sort.Strings(hubs)

	for _, hub := range hubs {
		for _, n := range unionIDs(f.graph.UniqueSenderIDs(hub), f.graph.UniqueReceiverIDs(hub)) {
			st := f.graph.Stats[n]
			if st == nil || st.TxCount > 5 {
				continue
			}
			interactions := f.interactionCount(n, hub)
			if float64(interactions) > 0.5*float64(st.TxCount) || st.TxCount <= 3 {
				f.accounts[n] = struct{}{}
			}
		}
	}
}

func (f *LegitimacyFilter) interactionCount(id, hub string) int {
	n := 0
	for _, e := range f.graph.Forward[id] {
		if e.Counterparty == hub {
			n++
		}
	}
	for _, e := range f.graph.Reverse[id] {
		if e.Counterparty == hub {
			n++
		}
	}
	return n
}

// FilterRings removes legitimate members from each ring, discards rings
// that fall under three members, and voids any ring touching a legitimate
// hub.
func (f *LegitimacyFilter) FilterRings(rings []RawRing) []RawRing {
	var out []RawRing
	for _, ring := range rings {
		if (ring.HubIn != "" && f.IsLegitimateHub(ring.HubIn)) ||
			(ring.HubOut != "" && f.IsLegitimateHub(ring.HubOut)) {
			continue
		}
		touchesHub := false
		var members []string
		for _, m := range ring.Members {
			if f.IsLegitimateHub(m) {
				touchesHub = true
				break
			}
			if !f.IsLegitimateAccount(m) {
				members = append(members, m)
			}
		}
		if touchesHub || len(members) < 3 {
			continue
		}
		ring.Members = members
		out = append(out, ring)
	}
	return out
}

// largestAmountClusterFraction groups sorted amounts with 10% tolerance and
// returns the largest group's share.
func largestAmountClusterFraction(amounts []float64) float64 {
	if len(amounts) == 0 {
		return 0
	}
	sorted := append([]float64(nil), amounts...)
	sort.Float64s(sorted)

	best, size := 1, 1
	groupStart := sorted[0]
	for i := 1; i < len(sorted); i++ {
		if groupStart > 0 && sorted[i] <= groupStart*1.1 {
			size++
		} else {
			groupStart = sorted[i]
			size = 1
		}
		if size > best {
			best = size
		}
	}
	return float64(best) / float64(len(sorted))
}

// repeatReceiverFraction is the share of distinct receivers paid at least
// twice.
func repeatReceiverFraction(out []txgraph.Edge) float64 {
	counts := make(map[string]int)
	for _, e := range out {
		counts[e.Counterparty]++
	}
	if len(counts) == 0 {
		return 0
	}
	repeats := 0
	for _, c := range counts {
		if c >= 2 {
			repeats++
		}
	}
	return float64(repeats) / float64(len(counts))
}
