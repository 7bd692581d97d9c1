package detect

import (
	"strings"
	"time"

	"github.com/adithya/forensiq/internal/domain"
	"github.com/adithya/forensiq/internal/txgraph"
)

// ShellChain is a layered path whose interior accounts are all shells:
// accounts with at most ShellTxThreshold transactions and at least one
// transfer in and one out. Endpoints are never shells.
type ShellChain struct {
	Nodes         []string
	HopAmounts    []float64
	HopTimestamps []time.Time
	AmountPattern string
	Score         float64
}

// ShellDetector traces chains of ShellMinNodes to ShellMaxNodes accounts
// through the shell set, pruning on amount coherence: money never increases
// hop to hop and never drops by more than ShellMaxDrop.
type ShellDetector struct {
	graph  *txgraph.Graph
	shells map[string]struct{}

	chains []ShellChain
	seen   map[string]struct{}
}

// NewShellDetector precomputes the shell set for the graph.
func NewShellDetector(g *txgraph.Graph) *ShellDetector {
	shells := make(map[string]struct{})
	for _, id := range g.Accounts {
		st := g.Stats[id]
		if st.TxCount <= ShellTxThreshold && st.InDegree >= 1 && st.OutDegree >= 1 {
			shells[id] = struct{}{}
		}
	}
	return &ShellDetector{graph: g, shells: shells}
}

// Detect enumerates shell chains, deduplicated by their exact ordered
// account sequence.
func (d *ShellDetector) Detect() []ShellChain {
	d.chains = nil
	d.seen = make(map[string]struct{})

	for _, shell := range d.graph.Accounts {
		if _, ok := d.shells[shell]; !ok {
			continue
		}
		for _, in := range d.graph.Reverse[shell] {
			start := in.Counterparty
			if d.isShell(start) {
				continue
			}
			path := []string{start, shell}
			visited := map[string]struct{}{start: {}, shell: {}}
			d.extend(path, visited, []float64{in.Amount}, []time.Time{in.Timestamp})
		}
	}
	return d.chains
}

func (d *ShellDetector) isShell(id string) bool {
	_, ok := d.shells[id]
	return ok
}

func (d *ShellDetector) extend(path []string, visited map[string]struct{}, amounts []float64, times []time.Time) {
	current := path[len(path)-1]
	prevAmount := amounts[len(amounts)-1]

	for _, e := range d.graph.Forward[current] {
		next := e.Counterparty
		if _, onPath := visited[next]; onPath {
			continue
		}
		// Amount coherence: layered funds shrink, and never by more than
		// the drop bound.
		if e.Amount > prevAmount || prevAmount-e.Amount > ShellMaxDrop {
			continue
		}

		if !d.isShell(next) {
			if len(path)+1 >= ShellMinNodes {
				d.record(append(append([]string(nil), path...), next),
					append(append([]float64(nil), amounts...), e.Amount),
					append(append([]time.Time(nil), times...), e.Timestamp))
			}
			continue
		}

		// Leave room for a non-shell endpoint before the chain maxes out.
		if len(path)+1 >= ShellMaxNodes {
			continue
		}
		visited[next] = struct{}{}
		d.extend(append(path, next), visited, append(amounts, e.Amount), append(times, e.Timestamp))
		delete(visited, next)
	}
}

func (d *ShellDetector) record(nodes []string, amounts []float64, times []time.Time) {
	key := strings.Join(nodes, "->")
	if _, dup := d.seen[key]; dup {
		return
	}
	d.seen[key] = struct{}{}

	chain := ShellChain{
		Nodes:         nodes,
		HopAmounts:    amounts,
		HopTimestamps: times,
	}
	chain.AmountPattern = classifyAmountPattern(amounts)
	chain.Score = d.scoreChain(chain)
	d.chains = append(d.chains, chain)
}

// classifyAmountPattern inspects consecutive hop-amount ratios:
// all within 1% of unity is a pass-through, at least half in [0.80,0.99)
// is gradual decay, anything else is mixed.
func classifyAmountPattern(amounts []float64) string {
	if len(amounts) < 2 {
		return domain.AmountPatternPassthrough
	}

	passthrough := true
	decaying := 0
	ratios := 0
	for i := 1; i < len(amounts); i++ {
		if amounts[i-1] == 0 {
			passthrough = false
			continue
		}
		ratio := amounts[i] / amounts[i-1]
		ratios++
		if ratio < 0.99 || ratio > 1.01 {
			passthrough = false
		}
		if ratio >= 0.80 && ratio < 0.99 {
			decaying++
		}
	}
	if passthrough {
		return domain.AmountPatternPassthrough
	}
	if ratios > 0 && float64(decaying)*2 >= float64(ratios) {
		return domain.AmountPatternDecay
	}
	return domain.AmountPatternMixed
}

func (d *ShellDetector) scoreChain(c ShellChain) float64 {
	score := 45.0

	switch {
	case len(c.Nodes) >= 6:
		score += 20
	case len(c.Nodes) == 5:
		score += 15
	case len(c.Nodes) == 4:
		score += 10
	default:
		score += 5
	}

	switch c.AmountPattern {
	case domain.AmountPatternPassthrough:
		score += 15
	case domain.AmountPatternDecay:
		score += 20
	default:
		score += 10
	}

	if timesNonDecreasing(c.HopTimestamps) {
		if span, ok := spanHours(c.HopTimestamps); ok {
			switch {
			case span < 24:
				score += 15
			case span < 72:
				score += 10
			case span < 168:
				score += 5
			}
		}
	}

	pure := 0
	interior := c.Nodes[1 : len(c.Nodes)-1]
	for _, n := range interior {
		if st := d.graph.Stats[n]; st != nil && st.TxCount == 2 {
			pure++
		}
	}
	if pure*2 > len(interior) {
		// Accounts that exist solely to pass one payment through.
		score += 10
	}

	return clampScore(score)
}

func timesNonDecreasing(times []time.Time) bool {
	for i := 1; i < len(times); i++ {
		if times[i].Before(times[i-1]) {
			return false
		}
	}
	return true
}

// ShellRings converts chains into raw rings of the shell network pattern.
func ShellRings(chains []ShellChain) []RawRing {
	rings := make([]RawRing, 0, len(chains))
	for _, c := range chains {
		ring := RawRing{
			Pattern:       domain.PatternShellNetwork,
			RawScore:      c.Score,
			ChainLength:   len(c.Nodes),
			AmountPattern: c.AmountPattern,
		}
		for _, n := range c.Nodes {
			ring.appendMember(n)
		}
		if span, ok := spanHours(c.HopTimestamps); ok {
			ring.TimeWindowHours = span
			ring.HasTimeWindow = true
		}
		rings = append(rings, ring)
	}
	return rings
}
