package detect

import (
	"strings"
	"time"

	"github.com/adithya/forensiq/internal/domain"
	"github.com/adithya/forensiq/internal/txgraph"
)

// Cycle is one simple directed cycle with the edges that close it.
type Cycle struct {
	Nodes      []string
	Amounts    []float64
	Timestamps []time.Time
	Score      float64
}

// CycleDetector enumerates simple directed cycles of length CycleMin to
// CycleMax via a pruned DFS seeded at each account in lexicographic order.
// Intermediate vertices must sort strictly after the seed, so every cycle is
// discovered exactly once, rooted at its smallest member.
type CycleDetector struct {
	graph *txgraph.Graph

	cycles []Cycle
	seen   map[string]struct{}
	capHit bool

	path      []string
	pathSet   map[string]struct{}
	edgeAmts  []float64
	edgeTimes []time.Time
}

// NewCycleDetector returns a detector bound to the graph.
func NewCycleDetector(g *txgraph.Graph) *CycleDetector {
	return &CycleDetector{graph: g}
}

// Detect runs the enumeration and returns the scored cycles plus a flag
// reporting whether the global result cap truncated the search.
func (d *CycleDetector) Detect() ([]Cycle, bool) {
	d.cycles = nil
	d.seen = make(map[string]struct{})
	d.capHit = false

	for _, seed := range d.graph.Accounts {
		if d.capHit {
			break
		}
		if len(d.graph.Forward[seed]) > CycleMaxOutDegree {
			// High-fanout hubs explode the search and are almost always
			// legitimate; the legitimacy filter catches them anyway.
			continue
		}
		d.path = d.path[:0]
		d.pathSet = map[string]struct{}{seed: {}}
		d.edgeAmts = d.edgeAmts[:0]
		d.edgeTimes = d.edgeTimes[:0]
		d.path = append(d.path, seed)
		d.dfs(seed, seed)
	}
	return d.cycles, d.capHit
}

func (d *CycleDetector) dfs(seed, current string) {
	if d.capHit {
		return
	}
	for _, e := range d.graph.Forward[current] {
		next := e.Counterparty

		if next == seed {
			if len(d.path) >= CycleMin && len(d.path) <= CycleMax {
				d.record(e)
				if d.capHit {
					return
				}
			}
			continue
		}
		if len(d.path) >= CycleMax {
			continue
		}
		// Johnson-style lower bound: only walk through vertices that sort
		// after the seed.
		if next <= seed {
			continue
		}
		if _, onPath := d.pathSet[next]; onPath {
			continue
		}
		if len(d.graph.Forward[next]) > CycleMaxOutDegree {
			continue
		}

		d.path = append(d.path, next)
		d.pathSet[next] = struct{}{}
		d.edgeAmts = append(d.edgeAmts, e.Amount)
		d.edgeTimes = append(d.edgeTimes, e.Timestamp)

		d.dfs(seed, next)

		d.path = d.path[:len(d.path)-1]
		delete(d.pathSet, next)
		d.edgeAmts = d.edgeAmts[:len(d.edgeAmts)-1]
		d.edgeTimes = d.edgeTimes[:len(d.edgeTimes)-1]
	}
}

func (d *CycleDetector) record(closing txgraph.Edge) {
	nodes := append([]string(nil), d.path...)
	key := canonicalCycleKey(nodes)
	if _, dup := d.seen[key]; dup {
		return
	}
	d.seen[key] = struct{}{}

	amounts := append(append([]float64(nil), d.edgeAmts...), closing.Amount)
	times := append(append([]time.Time(nil), d.edgeTimes...), closing.Timestamp)

	c := Cycle{
		Nodes:      nodes,
		Amounts:    amounts,
		Timestamps: times,
	}
	c.Score = d.scoreCycle(c)
	d.cycles = append(d.cycles, c)
	if len(d.cycles) >= CycleMaxResults {
		d.capHit = true
	}
}

// canonicalCycleKey rotates the cycle so its smallest node comes first.
// Direction is preserved: a cycle and its mirror are distinct findings.
func canonicalCycleKey(nodes []string) string {
	minIdx := 0
	for i, n := range nodes {
		if n < nodes[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, 0, len(nodes))
	for i := 0; i < len(nodes); i++ {
		rotated = append(rotated, nodes[(minIdx+i)%len(nodes)])
	}
	return strings.Join(rotated, "->")
}

func (d *CycleDetector) scoreCycle(c Cycle) float64 {
	score := 50.0

	switch {
	case len(c.Nodes) == 3:
		score += 15
	case len(c.Nodes) == 4:
		score += 10
	default:
		score += 5
	}

	switch cv := coefficientOfVariation(c.Amounts); {
	case cv < 0.1:
		score += 15
	case cv < 0.3:
		score += 10
	case cv < 0.5:
		score += 5
	}

	if span, ok := spanHours(c.Timestamps); ok {
		switch {
		case span < 24:
			score += 15
		case span < 72:
			score += 10
		case span < 168:
			score += 5
		}
	}

	lowActivity := 0
	for _, n := range c.Nodes {
		if st := d.graph.Stats[n]; st != nil && st.TxCount <= 5 {
			lowActivity++
		}
	}
	if lowActivity*2 > len(c.Nodes) {
		score += 10
	}

	return clampScore(score)
}

// CycleRings converts scored cycles into raw rings tagged with the cycle
// pattern and the enumeration's temporal window.
func CycleRings(cycles []Cycle) []RawRing {
	rings := make([]RawRing, 0, len(cycles))
	for _, c := range cycles {
		ring := RawRing{
			Pattern:     domain.PatternCycle,
			RawScore:    c.Score,
			CycleLength: len(c.Nodes),
		}
		for _, n := range c.Nodes {
			ring.appendMember(n)
		}
		if span, ok := spanHours(c.Timestamps); ok {
			ring.TimeWindowHours = span
			ring.HasTimeWindow = true
		}
		rings = append(rings, ring)
	}
	return rings
}
