package detect

import (
	"math"
	"time"

	"github.com/adithya/forensiq/internal/domain"
	"github.com/adithya/forensiq/internal/txgraph"
)

// SmurfingDetector finds fan-in aggregators, fan-out dispersers and
// combined hubs. Candidates need at least FanThreshold distinct
// counterparties in the relevant direction; a group is emitted only when the
// multi-signal score reaches SmurfEmitThreshold.
//
// Hour-of-day signals are computed in the operator-declared zone, never the
// host's local time.
type SmurfingDetector struct {
	graph *txgraph.Graph
	loc   *time.Location
}

// NewSmurfingDetector returns a detector bound to the graph. A nil location
// defaults to UTC.
func NewSmurfingDetector(g *txgraph.Graph, loc *time.Location) *SmurfingDetector {
	if loc == nil {
		loc = time.UTC
	}
	return &SmurfingDetector{graph: g, loc: loc}
}

// Detect runs the fan-in, fan-out and combined scans in that order. A node
// that already emitted a group in a directional scan is skipped by the
// combined scan.
func (d *SmurfingDetector) Detect() []RawRing {
	var rings []RawRing
	emitted := make(map[string]struct{})

	for _, id := range d.graph.Accounts {
		st := d.graph.Stats[id]
		if st.UniqueSenders < FanThreshold {
			continue
		}
		score := d.scoreHub(id, d.graph.Reverse[id], st.UniqueSenders)
		if score < SmurfEmitThreshold {
			continue
		}
		ring := d.buildRing(domain.PatternFanIn, id, d.graph.Reverse[id], score)
		ring.HubIn = id
		for _, s := range d.graph.UniqueSenderIDs(id) {
			ring.appendMember(s)
		}
		rings = append(rings, ring)
		emitted[id] = struct{}{}
	}

	for _, id := range d.graph.Accounts {
		st := d.graph.Stats[id]
		if st.UniqueReceivers < FanThreshold {
			continue
		}
		score := d.scoreHub(id, d.graph.Forward[id], st.UniqueReceivers)
		if score < SmurfEmitThreshold {
			continue
		}
		ring := d.buildRing(domain.PatternFanOut, id, d.graph.Forward[id], score)
		ring.HubOut = id
		for _, r := range d.graph.UniqueReceiverIDs(id) {
			ring.appendMember(r)
		}
		rings = append(rings, ring)
		emitted[id] = struct{}{}
	}

	for _, id := range d.graph.Accounts {
		st := d.graph.Stats[id]
		if st.UniqueSenders < FanThreshold || st.UniqueReceivers < FanThreshold {
			continue
		}
		if _, done := emitted[id]; done {
			continue
		}
		edges := append(append([]txgraph.Edge(nil), d.graph.Reverse[id]...), d.graph.Forward[id]...)
		fanDegree := len(unionIDs(d.graph.UniqueSenderIDs(id), d.graph.UniqueReceiverIDs(id)))
		score := d.scoreHub(id, edges, fanDegree)
		if score < SmurfEmitThreshold {
			continue
		}
		ring := d.buildRing(domain.PatternFanInFanOut, id, edges, score)
		ring.HubIn = id
		ring.HubOut = id
		for _, m := range unionIDs(d.graph.UniqueSenderIDs(id), d.graph.UniqueReceiverIDs(id)) {
			ring.appendMember(m)
		}
		rings = append(rings, ring)
	}

	return rings
}

func (d *SmurfingDetector) buildRing(pattern domain.PatternType, hub string, edges []txgraph.Edge, score float64) RawRing {
	ring := RawRing{
		Pattern:  pattern,
		RawScore: score,
	}
	ring.appendMember(hub)
	if span, ok := spanHours(edgeTimes(edges)); ok {
		ring.TimeWindowHours = span
		ring.HasTimeWindow = true
	}
	return ring
}

// scoreHub sums six additive signals over the relevant transaction set and
// subtracts the legitimacy penalty. Clamped to [0,100].
func (d *SmurfingDetector) scoreHub(id string, edges []txgraph.Edge, fanDegree int) float64 {
	amounts := edgeAmounts(edges)
	times := sortedTimes(edgeTimes(edges))
	window, hasWindow := spanHours(times)
	if !hasWindow {
		window = 0
	}

	score := structuralSignal(fanDegree)
	score += d.burstSignal(times, window)
	score += d.offHoursSignal(times)
	score += velocitySignal(amounts, window)
	score += behavioralAmountSignal(amounts)
	score += d.throughputSignal(id)

	score -= d.legitimacyPenalty(id, amounts, times, window)
	return clampScore(score)
}

func structuralSignal(fanDegree int) float64 {
	switch {
	case fanDegree >= 30:
		return 25
	case fanDegree >= 20:
		return 20
	case fanDegree >= 15:
		return 15
	default:
		return 10
	}
}

func (d *SmurfingDetector) burstSignal(times []time.Time, window float64) float64 {
	n := len(times)
	switch {
	case window < 6 && n >= 10:
		return 25
	case window < 12 && n >= 10:
		return 22
	}
	deltas := interDeltas(times)
	if m := mean(deltas); m > 0 && stddev(deltas)/m < 0.3 && window < 24 {
		// Metronomic spacing inside a day reads as scripted activity.
		return 20
	}
	switch {
	case window < 24:
		return 12
	case window < 72:
		return 6
	}
	return 0
}

func (d *SmurfingDetector) offHoursSignal(times []time.Time) float64 {
	frac := hourFraction(times, d.loc, func(h int) bool {
		return h == 23 || h <= 4
	})
	switch {
	case frac > 0.7:
		return 15
	case frac > 0.5:
		return 10
	case frac > 0.3:
		return 5
	}
	return 0
}

func velocitySignal(amounts []float64, window float64) float64 {
	var total float64
	for _, a := range amounts {
		total += a
	}
	perHour := total / math.Max(window, 0.1)
	switch {
	case perHour > 5000:
		return 20
	case perHour > 2000:
		return 15
	case perHour > 1000:
		return 10
	case perHour > 500:
		return 5
	}
	return 0
}

func behavioralAmountSignal(amounts []float64) float64 {
	if len(amounts) == 0 {
		return 0
	}
	n := float64(len(amounts))

	var subThreshold, midBand, nonZeroCents int
	for _, a := range amounts {
		if a >= 8000 && a < 10000 {
			subThreshold++
		}
		if a >= 200 && a <= 3000 {
			midBand++
		}
		if hasNonZeroCents(a) {
			nonZeroCents++
		}
	}

	var signal float64
	if float64(subThreshold)/n > 0.3 {
		// Clustering just under the 10k reporting threshold.
		signal += 8
	}
	if cv := coefficientOfVariation(amounts); cv >= 0.2 && cv <= 0.6 && float64(midBand)/n > 0.6 {
		signal += 5
	}
	if float64(nonZeroCents)/n > 0.7 {
		signal -= 5
	}
	if signal < 0 {
		signal = 0
	}
	return signal
}

func (d *SmurfingDetector) throughputSignal(id string) float64 {
	st := d.graph.Stats[id]
	if st.TotalSent > 0 && st.TotalReceived > 0 && st.HasThroughputRatio &&
		st.ThroughputRatio > 0.7 && st.ThroughputRatio < 1.3 {
		return 10
	}
	return 0
}

func (d *SmurfingDetector) legitimacyPenalty(id string, amounts []float64, times []time.Time, window float64) float64 {
	var penalty float64

	if window > 72 {
		penalty += 10
	}
	if window > 168 {
		penalty += 10
	}
	if window > 720 {
		penalty += 15
	}

	if hourFraction(times, d.loc, func(h int) bool { return h >= 8 && h <= 18 }) > 0.7 {
		penalty += 10
	}

	if hasRegularInterval(interDeltas(times), 0.2) {
		penalty += 15
	}

	if modalAmountFraction(amounts) > 0.4 {
		penalty += 10
	}

	st := d.graph.Stats[id]
	senders := d.graph.UniqueSenderIDs(id)
	receivers := d.graph.UniqueReceiverIDs(id)
	overlap := overlapCount(senders, receivers)

	if st.UniqueReceivers <= 5 && st.UniqueSenders >= 15 &&
		float64(overlap)/float64(st.UniqueSenders) < 0.1 {
		// Many payers, few payees, disjoint sets: merchant shape.
		penalty += 15
	}
	if st.UniqueSenders <= 5 && st.UniqueReceivers >= 10 && overlap == 0 {
		// Few funders, many payees, no overlap: payroll shape.
		penalty += 10
	}

	return penalty
}

// modalAmountFraction returns the share of transactions carrying the single
// most common amount, rounded to whole units.
func modalAmountFraction(amounts []float64) float64 {
	if len(amounts) == 0 {
		return 0
	}
	counts := make(map[int64]int, len(amounts))
	best := 0
	for _, a := range amounts {
		k := int64(math.Round(a))
		counts[k]++
		if counts[k] > best {
			best = counts[k]
		}
	}
	return float64(best) / float64(len(amounts))
}

func edgeAmounts(edges []txgraph.Edge) []float64 {
	out := make([]float64, len(edges))
	for i, e := range edges {
		out[i] = e.Amount
	}
	return out
}

func edgeTimes(edges []txgraph.Edge) []time.Time {
	out := make([]time.Time, len(edges))
	for i, e := range edges {
		out[i] = e.Timestamp
	}
	return out
}

func unionIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, id := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func overlapCount(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	n := 0
	for _, id := range b {
		if _, ok := set[id]; ok {
			n++
		}
	}
	return n
}
