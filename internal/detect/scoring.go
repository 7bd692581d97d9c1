package detect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/adithya/forensiq/internal/domain"
	"github.com/adithya/forensiq/internal/txgraph"
)

// Scorer runs the two-stage scoring pass: account suspicion first, then
// ring risk from the member suspicions. Both stages read only the graph
// metadata and the surviving rings; they never mutate the graph.
type Scorer struct {
	graph *txgraph.Graph
}

// NewScorer returns a scorer bound to the graph.
func NewScorer(g *txgraph.Graph) *Scorer {
	return &Scorer{graph: g}
}

// Score assigns ring ids in production order, scores every member account,
// then scores each ring. Accounts are returned by suspicion descending
// (ties by id); rings preserve production order.
func (s *Scorer) Score(rings []RawRing) ([]domain.SuspiciousAccount, []domain.FraudRing) {
	ringIDs := make([]string, len(rings))
	for i := range rings {
		ringIDs[i] = fmt.Sprintf("RING_%03d", i+1)
	}

	tags := make(map[string]map[string]struct{})
	primaryRing := make(map[string]string)
	for i, ring := range rings {
		for _, member := range ring.Members {
			if _, ok := tags[member]; !ok {
				tags[member] = make(map[string]struct{})
				primaryRing[member] = ringIDs[i]
			}
			for _, tag := range memberTags(ring, member, s.graph) {
				tags[member][tag] = struct{}{}
			}
		}
	}

	suspicion := make(map[string]float64, len(tags))
	accounts := make([]domain.SuspiciousAccount, 0, len(tags))
	for member, tagSet := range tags {
		score := s.accountSuspicion(member, tagSet)
		suspicion[member] = score
		accounts = append(accounts, domain.SuspiciousAccount{
			AccountID:        member,
			SuspicionScore:   round1(score),
			SuspicionLabel:   domain.SuspicionLabel(score),
			DetectedPatterns: sortedTags(tagSet),
			RingID:           primaryRing[member],
		})
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].SuspicionScore != accounts[j].SuspicionScore {
			return accounts[i].SuspicionScore > accounts[j].SuspicionScore
		}
		return accounts[i].AccountID < accounts[j].AccountID
	})

	out := make([]domain.FraudRing, 0, len(rings))
	for i, ring := range rings {
		out = append(out, s.scoreRing(ring, ringIDs[i], suspicion))
	}
	return accounts, out
}

// memberTags derives the pattern tags a ring contributes to one member.
// Combined hubs carry both directional tags so the pattern modifier can
// compose from the tag set alone.
func memberTags(ring RawRing, member string, g *txgraph.Graph) []string {
	switch ring.Pattern {
	case domain.PatternCycle:
		return []string{fmt.Sprintf("cycle_length_%d", ring.CycleLength)}
	case domain.PatternFanIn:
		return []string{domain.TagFanIn}
	case domain.PatternFanOut:
		return []string{domain.TagFanOut}
	case domain.PatternFanInFanOut:
		return []string{domain.TagFanIn, domain.TagFanOut}
	case domain.PatternShellNetwork:
		if st := g.Stats[member]; st != nil && st.TxCount <= ShellTxThreshold {
			return []string{domain.TagShellInterior}
		}
		return []string{domain.TagShellEndpoint}
	}
	return nil
}

// accountSuspicion is 35·PTR + 35·V + PM − FPP, clamped to [0,100].
func (s *Scorer) accountSuspicion(id string, tagSet map[string]struct{}) float64 {
	st := s.graph.Stats[id]
	if st == nil {
		return 0
	}

	ptr := passThroughRate(st)
	v := velocityRatio(st)
	pm := patternModifier(tagSet, st.TxCount)

	score := 35*ptr + 35*v + pm
	if st.TxCount > FraudPenaltyTxCount && ptr < FraudPenaltyPassThrough {
		score -= 50
	}
	return clampScore(score)
}

// passThroughRate is min(in,out)/max(in,out), zero for one-sided accounts.
func passThroughRate(st *txgraph.AccountStats) float64 {
	in, out := st.TotalReceived, st.TotalSent
	hi := in
	lo := out
	if out > in {
		hi, lo = out, in
	}
	if hi == 0 {
		return 0
	}
	return lo / hi
}

// velocityRatio is the maximum transaction count inside any right-open
// 72-hour window divided by the total count. Defined as 1 for accounts with
// at most one transaction.
func velocityRatio(st *txgraph.AccountStats) float64 {
	if st.TxCount <= 1 {
		return 1
	}
	ts := st.Timestamps
	window := time.Duration(VelocityWindowHours) * time.Hour
	best, j := 0, 0
	for i := range ts {
		if j < i {
			j = i
		}
		for j < len(ts) && ts[j].Sub(ts[i]) < window {
			j++
		}
		if j-i > best {
			best = j - i
		}
	}
	return float64(best) / float64(st.TxCount)
}

// patternModifier reads the tag set, contributing at most once per role.
func patternModifier(tagSet map[string]struct{}, txCount int) float64 {
	var pm float64
	for tag := range tagSet {
		if strings.HasPrefix(tag, "cycle") {
			pm += 20
			break
		}
	}
	if _, ok := tagSet[domain.TagFanIn]; ok {
		pm += 25
	}
	if _, ok := tagSet[domain.TagFanOut]; ok {
		pm += 25
	}
	_, interior := tagSet[domain.TagShellInterior]
	_, endpoint := tagSet[domain.TagShellEndpoint]
	if interior || endpoint {
		if txCount <= ShellTxThreshold {
			pm += 30
		} else {
			pm += 15
		}
	}
	return pm
}

func (s *Scorer) scoreRing(ring RawRing, id string, suspicion map[string]float64) domain.FraudRing {
	var sum float64
	for _, m := range ring.Members {
		sum += suspicion[m]
	}
	avg := 0.0
	if len(ring.Members) > 0 {
		avg = sum / float64(len(ring.Members))
	}

	risk := avg + s.temporalDensity(ring) + ringSeverity(ring)
	risk = clampScore(risk)

	out := domain.FraudRing{
		RingID:         id,
		PatternType:    ring.Pattern,
		MemberAccounts: append([]string(nil), ring.Members...),
		RiskScore:      round1(risk),
		RiskLabel:      domain.RiskLabel(risk),
	}
	switch ring.Pattern {
	case domain.PatternCycle:
		out.CycleLength = ring.CycleLength
	case domain.PatternShellNetwork:
		out.ChainLength = ring.ChainLength
		out.AmountPattern = ring.AmountPattern
	case domain.PatternFanIn:
		out.AggregatorNode = ring.HubIn
	case domain.PatternFanOut:
		out.DisperserNode = ring.HubOut
	case domain.PatternFanInFanOut:
		out.AggregatorNode = ring.HubIn
		out.DisperserNode = ring.HubOut
	}
	if ring.HasTimeWindow {
		out.TemporalWindowHrs = round1(ring.TimeWindowHours)
	}
	return out
}

// temporalDensity rewards rings whose internal transactions (sender and
// receiver both members) are tightly packed. Rings with fewer than two
// internal transactions get the bonus by definition.
func (s *Scorer) temporalDensity(ring RawRing) float64 {
	members := ring.MemberSet()
	var times []time.Time
	for _, m := range ring.Members {
		for _, e := range s.graph.Forward[m] {
			if _, ok := members[e.Counterparty]; ok {
				times = append(times, e.Timestamp)
			}
		}
	}
	if len(times) < 2 {
		return 15
	}
	if span, ok := spanHours(times); ok && span <= 72 {
		return 15
	}
	return 0
}

// ringSeverity weights the normalized pattern kind: cycle_ring,
// layered_chain, smurf_cluster.
func ringSeverity(ring RawRing) float64 {
	switch ring.Pattern {
	case domain.PatternCycle:
		return 10
	case domain.PatternShellNetwork:
		if ring.ChainLength-1 > 3 {
			return 15
		}
		return 10
	default:
		if len(ring.Members) >= 25 {
			return 20
		}
		return 10
	}
}

func sortedTags(tagSet map[string]struct{}) []string {
	out := make([]string, 0, len(tagSet))
	for t := range tagSet {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
