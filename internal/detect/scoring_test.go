package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adithya/forensiq/internal/domain"
	"github.com/adithya/forensiq/internal/txgraph"
)

func TestScoreCycleRingAndMembers(t *testing.T) {
	// A tight triangle of near-identical amounts: every member is a
	// pass-through with maximal velocity.
	txns := []domain.Transaction{
		tx("T1", "A", "B", 10000, fixtureBase),
		tx("T2", "B", "C", 9900, fixtureBase.Add(2*time.Hour)),
		tx("T3", "C", "A", 9800, fixtureBase.Add(4*time.Hour)),
	}
	g := txgraph.Build(txns)

	rings := []RawRing{{
		Pattern:     domain.PatternCycle,
		Members:     []string{"A", "B", "C"},
		CycleLength: 3,
	}}
	accounts, fraudRings := NewScorer(g).Score(rings)

	require.Len(t, accounts, 3)
	for _, a := range accounts {
		assert.GreaterOrEqual(t, a.SuspicionScore, 75.0)
		assert.Equal(t, "High Risk", a.SuspicionLabel)
		assert.Equal(t, []string{"cycle_length_3"}, a.DetectedPatterns)
		assert.Equal(t, "RING_001", a.RingID)
	}
	// Sorted by suspicion descending, ties by id.
	for i := 1; i < len(accounts); i++ {
		assert.GreaterOrEqual(t, accounts[i-1].SuspicionScore, accounts[i].SuspicionScore)
	}

	require.Len(t, fraudRings, 1)
	ring := fraudRings[0]
	assert.Equal(t, "RING_001", ring.RingID)
	assert.Equal(t, domain.PatternCycle, ring.PatternType)
	assert.Equal(t, 3, ring.CycleLength)
	assert.GreaterOrEqual(t, ring.RiskScore, 80.0)
	assert.Equal(t, "Critical", ring.RiskLabel)
}

func TestScoreShellRing(t *testing.T) {
	g := txgraph.Build(chainTxns(
		[]string{"SRC", "M1", "M2", "DST"},
		[]float64{50000, 50000, 50000},
	))

	rings := []RawRing{{
		Pattern:       domain.PatternShellNetwork,
		Members:       []string{"SRC", "M1", "M2", "DST"},
		ChainLength:   4,
		AmountPattern: domain.AmountPatternPassthrough,
	}}
	accounts, fraudRings := NewScorer(g).Score(rings)

	require.Len(t, fraudRings, 1)
	ring := fraudRings[0]
	assert.Equal(t, 4, ring.ChainLength)
	assert.Equal(t, domain.AmountPatternPassthrough, ring.AmountPattern)
	// Pass-through interiors at maximal velocity push the ring well past
	// the high-risk boundary.
	assert.GreaterOrEqual(t, ring.RiskScore, 60.0)
	assert.Equal(t, "Critical", ring.RiskLabel)

	byID := make(map[string]domain.SuspiciousAccount, len(accounts))
	for _, a := range accounts {
		byID[a.AccountID] = a
	}
	assert.Equal(t, []string{domain.TagShellInterior}, byID["M1"].DetectedPatterns)
	assert.Equal(t, 100.0, byID["M1"].SuspicionScore)
	assert.Equal(t, []string{domain.TagShellInterior}, byID["SRC"].DetectedPatterns)
}

func TestScoreAssignsSequentialRingIDs(t *testing.T) {
	g := txgraph.Build(cycleTxns("T", []string{"A", "B", "C"}, 5000))
	rings := []RawRing{
		{Pattern: domain.PatternCycle, Members: []string{"A", "B", "C"}, CycleLength: 3},
		{Pattern: domain.PatternFanIn, Members: []string{"A", "X", "Y"}, HubIn: "A"},
	}

	_, fraudRings := NewScorer(g).Score(rings)
	require.Len(t, fraudRings, 2)
	assert.Equal(t, "RING_001", fraudRings[0].RingID)
	assert.Equal(t, "RING_002", fraudRings[1].RingID)
	assert.Equal(t, "A", fraudRings[1].AggregatorNode)
}

func TestPrimaryRingIsFirstContaining(t *testing.T) {
	g := txgraph.Build(cycleTxns("T", []string{"A", "B", "C"}, 5000))
	rings := []RawRing{
		{Pattern: domain.PatternCycle, Members: []string{"A", "B", "C"}, CycleLength: 3},
		{Pattern: domain.PatternFanIn, Members: []string{"A", "X", "Y"}, HubIn: "A"},
	}

	accounts, _ := NewScorer(g).Score(rings)
	byID := make(map[string]domain.SuspiciousAccount, len(accounts))
	for _, a := range accounts {
		byID[a.AccountID] = a
	}
	assert.Equal(t, "RING_001", byID["A"].RingID)
	assert.Equal(t, "RING_002", byID["X"].RingID)
	// A carries tags from both rings.
	assert.Equal(t, []string{"cycle_length_3", "fan_in"}, byID["A"].DetectedPatterns)
}

func TestPassThroughRate(t *testing.T) {
	assert.InDelta(t, 0.5, passThroughRate(&txgraph.AccountStats{TotalSent: 50, TotalReceived: 100}), 1e-9)
	assert.InDelta(t, 0.5, passThroughRate(&txgraph.AccountStats{TotalSent: 100, TotalReceived: 50}), 1e-9)
	assert.Zero(t, passThroughRate(&txgraph.AccountStats{}))
	assert.Zero(t, passThroughRate(&txgraph.AccountStats{TotalSent: 100}))
}

func TestVelocityRatioSlidingWindow(t *testing.T) {
	mk := func(hours ...float64) *txgraph.AccountStats {
		st := &txgraph.AccountStats{TxCount: len(hours)}
		for _, h := range hours {
			st.Timestamps = append(st.Timestamps, fixtureBase.Add(time.Duration(h*float64(time.Hour))))
		}
		return st
	}

	// Three early, two far out: best window holds three of five.
	assert.InDelta(t, 0.6, velocityRatio(mk(0, 1, 2, 100, 200)), 1e-9)
	// The window is right-open: a gap of exactly 72h splits the pair.
	assert.InDelta(t, 0.5, velocityRatio(mk(0, 72)), 1e-9)
	assert.InDelta(t, 1.0, velocityRatio(mk(0, 71.9)), 1e-9)
	// Degenerate accounts count as maximal velocity.
	assert.InDelta(t, 1.0, velocityRatio(&txgraph.AccountStats{TxCount: 1}), 1e-9)
}

func TestPatternModifierComposes(t *testing.T) {
	tags := func(names ...string) map[string]struct{} {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		return set
	}

	assert.Equal(t, 20.0, patternModifier(tags("cycle_length_3"), 10))
	// Multiple cycle tags still count once.
	assert.Equal(t, 20.0, patternModifier(tags("cycle_length_3", "cycle_length_4"), 10))
	assert.Equal(t, 25.0, patternModifier(tags(domain.TagFanIn), 10))
	assert.Equal(t, 50.0, patternModifier(tags(domain.TagFanIn, domain.TagFanOut), 10))
	assert.Equal(t, 30.0, patternModifier(tags(domain.TagShellInterior), 2))
	assert.Equal(t, 15.0, patternModifier(tags(domain.TagShellInterior), 8))
	// 20 (cycle) + 25 (fan-in) + 15 (busy shell endpoint).
	assert.Equal(t, 60.0, patternModifier(tags("cycle_length_5", domain.TagFanIn, domain.TagShellEndpoint), 12))
}

func TestHighChurnPenaltyAppliesToBusyEndpoints(t *testing.T) {
	// 60 inbound transactions and almost nothing out: a busy endpoint, not
	// a mule. The penalty must push the score down despite high velocity.
	var txns []domain.Transaction
	for i := 0; i < 60; i++ {
		txns = append(txns, tx(
			"T"+string(rune('A'+i%26))+string(rune('0'+i/26)),
			"P"+string(rune('A'+i%26))+string(rune('0'+i/26)), "BUSY",
			100, fixtureBase.Add(time.Duration(i)*time.Minute),
		))
	}
	txns = append(txns, tx("OUT", "BUSY", "SINK", 500, fixtureBase.Add(61*time.Minute)))
	g := txgraph.Build(txns)

	s := NewScorer(g)
	with := s.accountSuspicion("BUSY", map[string]struct{}{domain.TagFanIn: {}})
	// PTR = 500/6000 < 0.3 with 61 transactions: the 50-point penalty bites.
	assert.Less(t, with, 40.0)
}

func TestRingSeverity(t *testing.T) {
	assert.Equal(t, 10.0, ringSeverity(RawRing{Pattern: domain.PatternCycle}))
	assert.Equal(t, 10.0, ringSeverity(RawRing{Pattern: domain.PatternShellNetwork, ChainLength: 4}))
	assert.Equal(t, 15.0, ringSeverity(RawRing{Pattern: domain.PatternShellNetwork, ChainLength: 5}))
	small := make([]string, 10)
	large := make([]string, 25)
	assert.Equal(t, 10.0, ringSeverity(RawRing{Pattern: domain.PatternFanIn, Members: small}))
	assert.Equal(t, 20.0, ringSeverity(RawRing{Pattern: domain.PatternFanIn, Members: large}))
}
