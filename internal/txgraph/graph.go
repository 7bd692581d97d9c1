package txgraph

import (
	"fmt"
	"sort"
	"time"

	"github.com/adithya/forensiq/internal/domain"
)

// Edge is one directed transfer as seen from one endpoint. Counterparty is
// the receiver on a forward edge and the sender on a reverse edge.
type Edge struct {
	Counterparty string
	Amount       float64
	Timestamp    time.Time
	TxnID        string
}

// AccountStats holds the per-account aggregates derived in a single pass
// after ingestion. Immutable once Build returns.
type AccountStats struct {
	TotalSent       float64
	TotalReceived   float64
	InDegree        int
	OutDegree       int
	UniqueSenders   int
	UniqueReceivers int
	TxCount         int

	// Timestamps over all in- and out-edges, sorted ascending with
	// multiplicity.
	Timestamps []time.Time

	// MinTimeDelta is the smallest gap between consecutive timestamps.
	// Unset (HasMinTimeDelta false) with fewer than two timestamps.
	MinTimeDelta    time.Duration
	HasMinTimeDelta bool

	// ThroughputRatio is TotalSent / TotalReceived; unset when nothing
	// was received.
	ThroughputRatio    float64
	HasThroughputRatio bool
}

// Graph is the directed transfer multigraph built from a closed transaction
// batch. Adjacency lists preserve transaction insertion order. After Build
// returns the graph is read-only; detectors may share it freely.
type Graph struct {
	Forward map[string][]Edge
	Reverse map[string][]Edge
	Stats   map[string]*AccountStats

	// Accounts lists every account id in lexicographic order. Detectors
	// iterate it to keep enumeration deterministic.
	Accounts []string
}

// Build constructs the graph and computes per-account metadata. On identical
// input the result is identical, including slice orders.
func Build(txns []domain.Transaction) *Graph {
	g := &Graph{
		Forward: make(map[string][]Edge),
		Reverse: make(map[string][]Edge),
		Stats:   make(map[string]*AccountStats),
	}

	for _, t := range txns {
		g.ensureAccount(t.SenderID)
		g.ensureAccount(t.ReceiverID)

		g.Forward[t.SenderID] = append(g.Forward[t.SenderID], Edge{
			Counterparty: t.ReceiverID,
			Amount:       t.Amount,
			Timestamp:    t.Timestamp,
			TxnID:        t.ID,
		})
		g.Reverse[t.ReceiverID] = append(g.Reverse[t.ReceiverID], Edge{
			Counterparty: t.SenderID,
			Amount:       t.Amount,
			Timestamp:    t.Timestamp,
			TxnID:        t.ID,
		})
	}

	g.Accounts = make([]string, 0, len(g.Stats))
	for id := range g.Stats {
		g.Accounts = append(g.Accounts, id)
	}
	sort.Strings(g.Accounts)

	for _, id := range g.Accounts {
		g.computeStats(id)
	}
	return g
}

func (g *Graph) ensureAccount(id string) {
	if _, ok := g.Stats[id]; ok {
		return
	}
	g.Stats[id] = &AccountStats{}
	if _, ok := g.Forward[id]; !ok {
		g.Forward[id] = nil
	}
	if _, ok := g.Reverse[id]; !ok {
		g.Reverse[id] = nil
	}
}

func (g *Graph) computeStats(id string) {
	st := g.Stats[id]
	out := g.Forward[id]
	in := g.Reverse[id]

	st.OutDegree = len(out)
	st.InDegree = len(in)
	st.TxCount = st.OutDegree + st.InDegree

	receivers := make(map[string]struct{}, len(out))
	for _, e := range out {
		st.TotalSent += e.Amount
		receivers[e.Counterparty] = struct{}{}
		st.Timestamps = append(st.Timestamps, e.Timestamp)
	}
	st.UniqueReceivers = len(receivers)

	senders := make(map[string]struct{}, len(in))
	for _, e := range in {
		st.TotalReceived += e.Amount
		senders[e.Counterparty] = struct{}{}
		st.Timestamps = append(st.Timestamps, e.Timestamp)
	}
	st.UniqueSenders = len(senders)

	sort.Slice(st.Timestamps, func(i, j int) bool {
		return st.Timestamps[i].Before(st.Timestamps[j])
	})

	if len(st.Timestamps) >= 2 {
		min := st.Timestamps[1].Sub(st.Timestamps[0])
		for i := 2; i < len(st.Timestamps); i++ {
			if d := st.Timestamps[i].Sub(st.Timestamps[i-1]); d < min {
				min = d
			}
		}
		st.MinTimeDelta = min
		st.HasMinTimeDelta = true
	}

	if st.TotalReceived > 0 {
		st.ThroughputRatio = st.TotalSent / st.TotalReceived
		st.HasThroughputRatio = true
	}
}

// UniqueSenderIDs returns the distinct senders into the account, in first
// edge-appearance order.
func (g *Graph) UniqueSenderIDs(id string) []string {
	return uniqueCounterparties(g.Reverse[id])
}

// UniqueReceiverIDs returns the distinct receivers out of the account, in
// first edge-appearance order.
func (g *Graph) UniqueReceiverIDs(id string) []string {
	return uniqueCounterparties(g.Forward[id])
}

func uniqueCounterparties(edges []Edge) []string {
	seen := make(map[string]struct{}, len(edges))
	var out []string
	for _, e := range edges {
		if _, ok := seen[e.Counterparty]; ok {
			continue
		}
		seen[e.Counterparty] = struct{}{}
		out = append(out, e.Counterparty)
	}
	return out
}

// Validate checks the structural invariants that Build guarantees. A failure
// indicates a bug, not bad input; callers should treat it as fatal.
func (g *Graph) Validate() error {
	for id := range g.Forward {
		if _, ok := g.Stats[id]; !ok {
			return fmt.Errorf("account %q present in forward adjacency but missing metadata", id)
		}
	}
	for id := range g.Reverse {
		if _, ok := g.Stats[id]; !ok {
			return fmt.Errorf("account %q present in reverse adjacency but missing metadata", id)
		}
	}
	for id, st := range g.Stats {
		if st.TxCount != len(g.Forward[id])+len(g.Reverse[id]) {
			return fmt.Errorf("account %q tx_count %d does not match degree sum %d",
				id, st.TxCount, len(g.Forward[id])+len(g.Reverse[id]))
		}
	}
	return nil
}
