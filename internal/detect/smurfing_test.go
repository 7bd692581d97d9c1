package detect

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adithya/forensiq/internal/domain"
	"github.com/adithya/forensiq/internal/txgraph"
)

// fanInTxns feeds the hub from n distinct senders in a tight night-time
// burst, with distinct amounts just under the 10k reporting threshold.
func fanInTxns(hub string, n int) []domain.Transaction {
	night := time.Date(2025, 1, 16, 0, 30, 0, 0, time.UTC)
	var txns []domain.Transaction
	for i := 0; i < n; i++ {
		txns = append(txns, tx(
			fmt.Sprintf("FI_%02d", i),
			fmt.Sprintf("S_%02d", i), hub,
			9450+float64(i)*10,
			night.Add(time.Duration(i)*15*time.Minute),
		))
	}
	return txns
}

func fanOutTxns(hub string, n int) []domain.Transaction {
	night := time.Date(2025, 1, 17, 0, 30, 0, 0, time.UTC)
	var txns []domain.Transaction
	for i := 0; i < n; i++ {
		txns = append(txns, tx(
			fmt.Sprintf("FO_%02d", i),
			hub, fmt.Sprintf("R_%02d", i),
			9450+float64(i)*10,
			night.Add(time.Duration(i)*15*time.Minute),
		))
	}
	return txns
}

func TestSmurfingFanInBurst(t *testing.T) {
	g := txgraph.Build(fanInTxns("HUB", 12))

	rings := NewSmurfingDetector(g, time.UTC).Detect()
	require.Len(t, rings, 1)

	ring := rings[0]
	assert.Equal(t, domain.PatternFanIn, ring.Pattern)
	assert.Equal(t, "HUB", ring.HubIn)
	assert.Empty(t, ring.HubOut)
	assert.Len(t, ring.Members, 13)
	assert.Contains(t, ring.Members, "HUB")
	assert.GreaterOrEqual(t, ring.RawScore, 60.0)
	require.True(t, ring.HasTimeWindow)
	assert.Less(t, ring.TimeWindowHours, 6.0)
}

func TestSmurfingBelowFanThreshold(t *testing.T) {
	g := txgraph.Build(fanInTxns("HUB", 9))

	rings := NewSmurfingDetector(g, time.UTC).Detect()
	assert.Empty(t, rings)
}

func TestSmurfingFanOutBurst(t *testing.T) {
	g := txgraph.Build(fanOutTxns("HUB", 12))

	rings := NewSmurfingDetector(g, time.UTC).Detect()
	require.Len(t, rings, 1)
	assert.Equal(t, domain.PatternFanOut, rings[0].Pattern)
	assert.Equal(t, "HUB", rings[0].HubOut)
	assert.Empty(t, rings[0].HubIn)
}

func TestSmurfingCombinedSkipsDirectionalEmissions(t *testing.T) {
	// A hub qualifying in both directions is reported by both directional
	// scans; the combined scan must not add a third group for it.
	txns := append(fanInTxns("HUB", 12), fanOutTxns("HUB", 12)...)
	g := txgraph.Build(txns)

	rings := NewSmurfingDetector(g, time.UTC).Detect()
	require.Len(t, rings, 2)
	assert.Equal(t, domain.PatternFanIn, rings[0].Pattern)
	assert.Equal(t, domain.PatternFanOut, rings[1].Pattern)
	for _, r := range rings {
		assert.NotEqual(t, domain.PatternFanInFanOut, r.Pattern)
	}
}

func TestSmurfingLegitimacyPenaltySuppressesPayrollShape(t *testing.T) {
	// 12 receivers paid the identical amount during business hours over two
	// weeks: the penalty terms must keep the score below the emit threshold.
	day := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	var txns []domain.Transaction
	id := 0
	for week := 0; week < 3; week++ {
		at := day.AddDate(0, 0, week*7)
		for i := 0; i < 12; i++ {
			id++
			txns = append(txns, tx(
				fmt.Sprintf("P_%03d", id),
				"PAYER", fmt.Sprintf("E_%02d", i),
				2412.33,
				at.Add(time.Duration(i)*time.Minute),
			))
		}
	}
	g := txgraph.Build(txns)

	rings := NewSmurfingDetector(g, time.UTC).Detect()
	assert.Empty(t, rings)
}

func TestModalAmountFraction(t *testing.T) {
	assert.InDelta(t, 1.0, modalAmountFraction([]float64{100, 100, 100}), 1e-9)
	assert.InDelta(t, 0.5, modalAmountFraction([]float64{100, 100, 200, 300}), 1e-9)
	assert.Zero(t, modalAmountFraction(nil))
}
