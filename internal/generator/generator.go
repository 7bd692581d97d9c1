package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/adithya/forensiq/internal/domain"
)

// Dataset contains the generated transactions plus a human-readable
// description of each planted scenario.
type Dataset struct {
	Transactions []domain.Transaction
	Scenarios    []string
}

// Generator plants known laundering patterns and false-positive traps into a
// bed of random noise so detector output can be checked against ground truth.
type Generator struct {
	cfg  Config
	rand *rand.Rand

	txCounter int
	dataset   Dataset
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = def.BaseTime
	}
	if cfg.NoiseTransactions <= 0 {
		cfg.NoiseTransactions = def.NoiseTransactions
	}
	if cfg.NoiseAccounts <= 0 {
		cfg.NoiseAccounts = def.NoiseAccounts
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate synthesises the full dataset.
func (g *Generator) Generate() Dataset {
	g.txCounter = 0
	g.dataset = Dataset{}

	g.plantCycles()
	g.plantSmurfing()
	g.plantShellChains()
	g.plantLegitimateTraps()
	g.plantBoundaryCases()
	g.plantNoise()

	return g.dataset
}

func (g *Generator) nextTxID() string {
	g.txCounter++
	return fmt.Sprintf("TXN_%05d", g.txCounter)
}

func (g *Generator) add(sender, receiver string, amount float64, at time.Time) {
	g.dataset.Transactions = append(g.dataset.Transactions, domain.Transaction{
		ID:         g.nextTxID(),
		SenderID:   sender,
		ReceiverID: receiver,
		Amount:     amount,
		Timestamp:  at,
	})
}

func (g *Generator) note(format string, args ...any) {
	g.dataset.Scenarios = append(g.dataset.Scenarios, fmt.Sprintf(format, args...))
}

func (g *Generator) at(hours float64) time.Time {
	return g.cfg.BaseTime.Add(time.Duration(hours * float64(time.Hour)))
}

func account(prefix string, n int) string {
	return fmt.Sprintf("ACC_%s_%04d", prefix, n)
}

// plantCycles embeds circular routes of each detectable length plus a pair
// of overlapping cycles sharing an edge.
func (g *Generator) plantCycles() {
	// Length 3, shrinking amounts, closed inside six hours.
	g.note("cycle of 3 accounts (CYCLE3) closed within 6h")
	g.add(account("CYCLE3", 1), account("CYCLE3", 2), 5000.00, g.at(0))
	g.add(account("CYCLE3", 2), account("CYCLE3", 3), 4950.00, g.at(2))
	g.add(account("CYCLE3", 3), account("CYCLE3", 1), 4900.00, g.at(4))

	// Length 4.
	g.note("cycle of 4 accounts (CYCLE4) closed within 12h")
	for i := 1; i <= 4; i++ {
		next := i%4 + 1
		g.add(account("CYCLE4", i), account("CYCLE4", next), 8000.00-float64(i)*50, g.at(10+float64(i)*3))
	}

	// Length 5, the longest detectable.
	g.note("cycle of 5 accounts (CYCLE5) closed within 30h")
	for i := 1; i <= 5; i++ {
		next := i%5 + 1
		g.add(account("CYCLE5", i), account("CYCLE5", next), 12000.00-float64(i)*100, g.at(24+float64(i)*6))
	}

	// Two 3-cycles sharing an edge.
	g.note("overlapping cycles sharing accounts OVERLAP_0001 and OVERLAP_0002")
	g.add(account("OVERLAP", 1), account("OVERLAP", 2), 3000.00, g.at(60))
	g.add(account("OVERLAP", 2), account("OVERLAP", 3), 2950.00, g.at(61))
	g.add(account("OVERLAP", 3), account("OVERLAP", 1), 2900.00, g.at(62))
	g.add(account("OVERLAP", 2), account("OVERLAP", 4), 2850.00, g.at(63))
	g.add(account("OVERLAP", 4), account("OVERLAP", 1), 2800.00, g.at(64))
	g.add(account("OVERLAP", 1), account("OVERLAP", 2), 2750.00, g.at(65))

	// All hops inside one hour.
	g.note("rapid cycle (RAPID) fully closed within 1h")
	g.add(account("RAPID", 1), account("RAPID", 2), 15000.00, g.at(70))
	g.add(account("RAPID", 2), account("RAPID", 3), 14900.00, g.at(70.3))
	g.add(account("RAPID", 3), account("RAPID", 1), 14800.00, g.at(70.6))
}

// plantSmurfing embeds a fan-in aggregator, a fan-out disperser and a
// combined hub. Amounts cluster just under the 10k reporting threshold and
// all activity lands in a night-time burst.
func (g *Generator) plantSmurfing() {
	g.note("fan-in: 15 senders feed FANIN_AGG_0001 within 4h, amounts 9.1k-9.9k")
	hub := account("FANIN_AGG", 1)
	for i := 1; i <= 15; i++ {
		amount := 9100.00 + float64(i)*50
		g.add(account("FANIN_SRC", i), hub, amount, g.at(88+float64(i)*0.25)) // hours 0-4 local
	}

	g.note("fan-out: FANOUT_DISP_0001 pays 15 receivers within 4h")
	disp := account("FANOUT_DISP", 1)
	for i := 1; i <= 15; i++ {
		amount := 9200.00 + float64(i)*40
		g.add(disp, account("FANOUT_DST", i), amount, g.at(112+float64(i)*0.25))
	}

	g.note("combined hub COMBO_HUB_0001: 12 in, 12 out, balanced throughput")
	combo := account("COMBO_HUB", 1)
	var total float64
	for i := 1; i <= 12; i++ {
		amount := 8800.00 + float64(i)*60
		total += amount
		g.add(account("COMBO_SRC", i), combo, amount, g.at(136+float64(i)*0.2))
	}
	for i := 1; i <= 12; i++ {
		g.add(combo, account("COMBO_DST", i), total/12-float64(i), g.at(139+float64(i)*0.2))
	}
}

// plantShellChains embeds layered chains whose interior accounts touch money
// exactly twice.
func (g *Generator) plantShellChains() {
	g.note("shell chain of 5 nodes (SHELL5) with gradual decay")
	amount := 200000.00
	nodes := []string{
		account("SHELL5_SRC", 1),
		account("SHELL5_MID", 1),
		account("SHELL5_MID", 2),
		account("SHELL5_MID", 3),
		account("SHELL5_DST", 1),
	}
	for i := 0; i < len(nodes)-1; i++ {
		g.add(nodes[i], nodes[i+1], amount, g.at(160+float64(i)*0.1))
		amount *= 0.97
	}

	g.note("shell chain of 4 nodes (SHELL3) passing the amount through unchanged")
	nodes = []string{
		account("SHELL3_SRC", 1),
		account("SHELL3_MID", 1),
		account("SHELL3_MID", 2),
		account("SHELL3_DST", 1),
	}
	for i := 0; i < len(nodes)-1; i++ {
		g.add(nodes[i], nodes[i+1], 50000.00, g.at(170+float64(i)*0.5))
	}
}

// plantLegitimateTraps embeds merchant, payroll and exchange shapes that the
// false-positive filter must keep out of the results.
func (g *Generator) plantLegitimateTraps() {
	g.note("merchant trap: MERCHANT_0001 receives from 40 customers over 10 days, business hours")
	merchant := account("MERCHANT", 1)
	for i := 1; i <= 40; i++ {
		day := g.rand.Intn(10)
		hour := 9 + g.rand.Intn(9)
		amount := 5.00 + g.rand.Float64()*495
		at := g.cfg.BaseTime.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
		g.add(account("CUST", i), merchant, roundCents(amount), at)
	}

	g.note("payroll trap: PAYROLL_0001 pays 25 employees the same amount monthly for 3 months")
	payroll := account("PAYROLL", 1)
	g.add(account("CORP_FUND", 1), payroll, 200000.00, g.cfg.BaseTime.AddDate(0, 0, -1))
	for month := 0; month < 3; month++ {
		at := g.cfg.BaseTime.AddDate(0, month, 0).Add(10 * time.Hour)
		for i := 1; i <= 25; i++ {
			g.add(payroll, account("EMP", i), 2412.33, at)
		}
	}

	g.note("exchange trap: EXCHANGE_0001 with 30 depositors and 30 withdrawers over a week")
	exchange := account("EXCHANGE", 1)
	for i := 1; i <= 30; i++ {
		at := g.cfg.BaseTime.Add(time.Duration(g.rand.Intn(7*24)) * time.Hour)
		g.add(account("DEPOSITOR", i), exchange, roundCents(50+g.rand.Float64()*5000), at)
	}
	for i := 1; i <= 30; i++ {
		at := g.cfg.BaseTime.Add(time.Duration(g.rand.Intn(7*24)) * time.Hour)
		g.add(exchange, account("WITHDRAWER", i), roundCents(50+g.rand.Float64()*5000), at)
	}
}

// plantBoundaryCases embeds threshold-straddling shapes: a fan-in with
// exactly the minimum counterparty count and one just below it.
func (g *Generator) plantBoundaryCases() {
	g.note("boundary: exactly 10 senders into BOUNDARY_HUB_0001 (at threshold)")
	hub := account("BOUNDARY_HUB", 1)
	for i := 1; i <= 10; i++ {
		g.add(account("BOUNDARY_SRC", i), hub, 9400.00+float64(i)*20, g.at(200+float64(i)*0.3))
	}

	g.note("boundary: only 9 senders into UNDER_HUB_0001 (below threshold, must not trigger)")
	under := account("UNDER_HUB", 1)
	for i := 1; i <= 9; i++ {
		g.add(account("UNDER_SRC", i), under, 9400.00+float64(i)*20, g.at(210+float64(i)*0.3))
	}

	g.note("boundary: single-use pair of isolated accounts")
	g.add(account("ISOLATED", 1), account("ISOLATED", 2), 123.45, g.at(220))
}

// plantNoise scatters random transfers between a pool of ordinary accounts.
func (g *Generator) plantNoise() {
	g.note("%d random noise transfers across %d accounts", g.cfg.NoiseTransactions, g.cfg.NoiseAccounts)
	for i := 0; i < g.cfg.NoiseTransactions; i++ {
		sender := g.rand.Intn(g.cfg.NoiseAccounts) + 1
		receiver := g.rand.Intn(g.cfg.NoiseAccounts) + 1
		if receiver == sender {
			receiver = receiver%g.cfg.NoiseAccounts + 1
		}
		at := g.cfg.BaseTime.Add(time.Duration(g.rand.Intn(30*24*60)) * time.Minute)
		g.add(account("NOISE", sender), account("NOISE", receiver), roundCents(10+g.rand.Float64()*2000), at)
	}
}

func roundCents(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
