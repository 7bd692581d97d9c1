package generator

import "time"

// Config drives the synthetic transaction generator.
type Config struct {
	// Seed makes the dataset reproducible; zero picks a time-based seed.
	Seed int64
	// BaseTime anchors all planted timestamps.
	BaseTime time.Time
	// NoiseTransactions is the count of random filler transfers between
	// otherwise uninvolved accounts.
	NoiseTransactions int
	// NoiseAccounts is the pool size the noise transfers draw from.
	NoiseAccounts int
}

// DefaultConfig returns baseline settings producing a dataset that exercises
// every detector plus the false-positive traps.
func DefaultConfig() Config {
	return Config{
		Seed:              42,
		BaseTime:          time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC),
		NoiseTransactions: 400,
		NoiseAccounts:     150,
	}
}
