// Command datagen writes a synthetic transaction CSV with planted
// laundering patterns and legitimate-hub traps for end-to-end testing.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/adithya/forensiq/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		seed      = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		noise     = flag.Int("noise", cfg.NoiseTransactions, "number of random noise transfers")
		accounts  = flag.Int("noise-accounts", cfg.NoiseAccounts, "size of the noise account pool")
		outputDir = flag.String("output-dir", "data", "directory to write transactions.csv and scenarios.txt")
	)
	flag.Parse()

	gen := generator.New(generator.Config{
		Seed:              *seed,
		BaseTime:          cfg.BaseTime,
		NoiseTransactions: *noise,
		NoiseAccounts:     *accounts,
	})
	dataset := gen.Generate()

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d transactions (%d scenarios) into %s\n",
		len(dataset.Transactions), len(dataset.Scenarios), *outputDir)
}
