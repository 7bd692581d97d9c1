// Command analyze runs the detection pipeline over a CSV file offline and
// writes the result as JSON, without a running server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/adithya/forensiq/internal/config"
	"github.com/adithya/forensiq/internal/detect"
	"github.com/adithya/forensiq/internal/ingest"
	"github.com/adithya/forensiq/internal/logging"
)

func main() {
	_ = godotenv.Load()

	var (
		input  = flag.String("input", "", "path to the transactions CSV file")
		output = flag.String("output", "", "path to write the JSON result (default stdout)")
	)
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -input transactions.csv [-output result.json]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging).With("component", "analyze")

	file, err := os.Open(*input)
	if err != nil {
		logger.Error("failed to open input", "error", err, "path", *input)
		os.Exit(1)
	}
	defer file.Close()

	parsed, err := ingest.ParseCSV(file)
	if err != nil {
		logger.Error("failed to parse csv", "error", err, "path", *input)
		os.Exit(1)
	}
	for _, row := range parsed.Skipped {
		logger.Warn("skipped row", "line", row.Line, "reason", row.Reason)
	}

	analyzer := detect.NewAnalyzer(logger, detect.WithLocation(cfg.Analysis.Location()))
	result, err := analyzer.Analyze(parsed.Transactions)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *output != "" {
		out, err = os.Create(*output)
		if err != nil {
			logger.Error("failed to create output", "error", err, "path", *output)
			os.Exit(1)
		}
		defer out.Close()
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.Error("failed to encode result", "error", err)
		os.Exit(1)
	}

	logger.Info("analysis complete",
		"transactions", len(parsed.Transactions),
		"accounts", result.Summary.TotalAccountsAnalyzed,
		"flagged", result.Summary.SuspiciousAccountsFlagged,
		"rings", result.Summary.FraudRingsDetected,
	)
}
