package generator

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const timestampLayout = "2006-01-02 15:04:05"

// WriteDataset serializes the dataset into transactions.csv and
// scenarios.txt under the provided directory.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(dir, "transactions.csv")
	if err := writeCSV(csvPath, dataset); err != nil {
		return err
	}

	notesPath := filepath.Join(dir, "scenarios.txt")
	notes := strings.Join(dataset.Scenarios, "\n") + "\n"
	if err := os.WriteFile(notesPath, []byte(notes), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", notesPath, err)
	}

	return nil
}

func writeCSV(path string, dataset Dataset) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"transaction_id", "sender_id", "receiver_id", "amount", "timestamp"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range dataset.Transactions {
		record := []string{
			tx.ID,
			tx.SenderID,
			tx.ReceiverID,
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Timestamp.Format(timestampLayout),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %s: %w", tx.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv for %s: %w", path, err)
	}
	return nil
}
