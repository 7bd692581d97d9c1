package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adithya/forensiq/internal/domain"
)

// Header aliases accepted for each logical column, all matched
// case-insensitively after trimming.
var columnAliases = map[string][]string{
	"transaction_id": {"transaction_id", "txn_id", "id"},
	"sender_id":      {"sender_id", "from", "sender", "from_account"},
	"receiver_id":    {"receiver_id", "to", "receiver", "to_account"},
	"amount":         {"amount", "value"},
	"timestamp":      {"timestamp", "time", "date"},
}

// Timestamp layouts tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// SkippedRow records one rejected CSV row with the reason.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result carries the accepted transactions plus per-row rejections. A batch
// with zero accepted rows is still valid; analysis of it yields an empty
// snapshot.
type Result struct {
	Transactions []domain.Transaction
	Skipped      []SkippedRow
}

// ParseCSV reads a transaction batch. The header row is mandatory; rows with
// missing fields, bad amounts, unparseable timestamps, self-transfers or
// duplicate transaction ids are skipped and reported, never fatal.
func ParseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	seenIDs := make(map[string]struct{})
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			res.skip(line, "malformed row")
			continue
		}

		tx, reason := parseRow(record, cols)
		if reason != "" {
			res.skip(line, reason)
			continue
		}
		if _, dup := seenIDs[tx.ID]; dup {
			res.skip(line, "duplicate transaction_id "+tx.ID)
			continue
		}
		seenIDs[tx.ID] = struct{}{}
		res.Transactions = append(res.Transactions, tx)
	}

	return res, nil
}

func (r *Result) skip(line int, reason string) {
	r.Skipped = append(r.Skipped, SkippedRow{Line: line, Reason: reason})
}

// mapColumns resolves the header into column indexes via the alias table.
func mapColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	cols := make(map[string]int, len(columnAliases))
	for logical, aliases := range columnAliases {
		found := false
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				cols[logical] = i
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("missing required column %q (or an alias)", logical)
		}
	}
	return cols, nil
}

func parseRow(record []string, cols map[string]int) (domain.Transaction, string) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	tx := domain.Transaction{
		ID:         field("transaction_id"),
		SenderID:   field("sender_id"),
		ReceiverID: field("receiver_id"),
	}
	if tx.ID == "" || tx.SenderID == "" || tx.ReceiverID == "" {
		return tx, "missing identifier field"
	}
	if tx.SenderID == tx.ReceiverID {
		return tx, "self-transfer"
	}

	rawAmount := field("amount")
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return tx, fmt.Sprintf("invalid amount %q", rawAmount)
	}
	if !amount.IsPositive() {
		return tx, fmt.Sprintf("non-positive amount %q", rawAmount)
	}
	if amount.Exponent() < -2 {
		return tx, fmt.Sprintf("amount %q has sub-cent precision", rawAmount)
	}
	tx.Amount, _ = amount.Float64()

	rawTime := field("timestamp")
	ts, ok := parseTimestamp(rawTime)
	if !ok {
		return tx, fmt.Sprintf("unparseable timestamp %q", rawTime)
	}
	tx.Timestamp = ts

	return tx, ""
}

func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
