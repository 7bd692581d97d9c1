package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVAcceptsCanonicalHeader(t *testing.T) {
	const body = `transaction_id,sender_id,receiver_id,amount,timestamp
TXN_00001,ACC_A,ACC_B,1500.50,2025-01-15 08:00:00
TXN_00002,ACC_B,ACC_C,900,2025-01-15 09:30:00
`
	res, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Empty(t, res.Skipped)

	tx := res.Transactions[0]
	assert.Equal(t, "TXN_00001", tx.ID)
	assert.Equal(t, "ACC_A", tx.SenderID)
	assert.Equal(t, "ACC_B", tx.ReceiverID)
	assert.Equal(t, 1500.50, tx.Amount)
	assert.Equal(t, time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC), tx.Timestamp)
}

func TestParseCSVResolvesHeaderAliases(t *testing.T) {
	const body = `ID,From,To,Value,Time
T1,A,B,100,2025-01-15T08:00:00Z
`
	res, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "A", res.Transactions[0].SenderID)
	assert.Equal(t, "B", res.Transactions[0].ReceiverID)
}

func TestParseCSVMissingColumnFails(t *testing.T) {
	const body = `transaction_id,sender_id,amount,timestamp
T1,A,100,2025-01-15 08:00:00
`
	_, err := ParseCSV(strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "receiver_id")
}

func TestParseCSVSkipsBadRows(t *testing.T) {
	const body = `transaction_id,sender_id,receiver_id,amount,timestamp
T1,A,A,100,2025-01-15 08:00:00
T2,A,B,abc,2025-01-15 08:00:00
T3,A,B,-5,2025-01-15 08:00:00
T4,A,B,10.999,2025-01-15 08:00:00
T5,A,B,100,yesterday
T6,,B,100,2025-01-15 08:00:00
T7,A,B,100,2025-01-15 08:00:00
T7,A,C,200,2025-01-15 09:00:00
`
	res, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "T7", res.Transactions[0].ID)

	reasons := make(map[int]string, len(res.Skipped))
	for _, s := range res.Skipped {
		reasons[s.Line] = s.Reason
	}
	assert.Equal(t, "self-transfer", reasons[2])
	assert.Contains(t, reasons[3], "invalid amount")
	assert.Contains(t, reasons[4], "non-positive amount")
	assert.Contains(t, reasons[5], "sub-cent precision")
	assert.Contains(t, reasons[6], "unparseable timestamp")
	assert.Equal(t, "missing identifier field", reasons[7])
	assert.Contains(t, reasons[9], "duplicate transaction_id")
}

func TestParseCSVAlternateTimestampLayouts(t *testing.T) {
	const body = `transaction_id,sender_id,receiver_id,amount,timestamp
T1,A,B,100,2025-01-15T08:00:00Z
T2,A,B,100,2025-01-16
`
	res, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC), res.Transactions[1].Timestamp)
}

func TestParseCSVEmptyFile(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
}

func TestParseCSVHeaderOnlyYieldsEmptyBatch(t *testing.T) {
	const body = `transaction_id,sender_id,receiver_id,amount,timestamp
`
	res, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	assert.Empty(t, res.Skipped)
}

func TestParseCSVAllRowsFilteredYieldsEmptyBatch(t *testing.T) {
	const body = `transaction_id,sender_id,receiver_id,amount,timestamp
T1,A,A,100,2025-01-15 08:00:00
`
	res, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "self-transfer", res.Skipped[0].Reason)
}
