package domain

import "time"

// Transaction models one validated transfer edge consumed by the pipeline.
// Sender and receiver are opaque account identifiers; the host layer is
// responsible for rejecting self-transfers and non-positive amounts before
// a Transaction is constructed.
type Transaction struct {
	ID         string
	SenderID   string
	ReceiverID string
	Amount     float64
	Timestamp  time.Time
}
