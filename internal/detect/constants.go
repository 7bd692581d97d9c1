package detect

// Operator-tunable detection constants. The values are the calibrated
// defaults; changing them shifts recall/precision trade-offs across the
// whole pipeline, so treat them as a set.
const (
	// Cycle enumeration bounds.
	CycleMin          = 3
	CycleMax          = 5
	CycleMaxResults   = 500
	CycleMaxOutDegree = 30

	// Minimum distinct counterparties before a node is considered a
	// smurfing hub, and the minimum score for a group to be emitted.
	FanThreshold       = 10
	SmurfEmitThreshold = 40.0

	// Shell chains: an interior account qualifies as a shell with at most
	// ShellTxThreshold transactions; chains span ShellMinNodes to
	// ShellMaxNodes accounts and hop amounts may drop by at most
	// ShellMaxDrop.
	ShellTxThreshold = 3
	ShellMinNodes    = 4
	ShellMaxNodes    = 7
	ShellMaxDrop     = 10_000.0

	// High-churn penalty applied during account scoring: accounts with
	// more than FraudPenaltyTxCount transactions and a pass-through rate
	// below FraudPenaltyPassThrough read as busy endpoints, not mules.
	FraudPenaltyTxCount     = 50
	FraudPenaltyPassThrough = 0.3

	// Sliding window used for the velocity signal, in hours.
	VelocityWindowHours = 72
)
