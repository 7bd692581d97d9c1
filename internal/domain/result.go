package domain

// SuspiciousAccount is one flagged account in the result snapshot.
type SuspiciousAccount struct {
	AccountID        string   `json:"account_id"`
	SuspicionScore   float64  `json:"suspicion_score"`
	SuspicionLabel   string   `json:"suspicion_label"`
	DetectedPatterns []string `json:"detected_patterns"`
	RingID           string   `json:"ring_id"`
}

// FraudRing is one group of accounts acting jointly. The optional fields are
// populated according to the ring's pattern type.
type FraudRing struct {
	RingID         string      `json:"ring_id"`
	PatternType    PatternType `json:"pattern_type"`
	MemberAccounts []string    `json:"member_accounts"`
	RiskScore      float64     `json:"risk_score"`
	RiskLabel      string      `json:"risk_label"`

	CycleLength       int     `json:"cycle_length,omitempty"`
	ChainLength       int     `json:"chain_length,omitempty"`
	AmountPattern     string  `json:"amount_pattern,omitempty"`
	TemporalWindowHrs float64 `json:"temporal_window_hours,omitempty"`
	AggregatorNode    string  `json:"aggregatorNode,omitempty"`
	DisperserNode     string  `json:"disperserNode,omitempty"`
}

// Summary carries batch-level counters for the result snapshot.
type Summary struct {
	TotalAccountsAnalyzed     int     `json:"total_accounts_analyzed"`
	SuspiciousAccountsFlagged int     `json:"suspicious_accounts_flagged"`
	FraudRingsDetected        int     `json:"fraud_rings_detected"`
	ProcessingTimeSeconds     float64 `json:"processing_time_seconds"`
}

// AnalysisResult is the immutable snapshot returned by one analyze call.
// Accounts are ordered by suspicion score descending; rings preserve
// production order after merging.
type AnalysisResult struct {
	SuspiciousAccounts []SuspiciousAccount `json:"suspicious_accounts"`
	FraudRings         []FraudRing         `json:"fraud_rings"`
	Summary            Summary             `json:"summary"`

	// CycleCapHit reports that cycle enumeration stopped at its result cap.
	// Detection silently truncates; this flag lets the host surface it.
	CycleCapHit bool `json:"-"`
}
