package domain

// PatternType is the closed enumeration of structural fraud patterns.
type PatternType string

const (
	PatternCycle        PatternType = "cycle"
	PatternFanIn        PatternType = "fan_in"
	PatternFanOut       PatternType = "fan_out"
	PatternFanInFanOut  PatternType = "fan_in_fan_out"
	PatternShellNetwork PatternType = "shell_network"
)

// Account-level pattern tags attached by the detectors.
const (
	TagFanIn         = "fan_in"
	TagFanOut        = "fan_out"
	TagShellInterior = "shell_intermediary"
	TagShellEndpoint = "shell_network_endpoint"
)

// Shell chain amount-pattern classifications.
const (
	AmountPatternPassthrough = "exact_passthrough"
	AmountPatternDecay       = "gradual_decay"
	AmountPatternMixed       = "mixed"
)

// SuspicionLabel maps an account suspicion score to its operator-facing label.
func SuspicionLabel(score float64) string {
	switch {
	case score >= 75:
		return "High Risk"
	case score >= 50:
		return "Suspicious"
	case score >= 20:
		return "Monitor"
	default:
		return "Stable / Merchant"
	}
}

// RiskLabel maps a ring risk score to its operator-facing label.
func RiskLabel(score float64) string {
	switch {
	case score >= 80:
		return "Critical"
	case score >= 60:
		return "High"
	case score >= 40:
		return "Medium"
	default:
		return "Low"
	}
}
