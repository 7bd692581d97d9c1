package detect

import "github.com/adithya/forensiq/internal/domain"

// RawRing is a detector finding before filtering, merging and scoring.
// Members is a set held in stable production order; the hub fields are only
// meaningful for the smurfing patterns.
type RawRing struct {
	Pattern domain.PatternType
	Members []string

	HubIn  string
	HubOut string

	TimeWindowHours float64
	HasTimeWindow   bool

	RawScore float64

	CycleLength   int
	ChainLength   int
	AmountPattern string
}

// MemberSet returns the membership as a lookup set.
func (r *RawRing) MemberSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Members))
	for _, m := range r.Members {
		set[m] = struct{}{}
	}
	return set
}

// appendMember adds id to the membership unless already present, keeping
// set semantics with stable order.
func (r *RawRing) appendMember(id string) {
	for _, m := range r.Members {
		if m == id {
			return
		}
	}
	r.Members = append(r.Members, id)
}
