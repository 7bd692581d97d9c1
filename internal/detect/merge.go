package detect

// mergeRings unions rings of identical pattern type whose membership
// overlap exceeds half of the smaller ring, using a disjoint-set over ring
// indices. The merged ring keeps the union of members (stable first-seen
// order) and the kind-specific fields of the earliest ring in its group.
func mergeRings(rings []RawRing) []RawRing {
	if len(rings) <= 1 {
		return rings
	}

	parent := make([]int, len(rings))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Root at the lower index so merged rings inherit the earliest
		// ring's kind-specific fields.
		if ra > rb {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	sets := make([]map[string]struct{}, len(rings))
	for i := range rings {
		sets[i] = rings[i].MemberSet()
	}

	for i := 0; i < len(rings); i++ {
		for j := i + 1; j < len(rings); j++ {
			if rings[i].Pattern != rings[j].Pattern {
				continue
			}
			if membershipOverlap(sets[i], sets[j]) > 0.5 {
				union(i, j)
			}
		}
	}

	// Collect components in root order, preserving production order.
	groups := make(map[int][]int)
	var roots []int
	for i := range rings {
		r := find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}

	merged := make([]RawRing, 0, len(roots))
	for _, root := range roots {
		group := groups[root]
		ring := rings[group[0]]
		ring.Members = append([]string(nil), rings[group[0]].Members...)
		for _, idx := range group[1:] {
			for _, m := range rings[idx].Members {
				ring.appendMember(m)
			}
			if ring.RawScore < rings[idx].RawScore {
				ring.RawScore = rings[idx].RawScore
			}
		}
		merged = append(merged, ring)
	}
	return merged
}

// membershipOverlap is |A ∩ B| / min(|A|, |B|).
func membershipOverlap(a, b map[string]struct{}) float64 {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	if len(small) == 0 {
		return 0
	}
	n := 0
	for m := range small {
		if _, ok := large[m]; ok {
			n++
		}
	}
	return float64(n) / float64(len(small))
}
