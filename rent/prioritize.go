package rent

import "sort"

// =============================================================================
// GAP PRIORITIZER
// =============================================================================

// Prioritize orders gaps for collection: by Priority ascending (nil last),
// then oldest cycle first. The sort is stable, so gaps that tie on both keys
// keep their input order. The first element is the recommended gap.
// The input slice is not modified.
func Prioritize(gaps []Gap) []Gap {
	out := make([]Gap, len(gaps))
	copy(out, gaps)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Priority, out[j].Priority
		switch {
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		case pi != nil && pj != nil && *pi != *pj:
			return *pi < *pj
		}
		return out[i].Cycle.Start.Before(out[j].Cycle.Start)
	})
	return out
}

// ApplyPriorityHints returns a copy of gaps with externally supplied
// priorities (keyed by cycle ID) attached.
func ApplyPriorityHints(gaps []Gap, hints map[string]int) []Gap {
	out := make([]Gap, len(gaps))
	copy(out, gaps)
	for i := range out {
		if p, ok := hints[out[i].CycleID]; ok {
			p := p
			out[i].Priority = &p
		}
	}
	return out
}
