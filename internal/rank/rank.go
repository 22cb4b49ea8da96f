// Package rank orders values by a fixed preference list, with an optional
// fallback classifier for values that are not in the list.
package rank

// Classifier maps an unknown label to a known one. Returning an empty string
// means the label stays unranked.
type Classifier func(label string) string

// Index returns the position of label in known, or -1 when the label is not
// present and the classifier cannot bucket it. Lower index means earlier in
// the preference order.
func Index(label string, known []string, fallback Classifier) int {
	for i, k := range known {
		if k == label {
			return i
		}
	}
	if fallback == nil {
		return -1
	}
	mapped := fallback(label)
	if mapped == "" || mapped == label {
		return -1
	}
	for i, k := range known {
		if k == mapped {
			return i
		}
	}
	return -1
}

// Best returns the index in candidates of the candidate ranked earliest in
// known, or -1 when none of the candidates can be ranked.
func Best(candidates []string, known []string, fallback Classifier) int {
	best := -1
	bestIdx := -1
	for i, c := range candidates {
		idx := Index(c, known, fallback)
		if idx == -1 {
			continue
		}
		if best == -1 || idx < bestIdx {
			best = i
			bestIdx = idx
		}
	}
	return best
}
