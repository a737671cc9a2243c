package validation

// Summary partitions a result set for inline display. It is a view over a
// Validate result and holds no state of its own.
type Summary struct {
	Total  int                `json:"total"`
	Counts map[Category]int   `json:"counts"`
	ByKey  map[string][]Error `json:"by_key"`
}

// Summarize builds the per-category counts and the per-key map.
// Errors under one key keep their original order.
func Summarize(errs []Error) Summary {
	s := Summary{
		Total:  len(errs),
		Counts: make(map[Category]int),
		ByKey:  make(map[string][]Error),
	}
	for _, e := range errs {
		s.Counts[e.Category]++
		s.ByKey[e.Key] = append(s.ByKey[e.Key], e)
	}
	return s
}

// Ready reports whether the summary has no findings at all.
func (s Summary) Ready() bool {
	return s.Total == 0
}

// Keys returns the distinct keys of errs in first-seen order.
func Keys(errs []Error) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, e := range errs {
		if !seen[e.Key] {
			seen[e.Key] = true
			keys = append(keys, e.Key)
		}
	}
	return keys
}
