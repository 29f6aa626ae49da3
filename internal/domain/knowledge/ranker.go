package knowledge

import "sort"

// Rank merges candidates from any number of categories into the final
// ordered answer list: stable sort by descending score (ties keep category
// insertion order), then deduplication by originating question so the same
// question never surfaces twice. An empty result means "no answer found".
func Rank(candidates []Candidate) []string {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	seen := make(map[string]struct{}, len(ordered))
	answers := make([]string, 0, len(ordered))
	for _, cand := range ordered {
		if _, dup := seen[cand.Question]; dup {
			continue
		}
		seen[cand.Question] = struct{}{}
		answers = append(answers, cand.Answer)
	}
	return answers
}
