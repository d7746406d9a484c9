package indexing

import "sort"

type keySet map[string]struct{}

func (s keySet) sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// intersect returns the keys present in every set, smallest set first.
func intersect(sets []keySet) []string {
	if len(sets) == 0 {
		return nil
	}
	sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })
	var out []string
	for k := range sets[0] {
		inAll := true
		for _, s := range sets[1:] {
			if _, ok := s[k]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
