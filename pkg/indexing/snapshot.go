package indexing

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/adfharrison1/neemo/pkg/domain"
)

// RangeEntry is one (value, key) pair of a field's sorted index.
type RangeEntry struct {
	Value float64 `json:"value"`
	Key   string  `json:"key"`
}

// Snapshot is a comparable copy of every index. Key lists are sorted.
type Snapshot struct {
	Equality map[string]map[string][]string `json:"equality"`
	Range    map[string][]RangeEntry        `json:"range"`
	Text     map[string][]string            `json:"text"`
}

// Snapshot copies the current indexes.
func (m *Manager) Snapshot() *Snapshot {
	snap := &Snapshot{
		Equality: make(map[string]map[string][]string, len(m.equality)),
		Range:    make(map[string][]RangeEntry, len(m.ranges)),
		Text:     make(map[string][]string, len(m.text)),
	}
	for field, buckets := range m.equality {
		out := make(map[string][]string, len(buckets))
		for canonical, keys := range buckets {
			out[canonical] = keys.sorted()
		}
		snap.Equality[field] = out
	}
	for field, tree := range m.ranges {
		entries := make([]RangeEntry, 0, tree.Len())
		tree.Ascend(func(it rangeItem) bool {
			entries = append(entries, RangeEntry{Value: it.num, Key: it.key})
			return true
		})
		snap.Range[field] = entries
	}
	for tok, keys := range m.text {
		snap.Text[tok] = keys.sorted()
	}
	return snap
}

// Verify rebuilds indexes from src into a scratch manager and compares them
// with the live ones. A mismatch is reported as ErrIndexInconsistency.
func (m *Manager) Verify(src Scanner) error {
	fresh := NewManager()
	if err := fresh.Rebuild(src); err != nil {
		return err
	}
	live, want := m.Snapshot(), fresh.Snapshot()
	if reflect.DeepEqual(live, want) {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrIndexInconsistency, describeDiff(live, want))
}

func describeDiff(live, want *Snapshot) string {
	for _, field := range unionKeys(live.Equality, want.Equality) {
		if !reflect.DeepEqual(live.Equality[field], want.Equality[field]) {
			return fmt.Sprintf("equality index for field %q differs from stored documents", field)
		}
	}
	for _, field := range unionKeys(live.Range, want.Range) {
		if !reflect.DeepEqual(live.Range[field], want.Range[field]) {
			return fmt.Sprintf("range index for field %q differs from stored documents", field)
		}
	}
	for _, tok := range unionKeys(live.Text, want.Text) {
		if !reflect.DeepEqual(live.Text[tok], want.Text[tok]) {
			return fmt.Sprintf("text index for token %q differs from stored documents", tok)
		}
	}
	return "indexes differ from stored documents"
}

func unionKeys[V any](a, b map[string]V) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
