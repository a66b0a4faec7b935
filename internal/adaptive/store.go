package adaptive

import "sync"

// WeightStore holds a global weight table plus independent per-grouping-key
// override tables. Reads during fusion see a consistent snapshot; all
// mutation goes through the updater under the store's write lock so the
// renormalization invariant survives concurrent fusion passes.
type WeightStore struct {
	mu        sync.RWMutex
	global    map[string]float64
	overrides map[string]map[string]float64
}

// NewWeightStore creates a store seeded with the given global table
func NewWeightStore(initial map[string]float64) *WeightStore {
	global := make(map[string]float64, len(initial))
	for name, w := range initial {
		global[name] = w
	}
	return &WeightStore{
		global:    global,
		overrides: make(map[string]map[string]float64),
	}
}

// Lookup resolves a weight: the grouping key's override table shadows the
// global table when it carries the name. The second return is false when
// the name is in neither table.
func (s *WeightStore) Lookup(groupingKey, name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if groupingKey != "" {
		if table, ok := s.overrides[groupingKey]; ok {
			if w, ok := table[name]; ok {
				return w, true
			}
		}
	}
	w, ok := s.global[name]
	return w, ok
}

// GlobalSnapshot returns a copy of the global table
func (s *WeightStore) GlobalSnapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTable(s.global)
}

// OverrideSnapshot returns a copy of a grouping key's table
func (s *WeightStore) OverrideSnapshot(groupingKey string) (map[string]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.overrides[groupingKey]
	if !ok {
		return nil, false
	}
	return copyTable(table), true
}

// SetGlobal replaces the global table
func (s *WeightStore) SetGlobal(table map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = copyTable(table)
}

// SetOverride replaces a grouping key's table
func (s *WeightStore) SetOverride(groupingKey string, table map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[groupingKey] = copyTable(table)
}

// EnsureOverride seeds a grouping key's table from the current global table
// at first use and returns a copy of it.
func (s *WeightStore) EnsureOverride(groupingKey string) map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.overrides[groupingKey]
	if !ok {
		table = copyTable(s.global)
		s.overrides[groupingKey] = table
	}
	return copyTable(table)
}

// GroupingKeys returns every grouping key with an override table
func (s *WeightStore) GroupingKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.overrides))
	for key := range s.overrides {
		keys = append(keys, key)
	}
	return keys
}

func copyTable(table map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(table))
	for name, w := range table {
		out[name] = w
	}
	return out
}
