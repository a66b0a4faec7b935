package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/yourusername/tipfusion/internal/models"
)

// DefaultBaseWeights returns the accepted category weight split. Categories
// with no registered engines simply contribute nothing to fusion.
func DefaultBaseWeights() map[string]float64 {
	return map[string]float64{
		"sharp":       0.30,
		"deep":        0.25,
		"statistical": 0.20,
		"ml":          0.10,
		"rating":      0.07,
		"rl":          0.05,
		"meta":        0.03,
	}
}

// Registration pairs an engine with its category for fusion dispatch
type Registration struct {
	Engine   Engine
	Category string
}

// Registry groups engines into named categories with static base weights.
// Engines are registered explicitly at startup; there is no runtime
// discovery. Safe for concurrent reads after startup.
type Registry struct {
	mu          sync.RWMutex
	baseWeights map[string]float64
	categories  map[string][]Engine
	byName      map[string]string // engine name -> category
	order       []string          // registration order of engine names
}

// NewRegistry creates a registry over the given category base weights
func NewRegistry(baseWeights map[string]float64) *Registry {
	weights := make(map[string]float64, len(baseWeights))
	for cat, w := range baseWeights {
		weights[cat] = w
	}
	return &Registry{
		baseWeights: weights,
		categories:  make(map[string][]Engine),
		byName:      make(map[string]string),
	}
}

// Register adds an engine under a category. The category must carry a base
// weight; registering the same engine name twice is an error.
func (r *Registry) Register(category string, eng Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.baseWeights[category]; !ok {
		return fmt.Errorf("register %q: %w: %s", eng.Name(), models.ErrUnknownCategory, category)
	}
	if _, ok := r.byName[eng.Name()]; ok {
		return fmt.Errorf("register %q: %w", eng.Name(), models.ErrEngineAlreadyRegistered)
	}

	r.categories[category] = append(r.categories[category], eng)
	r.byName[eng.Name()] = category
	r.order = append(r.order, eng.Name())
	return nil
}

// Registrations returns every registered engine with its category, in
// registration order. The slice is a copy.
func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]Registration, 0, len(r.order))
	for _, name := range r.order {
		category := r.byName[name]
		for _, eng := range r.categories[category] {
			if eng.Name() == name {
				regs = append(regs, Registration{Engine: eng, Category: category})
				break
			}
		}
	}
	return regs
}

// EngineNames returns all registered engine names in registration order
func (r *Registry) EngineNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// CategoryOf returns the category an engine was registered under
func (r *Registry) CategoryOf(engineName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cat, ok := r.byName[engineName]
	return cat, ok
}

// Categories returns the configured category names, sorted
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cats := make([]string, 0, len(r.baseWeights))
	for cat := range r.baseWeights {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// CategoryEngines returns category name -> engine names, for category-level
// weight updates.
func (r *Registry) CategoryEngines() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.categories))
	for cat, engines := range r.categories {
		names := make([]string, 0, len(engines))
		for _, eng := range engines {
			names = append(names, eng.Name())
		}
		out[cat] = names
	}
	return out
}

// BaseWeights returns a copy of the category base weight table
func (r *Registry) BaseWeights() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	weights := make(map[string]float64, len(r.baseWeights))
	for cat, w := range r.baseWeights {
		weights[cat] = w
	}
	return weights
}

// Size returns the number of registered engines
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
