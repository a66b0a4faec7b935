package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/yourusername/tipfusion/internal/models"
)

func noopEngine(name string) Engine {
	return EngineFunc{
		EngineName: name,
		Fn: func(context.Context, models.MatchContext) (models.ScoringOutput, error) {
			return models.ScoringOutput{}, nil
		},
	}
}

func TestRegisterUnknownCategory(t *testing.T) {
	r := NewRegistry(DefaultBaseWeights())
	err := r.Register("astrology", noopEngine("stars-1"))
	if !errors.Is(err, models.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	r := NewRegistry(DefaultBaseWeights())
	if err := r.Register("sharp", noopEngine("eng-1")); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	err := r.Register("deep", noopEngine("eng-1"))
	if !errors.Is(err, models.ErrEngineAlreadyRegistered) {
		t.Fatalf("expected ErrEngineAlreadyRegistered, got %v", err)
	}
}

func TestRegistrationsPreserveOrder(t *testing.T) {
	r := NewRegistry(DefaultBaseWeights())
	names := []string{"c-eng", "a-eng", "b-eng"}
	categories := []string{"sharp", "deep", "sharp"}
	for i, name := range names {
		if err := r.Register(categories[i], noopEngine(name)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	regs := r.Registrations()
	if len(regs) != 3 {
		t.Fatalf("expected 3 registrations, got %d", len(regs))
	}
	for i, reg := range regs {
		if reg.Engine.Name() != names[i] {
			t.Fatalf("position %d: expected %s, got %s", i, names[i], reg.Engine.Name())
		}
		if reg.Category != categories[i] {
			t.Fatalf("position %d: expected category %s, got %s", i, categories[i], reg.Category)
		}
	}
}

func TestCategoryEngines(t *testing.T) {
	r := NewRegistry(DefaultBaseWeights())
	_ = r.Register("sharp", noopEngine("s1"))
	_ = r.Register("sharp", noopEngine("s2"))
	_ = r.Register("meta", noopEngine("m1"))

	byCategory := r.CategoryEngines()
	if len(byCategory["sharp"]) != 2 {
		t.Fatalf("expected 2 sharp engines, got %d", len(byCategory["sharp"]))
	}
	if len(byCategory["meta"]) != 1 {
		t.Fatalf("expected 1 meta engine, got %d", len(byCategory["meta"]))
	}

	if cat, ok := r.CategoryOf("s2"); !ok || cat != "sharp" {
		t.Fatalf("expected s2 in sharp, got %s (%v)", cat, ok)
	}
}

func TestDefaultBaseWeightsSumToOne(t *testing.T) {
	total := 0.0
	for _, w := range DefaultBaseWeights() {
		total += w
	}
	if total < 0.999999 || total > 1.000001 {
		t.Fatalf("base weights sum %.6f, expected 1.0", total)
	}
}
