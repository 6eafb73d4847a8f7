package probe

import (
	"fmt"

	"github.com/okian/vitrine/internal/domain/model"
)

// checkFeed verifies the invariants every assembled feed must hold.
func checkFeed(name string, items []model.ScoredCandidate, target int) error {
	if len(items) > target {
		return fmt.Errorf("%w: %s returned %d items, target %d", ErrInvariant, name, len(items), target)
	}
	seen := make(map[string]int, len(items))
	for i, it := range items {
		if it.ID == "" {
			return fmt.Errorf("%w: %s item %d has no id", ErrInvariant, name, i)
		}
		if prev, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: %s repeats %s at %d and %d", ErrInvariant, name, it.ID, prev, i)
		}
		seen[it.ID] = i
	}
	return nil
}

// checkProductOrder verifies the smart feed is ordered by final score.
func checkProductOrder(items []model.ScoredCandidate) error {
	for i := 1; i < len(items); i++ {
		if items[i].FinalScore > items[i-1].FinalScore {
			return fmt.Errorf("%w: smart feed out of order at %d (%.4f > %.4f)",
				ErrInvariant, i, items[i].FinalScore, items[i-1].FinalScore)
		}
	}
	return nil
}

// checkPersonalized verifies the server agrees on whether the caller is known.
func checkPersonalized(f videoFeed, wantPersonalized bool) error {
	if f.Personalized != wantPersonalized {
		return fmt.Errorf("%w: personalized=%t, want %t", ErrInvariant, f.Personalized, wantPersonalized)
	}
	return nil
}
