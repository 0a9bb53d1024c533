package explorer

import (
	"fmt"
	"sort"

	"github.com/utxokit/utxokit/internal/models"
)

// selectTier maps a "confirm within targetBlocks" request onto the discrete
// tiers a provider offers: the slowest (cheapest) tier whose target still
// satisfies the bound, or the fastest tier when the bound is tighter than
// anything offered. With the common tier set {0, 3, 7} that means
// target < 3 -> fastest, 3 <= target < 7 -> medium, target >= 7 -> slowest.
func selectTier(tiers []models.FeeEstimate, targetBlocks int) (*models.FeeEstimate, error) {
	if targetBlocks < 0 {
		return nil, models.NewInvalidArgument("confirmation target cannot be negative: %d", targetBlocks)
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("provider offered no fee tiers")
	}

	sorted := make([]models.FeeEstimate, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TargetBlocks < sorted[j].TargetBlocks
	})

	// Fastest tier as the floor, then walk up while the bound still holds.
	chosen := sorted[0]
	for _, tier := range sorted[1:] {
		if tier.TargetBlocks > targetBlocks {
			break
		}
		chosen = tier
	}
	return &chosen, nil
}
