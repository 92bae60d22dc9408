package sources

import (
	"context"

	"github.com/azure/reddit-mentions-listener/internal/models"
)

// Source interface defines the contract for all fetch backends
type Source interface {
	GetName() string
	IsEnabled() bool
	// Search returns the candidate items for criteria. Items are returned in
	// the backend's order with comments attached to their submission.
	Search(ctx context.Context, criteria models.SearchCriteria) ([]models.RawItem, error)
}

const defaultMaxItems = 100

func maxItems(criteria models.SearchCriteria) int {
	if criteria.MaxItems > 0 {
		return criteria.MaxItems
	}
	return defaultMaxItems
}

func deduplicateItems(items []models.RawItem) []models.RawItem {
	seen := make(map[string]bool)
	unique := make([]models.RawItem, 0, len(items))

	for _, item := range items {
		if item.ID != "" {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
		}
		unique = append(unique, item)
	}

	return unique
}
