package analytics

import (
	"context"
	"strconv"

	"github.com/autosettle/autosettle/internal/sales/deals"
)

// DealSource loads a user's full deal aggregates.
type DealSource interface {
	ListAllByOwner(ctx context.Context, ownerID int64) ([]deals.Deal, error)
}

// Service resolves dashboard aggregates with cache-aware lookups.
type Service struct {
	source DealSource
	cache  *Cache
}

// NewService constructs the analytics service. cache may be nil, in which
// case every read recomputes.
func NewService(source DealSource, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

// GetKPISummary resolves the KPI card for one owner.
func (s *Service) GetKPISummary(ctx context.Context, ownerID int64) (KPISummary, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		records, err := s.source.ListAllByOwner(ctx, ownerID)
		if err != nil {
			return KPISummary{}, err
		}
		return foldKPIs(records), nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return KPISummary{}, err
		}
		return value.(KPISummary), nil
	}

	key, err := s.cache.BuildKey(ctx, "kpi", strconv.FormatInt(ownerID, 10))
	if err != nil {
		return KPISummary{}, err
	}
	var summary KPISummary
	if err := s.cache.FetchJSON(ctx, key, &summary, loader); err != nil {
		return KPISummary{}, err
	}
	return summary, nil
}
