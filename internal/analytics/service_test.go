package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/autosettle/autosettle/internal/sales/deals"
)

type stubSource struct {
	records []deals.Deal
	calls   int
}

func (s *stubSource) ListAllByOwner(ctx context.Context, ownerID int64) ([]deals.Deal, error) {
	s.calls++
	return s.records, nil
}

func sampleDeals() []deals.Deal {
	return []deals.Deal{
		{
			Status: deals.StatusOngoing,
			Services: []deals.ServiceLine{
				{Type: deals.ServiceTest, Details: deals.ServiceDetails{Price: 100, Count: 3}},
				{Type: deals.ServiceActivity, Details: deals.ServiceDetails{ActivityCost: 500}},
			},
			PaymentSchedules: []deals.PaymentSchedule{
				{Amount: 400, IsPaid: true},
				{Amount: 400, IsPaid: false},
			},
		},
		{
			Status: deals.StatusCompleted,
			Services: []deals.ServiceLine{
				{Type: deals.ServiceReport, Details: deals.ServiceDetails{Price: 250, Count: 10}},
			},
			PaymentSchedules: []deals.PaymentSchedule{
				{Amount: 250, IsPaid: true},
			},
		},
		{Status: deals.StatusHold},
	}
}

func TestGetKPISummaryFold(t *testing.T) {
	source := &stubSource{records: sampleDeals()}
	svc := NewService(source, nil)

	summary, err := svc.GetKPISummary(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, int64(1050), summary.TotalQuote)
	require.Equal(t, int64(650), summary.TotalRevenue)
	require.Equal(t, int64(400), summary.Outstanding)
	require.Equal(t, 1, summary.OngoingDeals)
	require.Equal(t, map[string]int{"ONGOING": 1, "COMPLETED": 1, "HOLD": 1}, summary.StatusCounts)
}

func TestGetKPISummaryEmpty(t *testing.T) {
	svc := NewService(&stubSource{}, nil)

	summary, err := svc.GetKPISummary(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(0), summary.TotalQuote)
	require.Equal(t, int64(0), summary.Outstanding)
	require.Empty(t, summary.StatusCounts)
}

func TestGetKPISummaryCachesUntilBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)

	source := &stubSource{records: sampleDeals()}
	svc := NewService(source, cache)
	ctx := context.Background()

	first, err := svc.GetKPISummary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, source.calls)

	// Second read is served from cache.
	second, err := svc.GetKPISummary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, source.calls)

	// A mutation bumps the version and forces a recompute.
	require.NoError(t, cache.Bump(ctx))
	source.records = source.records[:1]

	third, err := svc.GetKPISummary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, source.calls)
	require.Equal(t, int64(800), third.TotalQuote)
}
