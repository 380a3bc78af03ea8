package analytics

import (
	"github.com/autosettle/autosettle/internal/sales/deals"
)

// KPISummary contains the indicators surfaced on the dashboard cards.
// TotalRevenue counts paid schedule amounts across every status; all
// monetary values stay exact integers.
type KPISummary struct {
	TotalRevenue int64          `json:"total_revenue"`
	TotalQuote   int64          `json:"total_quote"`
	Outstanding  int64          `json:"outstanding"`
	OngoingDeals int            `json:"ongoing_deals"`
	StatusCounts map[string]int `json:"status_counts"`
}

// foldKPIs reduces deal aggregates into one summary using the deal
// calculators; the same formulas serve the per-deal views, so the dashboard
// can never drift from the grid.
func foldKPIs(records []deals.Deal) KPISummary {
	summary := KPISummary{StatusCounts: make(map[string]int)}
	for i := range records {
		quote := deals.QuoteTotal(records[i].Services)
		settlement := deals.Settle(quote, records[i].PaymentSchedules)

		summary.TotalQuote += quote
		summary.TotalRevenue += settlement.TotalPaid
		summary.StatusCounts[string(records[i].Status)]++
		if records[i].Status == deals.StatusOngoing {
			summary.OngoingDeals++
		}
	}
	summary.Outstanding = summary.TotalQuote - summary.TotalRevenue
	return summary
}
