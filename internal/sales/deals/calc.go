package deals

import "time"

// QuoteTotal computes the monetary value of a deal's service lines. Pure and
// total: malformed details already decoded to zero, so every line has a
// defined contribution.
//
// Per-line rule by type:
//   - ACTIVITY: the activityCost override (price/count ignored)
//   - ETC, REPORT: flat price (count ignored)
//   - everything else, including unknown types: price x count
func QuoteTotal(lines []ServiceLine) int64 {
	var total int64
	for _, line := range lines {
		total += lineAmount(line)
	}
	return total
}

func lineAmount(line ServiceLine) int64 {
	switch line.Type {
	case ServiceActivity:
		return line.Details.ActivityCost
	case ServiceEtc, ServiceReport:
		return line.Details.Price
	default:
		return line.Details.Price * line.Details.Count
	}
}

// Settlement aggregates the paid and outstanding amounts of a deal.
// Outstanding may be negative when the deal is overpaid; it is surfaced
// as-is, never clamped.
type Settlement struct {
	TotalPaid   int64 `json:"total_paid"`
	Outstanding int64 `json:"outstanding"`
}

// Settle computes the settlement state from a quote and payment schedules.
// Unpaid entries contribute nothing to TotalPaid.
func Settle(quote int64, schedules []PaymentSchedule) Settlement {
	var paid int64
	for _, p := range schedules {
		if p.IsPaid {
			paid += p.Amount
		}
	}
	return Settlement{
		TotalPaid:   paid,
		Outstanding: quote - paid,
	}
}

// DealSummary carries the derived financial state of a deal plus its
// recommended next action. It is computed on read and never stored.
type DealSummary struct {
	Quote       int64   `json:"quote"`
	TotalPaid   int64   `json:"total_paid"`
	Outstanding int64   `json:"outstanding"`
	NextAction  *string `json:"next_action"`
}

// Summarize folds the calculators and the resolver over one deal snapshot.
// now is captured once by the caller and reused for every time comparison
// inside the evaluation.
func Summarize(d *Deal, now time.Time) DealSummary {
	quote := QuoteTotal(d.Services)
	settlement := Settle(quote, d.PaymentSchedules)
	summary := DealSummary{
		Quote:       quote,
		TotalPaid:   settlement.TotalPaid,
		Outstanding: settlement.Outstanding,
	}
	if action, ok := NextAction(d, now); ok {
		summary.NextAction = &action
	}
	return summary
}
