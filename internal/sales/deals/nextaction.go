package deals

import "time"

// Recommended next actions, highest priority first. The resolver returns at
// most one of these per evaluation.
const (
	ActionOverduePayment     = "overdue payment needs confirmation"
	ActionUpcomingPayment    = "upcoming payment needs confirmation"
	ActionSendInitialQuote   = "initial quote must be sent"
	ActionSendFinalQuote     = "final quote must be sent"
	ActionConfirmProgression = "confirm deal progression"
	ActionCollectContract    = "contract must be collected"
	ActionIssueCode          = "code must be issued"
	ActionSubmitReport       = "report must be submitted"
	ActionFinalSettlement    = "final settlement needs confirmation"
)

// upcomingWindow is how far ahead the resolver looks for unpaid schedules
// on ongoing deals.
const upcomingWindow = 7 * 24 * time.Hour

// NextAction resolves the single highest-priority follow-up for a deal, or
// ok=false when nothing is pending. Guards are evaluated top to bottom and
// the first match wins; they are not mutually exclusive, so the order
// encodes business priority and must not be rearranged.
//
// now is injected so date-boundary behaviour is deterministic; it must be
// captured once per evaluation.
func NextAction(d *Deal, now time.Time) (string, bool) {
	outstanding := Settle(QuoteTotal(d.Services), d.PaymentSchedules).Outstanding

	// An overdue payment preempts everything regardless of status.
	for _, p := range d.PaymentSchedules {
		if !p.IsPaid && p.DueDate.Before(now) {
			return ActionOverduePayment, true
		}
	}

	if d.Status == StatusOngoing && outstanding > 0 {
		horizon := now.Add(upcomingWindow)
		for _, p := range d.PaymentSchedules {
			if !p.IsPaid && !p.DueDate.After(horizon) {
				return ActionUpcomingPayment, true
			}
		}
	}

	if d.Status == StatusProspect {
		if !d.Checklist.QuoteInitial {
			return ActionSendInitialQuote, true
		}
		if !d.Checklist.QuoteFinal {
			return ActionSendFinalQuote, true
		}
		// Both quotes sent but the deal was never promoted to ONGOING.
		return ActionConfirmProgression, true
	}

	if d.Status == StatusOngoing {
		if !d.Checklist.ContractReceived {
			return ActionCollectContract, true
		}
		if !d.Checklist.CodeIssued {
			return ActionIssueCode, true
		}
		if !d.Checklist.ReportSubmitted {
			return ActionSubmitReport, true
		}
		// All three flags set: fall through even when outstanding > 0 with
		// no schedules on file.
	}

	if d.Status == StatusCompleted && outstanding > 0 {
		return ActionFinalSettlement, true
	}

	return "", false
}
