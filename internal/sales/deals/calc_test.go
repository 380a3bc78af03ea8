package deals

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func line(t ServiceType, details ServiceDetails) ServiceLine {
	return ServiceLine{Type: t, Details: details}
}

func TestQuoteTotalPerTypeFormula(t *testing.T) {
	cases := []struct {
		name string
		line ServiceLine
		want int64
	}{
		{
			name: "activity uses activityCost and ignores price and count",
			line: line(ServiceActivity, ServiceDetails{ActivityCost: 500, Price: 999, Count: 999}),
			want: 500,
		},
		{
			name: "report uses flat price and ignores count",
			line: line(ServiceReport, ServiceDetails{Price: 250, Count: 10}),
			want: 250,
		},
		{
			name: "etc uses flat price",
			line: line(ServiceEtc, ServiceDetails{Price: 120, Count: 4}),
			want: 120,
		},
		{
			name: "test uses price times count",
			line: line(ServiceTest, ServiceDetails{Price: 100, Count: 3}),
			want: 300,
		},
		{
			name: "lecture with empty details contributes zero",
			line: line(ServiceLecture, ServiceDetails{}),
			want: 0,
		},
		{
			name: "unknown type falls back to price times count",
			line: line(ServiceType("WORKSHOP"), ServiceDetails{Price: 50, Count: 2}),
			want: 100,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, QuoteTotal([]ServiceLine{tc.line}))
		})
	}
}

func TestQuoteTotalAdditivity(t *testing.T) {
	a := []ServiceLine{
		line(ServiceTest, ServiceDetails{Price: 100, Count: 3}),
		line(ServiceActivity, ServiceDetails{ActivityCost: 500}),
	}
	b := []ServiceLine{
		line(ServiceReport, ServiceDetails{Price: 250}),
		line(ServiceTest, ServiceDetails{Price: 100, Count: 3}),
	}

	require.Equal(t, QuoteTotal(a)+QuoteTotal(b), QuoteTotal(append(append([]ServiceLine{}, a...), b...)))
}

func TestQuoteTotalSameTypeLinesAreNotMerged(t *testing.T) {
	lines := []ServiceLine{
		line(ServiceLecture, ServiceDetails{Price: 200, Count: 2}),
		line(ServiceLecture, ServiceDetails{Price: 200, Count: 2}),
	}
	require.Equal(t, int64(800), QuoteTotal(lines))
}

func TestQuoteTotalEmpty(t *testing.T) {
	require.Equal(t, int64(0), QuoteTotal(nil))
}

func TestSettle(t *testing.T) {
	schedules := []PaymentSchedule{
		{Amount: 400, IsPaid: true},
		{Amount: 600, IsPaid: false},
	}
	got := Settle(1000, schedules)
	require.Equal(t, int64(400), got.TotalPaid)
	require.Equal(t, int64(600), got.Outstanding)
}

func TestSettleOverpaymentStaysNegative(t *testing.T) {
	schedules := []PaymentSchedule{
		{Amount: 700, IsPaid: true},
		{Amount: 500, IsPaid: true},
	}
	got := Settle(1000, schedules)
	require.Equal(t, int64(1200), got.TotalPaid)
	require.Equal(t, int64(-200), got.Outstanding)
}

func TestSettleEmptySchedules(t *testing.T) {
	got := Settle(1000, nil)
	require.Equal(t, int64(0), got.TotalPaid)
	require.Equal(t, int64(1000), got.Outstanding)
}

func TestServiceDetailsTolerantDecode(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want ServiceDetails
	}{
		{
			name: "numbers decode as integers",
			raw:  `{"price": 100, "count": 3, "activityCost": 500}`,
			want: ServiceDetails{Price: 100, Count: 3, ActivityCost: 500},
		},
		{
			name: "numeric strings are accepted",
			raw:  `{"price": "250", "count": "4"}`,
			want: ServiceDetails{Price: 250, Count: 4},
		},
		{
			name: "garbage numerics coerce to zero",
			raw:  `{"price": "abc", "count": null, "activityCost": {"nested": true}}`,
			want: ServiceDetails{},
		},
		{
			name: "descriptive fields survive",
			raw:  `{"target": "middle school", "inPerson": true, "dispatchCount": 2}`,
			want: ServiceDetails{Target: "middle school", InPerson: true, DispatchCount: 2},
		},
		{
			name: "non-object payload decodes to zero value",
			raw:  `"oops"`,
			want: ServiceDetails{},
		},
		{
			// Amounts above 2^53 must not round-trip through float64.
			name: "large integers stay exact",
			raw:  `{"price": 9007199254740993, "activityCost": "9007199254740995"}`,
			want: ServiceDetails{Price: 9007199254740993, ActivityCost: 9007199254740995},
		},
		{
			name: "fractional values truncate",
			raw:  `{"price": 12.9, "count": "3.5"}`,
			want: ServiceDetails{Price: 12, Count: 3},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got ServiceDetails
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &got))
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	d := &Deal{
		Status: StatusOngoing,
		Services: []ServiceLine{
			line(ServiceConsulting, ServiceDetails{Price: 500, Count: 2}),
		},
		PaymentSchedules: []PaymentSchedule{
			{Amount: 400, IsPaid: true, DueDate: now.AddDate(0, 0, -30)},
			{Amount: 600, IsPaid: false, DueDate: now.AddDate(0, 0, 3)},
		},
		Checklist: Checklist{ContractReceived: true, CodeIssued: true, ReportSubmitted: true},
	}

	got := Summarize(d, now)
	require.Equal(t, int64(1000), got.Quote)
	require.Equal(t, int64(400), got.TotalPaid)
	require.Equal(t, int64(600), got.Outstanding)
	require.NotNil(t, got.NextAction)
	require.Equal(t, ActionUpcomingPayment, *got.NextAction)
}

func TestSummarizeNoAction(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	d := &Deal{
		Status: StatusHold,
	}
	got := Summarize(d, now)
	require.Equal(t, int64(0), got.Quote)
	require.Nil(t, got.NextAction)
}
