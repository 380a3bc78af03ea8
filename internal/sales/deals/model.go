package deals

import (
	"encoding/json"
	"strconv"
	"time"
)

// DealStatus classifies where a deal sits in the pipeline. The core does not
// enforce transitions between statuses; they are set by the caller.
type DealStatus string

const (
	StatusProspect    DealStatus = "PROSPECT"
	StatusOngoing     DealStatus = "ONGOING"
	StatusCarriedOver DealStatus = "CARRIED_OVER"
	StatusCompleted   DealStatus = "COMPLETED"
	StatusHold        DealStatus = "HOLD"
)

// ServiceType determines the pricing formula of a service line.
type ServiceType string

const (
	ServiceTest       ServiceType = "TEST"
	ServiceLecture    ServiceType = "LECTURE"
	ServiceConsulting ServiceType = "CONSULTING"
	ServiceActivity   ServiceType = "ACTIVITY"
	ServiceEtc        ServiceType = "ETC"
	ServiceReport     ServiceType = "REPORT"
)

// ContactInfo holds structured contact details for a deal.
type ContactInfo struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Checklist tracks administrative progress flags on a deal. A missing
// checklist decodes to the zero value, i.e. all flags false.
type Checklist struct {
	QuoteInitial     bool `json:"quoteInitial"`
	QuoteFinal       bool `json:"quoteFinal"`
	ContractSent     bool `json:"contractSent"`
	ContractReceived bool `json:"contractReceived"`
	CodeIssued       bool `json:"codeIssued"`
	ReportSubmitted  bool `json:"reportSubmitted"`
}

// Deal is the root aggregate: a contract record owning its service lines and
// payment schedules (both are removed together with the deal).
type Deal struct {
	ID               string            `json:"id" db:"id"`
	OwnerID          int64             `json:"-" db:"owner_id"`
	CompanyName      string            `json:"company_name" db:"company_name"`
	ManagerName      *string           `json:"manager_name,omitempty" db:"manager_name"`
	ContactInfo      ContactInfo       `json:"contact_info" db:"contact_info"`
	Status           DealStatus        `json:"status" db:"status"`
	Memo             *string           `json:"memo,omitempty" db:"memo"`
	Checklist        Checklist         `json:"checklists" db:"checklists"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
	Services         []ServiceLine     `json:"services" db:"-"`
	PaymentSchedules []PaymentSchedule `json:"payment_schedules" db:"-"`
}

// ServiceLine is one priced line item of work attached to a deal. Multiple
// lines of the same type are allowed; each contributes independently.
type ServiceLine struct {
	ID        int64          `json:"id" db:"id"`
	DealID    string         `json:"deal_id" db:"deal_id"`
	Type      ServiceType    `json:"type" db:"type"`
	Details   ServiceDetails `json:"details" db:"details"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// PaymentSchedule is a single expected or completed payment. Amount is an
// exact integer; monetary fields never use binary floating point.
type PaymentSchedule struct {
	ID          int64     `json:"id" db:"id"`
	DealID      string    `json:"deal_id" db:"deal_id"`
	DueDate     time.Time `json:"due_date" db:"due_date"`
	Amount      int64     `json:"amount" db:"amount"`
	Description *string   `json:"description,omitempty" db:"description"`
	IsPaid      bool      `json:"is_paid" db:"is_paid"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ServiceDetails is the per-type payload of a service line. Only price,
// count and activityCost carry computational weight; the remaining fields
// are descriptive. Unknown or malformed fields degrade to zero values at
// decode time so the calculators never see missing data.
type ServiceDetails struct {
	Price         int64  `json:"price,omitempty"`
	Count         int64  `json:"count,omitempty"`
	ActivityCost  int64  `json:"activityCost,omitempty"`
	Memo          string `json:"memo,omitempty"`
	Target        string `json:"target,omitempty"`
	Duration      string `json:"duration,omitempty"`
	ResultMethod  string `json:"resultMethod,omitempty"`
	Content       string `json:"content,omitempty"`
	Schedule      string `json:"schedule,omitempty"`
	DispatchCount int64  `json:"dispatchCount,omitempty"`
	InPerson      bool   `json:"inPerson,omitempty"`
	Remote        bool   `json:"remote,omitempty"`
	Premium       bool   `json:"premium,omitempty"`
	Standard      bool   `json:"standard,omitempty"`
	SubmitDate    string `json:"submitDate,omitempty"`
}

// UnmarshalJSON applies the tolerant coercion policy once, at construction:
// numeric fields accept JSON numbers or numeric strings and fall back to 0,
// never an error.
func (d *ServiceDetails) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*d = ServiceDetails{}
		return nil
	}
	d.Price = coerceInt64(raw["price"])
	d.Count = coerceInt64(raw["count"])
	d.ActivityCost = coerceInt64(raw["activityCost"])
	d.DispatchCount = coerceInt64(raw["dispatchCount"])
	d.Memo = coerceString(raw["memo"])
	d.Target = coerceString(raw["target"])
	d.Duration = coerceString(raw["duration"])
	d.ResultMethod = coerceString(raw["resultMethod"])
	d.Content = coerceString(raw["content"])
	d.Schedule = coerceString(raw["schedule"])
	d.SubmitDate = coerceString(raw["submitDate"])
	d.InPerson = coerceBool(raw["inPerson"])
	d.Remote = coerceBool(raw["remote"])
	d.Premium = coerceBool(raw["premium"])
	d.Standard = coerceBool(raw["standard"])
	return nil
}

// coerceInt64 keeps integer payloads exact: amounts above 2^53 would lose
// precision through a float64 round-trip, so the float path is only a
// fallback for fractional input.
func coerceInt64(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return int64(f)
		}
		return 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
	}
	return 0
}

func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func coerceBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}
