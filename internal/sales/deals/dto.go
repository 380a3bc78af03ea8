package deals

import "time"

// CreateDealRequest carries a full deal aggregate: header fields plus
// optional nested service lines and payment schedules created in one
// transaction.
type CreateDealRequest struct {
	CompanyName      string                         `json:"company_name" validate:"required,max=200"`
	ManagerName      *string                        `json:"manager_name,omitempty" validate:"omitempty,max=100"`
	ContactInfo      ContactInfo                    `json:"contact_info"`
	Status           DealStatus                     `json:"status" validate:"omitempty,oneof=PROSPECT ONGOING CARRIED_OVER COMPLETED HOLD"`
	Memo             *string                        `json:"memo,omitempty"`
	Checklist        Checklist                      `json:"checklists"`
	Services         []CreateServiceLineRequest     `json:"services" validate:"omitempty,dive"`
	PaymentSchedules []CreatePaymentScheduleRequest `json:"payment_schedules" validate:"omitempty,dive"`
}

// CreateServiceLineRequest describes one service line. Type is not limited
// to the known enumeration: unrecognized types fall back to the default
// pricing rule instead of being rejected.
type CreateServiceLineRequest struct {
	Type    ServiceType    `json:"type" validate:"required,max=50"`
	Details ServiceDetails `json:"details"`
}

// CreatePaymentScheduleRequest describes one expected payment.
type CreatePaymentScheduleRequest struct {
	DueDate     time.Time `json:"due_date" validate:"required"`
	Amount      int64     `json:"amount" validate:"gte=0"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	IsPaid      bool      `json:"is_paid"`
}

// UpdateDealRequest updates header fields and optionally replaces the whole
// service line or payment schedule collection. When either array is present
// all prior rows are deleted and the supplied set recreated; this is a
// deliberate replace-on-update, not a diff.
type UpdateDealRequest struct {
	CompanyName      *string                         `json:"company_name,omitempty" validate:"omitempty,max=200"`
	ManagerName      *string                         `json:"manager_name,omitempty" validate:"omitempty,max=100"`
	ContactInfo      *ContactInfo                    `json:"contact_info,omitempty"`
	Status           *DealStatus                     `json:"status,omitempty" validate:"omitempty,oneof=PROSPECT ONGOING CARRIED_OVER COMPLETED HOLD"`
	Memo             *string                         `json:"memo,omitempty"`
	Checklist        *Checklist                      `json:"checklists,omitempty"`
	Services         *[]CreateServiceLineRequest     `json:"services,omitempty" validate:"omitempty,dive"`
	PaymentSchedules *[]CreatePaymentScheduleRequest `json:"payment_schedules,omitempty" validate:"omitempty,dive"`
}

// ListDealsRequest filters and paginates the deal listing.
type ListDealsRequest struct {
	Status  *DealStatus `json:"status,omitempty" validate:"omitempty,oneof=PROSPECT ONGOING CARRIED_OVER COMPLETED HOLD"`
	Page    int         `json:"page" validate:"gte=0"`
	PerPage int         `json:"per_page" validate:"gte=0,lte=200"`
}

// DealView pairs a deal aggregate with its derived summary for API
// responses.
type DealView struct {
	Deal
	Summary DealSummary `json:"summary"`
}
