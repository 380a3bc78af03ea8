package deals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/autosettle/autosettle/internal/shared"
)

// CacheInvalidator is bumped after every deal mutation so cached dashboard
// aggregates are recomputed on the next read.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service provides business logic for deal operations.
type Service struct {
	repo  Repository
	cache CacheInvalidator
	now   func() time.Time
}

// NewService constructs a deal service. cache may be nil.
func NewService(repo Repository, cache CacheInvalidator) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

// List returns the owner's deals with derived summaries, newest first. One
// timestamp is captured for the whole evaluation so every deal in the page
// is judged against the same instant.
func (s *Service) List(ctx context.Context, ownerID int64, req ListDealsRequest) ([]DealView, shared.Pagination, error) {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 50
	}

	records, total, err := s.repo.List(ctx, ListFilter{
		OwnerID: ownerID,
		Status:  req.Status,
		Limit:   perPage,
		Offset:  (page - 1) * perPage,
	})
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list deals: %w", err)
	}

	now := s.now()
	views := make([]DealView, 0, len(records))
	for i := range records {
		views = append(views, DealView{
			Deal:    records[i],
			Summary: Summarize(&records[i], now),
		})
	}
	return views, shared.NewPagination(page, perPage, total), nil
}

// Get loads one deal with relations and summary.
func (s *Service) Get(ctx context.Context, ownerID int64, id string) (*DealView, error) {
	deal, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get deal: %w", err)
	}
	return &DealView{Deal: *deal, Summary: Summarize(deal, s.now())}, nil
}

// Create inserts a deal aggregate with its nested service lines and payment
// schedules in one transaction.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreateDealRequest) (*DealView, error) {
	status := req.Status
	if status == "" {
		status = StatusProspect
	}

	deal := Deal{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		CompanyName: req.CompanyName,
		ManagerName: req.ManagerName,
		ContactInfo: req.ContactInfo,
		Status:      status,
		Memo:        req.Memo,
		Checklist:   req.Checklist,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Create(ctx, deal); err != nil {
			return fmt.Errorf("create deal: %w", err)
		}
		for _, lineReq := range req.Services {
			line := ServiceLine{DealID: deal.ID, Type: lineReq.Type, Details: lineReq.Details}
			if _, err := repo.InsertServiceLine(ctx, line); err != nil {
				return fmt.Errorf("insert service line: %w", err)
			}
		}
		for _, scheduleReq := range req.PaymentSchedules {
			schedule := PaymentSchedule{
				DealID:      deal.ID,
				DueDate:     scheduleReq.DueDate,
				Amount:      scheduleReq.Amount,
				Description: scheduleReq.Description,
				IsPaid:      scheduleReq.IsPaid,
			}
			if _, err := repo.InsertPaymentSchedule(ctx, schedule); err != nil {
				return fmt.Errorf("insert payment schedule: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bumpCache(ctx)
	return s.Get(ctx, ownerID, deal.ID)
}

// Update patches header fields and, when the request carries services or
// payment schedules, replaces the whole collection: all prior rows are
// deleted and the supplied set recreated.
func (s *Service) Update(ctx context.Context, ownerID int64, id string, req UpdateDealRequest) (*DealView, error) {
	if _, err := s.repo.Get(ctx, ownerID, id); err != nil {
		return nil, fmt.Errorf("get deal: %w", err)
	}

	updates := make(map[string]interface{})
	if req.CompanyName != nil {
		updates["company_name"] = *req.CompanyName
	}
	if req.ManagerName != nil {
		updates["manager_name"] = *req.ManagerName
	}
	if req.ContactInfo != nil {
		raw, err := json.Marshal(*req.ContactInfo)
		if err != nil {
			return nil, fmt.Errorf("marshal contact info: %w", err)
		}
		updates["contact_info"] = raw
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Memo != nil {
		updates["memo"] = *req.Memo
	}
	if req.Checklist != nil {
		raw, err := json.Marshal(*req.Checklist)
		if err != nil {
			return nil, fmt.Errorf("marshal checklists: %w", err)
		}
		updates["checklists"] = raw
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if len(updates) > 0 {
			if err := repo.Update(ctx, ownerID, id, updates); err != nil {
				return fmt.Errorf("update deal: %w", err)
			}
		}
		if req.Services != nil {
			if err := repo.DeleteServiceLines(ctx, id); err != nil {
				return fmt.Errorf("delete service lines: %w", err)
			}
			for _, lineReq := range *req.Services {
				line := ServiceLine{DealID: id, Type: lineReq.Type, Details: lineReq.Details}
				if _, err := repo.InsertServiceLine(ctx, line); err != nil {
					return fmt.Errorf("insert service line: %w", err)
				}
			}
		}
		if req.PaymentSchedules != nil {
			if err := repo.DeletePaymentSchedules(ctx, id); err != nil {
				return fmt.Errorf("delete payment schedules: %w", err)
			}
			for _, scheduleReq := range *req.PaymentSchedules {
				schedule := PaymentSchedule{
					DealID:      id,
					DueDate:     scheduleReq.DueDate,
					Amount:      scheduleReq.Amount,
					Description: scheduleReq.Description,
					IsPaid:      scheduleReq.IsPaid,
				}
				if _, err := repo.InsertPaymentSchedule(ctx, schedule); err != nil {
					return fmt.Errorf("insert payment schedule: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bumpCache(ctx)
	return s.Get(ctx, ownerID, id)
}

// Delete removes a deal; owned service lines and schedules cascade.
func (s *Service) Delete(ctx context.Context, ownerID int64, id string) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete deal: %w", err)
	}
	s.bumpCache(ctx)
	return nil
}

// AddServiceLine appends a single service line to an existing deal.
func (s *Service) AddServiceLine(ctx context.Context, ownerID int64, dealID string, req CreateServiceLineRequest) (*DealView, error) {
	if _, err := s.repo.Get(ctx, ownerID, dealID); err != nil {
		return nil, fmt.Errorf("get deal: %w", err)
	}

	line := ServiceLine{DealID: dealID, Type: req.Type, Details: req.Details}
	if _, err := s.repo.InsertServiceLine(ctx, line); err != nil {
		return nil, fmt.Errorf("insert service line: %w", err)
	}

	s.bumpCache(ctx)
	return s.Get(ctx, ownerID, dealID)
}

// AddPaymentSchedule appends a single payment schedule to an existing deal.
func (s *Service) AddPaymentSchedule(ctx context.Context, ownerID int64, dealID string, req CreatePaymentScheduleRequest) (*DealView, error) {
	if _, err := s.repo.Get(ctx, ownerID, dealID); err != nil {
		return nil, fmt.Errorf("get deal: %w", err)
	}

	schedule := PaymentSchedule{
		DealID:      dealID,
		DueDate:     req.DueDate,
		Amount:      req.Amount,
		Description: req.Description,
		IsPaid:      req.IsPaid,
	}
	if _, err := s.repo.InsertPaymentSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("insert payment schedule: %w", err)
	}

	s.bumpCache(ctx)
	return s.Get(ctx, ownerID, dealID)
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Bump(ctx)
}
