package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/autosettle/autosettle/internal/sales/deals"
)

// ReminderSource loads every deal together with its owner's email address.
type ReminderSource interface {
	ListWithOwners(ctx context.Context) ([]deals.DealWithOwner, error)
}

// ReminderMailer enqueues reminder emails produced by the scan.
type ReminderMailer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// ReminderScanner walks all deals once a day and queues payment reminder
// emails for owners whose next action is a payment follow-up.
type ReminderScanner struct {
	source ReminderSource
	mailer ReminderMailer
	logger *slog.Logger
	now    func() time.Time
}

// NewReminderScanner constructs the scanner.
func NewReminderScanner(source ReminderSource, mailer ReminderMailer, logger *slog.Logger) *ReminderScanner {
	return &ReminderScanner{source: source, mailer: mailer, logger: logger, now: time.Now}
}

// HandlePaymentScan processes TaskTypePaymentScan tasks. A single reference
// time is captured up front so every deal in the batch is judged consistently.
func (s *ReminderScanner) HandlePaymentScan(ctx context.Context, t *asynq.Task) error {
	now := s.now()
	records, err := s.source.ListWithOwners(ctx)
	if err != nil {
		return err
	}

	printer := message.NewPrinter(language.Korean)
	queued := 0
	for i := range records {
		record := &records[i]
		action, ok := deals.NextAction(&record.Deal, now)
		if !ok {
			continue
		}
		if action != deals.ActionOverduePayment && action != deals.ActionUpcomingPayment {
			continue
		}

		summary := deals.Settle(deals.QuoteTotal(record.Services), record.PaymentSchedules)
		payload := SendEmailPayload{
			To:      record.OwnerEmail,
			Subject: "[Payment] " + record.CompanyName + ": " + action,
			Body: printer.Sprintf("Deal %s with %s has an outstanding balance of KRW %d.",
				record.ID, record.CompanyName, summary.Outstanding),
		}
		if _, err := s.mailer.EnqueueSendEmail(ctx, payload); err != nil {
			s.logger.Warn("enqueue payment reminder",
				slog.String("deal_id", record.ID), slog.Any("error", err))
			continue
		}
		queued++
	}

	s.logger.Info("payment scan finished",
		slog.Int("deals", len(records)), slog.Int("reminders", queued))
	return nil
}
