package services

import (
	"context"

	"townledger/internal/amqp"
	applog "townledger/internal/log"
)

// publish announces a committed mutation. Failures are logged only: the
// ledger change is already durable and must not be reported as failed.
func publish(ctx context.Context, p EventPublisher, logger *applog.Logger, event *amqp.LedgerEvent) {
	if p == nil {
		logger.DebugContext(ctx, "No event publisher configured, skipping ledger event", applog.FieldEventKind, event.Kind)
		return
	}
	if err := p.PublishLedgerEvent(ctx, event); err != nil {
		fields := applog.NewFields().
			WithOperation(applog.OpPublish).
			WithMonth(event.Month).
			WithFund(event.FundID).
			WithError(err)
		fields[applog.FieldEventKind] = event.Kind
		logger.ErrorContext(ctx, "Failed to publish ledger event", fields.ToSlice()...)
	}
}

func monthEvent(kind amqp.EventKind, month string, residentIDs []int64) *amqp.LedgerEvent {
	e := amqp.NewLedgerEvent(kind)
	e.Month = month
	e.ResidentIDs = residentIDs
	return e
}

func fundEvent(kind amqp.EventKind, fundID int64, month string) *amqp.LedgerEvent {
	e := amqp.NewLedgerEvent(kind)
	e.FundID = fundID
	e.Month = month
	return e
}
