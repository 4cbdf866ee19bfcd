package services

import (
	"context"
	"fmt"

	"townledger/internal/amqp"
	"townledger/internal/core"
	applog "townledger/internal/log"
)

// Billing records paid amounts per resident and month and derives dues.
// Rates are always supplied by the caller and never stored.
type Billing struct {
	store  BillStore
	events EventPublisher
	logger *applog.Logger
}

func NewBilling(store BillStore, events EventPublisher) *Billing {
	return &Billing{
		store:  store,
		events: events,
		logger: applog.Default().WithComponent(applog.ComponentBilling),
	}
}

// RecordPayments upserts the month's paid amounts for every payment in one
// transaction.
func (s *Billing) RecordPayments(ctx context.Context, month core.Month, payments []core.Payment) error {
	if err := month.Validate(); err != nil {
		return err
	}
	if err := core.ValidatePayments(payments); err != nil {
		return err
	}
	if len(payments) == 0 {
		return nil
	}

	if err := s.store.RecordPayments(ctx, month, payments); err != nil {
		return fmt.Errorf("record payments for %s: %w", month, err)
	}

	ids := make([]int64, len(payments))
	for i, p := range payments {
		ids[i] = p.ResidentID
	}
	publish(ctx, s.events, s.logger, monthEvent(amqp.PaymentsRecorded, month.String(), ids))
	return nil
}

// MonthSheet returns every resident's due, paid and pending amounts for
// month at the given rates.
func (s *Billing) MonthSheet(ctx context.Context, month core.Month, rates core.Rates) (core.DuesReport, error) {
	if err := month.Validate(); err != nil {
		return core.DuesReport{}, err
	}
	if err := core.ValidateRates(rates); err != nil {
		return core.DuesReport{}, err
	}
	residents, paid, err := s.store.MonthSnapshot(ctx, month)
	if err != nil {
		return core.DuesReport{}, fmt.Errorf("month sheet %s: %w", month, err)
	}
	return core.ComputeDues(month, residents, paid, rates), nil
}

func (s *Billing) ListBills(ctx context.Context, month core.Month) ([]core.Bill, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListBills(ctx, month)
}

// CollectionStats summarizes every billed month: dues at rates for the
// current subscribers against what was collected.
func (s *Billing) CollectionStats(ctx context.Context, rates core.Rates) ([]core.MonthCollection, error) {
	if err := core.ValidateRates(rates); err != nil {
		return nil, err
	}
	residents, totals, err := s.store.CollectionSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("collection stats: %w", err)
	}
	return core.SummarizeCollections(residents, totals, rates), nil
}
