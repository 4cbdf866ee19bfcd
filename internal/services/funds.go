package services

import (
	"context"
	"fmt"

	"townledger/internal/amqp"
	"townledger/internal/core"
	applog "townledger/internal/log"
)

// Funds manages named monthly community funds and resident contributions.
type Funds struct {
	store  FundStore
	events EventPublisher
	logger *applog.Logger
}

func NewFunds(store FundStore, events EventPublisher) *Funds {
	return &Funds{
		store:  store,
		events: events,
		logger: applog.Default().WithComponent(applog.ComponentFunds),
	}
}

// GetOrCreateFund returns the fund keyed by (title, month), creating it on
// first use.
func (s *Funds) GetOrCreateFund(ctx context.Context, title string, month core.Month) (int64, error) {
	title, err := core.ValidateFundKey(title, month)
	if err != nil {
		return 0, err
	}
	id, created, err := s.store.GetOrCreateFund(ctx, title, month)
	if err != nil {
		return 0, fmt.Errorf("get or create fund %q: %w", title, err)
	}
	if created {
		publish(ctx, s.events, s.logger, fundEvent(amqp.FundCreated, id, month.String()))
	}
	return id, nil
}

func (s *Funds) GetFund(ctx context.Context, fundID int64) (core.Fund, error) {
	return s.store.GetFund(ctx, fundID)
}

// UpsertContribution sets one resident's contribution; a nil or
// non-positive amount removes it.
func (s *Funds) UpsertContribution(ctx context.Context, fundID, residentID int64, amount *core.Money) error {
	if err := s.store.UpsertContribution(ctx, fundID, residentID, amount); err != nil {
		return fmt.Errorf("upsert contribution: %w", err)
	}
	e := fundEvent(amqp.ContributionsSaved, fundID, "")
	e.ResidentIDs = []int64{residentID}
	publish(ctx, s.events, s.logger, e)
	return nil
}

// SaveContributionBatch applies a whole contribution sheet. Nothing is
// written when any ticked row lacks a positive amount.
func (s *Funds) SaveContributionBatch(ctx context.Context, fundID int64, rows []core.ContributionRow) error {
	if err := core.ValidateContributionRows(rows); err != nil {
		return err
	}
	if err := s.store.SaveContributionBatch(ctx, fundID, rows); err != nil {
		return fmt.Errorf("save contributions for fund %d: %w", fundID, err)
	}
	publish(ctx, s.events, s.logger, fundEvent(amqp.ContributionsSaved, fundID, ""))
	return nil
}

// DeleteFund removes the fund with all of its contributions.
func (s *Funds) DeleteFund(ctx context.Context, fundID int64) error {
	if err := s.store.DeleteFund(ctx, fundID); err != nil {
		return fmt.Errorf("delete fund %d: %w", fundID, err)
	}
	publish(ctx, s.events, s.logger, fundEvent(amqp.FundDeleted, fundID, ""))
	return nil
}

func (s *Funds) Summary(ctx context.Context) ([]core.FundSummary, error) {
	return s.store.FundSummary(ctx)
}

func (s *Funds) ListContributions(ctx context.Context, fundID int64) ([]core.Contribution, error) {
	return s.store.ListContributions(ctx, fundID)
}

// ContributionSheet lists every resident with its current contribution.
func (s *Funds) ContributionSheet(ctx context.Context, fundID int64) ([]core.ContributionRow, error) {
	return s.store.ContributionSheet(ctx, fundID)
}
