package services

import (
	"context"
	"fmt"
	"strings"

	"townledger/internal/amqp"
	"townledger/internal/core"
	applog "townledger/internal/log"
)

// Registry manages residents and their per-floor family records.
type Registry struct {
	store  ResidentStore
	events EventPublisher
	logger *applog.Logger
}

func NewRegistry(store ResidentStore, events EventPublisher) *Registry {
	return &Registry{
		store:  store,
		events: events,
		logger: applog.Default().WithComponent(applog.ComponentRegistry),
	}
}

// CreateResident validates the resident with its families and stores them
// atomically, returning the new id.
func (s *Registry) CreateResident(ctx context.Context, r core.Resident, families []core.FamilyMember) (int64, error) {
	r = r.Normalize()
	families = core.NormalizeFamilies(families)
	if err := core.ValidateResident(r, families); err != nil {
		return 0, err
	}

	id, err := s.store.CreateResident(ctx, r, families)
	if err != nil {
		return 0, fmt.Errorf("create resident %s: %w", r.HouseNo, err)
	}

	publish(ctx, s.events, s.logger, monthEvent(amqp.ResidentCreated, "", []int64{id}))
	return id, nil
}

// UpdateResident replaces the resident's fields and whole family set.
func (s *Registry) UpdateResident(ctx context.Context, id int64, r core.Resident, families []core.FamilyMember) error {
	r = r.Normalize()
	families = core.NormalizeFamilies(families)
	if err := core.ValidateResident(r, families); err != nil {
		return err
	}

	if err := s.store.UpdateResident(ctx, id, r, families); err != nil {
		return fmt.Errorf("update resident %d: %w", id, err)
	}

	publish(ctx, s.events, s.logger, monthEvent(amqp.ResidentUpdated, "", []int64{id}))
	return nil
}

// DeleteResidents removes the batch with all dependent rows and returns how
// many residents existed. An empty batch is a no-op.
func (s *Registry) DeleteResidents(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.store.DeleteResidents(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete residents: %w", err)
	}
	if n > 0 {
		publish(ctx, s.events, s.logger, monthEvent(amqp.ResidentsDeleted, "", ids))
	}
	return n, nil
}

func (s *Registry) ListResidents(ctx context.Context, filter core.ResidentFilter) ([]core.Resident, error) {
	return s.store.ListResidents(ctx, filter)
}

func (s *Registry) GetResident(ctx context.Context, id int64) (core.Resident, error) {
	return s.store.GetResident(ctx, id)
}

func (s *Registry) GetResidentByHouse(ctx context.Context, houseNo string) (core.Resident, error) {
	houseNo = strings.TrimSpace(houseNo)
	if houseNo == "" {
		return core.Resident{}, &core.ArgumentError{Argument: "house_no", Reason: "must not be empty"}
	}
	return s.store.GetResidentByHouse(ctx, houseNo)
}

func (s *Registry) ListFamilies(ctx context.Context, residentID int64) ([]core.FamilyMember, error) {
	return s.store.ListFamilies(ctx, residentID)
}

// StreetOverview counts houses per street.
func (s *Registry) StreetOverview(ctx context.Context) ([]core.StreetCount, error) {
	return s.store.StreetOverview(ctx)
}
