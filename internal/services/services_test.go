package services

import (
	"context"
	"errors"
	"testing"

	"townledger/internal/amqp"
	"townledger/internal/core"
)

type fakePublisher struct {
	events []*amqp.LedgerEvent
	err    error
}

func (p *fakePublisher) PublishLedgerEvent(_ context.Context, e *amqp.LedgerEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) kinds() []amqp.EventKind {
	out := make([]amqp.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

// fakeStore implements every store port with canned answers.
type fakeStore struct {
	calls int

	nextID    int64
	deleted   int64
	residents []core.Resident
	paid      map[int64]core.ServiceAmounts
	months    []core.Month
	created   bool
	err       error

	stored   core.Resident
	families []core.FamilyMember
	house    string
}

func (f *fakeStore) CreateResident(_ context.Context, r core.Resident, families []core.FamilyMember) (int64, error) {
	f.calls++
	f.stored, f.families = r, families
	return f.nextID, f.err
}

func (f *fakeStore) UpdateResident(_ context.Context, _ int64, r core.Resident, families []core.FamilyMember) error {
	f.calls++
	f.stored, f.families = r, families
	return f.err
}

func (f *fakeStore) DeleteResidents(context.Context, []int64) (int64, error) {
	f.calls++
	return f.deleted, f.err
}

func (f *fakeStore) ListResidents(context.Context, core.ResidentFilter) ([]core.Resident, error) {
	return f.residents, f.err
}

func (f *fakeStore) GetResident(context.Context, int64) (core.Resident, error) {
	return core.Resident{}, f.err
}

func (f *fakeStore) GetResidentByHouse(_ context.Context, house string) (core.Resident, error) {
	f.calls++
	f.house = house
	return core.Resident{}, f.err
}

func (f *fakeStore) ListFamilies(context.Context, int64) ([]core.FamilyMember, error) {
	return nil, f.err
}

func (f *fakeStore) StreetOverview(context.Context) ([]core.StreetCount, error) {
	return nil, f.err
}

func (f *fakeStore) RecordPayments(context.Context, core.Month, []core.Payment) error {
	f.calls++
	return f.err
}

func (f *fakeStore) ListBills(context.Context, core.Month) ([]core.Bill, error) {
	return nil, f.err
}

func (f *fakeStore) MonthSnapshot(context.Context, core.Month) ([]core.Resident, map[int64]core.ServiceAmounts, error) {
	f.calls++
	return f.residents, f.paid, f.err
}

func (f *fakeStore) CollectionSnapshot(context.Context) ([]core.Resident, map[core.Month]map[int64]core.Money, error) {
	f.calls++
	return f.residents, nil, f.err
}

func (f *fakeStore) DefaulterSnapshot(_ context.Context, months []core.Month) ([]core.Resident, map[int64]core.ServiceAmounts, error) {
	f.calls++
	f.months = months
	return f.residents, f.paid, f.err
}

func (f *fakeStore) GetOrCreateFund(context.Context, string, core.Month) (int64, bool, error) {
	f.calls++
	return f.nextID, f.created, f.err
}

func (f *fakeStore) GetFund(context.Context, int64) (core.Fund, error) {
	return core.Fund{}, f.err
}

func (f *fakeStore) UpsertContribution(context.Context, int64, int64, *core.Money) error {
	f.calls++
	return f.err
}

func (f *fakeStore) SaveContributionBatch(context.Context, int64, []core.ContributionRow) error {
	f.calls++
	return f.err
}

func (f *fakeStore) DeleteFund(context.Context, int64) error {
	f.calls++
	return f.err
}

func (f *fakeStore) FundSummary(context.Context) ([]core.FundSummary, error) {
	return nil, f.err
}

func (f *fakeStore) ListContributions(context.Context, int64) ([]core.Contribution, error) {
	return nil, f.err
}

func (f *fakeStore) ContributionSheet(context.Context, int64) ([]core.ContributionRow, error) {
	return nil, f.err
}

var rates = core.Rates{Water: core.Units(500), Security: core.Units(500), Sanitation: core.Units(1000)}

func validResident() (core.Resident, []core.FamilyMember) {
	r := core.Resident{
		HouseNo: "A-12",
		Street:  "Street 1",
		Owner:   core.Person{Name: "Owner", NationalID: "35202", Phone: "0300"},
		Floors:  1,
	}
	families := []core.FamilyMember{
		{Floor: 1, Head: core.Person{Name: "Head", NationalID: "35203", Phone: "0301"}},
	}
	return r, families
}

func TestRegistryCreatePublishesEvent(t *testing.T) {
	store := &fakeStore{nextID: 5}
	pub := &fakePublisher{}
	reg := NewRegistry(store, pub)

	r, fam := validResident()
	id, err := reg.CreateResident(context.Background(), r, fam)
	if err != nil || id != 5 {
		t.Fatalf("CreateResident = %d, %v", id, err)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != amqp.ResidentCreated || pub.events[0].ResidentIDs[0] != 5 {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}

func TestRegistryRejectsBeforeStore(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	reg := NewRegistry(store, pub)

	r, fam := validResident()
	r.Floors = 2
	if _, err := reg.CreateResident(context.Background(), r, fam); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.calls != 0 || len(pub.events) != 0 {
		t.Fatalf("store calls = %d, events = %d; want none", store.calls, len(pub.events))
	}
}

func TestRegistryNormalizesBeforeStore(t *testing.T) {
	store := &fakeStore{nextID: 1}
	reg := NewRegistry(store, nil)

	r, fam := validResident()
	r.HouseNo = " A-12 "
	r.Owner.Name = " Owner "
	r.Lessee = &core.Person{Name: "Stale", NationalID: "1", Phone: "2"}
	fam[0].Head.Name = " Head "
	if _, err := reg.CreateResident(context.Background(), r, fam); err != nil {
		t.Fatalf("CreateResident: %v", err)
	}
	if store.stored.HouseNo != "A-12" || store.stored.Owner.Name != "Owner" {
		t.Errorf("resident not trimmed: %+v", store.stored)
	}
	if store.stored.Lessee != nil {
		t.Errorf("lessee of owner-occupied house should be cleared: %+v", store.stored.Lessee)
	}
	if store.families[0].Head.Name != "Head" {
		t.Errorf("family not trimmed: %+v", store.families[0])
	}

	tests := []struct {
		name   string
		mutate func(*core.Resident, *[]core.FamilyMember)
	}{
		{"blank owner phone", func(r *core.Resident, _ *[]core.FamilyMember) { r.Owner.Phone = "  " }},
		{"rented without lessee", func(r *core.Resident, _ *[]core.FamilyMember) { r.IsRented = true }},
		{"missing family for floor", func(_ *core.Resident, f *[]core.FamilyMember) { *f = nil }},
		{"zero floors", func(r *core.Resident, _ *[]core.FamilyMember) { r.Floors = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			reg := NewRegistry(store, nil)
			r, fam := validResident()
			tt.mutate(&r, &fam)
			if err := reg.UpdateResident(context.Background(), 1, r, fam); !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if store.calls != 0 {
				t.Fatalf("invalid resident reached the store")
			}
		})
	}
}

func TestRegistryGetResidentByHouse(t *testing.T) {
	store := &fakeStore{}
	reg := NewRegistry(store, nil)

	if _, err := reg.GetResidentByHouse(context.Background(), "  "); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for blank house, got %v", err)
	}
	if store.calls != 0 {
		t.Fatal("blank house must not reach the store")
	}

	store.err = &core.NotFoundError{Entity: "house", Key: "Z-9"}
	_, err := reg.GetResidentByHouse(context.Background(), " Z-9 ")
	if !errors.Is(err, core.ErrNotFound) || store.house != "Z-9" {
		t.Fatalf("got %v for house %q", err, store.house)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	store := &fakeStore{nextID: 1}
	pub := &fakePublisher{err: errors.New("broker down")}
	reg := NewRegistry(store, pub)

	r, fam := validResident()
	if _, err := reg.CreateResident(context.Background(), r, fam); err != nil {
		t.Fatalf("publish failure must not surface: %v", err)
	}

	// A nil publisher is a no-op.
	reg = NewRegistry(store, nil)
	if err := reg.UpdateResident(context.Background(), 1, r, fam); err != nil {
		t.Fatalf("UpdateResident with nil publisher: %v", err)
	}
}

func TestRegistryErrorsKeepCategory(t *testing.T) {
	store := &fakeStore{err: &core.NotFoundError{Entity: "resident", ID: 9}}
	reg := NewRegistry(store, &fakePublisher{})

	r, fam := validResident()
	err := reg.UpdateResident(context.Background(), 9, r, fam)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found through wrapping, got %v", err)
	}
	var nf *core.NotFoundError
	if !errors.As(err, &nf) || nf.ID != 9 {
		t.Fatalf("errors.As should reach the typed error: %v", err)
	}
}

func TestRegistryDeleteResidents(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	reg := NewRegistry(store, pub)

	if n, err := reg.DeleteResidents(context.Background(), nil); n != 0 || err != nil || store.calls != 0 {
		t.Fatalf("empty delete must not reach the store: %d, %v, calls=%d", n, err, store.calls)
	}
	if _, err := reg.DeleteResidents(context.Background(), []int64{42}); err != nil {
		t.Fatalf("DeleteResidents: %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("nothing deleted, nothing published: %v", pub.kinds())
	}

	store.deleted = 2
	if _, err := reg.DeleteResidents(context.Background(), []int64{1, 2}); err != nil {
		t.Fatalf("DeleteResidents: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Kind != amqp.ResidentsDeleted {
		t.Fatalf("unexpected events: %v", pub.kinds())
	}
}

func TestBillingMonthSheet(t *testing.T) {
	a12 := core.Resident{ID: 1, HouseNo: "A-12", Facilities: core.Facilities{Water: true, Security: true}}
	store := &fakeStore{
		residents: []core.Resident{a12},
		paid:      map[int64]core.ServiceAmounts{1: {Water: core.Units(300), Security: core.Units(500)}},
	}
	billing := NewBilling(store, nil)
	april := core.Month{Year: 2024, Month: 4}

	report, err := billing.MonthSheet(context.Background(), april, rates)
	if err != nil {
		t.Fatalf("MonthSheet: %v", err)
	}
	if got := report.Lines[0].TotalPending(); got != core.Units(200) {
		t.Fatalf("pending = %s, want 200", got)
	}

	negative := rates
	negative.Water = core.Units(-1)
	store.calls = 0
	if _, err := billing.MonthSheet(context.Background(), april, negative); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for negative rate, got %v", err)
	}
	if _, err := billing.MonthSheet(context.Background(), core.Month{Year: 2024, Month: 13}, rates); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for bad month, got %v", err)
	}
	if _, err := billing.ListBills(context.Background(), core.Month{Year: 2024}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("ListBills: expected invalid argument for bad month, got %v", err)
	}
	if store.calls != 0 {
		t.Fatal("invalid rates must not reach the store")
	}
}

func TestBillingRecordPayments(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	billing := NewBilling(store, pub)
	april := core.Month{Year: 2024, Month: 4}

	payments := []core.Payment{
		{ResidentID: 1, Paid: core.ServiceAmounts{Water: core.Units(500)}},
		{ResidentID: 2, Paid: core.ServiceAmounts{Sanitation: core.Units(1000)}},
	}
	if err := billing.RecordPayments(context.Background(), april, payments); err != nil {
		t.Fatalf("RecordPayments: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.events))
	}
	e := pub.events[0]
	if e.Kind != amqp.PaymentsRecorded || e.Month != "2024-04" || len(e.ResidentIDs) != 2 {
		t.Fatalf("unexpected event: %+v", e)
	}

	bad := []core.Payment{{ResidentID: 1, Paid: core.ServiceAmounts{Water: core.Units(-5)}}}
	if err := billing.RecordPayments(context.Background(), april, bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := billing.RecordPayments(context.Background(), core.Month{Year: 2024, Month: 13}, payments); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for bad month, got %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("store calls = %d, want 1", store.calls)
	}
}

func TestDefaultersFind(t *testing.T) {
	store := &fakeStore{
		residents: []core.Resident{{ID: 1, Facilities: core.Facilities{Water: true}}},
		paid:      map[int64]core.ServiceAmounts{},
	}
	svc := NewDefaulters(store)

	_, err := svc.Find(context.Background(), core.DefaulterQuery{Scope: core.Monthly, Year: 2024, Month: 4, Rates: rates})
	if !errors.Is(err, core.ErrInvalidArgument) || store.calls != 0 {
		t.Fatalf("empty service filter: err=%v calls=%d", err, store.calls)
	}

	res, err := svc.Find(context.Background(), core.DefaulterQuery{
		Scope: core.Annual, Year: 2024, Rates: rates, Services: []core.Service{core.Water},
	})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(store.months) != 12 {
		t.Fatalf("annual scope should read 12 months, read %d", len(store.months))
	}
	if res.Empty() || res.Rows[0].Pending.Water != core.Units(6000) {
		t.Fatalf("unexpected result: %+v", res.Rows)
	}
}

func TestFundsEvents(t *testing.T) {
	store := &fakeStore{nextID: 3}
	pub := &fakePublisher{}
	funds := NewFunds(store, pub)
	ctx := context.Background()
	april := core.Month{Year: 2024, Month: 4}

	if _, err := funds.GetOrCreateFund(ctx, "Eid", april); err != nil {
		t.Fatalf("GetOrCreateFund: %v", err)
	}
	store.created = true
	if _, err := funds.GetOrCreateFund(ctx, "Mosque", april); err != nil {
		t.Fatalf("GetOrCreateFund: %v", err)
	}
	if _, err := funds.GetOrCreateFund(ctx, " ", april); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	amount := core.Units(100)
	if err := funds.SaveContributionBatch(ctx, 3, []core.ContributionRow{{ResidentID: 1, Ticked: true, Amount: &amount}}); err != nil {
		t.Fatalf("SaveContributionBatch: %v", err)
	}
	calls := store.calls
	if err := funds.SaveContributionBatch(ctx, 3, []core.ContributionRow{{ResidentID: 1, HouseNo: "A-1", Ticked: true}}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if store.calls != calls {
		t.Fatal("invalid contribution sheet reached the store")
	}
	if err := funds.DeleteFund(ctx, 3); err != nil {
		t.Fatalf("DeleteFund: %v", err)
	}

	want := []amqp.EventKind{amqp.FundCreated, amqp.ContributionsSaved, amqp.FundDeleted}
	got := pub.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}
