package services

import (
	"context"

	"townledger/internal/amqp"
	"townledger/internal/core"
)

// Store ports, implemented by storage.SQLiteRepository. Stores receive
// input already normalized and validated by the services.
type (
	ResidentStore interface {
		CreateResident(ctx context.Context, r core.Resident, families []core.FamilyMember) (int64, error)
		UpdateResident(ctx context.Context, id int64, r core.Resident, families []core.FamilyMember) error
		DeleteResidents(ctx context.Context, ids []int64) (int64, error)
		ListResidents(ctx context.Context, filter core.ResidentFilter) ([]core.Resident, error)
		GetResident(ctx context.Context, id int64) (core.Resident, error)
		GetResidentByHouse(ctx context.Context, houseNo string) (core.Resident, error)
		ListFamilies(ctx context.Context, residentID int64) ([]core.FamilyMember, error)
		StreetOverview(ctx context.Context) ([]core.StreetCount, error)
	}

	BillStore interface {
		RecordPayments(ctx context.Context, month core.Month, payments []core.Payment) error
		ListBills(ctx context.Context, month core.Month) ([]core.Bill, error)
		MonthSnapshot(ctx context.Context, month core.Month) ([]core.Resident, map[int64]core.ServiceAmounts, error)
		CollectionSnapshot(ctx context.Context) ([]core.Resident, map[core.Month]map[int64]core.Money, error)
	}

	DefaulterStore interface {
		DefaulterSnapshot(ctx context.Context, months []core.Month) ([]core.Resident, map[int64]core.ServiceAmounts, error)
	}

	FundStore interface {
		GetOrCreateFund(ctx context.Context, title string, month core.Month) (int64, bool, error)
		GetFund(ctx context.Context, fundID int64) (core.Fund, error)
		UpsertContribution(ctx context.Context, fundID, residentID int64, amount *core.Money) error
		SaveContributionBatch(ctx context.Context, fundID int64, rows []core.ContributionRow) error
		DeleteFund(ctx context.Context, fundID int64) error
		FundSummary(ctx context.Context) ([]core.FundSummary, error)
		ListContributions(ctx context.Context, fundID int64) ([]core.Contribution, error)
		ContributionSheet(ctx context.Context, fundID int64) ([]core.ContributionRow, error)
	}

	// EventPublisher is implemented by amqp.Client.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
	}
)
