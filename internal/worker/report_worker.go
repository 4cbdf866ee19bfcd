package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"townledger/internal/amqp"
	"townledger/internal/core"
	"townledger/internal/report"
	"townledger/internal/sheets"
)

type (
	MonthSheeter interface {
		MonthSheet(ctx context.Context, month core.Month, rates core.Rates) (core.DuesReport, error)
	}

	DefaulterFinder interface {
		Find(ctx context.Context, q core.DefaulterQuery) (core.DefaulterResult, error)
	}

	FundSummarizer interface {
		Summary(ctx context.Context) ([]core.FundSummary, error)
	}

	ResidentLister interface {
		ListResidents(ctx context.Context, filter core.ResidentFilter) ([]core.Resident, error)
	}
)

// Tab identifies one report the worker keeps up to date.
type Tab string

const (
	TabResidents  Tab = "residents"
	TabDefaulters Tab = "defaulters"
	TabBills      Tab = "bills"
	TabFunds      Tab = "funds"
)

var allTabs = []Tab{TabResidents, TabDefaulters, TabBills, TabFunds}

// ReportWorker rewrites report tables in a sheets.Sink whenever the ledger
// changes. Tabs affected by one event are refreshed concurrently.
type ReportWorker struct {
	bills      MonthSheeter
	defaulters DefaulterFinder
	funds      FundSummarizer
	residents  ResidentLister
	sink       sheets.Sink
	rates      core.Rates
	limit      int
	now        func() time.Time
}

func NewReportWorker(bills MonthSheeter, defaulters DefaulterFinder, funds FundSummarizer, residents ResidentLister, sink sheets.Sink, rates core.Rates) *ReportWorker {
	return &ReportWorker{
		bills:      bills,
		defaulters: defaulters,
		funds:      funds,
		residents:  residents,
		sink:       sink,
		rates:      rates,
		limit:      2,
		now:        time.Now,
	}
}

// TabsFor lists the reports a ledger event can change.
func TabsFor(kind amqp.EventKind) []Tab {
	switch kind {
	case amqp.ResidentCreated, amqp.ResidentUpdated, amqp.ResidentsDeleted:
		return []Tab{TabResidents, TabDefaulters, TabBills, TabFunds}
	case amqp.PaymentsRecorded:
		return []Tab{TabDefaulters, TabBills}
	case amqp.FundCreated, amqp.ContributionsSaved, amqp.FundDeleted:
		return []Tab{TabFunds}
	}
	return nil
}

// HandleLedgerEvent refreshes the tabs affected by event for the event's
// month, or the current month when the event carries none. A returned error
// makes the consumer requeue the message.
func (w *ReportWorker) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	month := core.NewMonth(w.now())
	if event.Month != "" {
		m, err := core.ParseMonth(event.Month)
		if err != nil {
			slog.WarnContext(ctx, "Ignoring malformed event month",
				"event_kind", event.Kind, "month", event.Month, "error", err)
		} else {
			month = m
		}
	}

	slog.InfoContext(ctx, "Processing ledger event",
		"event_kind", event.Kind,
		"month", month.String(),
		"fund_id", event.FundID,
		"resident_ids", event.ResidentIDs)

	return w.Refresh(ctx, month, TabsFor(event.Kind)...)
}

// RefreshAll rewrites every tab for the current month. It backs up the
// event path in case messages were lost.
func (w *ReportWorker) RefreshAll(ctx context.Context) error {
	return w.Refresh(ctx, core.NewMonth(w.now()), allTabs...)
}

func (w *ReportWorker) Refresh(ctx context.Context, month core.Month, tabs ...Tab) error {
	if len(tabs) == 0 {
		return nil
	}
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.limit)
	for _, tab := range tabs {
		g.Go(func() error {
			t, err := w.build(ctx, tab, month)
			if err != nil {
				return fmt.Errorf("build %s report: %w", tab, err)
			}
			if err := w.sink.WriteTable(ctx, t); err != nil {
				return fmt.Errorf("write %s: %w", t.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Report refresh failed", "month", month.String(), "error", err)
		return err
	}

	slog.InfoContext(ctx, "Report tabs refreshed",
		"month", month.String(),
		"tabs", len(tabs),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *ReportWorker) build(ctx context.Context, tab Tab, month core.Month) (report.Table, error) {
	switch tab {
	case TabResidents:
		residents, err := w.residents.ListResidents(ctx, core.ResidentFilter{})
		if err != nil {
			return report.Table{}, err
		}
		return report.ResidentsTable(residents), nil
	case TabDefaulters:
		res, err := w.defaulters.Find(ctx, core.DefaulterQuery{
			Scope:    core.Monthly,
			Year:     month.Year,
			Month:    month.Month,
			Rates:    w.rates,
			Services: core.Services,
		})
		if err != nil {
			return report.Table{}, err
		}
		return report.DefaultersTable(res), nil
	case TabBills:
		dues, err := w.bills.MonthSheet(ctx, month, w.rates)
		if err != nil {
			return report.Table{}, err
		}
		return report.BillsTable(dues), nil
	case TabFunds:
		funds, err := w.funds.Summary(ctx)
		if err != nil {
			return report.Table{}, err
		}
		return report.FundsTable(funds), nil
	}
	return report.Table{}, fmt.Errorf("unknown tab %q", tab)
}
