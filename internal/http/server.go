package http

import (
	"context"
	"net/http"
	"time"

	"townledger/internal/core"
	applog "townledger/internal/log"
)

type (
	ResidentRegistry interface {
		CreateResident(ctx context.Context, r core.Resident, families []core.FamilyMember) (int64, error)
		UpdateResident(ctx context.Context, id int64, r core.Resident, families []core.FamilyMember) error
		DeleteResidents(ctx context.Context, ids []int64) (int64, error)
		ListResidents(ctx context.Context, filter core.ResidentFilter) ([]core.Resident, error)
		GetResident(ctx context.Context, id int64) (core.Resident, error)
		GetResidentByHouse(ctx context.Context, houseNo string) (core.Resident, error)
		ListFamilies(ctx context.Context, residentID int64) ([]core.FamilyMember, error)
		StreetOverview(ctx context.Context) ([]core.StreetCount, error)
	}

	BillingLedger interface {
		RecordPayments(ctx context.Context, month core.Month, payments []core.Payment) error
		MonthSheet(ctx context.Context, month core.Month, rates core.Rates) (core.DuesReport, error)
		ListBills(ctx context.Context, month core.Month) ([]core.Bill, error)
		CollectionStats(ctx context.Context, rates core.Rates) ([]core.MonthCollection, error)
	}

	DefaulterFinder interface {
		Find(ctx context.Context, q core.DefaulterQuery) (core.DefaulterResult, error)
	}

	FundLedger interface {
		GetOrCreateFund(ctx context.Context, title string, month core.Month) (int64, error)
		GetFund(ctx context.Context, fundID int64) (core.Fund, error)
		UpsertContribution(ctx context.Context, fundID, residentID int64, amount *core.Money) error
		SaveContributionBatch(ctx context.Context, fundID int64, rows []core.ContributionRow) error
		DeleteFund(ctx context.Context, fundID int64) error
		Summary(ctx context.Context) ([]core.FundSummary, error)
		ListContributions(ctx context.Context, fundID int64) ([]core.Contribution, error)
		ContributionSheet(ctx context.Context, fundID int64) ([]core.ContributionRow, error)
	}
)

// Deps are the ledger operations the server exposes. Rates are the
// defaults used when a request does not name its own.
type Deps struct {
	Registry   ResidentRegistry
	Billing    BillingLedger
	Defaulters DefaulterFinder
	Funds      FundLedger
	Rates      core.Rates
	Logger     *applog.Logger
}

type Server struct {
	http.Server
	registry   ResidentRegistry
	billing    BillingLedger
	defaulters DefaulterFinder
	funds      FundLedger
	rates      core.Rates
	now        func() time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		registry:   deps.Registry,
		billing:    deps.Billing,
		defaulters: deps.Defaulters,
		funds:      deps.Funds,
		rates:      deps.Rates,
		now:        time.Now,
	}

	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /streets", s.handleStreets)
	mux.HandleFunc("GET /residents", s.handleListResidents)
	mux.HandleFunc("POST /residents", s.handleCreateResident)
	mux.HandleFunc("DELETE /residents", s.handleDeleteResidents)
	mux.HandleFunc("GET /residents/{id}", s.handleGetResident)
	mux.HandleFunc("PUT /residents/{id}", s.handleUpdateResident)
	mux.HandleFunc("GET /houses/{house}", s.handleGetResidentByHouse)

	mux.HandleFunc("GET /bills/{month}", s.handleMonthSheet)
	mux.HandleFunc("POST /bills/{month}", s.handleRecordPayments)
	mux.HandleFunc("GET /bills/{month}/records", s.handleListBills)
	mux.HandleFunc("GET /collections", s.handleCollections)
	mux.HandleFunc("GET /defaulters", s.handleDefaulters)

	mux.HandleFunc("GET /funds", s.handleFundSummary)
	mux.HandleFunc("POST /funds", s.handleCreateFund)
	mux.HandleFunc("GET /funds/{id}", s.handleGetFund)
	mux.HandleFunc("DELETE /funds/{id}", s.handleDeleteFund)
	mux.HandleFunc("GET /funds/{id}/contributions", s.handleContributionSheet)
	mux.HandleFunc("PUT /funds/{id}/contributions", s.handleSaveContributions)
	mux.HandleFunc("PUT /funds/{id}/contributions/{resident}", s.handleUpsertContribution)

	s.Handler = applog.Middleware(logger)(applog.RequestLogging(securityHeaders(mux)))
	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

// fail writes the error response for err, logging server-side failures.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, _ := errorStatus(err)
	if status >= http.StatusInternalServerError {
		errType := applog.ErrorTypeInternal
		if status == http.StatusServiceUnavailable {
			errType = applog.ErrorTypeStorage
		}
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, applog.NewFields().WithErrorType(errType))
	}
	FromError(err).Write(w)
}

// mutated logs a committed change at Info.
func mutated(r *http.Request, msg, op, month string, fundID int64, residentIDs ...int64) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogMutation(r.Context(), msg, op, month, fundID, residentIDs)
}
