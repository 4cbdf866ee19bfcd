package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	ResidentCreated    EventKind = "resident.created"
	ResidentUpdated    EventKind = "resident.updated"
	ResidentsDeleted   EventKind = "residents.deleted"
	PaymentsRecorded   EventKind = "payments.recorded"
	FundCreated        EventKind = "fund.created"
	ContributionsSaved EventKind = "contributions.saved"
	FundDeleted        EventKind = "fund.deleted"
)

var knownKinds = map[EventKind]bool{
	ResidentCreated: true, ResidentUpdated: true, ResidentsDeleted: true,
	PaymentsRecorded: true, FundCreated: true, ContributionsSaved: true, FundDeleted: true,
}

// LedgerEvent announces a committed ledger mutation. It carries keys only;
// consumers read current state back from the store.
type LedgerEvent struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	Month       string    `json:"month,omitempty"` // "YYYY-MM"
	FundID      int64     `json:"fund_id,omitempty"`
	ResidentIDs []int64   `json:"resident_ids,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind) *LedgerEvent {
	return &LedgerEvent{ID: uuid.NewString(), Kind: kind, Timestamp: time.Now()}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown kinds.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if !knownKinds[e.Kind] {
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return &e, nil
}
