package http

import (
	"bytes"
	"encoding/json"
	"strconv"

	"townledger/internal/core"
)

const timestampLayout = "2006-01-02 15:04:05"

// amount is a money value on the wire. It is written as a decimal string
// and read from either a string or a number.
type amount core.Money

func (a amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(core.Money(a).String())
}

func (a *amount) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	m, err := core.ParseAmount(s)
	if err != nil {
		return &core.ValidationError{Field: "amount", Reason: "must be numeric, got " + s}
	}
	*a = amount(m)
	return nil
}

func (a amount) money() core.Money { return core.Money(a) }

type amounts struct {
	Water      amount `json:"water"`
	Security   amount `json:"security"`
	Sanitation amount `json:"sanitation"`
}

func amountsFrom(a core.ServiceAmounts) amounts {
	return amounts{Water: amount(a.Water), Security: amount(a.Security), Sanitation: amount(a.Sanitation)}
}

func (a amounts) core() core.ServiceAmounts {
	return core.ServiceAmounts{Water: a.Water.money(), Security: a.Security.money(), Sanitation: a.Sanitation.money()}
}

type person struct {
	Name  string `json:"name"`
	CNIC  string `json:"cnic"`
	Phone string `json:"phone"`
}

func personFrom(p core.Person) person {
	return person{Name: p.Name, CNIC: p.NationalID, Phone: p.Phone}
}

func (p person) core() core.Person {
	return core.Person{Name: p.Name, NationalID: p.CNIC, Phone: p.Phone}
}

type facilities struct {
	Water      bool `json:"water"`
	Security   bool `json:"security"`
	Sanitation bool `json:"sanitation"`
}

type familyMember struct {
	Floor int    `json:"floor"`
	Head  person `json:"head"`
}

type resident struct {
	ID         int64          `json:"id,omitempty"`
	HouseNo    string         `json:"house_no"`
	Street     string         `json:"street_name"`
	Owner      person         `json:"owner"`
	IsRent     bool           `json:"is_rent"`
	Lessee     *person        `json:"lessee,omitempty"`
	Floors     int            `json:"floors"`
	Facilities facilities     `json:"facilities"`
	CreatedAt  string         `json:"created_at,omitempty"`
	Families   []familyMember `json:"families,omitempty"`
}

func residentFrom(r core.Resident, families []core.FamilyMember) resident {
	out := resident{
		ID:      r.ID,
		HouseNo: r.HouseNo,
		Street:  r.Street,
		Owner:   personFrom(r.Owner),
		IsRent:  r.IsRented,
		Floors:  r.Floors,
		Facilities: facilities{
			Water:      r.Facilities.Water,
			Security:   r.Facilities.Security,
			Sanitation: r.Facilities.Sanitation,
		},
	}
	if r.Lessee != nil {
		l := personFrom(*r.Lessee)
		out.Lessee = &l
	}
	if !r.CreatedAt.IsZero() {
		out.CreatedAt = r.CreatedAt.UTC().Format(timestampLayout)
	}
	for _, f := range families {
		out.Families = append(out.Families, familyMember{Floor: f.Floor, Head: personFrom(f.Head)})
	}
	return out
}

// core converts the payload; the id and creation time are server-owned.
func (r resident) core() (core.Resident, []core.FamilyMember) {
	out := core.Resident{
		HouseNo:  r.HouseNo,
		Street:   r.Street,
		Owner:    r.Owner.core(),
		IsRented: r.IsRent,
		Floors:   r.Floors,
		Facilities: core.Facilities{
			Water:      r.Facilities.Water,
			Security:   r.Facilities.Security,
			Sanitation: r.Facilities.Sanitation,
		},
	}
	if r.Lessee != nil {
		l := r.Lessee.core()
		out.Lessee = &l
	}
	families := make([]core.FamilyMember, 0, len(r.Families))
	for _, f := range r.Families {
		families = append(families, core.FamilyMember{Floor: f.Floor, Head: f.Head.core()})
	}
	return out, families
}

type duesLine struct {
	ResidentID   int64   `json:"resident_id"`
	HouseNo      string  `json:"house_no"`
	Street       string  `json:"street_name"`
	OwnerName    string  `json:"owner_name"`
	OwnerPhone   string  `json:"owner_phone"`
	Due          amounts `json:"due"`
	Paid         amounts `json:"paid"`
	Pending      amounts `json:"pending"`
	TotalPending amount  `json:"total_pending"`
}

type monthSheet struct {
	Month   string     `json:"month"`
	Rates   amounts    `json:"rates"`
	Lines   []duesLine `json:"lines"`
	Due     amounts    `json:"due"`
	Paid    amounts    `json:"paid"`
	Pending amounts    `json:"pending"`
}

func monthSheetFrom(r core.DuesReport) monthSheet {
	out := monthSheet{
		Month:   r.Month.String(),
		Rates:   amountsFrom(r.Rates),
		Lines:   make([]duesLine, 0, len(r.Lines)),
		Due:     amountsFrom(r.Due),
		Paid:    amountsFrom(r.Paid),
		Pending: amountsFrom(r.Pending()),
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, duesLine{
			ResidentID:   l.Resident.ID,
			HouseNo:      l.Resident.HouseNo,
			Street:       l.Resident.Street,
			OwnerName:    l.Resident.Owner.Name,
			OwnerPhone:   l.Resident.Owner.Phone,
			Due:          amountsFrom(l.Due),
			Paid:         amountsFrom(l.Paid),
			Pending:      amountsFrom(l.Pending),
			TotalPending: amount(l.TotalPending()),
		})
	}
	return out
}

type payment struct {
	ResidentID int64  `json:"resident_id"`
	Water      amount `json:"water"`
	Security   amount `json:"security"`
	Sanitation amount `json:"sanitation"`
}

type bill struct {
	ID         int64   `json:"id"`
	ResidentID int64   `json:"resident_id"`
	Month      string  `json:"billing_month"`
	Paid       amounts `json:"paid"`
	TotalPaid  amount  `json:"amount_paid"`
}

type defaulter struct {
	ResidentID   int64   `json:"resident_id"`
	HouseNo      string  `json:"house_no"`
	Street       string  `json:"street_name"`
	OwnerName    string  `json:"owner_name"`
	OwnerPhone   string  `json:"owner_phone"`
	Pending      amounts `json:"pending"`
	TotalPending amount  `json:"total_pending"`
}

type defaulterList struct {
	Label      string      `json:"label"`
	Scope      string      `json:"scope"`
	Services   []string    `json:"services"`
	Defaulters []defaulter `json:"defaulters"`
	Empty      bool        `json:"empty"`
}

func defaulterListFrom(res core.DefaulterResult) defaulterList {
	out := defaulterList{
		Label:      res.Query.Label(),
		Scope:      string(res.Query.Scope),
		Defaulters: make([]defaulter, 0, len(res.Rows)),
		Empty:      res.Empty(),
	}
	for _, s := range res.Query.Services {
		out.Services = append(out.Services, string(s))
	}
	for _, d := range res.Rows {
		out.Defaulters = append(out.Defaulters, defaulter{
			ResidentID:   d.Resident.ID,
			HouseNo:      d.Resident.HouseNo,
			Street:       d.Resident.Street,
			OwnerName:    d.Resident.Owner.Name,
			OwnerPhone:   d.Resident.Owner.Phone,
			Pending:      amountsFrom(d.Pending),
			TotalPending: amount(d.Total),
		})
	}
	return out
}

type fund struct {
	ID        int64  `json:"id"`
	Title     string `json:"fund_title"`
	Month     string `json:"fund_month"`
	CreatedAt string `json:"created_at,omitempty"`
}

func fundFrom(f core.Fund) fund {
	out := fund{ID: f.ID, Title: f.Title, Month: f.Month.String()}
	if !f.CreatedAt.IsZero() {
		out.CreatedAt = f.CreatedAt.UTC().Format(timestampLayout)
	}
	return out
}

type fundSummary struct {
	fund
	Total        amount `json:"total_amount"`
	Contributors int    `json:"contributors"`
}

type contributionRow struct {
	ResidentID int64   `json:"resident_id"`
	HouseNo    string  `json:"house_no,omitempty"`
	Ticked     bool    `json:"contributed"`
	Amount     *amount `json:"amount"`
}

func (c contributionRow) core() core.ContributionRow {
	row := core.ContributionRow{ResidentID: c.ResidentID, HouseNo: c.HouseNo, Ticked: c.Ticked}
	if c.Amount != nil {
		m := c.Amount.money()
		row.Amount = &m
	}
	return row
}

func contributionRowFrom(r core.ContributionRow) contributionRow {
	out := contributionRow{ResidentID: r.ResidentID, HouseNo: r.HouseNo, Ticked: r.Ticked}
	if r.Amount != nil {
		a := amount(*r.Amount)
		out.Amount = &a
	}
	return out
}

type collection struct {
	Month           string  `json:"billing_month"`
	Billed          amount  `json:"billed"`
	Collected       amount  `json:"collected"`
	Payers          int     `json:"payers"`
	Left            int     `json:"left"`
	RecoveryPercent float64 `json:"recovery_percent"`
}
