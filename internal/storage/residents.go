package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"townledger/internal/core"
)

const residentColumns = `id, house_no, street_name, owner_name, owner_cnic, owner_phone,
	is_rent, lessee_name, lessee_cnic, lessee_phone, floors,
	facility_water, facility_security, facility_sanitation, COALESCE(created_at, '')`

var facilityColumns = map[core.Service]string{
	core.Water:      "facility_water",
	core.Security:   "facility_security",
	core.Sanitation: "facility_sanitation",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResident(s rowScanner) (core.Resident, error) {
	var (
		r                 core.Resident
		lName, lID, lPhon sql.NullString
		createdAt         string
	)
	err := s.Scan(&r.ID, &r.HouseNo, &r.Street, &r.Owner.Name, &r.Owner.NationalID, &r.Owner.Phone,
		&r.IsRented, &lName, &lID, &lPhon, &r.Floors,
		&r.Facilities.Water, &r.Facilities.Security, &r.Facilities.Sanitation, &createdAt)
	if err != nil {
		return core.Resident{}, err
	}
	if r.IsRented {
		r.Lessee = &core.Person{Name: lName.String, NationalID: lID.String, Phone: lPhon.String}
	}
	r.CreatedAt = parseTimestamp(createdAt)
	return r, nil
}

func residentArgs(r core.Resident) []any {
	var lessee core.Person
	if r.IsRented && r.Lessee != nil {
		lessee = *r.Lessee
	}
	return []any{
		r.HouseNo, r.Street, r.Owner.Name, r.Owner.NationalID, r.Owner.Phone,
		boolToInt(r.IsRented), nullString(lessee.Name), nullString(lessee.NationalID), nullString(lessee.Phone),
		r.Floors,
		boolToInt(r.Facilities.Water), boolToInt(r.Facilities.Security), boolToInt(r.Facilities.Sanitation),
	}
}

// CreateResident inserts the resident and one family row per floor in a
// single transaction and returns the new resident id.
func (r *SQLiteRepository) CreateResident(ctx context.Context, res core.Resident, families []core.FamilyMember) (int64, error) {
	var id int64
	err := r.withTx(ctx, "create resident", func(tx *sql.Tx) error {
		args := append(residentArgs(res), r.timestamp())
		result, err := tx.ExecContext(ctx, `INSERT INTO residents (
				house_no, street_name, owner_name, owner_cnic, owner_phone,
				is_rent, lessee_name, lessee_cnic, lessee_phone, floors,
				facility_water, facility_security, facility_sanitation, created_at
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return &core.ConflictError{Entity: "house", Key: res.HouseNo}
			}
			return storageErr("insert resident", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return storageErr("resident id", err)
		}
		return insertFamilies(ctx, tx, id, families)
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Resident created", "resident_id", id, "house_no", res.HouseNo, "floors", res.Floors)
	return id, nil
}

// UpdateResident overwrites the resident row and replaces its whole family
// set (delete all, insert all) in one transaction.
func (r *SQLiteRepository) UpdateResident(ctx context.Context, id int64, res core.Resident, families []core.FamilyMember) error {
	err := r.withTx(ctx, "update resident", func(tx *sql.Tx) error {
		if err := residentExists(ctx, tx, id); err != nil {
			return err
		}
		args := append(residentArgs(res), id)
		_, err := tx.ExecContext(ctx, `UPDATE residents SET
				house_no = ?, street_name = ?, owner_name = ?, owner_cnic = ?, owner_phone = ?,
				is_rent = ?, lessee_name = ?, lessee_cnic = ?, lessee_phone = ?, floors = ?,
				facility_water = ?, facility_security = ?, facility_sanitation = ?
			WHERE id = ?`, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return &core.ConflictError{Entity: "house", Key: res.HouseNo}
			}
			return storageErr("update resident", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM families WHERE resident_id = ?`, id); err != nil {
			return storageErr("delete families", err)
		}
		return insertFamilies(ctx, tx, id, families)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Resident updated", "resident_id", id, "house_no", res.HouseNo, "floors", res.Floors)
	return nil
}

func insertFamilies(ctx context.Context, tx *sql.Tx, residentID int64, families []core.FamilyMember) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO families (resident_id, floor, head_name, head_cnic, head_phone)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return storageErr("prepare family insert", err)
	}
	defer stmt.Close()

	for _, f := range families {
		if _, err := stmt.ExecContext(ctx, residentID, f.Floor, f.Head.Name, f.Head.NationalID, f.Head.Phone); err != nil {
			return storageErr(fmt.Sprintf("insert family floor %d", f.Floor), err)
		}
	}
	return nil
}

func residentExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM residents WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Entity: "resident", ID: id}
	}
	return storageErr("lookup resident", err)
}

// DeleteResidents removes the whole batch atomically. Families, bills and
// contributions go with them through ON DELETE CASCADE.
func (r *SQLiteRepository) DeleteResidents(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.withTx(ctx, "delete residents", func(tx *sql.Tx) error {
		query := `DELETE FROM residents WHERE id IN (` + placeholders(len(ids)) + `)`
		result, err := tx.ExecContext(ctx, query, int64Args(ids)...)
		if err != nil {
			return storageErr("delete residents", err)
		}
		deleted, err = result.RowsAffected()
		return storageErr("rows affected", err)
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Residents deleted", "requested", len(ids), "deleted", deleted)
	return deleted, nil
}

// ListResidents returns residents ordered by street and house number.
// Facility filters use AND semantics.
func (r *SQLiteRepository) ListResidents(ctx context.Context, filter core.ResidentFilter) ([]core.Resident, error) {
	query, args, err := residentQuery(filter, "street_name, house_no")
	if err != nil {
		return nil, err
	}
	return queryResidents(ctx, r.db, query, args...)
}

func residentQuery(filter core.ResidentFilter, orderBy string) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Streets) > 0 {
		where = append(where, "street_name IN ("+placeholders(len(filter.Streets))+")")
		for _, s := range filter.Streets {
			args = append(args, s)
		}
	}
	for _, s := range filter.Facilities {
		svc, err := core.ParseService(string(s))
		if err != nil {
			return "", nil, err
		}
		where = append(where, facilityColumns[svc]+" = 1")
	}

	query := "SELECT " + residentColumns + " FROM residents"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY " + orderBy, args, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryResidents(ctx context.Context, q querier, query string, args ...any) ([]core.Resident, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query residents", err)
	}
	defer rows.Close()

	residents := []core.Resident{}
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, storageErr("scan resident", err)
		}
		residents = append(residents, res)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate residents", err)
	}
	return residents, nil
}

func (r *SQLiteRepository) GetResident(ctx context.Context, id int64) (core.Resident, error) {
	res, err := scanResident(r.db.QueryRowContext(ctx, "SELECT "+residentColumns+" FROM residents WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Resident{}, &core.NotFoundError{Entity: "resident", ID: id}
	}
	if err != nil {
		return core.Resident{}, storageErr("get resident", err)
	}
	return res, nil
}

// GetResidentByHouse looks a resident up by its unique house number.
func (r *SQLiteRepository) GetResidentByHouse(ctx context.Context, houseNo string) (core.Resident, error) {
	res, err := scanResident(r.db.QueryRowContext(ctx, "SELECT "+residentColumns+" FROM residents WHERE house_no = ?", houseNo))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Resident{}, &core.NotFoundError{Entity: "house", Key: houseNo}
	}
	if err != nil {
		return core.Resident{}, storageErr("get resident by house", err)
	}
	return res, nil
}

func (r *SQLiteRepository) ListFamilies(ctx context.Context, residentID int64) ([]core.FamilyMember, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT floor, head_name, head_cnic, head_phone
		FROM families WHERE resident_id = ? ORDER BY floor`, residentID)
	if err != nil {
		return nil, storageErr("query families", err)
	}
	defer rows.Close()

	families := []core.FamilyMember{}
	for rows.Next() {
		var f core.FamilyMember
		if err := rows.Scan(&f.Floor, &f.Head.Name, &f.Head.NationalID, &f.Head.Phone); err != nil {
			return nil, storageErr("scan family", err)
		}
		families = append(families, f)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate families", err)
	}
	return families, nil
}

// StreetOverview counts houses per street: known streets first in their
// canonical order (zero counts included), then any other street by name.
func (r *SQLiteRepository) StreetOverview(ctx context.Context) ([]core.StreetCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT street_name, COUNT(*) FROM residents GROUP BY street_name`)
	if err != nil {
		return nil, storageErr("query street overview", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			street string
			n      int
		)
		if err := rows.Scan(&street, &n); err != nil {
			return nil, storageErr("scan street overview", err)
		}
		counts[street] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate street overview", err)
	}

	out := make([]core.StreetCount, 0, len(core.Streets)+len(counts))
	for _, s := range core.Streets {
		out = append(out, core.StreetCount{Street: s, Houses: counts[s]})
		delete(counts, s)
	}
	extra := make([]string, 0, len(counts))
	for s := range counts {
		extra = append(extra, s)
	}
	sort.Strings(extra)
	for _, s := range extra {
		out = append(out, core.StreetCount{Street: s, Houses: counts[s]})
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
