package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"townledger/internal/core"
)

// RecordPayments upserts one bill row per payment for month. The batch is
// all-or-nothing: an unknown resident aborts and rolls back every row.
func (r *SQLiteRepository) RecordPayments(ctx context.Context, month core.Month, payments []core.Payment) error {
	if len(payments) == 0 {
		return nil
	}

	err := r.withTx(ctx, "record payments", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO bills (
				resident_id, billing_month, water_bill, security_bill, sanitation_bill, amount_paid
			) VALUES (?,?,?,?,?,?)
			ON CONFLICT(resident_id, billing_month) DO UPDATE SET
				water_bill = excluded.water_bill,
				security_bill = excluded.security_bill,
				sanitation_bill = excluded.sanitation_bill,
				amount_paid = excluded.amount_paid`)
		if err != nil {
			return storageErr("prepare bill upsert", err)
		}
		defer stmt.Close()

		for _, p := range payments {
			if err := residentExists(ctx, tx, p.ResidentID); err != nil {
				return err
			}
			_, err := stmt.ExecContext(ctx, p.ResidentID, month.String(),
				toUnits(p.Paid.Water), toUnits(p.Paid.Security), toUnits(p.Paid.Sanitation),
				toUnits(p.Paid.Total()))
			if err != nil {
				if isForeignKeyViolation(err) {
					return &core.NotFoundError{Entity: "resident", ID: p.ResidentID}
				}
				return storageErr(fmt.Sprintf("upsert bill for resident %d", p.ResidentID), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Payments recorded", "month", month.String(), "count", len(payments))
	return nil
}

// ListBills returns the stored bill rows of month ordered by resident id.
func (r *SQLiteRepository) ListBills(ctx context.Context, month core.Month) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, resident_id,
			COALESCE(water_bill, 0), COALESCE(security_bill, 0), COALESCE(sanitation_bill, 0),
			COALESCE(amount_paid, 0)
		FROM bills WHERE billing_month = ? ORDER BY resident_id`, month.String())
	if err != nil {
		return nil, storageErr("query bills", err)
	}
	defer rows.Close()

	bills := []core.Bill{}
	for rows.Next() {
		var (
			b               core.Bill
			w, s, sn, total float64
		)
		if err := rows.Scan(&b.ID, &b.ResidentID, &w, &s, &sn, &total); err != nil {
			return nil, storageErr("scan bill", err)
		}
		b.Month = month
		b.Paid = core.ServiceAmounts{Water: fromUnits(w), Security: fromUnits(s), Sanitation: fromUnits(sn)}
		b.TotalPaid = fromUnits(total)
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate bills", err)
	}
	return bills, nil
}

// MonthSnapshot reads the residents (street, house order) and their paid
// amounts for month inside one transaction.
func (r *SQLiteRepository) MonthSnapshot(ctx context.Context, month core.Month) ([]core.Resident, map[int64]core.ServiceAmounts, error) {
	var (
		residents []core.Resident
		paid      map[int64]core.ServiceAmounts
	)
	err := r.withTx(ctx, "month snapshot", func(tx *sql.Tx) error {
		var err error
		query, args, _ := residentQuery(core.ResidentFilter{}, "street_name, house_no")
		if residents, err = queryResidents(ctx, tx, query, args...); err != nil {
			return err
		}
		paid, err = sumPaid(ctx, tx, []core.Month{month})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return residents, paid, nil
}

// DefaulterSnapshot reads every resident in insertion order and the paid
// amounts summed per resident over months, inside one transaction.
func (r *SQLiteRepository) DefaulterSnapshot(ctx context.Context, months []core.Month) ([]core.Resident, map[int64]core.ServiceAmounts, error) {
	var (
		residents []core.Resident
		paid      map[int64]core.ServiceAmounts
	)
	err := r.withTx(ctx, "defaulter snapshot", func(tx *sql.Tx) error {
		var err error
		query, args, _ := residentQuery(core.ResidentFilter{}, "id")
		if residents, err = queryResidents(ctx, tx, query, args...); err != nil {
			return err
		}
		paid, err = sumPaid(ctx, tx, months)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return residents, paid, nil
}

func sumPaid(ctx context.Context, tx *sql.Tx, months []core.Month) (map[int64]core.ServiceAmounts, error) {
	paid := make(map[int64]core.ServiceAmounts)
	if len(months) == 0 {
		return paid, nil
	}
	args := make([]any, len(months))
	for i, m := range months {
		args[i] = m.String()
	}
	rows, err := tx.QueryContext(ctx, `SELECT resident_id,
			SUM(COALESCE(water_bill, 0)), SUM(COALESCE(security_bill, 0)), SUM(COALESCE(sanitation_bill, 0))
		FROM bills WHERE billing_month IN (`+placeholders(len(months))+`)
		GROUP BY resident_id`, args...)
	if err != nil {
		return nil, storageErr("sum payments", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       int64
			w, s, sn float64
		)
		if err := rows.Scan(&id, &w, &s, &sn); err != nil {
			return nil, storageErr("scan payment sum", err)
		}
		paid[id] = core.ServiceAmounts{Water: fromUnits(w), Security: fromUnits(s), Sanitation: fromUnits(sn)}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate payment sums", err)
	}
	return paid, nil
}

// CollectionSnapshot reads the residents and every month's total paid per
// resident inside one transaction.
func (r *SQLiteRepository) CollectionSnapshot(ctx context.Context) ([]core.Resident, map[core.Month]map[int64]core.Money, error) {
	var (
		residents []core.Resident
		totals    = make(map[core.Month]map[int64]core.Money)
	)
	err := r.withTx(ctx, "collection snapshot", func(tx *sql.Tx) error {
		var err error
		query, args, _ := residentQuery(core.ResidentFilter{}, "id")
		if residents, err = queryResidents(ctx, tx, query, args...); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT billing_month, resident_id,
				COALESCE(water_bill, 0) + COALESCE(security_bill, 0) + COALESCE(sanitation_bill, 0)
			FROM bills`)
		if err != nil {
			return storageErr("query collections", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				key   string
				id    int64
				total float64
			)
			if err := rows.Scan(&key, &id, &total); err != nil {
				return storageErr("scan collection", err)
			}
			m, err := core.ParseMonth(key)
			if err != nil {
				slog.WarnContext(ctx, "Skipping bill with malformed month", "billing_month", key, "resident_id", id)
				continue
			}
			if totals[m] == nil {
				totals[m] = make(map[int64]core.Money)
			}
			totals[m][id] = fromUnits(total)
		}
		return storageErr("iterate collections", rows.Err())
	})
	if err != nil {
		return nil, nil, err
	}
	return residents, totals, nil
}
