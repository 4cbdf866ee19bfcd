package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"townledger/internal/core"
)

// GetOrCreateFund returns the id of the fund keyed by (title, month),
// creating it when absent. created reports whether this call inserted it.
func (r *SQLiteRepository) GetOrCreateFund(ctx context.Context, title string, month core.Month) (id int64, created bool, err error) {
	if id, err = r.lookupFund(ctx, title, month); err == nil {
		return id, false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, storageErr("lookup fund", err)
	}

	result, err := r.db.ExecContext(ctx, `INSERT INTO funds (fund_title, fund_month, created_at) VALUES (?,?,?)`,
		title, month.String(), r.timestamp())
	if err != nil {
		if isUniqueViolation(err) {
			// Created concurrently between lookup and insert.
			id, err = r.lookupFund(ctx, title, month)
			return id, false, storageErr("lookup fund", err)
		}
		return 0, false, storageErr("insert fund", err)
	}
	if id, err = result.LastInsertId(); err != nil {
		return 0, false, storageErr("fund id", err)
	}

	slog.InfoContext(ctx, "Fund created", "fund_id", id, "fund_title", title, "month", month.String())
	return id, true, nil
}

func (r *SQLiteRepository) lookupFund(ctx context.Context, title string, month core.Month) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM funds WHERE fund_title = ? AND fund_month = ?`,
		title, month.String()).Scan(&id)
	return id, err
}

func (r *SQLiteRepository) GetFund(ctx context.Context, fundID int64) (core.Fund, error) {
	var (
		f                 core.Fund
		monthKey, created string
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, fund_title, fund_month, COALESCE(created_at, '')
		FROM funds WHERE id = ?`, fundID).Scan(&f.ID, &f.Title, &monthKey, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Fund{}, &core.NotFoundError{Entity: "fund", ID: fundID}
	}
	if err != nil {
		return core.Fund{}, storageErr("get fund", err)
	}
	f.Month, _ = core.ParseMonth(monthKey)
	f.CreatedAt = parseTimestamp(created)
	return f, nil
}

func fundExists(ctx context.Context, tx *sql.Tx, fundID int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM funds WHERE id = ?`, fundID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Entity: "fund", ID: fundID}
	}
	return storageErr("lookup fund", err)
}

// UpsertContribution stores amount for (fund, resident). A nil or
// non-positive amount removes the contribution instead.
func (r *SQLiteRepository) UpsertContribution(ctx context.Context, fundID, residentID int64, amount *core.Money) error {
	return r.withTx(ctx, "upsert contribution", func(tx *sql.Tx) error {
		if err := fundExists(ctx, tx, fundID); err != nil {
			return err
		}
		if err := residentExists(ctx, tx, residentID); err != nil {
			return err
		}
		return putContribution(ctx, tx, fundID, residentID, amount)
	})
}

func putContribution(ctx context.Context, tx *sql.Tx, fundID, residentID int64, amount *core.Money) error {
	if amount == nil || !amount.IsPositive() {
		_, err := tx.ExecContext(ctx, `DELETE FROM contributions WHERE fund_id = ? AND resident_id = ?`, fundID, residentID)
		return storageErr("delete contribution", err)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO contributions (fund_id, resident_id, amount) VALUES (?,?,?)
		ON CONFLICT(fund_id, resident_id) DO UPDATE SET amount = excluded.amount`,
		fundID, residentID, toUnits(*amount))
	if err != nil {
		if isForeignKeyViolation(err) {
			return &core.NotFoundError{Entity: "resident", ID: residentID}
		}
		return storageErr(fmt.Sprintf("upsert contribution for resident %d", residentID), err)
	}
	return nil
}

// SaveContributionBatch applies the whole sheet in one transaction: ticked
// rows with a positive amount are upserted, every other row is removed.
func (r *SQLiteRepository) SaveContributionBatch(ctx context.Context, fundID int64, rows []core.ContributionRow) error {
	kept := 0
	err := r.withTx(ctx, "save contributions", func(tx *sql.Tx) error {
		if err := fundExists(ctx, tx, fundID); err != nil {
			return err
		}
		for _, row := range rows {
			amount := row.Amount
			if !row.Keeps() {
				amount = nil
			} else {
				kept++
			}
			if err := putContribution(ctx, tx, fundID, row.ResidentID, amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Contributions saved", "fund_id", fundID, "rows", len(rows), "kept", kept)
	return nil
}

// DeleteFund removes the fund and, by cascade, all of its contributions.
func (r *SQLiteRepository) DeleteFund(ctx context.Context, fundID int64) error {
	err := r.withTx(ctx, "delete fund", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM funds WHERE id = ?`, fundID)
		if err != nil {
			return storageErr("delete fund", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return storageErr("rows affected", err)
		}
		if n == 0 {
			return &core.NotFoundError{Entity: "fund", ID: fundID}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Fund deleted", "fund_id", fundID)
	return nil
}

// FundSummary lists every fund with its collected total and contributor
// count, newest month first then by title.
func (r *SQLiteRepository) FundSummary(ctx context.Context) ([]core.FundSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT f.id, f.fund_title, f.fund_month, COALESCE(f.created_at, ''),
			COALESCE(SUM(c.amount), 0), COUNT(CASE WHEN c.amount > 0 THEN 1 END)
		FROM funds f
		LEFT JOIN contributions c ON c.fund_id = f.id
		GROUP BY f.id, f.fund_title, f.fund_month, f.created_at
		ORDER BY f.fund_month DESC, f.fund_title`)
	if err != nil {
		return nil, storageErr("query fund summary", err)
	}
	defer rows.Close()

	out := []core.FundSummary{}
	for rows.Next() {
		var (
			s                 core.FundSummary
			monthKey, created string
			total             float64
		)
		if err := rows.Scan(&s.Fund.ID, &s.Fund.Title, &monthKey, &created, &total, &s.Contributors); err != nil {
			return nil, storageErr("scan fund summary", err)
		}
		s.Fund.Month, _ = core.ParseMonth(monthKey)
		s.Fund.CreatedAt = parseTimestamp(created)
		s.Total = fromUnits(total)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate fund summary", err)
	}
	return out, nil
}

// ListContributions returns the stored contributions of a fund ordered by
// resident id.
func (r *SQLiteRepository) ListContributions(ctx context.Context, fundID int64) ([]core.Contribution, error) {
	var out []core.Contribution
	err := r.withTx(ctx, "list contributions", func(tx *sql.Tx) error {
		if err := fundExists(ctx, tx, fundID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `SELECT resident_id, amount FROM contributions
			WHERE fund_id = ? ORDER BY resident_id`, fundID)
		if err != nil {
			return storageErr("query contributions", err)
		}
		defer rows.Close()

		out = []core.Contribution{}
		for rows.Next() {
			var (
				c      = core.Contribution{FundID: fundID}
				amount float64
			)
			if err := rows.Scan(&c.ResidentID, &amount); err != nil {
				return storageErr("scan contribution", err)
			}
			c.Amount = fromUnits(amount)
			out = append(out, c)
		}
		return storageErr("iterate contributions", rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ContributionSheet lists every resident (street, house order) with its
// contribution to the fund, ticked where one is stored.
func (r *SQLiteRepository) ContributionSheet(ctx context.Context, fundID int64) ([]core.ContributionRow, error) {
	var out []core.ContributionRow
	err := r.withTx(ctx, "contribution sheet", func(tx *sql.Tx) error {
		if err := fundExists(ctx, tx, fundID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `SELECT r.id, r.house_no, c.amount
			FROM residents r
			LEFT JOIN contributions c ON c.resident_id = r.id AND c.fund_id = ?
			ORDER BY r.street_name, r.house_no`, fundID)
		if err != nil {
			return storageErr("query contribution sheet", err)
		}
		defer rows.Close()

		out = []core.ContributionRow{}
		for rows.Next() {
			var (
				row    core.ContributionRow
				amount sql.NullFloat64
			)
			if err := rows.Scan(&row.ResidentID, &row.HouseNo, &amount); err != nil {
				return storageErr("scan contribution sheet", err)
			}
			if amount.Valid {
				m := fromUnits(amount.Float64)
				row.Amount = &m
				row.Ticked = m.IsPositive()
			}
			out = append(out, row)
		}
		return storageErr("iterate contribution sheet", rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
