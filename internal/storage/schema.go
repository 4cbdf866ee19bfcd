package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
)

type columnSpec struct {
	table  string
	column string
	decl   string // type and default used by ALTER TABLE ADD COLUMN
}

// additiveColumns lists columns later releases added to existing tables.
// SQLite refuses non-constant defaults on ADD COLUMN, hence the empty-string default for timestamps.
var additiveColumns = []columnSpec{
	{"residents", "created_at", "TEXT DEFAULT ''"},
	{"bills", "amount_paid", "REAL DEFAULT 0"},
	{"funds", "created_at", "TEXT DEFAULT ''"},
}

// ensureColumns adds every missing additive column and returns the
// "table.column" names it created.
func ensureColumns(ctx context.Context, db *sql.DB) ([]string, error) {
	var added []string
	for _, col := range additiveColumns {
		cols, err := tableColumns(ctx, db, col.table)
		if err != nil {
			return added, err
		}
		if cols[col.column] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.table, col.column, col.decl)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return added, fmt.Errorf("add column %s.%s: %w", col.table, col.column, err)
		}
		added = append(added, col.table+"."+col.column)
	}
	if slices.Contains(added, "bills.amount_paid") {
		// Rows written before the column existed get their total backfilled.
		if _, err := db.ExecContext(ctx, `UPDATE bills SET amount_paid =
			COALESCE(water_bill, 0) + COALESCE(security_bill, 0) + COALESCE(sanitation_bill, 0)`); err != nil {
			return added, fmt.Errorf("backfill bills.amount_paid: %w", err)
		}
	}
	return added, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
