package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Column is a staging-table column: its name and SQL type.
type Column struct {
	Name string
	Type string
}

// UpsertConfig describes a staged bulk upsert. Rows are copied into a temp
// table shaped by Staging, then inserted into Table through Select.
type UpsertConfig struct {
	Table        string   // target table, e.g. "citystrata.statistical_areas"
	Staging      []Column // copied columns, in row order
	Insert       []string // target columns
	Select       []string // one expression over staging columns per Insert column; nil = same names
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns updated on conflict; nil = every non-key Insert column
}

// BulkUpsert copies rows into a temp table and merges them into the target
// with INSERT ... SELECT ... ON CONFLICT DO UPDATE in one transaction.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Staging) == 0 || len(cfg.Insert) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}
	selects := cfg.Select
	if selects == nil {
		selects = make([]string, len(cfg.Insert))
		for i, c := range cfg.Insert {
			selects[i] = pgx.Identifier{c}.Sanitize()
		}
	}
	if len(selects) != len(cfg.Insert) {
		return 0, eris.Errorf("db: upsert: %d select expressions for %d columns", len(selects), len(cfg.Insert))
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		keys := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			keys[k] = true
		}
		for _, c := range cfg.Insert {
			if !keys[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	var set []string
	for _, col := range updateCols {
		q := pgx.Identifier{col}.Sanitize()
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}
	action := "DO NOTHING"
	if len(set) > 0 {
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}

	stage := stagingName("upsert", cfg.Table)
	merge := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		sanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Insert),
		strings.Join(selects, ", "),
		pgx.Identifier{stage}.Sanitize(),
		quoteAndJoin(cfg.ConflictKeys),
		action,
	)
	return stageAndRun(ctx, pool, cfg.Table, stage, cfg.Staging, rows, merge)
}

// UpdateConfig describes a staged bulk update of existing rows.
type UpdateConfig struct {
	Table   string   // target table
	Staging []Column // copied columns, in row order
	Keys    []string // staging columns matched by equality against the target
	Set     []string // staging columns copied onto same-named target columns
}

// BulkUpdate copies rows into a temp table and applies them with
// UPDATE ... FROM in one transaction. It returns the number of target rows
// changed.
func BulkUpdate(ctx context.Context, pool Pool, cfg UpdateConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Staging) == 0 || len(cfg.Set) == 0 {
		return 0, eris.New("db: update: no columns specified")
	}
	if len(cfg.Keys) == 0 {
		return 0, eris.New("db: update: no key columns specified")
	}

	stage := stagingName("update", cfg.Table)
	var set, where []string
	for _, c := range cfg.Set {
		q := pgx.Identifier{c}.Sanitize()
		set = append(set, fmt.Sprintf("%s = s.%s", q, q))
	}
	for _, k := range cfg.Keys {
		q := pgx.Identifier{k}.Sanitize()
		where = append(where, fmt.Sprintf("t.%s = s.%s", q, q))
	}
	update := fmt.Sprintf(
		"UPDATE %s AS t SET %s FROM %s AS s WHERE %s",
		sanitizeTable(cfg.Table),
		strings.Join(set, ", "),
		pgx.Identifier{stage}.Sanitize(),
		strings.Join(where, " AND "),
	)
	return stageAndRun(ctx, pool, cfg.Table, stage, cfg.Staging, rows, update)
}

func stageAndRun(ctx context.Context, pool Pool, table, stage string, cols []Column, rows [][]any, stmt string) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Type
		names[i] = c.Name
	}
	create := fmt.Sprintf("CREATE TEMP TABLE %s (%s) ON COMMIT DROP", pgx.Identifier{stage}.Sanitize(), strings.Join(defs, ", "))
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: create staging table for %s", table)
	}

	if _, err := CopyFrom(ctx, tx, stage, names, rows); err != nil {
		return 0, eris.Wrapf(err, "db: stage rows for %s", table)
	}

	tag, err := tx.Exec(ctx, stmt)
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge staging rows into %s", table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: commit tx")
	}
	return tag.RowsAffected(), nil
}

func stagingName(op, table string) string {
	return fmt.Sprintf("_stage_%s_%s", op, strings.ReplaceAll(table, ".", "_"))
}

// sanitizeTable quotes schema-qualified names like "citystrata.lodging".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
