package geospatial

import (
	"context"
	"fmt"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func expectAdvisoryLock(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec("SELECT pg_advisory_lock").
		WithArgs(migrationLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
}

func expectAdvisoryUnlock(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(migrationLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
}

func TestMigrationNames_Sorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_schema.sql", "002_indexes.sql"}, names)
}

func TestMigrate_FreshDB(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	names, err := migrationNames()
	require.NoError(t, err)

	expectAdvisoryLock(mock)
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS citystrata").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT filename FROM citystrata.schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}))

	for _, name := range names {
		mock.ExpectExec(".*").WillReturnResult(pgxmock.NewResult("EXEC", 0))
		mock.ExpectExec("INSERT INTO citystrata.schema_migrations").
			WithArgs(name).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	expectAdvisoryUnlock(mock)

	err = Migrate(context.Background(), mock)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SkipsApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectAdvisoryLock(mock)
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT filename FROM citystrata.schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}).AddRow("001_schema.sql"))

	mock.ExpectExec("CREATE INDEX IF NOT EXISTS lodging_area_idx").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO citystrata.schema_migrations").
		WithArgs("002_indexes.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectAdvisoryUnlock(mock)

	err = Migrate(context.Background(), mock)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_AllAlreadyApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	names, err := migrationNames()
	require.NoError(t, err)

	expectAdvisoryLock(mock)
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	rows := pgxmock.NewRows([]string{"filename"})
	for _, name := range names {
		rows.AddRow(name)
	}
	mock.ExpectQuery("SELECT filename FROM citystrata.schema_migrations").WillReturnRows(rows)
	expectAdvisoryUnlock(mock)

	err = Migrate(context.Background(), mock)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr string
	}{
		{
			name: "advisory lock",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("SELECT pg_advisory_lock").
					WithArgs(migrationLockKey).
					WillReturnError(fmt.Errorf("could not obtain lock"))
			},
			wantErr: "acquire migration advisory lock",
		},
		{
			name: "ensure table",
			setup: func(mock pgxmock.PgxPoolIface) {
				expectAdvisoryLock(mock)
				mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS").WillReturnError(fmt.Errorf("permission denied"))
				expectAdvisoryUnlock(mock)
			},
			wantErr: "ensure migration table",
		},
		{
			name: "query applied",
			setup: func(mock pgxmock.PgxPoolIface) {
				expectAdvisoryLock(mock)
				mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
				mock.ExpectQuery("SELECT filename").WillReturnError(fmt.Errorf("relation does not exist"))
				expectAdvisoryUnlock(mock)
			},
			wantErr: "query applied migrations",
		},
		{
			name: "apply",
			setup: func(mock pgxmock.PgxPoolIface) {
				expectAdvisoryLock(mock)
				mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
				mock.ExpectQuery("SELECT filename").WillReturnRows(pgxmock.NewRows([]string{"filename"}))
				mock.ExpectExec("CREATE EXTENSION").WillReturnError(fmt.Errorf("syntax error"))
				expectAdvisoryUnlock(mock)
			},
			wantErr: "apply migration 001_schema.sql",
		},
		{
			name: "record",
			setup: func(mock pgxmock.PgxPoolIface) {
				expectAdvisoryLock(mock)
				mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE", 0))
				mock.ExpectQuery("SELECT filename").WillReturnRows(pgxmock.NewRows([]string{"filename"}))
				mock.ExpectExec("CREATE EXTENSION").WillReturnResult(pgxmock.NewResult("EXEC", 0))
				mock.ExpectExec("INSERT INTO citystrata.schema_migrations").
					WithArgs("001_schema.sql").
					WillReturnError(fmt.Errorf("disk full"))
				expectAdvisoryUnlock(mock)
			},
			wantErr: "record migration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setup(mock)
			err = Migrate(context.Background(), mock)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
