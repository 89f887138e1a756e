package workspaces

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestSchemaVersion(t *testing.T) {
	migrations := GetMigrations()
	assert.Equal(t, migrations[len(migrations)-1].Version, LatestSchemaVersion())
}

func TestSchemaCheck(t *testing.T) {
	latest := LatestSchemaVersion()
	versionQuery := `SELECT COALESCE\(MAX\(version\), 0\) FROM quill_migrations`

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
		errText string
	}{
		{
			name: "up to date",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(versionQuery).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(latest))
			},
		},
		{
			name: "pending migrations",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(versionQuery).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(latest - 1))
			},
			wantErr: ErrSchemaBehind,
		},
		{
			name: "never migrated",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(versionQuery).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(0))
			},
			wantErr: ErrSchemaBehind,
		},
		{
			name: "query error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(versionQuery).WillReturnError(errors.New(`relation "quill_migrations" does not exist`))
			},
			errText: "failed to read schema version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			check := SchemaCheck(db)
			assert.Equal(t, "schema", check.Name)
			assert.True(t, check.Required)

			err = check.Run(context.Background())
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				assert.ErrorContains(t, err, tt.errText)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
