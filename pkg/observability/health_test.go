package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func staticCheck(name string, required bool, err error) ReadinessCheck {
	return ReadinessCheck{
		Name:     name,
		Required: required,
		Run:      func(context.Context) error { return err },
	}
}

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker("test", staticCheck("database", true, errors.New("down")))
	rec := httptest.NewRecorder()
	checker.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHealthChecker_Check(t *testing.T) {
	tests := []struct {
		name   string
		checks []ReadinessCheck
		want   string
		detail map[string]string
	}{
		{
			name:   "no checks",
			want:   StatusHealthy,
			detail: map[string]string{},
		},
		{
			name:   "all passing",
			checks: []ReadinessCheck{staticCheck("database", true, nil), staticCheck("redis", false, nil)},
			want:   StatusHealthy,
			detail: map[string]string{"database": StatusHealthy, "redis": StatusHealthy},
		},
		{
			name:   "optional failure degrades",
			checks: []ReadinessCheck{staticCheck("database", true, nil), staticCheck("redis", false, errors.New("refused"))},
			want:   StatusDegraded,
			detail: map[string]string{"database": StatusHealthy, "redis": StatusUnhealthy},
		},
		{
			name:   "required degraded result",
			checks: []ReadinessCheck{staticCheck("database", true, errors.Join(ErrDegraded, errors.New("pool")))},
			want:   StatusDegraded,
			detail: map[string]string{"database": StatusDegraded},
		},
		{
			name: "required failure wins",
			checks: []ReadinessCheck{
				staticCheck("redis", false, errors.New("refused")),
				staticCheck("schema", true, errors.New("behind")),
				staticCheck("database", true, nil),
			},
			want:   StatusUnhealthy,
			detail: map[string]string{"redis": StatusUnhealthy, "schema": StatusUnhealthy, "database": StatusHealthy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready := NewHealthChecker("v1", tt.checks...).Check(context.Background())
			assert.Equal(t, tt.want, ready.Status)
			assert.Equal(t, "v1", ready.Version)

			got := make(map[string]string, len(ready.Checks))
			for name, result := range ready.Checks {
				got[name] = result.Status
				if result.Status == StatusHealthy {
					assert.Empty(t, result.Error, name)
				} else {
					assert.NotEmpty(t, result.Error, name)
				}
			}
			assert.Equal(t, tt.detail, got)
		})
	}
}

func TestDatabaseCheck(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	check := DatabaseCheck(db)
	assert.True(t, check.Required)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	assert.NoError(t, check.Run(context.Background()))

	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("read only"))
	err = check.Run(context.Background())
	assert.ErrorContains(t, err, "read only")
	assert.NotErrorIs(t, err, ErrDegraded)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCheck(t *testing.T) {
	mr, client := newMiniredisClient(t)
	check := RedisCheck(client)
	assert.False(t, check.Required)
	assert.NoError(t, check.Run(context.Background()))

	mr.Close()
	assert.Error(t, check.Run(context.Background()))
}

func TestHealthChecker_RegisterRoutes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("down"))

	router := mux.NewRouter()
	NewHealthChecker("test", DatabaseCheck(db)).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body Readiness
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusUnhealthy, body.Status)
	assert.Equal(t, "down", body.Checks["database"].Error)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthChecker_ReadyWhenDegraded(t *testing.T) {
	router := mux.NewRouter()
	NewHealthChecker("test", staticCheck("redis", false, errors.New("refused"))).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body Readiness
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusDegraded, body.Status)
}
