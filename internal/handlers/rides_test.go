package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/services"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)

	return db, mock
}

// asUser injects an authenticated identity the way the auth middleware does.
func asUser(id uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", id)
		c.Set("role", role)
	}
}

// A claim can land between the handler's ownership read and its guarded
// UPDATE. The driver found by the locked in-transaction read must be
// released immediately, not left busy for the next sweep to repair.
func TestCancelRideReleasesDriverClaimedMidFlight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	hub := services.NewHub()

	// Ownership read sees no driver yet.
	mock.ExpectQuery(`SELECT \* FROM "rides"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "driver_id", "status"}).
			AddRow(9, 5, nil, "pending"))

	mock.ExpectBegin()
	// The locked read inside the transaction finds driver 7's claim.
	mock.ExpectQuery(`SELECT "driver_id" FROM "rides".*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"driver_id"}).AddRow(7))
	mock.ExpectExec(`UPDATE "rides" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Release path for driver 7 must run in the same transaction.
	mock.ExpectQuery(`SELECT count\(\*\) FROM "rides"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE "driver_statuses" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Post-cancel notification lookup for the displaced driver.
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(7, "driver7"))

	r := gin.New()
	r.POST("/rides/:rideId/cancel", asUser(5, "customer"), CancelRide(db, hub))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides/9/cancel", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRideByCustomer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	hub := services.NewHub()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "driver_id","customer_id" FROM "rides".*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"driver_id", "customer_id"}).AddRow(7, 5))
	mock.ExpectExec(`UPDATE "rides" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "rides"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE "driver_statuses" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT \* FROM "rides"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "driver_id", "status"}).
			AddRow(9, 5, 7, "completed"))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(5, "amina"))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(7, "driver7"))

	r := gin.New()
	r.POST("/rides/:rideId/complete", asUser(5, "customer"), CompleteRide(db, hub))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides/9/complete", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRideRejectsOutsider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	hub := services.NewHub()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "driver_id","customer_id" FROM "rides".*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"driver_id", "customer_id"}).AddRow(7, 5))
	// Caller 9 is neither party, so the guarded UPDATE matches nothing.
	mock.ExpectExec(`UPDATE "rides" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	r := gin.New()
	r.POST("/rides/:rideId/complete", asUser(9, "customer"), CompleteRide(db, hub))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides/9/complete", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateRideSecondAttemptConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)

	// rating IS NULL in the WHERE means a second rating matches zero rows.
	mock.ExpectExec(`UPDATE "rides" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := gin.New()
	r.POST("/rides/:rideId/rate", asUser(5, "customer"), RateRide(db))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rides/9/rate",
		strings.NewReader(`{"rating": 4, "feedback": "smooth trip"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
