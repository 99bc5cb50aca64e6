package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var claimNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

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

func TestClaimRideRejectsDriverWithRecentJob(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "rides"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	ride, err := ClaimRide(db, 9, 7, claimNow)

	assert.Nil(t, ride)
	assert.ErrorIs(t, err, ErrDriverHasActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRideConflictWhenNoRowMatches(t *testing.T) {
	db, mock := newMockDB(t)

	// The conditional UPDATE touching zero rows is the entire race signal:
	// already assigned, already terminal, or a scheduled ride still outside
	// its lead window all land here.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "rides"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE "rides" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ride, err := ClaimRide(db, 9, 7, claimNow)

	assert.Nil(t, ride)
	assert.ErrorIs(t, err, ErrRideConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRideWinnerGetsRideAndBusyFlag(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "rides"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE "rides" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "driver_statuses" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "rides"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "driver_id", "status"}).
			AddRow(9, 5, 7, "accepted"))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(5, "amina"))
	mock.ExpectCommit()

	ride, err := ClaimRide(db, 9, 7, claimNow)

	require.NoError(t, err)
	require.NotNil(t, ride)
	assert.Equal(t, uint(9), ride.ID)
	assert.Equal(t, "accepted", ride.Status)
	require.NotNil(t, ride.DriverID)
	assert.Equal(t, uint(7), *ride.DriverID)
	require.NotNil(t, ride.Customer)
	assert.Equal(t, "amina", ride.Customer.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRideRollsBackWhenBusyFlagFails(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "rides"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE "rides" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "driver_statuses" SET`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	ride, err := ClaimRide(db, 9, 7, claimNow)

	assert.Nil(t, ride)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
