package users

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysql "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	d, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	return &Service{db: d, store: NewStore(d), log: log}, mock
}

func userColumnNames() []string {
	return []string{"user_id", "user_ulid", "name", "email", "created_at", "updated_at"}
}

func strptr(s string) *string { return &s }

func TestCreateUser_Success(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "Natsume", "natsume@example.com").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(`FROM users WHERE user_id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userColumnNames()).
			AddRow(7, "01HTZXUSER0000000000000000", "Natsume", "natsume@example.com", now, now))

	res, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Name:  "Natsume",
		Email: "natsume@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.UserID)
	assert.Equal(t, "natsume@example.com", res.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	var api *APIError

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{Email: "a@example.com"})
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeInvalidArgument, api.Code)

	_, err = svc.CreateUser(context.Background(), CreateUserRequest{Name: "Natsume"})
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeInvalidArgument, api.Code)

	_, err = svc.CreateUser(context.Background(), CreateUserRequest{Name: "Natsume", Email: "not-an-email"})
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeInvalidArgument, api.Code)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "Natsume", "natsume@example.com").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "duplicate entry"})

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Name:  "Natsume",
		Email: "natsume@example.com",
	})

	var api *APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeConflict, api.Code)
	assert.Equal(t, "email already exists", api.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser_ConflictWhileOnLoan(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM users WHERE user_id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userColumnNames()).
			AddRow(7, "01HTZXUSER0000000000000000", "Natsume", "natsume@example.com", now, now))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM borrow_records WHERE user_id = \? AND returned = 0`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	err := svc.DeleteUser(context.Background(), "7")

	var api *APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeConflict, api.Code)
	assert.Equal(t, "user has books on loan", api.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUser_NotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`FROM users WHERE user_id = \?`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(userColumnNames()))

	_, err := svc.UpdateUser(context.Background(), "404", UpdateUserRequest{Name: strptr("Mori")})

	var api *APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeNotFound, api.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
