package books

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

func bookColumnNames() []string {
	return []string{"book_id", "book_ulid", "title", "author", "isbn", "published_on", "genre", "available", "created_at", "updated_at"}
}

func strptr(s string) *string { return &s }

func TestCreateBook_Success(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO books`).
		WithArgs(sqlmock.AnyArg(), "Kokoro", "Natsume Soseki", nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`FROM books WHERE book_id = \?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(bookColumnNames()).
			AddRow(1, "01HTZXBOOK0000000000000000", "Kokoro", "Natsume Soseki", nil, nil, nil, true, now, now))

	res, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title:  "Kokoro",
		Author: "Natsume Soseki",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.BookID)
	assert.True(t, res.Available) // 新規登録は必ず貸出可能
	assert.Nil(t, res.ISBN)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBook_NormalizesAndStoresISBN(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO books`).
		WithArgs(sqlmock.AnyArg(), "Kokoro", "Natsume Soseki", "9780306406157", nil, nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery(`FROM books WHERE book_id = \?`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(bookColumnNames()).
			AddRow(2, "01HTZXBOOK0000000000000001", "Kokoro", "Natsume Soseki", "9780306406157", nil, nil, true, now, now))

	res, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title:  "Kokoro",
		Author: "Natsume Soseki",
		ISBN:   strptr("978-0-306-40615-7"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.ISBN)
	assert.Equal(t, "9780306406157", *res.ISBN)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBook_InvalidISBN(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title:  "Kokoro",
		Author: "Natsume Soseki",
		ISBN:   strptr("978-0-306-40615-8"), // チェックディジット不正
	})

	var api *APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeInvalidArgument, api.Code)
}

func TestCreateBook_UnknownGenre(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT 1 FROM genres WHERE genre_name = \?`).
		WithArgs("nonfiction").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	_, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title:  "Kokoro",
		Author: "Natsume Soseki",
		Genre:  strptr("nonfiction"),
	})

	var api *APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeInvalidArgument, api.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBook_MissingFields(t *testing.T) {
	svc, _ := newTestService(t)

	var api *APIError

	_, err := svc.CreateBook(context.Background(), CreateBookRequest{Author: "Natsume Soseki"})
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeInvalidArgument, api.Code)

	_, err = svc.CreateBook(context.Background(), CreateBookRequest{Title: "Kokoro"})
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeInvalidArgument, api.Code)
}

func TestDeleteBook_ConflictWhileOnLoan(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM books WHERE book_id = \?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(bookColumnNames()).
			AddRow(1, "01HTZXBOOK0000000000000000", "Kokoro", "Natsume Soseki", nil, nil, nil, false, now, now))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT book_id FROM books WHERE book_id = \? FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"book_id"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM borrow_records WHERE book_id = \? AND returned = 0`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	err := svc.DeleteBook(context.Background(), "1")

	var api *APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeConflict, api.Code)
	assert.Equal(t, "book is on loan", api.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteBook_ConflictWithHistory(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM books WHERE book_id = \?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(bookColumnNames()).
			AddRow(1, "01HTZXBOOK0000000000000000", "Kokoro", "Natsume Soseki", nil, nil, nil, true, now, now))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT book_id FROM books WHERE book_id = \? FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"book_id"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM borrow_records WHERE book_id = \? AND returned = 0`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec(`DELETE FROM books WHERE book_id = \?`).
		WithArgs(int64(1)).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "a foreign key constraint fails"})
	mock.ExpectRollback()

	err := svc.DeleteBook(context.Background(), "1")

	var api *APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeConflict, api.Code)
	assert.Equal(t, "book has borrow history", api.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBookByKey_NotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`FROM books WHERE book_id = \?`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(bookColumnNames()))

	_, err := svc.GetBookByKey(context.Background(), "42")

	var api *APIError
	require.True(t, errors.As(err, &api))
	assert.Equal(t, CodeNotFound, api.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
