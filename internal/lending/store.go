package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"

	"library-backend/internal/platform/db"
)

type Store struct {
	db *sql.DB
}

func NewStore(d *sql.DB) *Store { return &Store{db: d} }

// ---- Transactional methods ----
// 貸出・返却の判定と書き込みは同一Tx内で行う前提。呼び出し側が db.RunInTx で包む。

// LockBookTx locks the book row and returns its title and availability flag.
func (s *Store) LockBookTx(ctx context.Context, tx db.DBTX, bookID int64) (string, bool, error) {
	const q = `SELECT title, available FROM books WHERE book_id = ? FOR UPDATE`
	var title string
	var available bool
	if err := tx.QueryRowContext(ctx, q, bookID).Scan(&title, &available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, ErrNotFound("book not found")
		}
		return "", false, err
	}
	return title, available, nil
}

// GetUserNameTx resolves the user's display name inside the transaction.
func (s *Store) GetUserNameTx(ctx context.Context, tx db.DBTX, userID int64) (string, error) {
	const q = `SELECT name FROM users WHERE user_id = ?`
	var name string
	if err := tx.QueryRowContext(ctx, q, userID).Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound("user not found")
		}
		return "", err
	}
	return name, nil
}

// FindOutstandingByBookTx returns the outstanding (returned=0) record for the book,
// or nil when the book has none. Runs on the same Tx as the subsequent write.
func (s *Store) FindOutstandingByBookTx(ctx context.Context, tx db.DBTX, bookID int64) (*BorrowRecord, error) {
	const q = `
	SELECT record_id, record_ulid, book_id, user_id, borrow_date, return_date, returned
	FROM borrow_records
	WHERE book_id = ? AND returned = 0
	LIMIT 1`
	var r BorrowRecord
	err := tx.QueryRowContext(ctx, q, bookID).Scan(
		&r.RecordID, &r.RecordULID, &r.BookID, &r.UserID,
		&r.BorrowDate, &r.ReturnDate, &r.Returned,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertRecordTx inserts a new borrow record and fills in the generated record_id.
func (s *Store) InsertRecordTx(ctx context.Context, tx db.DBTX, m *BorrowRecord) error {
	const q = `
	INSERT INTO borrow_records
	(record_ulid, book_id, user_id, borrow_date, returned)
	VALUES
	(?, ?, ?, ?, 0)`
	res, err := tx.ExecContext(ctx, q, m.RecordULID, m.BookID, m.UserID, m.BorrowDate)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1452 { // foreign key constraint fails
			return ErrNotFound("book or user not found")
		}
		return err
	}
	id, _ := res.LastInsertId()
	m.RecordID = id
	return nil
}

// SetBookAvailabilityTx flips books.available inside the transaction.
func (s *Store) SetBookAvailabilityTx(ctx context.Context, tx db.DBTX, bookID int64, available bool) error {
	const q = `UPDATE books SET available = ? WHERE book_id = ?`
	res, err := tx.ExecContext(ctx, q, available, bookID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff != 1 {
		return ErrInternal("failed to update books.available")
	}
	return nil
}

// LockRecordTx locks the borrow record row by numeric id.
func (s *Store) LockRecordTx(ctx context.Context, tx db.DBTX, recordID int64) (*BorrowRecord, error) {
	const q = `
	SELECT record_id, record_ulid, book_id, user_id, borrow_date, return_date, returned
	FROM borrow_records WHERE record_id = ? FOR UPDATE`
	return scanRecord(tx.QueryRowContext(ctx, q, recordID))
}

// LockRecordByULIDTx locks the borrow record row by ULID.
func (s *Store) LockRecordByULIDTx(ctx context.Context, tx db.DBTX, recordULID string) (*BorrowRecord, error) {
	const q = `
	SELECT record_id, record_ulid, book_id, user_id, borrow_date, return_date, returned
	FROM borrow_records WHERE record_ulid = ? FOR UPDATE`
	return scanRecord(tx.QueryRowContext(ctx, q, recordULID))
}

func scanRecord(row *sql.Row) (*BorrowRecord, error) {
	var r BorrowRecord
	err := row.Scan(
		&r.RecordID, &r.RecordULID, &r.BookID, &r.UserID,
		&r.BorrowDate, &r.ReturnDate, &r.Returned,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("borrow record not found")
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkReturnedTx closes the record. returned=0 の行だけが対象（二重返却の最終防衛線）。
func (s *Store) MarkReturnedTx(ctx context.Context, tx db.DBTX, recordID int64, at time.Time) error {
	const q = `UPDATE borrow_records SET returned = 1, return_date = ? WHERE record_id = ? AND returned = 0`
	res, err := tx.ExecContext(ctx, q, at, recordID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff != 1 {
		return ErrInternal("failed to update borrow_records.returned")
	}
	return nil
}

// GetBookTitleTx resolves the book title inside the transaction (for the response).
func (s *Store) GetBookTitleTx(ctx context.Context, tx db.DBTX, bookID int64) (string, error) {
	const q = `SELECT title FROM books WHERE book_id = ?`
	var title string
	if err := tx.QueryRowContext(ctx, q, bookID).Scan(&title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound("book not found")
		}
		return "", err
	}
	return title, nil
}

// ---- Queries ----

func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT 1 FROM users WHERE user_id = ?`
	var one int
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) ListRecords(ctx context.Context, f RecordFilter, p Page) ([]recordRow, int64, error) {
	sb := strings.Builder{}
	sb.WriteString(`
	SELECT
	r.record_id, r.record_ulid, r.book_id, r.user_id, r.borrow_date, r.return_date, r.returned,
	b.title, u.name
	FROM borrow_records r
	JOIN books b ON b.book_id = r.book_id
	JOIN users u ON u.user_id = r.user_id
	WHERE 1=1
`)

	args := []any{}
	if f.UserID != nil {
		sb.WriteString(` AND r.user_id = ?`)
		args = append(args, *f.UserID)
	}
	if f.BookID != nil {
		sb.WriteString(` AND r.book_id = ?`)
		args = append(args, *f.BookID)
	}
	if f.Returned != nil {
		sb.WriteString(` AND r.returned = ?`)
		args = append(args, *f.Returned)
	}
	if f.OnlyOutstanding {
		sb.WriteString(` AND r.returned = 0`)
	}
	if f.From != nil {
		sb.WriteString(` AND r.borrow_date >= ?`)
		args = append(args, *f.From)
	}
	if f.To != nil {
		sb.WriteString(` AND r.borrow_date < ?`)
		args = append(args, *f.To)
	}

	// 既定は貸出日の昇順
	order := "ASC"
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	sb.WriteString(fmt.Sprintf(` ORDER BY r.borrow_date %s, r.record_id %s`, order, order))
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	sb.WriteString(` LIMIT ? OFFSET ?`)
	args = append(args, p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []recordRow
	for rows.Next() {
		var r recordRow
		if err := rows.Scan(
			&r.RecordID, &r.RecordULID, &r.BookID, &r.UserID,
			&r.BorrowDate, &r.ReturnDate, &r.Returned,
			&r.BookTitle, &r.UserName,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	cb := strings.Builder{}
	cb.WriteString(`SELECT COUNT(*) FROM borrow_records r WHERE 1=1`)
	argsCnt := []any{}
	if f.UserID != nil {
		cb.WriteString(` AND r.user_id = ?`)
		argsCnt = append(argsCnt, *f.UserID)
	}
	if f.BookID != nil {
		cb.WriteString(` AND r.book_id = ?`)
		argsCnt = append(argsCnt, *f.BookID)
	}
	if f.Returned != nil {
		cb.WriteString(` AND r.returned = ?`)
		argsCnt = append(argsCnt, *f.Returned)
	}
	if f.OnlyOutstanding {
		cb.WriteString(` AND r.returned = 0`)
	}
	if f.From != nil {
		cb.WriteString(` AND r.borrow_date >= ?`)
		argsCnt = append(argsCnt, *f.From)
	}
	if f.To != nil {
		cb.WriteString(` AND r.borrow_date < ?`)
		argsCnt = append(argsCnt, *f.To)
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, cb.String(), argsCnt...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return out, total, nil
}
