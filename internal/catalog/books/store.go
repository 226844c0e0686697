package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mysql "github.com/go-sql-driver/mysql"

	"library-backend/internal/platform/db"
)

type Store struct {
	db *sql.DB
}

func NewStore(d *sql.DB) *Store { return &Store{db: d} }

const bookColumns = `book_id, book_ulid, title, author, isbn, published_on, genre, available, created_at, updated_at`

func scanBook(row *sql.Row) (*Book, error) {
	var b Book
	err := row.Scan(
		&b.BookID, &b.BookULID, &b.Title, &b.Author,
		&b.ISBN, &b.PublishedOn, &b.Genre, &b.Available,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("book not found")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) Insert(ctx context.Context, b *Book) error {
	const q = `
	INSERT INTO books
	(book_ulid, title, author, isbn, published_on, genre, available, created_at, updated_at)
	VALUES
	(?, ?, ?, ?, ?, ?, 1, NOW(6), NOW(6))`
	res, err := s.db.ExecContext(ctx, q,
		b.BookULID, b.Title, b.Author, b.ISBN, b.PublishedOn, b.Genre,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	b.BookID = id
	return nil
}

func (s *Store) GetByID(ctx context.Context, bookID int64) (*Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE book_id = ?`
	return scanBook(s.db.QueryRowContext(ctx, q, bookID))
}

func (s *Store) GetByULID(ctx context.Context, bookULID string) (*Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE book_ulid = ?`
	return scanBook(s.db.QueryRowContext(ctx, q, bookULID))
}

// Update は available を除く属性を書き換える。
// available は貸出・返却のTxだけが触る（台帳との整合を崩さないため）。
func (s *Store) Update(ctx context.Context, b *Book) error {
	const q = `
	UPDATE books
	SET title = ?, author = ?, isbn = ?, published_on = ?, genre = ?, updated_at = NOW(6)
	WHERE book_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		b.Title, b.Author, b.ISBN, b.PublishedOn, b.Genre, b.BookID,
	)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("book not found")
	}
	return nil
}

// DeleteTx removes the book inside the transaction after the caller's checks.
func (s *Store) DeleteTx(ctx context.Context, tx db.DBTX, bookID int64) error {
	const q = `DELETE FROM books WHERE book_id = ?`
	res, err := tx.ExecContext(ctx, q, bookID)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1451 { // row is referenced
			return ErrConflict("book has borrow history")
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("book not found")
	}
	return nil
}

// LockTx locks the book row before the delete guard checks.
func (s *Store) LockTx(ctx context.Context, tx db.DBTX, bookID int64) error {
	const q = `SELECT book_id FROM books WHERE book_id = ? FOR UPDATE`
	var id int64
	if err := tx.QueryRowContext(ctx, q, bookID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound("book not found")
		}
		return err
	}
	return nil
}

// HasOutstandingLendTx reports whether the book has an open borrow record.
func (s *Store) HasOutstandingLendTx(ctx context.Context, tx db.DBTX, bookID int64) (bool, error) {
	const q = `SELECT 1 FROM borrow_records WHERE book_id = ? AND returned = 0 LIMIT 1`
	var one int
	if err := tx.QueryRowContext(ctx, q, bookID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) GenreExists(ctx context.Context, name string) (bool, error) {
	const q = `SELECT 1 FROM genres WHERE genre_name = ? AND is_disabled = 0`
	var one int
	if err := s.db.QueryRowContext(ctx, q, name).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, f BookFilter, p Page) ([]Book, int64, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + bookColumns + ` FROM books WHERE 1=1`)

	args := []any{}
	if f.Title != "" {
		sb.WriteString(` AND title LIKE ?`)
		args = append(args, "%"+f.Title+"%")
	}
	if f.Author != "" {
		sb.WriteString(` AND author = ?`)
		args = append(args, f.Author)
	}
	if f.Genre != "" {
		sb.WriteString(` AND genre = ?`)
		args = append(args, f.Genre)
	}
	if f.Available != nil {
		sb.WriteString(` AND available = ?`)
		args = append(args, *f.Available)
	}

	order := "ASC"
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	sb.WriteString(fmt.Sprintf(` ORDER BY book_id %s`, order))
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

	var out []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(
			&b.BookID, &b.BookULID, &b.Title, &b.Author,
			&b.ISBN, &b.PublishedOn, &b.Genre, &b.Available,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	cb := strings.Builder{}
	cb.WriteString(`SELECT COUNT(*) FROM books WHERE 1=1`)
	argsCnt := []any{}
	if f.Title != "" {
		cb.WriteString(` AND title LIKE ?`)
		argsCnt = append(argsCnt, "%"+f.Title+"%")
	}
	if f.Author != "" {
		cb.WriteString(` AND author = ?`)
		argsCnt = append(argsCnt, f.Author)
	}
	if f.Genre != "" {
		cb.WriteString(` AND genre = ?`)
		argsCnt = append(argsCnt, f.Genre)
	}
	if f.Available != nil {
		cb.WriteString(` AND available = ?`)
		argsCnt = append(argsCnt, *f.Available)
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, cb.String(), argsCnt...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return out, total, nil
}
