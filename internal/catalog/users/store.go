package users

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

const userColumns = `user_id, user_ulid, name, email, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.UserID, &u.UserULID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) Insert(ctx context.Context, u *User) error {
	const q = `
	INSERT INTO users (user_ulid, name, email, created_at, updated_at)
	VALUES (?, ?, ?, NOW(6), NOW(6))`
	res, err := s.db.ExecContext(ctx, q, u.UserULID, u.Name, u.Email)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key
			return ErrConflict("email already exists")
		}
		return err
	}
	id, _ := res.LastInsertId()
	u.UserID = id
	return nil
}

func (s *Store) GetByID(ctx context.Context, userID int64) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE user_id = ?`
	return scanUser(s.db.QueryRowContext(ctx, q, userID))
}

func (s *Store) GetByULID(ctx context.Context, userULID string) (*User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE user_ulid = ?`
	return scanUser(s.db.QueryRowContext(ctx, q, userULID))
}

func (s *Store) Update(ctx context.Context, u *User) error {
	const q = `UPDATE users SET name = ?, email = ?, updated_at = NOW(6) WHERE user_id = ?`
	res, err := s.db.ExecContext(ctx, q, u.Name, u.Email, u.UserID)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrConflict("email already exists")
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("user not found")
	}
	return nil
}

// DeleteTx removes the user inside the transaction after the caller's checks.
func (s *Store) DeleteTx(ctx context.Context, tx db.DBTX, userID int64) error {
	const q = `DELETE FROM users WHERE user_id = ?`
	res, err := tx.ExecContext(ctx, q, userID)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1451 { // row is referenced
			return ErrConflict("user has borrow history")
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("user not found")
	}
	return nil
}

// HasOutstandingLendTx reports whether the user still holds borrowed books.
func (s *Store) HasOutstandingLendTx(ctx context.Context, tx db.DBTX, userID int64) (bool, error) {
	const q = `SELECT 1 FROM borrow_records WHERE user_id = ? AND returned = 0 LIMIT 1`
	var one int
	if err := tx.QueryRowContext(ctx, q, userID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, f UserFilter, p Page) ([]User, int64, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + userColumns + ` FROM users WHERE 1=1`)

	args := []any{}
	if f.Name != "" {
		sb.WriteString(` AND name LIKE ?`)
		args = append(args, "%"+f.Name+"%")
	}
	if f.Email != "" {
		sb.WriteString(` AND email = ?`)
		args = append(args, f.Email)
	}

	order := "ASC"
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	sb.WriteString(fmt.Sprintf(` ORDER BY user_id %s`, order))
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

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.UserULID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	cb := strings.Builder{}
	cb.WriteString(`SELECT COUNT(*) FROM users WHERE 1=1`)
	argsCnt := []any{}
	if f.Name != "" {
		cb.WriteString(` AND name LIKE ?`)
		argsCnt = append(argsCnt, "%"+f.Name+"%")
	}
	if f.Email != "" {
		cb.WriteString(` AND email = ?`)
		argsCnt = append(argsCnt, f.Email)
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, cb.String(), argsCnt...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return out, total, nil
}
