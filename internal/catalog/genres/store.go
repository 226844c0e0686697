package genres

import (
	"context"
	"database/sql"
	"errors"

	mysql "github.com/go-sql-driver/mysql"
)

type Store struct{ db *sql.DB }

func NewStore(d *sql.DB) *Store { return &Store{db: d} }

// GET /genres?all=1
func (s *Store) List(ctx context.Context, includeDisabled bool) ([]Genre, error) {
	q := `
		SELECT genre_id, genre_name, is_disabled
		FROM genres
	`
	if !includeDisabled {
		q += ` WHERE is_disabled = 0`
	}
	q += ` ORDER BY genre_id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]Genre, 0, 16)
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.GenreID, &g.GenreName, &g.IsDisabled); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) Create(ctx context.Context, name string) (*Genre, error) {
	const q = `INSERT INTO genres (genre_name, is_disabled) VALUES (?, 0)`
	res, err := s.db.ExecContext(ctx, q, name)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return nil, ErrConflict("genre already exists")
		}
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &Genre{GenreID: id, GenreName: name}, nil
}

func (s *Store) SetDisabled(ctx context.Context, genreID int64, disabled bool) error {
	const q = `UPDATE genres SET is_disabled = ? WHERE genre_id = ?`
	res, err := s.db.ExecContext(ctx, q, disabled, genreID)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound("genre not found")
	}
	return nil
}
