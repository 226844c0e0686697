package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"library-backend/internal/platform/db"
)

// ===== Error model =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type Service struct {
	db    *sql.DB
	store *Store
	log   *logrus.Logger
}

func NewService(d *sql.DB, log *logrus.Logger) *Service {
	return &Service{db: d, store: NewStore(d), log: log}
}

const dateLayout = "2006-01-02"

// 書籍登録
func (s *Service) CreateBook(ctx context.Context, in CreateBookRequest) (*BookResponse, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrInvalid("title is required")
	}
	if strings.TrimSpace(in.Author) == "" {
		return nil, ErrInvalid("author is required")
	}

	b := &Book{
		BookULID:  ulid.Make().String(),
		Title:     strings.TrimSpace(in.Title),
		Author:    strings.TrimSpace(in.Author),
		Available: true,
	}

	if err := s.applyOptionalFields(ctx, b, in.ISBN, in.PublishedOn, in.Genre); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, b); err != nil {
		return nil, err
	}

	s.log.WithField("book_id", b.BookID).Info("adding new book")

	// DBのタイムスタンプ込みで返す
	out, err := s.store.GetByID(ctx, b.BookID)
	if err != nil {
		return nil, err
	}
	resp := buildBookResponse(out)
	return &resp, nil
}

// 書籍単一取得（ID or ULID）
func (s *Service) GetBookByKey(ctx context.Context, key string) (*BookResponse, error) {
	b, err := s.getByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	resp := buildBookResponse(b)
	return &resp, nil
}

// 書籍一覧
func (s *Service) ListBooks(ctx context.Context, f BookFilter, p Page) (BookListResponse, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return BookListResponse{}, err
	}
	out := make([]BookResponse, 0, len(items))
	for i := range items {
		out = append(out, buildBookResponse(&items[i]))
	}
	return BookListResponse{Items: out, Total: total}, nil
}

// 書籍更新（available は対象外。貸出・返却だけが触る）
func (s *Service) UpdateBook(ctx context.Context, key string, in UpdateBookRequest) (*BookResponse, error) {
	b, err := s.getByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, ErrInvalid("title must not be empty")
		}
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.Author != nil {
		if strings.TrimSpace(*in.Author) == "" {
			return nil, ErrInvalid("author must not be empty")
		}
		b.Author = strings.TrimSpace(*in.Author)
	}

	if err := s.applyOptionalFields(ctx, b, in.ISBN, in.PublishedOn, in.Genre); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, b); err != nil {
		return nil, err
	}

	s.log.WithField("book_id", b.BookID).Info("updating book")

	out, err := s.store.GetByID(ctx, b.BookID)
	if err != nil {
		return nil, err
	}
	resp := buildBookResponse(out)
	return &resp, nil
}

// 書籍削除
// 貸出中は削除不可。履歴が残っている場合も CASCADE はせず CONFLICT を返す。
func (s *Service) DeleteBook(ctx context.Context, key string) error {
	b, err := s.getByKey(ctx, key)
	if err != nil {
		return err
	}

	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := s.store.LockTx(ctx, tx, b.BookID); err != nil {
			return err
		}
		outstanding, err := s.store.HasOutstandingLendTx(ctx, tx, b.BookID)
		if err != nil {
			return err
		}
		if outstanding {
			return ErrConflict("book is on loan")
		}
		return s.store.DeleteTx(ctx, tx, b.BookID)
	})
	if err != nil {
		return err
	}

	s.log.WithField("book_id", b.BookID).Info("deleting book")
	return nil
}

// ---- helpers ----

func (s *Service) getByKey(ctx context.Context, key string) (*Book, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}
	// 数値として解釈できればID検索
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return s.store.GetByID(ctx, id)
	}
	return s.store.GetByULID(ctx, key)
}

func (s *Service) applyOptionalFields(ctx context.Context, b *Book, isbn, publishedOn, genre *string) error {
	if isbn != nil {
		if *isbn == "" {
			b.ISBN = sql.NullString{}
		} else {
			n := NormalizeISBN(*isbn)
			if !ValidISBN(n) {
				return ErrInvalid("invalid isbn")
			}
			b.ISBN = sql.NullString{String: n, Valid: true}
		}
	}
	if publishedOn != nil {
		if *publishedOn == "" {
			b.PublishedOn = sql.NullTime{}
		} else {
			parsed, err := time.Parse(dateLayout, *publishedOn)
			if err != nil {
				return ErrInvalid("invalid published_on format, expected YYYY-MM-DD")
			}
			b.PublishedOn = sql.NullTime{Time: parsed, Valid: true}
		}
	}
	if genre != nil {
		if *genre == "" {
			b.Genre = sql.NullString{}
		} else {
			ok, err := s.store.GenreExists(ctx, *genre)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInvalid("unknown genre")
			}
			b.Genre = sql.NullString{String: *genre, Valid: true}
		}
	}
	return nil
}
