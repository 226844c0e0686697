package lending

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strconv"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"library-backend/internal/platform/db"
)

// -------------- Clock & ID --------------

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// -------------- Service --------------

// Service は貸出台帳の唯一の書き込み窓口。
// books.available と「未返却レコードの有無」は常に一致させる。
type Service struct {
	db    *sql.DB
	store *Store
	clock Clock
	id    IDGen
	log   *logrus.Logger
}

func NewService(d *sql.DB, log *logrus.Logger) *Service {
	return &Service{
		db:    d,
		store: NewStore(d),
		clock: realClock{},
		id:    ulidGen{},
		log:   log,
	}
}

// 貸出登録
// 同一書籍への同時貸出は、books 行の FOR UPDATE ロックで直列化する。
// 判定と書き込みが同一Txなので、成功するのは高々1件。
func (s *Service) BorrowBook(ctx context.Context, in BorrowBookRequest) (*BorrowRecordResponse, error) {
	if in.UserID <= 0 {
		return nil, ErrInvalid("user_id must be > 0")
	}
	if in.BookID <= 0 {
		return nil, ErrInvalid("book_id must be > 0")
	}

	now := s.clock.Now()
	rec := &BorrowRecord{
		RecordULID: s.id.NewULID(now),
		BookID:     in.BookID,
		UserID:     in.UserID,
		BorrowDate: now,
		Returned:   false,
	}

	var bookTitle, userName string

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		title, _, err := s.store.LockBookTx(ctx, tx, in.BookID)
		if err != nil {
			return err
		}
		bookTitle = title

		name, err := s.store.GetUserNameTx(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		userName = name

		// available フラグではなく台帳を正とする（フラグは同Txで追随させる）
		outstanding, err := s.store.FindOutstandingByBookTx(ctx, tx, in.BookID)
		if err != nil {
			return err
		}
		if outstanding != nil {
			return ErrConflict("book not available")
		}

		if err := s.store.InsertRecordTx(ctx, tx, rec); err != nil {
			return err
		}
		return s.store.SetBookAvailabilityTx(ctx, tx, in.BookID, false)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"record_id": rec.RecordID,
		"book_id":   rec.BookID,
		"user_id":   rec.UserID,
	}).Info("book borrowed")

	resp := buildRecordResponse(rec, bookTitle, userName)
	return &resp, nil
}

// 返却登録
// 返却済みレコードへの再返却はエラー（呼び出し側の不具合を握りつぶさない）。
func (s *Service) ReturnBook(ctx context.Context, key string) (*BorrowRecordResponse, error) {
	if key == "" {
		return nil, ErrInvalid("record id or ulid is required")
	}

	now := s.clock.Now()

	var rec *BorrowRecord
	var bookTitle, userName string

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var err error
		// 数値として解釈できればID検索、それ以外は record_ulid とみなす
		if id, perr := strconv.ParseInt(key, 10, 64); perr == nil && id > 0 {
			rec, err = s.store.LockRecordTx(ctx, tx, id)
		} else {
			rec, err = s.store.LockRecordByULIDTx(ctx, tx, key)
		}
		if err != nil {
			return err
		}

		if rec.Returned {
			return ErrConflict("already returned")
		}

		if err := s.store.MarkReturnedTx(ctx, tx, rec.RecordID, now); err != nil {
			return err
		}
		if err := s.store.SetBookAvailabilityTx(ctx, tx, rec.BookID, true); err != nil {
			return err
		}

		bookTitle, err = s.store.GetBookTitleTx(ctx, tx, rec.BookID)
		if err != nil {
			return err
		}
		userName, err = s.store.GetUserNameTx(ctx, tx, rec.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	rec.Returned = true
	rec.ReturnDate = sql.NullTime{Time: now, Valid: true}

	s.log.WithFields(logrus.Fields{
		"record_id": rec.RecordID,
		"book_id":   rec.BookID,
	}).Info("book returned")

	resp := buildRecordResponse(rec, bookTitle, userName)
	return &resp, nil
}

// 貸出履歴一覧
func (s *Service) ListRecords(ctx context.Context, f RecordFilter, p Page) (RecordListResponse, error) {
	rows, total, err := s.store.ListRecords(ctx, f, p)
	if err != nil {
		return RecordListResponse{}, err
	}

	items := make([]BorrowRecordResponse, 0, len(rows))
	for i := range rows {
		items = append(items, buildRecordResponse(&rows[i].BorrowRecord, rows[i].BookTitle, rows[i].UserName))
	}
	return RecordListResponse{Items: items, Total: total}, nil
}

// 利用者の未返却一覧
func (s *Service) ListOutstandingForUser(ctx context.Context, userID int64, p Page) (RecordListResponse, error) {
	if userID <= 0 {
		return RecordListResponse{}, ErrInvalid("user_id must be > 0")
	}

	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return RecordListResponse{}, err
	}
	if !exists {
		return RecordListResponse{}, ErrNotFound("user not found")
	}

	f := RecordFilter{UserID: &userID, OnlyOutstanding: true}
	return s.ListRecords(ctx, f, p)
}

// ヘルパー関数
func buildRecordResponse(rec *BorrowRecord, bookTitle, userName string) BorrowRecordResponse {
	resp := BorrowRecordResponse{
		RecordID:   rec.RecordID,
		RecordULID: rec.RecordULID,
		BookID:     rec.BookID,
		BookTitle:  bookTitle,
		UserID:     rec.UserID,
		UserName:   userName,
		BorrowDate: rec.BorrowDate,
		Returned:   rec.Returned,
	}
	if rec.ReturnDate.Valid {
		val := rec.ReturnDate.Time
		resp.ReturnDate = &val
	}
	return resp
}
