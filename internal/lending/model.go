package lending

import (
	"database/sql"
	"time"
)

// BorrowRecord は borrow_records テーブルの1行を表す
type BorrowRecord struct {
	RecordID   int64
	RecordULID string
	BookID     int64
	UserID     int64
	BorrowDate time.Time
	ReturnDate sql.NullTime
	Returned   bool
}

// 一覧取得用の検索条件
type RecordFilter struct {
	UserID          *int64
	BookID          *int64
	Returned        *bool
	OnlyOutstanding bool
	From            *time.Time
	To              *time.Time
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc"（既定・貸出日昇順） or "desc"
}

// JOIN済みの行（書名・利用者名つき）
type recordRow struct {
	BorrowRecord
	BookTitle string
	UserName  string
}
