package books

import (
	"database/sql"
	"time"
)

// Book は books テーブルの1行を表す
type Book struct {
	BookID      int64
	BookULID    string
	Title       string
	Author      string
	ISBN        sql.NullString
	PublishedOn sql.NullTime
	Genre       sql.NullString
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// 一覧取得用の検索条件
type BookFilter struct {
	Title     string // 部分一致
	Author    string
	Genre     string
	Available *bool
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"（book_id基準、既定 asc）
}
