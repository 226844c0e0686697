package lending

import "time"

// 貸出登録リクエスト
type BorrowBookRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	BookID int64 `json:"book_id" binding:"required"`
}

// 貸出レスポンス（返却後も同じ形で返す）
type BorrowRecordResponse struct {
	RecordID   int64      `json:"record_id"`
	RecordULID string     `json:"record_ulid"`
	BookID     int64      `json:"book_id"`
	BookTitle  string     `json:"book_title,omitempty"`
	UserID     int64      `json:"user_id"`
	UserName   string     `json:"user_name,omitempty"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Returned   bool       `json:"returned"`
}

type RecordListResponse struct {
	Items []BorrowRecordResponse `json:"items"`
	Total int64                  `json:"total"`
}
