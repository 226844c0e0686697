package books

import "time"

// 書籍登録リクエスト
type CreateBookRequest struct {
	Title  string  `json:"title" binding:"required"`
	Author string  `json:"author" binding:"required"`
	ISBN   *string `json:"isbn,omitempty"`
	// "2006-01-02" 形式の文字列を想定（DATE）
	PublishedOn *string `json:"published_on,omitempty"`
	Genre       *string `json:"genre,omitempty"`
}

// 書籍更新リクエスト（nil のフィールドは変更しない）
type UpdateBookRequest struct {
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	ISBN        *string `json:"isbn,omitempty"`
	PublishedOn *string `json:"published_on,omitempty"`
	Genre       *string `json:"genre,omitempty"`
}

// 書籍レスポンス
type BookResponse struct {
	BookID      int64      `json:"book_id"`
	BookULID    string     `json:"book_ulid"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	ISBN        *string    `json:"isbn,omitempty"`
	PublishedOn *time.Time `json:"published_on,omitempty"`
	Genre       *string    `json:"genre,omitempty"`
	Available   bool       `json:"available"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type BookListResponse struct {
	Items []BookResponse `json:"items"`
	Total int64          `json:"total"`
}

func buildBookResponse(b *Book) BookResponse {
	resp := BookResponse{
		BookID:    b.BookID,
		BookULID:  b.BookULID,
		Title:     b.Title,
		Author:    b.Author,
		Available: b.Available,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.ISBN.Valid {
		val := b.ISBN.String
		resp.ISBN = &val
	}
	if b.PublishedOn.Valid {
		val := b.PublishedOn.Time
		resp.PublishedOn = &val
	}
	if b.Genre.Valid {
		val := b.Genre.String
		resp.Genre = &val
	}
	return resp
}
