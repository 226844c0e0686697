package users

import "time"

// User は users テーブルの1行を表す
type User struct {
	UserID    int64
	UserULID  string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserFilter struct {
	Name  string // 部分一致
	Email string
}

type Page struct {
	Limit  int
	Offset int
	Order  string
}
