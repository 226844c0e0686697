package users

import "time"

// 利用者登録リクエスト
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// 利用者更新リクエスト（nil のフィールドは変更しない）
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// 利用者レスポンス
type UserResponse struct {
	UserID    int64     `json:"user_id"`
	UserULID  string    `json:"user_ulid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Total int64          `json:"total"`
}

func buildUserResponse(u *User) UserResponse {
	return UserResponse{
		UserID:    u.UserID,
		UserULID:  u.UserULID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
