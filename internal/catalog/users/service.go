package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	ulid "github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"library-backend/internal/platform/db"
)

// ===== Error model (books と同型) =====

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

// 利用者登録
func (s *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*UserResponse, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" {
		return nil, ErrInvalid("name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	u := &User{
		UserULID: ulid.Make().String(),
		Name:     name,
		Email:    email,
	}
	if err := s.store.Insert(ctx, u); err != nil {
		return nil, err
	}

	s.log.WithField("user_id", u.UserID).Info("adding new user")

	out, err := s.store.GetByID(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	resp := buildUserResponse(out)
	return &resp, nil
}

// 利用者単一取得（ID or ULID）
func (s *Service) GetUserByKey(ctx context.Context, key string) (*UserResponse, error) {
	u, err := s.getByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	resp := buildUserResponse(u)
	return &resp, nil
}

// 利用者一覧
func (s *Service) ListUsers(ctx context.Context, f UserFilter, p Page) (UserListResponse, error) {
	items, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return UserListResponse{}, err
	}
	out := make([]UserResponse, 0, len(items))
	for i := range items {
		out = append(out, buildUserResponse(&items[i]))
	}
	return UserListResponse{Items: out, Total: total}, nil
}

// 利用者更新
func (s *Service) UpdateUser(ctx context.Context, key string, in UpdateUserRequest) (*UserResponse, error) {
	u, err := s.getByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, ErrInvalid("name must not be empty")
		}
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		u.Email = email
	}

	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}

	out, err := s.store.GetByID(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	resp := buildUserResponse(out)
	return &resp, nil
}

// 利用者削除
// 未返却の貸出があるうちは削除不可。履歴が残っている場合も CONFLICT。
func (s *Service) DeleteUser(ctx context.Context, key string) error {
	u, err := s.getByKey(ctx, key)
	if err != nil {
		return err
	}

	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		outstanding, err := s.store.HasOutstandingLendTx(ctx, tx, u.UserID)
		if err != nil {
			return err
		}
		if outstanding {
			return ErrConflict("user has books on loan")
		}
		return s.store.DeleteTx(ctx, tx, u.UserID)
	})
	if err != nil {
		return err
	}

	s.log.WithField("user_id", u.UserID).Info("deleting user")
	return nil
}

// ---- helpers ----

func (s *Service) getByKey(ctx context.Context, key string) (*User, error) {
	if key == "" {
		return nil, ErrInvalid("id or ulid is required")
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return s.store.GetByID(ctx, id)
	}
	return s.store.GetByULID(ctx, key)
}

func validateEmail(email string) error {
	if email == "" {
		return ErrInvalid("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ErrInvalid("invalid email")
	}
	return nil
}
