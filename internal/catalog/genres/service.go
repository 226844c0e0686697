package genres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
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
}

func NewService(d *sql.DB) *Service { return &Service{db: d, store: NewStore(d)} }

func (s *Service) List(ctx context.Context, includeDisabled bool) ([]Genre, error) {
	return s.store.List(ctx, includeDisabled)
}

func (s *Service) Create(ctx context.Context, name string) (*Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalid("genre_name is required")
	}
	return s.store.Create(ctx, name)
}

func (s *Service) SetDisabled(ctx context.Context, genreID int64, disabled bool) error {
	if genreID <= 0 {
		return ErrInvalid("genre_id must be > 0")
	}
	return s.store.SetDisabled(ctx, genreID, disabled)
}
