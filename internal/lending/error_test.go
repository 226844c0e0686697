package lending

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", ErrInvalid("bad"), 400},
		{"not found", ErrNotFound("missing"), 404},
		{"conflict", ErrConflict("book not available"), 409},
		{"internal", ErrInternal("boom"), 500},
		{"plain error", errors.New("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(tt.err))
		})
	}
}

func TestErrorFromErr(t *testing.T) {
	body := errorFromErr(ErrConflict("already returned"))
	assert.Equal(t, CodeConflict, body.Error.Code)
	assert.Equal(t, "already returned", body.Error.Message)

	body = errorFromErr(errors.New("db down"))
	assert.Equal(t, CodeInternal, body.Error.Code)
}
