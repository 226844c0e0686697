package books

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "9780306406157", "9780306406157"},
		{"hyphenated", "978-0-306-40615-7", "9780306406157"},
		{"spaces", " 0 306 40615 2 ", "0306406152"},
		{"fullwidth digits", "９７８０３０６４０６１５７", "9780306406157"},
		{"lowercase check digit", "080442957x", "080442957X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeISBN(tt.in))
		})
	}
}

func TestValidISBN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid isbn13", "9780306406157", true},
		{"invalid isbn13 checksum", "9780306406158", false},
		{"isbn13 with letter", "978030640615X", false},
		{"valid isbn10", "0306406152", true},
		{"valid isbn10 x check digit", "080442957X", true},
		{"invalid isbn10 checksum", "0306406153", false},
		{"x not in last position", "030640X152", false},
		{"too short", "12345", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidISBN(tt.in))
		})
	}
}
