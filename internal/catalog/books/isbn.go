package books

import (
	"strings"

	"golang.org/x/text/width"
)

// NormalizeISBN は全角数字を半角へ寄せ、ハイフン・空白を取り除く。
// （蔵書登録は手入力が多く、全角・ハイフン混じりで届くことがある）
func NormalizeISBN(s string) string {
	s = width.Narrow.String(s)
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidISBN reports whether s is a checksum-valid ISBN-10 or ISBN-13.
// s は NormalizeISBN 済みであること。
func ValidISBN(s string) bool {
	switch len(s) {
	case 10:
		return validISBN10(s)
	case 13:
		return validISBN13(s)
	default:
		return false
	}
}

func validISBN10(s string) bool {
	sum := 0
	for i, r := range s {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		case r == 'X' && i == 9: // チェックディジットのみ X 可
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	sum := 0
	for i, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		v := int(r - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}
