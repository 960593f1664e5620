package ordercode

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const (
	prefix       = "MKT"
	suffixLength = 6
	// Алфавит без визуально похожих символов (0/O, 1/I/L)
	alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// Generate возвращает уникальный код заказа вида MKT-20250830-7F3K9Q.
// Уникальность окончательно гарантирует уникальный индекс в БД.
func Generate(now time.Time) (string, error) {
	buf := make([]byte, suffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ordercode: failed to read random bytes: %w", err)
	}

	var sb strings.Builder
	sb.Grow(suffixLength)
	for _, b := range buf {
		sb.WriteByte(alphabet[int(b)%len(alphabet)])
	}

	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), sb.String()), nil
}

// Validate проверяет форму кода заказа
func Validate(code string) bool {
	parts := strings.Split(code, "-")
	if len(parts) != 3 || parts[0] != prefix {
		return false
	}

	if _, err := time.Parse("20060102", parts[1]); err != nil {
		return false
	}

	if len(parts[2]) != suffixLength {
		return false
	}
	for _, ch := range parts[2] {
		if !strings.ContainsRune(alphabet, ch) {
			return false
		}
	}

	return true
}
