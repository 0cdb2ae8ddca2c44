package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))

	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry 'BK-2025-0001'")))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: bookings.booking_number")))
}

func TestTruncateErrorKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", TruncateError("short"))

	ascii := strings.Repeat("x", MaxErrorLength+10)
	assert.Len(t, TruncateError(ascii), MaxErrorLength)

	// one leading byte puts every two-byte rune boundary on an odd offset
	msg := "x" + strings.Repeat("помилка ", 200)
	got := TruncateError(msg)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, MaxErrorLength-1, len(got))
	assert.True(t, strings.HasPrefix(msg, got))
}
