package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestIsLockFailure(t *testing.T) {
	assert.True(t, isLockFailure(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, isLockFailure(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})))
	assert.False(t, isLockFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isLockFailure(nil))
}
