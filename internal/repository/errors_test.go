package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/movietix/internal/model"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, model.ErrNotFound},
		{"duplicate", &mysql.MySQLError{Number: 1062}, model.ErrConflict},
		{"referenced", &mysql.MySQLError{Number: 1451}, model.ErrConflict},
		{"missing parent", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1452}), model.ErrNotFound},
		{"check", &mysql.MySQLError{Number: 3819}, model.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translate(tt.in, "thing"), tt.want)
		})
	}

	assert.NoError(t, translate(nil, "thing"))
	other := errors.New("boom")
	assert.ErrorIs(t, translate(other, "thing"), other)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1452}))
	assert.False(t, isDuplicateKey(errors.New("1062 in text only")))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%matrix%", likePattern("Matrix"))
	assert.Equal(t, `%100\% \_real\\%`, likePattern(`100% _REAL\`))
}
