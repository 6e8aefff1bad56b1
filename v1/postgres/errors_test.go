package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"not found", gorm.ErrRecordNotFound, ErrRecordNotFound},
		{"wrapped duplicate", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), ErrDuplicateKey},
		{"foreign key", gorm.ErrForeignKeyViolated, ErrForeignKey},
		{"invalid data", gorm.ErrInvalidData, ErrInvalidData},
		{"missing where", gorm.ErrMissingWhereClause, ErrMissingWhere},
		{"deadline", context.DeadlineExceeded, context.DeadlineExceeded},
		{"passthrough", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TranslateError(tt.in))
		})
	}
}

func TestConnectionDSN(t *testing.T) {
	c := Connection{Host: "db", Port: "5432", User: "u", Password: "p", DbName: "app"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=app sslmode=disable", c.DSN())

	c.SSLMode = "require"
	assert.Contains(t, c.DSN(), "sslmode=require")
}
