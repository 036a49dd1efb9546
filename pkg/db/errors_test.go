package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{
			name: "pgx unique violation",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "idx_production_items_serial"},
			want: true,
		},
		{
			name:       "pgx unique violation wrong constraint",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_external_id"},
			constraint: "idx_production_items_serial",
			want:       false,
		},
		{
			name:       "pgx unique violation matching constraint",
			err:        fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_production_items_serial"}),
			constraint: "idx_production_items_serial",
			want:       true,
		},
		{
			name: "pgx other error",
			err:  &pgconn.PgError{Code: "23503"},
			want: false,
		},
		{
			name: "pq unique violation",
			err:  &pq.Error{Code: "23505", Constraint: "idx_orders_external_id"},
			want: true,
		},
		{
			name: "sqlite message",
			err:  errors.New("UNIQUE constraint failed: production_items.serial_number"),
			want: true,
		},
		{
			name: "postgres message fallback",
			err:  errors.New(`ERROR: duplicate key value violates unique constraint "idx_item_mappings_serial"`),
			want: true,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection reset"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err, tt.constraint))
		})
	}
}
