package database

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/admin-api/pkg/config"
)

func TestURL(t *testing.T) {
	got := URL(config.DatabaseConfig{Host: "db", Port: 5432, User: "admin", Password: "p@ss", Name: "admin_api", SSLMode: "disable"})
	assert.Equal(t, "postgres://admin:p%40ss@db:5432/admin_api?sslmode=disable", got)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(fmt.Errorf("plain")))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
}
