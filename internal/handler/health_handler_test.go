package handler_test

import (
	"net/http"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tallyocr/internal/handler"
)

func TestHealthHandler_Liveness(t *testing.T) {
	h := handler.NewHealthHandler(nil)

	c, w := newTestContext(t, http.MethodGet, "/healthz", nil)
	h.Liveness(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service":"tallyocr"`)
}

func TestHealthHandler_Readiness_DatabaseDown(t *testing.T) {
	// Open validates the DSN without connecting; the ping fails.
	db, err := sqlx.Open("pgx", "postgres://tallyocr:x@127.0.0.1:1/tallyocr_db")
	require.NoError(t, err)
	defer db.Close()

	h := handler.NewHealthHandler(db)
	c, w := newTestContext(t, http.MethodGet, "/readyz", nil)
	h.Readiness(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"unreachable"`)
}
