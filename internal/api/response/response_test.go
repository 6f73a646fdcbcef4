package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, error)
		status int
	}{
		{"bad request", BadRequest, http.StatusBadRequest},
		{"not found", NotFound, http.StatusNotFound},
		{"conflict", Conflict, http.StatusConflict},
		{"internal", InternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, errors.New("boom"))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, ErrorResponse{Error: http.StatusText(tt.status), Message: "boom", Code: tt.status}, body)
		})
	}
}

func TestSuccessAndCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]int{"count": 3})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"count":3}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Created(rec, "deck-1")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":"deck-1"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestText(t *testing.T) {
	rec := httptest.NewRecorder()
	Text(rec, "text/plain", "burn.txt", "4 Lightning Bolt\n")

	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="burn.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "4 Lightning Bolt\n", rec.Body.String())
}
