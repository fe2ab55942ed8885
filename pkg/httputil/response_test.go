package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	t.Run("writes JSON with content type", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteOK(rec, map[string]string{"status": "healthy"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	})

	t.Run("nil data writes no body", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteJSON(rec, http.StatusNoContent, nil)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusGatewayTimeout, "engine_timeout", "analysis timed out")

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.JSONEq(t, `{"error":"engine_timeout","message":"analysis timed out"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteErrorWithDetails(rec, http.StatusBadRequest, "invalid_request", "bad body", []string{"depth"})

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_request", body.Error)
	assert.Equal(t, []any{"depth"}, body.Details)
}

func TestReadJSON(t *testing.T) {
	t.Parallel()

	type request struct {
		FEN   string `json:"fen"`
		Depth *int   `json:"depth"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"fen":"x","depth":3}`, ""},
		{"empty", ``, "request body is empty"},
		{"malformed", `{"fen":`, "invalid JSON body"},
		{"unknown field", `{"fen":"x","colour":"w"}`, "unknown field"},
		{"trailing value", `{"fen":"x"} {"fen":"y"}`, "single JSON object"},
		{"too large", `{"fen":"` + strings.Repeat("a", MaxBodySize) + `"}`, "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got request
			err := ReadJSON(httptest.NewRecorder(), req, &got)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "x", got.FEN)
				require.NotNil(t, got.Depth)
				assert.Equal(t, 3, *got.Depth)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
