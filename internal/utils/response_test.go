package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusCreated, SuccessResponse("created", map[string]string{"id": "1"})))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "created", body["message"])
	assert.NotContains(t, body, "error")
	assert.Contains(t, body, "timestamp")
}

func TestErrorResponseOmitsData(t *testing.T) {
	raw, err := json.Marshal(ErrorResponse("failed", "boom"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"data"`)
	assert.Contains(t, string(raw), `"error":"boom"`)
}
