package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freekieb7/neurovault-users/internal/web/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		location string
		body     string
		want     string
	}{
		{"ok carries body", http.StatusOK, "", "<form></form>", `{"data":"<form></form>"}`},
		{"created carries body", http.StatusCreated, "", "done", `{"data":"done"}`},
		{"empty body still has data", http.StatusOK, "", "", `{"data":""}`},
		{"redirect carries location", http.StatusFound, "/accounts/profile", "", `{"redirect":"/accounts/profile"}`},
		{"see other", http.StatusSeeOther, "/next", "ignored", `{"redirect":"/next"}`},
		{"client error", http.StatusNotFound, "", "missing", `{"errors":[{"status":404}]}`},
		{"server error", http.StatusInternalServerError, "", "", `{"errors":[{"status":500}]}`},
		{"informational", http.StatusContinue, "", "", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope := response.Translate(tt.status, tt.location, []byte(tt.body))

			var got, want map[string]any
			body, err := json.Marshal(envelope)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &got))
			require.NoError(t, json.Unmarshal([]byte(tt.want), &want))
			assert.Equal(t, want, got)
		})
	}
}

func TestWriteEnvelopeAlwaysOK(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	response.WriteEnvelope(rec, req, response.Translate(http.StatusForbidden, "", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"errors":[{"status":403}]}`, rec.Body.String())
}
