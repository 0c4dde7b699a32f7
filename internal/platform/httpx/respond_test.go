package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bago-furniture/bago-inventory/internal/shared"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{shared.Validationf("count must be between 1 and 1000"), http.StatusBadRequest, "count must be between 1 and 1000"},
		{shared.InvalidCodef("QR code %s not found", "BAGO999999"), http.StatusNotFound, "QR code BAGO999999 not found"},
		{shared.Conflictf("QR code BAGO000001 has already been used"), http.StatusConflict, "QR code BAGO000001 has already been used"},
		{shared.NotFoundf("product 7 not found"), http.StatusNotFound, "product 7 not found"},
		{shared.Inconsistencyf("QR code BAGO000002 is marked used but has no product"), http.StatusInternalServerError, "QR code BAGO000002 is marked used but has no product"},
		{shared.Internal(errors.New("connection reset"), "insert product"), http.StatusInternalServerError, "internal server error"},
		{fmt.Errorf("wrapped: %w", shared.ErrForbidden), http.StatusForbidden, "permission denied"},
		{shared.ErrUnauthorized, http.StatusUnauthorized, "authentication required"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		env := decodeEnvelope(t, rec)
		require.False(t, env.Success)
		require.Equal(t, tc.message, env.Message)
	}
}

func TestBindValidates(t *testing.T) {
	type payload struct {
		Count  int    `json:"count" validate:"required,min=1,max=1000"`
		Format string `json:"format" validate:"required,oneof=zip pdf"`
	}

	req := httptest.NewRequest(http.MethodPost, "/api/qr", strings.NewReader(`{"count":5,"format":"pdf"}`))
	var ok payload
	require.NoError(t, Bind(req, &ok))
	require.Equal(t, 5, ok.Count)

	req = httptest.NewRequest(http.MethodPost, "/api/qr", strings.NewReader(`{"count":5000,"format":"svg"}`))
	var bad payload
	err := Bind(req, &bad)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "count must be at most 1000")
	require.Contains(t, err.Error(), "format must be one of [zip pdf]")

	req = httptest.NewRequest(http.MethodPost, "/api/qr", strings.NewReader(``))
	require.ErrorIs(t, Bind(req, &bad), shared.ErrValidation)
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, "ok", map[string]int{"total": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	require.Equal(t, "ok", env.Message)
}
