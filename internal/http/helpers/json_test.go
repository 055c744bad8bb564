package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httperrors "github.com/dropDatabas3/noke/internal/http/errors"
)

type sampleReq struct {
	PluginID     string `json:"pluginId" validate:"required"`
	PluginSecret string `json:"pluginSecret" validate:"required"`
	ExpiresIn    string `json:"expiresIn" validate:"omitempty,oneof=30d 90d 1y never"`
}

func newReq(body, ct string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	if ct != "" {
		r.Header.Set("Content-Type", ct)
	}
	return r
}

func TestReadJSON_OK(t *testing.T) {
	var v sampleReq
	err := ReadJSON(httptest.NewRecorder(), newReq(`{"pluginId":"p","pluginSecret":"s","extra":1}`, "application/json"), &v)
	require.NoError(t, err)
	assert.Equal(t, "p", v.PluginID)
}

func TestReadJSON_MissingFields(t *testing.T) {
	var v sampleReq
	err := ReadJSON(httptest.NewRecorder(), newReq(`{"pluginId":"p"}`, "application/json"), &v)
	var appErr *httperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "MISSING_FIELDS", appErr.Code)
	assert.Equal(t, "pluginSecret", appErr.Detail)
}

func TestReadJSON_InvalidEnum(t *testing.T) {
	var v sampleReq
	err := ReadJSON(httptest.NewRecorder(), newReq(`{"pluginId":"p","pluginSecret":"s","expiresIn":"2d"}`, ""), &v)
	var appErr *httperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_PARAMETER", appErr.Code)
	assert.Equal(t, "expiresIn", appErr.Detail)
}

func TestReadJSON_BadInput(t *testing.T) {
	var v struct{}
	err := ReadJSON(httptest.NewRecorder(), newReq(`{`, "application/json"), &v)
	assert.Equal(t, httperrors.ErrInvalidJSON, err)

	err = ReadJSON(httptest.NewRecorder(), newReq(`a=b`, "application/x-www-form-urlencoded"), &v)
	var appErr *httperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "BAD_REQUEST", appErr.Code)

	big := `{"pluginId":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	err = ReadJSON(httptest.NewRecorder(), newReq(big, "application/json"), &sampleReq{})
	assert.Equal(t, httperrors.ErrBodyTooLarge, err)
}

func TestReadJSON_EmptyBodyAllowed(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, ReadJSON(httptest.NewRecorder(), newReq(``, "application/json"), &v))
}
