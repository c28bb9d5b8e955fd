package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/emotion-market/point-ledger/internal/api_gateway/middleware"
	"github.com/emotion-market/point-ledger/internal/platform/auth"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// setupTestRouter returns a router whose requests run as principal.
func setupTestRouter(principal *auth.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	if principal != nil {
		p := *principal
		r.Use(func(c *gin.Context) {
			c.Set(middleware.PrincipalKey, p)
			c.Next()
		})
	}
	return r
}

func member() *auth.Principal {
	return &auth.Principal{AccountID: uuid.New()}
}

func admin() *auth.Principal {
	return &auth.Principal{AccountID: uuid.New(), Admin: true}
}

func doRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, _ := json.Marshal(b)
		reader = bytes.NewBuffer(payload)
	}

	req, _ := http.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the data field of an envelope into out.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out any) Response {
	t.Helper()
	var envelope struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	if out != nil {
		require.NotEmpty(t, envelope.Data, "'data' field should not be empty")
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return envelope.Response
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) *ErrorInfo {
	t.Helper()
	var response Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	require.NotNil(t, response.Error)
	return response.Error
}
