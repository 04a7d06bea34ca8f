package scans

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docscan-backend/internal/credits"
	"docscan-backend/internal/shared/auth"
	"docscan-backend/internal/shared/server/middleware"
)

func multipartBody(t *testing.T, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func newScanRouter(t *testing.T, svc *Service, maxBytes int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.Auth())
	NewHandler(svc, maxBytes).RegisterRoutes(api)
	return router
}

func postScan(t *testing.T, router http.Handler, userID, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, name, content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", body)
	req.Header.Set("Content-Type", contentType)
	if userID != "" {
		token, err := auth.SignJWT(auth.Claims{Sub: userID, Exp: time.Now().Add(time.Hour).Unix()})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestScanEndpointAcceptsUpload(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	router := newScanRouter(t, svc, 0)

	resp := postScan(t, router, "alice", "hello.txt", []byte("hello world"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		DocumentID       string `json:"documentId"`
		FileName         string `json:"fileName"`
		CreditsRemaining int    `json:"creditsRemaining"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.NotEmpty(t, body.DocumentID)
	assert.Equal(t, "hello.txt", body.FileName)
	assert.Equal(t, credits.DailyAllowance-1, body.CreditsRemaining)
}

func TestScanEndpointErrorMapping(t *testing.T) {
	svc, _, _, store := newFixture(t)
	router := newScanRouter(t, svc, 0)

	resp := postScan(t, router, "", "hello.txt", []byte("hello"))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	store.saveErr = errors.New("bucket unavailable")
	resp = postScan(t, router, "alice", "hello.txt", []byte("hello"))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "storage_failure")
	store.saveErr = nil

	for i := 0; i < credits.DailyAllowance; i++ {
		resp = postScan(t, router, "bob", "doc.txt", []byte("some text"))
		require.Equal(t, http.StatusOK, resp.Code)
	}
	resp = postScan(t, router, "bob", "doc.txt", []byte("some text"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "insufficient_credits")
}

func TestScanEndpointRejectsOversizedUpload(t *testing.T) {
	svc, ledger, _, _ := newFixture(t)
	router := newScanRouter(t, svc, 1024)

	resp := postScan(t, router, "alice", "big.txt", bytes.Repeat([]byte("a"), 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	assert.Equal(t, credits.DailyAllowance, balance(t, ledger, "alice"))
}
