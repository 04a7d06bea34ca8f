package bootstrap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docscan-backend/internal/shared/auth"
	"docscan-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	return config.Config{
		Env:                   "dev",
		ObjectStoreType:       "local",
		LocalStoreDir:         t.TempDir(),
		DailyCredits:          20,
		CreditsTimezone:       "UTC",
		SimilarityThreshold:   0.7,
		SimilarityAutoJunk:    true,
		SimilarityScanTimeout: 5 * time.Second,
		MaxUploadBytes:        1 << 20,
	}
}

type client struct {
	t      *testing.T
	router http.Handler
}

func (c client) token(sub, name, role string) string {
	c.t.Helper()
	tok, err := auth.SignJWT(auth.Claims{Sub: sub, Name: name, Role: role, Exp: time.Now().Add(time.Hour).Unix()})
	require.NoError(c.t, err)
	return tok
}

func (c client) do(req *http.Request, token string) *httptest.ResponseRecorder {
	c.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	c.router.ServeHTTP(resp, req)
	return resp
}

func (c client) scan(token, name, content string) *httptest.ResponseRecorder {
	c.t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(c.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(c.t, err)
	require.NoError(c.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, token)
}

func (c client) getJSON(path, token string, out any) int {
	c.t.Helper()
	resp := c.do(httptest.NewRequest(http.MethodGet, path, nil), token)
	if out != nil && resp.Code == http.StatusOK {
		require.NoError(c.t, json.Unmarshal(resp.Body.Bytes(), out), resp.Body.String())
	}
	return resp.Code
}

func (c client) postJSON(path, token, payload string, out any) int {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := c.do(req, token)
	if out != nil && resp.Code == http.StatusOK {
		require.NoError(c.t, json.Unmarshal(resp.Body.Bytes(), out), resp.Body.String())
	}
	return resp.Code
}

func TestBuildUsesMemoryRepositoriesWithoutDatabase(t *testing.T) {
	app, err := Build(testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.DB)
	assert.NotNil(t, app.Router)
	assert.Equal(t, 20, app.Ledger.Allowance())
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	_, err := Build(cfg)
	require.Error(t, err)
}

func TestScanMatchAndCreditFlow(t *testing.T) {
	app, err := Build(testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	c := client{t: t, router: app.Router}
	alice := c.token("alice", "Alice", "")
	bob := c.token("bob", "Bob", "")
	admin := c.token("root", "Root", auth.RoleAdmin)

	// unauthenticated scans are rejected
	resp := c.scan("", "a.txt", "anything")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	var first struct {
		DocumentID       string `json:"documentId"`
		CreditsRemaining int    `json:"creditsRemaining"`
	}
	resp = c.scan(alice, "report.txt", "the quick brown fox jumps over the lazy dog")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &first))
	assert.Equal(t, 19, first.CreditsRemaining)

	resp = c.scan(bob, "copy.txt", "the quick brown fox jumps over the lazy cat")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	resp = c.scan(bob, "other.txt", "completely unrelated text about databases")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var matches []struct {
		ID         string  `json:"id"`
		FileName   string  `json:"filename"`
		Similarity float64 `json:"similarity"`
	}
	require.Equal(t, http.StatusOK, c.getJSON("/api/v1/matches/"+first.DocumentID, bob, &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "copy.txt", matches[0].FileName)
	assert.Greater(t, matches[0].Similarity, 0.7)

	require.Equal(t, http.StatusNotFound, c.getJSON("/api/v1/matches/missing", bob, nil))

	// alice spends the rest of her allowance
	for i := 0; i < 19; i++ {
		resp = c.scan(alice, fmt.Sprintf("doc-%d.txt", i), fmt.Sprintf("filler document %d", i))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}
	resp = c.scan(alice, "extra.txt", "one too many")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "insufficient_credits")

	var requested struct {
		RequestID string `json:"requestId"`
		Status    string `json:"status"`
	}
	require.Equal(t, http.StatusOK, c.postJSON("/api/v1/credits/request", alice, "", &requested))
	assert.Equal(t, "pending", requested.Status)

	// non-admins cannot decide requests
	require.Equal(t, http.StatusForbidden, c.postJSON("/api/v1/admin/credit-requests/"+requested.RequestID, alice, `{"status":"approved","amount":5}`, nil))

	var decided struct {
		Status string `json:"status"`
		Amount int    `json:"amount"`
	}
	require.Equal(t, http.StatusOK, c.postJSON("/api/v1/admin/credit-requests/"+requested.RequestID, admin, `{"status":"approved","amount":5}`, &decided))
	assert.Equal(t, "approved", decided.Status)
	assert.Equal(t, 5, decided.Amount)
	require.Equal(t, http.StatusConflict, c.postJSON("/api/v1/admin/credit-requests/"+requested.RequestID, admin, `{"status":"denied"}`, nil))

	var balance struct {
		CreditsRemaining int `json:"creditsRemaining"`
	}
	require.Equal(t, http.StatusOK, c.getJSON("/api/v1/credits", alice, &balance))
	assert.Equal(t, 5, balance.CreditsRemaining)

	resp = c.scan(alice, "extra.txt", "one more after approval")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var analytics struct {
		Users []struct {
			UserID           string `json:"userId"`
			DocumentCount    int    `json:"documentCount"`
			CreditsRemaining int    `json:"creditsRemaining"`
		} `json:"users"`
	}
	require.Equal(t, http.StatusOK, c.getJSON("/api/v1/admin/analytics", admin, &analytics))
	counts := map[string]int{}
	for _, u := range analytics.Users {
		counts[u.UserID] = u.DocumentCount
	}
	assert.Equal(t, 21, counts["alice"])
	assert.Equal(t, 2, counts["bob"])
}
