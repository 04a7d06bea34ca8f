package documents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docscan-backend/internal/shared/auth"
	"docscan-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T, repo Repo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	router := gin.New()
	rg := router.Group("/api/v1")
	rg.Use(middleware.Auth())
	NewHandler(&Service{Repo: repo}).RegisterRoutes(rg)
	return router
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.SignJWT(auth.Claims{Sub: userID, Name: userID, Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return "Bearer " + token
}

func TestListReturnsOnlyCallerDocuments(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	for _, doc := range []Document{
		{ID: "d1", UserID: "alice", FileName: "one.txt", CreatedAt: now},
		{ID: "d2", UserID: "bob", FileName: "two.txt", CreatedAt: now},
		{ID: "d3", UserID: "alice", FileName: "three.txt", CreatedAt: now.Add(time.Second)},
	} {
		if err := repo.Create(context.Background(), doc); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	router := newTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=500", nil)
	req.Header.Set("Authorization", bearer(t, "alice"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var page struct {
		Items []DocumentResponse `json:"items"`
		Limit int                `json:"limit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Limit != 50 {
		t.Fatalf("expected limit clamped to 50, got %d", page.Limit)
	}
	if len(page.Items) != 2 || page.Items[0].DocumentID != "d3" || page.Items[1].DocumentID != "d1" {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
}

func TestGetHidesOtherUsersDocuments(t *testing.T) {
	repo := NewMemoryRepo()
	if err := repo.Create(context.Background(), Document{ID: "d1", UserID: "alice", FileName: "one.txt"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	router := newTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/d1", nil)
	req.Header.Set("Authorization", bearer(t, "bob"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign document, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents/d1", nil)
	req.Header.Set("Authorization", bearer(t, "alice"))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", resp.Code)
	}
}

func TestListRequiresAuth(t *testing.T) {
	router := newTestRouter(t, NewMemoryRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
