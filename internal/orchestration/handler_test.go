package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"pait-backend/internal/artifacts"
	"pait-backend/internal/intent"
	"pait-backend/internal/quota"
	"pait-backend/internal/shared/server/middleware"
	"pait-backend/internal/shared/storage/object/local"
	"pait-backend/internal/specialist"
	"pait-backend/internal/vault"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service, artifacts.Artifact) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog, err := intent.Load()
	require.NoError(t, err)

	artifactSvc := &artifacts.Service{
		Store: local.New(t.TempDir()),
		Repo:  artifacts.NewMemoryRepo(),
	}
	artifact, err := artifactSvc.Upload(context.Background(), "guest:h1", "evidence.txt", strings.NewReader("trading screenshot"))
	require.NoError(t, err)

	svc := NewService(NewMemoryRepo(), quota.NewLedger(), catalog, specialist.NewPool(100*time.Millisecond), artifactSvc, vault.NewSealer())
	svc.SessionTimeout = 2 * time.Second
	svc.SealGrace = 500 * time.Millisecond
	svc.Pool.Register(specialist.RoleTrading, fixedWorker(0.8, 0.9))
	svc.Pool.Register(specialist.RoleLegal, fixedWorker(0.6, 0.5))

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Auth("dev"))
	api := r.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(api)
	return r, svc, artifact
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Id", "h1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartSessionAccepted(t *testing.T) {
	r, svc, artifact := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", gin.H{
		"intentId":   "strategy-evaluation",
		"artifactId": artifact.ID,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		SessionID string `json:"sessionId"`
		State     string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	require.Equal(t, string(StateQuotaChecked), resp.State)

	_, err := await(t, svc, resp.SessionID)
	require.NoError(t, err)

	statusW := doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+resp.SessionID, nil)
	require.Equal(t, http.StatusOK, statusW.Code)
	require.Contains(t, statusW.Body.String(), `"state":"sealed"`)

	resultW := doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+resp.SessionID+"/result", nil)
	require.Equal(t, http.StatusOK, resultW.Code)
	require.Contains(t, resultW.Body.String(), `"value":2511`)
}

func TestStartSessionValidation(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", gin.H{"intentId": "strategy-evaluation"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartSessionUnknownIntent(t *testing.T) {
	r, _, artifact := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", gin.H{
		"intentId":   "tarot-reading",
		"artifactId": artifact.ID,
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "intent_not_found")
}

func TestStartSessionDailyQuotaDenied(t *testing.T) {
	r, svc, artifact := newTestRouter(t)

	first := doJSON(t, r, http.MethodPost, "/api/v1/sessions", gin.H{
		"intentId":   "strategy-evaluation",
		"artifactId": artifact.ID,
	})
	require.Equal(t, http.StatusAccepted, first.Code)
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp))
	_, err := await(t, svc, resp.SessionID)
	require.NoError(t, err)

	second := doJSON(t, r, http.MethodPost, "/api/v1/sessions", gin.H{
		"intentId":   "strategy-evaluation",
		"artifactId": artifact.ID,
	})
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Contains(t, second.Body.String(), "quota_denied")
}

func TestSessionStatusNotFound(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/sessions/no-such-session", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelFinishedSessionConflict(t *testing.T) {
	r, svc, artifact := newTestRouter(t)

	start := doJSON(t, r, http.MethodPost, "/api/v1/sessions", gin.H{
		"intentId":   "strategy-evaluation",
		"artifactId": artifact.ID,
	})
	require.Equal(t, http.StatusAccepted, start.Code)
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(start.Body.Bytes(), &resp))
	_, err := await(t, svc, resp.SessionID)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+resp.SessionID+"/cancel", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "not_cancellable")
}

func TestListRequiresLogin(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "login_required")
}
