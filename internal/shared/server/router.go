package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pait-backend/internal/artifacts"
	googleauth "pait-backend/internal/auth"
	"pait-backend/internal/intent"
	"pait-backend/internal/orchestration"
	"pait-backend/internal/quota"
	"pait-backend/internal/services/health"
	"pait-backend/internal/shared/config"
	"pait-backend/internal/shared/metrics"
	"pait-backend/internal/shared/server/middleware"
	"pait-backend/internal/shared/server/respond"
	"pait-backend/internal/subjects"
	"pait-backend/internal/vault"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	Health          *health.Service
	SubjectHandler  *subjects.Handler
	ArtifactHandler *artifacts.Handler
	IntentHandler   *intent.Handler
	SessionHandler  *orchestration.Handler
	QuotaHandler    *quota.Handler
	VaultHandler    *vault.Handler
	GoogleAuth      *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			respond.JSON(c, http.StatusOK, deps.Health.Status(c.Request.Context()))
			return
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.SubjectHandler != nil {
		deps.SubjectHandler.RegisterRoutes(api)
	}
	if deps.ArtifactHandler != nil {
		deps.ArtifactHandler.RegisterRoutes(api)
	}
	if deps.IntentHandler != nil {
		deps.IntentHandler.RegisterRoutes(api)
	}
	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterRoutes(api)
	}
	if deps.QuotaHandler != nil {
		deps.QuotaHandler.RegisterRoutes(api)
	}
	if deps.VaultHandler != nil {
		deps.VaultHandler.RegisterRoutes(api)
	}

	if deps.Config.Env == "dev" {
		dev := api.Group("/dev")
		if deps.QuotaHandler != nil {
			deps.QuotaHandler.RegisterDevRoutes(dev)
		}
		if deps.SubjectHandler != nil {
			deps.SubjectHandler.RegisterDevRoutes(dev)
		}
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
