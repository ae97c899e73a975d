package http

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apiauthDomain "github.com/gateproof/authcore/internal/apiauth/domain"
	apiauthHTTP "github.com/gateproof/authcore/internal/apiauth/http"
	apiauthService "github.com/gateproof/authcore/internal/apiauth/service"
	apiauthUseCase "github.com/gateproof/authcore/internal/apiauth/usecase"
	auditHTTP "github.com/gateproof/authcore/internal/audit/http"
	cryptoHTTP "github.com/gateproof/authcore/internal/crypto/http"
	oauthHTTP "github.com/gateproof/authcore/internal/oauth/http"
	sessionHTTP "github.com/gateproof/authcore/internal/session/http"
	sessionUseCase "github.com/gateproof/authcore/internal/session/usecase"
)

// RouterConfig carries the handlers, middleware dependencies and settings
// SetupRouter wires into the route table.
type RouterConfig struct {
	OAuthHandler    *oauthHTTP.OAuthHandler
	SessionHandler  *sessionHTTP.SessionHandler
	TokenHandler    *apiauthHTTP.TokenHandler
	ClientHandler   *apiauthHTTP.ClientHandler
	AuditLogHandler *auditHTTP.AuditLogHandler
	KeyHandler      *cryptoHTTP.KeyHandler

	SessionUseCase sessionUseCase.UseCase
	TokenUseCase   apiauthUseCase.TokenUseCase
	TokenService   apiauthService.TokenService

	// SecurityEvents receives rate-limit and scope denials from the
	// middleware chain. May be nil.
	SecurityEvents apiauthHTTP.SecurityEventRecorder

	CORSEnabled      bool
	CORSAllowOrigins string

	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int

	CallbackRateLimitEnabled        bool
	CallbackRateLimitRequestsPerSec float64
	CallbackRateLimitBurst          int
}

// passthrough is used where a rate limit is disabled by configuration.
func passthrough(c *gin.Context) {
	c.Next()
}

// SetupRouter builds the gin engine and registers the full route table.
//
// Route groups:
//   - /v1/oauth: authorization flow, provider callbacks, linked accounts
//   - /v1/session: session refresh and revocation
//   - /v1/auth: admin client token issuance
//   - /v1/clients: admin client management (clients:admin scope)
//   - /v1/audit-logs: audit queries (audit:read) and cleanup (audit:admin)
//   - /v1/keys: encryption key rotation (keys:rotate scope)
func (s *Server) SetupRouter(cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	optionalSession := sessionHTTP.OptionalSessionMiddleware(cfg.SessionUseCase, s.logger)
	requireSession := sessionHTTP.SessionMiddleware(cfg.SessionUseCase, s.logger)
	authenticate := apiauthHTTP.AuthenticationMiddleware(cfg.TokenUseCase, cfg.TokenService, s.logger)

	var callbackLimit gin.HandlerFunc = passthrough
	if cfg.CallbackRateLimitEnabled {
		callbackLimit = apiauthHTTP.IPRateLimitMiddleware(
			cfg.CallbackRateLimitRequestsPerSec,
			cfg.CallbackRateLimitBurst,
			cfg.SecurityEvents,
			s.logger,
		)
	}

	var tokenLimit gin.HandlerFunc = passthrough
	if cfg.RateLimitEnabled {
		tokenLimit = apiauthHTTP.IPRateLimitMiddleware(
			cfg.RateLimitRequestsPerSec,
			cfg.RateLimitBurst,
			cfg.SecurityEvents,
			s.logger,
		)
	}

	v1 := router.Group("/v1")

	// OAuth flow. Authorize and callback are unauthenticated by nature; an
	// optional session on authorize turns the flow into account linking.
	oauth := v1.Group("/oauth")
	oauth.POST("/:provider/authorize", callbackLimit, optionalSession, cfg.OAuthHandler.AuthorizeHandler)
	oauth.GET("/:provider/callback", callbackLimit, cfg.OAuthHandler.CallbackHandler)
	oauth.POST("/:provider/refresh", requireSession, cfg.OAuthHandler.RefreshTokensHandler)
	oauth.DELETE("/:provider", requireSession, cfg.OAuthHandler.UnlinkHandler)
	oauth.GET("/accounts", requireSession, cfg.OAuthHandler.ListAccountsHandler)

	// Session refresh validates the presented token itself, so it is not
	// behind the session middleware.
	sessions := v1.Group("/session")
	sessions.POST("/refresh", cfg.SessionHandler.RefreshHandler)
	sessions.DELETE("", requireSession, cfg.SessionHandler.LogoutHandler)
	sessions.DELETE("/all", requireSession, cfg.SessionHandler.LogoutAllHandler)

	v1.POST("/auth/token", tokenLimit, cfg.TokenHandler.IssueTokenHandler)

	clients := v1.Group("/clients", authenticate, apiauthHTTP.RequireScope(apiauthDomain.ScopeClientsAdmin, cfg.SecurityEvents, s.logger))
	clients.POST("", cfg.ClientHandler.CreateHandler)
	clients.GET("", cfg.ClientHandler.ListHandler)
	clients.GET("/:id", cfg.ClientHandler.GetHandler)
	clients.PUT("/:id", cfg.ClientHandler.UpdateHandler)
	clients.DELETE("/:id", cfg.ClientHandler.DeactivateHandler)
	clients.POST("/:id/unlock", cfg.ClientHandler.UnlockHandler)

	auditRead := apiauthHTTP.RequireScope(apiauthDomain.ScopeAuditRead, cfg.SecurityEvents, s.logger)
	auditAdmin := apiauthHTTP.RequireScope(apiauthDomain.ScopeAuditAdmin, cfg.SecurityEvents, s.logger)

	auditLogs := v1.Group("/audit-logs", authenticate)
	auditLogs.GET("", auditRead, cfg.AuditLogHandler.ListHandler)
	auditLogs.GET("/metrics", auditRead, cfg.AuditLogHandler.MetricsHandler)
	auditLogs.GET("/export", auditRead, cfg.AuditLogHandler.ExportHandler)
	auditLogs.GET("/:id/verify", auditRead, cfg.AuditLogHandler.VerifyHandler)
	auditLogs.DELETE("/:id", auditAdmin, cfg.AuditLogHandler.DeleteHandler)
	auditLogs.POST("/clean", auditAdmin, cfg.AuditLogHandler.CleanHandler)

	keys := v1.Group("/keys", authenticate, apiauthHTTP.RequireScope(apiauthDomain.ScopeKeysRotate, cfg.SecurityEvents, s.logger))
	keys.POST("/rotate", cfg.KeyHandler.RotateHandler)

	s.router = router
}
