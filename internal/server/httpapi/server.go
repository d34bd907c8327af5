// Package httpapi is the thin HTTP/JSON transport over the auth core. It
// contains no authentication logic: every decision is delegated to the
// service layer so other transports can share the same core.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vposukhov/authvault/internal/logging"
	"github.com/vposukhov/authvault/internal/server/auth"
	"github.com/vposukhov/authvault/internal/server/models"
	"github.com/vposukhov/authvault/internal/server/services"
)

// AuthService is the slice of the auth core the transport consumes.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	ValidateAccess(ctx context.Context, accessToken string) (*auth.Claims, error)
	Logout(ctx context.Context, accessToken string) error
	RequestPasswordReset(ctx context.Context, handle string) error
	ConsumeReset(ctx context.Context, resetToken, newPassword string) error
	Register(ctx context.Context, username, email, password string, role models.Role) (*models.User, error)
}

// HTTPServer serves the public JSON API.
type HTTPServer struct {
	address string
	logger  logging.Logger
	auth    AuthService
}

// NewHTTPServer constructs an HTTPServer bound to the given address.
func NewHTTPServer(address string, logger logging.Logger, auth AuthService) *HTTPServer {
	return &HTTPServer{
		address: address,
		logger:  logger.With("module", "http_server"),
		auth:    auth,
	}
}

// Router builds the gin engine with all routes registered. Exposed
// separately so tests can drive the handlers through httptest.
func (s *HTTPServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/login", s.handleLogin)
	api.POST("/refresh", s.handleRefresh)
	api.POST("/logout", s.handleLogout)
	api.POST("/password-reset/request", s.handleResetRequest)
	api.POST("/password-reset/confirm", s.handleResetConfirm)

	authed := api.Group("")
	authed.Use(s.accessTokenMiddleware())
	authed.GET("/validate", s.handleValidate)
	authed.POST("/register", s.requireRole(models.RoleAdmin), s.handleRegister)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
