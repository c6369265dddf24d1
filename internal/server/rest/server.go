// Package rest exposes the fleet server over HTTP/JSON: auth, the reference
// registries, the registration log and presigned image uploads.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/danielmvs/fleetsync/internal/models"
	servermodels "github.com/danielmvs/fleetsync/internal/server/models"
	"github.com/danielmvs/fleetsync/internal/server/services"
)

// UserService is the slice of services.UserService the REST layer needs.
type UserService interface {
	Register(ctx context.Context, username, password string) (*servermodels.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	VerifyAccessToken(tokenString string) (string, error)
}

// FleetService is the slice of services.FleetService the REST layer needs.
type FleetService interface {
	ListCategory(ctx context.Context, category models.Category) (any, error)
	CreateInCategory(ctx context.Context, category models.Category, body []byte) (any, error)
	CreateRegistration(ctx context.Context, r *models.Registration, idempotencyKey string) (*models.Registration, error)
	ListRegistrations(ctx context.Context) ([]*models.Registration, error)
}

// UploadService is the slice of services.UploadService the REST layer needs.
type UploadService interface {
	GetPresignedPutUrl(ctx context.Context) (string, string, error)
	GetPresignedGetUrl(ctx context.Context, key string) (string, error)
}

type Server struct {
	addr    string
	log     logging.Logger
	users   UserService
	fleet   FleetService
	uploads UploadService
}

func NewServer(addr string, logger logging.Logger, users UserService, fleet FleetService, uploads UploadService) *Server {
	return &Server{addr: addr, log: logger, users: users, fleet: fleet, uploads: uploads}
}

// Router builds the route table. Fixed paths are registered before the
// category wildcard so "registrations" and "uploads" never match it.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/registrations", s.handleListRegistrations).Methods(http.MethodGet)
	authed.HandleFunc("/registrations", s.handleCreateRegistration).Methods(http.MethodPost)
	authed.HandleFunc("/uploads", s.handleNewUpload).Methods(http.MethodPost)
	authed.HandleFunc("/uploads", s.handleGetUpload).Methods(http.MethodGet)
	authed.HandleFunc("/{category}", s.handleListCategory).Methods(http.MethodGet)
	authed.HandleFunc("/{category}", s.handleCreateInCategory).Methods(http.MethodPost)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info(ctx, "rest server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
