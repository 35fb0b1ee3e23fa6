package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-kyc-onboarding/backend"
	"github.com/jrsteele09/go-kyc-onboarding/internal/config"
	"github.com/jrsteele09/go-kyc-onboarding/onboarding"
	"github.com/jrsteele09/go-kyc-onboarding/token/keys"
	"github.com/jrsteele09/go-kyc-onboarding/users"
	"github.com/rs/zerolog/log"
)

// API is the onboarding service exposed over HTTP.
type API interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*backend.Tokens, error)
	Me(ctx context.Context, accessToken string) (*users.User, error)
	Submit(ctx context.Context, accessToken string, draft onboarding.Draft) (*backend.Receipt, error)
}

// JWKSProvider publishes the keys access tokens are signed with.
type JWKSProvider interface {
	GetJWKS() (*keys.JWKS, error)
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	api    API
	jwks   JWKSProvider
}

func New(config config.Config, api API, jwks JWKSProvider) (*Server, error) {
	if api == nil {
		return nil, errors.New("[Server New] api is required")
	}
	if jwks == nil {
		return nil, errors.New("[Server New] jwks provider is required")
	}

	s := &Server{
		mux:    http.NewServeMux(),
		config: config,
		api:    api,
		jwks:   jwks,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}
