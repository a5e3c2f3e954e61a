package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lukextesst/user/internal/config"
	"github.com/lukextesst/user/inventory"
	"github.com/lukextesst/user/keys"
	"github.com/lukextesst/user/sessions"
	"github.com/lukextesst/user/store"
	"github.com/lukextesst/user/verification"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Services are the collaborators the HTTP surface drives.
type Services struct {
	Store        store.Store
	Sessions     *sessions.Manager
	Verification *verification.Controller
	Issuer       *keys.Issuer
	Redeemer     *keys.Redeemer
	Inventory    inventory.Repo
}

type Server struct {
	env          string // Environment (e.g., "DEV", "PROD")
	mux          *http.ServeMux
	routes       []string
	config       config.Config
	store        store.Store
	sessions     *sessions.Manager
	verification *verification.Controller
	issuer       *keys.Issuer
	redeemer     *keys.Redeemer
	inventory    inventory.Repo
	adminHash    []byte
	nowFunc      func() time.Time
}

type Option func(*Server)

// WithNowTime sets the clock used for day boundaries in stats (primarily for testing)
func WithNowTime(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func New(config config.Config, services Services, options ...Option) (*Server, error) {
	if config == nil {
		return nil, errors.New("[Server New] config is required")
	}
	switch {
	case services.Store == nil:
		return nil, errors.New("[Server New] store is required")
	case services.Sessions == nil:
		return nil, errors.New("[Server New] session manager is required")
	case services.Verification == nil:
		return nil, errors.New("[Server New] verification controller is required")
	case services.Issuer == nil:
		return nil, errors.New("[Server New] key issuer is required")
	case services.Redeemer == nil:
		return nil, errors.New("[Server New] key redeemer is required")
	case services.Inventory == nil:
		return nil, errors.New("[Server New] inventory repo is required")
	}

	adminHash, err := adminSecretHash(config)
	if err != nil {
		return nil, errors.Wrap(err, "[Server New]")
	}

	s := &Server{
		env:          config.GetEnv(),
		mux:          http.NewServeMux(),
		config:       config,
		store:        services.Store,
		sessions:     services.Sessions,
		verification: services.Verification,
		issuer:       services.Issuer,
		redeemer:     services.Redeemer,
		inventory:    services.Inventory,
		adminHash:    adminHash,
		nowFunc:      time.Now,
	}
	for _, option := range options {
		option(s)
	}

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

// Routes returns the registered patterns in registration order.
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

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
