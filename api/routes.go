package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/leads/internal/auth"
	"github.com/garnizeh/leads/internal/config"
	"github.com/garnizeh/leads/internal/leads"
	"github.com/garnizeh/leads/pkg/repository"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, store repository.Store) (*mux.Router, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	svc, err := leads.NewService(store, loc, logger)
	if err != nil {
		return nil, fmt.Errorf("lead service: %w", err)
	}

	r := mux.NewRouter()
	r.NotFoundHandler = RequestIDMiddleware(LoggingMiddleware(http.HandlerFunc(notFound)))
	r.MethodNotAllowedHandler = RequestIDMiddleware(LoggingMiddleware(http.HandlerFunc(methodNotAllowed)))

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(CORSMiddleware(cfg.CORSOrigins))

	// Create handlers
	detail := cfg.Env == config.EnvDevelopment
	cookie := cfg.CookiePolicy()
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenDuration)
	guard := AuthMiddleware(issuer, store, cookie.Name)

	systemHandler := NewSystemHandler(store)
	authHandler := NewAuthHandler(store, issuer, cookie, detail)
	leadsHandler := NewLeadsHandler(svc, detail)

	// Preflight requests must match a route for the middleware to run. A
	// method matcher here would turn every unknown path into a 405.
	r.MatcherFunc(func(req *http.Request, _ *mux.RouteMatch) bool {
		return req.Method == http.MethodOptions
	}).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	api.HandleFunc("/ready", systemHandler.ReadyHandler).Methods("GET")

	// Auth endpoints
	authR := api.PathPrefix("/auth").Subrouter()
	authR.HandleFunc("/register", authHandler.Register).Methods("POST")
	authR.HandleFunc("/login", authHandler.Login).Methods("POST")
	authR.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	authR.Handle("/me", guard(http.HandlerFunc(authHandler.Me))).Methods("GET")

	// Lead endpoints, all owner scoped
	leadsR := api.PathPrefix("/leads").Subrouter()
	leadsR.Use(guard)
	leadsR.HandleFunc("", leadsHandler.List).Methods("GET")
	leadsR.HandleFunc("", leadsHandler.Create).Methods("POST")
	leadsR.HandleFunc("/{id}", leadsHandler.Get).Methods("GET")
	leadsR.HandleFunc("/{id}", leadsHandler.Update).Methods("PUT")
	leadsR.HandleFunc("/{id}", leadsHandler.Delete).Methods("DELETE")

	return r, nil
}
