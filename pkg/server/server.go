// Package server wires together the resolver–enforcer–capability triad,
// the ambient store/audit/retention/auth layers, and the HTTP router into
// a single process. It exists in pkg/ (not internal/) so that a
// deployment-specific main package — or a harness embedding ck3fence
// directly — can call server.New and get a ready http.Handler without
// reaching into any internal package itself.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ck3fence/ck3fence/internal/api"
	"github.com/ck3fence/ck3fence/internal/api/handlers"
	"github.com/ck3fence/ck3fence/internal/auditsink"
	"github.com/ck3fence/ck3fence/internal/auth"
	"github.com/ck3fence/ck3fence/internal/capability"
	"github.com/ck3fence/ck3fence/internal/config"
	"github.com/ck3fence/ck3fence/internal/policy"
	"github.com/ck3fence/ck3fence/internal/retention"
	"github.com/ck3fence/ck3fence/internal/session"
	"github.com/ck3fence/ck3fence/internal/store"
	"github.com/ck3fence/ck3fence/internal/telemetry"
	"github.com/ck3fence/ck3fence/internal/toolgateway"

	"github.com/rs/zerolog/log"
)

// Server holds the fully-wired process: the HTTP handler plus the pieces
// a caller needs for graceful shutdown.
type Server struct {
	Handler http.Handler
	Store   store.Store
	Port    int
	Config  *config.Config

	RetentionJanitor *retention.Janitor

	retentionCancel context.CancelFunc
	shutdownTel     func(context.Context) error
}

// New loads configuration from the environment and builds a ready Server.
func New(ctx context.Context) (*Server, error) {
	cfg := config.Load()
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig builds a Server from an explicit configuration, for callers
// that assemble config.Config themselves (tests, alternate entry points).
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdownTel, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	roots, err := session.NewRootMap(cfg.Roots)
	if err != nil {
		return nil, fmt.Errorf("build root map: %w", err)
	}

	registry := capability.NewRegistry(cfg.Policy.MaxTokens)
	visibility := policy.DefaultVisibilityMatrix()
	operations := policy.DefaultOperationsMatrix()

	whitelist, err := policy.LoadWhitelist(cfg.Policy.WhitelistPath)
	if err != nil {
		return nil, fmt.Errorf("load command whitelist: %w", err)
	}

	dataStore := store.NewMemoryStore()
	log.Info().Msg("in-memory store initialized")

	audit := auditsink.New(dataStore)
	modeSource := cfg.ModeSource()

	gw := &toolgateway.Gateway{
		Roots:      roots,
		Registry:   registry,
		Visibility: visibility,
		Operations: operations,
		Mode:       modeSource,
		Audit:      audit,
	}

	janitor := retention.NewJanitor(dataStore, 6*time.Hour)
	localArchiver := retention.NewLocalFileArchiver("", true)
	janitor.RegisterArchiver(localArchiver)
	log.Info().Str("driver", localArchiver.Kind()).Msg("local file archiver registered")

	retCtx, retCancel := context.WithCancel(context.Background())
	go janitor.Start(retCtx)

	sessions := session.NewManager()

	authChain := auth.NewProviderChain()
	apiKeyProvider := auth.NewAPIKeyProvider()
	if apiKeyProvider.Enabled() {
		authChain.RegisterProvider(apiKeyProvider)
		log.Info().Msg("api key auth provider registered")
	}
	svcAcctProvider := auth.NewServiceAccountProvider()
	if svcAcctProvider.Enabled() {
		authChain.RegisterProvider(svcAcctProvider)
		log.Info().Msg("service account auth provider registered")
	}

	h := &handlers.Handlers{
		Store:      dataStore,
		Roots:      roots,
		Registry:   registry,
		Sessions:   sessions,
		Visibility: visibility,
		Operations: operations,
		Whitelist:  whitelist,
		Gateway:    gw,
		Mode:       modeSource,
		Cfg:        cfg,
	}

	router := api.NewRouter(cfg, h, authChain)

	return &Server{
		Handler:          router,
		Store:            dataStore,
		Port:             cfg.Port,
		Config:           cfg,
		RetentionJanitor: janitor,
		retentionCancel:  retCancel,
		shutdownTel:      shutdownTel,
	}, nil
}

// Shutdown stops the retention janitor and flushes telemetry. The caller
// is still responsible for closing Store and the HTTP listener itself.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.retentionCancel != nil {
		s.retentionCancel()
	}
	if s.shutdownTel != nil {
		return s.shutdownTel(ctx)
	}
	return nil
}
