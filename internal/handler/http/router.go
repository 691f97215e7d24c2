package http

import (
	"log/slog"
	"net/http"

	cachehandler "ragchat/internal/handler/http/cache"
	chathandler "ragchat/internal/handler/http/chat"
	"ragchat/internal/handler/http/middleware"
	"ragchat/internal/handler/http/requestid"
	"ragchat/internal/observability/metrics"
	chatUC "ragchat/internal/usecase/chat"
	"ragchat/pkg/ratelimit"
	"ragchat/pkg/respcache"
)

// RouterConfig collects everything the HTTP surface needs.
type RouterConfig struct {
	Logger      *slog.Logger
	ChatService *chatUC.Service
	// Cache enables the /cache/* admin endpoints when non-nil.
	Cache *respcache.Cache
	// Guard enables per-IP rate limiting when non-nil.
	Guard       *ratelimit.Guard
	IPExtractor middleware.IPExtractor
	Metrics     *metrics.Registry
	APIKey      string
	Version     string
	Checkers    []HealthChecker
}

// NewRouter assembles the route table and middleware chain.
//
// Middleware order, outermost first: panic recovery, request ID,
// request logging, DDoS guard. The guard sits innermost so rejected
// requests still get logged with their request ID. /health and
// /metrics bypass the guard.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	chathandler.Register(mux, cfg.ChatService, cfg.Metrics)

	authz := middleware.NewAPIKeyAuth(cfg.APIKey).Middleware()
	if cfg.Cache != nil {
		cachehandler.Register(mux, cfg.Cache, authz)
	}

	mux.Handle("GET /health", HealthHandler{
		Version:  cfg.Version,
		Checkers: cfg.Checkers,
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	var handler http.Handler = mux
	if cfg.Guard != nil {
		extractor := cfg.IPExtractor
		if extractor == nil {
			extractor = &middleware.RemoteAddrExtractor{}
		}
		guard := middleware.NewDDoSGuard(cfg.Guard, extractor, []string{"/health", "/metrics"})
		handler = guard.Middleware()(handler)
	}

	handler = Logging(cfg.Logger)(handler)
	handler = requestid.Middleware(handler)
	handler = Recover(cfg.Logger)(handler)
	return handler
}
