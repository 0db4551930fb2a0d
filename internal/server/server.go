package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"edge_gate/internal/action"
	"edge_gate/internal/check"
	"edge_gate/internal/config"
	"edge_gate/internal/dataType"
	"edge_gate/internal/gate"
	"edge_gate/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Server is the local stand-in for the edge: every request goes through the
// gate and allowed ones are forwarded to the origin or the static directory
type Server struct {
	cfg     *config.MainConfig
	ruleSet *config.RuleSet
	router  *gate.Router
	forward http.Handler
	metrics *Metrics
}

func NewServer(cfg *config.MainConfig, ruleSet *config.RuleSet, sharedMem *dataType.SharedMemory) (*Server, error) {
	forward, err := newForwarder(cfg)
	if err != nil {
		return nil, err
	}
	metrics := NewMetrics()
	return &Server{
		cfg:     cfg,
		ruleSet: ruleSet,
		router:  gate.NewRouter(ruleSet, sharedMem, metrics),
		forward: forward,
		metrics: metrics,
	}, nil
}

func newForwarder(cfg *config.MainConfig) (http.Handler, error) {
	if cfg.Origin == "" {
		return http.FileServer(http.Dir(cfg.StaticPath)), nil
	}
	target, err := url.Parse(cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", cfg.Origin, err)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("origin %s unreachable for %s: %v", cfg.Origin, r.URL.Path, err)
		http.Error(w, "502 - Bad Gateway", http.StatusBadGateway)
	}
	return proxy, nil
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(s.cfg.WebPath+"/health_check", s.handleHealthCheck)
	r.With(s.whitelistOnly).Handle(s.cfg.WebPath+"/metrics", s.metrics.Handler())
	r.Handle("/*", http.HandlerFunc(s.serveGate))
	return r
}

func (s *Server) serveGate(w http.ResponseWriter, r *http.Request) {
	req := s.edgeRequest(r)
	w.Header().Set("X-Request-Id", req.RequestID)

	decision := s.router.Route(req)

	switch decision.Get() {
	case action.PassThrough:
		s.forward.ServeHTTP(w, r)
	case action.RewriteURI:
		rewritten := r.Clone(r.Context())
		rewritten.URL.Path = decision.Request.Uri
		rewritten.URL.RawPath = ""
		rewritten.URL.RawQuery = ""
		rewritten.RequestURI = decision.Request.Uri
		s.forward.ServeHTTP(w, rewritten)
	case action.Redirect:
		w.Header().Set("Location", decision.Location)
		w.WriteHeader(decision.StatusCode)
	default:
		w.Header().Set("Content-Type", decision.ContentType)
		w.WriteHeader(decision.StatusCode)
		if _, err := w.Write(decision.Body); err != nil {
			utils.LogError(dataType.NewUserRequest(req, ""), "Error writing response: "+err.Error(), "serveGate")
		}
	}
}

// edgeRequest builds the typed request from the connecting headers
func (s *Server) edgeRequest(r *http.Request) *dataType.EdgeRequest {
	var forwarded string
	for _, headerName := range s.cfg.ForwardedForHeaders {
		if v := r.Header.Get(headerName); v != "" {
			forwarded = v
			break
		}
	}

	return &dataType.EdgeRequest{
		Host:          r.Host,
		ForwardedFor:  forwarded,
		ViewerAddress: r.RemoteAddr,
		Uri:           r.URL.EscapedPath(),
		Query:         utils.ParseQuery(r.URL.RawQuery),
		UserAgent:     r.UserAgent(),
		RequestID:     uuid.NewString(),
	}
}

// whitelistOnly keeps the decision counters away from clients the gate would
// stop. With the gate disabled every client may read them.
func (s *Server) whitelistOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.ruleSet.Mode != dataType.ModeDisabled && s.ruleSet.Mode != "" {
			req := s.edgeRequest(r)
			ip := check.ResolveClientIP(req)
			if !s.ruleSet.Whitelist.IsWhitelisted(ip) {
				utils.LogInfo(dataType.NewUserRequest(req, ip), "METRICS_DENY", "-")
				http.Error(w, action.DenyBody, http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	var builder strings.Builder
	builder.WriteString("ok\n")
	builder.WriteString("version=")
	builder.WriteString(dataType.EdgeGateVersion)
	builder.WriteString("\n")
	builder.WriteString("time=")
	builder.WriteString(time.Now().Format(time.RFC3339))
	builder.WriteString("\n")
	builder.WriteString("ts=")
	builder.WriteString(strconv.FormatFloat(float64(time.Now().UnixNano())/1e9, 'f', 3, 64))
	builder.WriteString("\n")
	builder.WriteString("node=")
	builder.WriteString(s.cfg.NodeName)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(builder.String())); err != nil {
		log.Printf("health check write failed: %v", err)
	}
}

// StartServer starts the HTTP server and blocks until ctx is cancelled or the
// listener fails
func StartServer(ctx context.Context, cfg *config.MainConfig, ruleSet *config.RuleSet) error {
	window, err := utils.ParseWindow(cfg.DenyWindow)
	if err != nil {
		return fmt.Errorf("invalid deny_window: %w", err)
	}
	sharedMem := &dataType.SharedMemory{
		DenyCounter: dataType.NewCounter(64, int64(window)),
	}
	stopCh := make(chan struct{})
	defer close(stopCh)
	go dataType.StartCounterGC(sharedMem.DenyCounter, time.Minute, stopCh)

	s, err := NewServer(cfg, ruleSet, sharedMem)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP Server listening on :%s ...", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
