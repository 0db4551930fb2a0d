package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"edge_gate/internal/config"
	"edge_gate/internal/dataType"
	"edge_gate/internal/utils"
)

func TestMain(m *testing.M) {
	utils.SetDefault(utils.NewWriterManager(io.Discard))
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, mode dataType.WhitelistMode, origin string, whitelist ...string) *Server {
	t.Helper()
	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "coming-soon.html"), []byte("coming soon"), 0o644); err != nil {
		t.Fatalf("write fallback page: %v", err)
	}
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("home"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	cfg := config.DefaultMainConfig()
	cfg.RootDomain = "example.com"
	cfg.FrontendDomain = "www.example.com"
	cfg.StaticPath = static
	cfg.Origin = origin
	cfg.WhitelistMode = mode
	cfg.Whitelist = whitelist

	rules, err := config.LoadRules(&cfg)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	s, err := NewServer(&cfg, rules, &dataType.SharedMemory{DenyCounter: dataType.NewCounter(4, 60)})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func do(s *Server, host, target, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Host = host
	req.RemoteAddr = "192.0.2.1:40000"
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_RedirectRootDomain(t *testing.T) {
	s := newTestServer(t, dataType.ModeDisabled, "")
	rec := do(s, "example.com", "/shop?a=1%202", "")
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://www.example.com/shop?a=1%202" {
		t.Errorf("Location = %q", loc)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Errorf("missing X-Request-Id")
	}
}

func TestServer_DenyProfile(t *testing.T) {
	s := newTestServer(t, dataType.ModeDeny, "", "112.222.28.115/32")

	rec := do(s, "www.example.com", "/", "112.222.28.116")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body := rec.Body.String(); body != "Access Denied" {
		t.Errorf("body = %q", body)
	}

	rec = do(s, "www.example.com", "/", "112.222.28.115")
	if rec.Code != http.StatusOK || rec.Body.String() != "home" {
		t.Errorf("whitelisted client got %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_RewriteProfileServesFallbackPage(t *testing.T) {
	s := newTestServer(t, dataType.ModeRewrite, "", "10.0.0.0/8")
	rec := do(s, "www.example.com", "/shop?item=4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "coming soon" {
		t.Errorf("body = %q, want fallback page", body)
	}
}

func TestServer_PassThroughToOrigin(t *testing.T) {
	var gotPath, gotQuery string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		_, _ = w.Write([]byte("from origin"))
	}))
	defer origin.Close()

	s := newTestServer(t, dataType.ModeDeny, origin.URL, "192.0.2.0/24")
	rec := do(s, "www.example.com", "/api/items?page=2", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "from origin" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if gotPath != "/api/items" || gotQuery != "page=2" {
		t.Errorf("origin saw %q ? %q", gotPath, gotQuery)
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t, dataType.ModeDisabled, "")
	do(s, "example.com", "/", "")

	rec := do(s, "www.example.com", "/gate/health_check", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "ok\n") {
		t.Errorf("health check = %d %q", rec.Code, rec.Body.String())
	}

	rec = do(s, "www.example.com", "/gate/metrics", "")
	if !strings.Contains(rec.Body.String(), `edge_gate_decisions_total{outcome="redirect"} 1`) {
		t.Errorf("metrics missing redirect counter:\n%s", rec.Body.String())
	}
}

func TestServer_ConfiguredForwardedHeader(t *testing.T) {
	s := newTestServer(t, dataType.ModeDeny, "", "203.0.113.5")
	s.cfg.ForwardedForHeaders = []string{"CloudFront-Viewer-Address", "X-Forwarded-For"}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "www.example.com"
	req.Header.Set("CloudFront-Viewer-Address", "203.0.113.5")
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 from first configured header", rec.Code)
	}
}

func TestServer_DenialMetrics(t *testing.T) {
	s := newTestServer(t, dataType.ModeRewrite, "", "10.0.0.0/8")
	do(s, "www.example.com", "/", "203.0.113.9")
	do(s, "www.example.com", "/", "203.0.113.9")

	body := do(s, "www.example.com", "/gate/metrics", "10.0.0.1").Body.String()
	for _, want := range []string{
		`edge_gate_decisions_total{outcome="rewrite"} 2`,
		`edge_gate_whitelist_denials_total{mode="rewrite"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s:\n%s", want, body)
		}
	}
}

func TestServer_RedirectKeepsQueryKeys(t *testing.T) {
	s := newTestServer(t, dataType.ModeDisabled, "")
	rec := do(s, "example.com", "/shop?next%26admin%3Dtrue=1&a+b=2", "")
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if loc != "https://www.example.com/shop?next%26admin%3Dtrue=1&a%20b=2" {
		t.Errorf("Location = %q", loc)
	}
	u, err := url.Parse(loc)
	if err != nil {
		t.Fatalf("Location does not parse: %v", err)
	}
	q := u.Query()
	if len(q) != 2 || q.Get("next&admin=true") != "1" || q.Get("a b") != "2" || q.Has("admin") {
		t.Errorf("redirect changed the query keys: %v", q)
	}
}

func TestServer_MetricsFollowWhitelist(t *testing.T) {
	s := newTestServer(t, dataType.ModeDeny, "", "10.0.0.0/8")

	rec := do(s, "www.example.com", "/gate/metrics", "203.0.113.9")
	if rec.Code != http.StatusForbidden {
		t.Errorf("metrics for non-whitelisted client = %d, want 403", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "edge_gate_decisions_total") {
		t.Errorf("counters leaked to non-whitelisted client")
	}

	rec = do(s, "www.example.com", "/gate/metrics", "10.1.2.3")
	if rec.Code != http.StatusOK {
		t.Errorf("metrics for whitelisted client = %d, want 200", rec.Code)
	}

	rec = do(s, "www.example.com", "/gate/health_check", "203.0.113.9")
	if rec.Code != http.StatusOK {
		t.Errorf("health check = %d, want 200 for any client", rec.Code)
	}
}
