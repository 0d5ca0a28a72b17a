package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/GriffinCanCode/inappgate/internal/grpc"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/logging"
)

const (
	instagramUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 Instagram 312.0.0.0"
	desktopUA   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	s, err := NewServer(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func do(s *Server, target, ua string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestScenario_InstagramAtRoot(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, "https://histudios.ir/", instagramUA)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/openpage/?destination="+url.QueryEscape("https://histudios.ir/"), w.Header().Get("Location"))
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestScenario_DesktopAtRoot(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, "https://histudios.ir/", desktopUA)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/home/", w.Header().Get("Location"))
}

func TestScenario_OpenRejectsForeignHost(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, "/open?u="+url.QueryEscape("https://evil.example/phish"), instagramUA)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/home/", w.Header().Get("Location"))
}

func TestFullFlow_EmbeddedVisitorReachesDestination(t *testing.T) {
	s := newTestServer(t, nil)
	dest := "https://histudios.ir/courses/go?session=a%2Fb&x=1"

	// 1. Intercepted deep link.
	w := do(s, dest, instagramUA)
	require.Equal(t, http.StatusFound, w.Code)
	interstitialURL := w.Header().Get("Location")

	// 2. The interstitial itself is never intercepted again.
	w = do(s, "https://histudios.ir"+interstitialURL, instagramUA)
	require.Equal(t, http.StatusOK, w.Code)
	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)
	guard, ok := doc.Find("#continue").Attr("href")
	require.True(t, ok)

	// 3. The guarded redirect lands on the original URL, byte for byte.
	w = do(s, guard, instagramUA)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, dest, w.Header().Get("Location"))
}

// browse follows redirects and the interstitial's links the way an embedded
// browser would, carrying cookies, until a page other than the interstitial
// answers 200.
func browse(t *testing.T, s *Server, start, ua, link string) (*httptest.ResponseRecorder, []string) {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	current, err := url.Parse(start)
	require.NoError(t, err)

	var visited []string
	for hop := 0; hop < 10; hop++ {
		visited = append(visited, current.String())

		req := httptest.NewRequest(http.MethodGet, current.String(), nil)
		req.Header.Set("User-Agent", ua)
		for _, c := range jar.Cookies(current) {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		jar.SetCookies(current, w.Result().Cookies())

		var next string
		switch w.Code {
		case http.StatusFound:
			next = w.Header().Get("Location")
		case http.StatusOK:
			// Rewrite mode serves the interstitial under any path, so look
			// at the page rather than the URL.
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(w.Body.String()))
			require.NoError(t, err)
			if doc.Find("#continue").Length() == 0 {
				return w, visited
			}
			href, ok := doc.Find(link).Attr("href")
			require.True(t, ok, "interstitial has no %s link", link)
			next = href
		default:
			return w, visited
		}

		ref, err := url.Parse(next)
		require.NoError(t, err)
		current = current.ResolveReference(ref)
	}
	t.Fatalf("no final page after %d hops: %v", len(visited), visited)
	return nil, visited
}

func TestFullFlow_ContinueReachesContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "courses"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "courses", "go"), []byte("go course"), 0o644))

	for _, mode := range []string{"redirect", "rewrite"} {
		t.Run(mode, func(t *testing.T) {
			s := newTestServer(t, func(c *config.Config) {
				c.Gate.SiteDir = dir
				c.Gate.Mode = mode
			})

			w, visited := browse(t, s, "https://histudios.ir/courses/go?x=1", instagramUA, "#continue")

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "go course", w.Body.String())
			assert.Equal(t, "https://histudios.ir/courses/go?x=1", visited[len(visited)-1])
			assert.LessOrEqual(t, len(visited), 4, "%v", visited)
		})
	}
}

func TestFullFlow_FallbackReachesContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog"), []byte("blog"), 0o644))
	s := newTestServer(t, func(c *config.Config) { c.Gate.SiteDir = dir })

	// The iOS external link is the guard URL itself.
	w, _ := browse(t, s, "https://histudios.ir/blog", instagramUA, "#open-external")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "blog", w.Body.String())
}

func TestForwardedHeadersFromUntrustedPeer(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, "http://histudios.ir/courses", instagramUA,
		"X-Forwarded-Host", "evil.example",
		"X-Forwarded-Proto", "https",
	)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/openpage/?destination="+url.QueryEscape("http://histudios.ir/courses"), w.Header().Get("Location"))
}

func TestForwardedHeadersFromTrustedProxy(t *testing.T) {
	// httptest requests come from 192.0.2.1.
	s := newTestServer(t, func(c *config.Config) { c.Gate.TrustedProxies = []string{"192.0.2.0/24"} })

	w := do(s, "http://10.0.0.5:8000/courses", instagramUA,
		"X-Forwarded-Host", "histudios.ir",
		"X-Forwarded-Proto", "https",
	)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/openpage/?destination="+url.QueryEscape("https://histudios.ir/courses"), w.Header().Get("Location"))
}

func TestRewriteMode(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Gate.Mode = "rewrite" })

	w := do(s, "https://histudios.ir/blog", instagramUA)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("#continue").Length())
}

func TestExcludedPathsPassThrough(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, "/health", instagramUA)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s, "/api/v1/classify", instagramUA, "Origin", "https://example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Body.String(), `"embedded":true`)
}

func TestMetricsEndpointIsCompressed(t *testing.T) {
	s := newTestServer(t, nil)
	do(s, "/open", desktopUA)

	w := do(s, "/metrics", "", "Accept-Encoding", "gzip")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestGuardIsRateLimited(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.RateLimit.RequestsPerSecond = 1
		c.RateLimit.Burst = 1
	})

	assert.Equal(t, http.StatusFound, do(s, "/open", desktopUA).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(s, "/open", desktopUA).Code)
	// Other routes are not limited.
	assert.Equal(t, http.StatusOK, do(s, "/health", desktopUA).Code)
}

func TestGuardRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.RateLimit.RequestsPerSecond = 1
		c.RateLimit.Burst = 1
	})

	limited := 0
	for i := 1; i <= 20; i++ {
		w := do(s, "/open", desktopUA, "X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	// Every request after the first shares the peer's bucket.
	assert.GreaterOrEqual(t, limited, 18)
}

func TestGuardRateLimitUsesForwardedForFromTrustedProxy(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.RateLimit.RequestsPerSecond = 1
		c.RateLimit.Burst = 1
		c.Gate.TrustedProxies = []string{"192.0.2.1"}
	})

	for i := 1; i <= 5; i++ {
		w := do(s, "/open", desktopUA, "X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		assert.Equal(t, http.StatusFound, w.Code, "client %d", i)
	}
	w := do(s, "/open", desktopUA, "X-Forwarded-For", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestNewServer_InvalidTrustedProxy(t *testing.T) {
	cfg := config.Default()
	cfg.Gate.TrustedProxies = []string{"not-an-ip"}

	_, err := NewServer(cfg, nil)
	assert.Error(t, err)
}

func TestSiteDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "home"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "home", "index.html"), []byte("<h1>home</h1>"), 0o644))

	s := newTestServer(t, func(c *config.Config) { c.Gate.SiteDir = dir })

	w := do(s, "/home/", desktopUA)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>home</h1>")
}

func TestNewServer_InvalidAllowList(t *testing.T) {
	cfg := config.Default()
	cfg.Gate.AllowedHosts = []string{"*."}

	_, err := NewServer(cfg, nil)
	assert.Error(t, err)
}

func TestServe_HTTPAndGRPC(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.GRPC.Enabled = true })

	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, httpLis, grpcLis) }()

	resp, err := http.Get("http://" + httpLis.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	client, err := grpc.NewHealthClient(grpcLis.Addr().String(), nil)
	require.NoError(t, err)
	defer client.Close()

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer checkCancel()
	status, err := client.Check(checkCtx, grpc.ServiceName)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("servers did not stop")
	}
}
