package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/inappgate/internal/domain/detect"
	"github.com/GriffinCanCode/inappgate/internal/domain/intercept"
	"github.com/GriffinCanCode/inappgate/internal/domain/interstitial"
	"github.com/GriffinCanCode/inappgate/internal/domain/redirect"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/monitoring"
)

const (
	androidInstagramUA = "Mozilla/5.0 (Linux; Android 13; Pixel 7; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/120.0.0.0 Mobile Safari/537.36 Instagram 312.0.0.0"
	desktopUA          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *monitoring.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	renderer, err := interstitial.NewRenderer("<p>Open in your browser</p>")
	require.NoError(t, err)

	metrics := monitoring.NewMetrics()
	h, err := NewHandlers(Deps{
		AllowList:  redirect.MustAllowList("histudios.ir", "*.histudios.ir"),
		Classifier: detect.Default(),
		Planner: interstitial.Planner{
			GuardPath:      "/open",
			LandingPath:    "/home/",
			AndroidPackage: interstitial.DefaultAndroidPackage,
		},
		Renderer:    renderer,
		LandingPath: "/home/",
		Metrics:     metrics,
	})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/open", h.Open)
	router.GET("/openpage/", h.Interstitial)
	api := router.Group("/api/v1")
	api.GET("/classify", h.Classify)
	api.GET("/resolve", h.Resolve)
	api.GET("/allowlist", h.AllowList)
	api.GET("/stats", h.Stats)

	return router, metrics
}

func get(router *gin.Engine, target, ua string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func openURL(candidate string) string {
	return "/open?u=" + url.QueryEscape(candidate)
}

func TestNewHandlers_RequiresDeps(t *testing.T) {
	_, err := NewHandlers(Deps{})
	assert.Error(t, err)
}

func hasContinueCookie(w *httptest.ResponseRecorder) bool {
	for _, c := range w.Result().Cookies() {
		if c.Name == intercept.ContinueCookie && c.Value == "1" {
			return true
		}
	}
	return false
}

func TestOpen_Allowed(t *testing.T) {
	router, metrics := setupTestRouter(t)

	tests := []string{
		"https://histudios.ir/",
		"https://www.histudios.ir/courses?id=7",
		"http://HiStudios.ir./x",
		"https://histudios.ir/a%20b?x=1&y=%2F#frag",
		"https://histudios.ir/path;params?q=a+b&q=%E2%9C%93",
	}

	for _, candidate := range tests {
		t.Run(candidate, func(t *testing.T) {
			w := get(router, openURL(candidate), desktopUA)

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, candidate, w.Header().Get("Location"))
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
			assert.True(t, hasContinueCookie(w), "allowed redirect must carry the continue marker")
		})
	}

	assert.Equal(t, float64(len(tests)), testutil.ToFloat64(metrics.Redirects.WithLabelValues("allowed", "none")))
}

func TestOpen_RejectedGoesToLanding(t *testing.T) {
	router, metrics := setupTestRouter(t)

	tests := []struct {
		name   string
		target string
		reason string
	}{
		{"foreign host", openURL("https://evil.example/phish"), "not_allowed"},
		{"lookalike suffix", openURL("https://histudios.ir.evil.com/"), "not_allowed"},
		{"userinfo trick", openURL("https://histudios.ir@evil.example/"), "not_allowed"},
		{"javascript scheme", openURL("javascript:alert(1)"), "invalid_url"},
		{"relative", openURL("//evil.example/"), "invalid_url"},
		{"missing", "/open", "missing_parameter"},
		{"empty", "/open?u=", "missing_parameter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(metrics.Redirects.WithLabelValues("rejected", tt.reason))

			w := get(router, tt.target, desktopUA)

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/home/", w.Header().Get("Location"))
			assert.False(t, hasContinueCookie(w))
			assert.Equal(t, before+1, testutil.ToFloat64(metrics.Redirects.WithLabelValues("rejected", tt.reason)))
		})
	}
}

func TestInterstitial_Android(t *testing.T) {
	router, _ := setupTestRouter(t)
	dest := "https://histudios.ir/blog/go?ref=ig"

	w := get(router, "https://histudios.ir/openpage/?destination="+url.QueryEscape(dest), androidInstagramUA)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "noindex", w.Header().Get("X-Robots-Tag"))

	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)

	cont, ok := doc.Find("#continue").Attr("href")
	require.True(t, ok)
	assert.Equal(t, "https://histudios.ir/open?u="+url.QueryEscape(dest), cont)

	external, ok := doc.Find("#open-external").Attr("href")
	require.True(t, ok)
	assert.Contains(t, external, "intent://histudios.ir/open?u=")
	assert.Contains(t, external, "package=com.android.chrome")
}

func TestInterstitial_MissingDestinationUsesLanding(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := get(router, "http://histudios.ir/openpage/", desktopUA)
	require.Equal(t, http.StatusOK, w.Code)

	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)
	cont, _ := doc.Find("#continue").Attr("href")
	assert.Equal(t, "http://histudios.ir/open?u="+url.QueryEscape("http://histudios.ir/home/"), cont)
}

// The continue link on the interstitial must lead, via the guarded redirect,
// to exactly the URL the visitor originally asked for.
func TestInterstitialRoundTripIsByteExact(t *testing.T) {
	router, _ := setupTestRouter(t)
	dests := []string{
		"https://histudios.ir/",
		"https://histudios.ir/a%2Fb/c?x=%20&y=1+2#top",
		"https://sub.histudios.ir/%D8%B3%D9%84%D8%A7%D9%85?q=%E2%9C%93",
	}

	for _, dest := range dests {
		t.Run(dest, func(t *testing.T) {
			page := get(router, "https://histudios.ir/openpage/?destination="+url.QueryEscape(dest), androidInstagramUA)
			require.Equal(t, http.StatusOK, page.Code)

			doc, err := goquery.NewDocumentFromReader(page.Body)
			require.NoError(t, err)
			cont, ok := doc.Find("#continue").Attr("href")
			require.True(t, ok)

			w := get(router, cont, androidInstagramUA)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, dest, w.Header().Get("Location"))
		})
	}
}

func TestClassify(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name   string
		target string
		ua     string
		want   ClassifyResponse
	}{
		{
			name:   "query parameter",
			target: "/api/v1/classify?ua=" + url.QueryEscape(androidInstagramUA),
			ua:     desktopUA,
			want:   ClassifyResponse{Embedded: true, App: "Instagram", Platform: "android"},
		},
		{
			name:   "own user agent",
			target: "/api/v1/classify",
			ua:     desktopUA,
			want:   ClassifyResponse{Embedded: false, Platform: "other"},
		},
		{
			name:   "explicit empty ua",
			target: "/api/v1/classify?ua=",
			ua:     androidInstagramUA,
			want:   ClassifyResponse{Embedded: false, Platform: "other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, tt.target, tt.ua)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

			var got ClassifyResponse
			require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := get(router, "/api/v1/resolve?u="+url.QueryEscape("https://www.histudios.ir/x"), "")
	require.Equal(t, http.StatusOK, w.Code)
	var ok ResolveResponse
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &ok))
	assert.Equal(t, ResolveResponse{Allowed: true, Target: "https://www.histudios.ir/x", Host: "www.histudios.ir"}, ok)

	w = get(router, "/api/v1/resolve?u="+url.QueryEscape("https://evil.example/<x>"), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<x>")
	var rejected ResolveResponse
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &rejected))
	assert.False(t, rejected.Allowed)
	assert.Empty(t, rejected.Target)
	assert.Equal(t, string(redirect.ReasonNotAllowed), rejected.Reason)
}

func TestAllowListAndStats(t *testing.T) {
	router, _ := setupTestRouter(t)
	get(router, openURL("https://evil.example/"), "")

	w := get(router, "/api/v1/allowlist", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hosts":["histudios.ir","*.histudios.ir"]}`, w.Body.String())

	w = get(router, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap monitoring.Snapshot
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.RedirectsRejected)
}

func TestRootAndHealth(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := get(router, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service":"inappgate"`)

	w = get(router, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"dev","allowed_hosts":2}`, w.Body.String())
}
