package webserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ichi0g0y/legacy-code-converter/internal/converter"
	"github.com/ichi0g0y/legacy-code-converter/internal/demo"
	"github.com/ichi0g0y/legacy-code-converter/internal/localdb"
	"github.com/ichi0g0y/legacy-code-converter/internal/provider"
	"github.com/ichi0g0y/legacy-code-converter/internal/samples"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	if localdb.DBClient != nil {
		_ = localdb.Close()
	}
	if _, err := localdb.SetupDB(filepath.Join(t.TempDir(), "local.db")); err != nil {
		t.Fatalf("SetupDB failed: %v", err)
	}
	t.Cleanup(func() { _ = localdb.Close() })
}

// newTestServer wires the real converter against upstreamURL for every live provider.
func newTestServer(t *testing.T, upstreamURL string) *httptest.Server {
	t.Helper()
	svc := converter.NewService(converter.Options{
		Dispatcher: provider.NewDispatcher(provider.Config{
			Timeout:           5 * time.Second,
			PerplexityBaseURL: upstreamURL,
			OpenAIBaseURL:     upstreamURL,
			ClaudeBaseURL:     upstreamURL,
		}),
		Demo:           demo.NewResponder(0),
		Events:         Events(),
		HistoryEnabled: true,
	})
	srv := httptest.NewServer(NewMux(svc))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, _ := json.Marshal(payload)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
}

func TestIndexServesEmbeddedUI(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status got=%d want=%d", resp.StatusCode, http.StatusOK)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("content type got=%s", resp.Header.Get("Content-Type"))
	}

	missing, _ := http.Get(srv.URL + "/nope")
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path status got=%d want=404", missing.StatusCode)
	}
}

func TestOptionsAndSample(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	resp, err := http.Get(srv.URL + "/api/options")
	if err != nil {
		t.Fatalf("GET /api/options failed: %v", err)
	}
	defer resp.Body.Close()
	var opts optionsResponse
	decode(t, resp, &opts)
	if strings.Join(opts.Providers, ",") != "Demo,Perplexity,OpenAI,Claude" {
		t.Fatalf("providers got=%v", opts.Providers)
	}
	if opts.Defaults.Provider != "Demo" || opts.Defaults.FromLanguage != "Ember" || opts.Defaults.ToLanguage != "React" {
		t.Fatalf("defaults got=%+v", opts.Defaults)
	}

	sample, err := http.Get(srv.URL + "/api/samples/ember")
	if err != nil {
		t.Fatalf("GET sample failed: %v", err)
	}
	defer sample.Body.Close()
	var body map[string]string
	decode(t, sample, &body)
	if body["code"] != samples.EmberUserPosts {
		t.Fatal("sample endpoint should return the bundled Ember code")
	}
}

func TestConvert_DemoRoundTrip(t *testing.T) {
	setupTestDB(t)
	srv := newTestServer(t, "http://127.0.0.1:1")

	resp := postJSON(t, srv.URL+"/api/convert", convertRequest{
		Code: samples.EmberUserPosts, FromLanguage: "Ember", ToLanguage: "React", Provider: "Demo", ClientID: "tab",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status got=%d want=200", resp.StatusCode)
	}
	var out convertResponse
	decode(t, resp, &out)
	if out.Text != samples.ReactUserPosts || out.Provider != "Demo" || out.IsDocument {
		t.Fatalf("unexpected response: %+v", out)
	}

	hist, err := http.Get(srv.URL + "/api/history")
	if err != nil {
		t.Fatalf("GET history failed: %v", err)
	}
	defer hist.Body.Close()
	var h struct {
		Conversions []localdb.ConversionRow `json:"conversions"`
	}
	decode(t, hist, &h)
	if len(h.Conversions) != 1 || h.Conversions[0].ID != out.ID {
		t.Fatalf("history got=%+v", h.Conversions)
	}
}

func TestConvert_ErrorMapping(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer shape" {
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer upstream.Close()
	srv := newTestServer(t, upstream.URL)

	cases := []struct {
		name       string
		req        convertRequest
		wantStatus int
		wantKind   string
	}{
		{"empty source", convertRequest{Code: " ", FromLanguage: "Ember", ToLanguage: "React", Provider: "Demo"}, 400, kindEmptySource},
		{"missing languages", convertRequest{Code: "x", Provider: "Demo"}, 400, kindInvalidRequest},
		{"missing credential", convertRequest{Code: "x", FromLanguage: "Ember", ToLanguage: "React", Provider: "OpenAI"}, 400, provider.KindMissingCredential},
		{"unknown provider", convertRequest{Code: "x", FromLanguage: "Ember", ToLanguage: "React", Provider: "Gemini", APIKey: "k"}, 400, provider.KindUnsupportedProvider},
		{"upstream status", convertRequest{Code: "x", FromLanguage: "Ember", ToLanguage: "React", Provider: "OpenAI", APIKey: "k"}, 502, provider.KindHTTP},
		{"upstream shape", convertRequest{Code: "x", FromLanguage: "Ember", ToLanguage: "React", Provider: "Perplexity", APIKey: "shape"}, 502, provider.KindResponseShape},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/convert", tc.req)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status got=%d want=%d", resp.StatusCode, tc.wantStatus)
			}
			var e errorResponse
			decode(t, resp, &e)
			if e.Kind != tc.wantKind {
				t.Fatalf("kind got=%s want=%s (error=%s)", e.Kind, tc.wantKind, e.Error)
			}
			if strings.Contains(e.Error, "slow down") {
				t.Fatal("upstream body must not be echoed to the browser")
			}
		})
	}
}

func TestConvert_MalformedBody(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")
	resp, err := http.Post(srv.URL+"/api/convert", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status got=%d want=400", resp.StatusCode)
	}

	get, _ := http.Get(srv.URL + "/api/convert")
	get.Body.Close()
	if get.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET status got=%d want=405", get.StatusCode)
	}
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	cases := []struct {
		req      exportRequest
		wantFile string
		wantType string
	}{
		{exportRequest{Kind: "legacy", Content: "a", ToLanguage: "React"}, "legacy_code.txt", "text/plain; charset=utf-8"},
		{exportRequest{Kind: "generated", Content: "a", ToLanguage: "React"}, "generated_code.txt", "text/plain; charset=utf-8"},
		{exportRequest{Kind: "generated", Content: "# Doc", ToLanguage: "English"}, "documentation.md", "text/markdown; charset=utf-8"},
		{exportRequest{Kind: "analysis", Content: "a", ToLanguage: "React"}, "legacy_analysis.md", "text/markdown; charset=utf-8"},
	}
	for _, tc := range cases {
		resp := postJSON(t, srv.URL+"/api/export", tc.req)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status got=%d", tc.wantFile, resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="`+tc.wantFile+`"` {
			t.Fatalf("disposition got=%s", got)
		}
		if got := resp.Header.Get("Content-Type"); got != tc.wantType {
			t.Fatalf("content type got=%s want=%s", got, tc.wantType)
		}
	}

	empty := postJSON(t, srv.URL+"/api/export", exportRequest{Kind: "legacy"})
	if empty.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty content status got=%d want=400", empty.StatusCode)
	}
}

func TestHistoryClearAndUsage(t *testing.T) {
	setupTestDB(t)
	srv := newTestServer(t, "http://127.0.0.1:1")

	_ = localdb.AddConversion(localdb.ConversionRow{ID: "h1", Provider: "Demo", FromLanguage: "Ember", ToLanguage: "Vue", Status: localdb.ConversionSucceeded})
	_ = localdb.AddProviderUsage("OpenAI", 10, 20, 0.5)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/history", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE history failed: %v", err)
	}
	defer resp.Body.Close()
	var cleared struct {
		Removed int64 `json:"removed"`
	}
	decode(t, resp, &cleared)
	if cleared.Removed != 1 {
		t.Fatalf("removed got=%d want=1", cleared.Removed)
	}

	bad, _ := http.Get(srv.URL + "/api/history?limit=abc")
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit status got=%d want=400", bad.StatusCode)
	}

	usage, err := http.Get(srv.URL + "/api/usage")
	if err != nil {
		t.Fatalf("GET usage failed: %v", err)
	}
	defer usage.Body.Close()
	var u usageResponse
	decode(t, usage, &u)
	if u.Total.TotalTokens != 30 || u.Total.Requests != 1 || len(u.Providers) != 1 {
		t.Fatalf("usage got=%+v", u)
	}

	reset := postJSON(t, srv.URL+"/api/usage/reset", nil)
	if reset.StatusCode != http.StatusOK {
		t.Fatalf("reset status got=%d", reset.StatusCode)
	}
	rows, _ := localdb.GetProviderUsage()
	if len(rows) != 0 {
		t.Fatalf("usage not reset: %+v", rows)
	}
}

func TestSettingsAPI(t *testing.T) {
	setupTestDB(t)
	srv := newTestServer(t, "http://127.0.0.1:1")

	put := func(body string) *http.Response {
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/settings", strings.NewReader(body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("PUT settings failed: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	if resp := put(`{"DEFAULT_PROVIDER":"Claude"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status got=%d want=200", resp.StatusCode)
	}
	if resp := put(`{"DEFAULT_PROVIDER":"Gemini"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid PUT status got=%d want=400", resp.StatusCode)
	}
	if resp := put(`{"CLAUDE_API_KEY":"sk"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("credential PUT status got=%d want=400", resp.StatusCode)
	}

	opts, err := http.Get(srv.URL + "/api/options")
	if err != nil {
		t.Fatalf("GET options failed: %v", err)
	}
	defer opts.Body.Close()
	var o optionsResponse
	decode(t, opts, &o)
	if o.Defaults.Provider != "Claude" {
		t.Fatalf("stored default not applied: %+v", o.Defaults)
	}
}

func TestShareQRCode(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	resp, err := http.Get(srv.URL + "/api/share/qrcode?size=200")
	if err != nil {
		t.Fatalf("GET qrcode failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("content type got=%s", resp.Header.Get("Content-Type"))
	}
	var magic [8]byte
	if _, err := resp.Body.Read(magic[:]); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(magic[:], []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("not a PNG: %q", magic)
	}

	for _, q := range []string{"?size=5", "?url=ftp://x", "?url=notaurl"} {
		bad, _ := http.Get(srv.URL + "/api/share/qrcode" + q)
		bad.Body.Close()
		if bad.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s status got=%d want=400", q, bad.StatusCode)
		}
	}
}

func TestWebSocketReceivesConversionEvents(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?clientId=watcher"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "connected" {
		t.Fatalf("first message got=%+v err=%v", msg, err)
	}

	resp := postJSON(t, srv.URL+"/api/convert", convertRequest{
		Code: "foo();", FromLanguage: "jQuery", ToLanguage: "Svelte", Provider: "Demo", ClientID: "tab",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("convert status got=%d", resp.StatusCode)
	}

	seen := map[string]bool{}
	for !seen[converter.EventConversionFinished] {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed before finish event: %v (seen=%v)", err, seen)
		}
		seen[msg.Type] = true
	}
	if !seen[converter.EventConversionStarted] {
		t.Fatalf("missing start event: %v", seen)
	}
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1")
	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET status failed: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	decode(t, resp, &body)
	if _, ok := body["version"]; !ok {
		t.Fatalf("status missing version: %v", body)
	}
}
