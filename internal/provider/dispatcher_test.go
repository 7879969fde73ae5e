package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ichi0g0y/legacy-code-converter/internal/prompt"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

type capturedRequest struct {
	Path    string
	Headers http.Header
	Body    map[string]any
}

type upstream struct {
	*httptest.Server
	hits int32

	mu       sync.Mutex
	requests []capturedRequest
}

func (u *upstream) request(i int) capturedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.requests[i]
}

// newUpstream serves reply with status and records every request it receives.
func newUpstream(t *testing.T, status int, reply string) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.hits, 1)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		u.mu.Lock()
		u.requests = append(u.requests, capturedRequest{Path: r.URL.Path, Headers: r.Header.Clone(), Body: body})
		u.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(u.Close)
	return u
}

func dispatcherFor(url string) *Dispatcher {
	return NewDispatcher(Config{
		Timeout:           5 * time.Second,
		PerplexityBaseURL: url,
		OpenAIBaseURL:     url,
		ClaudeBaseURL:     url,
	})
}

func TestParse(t *testing.T) {
	cases := []struct {
		in     string
		want   Provider
		wantOK bool
	}{
		{"Demo", Demo, true},
		{"openai", OpenAI, true},
		{" CLAUDE ", Claude, true},
		{"perplexity", Perplexity, true},
		{"Gemini", Provider("Gemini"), false},
		{"", Provider(""), false},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("Parse(%q) got=(%v,%v) want=(%v,%v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestDispatch_OpenAIShapesRequestAndUnwraps(t *testing.T) {
	srv := newUpstream(t, http.StatusOK,
		`{"model":"gpt-4.1-2025-04-14","choices":[{"message":{"content":"export default function X() {}\n"}}],"usage":{"prompt_tokens":12,"completion_tokens":7}}`)
	d := dispatcherFor(srv.URL)

	res, err := d.Dispatch(context.Background(), Request{
		SourceCode: "$('#x').hide();", FromLanguage: "jQuery", ToLanguage: "React",
		Credential: "sk-test", Provider: OpenAI,
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if res.Text != "export default function X() {}\n" {
		t.Fatalf("text got=%q", res.Text)
	}
	if res.Usage.InputTokens != 12 || res.Usage.OutputTokens != 7 {
		t.Fatalf("usage got=%+v", res.Usage)
	}

	req := srv.request(0)
	if req.Path != "/chat/completions" {
		t.Fatalf("path got=%s want=/chat/completions", req.Path)
	}
	if got := req.Headers.Get("Authorization"); got != "Bearer sk-test" {
		t.Fatalf("Authorization got=%q", got)
	}
	if got := req.Headers.Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Fatalf("Content-Type got=%q", got)
	}
	if req.Body["model"] != OpenAIModel {
		t.Fatalf("model got=%v want=%v", req.Body["model"], OpenAIModel)
	}
	if req.Body["temperature"] != 0.1 {
		t.Fatalf("temperature got=%v", req.Body["temperature"])
	}
	msgs, _ := req.Body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages got=%d want=2", len(msgs))
	}
	pair := prompt.Build("jQuery", "React", "$('#x').hide();")
	sys := msgs[0].(map[string]any)
	usr := msgs[1].(map[string]any)
	if sys["role"] != "system" || sys["content"] != pair.System {
		t.Fatalf("system message got=%v", sys)
	}
	if usr["role"] != "user" || usr["content"] != pair.User {
		t.Fatalf("user message got=%v", usr)
	}
}

func TestDispatch_PerplexityUsesItsModel(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	d := dispatcherFor(srv.URL)

	res, err := d.Dispatch(context.Background(), Request{
		SourceCode: "x", FromLanguage: "Ember", ToLanguage: "Vue", Credential: "pplx", Provider: Perplexity,
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if res.Text != "ok" || res.Model != PerplexityModel {
		t.Fatalf("result got=%+v", res)
	}
	if srv.request(0).Body["model"] != PerplexityModel {
		t.Fatalf("model got=%v", srv.request(0).Body["model"])
	}
	if srv.request(0).Headers.Get("Authorization") != "Bearer pplx" {
		t.Fatal("perplexity should use bearer auth")
	}
}

func TestDispatch_ClaudeShapesRequestAndUnwraps(t *testing.T) {
	srv := newUpstream(t, http.StatusOK,
		`{"content":[{"type":"text","text":"# Overview\nStuff"}],"usage":{"input_tokens":30,"output_tokens":40}}`)
	d := dispatcherFor(srv.URL)

	res, err := d.Dispatch(context.Background(), Request{
		SourceCode: "class A {}", FromLanguage: "Ember", ToLanguage: "English",
		Credential: "sk-ant", Provider: Claude,
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if res.Text != "# Overview\nStuff" {
		t.Fatalf("text got=%q", res.Text)
	}
	if res.Usage.InputTokens != 30 || res.Usage.OutputTokens != 40 {
		t.Fatalf("usage got=%+v", res.Usage)
	}

	req := srv.request(0)
	if req.Path != "/messages" {
		t.Fatalf("path got=%s want=/messages", req.Path)
	}
	if req.Headers.Get("x-api-key") != "sk-ant" {
		t.Fatalf("x-api-key got=%q", req.Headers.Get("x-api-key"))
	}
	if req.Headers.Get("anthropic-version") != AnthropicVersion {
		t.Fatalf("anthropic-version got=%q", req.Headers.Get("anthropic-version"))
	}
	if req.Headers.Get("Authorization") != "" {
		t.Fatal("claude must not send a bearer header")
	}
	pair := prompt.Build("Ember", "English", "class A {}")
	if req.Body["system"] != pair.System {
		t.Fatal("system prompt should travel in the system field")
	}
	if req.Body["max_tokens"] != float64(ClaudeMaxTokens) {
		t.Fatalf("max_tokens got=%v", req.Body["max_tokens"])
	}
	msgs, _ := req.Body["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages got=%d want=1", len(msgs))
	}
	if m := msgs[0].(map[string]any); m["role"] != "user" || m["content"] != pair.User {
		t.Fatalf("user message got=%v", m)
	}
}

func TestDispatch_MissingCredentialMakesNoCall(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `{}`)
	d := dispatcherFor(srv.URL)

	for _, p := range []Provider{Perplexity, OpenAI, Claude} {
		for _, key := range []string{"", "   "} {
			_, err := d.Dispatch(context.Background(), Request{SourceCode: "x", Provider: p, Credential: key})
			if !errors.Is(err, ErrMissingCredential) {
				t.Fatalf("%s: err got=%v want=ErrMissingCredential", p, err)
			}
			if Kind(err) != KindMissingCredential {
				t.Fatalf("kind got=%s", Kind(err))
			}
		}
	}
	if n := atomic.LoadInt32(&srv.hits); n != 0 {
		t.Fatalf("upstream hits got=%d want=0", n)
	}
}

func TestDispatch_UnsupportedProvider(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `{}`)
	d := dispatcherFor(srv.URL)

	for _, p := range []Provider{Demo, Provider("Gemini")} {
		_, err := d.Dispatch(context.Background(), Request{SourceCode: "x", Provider: p, Credential: "k"})
		if !errors.Is(err, ErrUnsupportedProvider) {
			t.Fatalf("%s: err got=%v want=ErrUnsupportedProvider", p, err)
		}
	}
	if atomic.LoadInt32(&srv.hits) != 0 {
		t.Fatal("unsupported providers must not reach the network")
	}
}

func TestDispatch_HTTPError(t *testing.T) {
	srv := newUpstream(t, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`)
	d := dispatcherFor(srv.URL)

	_, err := d.Dispatch(context.Background(), Request{SourceCode: "x", Provider: OpenAI, Credential: "bad"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err got=%v want=*HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized || httpErr.Provider != OpenAI {
		t.Fatalf("HTTPError got=%+v", httpErr)
	}
	if !strings.Contains(httpErr.Body, "bad key") {
		t.Fatalf("body got=%q", httpErr.Body)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("message should carry the status: %s", err)
	}
	if Kind(err) != KindHTTP {
		t.Fatalf("kind got=%s", Kind(err))
	}
}

func TestDispatch_ResponseShapeErrors(t *testing.T) {
	cases := []struct {
		name     string
		provider Provider
		reply    string
	}{
		{"openai no choices", OpenAI, `{"choices":[]}`},
		{"openai no content", OpenAI, `{"choices":[{"message":{}}]}`},
		{"perplexity empty object", Perplexity, `{}`},
		{"claude no content", Claude, `{"content":[]}`},
		{"claude no text", Claude, `{"content":[{"type":"tool_use"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newUpstream(t, http.StatusOK, tc.reply)
			d := dispatcherFor(srv.URL)
			_, err := d.Dispatch(context.Background(), Request{SourceCode: "x", Provider: tc.provider, Credential: "k"})
			var shapeErr *ResponseShapeError
			if !errors.As(err, &shapeErr) {
				t.Fatalf("err got=%v want=*ResponseShapeError", err)
			}
			if Kind(err) != KindResponseShape {
				t.Fatalf("kind got=%s", Kind(err))
			}
		})
	}
}

func TestDispatch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := dispatcherFor(url)
	_, err := d.Dispatch(context.Background(), Request{SourceCode: "x", Provider: Claude, Credential: "k"})
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err got=%v want=*NetworkError", err)
	}
	if Kind(err) != KindNetwork {
		t.Fatalf("kind got=%s", Kind(err))
	}
}

func TestDispatch_UndecodableBodyIsNetworkError(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `<html>gateway</html>`)
	d := dispatcherFor(srv.URL)
	_, err := d.Dispatch(context.Background(), Request{SourceCode: "x", Provider: OpenAI, Credential: "k"})
	if Kind(err) != KindNetwork {
		t.Fatalf("kind got=%s err=%v", Kind(err), err)
	}
}

func TestDispatch_CredentialNeverLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Replace(zap.New(core))
	t.Cleanup(func() { logger.Replace(zap.NewNop()) })

	srv := newUpstream(t, http.StatusInternalServerError, `{"error":"boom"}`)
	d := dispatcherFor(srv.URL)
	_, _ = d.Dispatch(context.Background(), Request{SourceCode: "x", Provider: OpenAI, Credential: "sk-secret-value"})

	for _, entry := range logs.All() {
		if strings.Contains(entry.Message, "sk-secret-value") {
			t.Fatalf("credential leaked in message: %s", entry.Message)
		}
		for k, v := range entry.ContextMap() {
			if strings.Contains(toString(v), "sk-secret-value") {
				t.Fatalf("credential leaked in field %s", k)
			}
		}
	}
	if logs.Len() == 0 {
		t.Fatal("expected the failure to be logged")
	}
}

func TestSpec_BaseURLOverrides(t *testing.T) {
	d := NewDispatcher(Config{OpenAIBaseURL: "http://localhost:9999/v1/"})
	s, ok := d.Spec(OpenAI)
	if !ok {
		t.Fatal("OpenAI spec missing")
	}
	if got := s.BuildRequest(prompt.Pair{}, "k").URL; got != "http://localhost:9999/v1/chat/completions" {
		t.Fatalf("url got=%s", got)
	}
	c, _ := d.Spec(Claude)
	if got := c.BuildRequest(prompt.Pair{}, "k").URL; got != "https://api.anthropic.com/v1/messages" {
		t.Fatalf("default claude url got=%s", got)
	}
	p, _ := d.Spec(Perplexity)
	if got := p.BuildRequest(prompt.Pair{}, "k").URL; got != "https://api.perplexity.ai/chat/completions" {
		t.Fatalf("default perplexity url got=%s", got)
	}
	if _, ok := d.Spec(Demo); ok {
		t.Fatal("Demo must not have a spec")
	}
}

func toString(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
