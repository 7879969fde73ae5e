package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/prompt"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
	"github.com/ichi0g0y/legacy-code-converter/internal/version"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 120 * time.Second

// Config overrides endpoints and the request timeout. Empty base URLs use the
// public API hosts.
type Config struct {
	Timeout           time.Duration
	PerplexityBaseURL string
	OpenAIBaseURL     string
	ClaudeBaseURL     string
}

// Result is a successful dispatch.
type Result struct {
	Text     string
	Provider Provider
	Model    string
	Usage    Usage
	Took     time.Duration
}

// Dispatcher owns the HTTP client and the provider table.
type Dispatcher struct {
	http  *resty.Client
	specs map[Provider]Spec
}

// NewDispatcher builds the table of live providers. Demo is never in the table.
func NewDispatcher(cfg Config) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", version.UserAgent())

	specs := []Spec{
		newPerplexitySpec(cfg.PerplexityBaseURL),
		newOpenAISpec(cfg.OpenAIBaseURL),
		newClaudeSpec(cfg.ClaudeBaseURL),
	}
	d := &Dispatcher{http: c, specs: make(map[Provider]Spec, len(specs))}
	for _, s := range specs {
		d.specs[s.Provider()] = s
	}
	return d
}

// Spec returns the transport description for p.
func (d *Dispatcher) Spec(p Provider) (Spec, bool) {
	s, ok := d.specs[p]
	return s, ok
}

// Dispatch builds the prompt pair, sends one request and unwraps the reply text.
// The credential check runs first so a missing key never reaches the network.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return Result{}, fmt.Errorf("%w: %s API key is required", ErrMissingCredential, req.Provider)
	}
	spec, ok := d.specs[req.Provider]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, req.Provider)
	}

	pair := prompt.Build(req.FromLanguage, req.ToLanguage, req.SourceCode)
	httpReq := spec.BuildRequest(pair, strings.TrimSpace(req.Credential))

	start := time.Now()
	resp, err := d.http.R().
		SetContext(ctx).
		SetHeaders(httpReq.Headers).
		SetHeader("Content-Type", "application/json").
		SetBody(httpReq.Body).
		Post(httpReq.URL)
	took := time.Since(start)
	if err != nil {
		logger.Warn("Provider request failed",
			zap.String("provider", string(req.Provider)),
			zap.Duration("took", took),
			zap.Error(err))
		return Result{}, &NetworkError{Provider: req.Provider, Err: err}
	}
	if !resp.IsSuccess() {
		logger.Warn("Provider returned error status",
			zap.String("provider", string(req.Provider)),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("took", took))
		return Result{}, &HTTPError{Provider: req.Provider, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	completion, err := spec.ParseResponse(resp.Body())
	if err != nil {
		return Result{}, err
	}

	logger.Debug("Provider request completed",
		zap.String("provider", string(req.Provider)),
		zap.String("model", completion.Model),
		zap.Int("input_tokens", completion.Usage.InputTokens),
		zap.Int("output_tokens", completion.Usage.OutputTokens),
		zap.Duration("took", took))

	return Result{
		Text:     completion.Text,
		Provider: req.Provider,
		Model:    completion.Model,
		Usage:    completion.Usage,
		Took:     took,
	}, nil
}
