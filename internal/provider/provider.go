// Package provider sends prompt pairs to hosted chat-completion APIs.
//
// Each provider is a Spec that knows how to shape the outbound request and how to
// unwrap the response envelope. Dispatcher looks specs up by Provider and performs the
// single HTTP call.
package provider

import (
	"strings"

	"github.com/ichi0g0y/legacy-code-converter/internal/prompt"
)

// Provider names a chat-completion service, or the offline Demo stand-in.
type Provider string

const (
	Demo       Provider = "Demo"
	Perplexity Provider = "Perplexity"
	OpenAI     Provider = "OpenAI"
	Claude     Provider = "Claude"
)

// All lists providers in the order the UI offers them.
var All = []Provider{Demo, Perplexity, OpenAI, Claude}

// Parse resolves a provider name case-insensitively. Unknown names are returned
// trimmed with ok=false so they can still be reported back to the caller.
func Parse(name string) (Provider, bool) {
	trimmed := strings.TrimSpace(name)
	for _, p := range All {
		if strings.EqualFold(trimmed, string(p)) {
			return p, true
		}
	}
	return Provider(trimmed), false
}

func (p Provider) String() string { return string(p) }

// IsLive reports whether p calls a remote API and therefore needs a credential.
func (p Provider) IsLive() bool { return p != Demo }

// Request is one conversion as submitted by the user.
type Request struct {
	SourceCode   string
	FromLanguage string
	ToLanguage   string
	Credential   string
	Provider     Provider
}

// HTTPRequest is the provider-specific shape of the outbound call.
type HTTPRequest struct {
	URL     string
	Headers map[string]string
	Body    any
}

// Usage is token accounting reported by the provider, zero when absent.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Completion is the unwrapped provider response.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Spec describes one provider's transport details.
type Spec interface {
	Provider() Provider
	Model() string
	BuildRequest(p prompt.Pair, credential string) HTTPRequest
	ParseResponse(body []byte) (Completion, error)
}
