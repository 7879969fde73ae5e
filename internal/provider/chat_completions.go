package provider

import (
	"encoding/json"
	"strings"

	"github.com/ichi0g0y/legacy-code-converter/internal/prompt"
)

const (
	DefaultPerplexityBaseURL = "https://api.perplexity.ai"
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"

	PerplexityModel = "llama-3.1-sonar-large-128k-online"
	OpenAIModel     = "gpt-4.1-2025-04-14"

	chatCompletionsPath = "/chat/completions"
	defaultTemperature  = 0.1
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// chatCompletionsSpec covers the OpenAI-shaped APIs: bearer auth, messages[] body,
// text at choices[0].message.content.
type chatCompletionsSpec struct {
	provider Provider
	endpoint string
	model    string
}

func newPerplexitySpec(baseURL string) *chatCompletionsSpec {
	return &chatCompletionsSpec{
		provider: Perplexity,
		endpoint: joinURL(baseURL, DefaultPerplexityBaseURL, chatCompletionsPath),
		model:    PerplexityModel,
	}
}

func newOpenAISpec(baseURL string) *chatCompletionsSpec {
	return &chatCompletionsSpec{
		provider: OpenAI,
		endpoint: joinURL(baseURL, DefaultOpenAIBaseURL, chatCompletionsPath),
		model:    OpenAIModel,
	}
}

func (s *chatCompletionsSpec) Provider() Provider { return s.provider }
func (s *chatCompletionsSpec) Model() string      { return s.model }

func (s *chatCompletionsSpec) BuildRequest(p prompt.Pair, credential string) HTTPRequest {
	return HTTPRequest{
		URL: s.endpoint,
		Headers: map[string]string{
			"Authorization": "Bearer " + credential,
		},
		Body: chatCompletionRequest{
			Model: s.model,
			Messages: []chatMessage{
				{Role: "system", Content: p.System},
				{Role: "user", Content: p.User},
			},
			Temperature: defaultTemperature,
		},
	}
}

func (s *chatCompletionsSpec) ParseResponse(body []byte) (Completion, error) {
	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Completion{}, &NetworkError{Provider: s.provider, Err: err}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return Completion{}, &ResponseShapeError{Provider: s.provider, Path: "choices[0].message.content"}
	}

	c := Completion{Text: *parsed.Choices[0].Message.Content, Model: parsed.Model}
	if c.Model == "" {
		c.Model = s.model
	}
	if parsed.Usage != nil {
		c.Usage = Usage{InputTokens: parsed.Usage.PromptTokens, OutputTokens: parsed.Usage.CompletionTokens}
	}
	return c, nil
}

// joinURL appends path to baseURL, falling back to def when baseURL is empty.
func joinURL(baseURL, def, path string) string {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = def
	}
	return strings.TrimRight(base, "/") + path
}
