// Command test-server is a local stand-in for the provider APIs. Point
// PERPLEXITY_BASE_URL, OPENAI_BASE_URL and CLAUDE_BASE_URL at it to exercise the
// live conversion path without real credentials.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

type incomingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type incomingRequest struct {
	Model    string            `json:"model"`
	System   string            `json:"system"`
	Messages []incomingMessage `json:"messages"`
}

func main() {
	logger.Init(true)
	defer logger.Sync()

	port := 8090
	if portStr := os.Getenv("TEST_SERVER_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", handleChatCompletions)
	mux.HandleFunc("/messages", handleMessages)

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting provider test server", zap.String("address", addr))

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Test server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Test server stopped")
}

func readRequest(w http.ResponseWriter, r *http.Request) (incomingRequest, bool) {
	var req incomingRequest
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// reply echoes the user prompt so the round trip is visible in the UI.
func reply(req incomingRequest) string {
	var user string
	for _, m := range req.Messages {
		if m.Role == "user" {
			user = m.Content
		}
	}
	return fmt.Sprintf("// test-server reply for model %s\n// %d prompt characters received\n%s",
		req.Model, len(user), strings.TrimSpace(user))
}

// handleChatCompletions answers in the OpenAI/Perplexity shape.
func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
		return
	}
	req, ok := readRequest(w, r)
	if !ok {
		return
	}
	logger.Info("chat/completions request", zap.String("model", req.Model), zap.Int("messages", len(req.Messages)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"model": req.Model,
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": reply(req)}},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 20},
	})
}

// handleMessages answers in the Anthropic Messages shape.
func handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-api-key") == "" || r.Header.Get("anthropic-version") == "" {
		http.Error(w, `{"error":"missing x-api-key or anthropic-version"}`, http.StatusUnauthorized)
		return
	}
	req, ok := readRequest(w, r)
	if !ok {
		return
	}
	logger.Info("messages request", zap.String("model", req.Model), zap.Bool("has_system", req.System != ""))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"model":   req.Model,
		"content": []map[string]string{{"type": "text", "text": reply(req)}},
		"usage":   map[string]int{"input_tokens": 10, "output_tokens": 20},
	})
}
