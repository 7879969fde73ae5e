package webserver

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/converter"
	"github.com/ichi0g0y/legacy-code-converter/internal/env"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
	"github.com/ichi0g0y/legacy-code-converter/internal/version"
)

//go:embed ui/index.html
var uiAssets embed.FS

var (
	httpServer        *http.Server
	conversionService *converter.Service
	startedAt         = time.Now()
)

// corsMiddleware adds CORS headers to HTTP handlers
func corsMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler(w, r)
	}
}

// NewMux registers every route against svc.
func NewMux(svc *converter.Service) *http.ServeMux {
	conversionService = svc

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleIndex)
	mux.HandleFunc("/status", corsMiddleware(handleStatus))

	mux.HandleFunc("/api/options", corsMiddleware(handleOptions))
	mux.HandleFunc("/api/samples/ember", corsMiddleware(handleEmberSample))
	mux.HandleFunc("/api/convert", corsMiddleware(handleConvert))
	mux.HandleFunc("/api/export", corsMiddleware(handleExport))
	mux.HandleFunc("/api/history", corsMiddleware(handleHistory))
	mux.HandleFunc("/api/usage", corsMiddleware(handleUsage))
	mux.HandleFunc("/api/usage/reset", corsMiddleware(handleUsageReset))
	mux.HandleFunc("/api/settings", corsMiddleware(handleSettings))
	mux.HandleFunc("/api/share/qrcode", corsMiddleware(handleShareQRCode))

	mux.HandleFunc("/api/logs", corsMiddleware(handleLogs))
	mux.HandleFunc("/api/logs/download", corsMiddleware(handleLogsDownload))
	mux.HandleFunc("/api/logs/stream", handleLogsStream) // WebSocket upgrade handles its own headers
	mux.HandleFunc("/api/logs/clear", corsMiddleware(handleLogsClear))

	RegisterWebSocketRoute(mux)

	return mux
}

func StartWebServer(port int, svc *converter.Service) error {
	addr := fmt.Sprintf(":%d", port)
	mux := NewMux(svc)

	fmt.Println("")
	fmt.Println("====================================================")
	fmt.Printf("Legacy Code Converter %s\n", version.String())
	fmt.Printf("   WebUI: http://localhost:%d/\n", port)
	fmt.Printf("   Change the port with SERVER_PORT\n")
	fmt.Println("====================================================")
	fmt.Println("")

	logger.Info("Starting web server", zap.String("address", addr))

	// Provider calls may take up to the upstream timeout, so writes get a margin on top.
	httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		WriteTimeout: env.Value.UpstreamTimeout + 15*time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine and wait briefly to check for immediate errors
	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Failed to start web server", zap.Error(err))
			return fmt.Errorf("failed to start web server on port %d: %w", port, err)
		}
	case <-time.After(100 * time.Millisecond):
	}

	return nil
}

// Shutdown gracefully shuts down the web server
func Shutdown() {
	if httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown web server gracefully", zap.Error(err))
	} else {
		logger.Info("Web server shutdown complete")
	}
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := uiAssets.ReadFile("ui/index.html")
	if err != nil {
		logger.Error("Embedded UI missing", zap.Error(err))
		http.Error(w, "UI not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]interface{}{
		"version":         version.String(),
		"uptime_seconds":  int64(time.Since(startedAt).Seconds()),
		"history_enabled": env.Value.HistoryEnabled,
		"ws_clients":      wsHub.clientCount(),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Kind: kind})
}
