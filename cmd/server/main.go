package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/converter"
	"github.com/ichi0g0y/legacy-code-converter/internal/demo"
	"github.com/ichi0g0y/legacy-code-converter/internal/env"
	"github.com/ichi0g0y/legacy-code-converter/internal/localdb"
	"github.com/ichi0g0y/legacy-code-converter/internal/provider"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/paths"
	"github.com/ichi0g0y/legacy-code-converter/internal/version"
	"github.com/ichi0g0y/legacy-code-converter/internal/webserver"
)

func main() {
	logger.Init(false)
	defer logger.Sync()

	// env.LoadEnv must run before the data directory is resolved.
	env.LoadEnv()
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Info("Debug mode enabled")
	}

	logger.Info("Starting legacy-code-converter", zap.String("version", version.String()))

	if env.Value.DataDir != "" {
		paths.SetDataDir(env.Value.DataDir)
	}
	if err := paths.EnsureDataDirs(); err != nil {
		logger.Fatal("Failed to ensure data directories", zap.Error(err))
	}

	if _, err := localdb.SetupDB(paths.GetDBPath()); err != nil {
		logger.Fatal("Failed to setup database", zap.Error(err))
	}
	migrateStoredSettings()
	logUsageSummary()

	dispatcher := provider.NewDispatcher(provider.Config{
		Timeout:           env.Value.UpstreamTimeout,
		PerplexityBaseURL: env.Value.PerplexityBaseURL,
		OpenAIBaseURL:     env.Value.OpenAIBaseURL,
		ClaudeBaseURL:     env.Value.ClaudeBaseURL,
	})

	svc := converter.NewService(converter.Options{
		Dispatcher:     dispatcher,
		Demo:           demo.NewResponder(env.Value.DemoDelay),
		Events:         webserver.Events(),
		HistoryEnabled: env.Value.HistoryEnabled,
	})

	port := env.Value.ServerPort
	if err := webserver.StartWebServer(port, svc); err != nil {
		logger.Fatal("Failed to start web server", zap.Error(err))
	}

	logger.Info("Server started",
		zap.Int("port", port),
		zap.String("webui", fmt.Sprintf("http://localhost:%d/", port)),
		zap.String("data_dir", paths.GetDataDir()),
		zap.Bool("history", env.Value.HistoryEnabled))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	webserver.Shutdown()
	if err := localdb.Close(); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
