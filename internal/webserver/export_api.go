package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/export"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

type exportRequest struct {
	Kind       string `json:"kind"`
	Content    string `json:"content"`
	ToLanguage string `json:"to_language"`
}

func handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req exportRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxConvertBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidRequest, "invalid request body")
		return
	}

	artifact, err := export.Build(export.Kind(req.Kind), req.Content, req.ToLanguage)
	if err != nil {
		kind := kindInvalidRequest
		if errors.Is(err, export.ErrNoContent) {
			kind = "no_content"
		}
		writeError(w, http.StatusBadRequest, kind, err.Error())
		return
	}

	logger.Debug("Export generated",
		zap.String("kind", req.Kind),
		zap.String("file", artifact.FileName),
		zap.Int("bytes", len(artifact.Content)))

	w.Header().Set("Content-Type", artifact.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	_, _ = w.Write([]byte(artifact.Content))
}
