package webserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/converter"
	"github.com/ichi0g0y/legacy-code-converter/internal/provider"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

const maxConvertBodyBytes = 2 << 20

// Error kinds added on top of provider.Kind.
const (
	kindInvalidRequest = "invalid_request"
	kindEmptySource    = "empty_source"
	kindInProgress     = "in_progress"
)

type convertRequest struct {
	Code         string `json:"code"`
	FromLanguage string `json:"from_language"`
	ToLanguage   string `json:"to_language"`
	Provider     string `json:"provider"`
	APIKey       string `json:"api_key"`
	ClientID     string `json:"client_id"`
}

type convertResponse struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	IsDocument       bool   `json:"is_document"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	TookMs           int64  `json:"took_ms"`
	InputTokens      int    `json:"input_tokens,omitempty"`
	OutputTokens     int    `json:"output_tokens,omitempty"`
	DocumentLanguage string `json:"document_language,omitempty"`
}

func handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if conversionService == nil {
		writeError(w, http.StatusServiceUnavailable, provider.KindUnknown, "converter not initialized")
		return
	}

	var req convertRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxConvertBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.FromLanguage) == "" || strings.TrimSpace(req.ToLanguage) == "" {
		writeError(w, http.StatusBadRequest, kindInvalidRequest, "from_language and to_language are required")
		return
	}

	out, err := conversionService.Convert(r.Context(), converter.Request{
		ClientID:     req.ClientID,
		SourceCode:   req.Code,
		FromLanguage: req.FromLanguage,
		ToLanguage:   req.ToLanguage,
		Provider:     req.Provider,
		Credential:   req.APIKey,
	})
	if err != nil {
		status, kind := classifyConvertError(err)
		logger.Warn("Convert request failed",
			zap.String("provider", req.Provider),
			zap.String("kind", kind),
			zap.Int("status", status),
			zap.Error(err))
		writeError(w, status, kind, err.Error())
		return
	}

	writeJSON(w, convertResponse{
		ID:               out.ID,
		Text:             out.Text,
		IsDocument:       out.IsDocument,
		Provider:         string(out.Provider),
		Model:            out.Model,
		TookMs:           out.Took.Milliseconds(),
		InputTokens:      out.Usage.InputTokens,
		OutputTokens:     out.Usage.OutputTokens,
		DocumentLanguage: out.DocumentLanguage,
	})
}

// classifyConvertError maps a conversion failure to an HTTP status and error kind.
func classifyConvertError(err error) (int, string) {
	switch {
	case errors.Is(err, converter.ErrEmptySource):
		return http.StatusBadRequest, kindEmptySource
	case errors.Is(err, converter.ErrConversionInProgress):
		return http.StatusConflict, kindInProgress
	}

	kind := provider.Kind(err)
	switch kind {
	case provider.KindMissingCredential, provider.KindUnsupportedProvider:
		return http.StatusBadRequest, kind
	case provider.KindHTTP, provider.KindResponseShape, provider.KindNetwork:
		return http.StatusBadGateway, kind
	default:
		return http.StatusInternalServerError, kind
	}
}
