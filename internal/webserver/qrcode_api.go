package webserver

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// handleShareQRCode renders the WebUI address as a PNG so it can be opened from
// another device. ?url= overrides the address derived from the request host.
func handleShareQRCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		target = "http://" + r.Host + "/"
	}
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, kindInvalidRequest, "url must be an absolute http(s) URL")
		return
	}

	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			writeError(w, http.StatusBadRequest, kindInvalidRequest, "size must be between 128 and 1024")
			return
		}
		size = n
	}

	png, err := qrcode.Encode(parsed.String(), qrcode.Medium, size)
	if err != nil {
		logger.Error("Failed to encode QR code", zap.Error(err))
		http.Error(w, "Failed to encode QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
