// Package converter runs one user conversion end to end: validation, Demo or live
// provider routing, history and usage bookkeeping, and progress events.
package converter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/localdb"
	"github.com/ichi0g0y/legacy-code-converter/internal/prompt"
	"github.com/ichi0g0y/legacy-code-converter/internal/provider"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
	"github.com/ichi0g0y/legacy-code-converter/internal/usage"
)

var (
	ErrEmptySource          = errors.New("source code is empty")
	ErrConversionInProgress = errors.New("a conversion is already in progress for this client")
)

// Event types published while a conversion runs.
const (
	EventConversionStarted  = "conversion_started"
	EventConversionFinished = "conversion_finished"
	EventConversionFailed   = "conversion_failed"
)

// DemoModel is reported as the model of Demo conversions.
const DemoModel = "demo"

// Dispatcher sends a live conversion to a provider.
type Dispatcher interface {
	Dispatch(ctx context.Context, req provider.Request) (provider.Result, error)
}

// DemoResponder produces offline output.
type DemoResponder interface {
	Convert(ctx context.Context, sourceCode, fromLanguage, toLanguage string) string
}

// EventPublisher fans events out to connected browsers.
type EventPublisher interface {
	Publish(eventType string, data interface{})
}

// Request is one conversion as received from the UI. ClientID scopes the
// one-at-a-time rule; an empty ClientID is not serialized.
type Request struct {
	ClientID     string
	SourceCode   string
	FromLanguage string
	ToLanguage   string
	Provider     string
	Credential   string
}

// Outcome is a successful conversion.
type Outcome struct {
	ID               string
	Text             string
	IsDocument       bool
	Provider         provider.Provider
	Model            string
	Usage            provider.Usage
	Took             time.Duration
	DocumentLanguage string
}

type Options struct {
	Dispatcher     Dispatcher
	Demo           DemoResponder
	Events         EventPublisher
	HistoryEnabled bool
}

type Service struct {
	dispatcher Dispatcher
	demo       DemoResponder
	events     EventPublisher
	history    bool

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(opts Options) *Service {
	return &Service{
		dispatcher: opts.Dispatcher,
		demo:       opts.Demo,
		events:     opts.Events,
		history:    opts.HistoryEnabled,
		inFlight:   make(map[string]struct{}),
	}
}

// Convert runs req and returns the provider or Demo output. On failure no output
// is produced; the error is one of the provider errors, ErrEmptySource or
// ErrConversionInProgress.
func (s *Service) Convert(ctx context.Context, req Request) (Outcome, error) {
	if strings.TrimSpace(req.SourceCode) == "" {
		return Outcome{}, ErrEmptySource
	}

	release, ok := s.acquire(req.ClientID)
	if !ok {
		return Outcome{}, ErrConversionInProgress
	}
	defer release()

	id, err := gonanoid.New()
	if err != nil {
		return Outcome{}, err
	}

	p, _ := provider.Parse(req.Provider)
	isDocument := prompt.IsDocumentTarget(req.ToLanguage)

	s.publish(EventConversionStarted, map[string]interface{}{
		"id":            id,
		"client_id":     req.ClientID,
		"provider":      p,
		"from_language": req.FromLanguage,
		"to_language":   req.ToLanguage,
	})

	logger.Info("Conversion started",
		zap.String("id", id),
		zap.String("provider", string(p)),
		zap.String("from", req.FromLanguage),
		zap.String("to", req.ToLanguage),
		zap.Int("input_chars", utf8.RuneCountInString(req.SourceCode)))

	start := time.Now()
	out := Outcome{ID: id, IsDocument: isDocument, Provider: p}

	if p == provider.Demo {
		out.Text = s.demo.Convert(ctx, req.SourceCode, req.FromLanguage, req.ToLanguage)
		out.Model = DemoModel
	} else {
		res, err := s.dispatcher.Dispatch(ctx, provider.Request{
			SourceCode:   req.SourceCode,
			FromLanguage: req.FromLanguage,
			ToLanguage:   req.ToLanguage,
			Credential:   req.Credential,
			Provider:     p,
		})
		if err != nil {
			took := time.Since(start)
			kind := provider.Kind(err)
			logger.Error("Conversion failed",
				zap.String("id", id),
				zap.String("provider", string(p)),
				zap.String("kind", kind),
				zap.Duration("took", took),
				zap.Error(err))
			s.recordHistory(id, req, p, "", isDocument, 0, localdb.ConversionFailed, kind, took)
			s.publish(EventConversionFailed, map[string]interface{}{
				"id":        id,
				"client_id": req.ClientID,
				"provider":  p,
				"kind":      kind,
				"error":     err.Error(),
			})
			return Outcome{}, err
		}
		out.Text = res.Text
		out.Model = res.Model
		out.Usage = res.Usage
		if _, _, err := usage.Record(string(p), res.Model, res.Usage.InputTokens, res.Usage.OutputTokens); err != nil {
			logger.Warn("Failed to record usage", zap.String("id", id), zap.Error(err))
		}
	}
	out.Took = time.Since(start)

	if isDocument {
		out.DocumentLanguage = DetectDocumentLanguage(out.Text)
		if out.DocumentLanguage != "eng" && out.DocumentLanguage != "und" {
			logger.Warn("Migration document does not look English",
				zap.String("id", id),
				zap.String("language", out.DocumentLanguage))
		}
	}

	outputChars := utf8.RuneCountInString(out.Text)
	s.recordHistory(id, req, p, out.Model, isDocument, outputChars, localdb.ConversionSucceeded, "", out.Took)
	s.publish(EventConversionFinished, map[string]interface{}{
		"id":           id,
		"client_id":    req.ClientID,
		"provider":     p,
		"is_document":  isDocument,
		"output_chars": outputChars,
		"took_ms":      out.Took.Milliseconds(),
	})

	logger.Info("Conversion finished",
		zap.String("id", id),
		zap.String("provider", string(p)),
		zap.String("model", out.Model),
		zap.Int("output_chars", outputChars),
		zap.Duration("took", out.Took))

	return out, nil
}

// InFlight reports whether clientID has a conversion running.
func (s *Service) InFlight(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[clientID]
	return ok
}

func (s *Service) acquire(clientID string) (func(), bool) {
	if clientID == "" {
		return func() {}, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[clientID]; busy {
		return nil, false
	}
	s.inFlight[clientID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inFlight, clientID)
		s.mu.Unlock()
	}, true
}

func (s *Service) publish(eventType string, data interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventType, data)
}

func (s *Service) recordHistory(id string, req Request, p provider.Provider, model string, isDocument bool, outputChars int, status, errorKind string, took time.Duration) {
	if !s.history || localdb.GetDB() == nil {
		return
	}
	err := localdb.AddConversion(localdb.ConversionRow{
		ID:           id,
		Provider:     string(p),
		Model:        model,
		FromLanguage: req.FromLanguage,
		ToLanguage:   req.ToLanguage,
		IsDocument:   isDocument,
		InputChars:   utf8.RuneCountInString(req.SourceCode),
		OutputChars:  outputChars,
		Status:       status,
		ErrorKind:    errorKind,
		DurationMs:   took.Milliseconds(),
	})
	if err != nil {
		logger.Warn("Failed to record conversion history", zap.String("id", id), zap.Error(err))
	}
}
