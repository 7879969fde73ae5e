// Package usage accumulates provider token counts and an estimated USD cost.
package usage

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ichi0g0y/legacy-code-converter/internal/localdb"
	"github.com/ichi0g0y/legacy-code-converter/internal/shared/logger"
)

type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var usageMutex sync.Mutex

var modelPricingTable = map[string]modelPricing{
	"gpt-4.1":                           {InputPerMillion: 2.00, OutputPerMillion: 8.00},
	"gpt-4.1-mini":                      {InputPerMillion: 0.40, OutputPerMillion: 1.60},
	"gpt-4o":                            {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"claude-opus-4":                     {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-sonnet-4":                   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"llama-3.1-sonar-large-128k-online": {InputPerMillion: 1.00, OutputPerMillion: 1.00},
}

// Record adds one call's tokens to the provider total. The returned cost is zero
// with ok=false when the model has no known price.
func Record(provider, model string, inputTokens, outputTokens int) (float64, bool, error) {
	if inputTokens <= 0 && outputTokens <= 0 {
		return 0, false, nil
	}

	usageMutex.Lock()
	defer usageMutex.Unlock()

	if localdb.GetDB() == nil {
		return 0, false, nil
	}

	cost, ok := EstimateCostUSD(model, inputTokens, outputTokens)
	if err := localdb.AddProviderUsage(provider, maxInt(inputTokens, 0), maxInt(outputTokens, 0), cost); err != nil {
		return 0, false, err
	}
	if !ok {
		logger.Debug("No pricing for model", zap.String("model", model))
	}
	return cost, ok, nil
}

// EstimateCostUSD prices a call from the per-million token table.
func EstimateCostUSD(model string, inputTokens, outputTokens int) (float64, bool) {
	if inputTokens <= 0 && outputTokens <= 0 {
		return 0, false
	}
	pricing, ok := modelPricingTable[normalizeModelName(model)]
	if !ok {
		return 0, false
	}
	cost := (float64(inputTokens)/1_000_000.0)*pricing.InputPerMillion +
		(float64(outputTokens)/1_000_000.0)*pricing.OutputPerMillion
	return cost, true
}

// normalizeModelName strips dated suffixes such as "gpt-4.1-2025-04-14" to the
// longest priced prefix.
func normalizeModelName(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	best := ""
	for key := range modelPricingTable {
		if model == key {
			return key
		}
		if strings.HasPrefix(model, key+"-") && len(key) > len(best) {
			best = key
		}
	}
	if best != "" {
		return best
	}
	return model
}

func maxInt(value, fallback int) int {
	if value < fallback {
		return fallback
	}
	return value
}
