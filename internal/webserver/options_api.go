package webserver

import (
	"net/http"

	"github.com/ichi0g0y/legacy-code-converter/internal/localdb"
	"github.com/ichi0g0y/legacy-code-converter/internal/provider"
	"github.com/ichi0g0y/legacy-code-converter/internal/samples"
	"github.com/ichi0g0y/legacy-code-converter/internal/settings"
)

type optionDefaults struct {
	Provider     string `json:"provider"`
	FromLanguage string `json:"from_language"`
	ToLanguage   string `json:"to_language"`
	LoadSample   bool   `json:"load_sample"`
}

type optionsResponse struct {
	TargetStacks    []string       `json:"target_stacks"`
	SourceLanguages []string       `json:"source_languages"`
	Providers       []string       `json:"providers"`
	Defaults        optionDefaults `json:"defaults"`
}

func handleOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	providers := make([]string, 0, len(provider.All))
	for _, p := range provider.All {
		providers = append(providers, string(p))
	}

	writeJSON(w, optionsResponse{
		TargetStacks:    samples.TargetStacks,
		SourceLanguages: samples.SourceLanguages,
		Providers:       providers,
		Defaults:        currentDefaults(),
	})
}

// currentDefaults reads stored preferences, falling back to built-in defaults
// when the database is not open.
func currentDefaults() optionDefaults {
	read := func(key string) string { return settings.DefaultSettings[key].Value }
	if db := localdb.GetDB(); db != nil {
		manager := settings.NewSettingsManager(db)
		read = func(key string) string {
			value, err := manager.GetSetting(key)
			if err != nil {
				return settings.DefaultSettings[key].Value
			}
			return value
		}
	}
	return optionDefaults{
		Provider:     read(settings.KeyDefaultProvider),
		FromLanguage: read(settings.KeyDefaultFromLanguage),
		ToLanguage:   read(settings.KeyDefaultTargetStack),
		LoadSample:   read(settings.KeyLoadSampleOnStart) == "true",
	}
}

func handleEmberSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{
		"language": samples.DefaultSourceLanguage,
		"code":     samples.EmberUserPosts,
	})
}
