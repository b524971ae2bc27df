package services

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
	"github.com/conceptlens/conceptlens-backend/internal/logger"
)

// LoadInterventionTemplates reads recommendation phrasing overrides from the
// YAML file named by INTERVENTION_TEMPLATES_PATH. Missing file or unset env
// falls back to the built-in templates; a malformed file is a warning, not a
// startup failure.
func LoadInterventionTemplates(log *logger.Logger) engine.InterventionTemplates {
	defaults := engine.DefaultInterventionTemplates()

	path := os.Getenv("INTERVENTION_TEMPLATES_PATH")
	if path == "" {
		return defaults
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Failed to read intervention templates, using defaults", "path", path, "error", err)
		return defaults
	}
	var tmpl engine.InterventionTemplates
	if err := yaml.Unmarshal(raw, &tmpl); err != nil {
		log.Warn("Failed to parse intervention templates, using defaults", "path", path, "error", err)
		return defaults
	}
	if tmpl.Rationale == "" {
		tmpl.Rationale = defaults.Rationale
	}
	if tmpl.FormatFew == "" {
		tmpl.FormatFew = defaults.FormatFew
	}
	if tmpl.FormatSome == "" {
		tmpl.FormatSome = defaults.FormatSome
	}
	if tmpl.FormatMany == "" {
		tmpl.FormatMany = defaults.FormatMany
	}
	return tmpl
}
