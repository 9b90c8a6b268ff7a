package kata

import (
	"fmt"

	"go.uber.org/zap"
)

// SettingDef describes a backend setting.
type SettingDef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
}

// BackendDef describes an available backend type.
type BackendDef struct {
	ID       string                                                                `json:"id"`
	Name     string                                                                `json:"name"`
	Settings []SettingDef                                                          `json:"settings"`
	Build    func(settings map[string]string, logger *zap.Logger) (Backend, error) `json:"-"`
}

var registry []BackendDef

// Register adds a backend definition to the registry.
// Called from init() in backend implementation files.
func Register(b BackendDef) {
	registry = append(registry, b)
}

// Backends returns all registered backend definitions.
func Backends() []BackendDef {
	return registry
}

// Build creates a Backend from a backend ID and settings. Unset settings
// take their declared default; the caller's map is not modified.
func Build(id string, settings map[string]string, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, b := range registry {
		if b.ID != id {
			continue
		}
		resolved := make(map[string]string, len(settings)+len(b.Settings))
		for k, v := range settings {
			resolved[k] = v
		}
		for _, s := range b.Settings {
			if resolved[s.ID] == "" && s.Default != "" {
				resolved[s.ID] = s.Default
			}
			if s.Required && resolved[s.ID] == "" {
				return nil, fmt.Errorf("%s is required", s.Name)
			}
		}
		return b.Build(resolved, logger.With(zap.String("backend", id)))
	}
	return nil, fmt.Errorf("unknown backend: %s", id)
}
