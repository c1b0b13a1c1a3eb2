package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML config file over the defaults. Fields absent
// from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, NewEngineError("config", "load", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, NewEngineError("config", "load", fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, NewEngineError("config", "load", err)
	}
	return cfg, nil
}
