package system

import "github.com/veesix-networks/osvswitch/pkg/logger"

type LoggingConfig struct {
	Format     string            `json:"format,omitempty" yaml:"format,omitempty"`
	Level      string            `json:"level,omitempty" yaml:"level,omitempty"`
	Components map[string]string `json:"components,omitempty" yaml:"components,omitempty"`
}

// ComponentLevels converts the per-component overrides for logger.Configure.
func (c LoggingConfig) ComponentLevels() map[string]logger.LogLevel {
	out := make(map[string]logger.LogLevel, len(c.Components))
	for name, level := range c.Components {
		out[name] = logger.LogLevel(level)
	}
	return out
}
