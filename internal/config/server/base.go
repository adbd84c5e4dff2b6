package server

import (
	"fmt"

	"github.com/spf13/viper"
)

type BaseServerConfig struct {
	Log      LogServerConfig      `mapstructure:"log"      yaml:"log"`
	Storage  StorageServerConfig  `mapstructure:"storage"  yaml:"storage"`
	Metadata MetadataServerConfig `mapstructure:"metadata" yaml:"metadata"`
	Cache    CacheServerConfig    `mapstructure:"cache"    yaml:"cache"`
	Retry    RetryServerConfig    `mapstructure:"retry"    yaml:"retry"`
	Browser  BrowserServerConfig  `mapstructure:"browser"  yaml:"browser"`
	Agent    AgentServerConfig    `mapstructure:"agent"    yaml:"agent"`
}

func LoadServerConfig() (*BaseServerConfig, error) {
	cfg := &BaseServerConfig{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks settings that cannot be repaired by defaults.
func (c *BaseServerConfig) Validate() error {
	switch c.Storage.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown storage type '%s' (expected 'local' or 's3')", c.Storage.Type)
	}

	switch c.Metadata.Type {
	case "sqlite", "none":
	default:
		return fmt.Errorf("unknown metadata type '%s' (expected 'sqlite' or 'none')", c.Metadata.Type)
	}

	switch c.Browser.Role {
	case "therapist", "researcher", "admin":
	default:
		return fmt.Errorf("unknown browser role '%s'", c.Browser.Role)
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}

	if c.Browser.SizeThresholds.Medium < c.Browser.SizeThresholds.Small {
		return fmt.Errorf("browser.size_thresholds.medium must not be below small")
	}

	return nil
}
