package server

import "time"

type CacheServerConfig struct {
	TTL          string `mapstructure:"ttl"           yaml:"ttl"`
	FetchTimeout string `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

type RetryServerConfig struct {
	Timeout    string  `mapstructure:"timeout"     yaml:"timeout"`
	MaxRetries int     `mapstructure:"max_retries" yaml:"max_retries"`
	Backoff    string  `mapstructure:"backoff"     yaml:"backoff"`
	MaxBackoff string  `mapstructure:"max_backoff" yaml:"max_backoff"`
	Multiplier float64 `mapstructure:"multiplier"  yaml:"multiplier"`
}

type BrowserServerConfig struct {
	Role               string                `mapstructure:"role"                 yaml:"role"`
	PageSize           int                   `mapstructure:"page_size"            yaml:"page_size"`
	NotesEnabled       bool                  `mapstructure:"notes_enabled"        yaml:"notes_enabled"`
	NotesBucket        string                `mapstructure:"notes_bucket"         yaml:"notes_bucket"`
	PatientCodePattern string                `mapstructure:"patient_code_pattern" yaml:"patient_code_pattern"`
	SizeThresholds     BrowserSizeThresholds `mapstructure:"size_thresholds"      yaml:"size_thresholds"`
}

// BrowserSizeThresholds are inclusive upper bounds in bytes
type BrowserSizeThresholds struct {
	Small  int64 `mapstructure:"small"  yaml:"small"`
	Medium int64 `mapstructure:"medium" yaml:"medium"`
}

type AgentServerConfig struct {
	RefreshInterval string `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Duration parses value, returning fallback when it is empty or malformed.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
