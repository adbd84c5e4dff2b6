package server

import "github.com/spf13/viper"

func GetServerDefault() BaseServerConfig {
	return BaseServerConfig{
		Log: LogServerConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},
		Storage: StorageServerConfig{
			Type: "local",
			Local: StorageLocalConfig{
				Path:       "./recordings",
				Extensions: []string{".c3d"},
			},
			S3: StorageS3Config{
				Region: "us-east-1",
			},
		},
		Metadata: MetadataServerConfig{
			Type: "sqlite",
			SQLite: MetadataSQLiteConfig{
				Path: "./sessionbrowser.db",
			},
		},
		Cache: CacheServerConfig{
			TTL:          "5m",
			FetchTimeout: "30s",
		},
		Retry: RetryServerConfig{
			Timeout:    "15s",
			MaxRetries: 2,
			Backoff:    "1s",
			MaxBackoff: "10s",
			Multiplier: 1.0,
		},
		Browser: BrowserServerConfig{
			Role:               "therapist",
			PageSize:           10,
			NotesEnabled:       true,
			NotesBucket:        "c3d-examples",
			PatientCodePattern: `(?i)(?:^|[^a-z0-9])(p\d{3,})(?:[^0-9]|$)`,
			SizeThresholds: BrowserSizeThresholds{
				Small:  2 * 1024 * 1024,
				Medium: 10 * 1024 * 1024,
			},
		},
		Agent: AgentServerConfig{
			RefreshInterval: "5m",
			ShutdownTimeout: "10s",
		},
	}
}

func setDefaults() {
	defaults := GetServerDefault()

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("storage.type", defaults.Storage.Type)
	viper.SetDefault("storage.local.path", defaults.Storage.Local.Path)
	viper.SetDefault("storage.local.extensions", defaults.Storage.Local.Extensions)
	viper.SetDefault("storage.s3.endpoint", defaults.Storage.S3.Endpoint)
	viper.SetDefault("storage.s3.region", defaults.Storage.S3.Region)
	viper.SetDefault("storage.s3.bucket", defaults.Storage.S3.Bucket)
	viper.SetDefault("storage.s3.prefix", defaults.Storage.S3.Prefix)
	viper.SetDefault("storage.s3.access_key", defaults.Storage.S3.AccessKey)
	viper.SetDefault("storage.s3.secret_key", defaults.Storage.S3.SecretKey)

	viper.SetDefault("metadata.type", defaults.Metadata.Type)
	viper.SetDefault("metadata.sqlite.path", defaults.Metadata.SQLite.Path)

	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("cache.fetch_timeout", defaults.Cache.FetchTimeout)

	viper.SetDefault("retry.timeout", defaults.Retry.Timeout)
	viper.SetDefault("retry.max_retries", defaults.Retry.MaxRetries)
	viper.SetDefault("retry.backoff", defaults.Retry.Backoff)
	viper.SetDefault("retry.max_backoff", defaults.Retry.MaxBackoff)
	viper.SetDefault("retry.multiplier", defaults.Retry.Multiplier)

	viper.SetDefault("browser.role", defaults.Browser.Role)
	viper.SetDefault("browser.page_size", defaults.Browser.PageSize)
	viper.SetDefault("browser.notes_enabled", defaults.Browser.NotesEnabled)
	viper.SetDefault("browser.notes_bucket", defaults.Browser.NotesBucket)
	viper.SetDefault("browser.patient_code_pattern", defaults.Browser.PatientCodePattern)
	viper.SetDefault("browser.size_thresholds.small", defaults.Browser.SizeThresholds.Small)
	viper.SetDefault("browser.size_thresholds.medium", defaults.Browser.SizeThresholds.Medium)

	viper.SetDefault("agent.refresh_interval", defaults.Agent.RefreshInterval)
	viper.SetDefault("agent.shutdown_timeout", defaults.Agent.ShutdownTimeout)
}
