package server

// StorageServerConfig selects where recordings are listed from
type StorageServerConfig struct {
	Type  string             `mapstructure:"type"  yaml:"type"`
	Local StorageLocalConfig `mapstructure:"local" yaml:"local"`
	S3    StorageS3Config    `mapstructure:"s3"    yaml:"s3"`
}

type StorageLocalConfig struct {
	Path       string   `mapstructure:"path"       yaml:"path"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`
}

type StorageS3Config struct {
	Endpoint  string `mapstructure:"endpoint"   yaml:"endpoint"`
	Region    string `mapstructure:"region"     yaml:"region"`
	Bucket    string `mapstructure:"bucket"     yaml:"bucket"`
	Prefix    string `mapstructure:"prefix"     yaml:"prefix"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}
