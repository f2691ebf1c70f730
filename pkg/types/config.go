package types

// Config represents the overall application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Conversion ConversionConfig `yaml:"conversion" json:"conversion"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string `yaml:"host" json:"host"`
	Port            int    `yaml:"port" json:"port"`
	ReadTimeout     int    `yaml:"read_timeout" json:"read_timeout"`         // seconds
	WriteTimeout    int    `yaml:"write_timeout" json:"write_timeout"`       // seconds
	ShutdownTimeout int    `yaml:"shutdown_timeout" json:"shutdown_timeout"` // seconds
}

// StorageConfig defines storage adapter settings
type StorageConfig struct {
	Adapter string           `yaml:"adapter" json:"adapter"` // "local" or "s3"
	Local   LocalStorageOpts `yaml:"local" json:"local"`
	S3      S3StorageOpts    `yaml:"s3" json:"s3"`
}

// LocalStorageOpts configures the local filesystem adapter
type LocalStorageOpts struct {
	BasePath string `yaml:"base_path" json:"base_path"`
}

// S3StorageOpts configures the S3-compatible adapter
type S3StorageOpts struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	Region          string `yaml:"region" json:"region"`
	Bucket          string `yaml:"bucket" json:"bucket"`
	Prefix          string `yaml:"prefix" json:"prefix"`
	AccessKeyID     string `yaml:"access_key_id" json:"-"`
	SecretAccessKey string `yaml:"secret_access_key" json:"-"`
}

// ConversionConfig holds defaults for the conversion pipeline and the EPUB packager
type ConversionConfig struct {
	Defaults     Options `yaml:"defaults" json:"defaults"`
	Language     string  `yaml:"language" json:"language"`
	MaxUploadMB  int     `yaml:"max_upload_mb" json:"max_upload_mb"`
	LeadingTitle string  `yaml:"leading_title" json:"leading_title"`
	NavTitle     string  `yaml:"nav_title" json:"nav_title"`
	FlatNavLabel string  `yaml:"flat_nav_label" json:"flat_nav_label"`
}

// LogConfig configures the structured logger
type LogConfig struct {
	Level       string `yaml:"level" json:"level"`             // debug, info, warn, error
	Development bool   `yaml:"development" json:"development"` // console encoder instead of JSON
}
