package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/unalkalkan/pdf2epub/pkg/types"
	"gopkg.in/yaml.v3"
)

// envPrefix prefixes every environment override
const envPrefix = "P2E_"

// Load reads and parses the configuration file on top of the defaults.
// It also supports environment variable overrides with the P2E_ prefix.
func Load(configPath string) (*types.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads configPath when it is set, and otherwise returns the
// defaults with environment overrides applied.
func LoadOrDefault(configPath string) (*types.Config, error) {
	if configPath != "" {
		return Load(configPath)
	}

	cfg := GetDefault()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid and fills unset conversion defaults
func Validate(cfg *types.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Storage.Adapter != "local" && cfg.Storage.Adapter != "s3" {
		return fmt.Errorf("invalid storage adapter: %s (must be 'local' or 's3')", cfg.Storage.Adapter)
	}

	if cfg.Storage.Adapter == "local" {
		if cfg.Storage.Local.BasePath == "" {
			return fmt.Errorf("local storage base_path is required")
		}
		if !filepath.IsAbs(cfg.Storage.Local.BasePath) {
			return fmt.Errorf("local storage base_path must be absolute: %s", cfg.Storage.Local.BasePath)
		}
	}

	if cfg.Storage.Adapter == "s3" {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	}

	switch cfg.Conversion.Defaults.FlowMode {
	case "":
		cfg.Conversion.Defaults.FlowMode = types.FlowParagraphs
	case types.FlowParagraphs, types.FlowCollapse:
	default:
		return fmt.Errorf("invalid flow mode: %s (must be 'paragraphs' or 'collapse')", cfg.Conversion.Defaults.FlowMode)
	}

	if cfg.Conversion.MaxUploadMB <= 0 {
		cfg.Conversion.MaxUploadMB = 100
	}
	if cfg.Conversion.Language == "" {
		cfg.Conversion.Language = "en"
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *types.Config) error {
	strOverrides := map[string]*string{
		"SERVER_HOST":                  &cfg.Server.Host,
		"STORAGE_ADAPTER":              &cfg.Storage.Adapter,
		"STORAGE_LOCAL_BASE_PATH":      &cfg.Storage.Local.BasePath,
		"STORAGE_S3_BUCKET":            &cfg.Storage.S3.Bucket,
		"STORAGE_S3_REGION":            &cfg.Storage.S3.Region,
		"STORAGE_S3_ENDPOINT":          &cfg.Storage.S3.Endpoint,
		"STORAGE_S3_PREFIX":            &cfg.Storage.S3.Prefix,
		"STORAGE_S3_ACCESS_KEY_ID":     &cfg.Storage.S3.AccessKeyID,
		"STORAGE_S3_SECRET_ACCESS_KEY": &cfg.Storage.S3.SecretAccessKey,
		"CONVERSION_LANGUAGE":          &cfg.Conversion.Language,
		"LOG_LEVEL":                    &cfg.Log.Level,
	}
	for name, target := range strOverrides {
		if val := os.Getenv(envPrefix + name); val != "" {
			*target = val
		}
	}

	intOverrides := map[string]*int{
		"SERVER_PORT":              &cfg.Server.Port,
		"CONVERSION_MAX_UPLOAD_MB": &cfg.Conversion.MaxUploadMB,
	}
	for name, target := range intOverrides {
		if val := os.Getenv(envPrefix + name); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
			}
			*target = n
		}
	}

	if val := os.Getenv(envPrefix + "LOG_DEVELOPMENT"); val != "" {
		dev, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %sLOG_DEVELOPMENT: %w", envPrefix, err)
		}
		cfg.Log.Development = dev
	}

	return nil
}

// GetDefault returns a default configuration
func GetDefault() *types.Config {
	return &types.Config{
		Server: types.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15,
			WriteTimeout:    60,
			ShutdownTimeout: 10,
		},
		Storage: types.StorageConfig{
			Adapter: "local",
			Local: types.LocalStorageOpts{
				BasePath: "/var/lib/pdf2epub/storage",
			},
		},
		Conversion: types.ConversionConfig{
			Defaults:     types.DefaultOptions(),
			Language:     "en",
			MaxUploadMB:  100,
			LeadingTitle: "Beginning",
			NavTitle:     "Contents",
			FlatNavLabel: "Beginning",
		},
		Log: types.LogConfig{
			Level: "info",
		},
	}
}
