package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/jinzhu/configor"
)

const (
	SourcesFile     = "file_paths.json"
	CredentialsFile = "credentials.json"

	envPrefix = "AUTOBACKUP"
)

var (
	ErrConfigMissing    = errors.New("configuration file missing")
	ErrConfigPermission = errors.New("permission denied reading configuration")
	ErrConfigMalformed  = errors.New("configuration could not be decoded")
	ErrConfigInvalid    = errors.New("configuration invalid")
)

// ConfigError names the file that could not be loaded.
type ConfigError struct {
	File string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

type SourceConfig struct {
	SourceDirectories []string `json:"source_directories" required:"true"`
	Settings          Settings `json:"settings"`
}

type Settings struct {
	Region             string `json:"region" default:"us-east-1" env:"AUTOBACKUP_REGION"`
	Endpoint           string `json:"endpoint" env:"AUTOBACKUP_ENDPOINT"`
	Mirror             string `json:"mirror" default:"native"`
	MaxRetries         int    `json:"max_retries" default:"6"`
	InitialWaitSeconds int    `json:"initial_wait_seconds" default:"120"`
	InactivitySeconds  int    `json:"inactivity_seconds" default:"60"`
	LogFile            string `json:"log_file" default:"backup_log.txt"`
	SNSTopic           string `json:"sns_topic" env:"AUTOBACKUP_SNS_TOPIC"`
	Schedule           string `json:"schedule"`
}

type Credentials struct {
	AccessKey       string `json:"access_key" required:"true" env:"AUTOBACKUP_ACCESS_KEY"`
	SecretAccessKey string `json:"secret_access_key" required:"true" env:"AUTOBACKUP_SECRET_ACCESS_KEY"`
	BucketName      string `json:"BUCKET_NAME" required:"true" env:"AUTOBACKUP_BUCKET_NAME"`
}

type AppConfig struct {
	Sources     SourceConfig
	Credentials Credentials
}

func LoadAppConfig(sourcesPath, credentialsPath string) (AppConfig, error) {
	var appConfig AppConfig

	if err := loadConfigFile(&appConfig.Sources, sourcesPath); err != nil {
		return appConfig, err
	}
	if err := loadConfigFile(&appConfig.Credentials, credentialsPath); err != nil {
		return appConfig, err
	}
	if err := appConfig.Sources.Settings.validate(); err != nil {
		return appConfig, &ConfigError{File: sourcesPath, Err: err}
	}

	return appConfig, nil
}

func loadConfigFile(dest interface{}, path string) error {
	// configor silently skips files it cannot find, so check first
	info, statErr := os.Stat(path)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrPermission) {
			return &ConfigError{File: path, Err: ErrConfigPermission}
		}
		return &ConfigError{File: path, Err: ErrConfigMissing}
	}
	if info.IsDir() {
		return &ConfigError{File: path, Err: ErrConfigMissing}
	}

	loader := configor.New(&configor.Config{ENVPrefix: envPrefix})
	if loadErr := loader.Load(dest, path); loadErr != nil {
		return &ConfigError{File: path, Err: classifyLoadError(loadErr)}
	}

	return nil
}

func classifyLoadError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrConfigPermission, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}

	return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
}

func (s Settings) validate() error {
	if s.Mirror != "native" && s.Mirror != "cli" {
		return fmt.Errorf("%w: unknown mirror %q", ErrConfigInvalid, s.Mirror)
	}
	if s.MaxRetries < 1 {
		return fmt.Errorf("%w: max_retries must be at least 1", ErrConfigInvalid)
	}
	if s.InitialWaitSeconds < 0 || s.InactivitySeconds < 1 {
		return fmt.Errorf("%w: wait times must be positive", ErrConfigInvalid)
	}

	return nil
}

func (s Settings) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     s.MaxRetries,
		InitialWait:    time.Duration(s.InitialWaitSeconds) * time.Second,
		ExhaustedDelay: 3 * time.Second,
	}
}

func (c AppConfig) ConfigStringArray() []string {
	configStrArr := make([]string, 0)
	configStrArr = append(configStrArr, fmt.Sprintf("  - Bucket: %s", c.Credentials.BucketName))
	configStrArr = append(configStrArr, fmt.Sprintf("  - Region: %s", c.Sources.Settings.Region))
	if c.Sources.Settings.Endpoint != "" {
		configStrArr = append(configStrArr, fmt.Sprintf("  - Endpoint: %s", c.Sources.Settings.Endpoint))
	}
	configStrArr = append(configStrArr, fmt.Sprintf("  - Mirror: %s", c.Sources.Settings.Mirror))
	if c.Sources.Settings.SNSTopic != "" {
		configStrArr = append(configStrArr, fmt.Sprintf("  - SNSTopic: %s", c.Sources.Settings.SNSTopic))
	}
	if c.Sources.Settings.Schedule != "" {
		configStrArr = append(configStrArr, fmt.Sprintf("  - Schedule: %s", c.Sources.Settings.Schedule))
	}

	configStrArr = append(configStrArr, "Folders To Backup:")
	for _, dir := range c.Sources.SourceDirectories {
		configStrArr = append(configStrArr, fmt.Sprintf("  - %s", dir))
	}

	return configStrArr
}
