package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfigFailed marks any problem reading or parsing the settings file.
var ErrConfigFailed = errors.New("config: failed to load")

// FileSettings is the optional YAML settings file. Empty values fall back to defaults.
type FileSettings struct {
	Port     string `yaml:"port"`
	AppName  string `yaml:"app_name"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	APIBaseURL string `yaml:"api_base_url"`
	APITimeout string `yaml:"api_timeout"`

	TokenStore     string `yaml:"token_store"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        *int   `yaml:"redis_db"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
	TokenFile      string `yaml:"token_file"`

	ClientSessionMaxAge string `yaml:"client_session_max_age"`
	GuardRejectExpired  *bool  `yaml:"guard_reject_expired"`
}

// FileError carries the path of the settings file that failed to load.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrConfigFailed, e.Path, e.Err)
}

func (e *FileError) Unwrap() []error {
	return []error{ErrConfigFailed, e.Err}
}

// ReadFileSettings parses the YAML settings file at path.
func ReadFileSettings(path string) (*FileSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	var settings FileSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return &settings, nil
}
