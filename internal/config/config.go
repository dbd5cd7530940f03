package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

// APIConfig describes how the REST API backing the front end is reached.
type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
}

// StorageConfig selects the persisted token store.
type StorageConfig interface {
	GetTokenStore() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
	GetTokenFile() string
}

type SessionConfig interface {
	GetClientSessionMaxAge() time.Duration
	GetGuardRejectExpired() bool
}

type mainConfig struct {
	EnvVars
	API
	Storage
	Session
}

// New returns a Config backed by environment variables and built-in defaults.
func New() Config {
	return newConfig(&FileSettings{})
}

// Load returns a Config that reads the YAML settings file at path first and
// lets environment variables override it. An empty path behaves like New.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	settings, err := ReadFileSettings(path)
	if err != nil {
		return nil, err
	}
	return newConfig(settings), nil
}

func newConfig(settings *FileSettings) Config {
	return mainConfig{
		EnvVars: EnvVars{file: settings},
		API:     API{file: settings},
		Storage: Storage{file: settings},
		Session: Session{file: settings},
	}
}
