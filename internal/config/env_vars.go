package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelEnvVar = "LOG_LEVEL"

	apiBaseURLVar = "API_BASE_URL"
	apiTimeoutVar = "API_TIMEOUT"

	tokenStoreVar    = "TOKEN_STORE"
	redisAddrVar     = "REDIS_ADDR"
	redisPasswordVar = "REDIS_PASSWORD"
	redisDBVar       = "REDIS_DB"
	redisPrefixVar   = "REDIS_KEY_PREFIX"
	tokenFileVar     = "TOKEN_FILE"

	sessionMaxAgeVar      = "CLIENT_SESSION_MAX_AGE"
	guardRejectExpiredVar = "GUARD_REJECT_EXPIRED"
)

// Token store backends
const (
	TokenStoreMemory = "memory"
	TokenStoreRedis  = "redis"
	TokenStoreFile   = "file"
)

type EnvVars struct {
	file *FileSettings
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := lookup(portEnvVar, e.file.Port, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return lookup(appNameVar, e.file.AppName, "Finance")
}

func (e EnvVars) GetEnv() string {
	return lookup(envVar, e.file.Env, "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return lookup(logLevelEnvVar, e.file.LogLevel, "info")
}

type API struct {
	file *FileSettings
}

var _ APIConfig = API{}

// GetAPIBaseURL returns the REST API root (e.g., "http://localhost:8000/api")
func (a API) GetAPIBaseURL() string {
	return strings.TrimRight(lookup(apiBaseURLVar, a.file.APIBaseURL, "http://localhost:8000/api"), "/")
}

func (a API) GetAPITimeout() time.Duration {
	return lookupDuration(apiTimeoutVar, a.file.APITimeout, 15*time.Second)
}

type Storage struct {
	file *FileSettings
}

var _ StorageConfig = Storage{}

func (s Storage) GetTokenStore() string {
	return strings.ToLower(lookup(tokenStoreVar, s.file.TokenStore, TokenStoreMemory))
}

func (s Storage) GetRedisAddr() string {
	return lookup(redisAddrVar, s.file.RedisAddr, "localhost:6379")
}

func (s Storage) GetRedisPassword() string {
	return lookup(redisPasswordVar, s.file.RedisPassword, "")
}

func (s Storage) GetRedisDB() int {
	db, err := strconv.Atoi(lookup(redisDBVar, intString(s.file.RedisDB), "0"))
	if err != nil {
		return 0
	}
	return db
}

func (s Storage) GetRedisKeyPrefix() string {
	return lookup(redisPrefixVar, s.file.RedisKeyPrefix, "finance:tokens")
}

// GetTokenFile returns the path of the file store used by the CLI.
func (s Storage) GetTokenFile() string {
	return lookup(tokenFileVar, s.file.TokenFile, "")
}

type Session struct {
	file *FileSettings
}

var _ SessionConfig = Session{}

func (s Session) GetClientSessionMaxAge() time.Duration {
	return lookupDuration(sessionMaxAgeVar, s.file.ClientSessionMaxAge, 24*time.Hour)
}

// GetGuardRejectExpired reports whether the route guard treats a present but
// expired access token as unauthenticated. Off by default: presence only.
func (s Session) GetGuardRejectExpired() bool {
	value, err := strconv.ParseBool(lookup(guardRejectExpiredVar, boolString(s.file.GuardRejectExpired), "false"))
	if err != nil {
		return false
	}
	return value
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// lookup resolves a setting: environment first, then the settings file, then the default.
func lookup(envVar, fileValue, defaultValue string) string {
	if fileValue != "" {
		defaultValue = fileValue
	}
	return GetEnv(envVar, defaultValue)
}

func lookupDuration(envVar, fileValue string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(lookup(envVar, fileValue, defaultValue.String()))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func intString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func boolString(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
