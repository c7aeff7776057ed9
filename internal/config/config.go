// Package config loads process configuration from REPORTCHAT_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	ctxpkg "github.com/stupiduntilnot/reportchat/internal/context"
	"github.com/stupiduntilnot/reportchat/internal/conversation"
	"github.com/stupiduntilnot/reportchat/internal/model"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "REPORTCHAT"

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	keyListenAddr       = "listen_addr"
	keyStoreBackend     = "store_backend"
	keyDBPath           = "db_path"
	keyRedisAddr        = "redis_addr"
	keyRedisPassword    = "redis_password"
	keyRedisDB          = "redis_db"
	keyKeyPrefix        = "key_prefix"
	keyConversationTTL  = "conversation_ttl"
	keySweepInterval    = "sweep_interval"
	keyHistoryWindow    = "history_window"
	keyLocale           = "locale"
	keyResponseLanguage = "response_language"
	keyHTTPTimeout      = "http_timeout"
	keyLogLevel         = "log_level"
	keyLogFormat        = "log_format"
	keyAllowedOrigins   = "allowed_origins"
	keyLLMProvider      = "llm_provider"
	keyLLMAPIKey        = "llm_api_key"
	keyLLMModel         = "llm_model"
	keyLLMEndpoint      = "llm_endpoint"
	keyDummyScript      = "llm_dummy_script"
)

// Config holds configuration for the reportchat process.
type Config struct {
	ListenAddr       string
	StoreBackend     string
	DBPath           string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	KeyPrefix        string
	ConversationTTL  time.Duration
	SweepInterval    time.Duration
	HistoryWindow    int
	Locale           string
	ResponseLanguage string
	HTTPTimeout      time.Duration
	LogLevel         string
	LogFormat        string
	AllowedOrigins   []string
	// Settings are used until settings are saved through the API.
	Settings model.Settings
	// DummyScript, when set, replaces the real backends with a scripted one.
	DummyScript string
	// ConfigFile is the file that was read, if any.
	ConfigFile string
}

// SettingsKey is the store key of the persisted settings.
func (c Config) SettingsKey() string { return c.KeyPrefix + ".settings" }

// ConversationKey is the store key of the persisted conversation.
func (c Config) ConversationKey() string { return c.KeyPrefix + ".conversation" }

func setDefaults(v *viper.Viper) {
	def := model.DefaultSettings()
	v.SetDefault(keyListenAddr, ":8080")
	v.SetDefault(keyStoreBackend, BackendSQLite)
	v.SetDefault(keyDBPath, "reportchat.db")
	v.SetDefault(keyRedisAddr, "localhost:6379")
	v.SetDefault(keyRedisPassword, "")
	v.SetDefault(keyRedisDB, 0)
	v.SetDefault(keyKeyPrefix, "reportchat")
	v.SetDefault(keyConversationTTL, conversation.DefaultTTL)
	v.SetDefault(keySweepInterval, conversation.DefaultSweepInterval)
	v.SetDefault(keyHistoryWindow, ctxpkg.DefaultTailSize)
	v.SetDefault(keyLocale, "en-US")
	v.SetDefault(keyResponseLanguage, "English")
	v.SetDefault(keyHTTPTimeout, 60*time.Second)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
	v.SetDefault(keyAllowedOrigins, "*")
	v.SetDefault(keyLLMProvider, string(def.LLMProvider))
	v.SetDefault(keyLLMAPIKey, "")
	v.SetDefault(keyLLMModel, def.ModelName)
	v.SetDefault(keyLLMEndpoint, "")
	v.SetDefault(keyDummyScript, "")
}

// Load reads configuration. When configFile is empty a reportchat.yaml (or
// .json/.toml) in the working directory is used if present.
func Load(configFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("reportchat")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		ListenAddr:       strings.TrimSpace(v.GetString(keyListenAddr)),
		StoreBackend:     strings.ToLower(strings.TrimSpace(v.GetString(keyStoreBackend))),
		DBPath:           v.GetString(keyDBPath),
		RedisAddr:        v.GetString(keyRedisAddr),
		RedisPassword:    v.GetString(keyRedisPassword),
		RedisDB:          v.GetInt(keyRedisDB),
		KeyPrefix:        strings.TrimSpace(v.GetString(keyKeyPrefix)),
		ConversationTTL:  v.GetDuration(keyConversationTTL),
		SweepInterval:    v.GetDuration(keySweepInterval),
		HistoryWindow:    v.GetInt(keyHistoryWindow),
		Locale:           v.GetString(keyLocale),
		ResponseLanguage: v.GetString(keyResponseLanguage),
		HTTPTimeout:      v.GetDuration(keyHTTPTimeout),
		LogLevel:         v.GetString(keyLogLevel),
		LogFormat:        strings.ToLower(v.GetString(keyLogFormat)),
		AllowedOrigins:   splitList(v.Get(keyAllowedOrigins)),
		Settings: model.Settings{
			LLMProvider: model.ProviderID(strings.ToLower(strings.TrimSpace(v.GetString(keyLLMProvider)))),
			APIKey:      v.GetString(keyLLMAPIKey),
			ModelName:   strings.TrimSpace(v.GetString(keyLLMModel)),
			APIEndpoint: strings.TrimSpace(v.GetString(keyLLMEndpoint)),
		},
		DummyScript: v.GetString(keyDummyScript),
		ConfigFile:  v.ConfigFileUsed(),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

func (c Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%s must not be empty", envName(keyListenAddr))
	}
	switch c.StoreBackend {
	case BackendSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("%s is required when %s=%s", envName(keyDBPath), envName(keyStoreBackend), BackendSQLite)
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%s is required when %s=%s", envName(keyRedisAddr), envName(keyStoreBackend), BackendRedis)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%s must be one of %s, %s or %s, got %q",
			envName(keyStoreBackend), BackendSQLite, BackendRedis, BackendMemory, c.StoreBackend)
	}
	if c.KeyPrefix == "" {
		return fmt.Errorf("%s must not be empty", envName(keyKeyPrefix))
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("%s must be >= 0", envName(keyRedisDB))
	}
	if c.ConversationTTL <= 0 {
		return fmt.Errorf("%s must be a positive duration", envName(keyConversationTTL))
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("%s must be a positive duration", envName(keySweepInterval))
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%s must be a positive duration", envName(keyHTTPTimeout))
	}
	if c.HistoryWindow < 1 {
		return fmt.Errorf("%s must be >= 1", envName(keyHistoryWindow))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", envName(keyLogLevel), err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%s must be text or json, got %q", envName(keyLogFormat), c.LogFormat)
	}
	if _, ok := model.Lookup(c.Settings.LLMProvider); !ok {
		return fmt.Errorf("%s: %w: %q", envName(keyLLMProvider), model.ErrUnknownProvider, c.Settings.LLMProvider)
	}
	return nil
}

// splitList accepts a comma separated string (environment) or a list (config
// file) and returns the trimmed, non-empty entries.
func splitList(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
