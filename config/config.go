package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	AuthProviderFirebase = "firebase"
	AuthProviderLocal    = "local"
)

// Config holds all configuration values.
type Config struct {
	Env            string        `mapstructure:"env"`
	APIBaseURL     string        `mapstructure:"api_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	NotifyDuration time.Duration `mapstructure:"notify_duration"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	AuthProvider    string `mapstructure:"auth_provider"`
	FirebaseAPIKey  string `mapstructure:"firebase_api_key"`
	FirebaseBaseURL string `mapstructure:"firebase_base_url"`

	// Catalog cache freshness; zero disables the on-disk venue cache.
	CatalogCacheTTL time.Duration `mapstructure:"catalog_cache_ttl"`
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads config.yaml (current dir, then ./config), .env and BOOKKAR_* variables,
// in increasing order of precedence. path, when set, names an explicit config file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOOKKAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("api_base_url", "http://bookar-d951ecf6cefd.herokuapp.com/api/v1")
	v.SetDefault("request_timeout", 12*time.Second)
	v.SetDefault("notify_duration", 2*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("auth_provider", AuthProviderLocal)
	v.SetDefault("firebase_api_key", "")
	v.SetDefault("firebase_base_url", "https://identitytoolkit.googleapis.com/v1")
	v.SetDefault("catalog_cache_ttl", 10*time.Minute)
}

func (c *Config) Validate() error {
	c.AuthProvider = strings.ToLower(strings.TrimSpace(c.AuthProvider))
	switch c.AuthProvider {
	case AuthProviderLocal:
	case AuthProviderFirebase:
		if strings.TrimSpace(c.FirebaseAPIKey) == "" {
			return errors.New("firebase auth provider requires BOOKKAR_FIREBASE_API_KEY")
		}
	default:
		return fmt.Errorf("unknown auth provider %q", c.AuthProvider)
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return errors.New("api base url is required")
	}
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.NotifyDuration <= 0 {
		return errors.New("notify duration must be positive")
	}
	return nil
}

func NewTestConfig() Config {
	return Config{
		Env:             "test",
		APIBaseURL:      "http://127.0.0.1:0",
		RequestTimeout:  time.Second,
		NotifyDuration:  10 * time.Millisecond,
		LogLevel:        "error",
		AuthProvider:    AuthProviderLocal,
		FirebaseBaseURL: "http://127.0.0.1:0",
	}
}
