package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/getzep/reviewpulse/internal"
)

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

const EnvPrefix = "REVIEWPULSE"

// envAliases maps config keys to the variable names used by the original function apps.
// They are consulted after the REVIEWPULSE_ prefixed name.
var envAliases = map[string][]string{
	"analysis.endpoint":              {"AI_ENDPOINT"},
	"analysis.api_key":               {"AI_KEY"},
	"source_store.postgres.dsn":      {"ADF_SQL_CONN_STRING"},
	"destination_store.postgres.dsn": {"AI_SQL_CONN_STRING"},
	"reviews.hotel_id":               {"HOTEL_ID"},
	"reviews.api_key":                {"RAPIDAPI_KEY"},
}

// configKeys lists every key that may be supplied through the environment. viper only
// unmarshals env values for keys it knows about.
var configKeys = []string{
	"analysis.endpoint",
	"analysis.api_key",
	"analysis.language",
	"analysis.batch_size",
	"analysis.timeout",
	"analysis.retry_max",
	"source_store.postgres.dsn",
	"destination_store.postgres.dsn",
	"store.connect_attempts",
	"reviews.enabled",
	"reviews.url",
	"reviews.host",
	"reviews.api_key",
	"reviews.hotel_id",
	"reviews.locale",
	"reviews.language_filter",
	"reviews.sort_type",
	"reviews.customer_type",
	"reviews.interval",
	"reviews.timeout",
	"server.host",
	"server.port",
	"log.level",
	"log.format",
	"auth.secret",
	"auth.required",
}

// LoadConfig loads the config file and ENV variables into a Config struct.
// A missing default config.yaml is not an error; a missing explicit configFile is.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		log.Debug("config.yaml not found, using defaults and environment")
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	for _, key := range configKeys {
		names := append([]string{key, EnvName(key)}, envAliases[key]...)
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := mergo.Merge(&cfg, Defaults()); err != nil {
		return nil, fmt.Errorf("error applying config defaults: %w", err)
	}

	return &cfg, nil
}

// EnvName returns the prefixed environment variable name for a config key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Defaults returns the values used for any setting left empty by the config file and ENV.
func Defaults() Config {
	return Config{
		Analysis: AnalysisConfig{
			Language:  "en",
			BatchSize: 10,
			Timeout:   30 * time.Second,
		},
		Store: StoreOptions{
			ConnectAttempts: 5,
		},
		Reviews: ReviewsConfig{
			URL:            "https://booking-com.p.rapidapi.com/v1/hotels/reviews",
			Host:           "booking-com.p.rapidapi.com",
			HotelID:        "1676161",
			Locale:         "en-gb",
			LanguageFilter: "en-gb,de,fr",
			SortType:       "SORT_MOST_RELEVANT",
			CustomerType:   "solo_traveller,review_category_group_of_friends",
			Interval:       5 * time.Minute,
			Timeout:        30 * time.Second,
		},
		Server: ServerConfig{
			Port: 8000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Debug(".env file not found or unable to load")
	}
}

// SetLogLevel sets the log level and format based on the config file.
// Defaults to INFO if not set or invalid
func SetLogLevel(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	if cfg.Log.Format == "json" {
		internal.SetJSONFormat()
	}
	internal.GetLogger().Info("Log level set to: ", level)
}

const redacted = "****"

// Dump renders the config as YAML with secrets masked.
func Dump(cfg *Config) ([]byte, error) {
	c := *cfg
	for _, s := range []*string{
		&c.Analysis.APIKey,
		&c.Reviews.APIKey,
		&c.Auth.Secret,
		&c.SourceStore.Postgres.DSN,
		&c.DestinationStore.Postgres.DSN,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	return yaml.Marshal(&c)
}
