package config

import "time"

// Config holds the configuration of the application
// Use config.LoadConfig to create a new instance
type Config struct {
	Analysis         AnalysisConfig `mapstructure:"analysis"          yaml:"analysis"`
	SourceStore      StoreConfig    `mapstructure:"source_store"      yaml:"source_store"`
	DestinationStore StoreConfig    `mapstructure:"destination_store" yaml:"destination_store"`
	Store            StoreOptions   `mapstructure:"store"             yaml:"store"`
	Reviews          ReviewsConfig  `mapstructure:"reviews"           yaml:"reviews"`
	Server           ServerConfig   `mapstructure:"server"            yaml:"server"`
	Log              LogConfig      `mapstructure:"log"               yaml:"log"`
	Auth             AuthConfig     `mapstructure:"auth"              yaml:"auth"`
}

// AnalysisConfig configures the remote sentiment-analysis service.
type AnalysisConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" validate:"required,url"`
	// APIKey is loaded from ENV not config file.
	APIKey    string        `mapstructure:"api_key"    yaml:"api_key"    validate:"required"`
	Language  string        `mapstructure:"language"   yaml:"language"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size" validate:"gt=0"`
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"`
	RetryMax  int           `mapstructure:"retry_max"  yaml:"retry_max"  validate:"gte=0"`
}

type StoreConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn" validate:"required"`
}

// StoreOptions holds settings shared by both stores.
type StoreOptions struct {
	ConnectAttempts int `mapstructure:"connect_attempts" yaml:"connect_attempts"`
}

// ReviewsConfig configures the hotel review fetcher.
type ReviewsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url"     yaml:"url"     validate:"required,url"`
	Host    string `mapstructure:"host"    yaml:"host"    validate:"required"`
	// APIKey is loaded from ENV not config file.
	APIKey         string        `mapstructure:"api_key"         yaml:"api_key"         validate:"required"`
	HotelID        string        `mapstructure:"hotel_id"        yaml:"hotel_id"        validate:"required"`
	Locale         string        `mapstructure:"locale"          yaml:"locale"`
	LanguageFilter string        `mapstructure:"language_filter" yaml:"language_filter"`
	SortType       string        `mapstructure:"sort_type"       yaml:"sort_type"`
	CustomerType   string        `mapstructure:"customer_type"   yaml:"customer_type"`
	Interval       time.Duration `mapstructure:"interval"        yaml:"interval"`
	Timeout        time.Duration `mapstructure:"timeout"         yaml:"timeout"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type AuthConfig struct {
	Secret   string `mapstructure:"secret"   yaml:"secret"`
	Required bool   `mapstructure:"required" yaml:"required"`
}
