package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports required settings that are absent or invalid.
// Keys are named the way they appear in config.yaml.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("configuration error: %s", strings.Join(parts, "; "))
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// pipelineSettings is the subset of Config the sentiment pipeline cannot run without.
type pipelineSettings struct {
	Analysis         AnalysisConfig `mapstructure:"analysis"`
	SourceStore      StoreConfig    `mapstructure:"source_store"`
	DestinationStore StoreConfig    `mapstructure:"destination_store"`
}

type reviewSettings struct {
	Reviews ReviewsConfig `mapstructure:"reviews"`
}

// ValidatePipeline checks the settings required by a pipeline run. It performs no I/O.
func ValidatePipeline(cfg *Config) error {
	if cfg == nil {
		return &ConfigurationError{Missing: []string{"config"}}
	}
	return check(pipelineSettings{
		Analysis:         cfg.Analysis,
		SourceStore:      cfg.SourceStore,
		DestinationStore: cfg.DestinationStore,
	})
}

// ValidateReviews checks the settings required by the review fetcher.
func ValidateReviews(cfg *Config) error {
	if cfg == nil {
		return &ConfigurationError{Missing: []string{"config"}}
	}
	return check(reviewSettings{Reviews: cfg.Reviews})
}

func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	cfgErr := &ConfigurationError{}
	for _, fe := range fieldErrs {
		key := fe.Namespace()
		// drop the wrapper struct name
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		if fe.Tag() == "required" {
			cfgErr.Missing = append(cfgErr.Missing, key)
		} else {
			cfgErr.Invalid = append(cfgErr.Invalid, key)
		}
	}
	return cfgErr
}
