// Copyright 2021 The retryflow Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads retry, timeout, and logging configuration from
// YAML documents or plain maps and resolves it into the types used by
// package retryflow.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/gogama/retryflow/retry"
)

// Limiter types.
const (
	LimiterAnd               = "and"
	LimiterOr                = "or"
	LimiterDontRetry         = "dont_retry"
	LimiterMaxErrors         = "max_errors"
	LimiterMaxErrorResponses = "max_error_responses"
)

// Schedule types.
const (
	ScheduleConstant    = "constant"
	ScheduleExponential = "exponential"
)

// Retry-After modes.
const (
	RetryAfterIgnore   = "ignore"
	RetryAfterOverride = "override"
	RetryAfterFloor    = "floor"
)

// Config is the root configuration.
type Config struct {
	// Retries is shorthand for a max_errors limiter. It is ignored if
	// Limiter is set. If both are unset, retry.DefaultTimes is used.
	Retries  *int           `koanf:"retries" validate:"omitempty,gte=0"`
	Limiter  *LimiterConfig `koanf:"limiter"`
	Schedule ScheduleConfig `koanf:"schedule"`
	Timeout  TimeoutConfig  `koanf:"timeout"`
	Log      LogConfig      `koanf:"log"`
}

// LimiterConfig describes a retry limiter tree. The left and right
// branches are only used by the and and or types.
type LimiterConfig struct {
	Type              string         `koanf:"type" validate:"required,oneof=and or dont_retry max_errors max_error_responses"`
	Max               int            `koanf:"max" validate:"gte=0"`
	StatusCodes       []int          `koanf:"status_codes" validate:"dive,gte=100,lte=599"`
	Left              *LimiterConfig `koanf:"left"`
	Right             *LimiterConfig `koanf:"right"`
	AttemptHeader     string         `koanf:"attempt_header"`
	IdempotencyHeader string         `koanf:"idempotency_header"`
}

// ScheduleConfig describes a retry schedule and its decorators.
type ScheduleConfig struct {
	Type          string        `koanf:"type" validate:"oneof=constant exponential"`
	Delay         time.Duration `koanf:"delay" validate:"gte=0"`
	Factor        time.Duration `koanf:"factor" validate:"gte=0"`
	Max           time.Duration `koanf:"max" validate:"gte=0"`
	Jitter        bool          `koanf:"jitter"`
	JitterSeed    *int64        `koanf:"jitter_seed"`
	RetryAfter    string        `koanf:"retry_after" validate:"oneof=ignore override floor"`
	MaxRetryAfter time.Duration `koanf:"max_retry_after" validate:"gte=0"`
}

// TimeoutConfig describes the attempt timeout policy. If After is
// non-empty, the policy is adaptive.
type TimeoutConfig struct {
	Usual time.Duration   `koanf:"usual" validate:"gt=0"`
	After []time.Duration `koanf:"after" validate:"dive,gt=0"`
}

// LogConfig describes the logger used by the command line tools.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty"`
}

var validate = validator.New()

// Load loads configuration from the YAML file at path, layered over the
// defaults.
func Load(path string) (*Config, error) {
	return load(file.Provider(path), yaml.Parser())
}

// Parse loads configuration from a YAML document, layered over the
// defaults.
func Parse(b []byte) (*Config, error) {
	return load(rawbytes.Provider(b), yaml.Parser())
}

// FromMap loads configuration from a map whose keys may be nested maps
// or dotted paths, such as "schedule.type", layered over the defaults.
func FromMap(m map[string]any) (*Config, error) {
	return load(confmap.Provider(m, "."), nil)
}

func load(p koanf.Provider, parser koanf.Parser) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(p, parser); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"schedule.type":        ScheduleExponential,
		"schedule.factor":      retry.DefaultFactor.String(),
		"schedule.retry_after": RetryAfterIgnore,

		"timeout.usual": "5s",

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// Validate checks cfg field by field, then checks that the retry
// policy it describes can be constructed.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Limiter != nil {
		if err := validateLimiter("limiter", cfg.Limiter); err != nil {
			return err
		}
	}

	if _, err := cfg.Policy(); err != nil {
		return err
	}

	return nil
}

func validateLimiter(path string, l *LimiterConfig) error {
	switch l.Type {
	case LimiterAnd, LimiterOr:
		if l.Left == nil {
			return &retry.ConfigError{Field: path + ".left", Value: nil, Reason: "required for " + l.Type}
		}
		if l.Right == nil {
			return &retry.ConfigError{Field: path + ".right", Value: nil, Reason: "required for " + l.Type}
		}
		if err := validateLimiter(path+".left", l.Left); err != nil {
			return err
		}
		return validateLimiter(path+".right", l.Right)
	case LimiterMaxErrorResponses:
		if len(l.StatusCodes) == 0 {
			return &retry.ConfigError{Field: path + ".status_codes", Value: "[]", Reason: "must list at least one status code"}
		}
	}

	if l.Left != nil || l.Right != nil {
		return &retry.ConfigError{Field: path, Value: l.Type, Reason: "only and and or take left and right"}
	}

	return nil
}
