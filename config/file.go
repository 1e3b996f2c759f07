/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"dirpx.dev/phetio/apis"
)

// ErrInvalidFile is returned when a configuration file fails validation.
var ErrInvalidFile = errors.New("phetio(config): invalid configuration file")

// File is the on-disk configuration.
//
//	instrumentation:
//	  enabled: true
//	  validation: true
//	  suppress_high_frequency: false
//	  check_event_stack_on_dispose: true
//	  max_restore_passes: 50
//	  max_unwrap: 8
//	logging:
//	  level: info
//	  format: console
//	metrics:
//	  enabled: true
//	  namespace: phetio
type File struct {
	Instrumentation InstrumentationConfig `yaml:"instrumentation"`
	Logging         LoggingConfig         `yaml:"logging"`
	Metrics         MetricsConfig         `yaml:"metrics"`
}

// InstrumentationConfig mirrors apis.Config. Pointers distinguish unset
// fields from explicit false.
type InstrumentationConfig struct {
	Enabled                  *bool `yaml:"enabled"`
	Validation               *bool `yaml:"validation"`
	SuppressHighFrequency    *bool `yaml:"suppress_high_frequency"`
	CheckEventStackOnDispose *bool `yaml:"check_event_stack_on_dispose"`
	MaxRestorePasses         int   `yaml:"max_restore_passes"`
	MaxUnwrap                *int  `yaml:"max_unwrap"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // "console" or "json"
}

// MetricsConfig configures Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Load reads and validates a YAML configuration file. Environment variables
// in the file are expanded.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration bytes.
func Parse(data []byte) (*File, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks value ranges.
func (f *File) Validate() error {
	in := f.Instrumentation
	if in.MaxRestorePasses < 0 {
		return fmt.Errorf("%w: max_restore_passes must not be negative", ErrInvalidFile)
	}
	if in.MaxUnwrap != nil && *in.MaxUnwrap < 0 {
		return fmt.Errorf("%w: max_unwrap must not be negative", ErrInvalidFile)
	}
	if f.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(f.Logging.Level); err != nil {
			return fmt.Errorf("%w: logging.level: %v", ErrInvalidFile, err)
		}
	}
	switch f.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidFile, f.Logging.Format)
	}
	return nil
}

// Options converts the instrumentation section into functional options.
func (f *File) Options() []Option {
	in := f.Instrumentation
	var opts []Option
	if in.Enabled != nil {
		opts = append(opts, WithEnabled(*in.Enabled))
	}
	if in.Validation != nil {
		opts = append(opts, WithValidation(*in.Validation))
	}
	if in.SuppressHighFrequency != nil {
		opts = append(opts, WithSuppressHighFrequency(*in.SuppressHighFrequency))
	}
	if in.CheckEventStackOnDispose != nil {
		opts = append(opts, WithCheckEventStackOnDispose(*in.CheckEventStackOnDispose))
	}
	if in.MaxRestorePasses > 0 {
		opts = append(opts, WithMaxRestorePasses(in.MaxRestorePasses))
	}
	if in.MaxUnwrap != nil {
		opts = append(opts, WithMaxUnwrap(*in.MaxUnwrap))
	}
	return opts
}

// Config returns the apis.Config described by the file.
func (f *File) Config() apis.Config {
	return NewConfig(f.Options()...)
}

// Logger builds a zerolog logger writing to w.
func (f *File) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(f.Logging.Level)
	if err != nil || f.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	if f.Logging.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
