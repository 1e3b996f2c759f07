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
	"dirpx.dev/phetio/apis"
)

const (
	// DefaultEnabled represents the default for Enabled.
	DefaultEnabled = true
	// DefaultValidation represents the default for Validation.
	DefaultValidation = true
	// DefaultSuppressHighFrequency represents the default for SuppressHighFrequency.
	DefaultSuppressHighFrequency = false
	// DefaultCheckEventStackOnDispose represents the default for CheckEventStackOnDispose.
	DefaultCheckEventStackOnDispose = true
	// DefaultMaxRestorePasses represents the default for MaxRestorePasses.
	// Each pass must make progress, so this only bounds pathological chains.
	DefaultMaxRestorePasses = 50
	// DefaultMaxUnwrap represents the default for MaxUnwrap.
	DefaultMaxUnwrap = 8
)

// NewConfig constructs an apis.Config from the given options.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxRestorePasses <= 0 {
		cfg.MaxRestorePasses = DefaultMaxRestorePasses
	}
	if cfg.MaxUnwrap < 0 {
		cfg.MaxUnwrap = DefaultMaxUnwrap
	}
	return cfg
}

// DefaultConfig is the default configuration used when none is provided.
func DefaultConfig() apis.Config {
	return apis.Config{
		Enabled:                  DefaultEnabled,
		Validation:               DefaultValidation,
		SuppressHighFrequency:    DefaultSuppressHighFrequency,
		CheckEventStackOnDispose: DefaultCheckEventStackOnDispose,
		MaxRestorePasses:         DefaultMaxRestorePasses,
		MaxUnwrap:                DefaultMaxUnwrap,
	}
}

// Option is a functional option that mutates an apis.Config during construction.
type Option func(*apis.Config)

// WithEnabled sets the Enabled option.
func WithEnabled(enabled bool) Option {
	return func(c *apis.Config) {
		c.Enabled = enabled
	}
}

// WithValidation sets the Validation option.
func WithValidation(validation bool) Option {
	return func(c *apis.Config) {
		c.Validation = validation
	}
}

// WithSuppressHighFrequency sets the SuppressHighFrequency option.
func WithSuppressHighFrequency(suppress bool) Option {
	return func(c *apis.Config) {
		c.SuppressHighFrequency = suppress
	}
}

// WithCheckEventStackOnDispose sets the CheckEventStackOnDispose option.
func WithCheckEventStackOnDispose(check bool) Option {
	return func(c *apis.Config) {
		c.CheckEventStackOnDispose = check
	}
}

// WithMaxRestorePasses sets the MaxRestorePasses option.
// A non-positive value resets to the default.
func WithMaxRestorePasses(n int) Option {
	return func(c *apis.Config) {
		if n <= 0 {
			c.MaxRestorePasses = DefaultMaxRestorePasses
			return
		}
		c.MaxRestorePasses = n
	}
}

// WithMaxUnwrap sets the MaxUnwrap option.
// A negative value resets to the default.
func WithMaxUnwrap(max int) Option {
	return func(c *apis.Config) {
		if max < 0 {
			c.MaxUnwrap = DefaultMaxUnwrap
			return
		}
		c.MaxUnwrap = max
	}
}
