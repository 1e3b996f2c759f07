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

package phetio

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/builder"
	"dirpx.dev/phetio/config"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/tandem"
)

func init() {
	b := builder.New()
	s := &state{cfg: config.DefaultConfig(), ext: builder.DefaultEntries(), bld: b}
	s.reg = b.BuildRegistry(s.cfg, nil, s.ext)
	s.res = b.BuildResolver(s.cfg, s.reg, nil, s.ext)
	st.Store(s)
}

var (
	// ErrNilRegistry is returned when a builder returns a nil registry.
	ErrNilRegistry = errors.New("phetio: builder returned nil registry")
	// ErrNilResolver is returned when a builder returns a nil resolver.
	ErrNilResolver = errors.New("phetio: builder returned nil resolver")
)

// Resolve returns the IO type of v using the process-wide resolver, or nil.
func Resolve(v any) *iotype.IOType {
	s := st.Load()
	return s.res.Resolve(v, s.cfg)
}

// ResolveType returns the IO type of t using the process-wide resolver, or nil.
func ResolveType(t reflect.Type) *iotype.IOType {
	s := st.Load()
	return s.res.ResolveType(t, s.cfg)
}

// RegisterType associates t with typ in the process-wide type registry.
func RegisterType(t reflect.Type, typ *iotype.IOType) error {
	return st.Load().reg.Register(t, typ)
}

// NewTandemRegistry returns a tandem registry bound to the current
// configuration, type registry and resolver. opts are applied last and may
// override any of them.
func NewTandemRegistry(opts ...tandem.Option) *tandem.Registry {
	s := st.Load()
	base := []tandem.Option{
		tandem.WithConfig(s.cfg),
		tandem.WithTypes(s.reg, s.res),
	}
	return tandem.NewRegistry(append(base, opts...)...)
}

// SetAll replaces every component in one step. Nil arguments leave the
// corresponding component unchanged, except ext which is always replaced.
// A non-nil reg or res is pinned.
func SetAll(cfg *apis.Config, ext any, reg apis.Registry, res apis.Resolver, bld apis.Builder) {
	swap(func(old state) state {
		next := state{cfg: old.cfg, ext: ext, bld: old.bld}
		if cfg != nil {
			next.cfg = *cfg
		}
		if bld != nil {
			next.bld = bld
		}
		next.reg, next.preg = reg, reg != nil
		next.res, next.pres = res, res != nil
		if next.reg == nil {
			next.reg = next.bld.BuildRegistry(next.cfg, old.reg, next.ext)
		}
		if next.res == nil {
			next.res = next.bld.BuildResolver(next.cfg, next.reg, old.res, next.ext)
		}
		return next
	})
}

// Config returns the process-wide configuration.
func Config() apis.Config {
	return st.Load().cfg
}

// SetConfig replaces the configuration and rebuilds unpinned layers.
func SetConfig(cfg apis.Config) {
	swap(func(old state) state {
		old.cfg = cfg
		return rebuild(old, old.reg, old.res)
	})
}

// Registry returns the process-wide type registry.
func Registry() apis.Registry {
	return st.Load().reg
}

// SetRegistry installs and pins reg. An unpinned resolver is rebuilt on top
// of it. A nil reg is ignored.
func SetRegistry(reg apis.Registry) {
	if reg == nil {
		return
	}
	swap(func(old state) state {
		old.reg, old.preg = reg, true
		if !old.pres {
			old.res = old.bld.BuildResolver(old.cfg, reg, old.res, old.ext)
		}
		return old
	})
}

// Resolver returns the process-wide resolver.
func Resolver() apis.Resolver {
	return st.Load().res
}

// SetResolver installs and pins res. A nil res is ignored.
func SetResolver(res apis.Resolver) {
	if res == nil {
		return
	}
	swap(func(old state) state {
		old.res, old.pres = res, true
		return old
	})
}

// Builder returns the process-wide builder.
func Builder() apis.Builder {
	return st.Load().bld
}

// SetBuilder installs b and rebuilds unpinned layers with it. A nil b is
// ignored.
func SetBuilder(b apis.Builder) {
	if b == nil {
		return
	}
	swap(func(old state) state {
		old.bld = b
		return rebuild(old, old.reg, old.res)
	})
}

// SetExt replaces the extension value handed to the builder and rebuilds
// unpinned layers.
func SetExt[T any](ext T) {
	swap(func(old state) state {
		old.ext = ext
		return rebuild(old, old.reg, old.res)
	})
}

// ExtAs returns the extension value as T.
func ExtAs[T any]() (T, bool) {
	ext, ok := st.Load().ext.(T)
	return ext, ok
}

// IsRegistryPinned reports whether SetConfig and friends leave the registry alone.
func IsRegistryPinned() bool { return st.Load().preg }

// PinRegistry stops automatic registry rebuilds.
func PinRegistry() { setPins(ptr(true), nil) }

// UnpinRegistry resumes automatic registry rebuilds.
func UnpinRegistry() { setPins(ptr(false), nil) }

// IsResolverPinned reports whether SetConfig and friends leave the resolver alone.
func IsResolverPinned() bool { return st.Load().pres }

// PinResolver stops automatic resolver rebuilds.
func PinResolver() { setPins(nil, ptr(true)) }

// UnpinResolver resumes automatic resolver rebuilds.
func UnpinResolver() { setPins(nil, ptr(false)) }

func ptr(b bool) *bool { return &b }

func setPins(reg, res *bool) {
	swap(func(old state) state {
		if reg != nil {
			old.preg = *reg
		}
		if res != nil {
			old.pres = *res
		}
		return old
	})
}

// rebuild recreates the unpinned layers of s from prevReg and prevRes.
func rebuild(s state, prevReg apis.Registry, prevRes apis.Resolver) state {
	if !s.preg {
		s.reg = s.bld.BuildRegistry(s.cfg, prevReg, s.ext)
	}
	if !s.pres {
		s.res = s.bld.BuildResolver(s.cfg, s.reg, prevRes, s.ext)
	}
	return s
}

// swap derives a new snapshot from the current one under buildMu and
// publishes it. It panics if the result lacks a registry or resolver.
func swap(fn func(old state) state) {
	buildMu.Lock()
	defer buildMu.Unlock()

	next := fn(*st.Load())
	if next.reg == nil {
		panic(ErrNilRegistry)
	}
	if next.res == nil {
		panic(ErrNilResolver)
	}
	st.Store(&next)
}

// buildMu serializes writers so partially built snapshots are never published.
var buildMu sync.Mutex

var st atomic.Pointer[state]

// state is an immutable snapshot. Writers copy it, modify the copy and
// publish it through st.
type state struct {
	cfg apis.Config
	ext any
	reg apis.Registry
	res apis.Resolver
	bld apis.Builder
	// preg and pres pin the registry and resolver against rebuilds.
	preg bool
	pres bool
}
