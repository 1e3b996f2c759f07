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

package builder

import (
	"reflect"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/registry"
	"dirpx.dev/phetio/resolver"
	"dirpx.dev/phetio/strategy"
)

// New returns the default apis.Builder.
//
// BuildRegistry accepts an optional ext of type []apis.Entry, registered on
// top of entries migrated from the previous registry.
func New() apis.Builder {
	return &builder{}
}

type builder struct{}

func (b *builder) BuildRegistry(cfg apis.Config, preg apis.Registry, ext any) apis.Registry {
	nreg := registry.New(cfg)
	if preg != nil {
		for _, e := range preg.Entries() {
			_ = nreg.Register(e.Type, e.IOType)
		}
	}
	if seed, ok := ext.([]apis.Entry); ok {
		for _, e := range seed {
			_ = nreg.Register(e.Type, e.IOType)
		}
	}
	return nreg
}

func (b *builder) BuildResolver(cfg apis.Config, reg apis.Registry, _ apis.Resolver, _ any) apis.Resolver {
	return resolver.New(
		strategy.NewTypedStrategy(),
		strategy.NewRegistryStrategy(reg),
		strategy.NewKindStrategy(reg),
	)
}

// DefaultEntries registers the primitive IO types for Go's basic kinds, so
// that registry lookups by name find them.
func DefaultEntries() []apis.Entry {
	return []apis.Entry{
		{Type: reflect.TypeOf(false), IOType: iotype.BooleanIO},
		{Type: reflect.TypeOf(float64(0)), IOType: iotype.NumberIO},
		{Type: reflect.TypeOf(""), IOType: iotype.StringIO},
	}
}
