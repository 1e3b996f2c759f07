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

package strategy

import (
	"reflect"
	"sync"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/config"
	"dirpx.dev/phetio/iotype"
)

// NewKindStrategy returns a strategy that derives IO types from reflect.Kind:
// booleans, numbers and strings map to the primitive IO types, slices and
// arrays to ArrayIO and pointers to NullableIO. Element types consult reg
// first, so a []Vector resolves to ArrayIO(VectorIO) once VectorIO is
// registered. reg may be nil.
//
// Results are memoized per strategy. Build a new strategy after resetting reg.
func NewKindStrategy(reg apis.Registry) apis.Strategy {
	return &kindStrategy{reg: reg}
}

type kindStrategy struct {
	reg   apis.Registry
	cache sync.Map // key: cacheKey, val: *iotype.IOType
}

var _ apis.Strategy = (*kindStrategy)(nil)

type cacheKey struct {
	t         reflect.Type
	maxUnwrap int16
}

func (s *kindStrategy) TryResolve(v any, cfg apis.Config) (*iotype.IOType, bool) {
	if v == nil {
		return nil, false
	}
	return s.TryResolveType(reflect.TypeOf(v), cfg)
}

func (s *kindStrategy) TryResolveType(t reflect.Type, cfg apis.Config) (*iotype.IOType, bool) {
	if t == nil {
		return nil, false
	}
	limit := cfg.MaxUnwrap
	if limit <= 0 {
		limit = config.DefaultMaxUnwrap
	}
	key := cacheKey{t: t, maxUnwrap: int16(limit)}
	if v, ok := s.cache.Load(key); ok {
		return v.(*iotype.IOType), true
	}

	typ := s.byType(t, limit)
	if typ == nil {
		return nil, false
	}
	// Only successes are cached: a miss may turn into a hit once the
	// element type gets registered.
	s.cache.Store(key, typ)
	return typ, true
}

func (s *kindStrategy) byType(t reflect.Type, depth int) *iotype.IOType {
	switch t.Kind() {
	case reflect.Bool:
		return iotype.BooleanIO
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return iotype.NumberIO
	case reflect.String:
		return iotype.StringIO
	case reflect.Slice, reflect.Array:
		if elem := s.elem(t.Elem(), depth); elem != nil {
			return iotype.ArrayIO(elem)
		}
	case reflect.Ptr:
		if elem := s.elem(t.Elem(), depth); elem != nil {
			return iotype.NullableIO(elem)
		}
	}
	return nil
}

// elem resolves a container element, preferring registered types.
func (s *kindStrategy) elem(t reflect.Type, depth int) *iotype.IOType {
	if depth <= 0 {
		return nil
	}
	if s.reg != nil {
		if typ, ok := s.reg.Lookup(t); ok {
			return typ
		}
	}
	return s.byType(t, depth-1)
}
