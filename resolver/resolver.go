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

package resolver

import (
	"reflect"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/iotype"
)

// New constructs an apis.Resolver that tries the given strategies in order.
// Nil strategies are ignored. The returned resolver is safe for concurrent use
// provided strategies themselves are safe for concurrent TryResolve calls.
func New(strategies ...apis.Strategy) apis.Resolver {
	// Filter out nils to avoid nil-interface panics on call sites.
	out := make([]apis.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			out = append(out, s)
		}
	}
	return chain{strats: out}
}

// chain is an immutable, order-preserving resolver over a set of strategies.
type chain struct {
	strats []apis.Strategy
}

// Resolve returns the first IO type a strategy reports for v, or nil.
func (r chain) Resolve(v any, cfg apis.Config) *iotype.IOType {
	for _, s := range r.strats {
		if typ, ok := s.TryResolve(v, cfg); ok {
			return typ
		}
	}
	return nil
}

// ResolveType returns the first IO type a strategy reports for t, or nil.
func (r chain) ResolveType(t reflect.Type, cfg apis.Config) *iotype.IOType {
	for _, s := range r.strats {
		if typ, ok := s.TryResolveType(t, cfg); ok {
			return typ
		}
	}
	return nil
}

// ResolveOr returns the IO type for v, or fallback when res cannot
// determine one. A nil res always yields fallback.
func ResolveOr(res apis.Resolver, v any, cfg apis.Config, fallback *iotype.IOType) *iotype.IOType {
	if res == nil {
		return fallback
	}
	if typ := res.Resolve(v, cfg); typ != nil {
		return typ
	}
	return fallback
}
