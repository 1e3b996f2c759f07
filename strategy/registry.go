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

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/iotype"
)

// NewRegistryStrategy returns a strategy answering from explicit Go type to
// IO type registrations. Pointer and value types share an entry because the
// registry normalizes keys.
func NewRegistryStrategy(reg apis.Registry) apis.Strategy {
	return registryStrategy{reg: reg}
}

type registryStrategy struct {
	reg apis.Registry
}

var _ apis.Strategy = registryStrategy{}

func (s registryStrategy) TryResolve(v any, cfg apis.Config) (*iotype.IOType, bool) {
	if v == nil {
		return nil, false
	}
	return s.TryResolveType(reflect.TypeOf(v), cfg)
}

func (s registryStrategy) TryResolveType(t reflect.Type, _ apis.Config) (*iotype.IOType, bool) {
	if t == nil || s.reg == nil {
		return nil, false
	}
	return s.reg.Lookup(t)
}
