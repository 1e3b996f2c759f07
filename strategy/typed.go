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

// NewTypedStrategy returns a strategy that asks values for their own IO type
// via apis.Typed.
func NewTypedStrategy() apis.Strategy {
	return &typedStrategy{}
}

type typedStrategy struct{}

var _ apis.Strategy = (*typedStrategy)(nil)

func (*typedStrategy) TryResolve(v any, _ apis.Config) (*iotype.IOType, bool) {
	if v == nil {
		return nil, false
	}
	if tv, ok := v.(apis.Typed); ok {
		if typ := tv.PhetioType(); typ != nil {
			return typ, true
		}
	}
	return nil, false
}

func (*typedStrategy) TryResolveType(_ reflect.Type, _ apis.Config) (*iotype.IOType, bool) {
	// No instance -> cannot use Typed.
	return nil, false
}
