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

package apis

import (
	"reflect"

	"dirpx.dev/phetio/iotype"
)

// Strategy is a pluggable resolution step. A Resolver can chain multiple
// strategies in order (e.g., Typed -> Registry -> Kind).
type Strategy interface {
	// TryResolve attempts to resolve an IO type for value v according to cfg.
	// It returns (typ, true) if handled; otherwise (nil, false) to fall through.
	TryResolve(v any, cfg Config) (typ *iotype.IOType, handled bool)

	// TryResolveType attempts to resolve an IO type for the reflect.Type t.
	TryResolveType(t reflect.Type, cfg Config) (typ *iotype.IOType, handled bool)
}

// Typed is implemented by values that know their own IO type. It is the
// zero-reflection fast path of resolution.
type Typed interface {
	PhetioType() *iotype.IOType
}
