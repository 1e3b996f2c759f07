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

// Registry maps Go types to IO types. Keep it minimal so implementations can
// be lock-free or sync.Map-backed.
type Registry interface {
	// Register associates a (normalized) reflect.Type with an IO type.
	// Implementations should be idempotent; conflicting re-registrations fail.
	Register(t reflect.Type, typ *iotype.IOType) error
	// Lookup returns the IO type registered for t.
	Lookup(t reflect.Type) (typ *iotype.IOType, ok bool)
	// LookupName returns a registered IO type by name.
	LookupName(name string) (typ *iotype.IOType, ok bool)
	// Entries returns a snapshot for diagnostics/docs (order is unspecified).
	Entries() []Entry
	// Count returns the number of registered entries.
	Count() int
	// Reset clears all registered entries.
	Reset()
}

// Entry is a single (Go type, IO type) association in a Registry snapshot.
type Entry struct {
	// Type is the registered reflect.Type.
	Type reflect.Type
	// IOType is the associated IO type.
	IOType *iotype.IOType
}
