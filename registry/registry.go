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

package registry

import (
	"errors"
	"reflect"
	"sync"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/config"
	"dirpx.dev/phetio/iotype"
	uref "dirpx.dev/phetio/utils/reflect"
)

var (
	// ErrNilType is returned when a nil reflect.Type is provided.
	ErrNilType = errors.New("phetio(registry): nil reflect.Type provided")
	// ErrNilIOType is returned when a nil IO type is provided.
	ErrNilIOType = errors.New("phetio(registry): nil IO type provided")
	// ErrConflictingRegistration indicates an attempt to re-register
	// a Go type with a different IO type.
	ErrConflictingRegistration = errors.New("phetio(registry): conflicting type registration")
	// ErrDuplicateTypeName indicates two distinct IO types share a name.
	// Names tag the wire format, so they must be unique.
	ErrDuplicateTypeName = errors.New("phetio(registry): duplicate IO type name")
)

// New constructs a Registry that normalizes types according to cfg.
// Only MaxUnwrap is used here.
func New(cfg apis.Config) apis.Registry {
	if cfg.MaxUnwrap <= 0 {
		cfg.MaxUnwrap = config.DefaultMaxUnwrap
	}
	return &registry{cfg: cfg, names: make(map[string]*iotype.IOType)}
}

// registry is a simple Registry implementation backed by sync.Map.
type registry struct {
	// cfg is the configuration used for type normalization.
	cfg apis.Config
	// mu guards write-side consistency, names and count.
	mu sync.Mutex
	// m maps reflect.Type to its IO type.
	m sync.Map // map[reflect.Type]*iotype.IOType
	// names maps IO type names to types.
	names map[string]*iotype.IOType
	// count tracks the number of registered entries.
	count int
}

// Register associates the normalized type of t with typ.
// It is idempotent for the same (type, IO type) pair.
func (r *registry) Register(t reflect.Type, typ *iotype.IOType) error {
	if t == nil {
		return ErrNilType
	}
	if typ == nil {
		return ErrNilIOType
	}

	b, err := uref.Normalize(t, r.cfg)
	if err != nil {
		return err
	}

	// Fast read path: idempotency / conflict check without locking.
	if old, ok := r.m.Load(b); ok {
		if old.(*iotype.IOType) == typ {
			return nil
		}
		return ErrConflictingRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under lock in case another goroutine stored meanwhile.
	if old, ok := r.m.Load(b); ok {
		if old.(*iotype.IOType) == typ {
			return nil
		}
		return ErrConflictingRegistration
	}
	if other, ok := r.names[typ.Name()]; ok && other != typ {
		return ErrDuplicateTypeName
	}

	r.m.Store(b, typ)
	r.names[typ.Name()] = typ
	r.count++
	return nil
}

// Lookup returns the IO type for t if present.
func (r *registry) Lookup(t reflect.Type) (*iotype.IOType, bool) {
	if t == nil {
		return nil, false
	}
	nt, err := uref.Normalize(t, r.cfg)
	if err != nil {
		return nil, false
	}
	if v, ok := r.m.Load(nt); ok {
		return v.(*iotype.IOType), true
	}
	return nil, false
}

// LookupName returns a registered IO type by name.
func (r *registry) LookupName(name string) (*iotype.IOType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	typ, ok := r.names[name]
	return typ, ok
}

// Entries returns a snapshot for diagnostics/docs (order is unspecified).
func (r *registry) Entries() []apis.Entry {
	entries := make([]apis.Entry, 0, r.Count())
	r.m.Range(func(key, value any) bool {
		entries = append(entries, apis.Entry{
			Type:   key.(reflect.Type),
			IOType: value.(*iotype.IOType),
		})
		return true
	})
	return entries
}

// Count returns the number of registered entries.
func (r *registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Reset clears all registered entries.
func (r *registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Range(func(k, _ any) bool {
		r.m.Delete(k)
		return true
	})
	r.names = make(map[string]*iotype.IOType)
	r.count = 0
}
