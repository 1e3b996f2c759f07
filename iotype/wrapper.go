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

package iotype

import (
	"fmt"
)

// Wrapper adapts one instrumented instance to its IO type: (instance, id) -> wrapper.
type Wrapper struct {
	typ      *IOType
	instance any
	phetioID string
	readOnly bool
	disposed bool
}

// NewWrapper binds instance to t under phetioID.
func NewWrapper(t *IOType, instance any, phetioID string, readOnly bool) *Wrapper {
	return &Wrapper{typ: t, instance: instance, phetioID: phetioID, readOnly: readOnly}
}

// Type returns the wrapper's IO type.
func (w *Wrapper) Type() *IOType { return w.typ }

// Instance returns the wrapped value.
func (w *Wrapper) Instance() any { return w.instance }

// PhetioID returns the id the wrapper was created for.
func (w *Wrapper) PhetioID() string { return w.phetioID }

// ToStateObject serializes the wrapped instance.
func (w *Wrapper) ToStateObject() (any, error) {
	if w.disposed {
		return nil, fmt.Errorf("%w: %s", ErrDisposed, w.phetioID)
	}
	return w.typ.ToStateObject(w.instance)
}

// ApplyState sets state on the wrapped instance.
func (w *Wrapper) ApplyState(state any, refs References) error {
	if w.disposed {
		return fmt.Errorf("%w: %s", ErrDisposed, w.phetioID)
	}
	return w.typ.ApplyState(w.instance, state, refs)
}

// Invoke calls a method from the type's merged table. Arguments and the
// return value are validated against the declared types.
func (w *Wrapper) Invoke(name string, args ...any) (any, error) {
	if w.disposed {
		return nil, fmt.Errorf("%w: %s", ErrDisposed, w.phetioID)
	}
	m, ok := w.typ.Method(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, w.typ.Name(), name)
	}
	if w.readOnly && !m.InvocableForReadOnlyElements {
		return nil, fmt.Errorf("%w: %s.%s on %s", ErrReadOnly, w.typ.Name(), name, w.phetioID)
	}
	if len(args) != len(m.ParameterTypes) {
		return nil, fmt.Errorf("%w: %s.%s wants %d, got %d",
			ErrArgumentCount, w.typ.Name(), name, len(m.ParameterTypes), len(args))
	}
	for i, p := range m.ParameterTypes {
		if err := p.Validate(args[i]); err != nil {
			return nil, fmt.Errorf("%s.%s argument %d: %w", w.typ.Name(), name, i, err)
		}
	}
	out, err := m.Implementation(w.instance, args...)
	if err != nil {
		return nil, err
	}
	if err := m.ReturnType.Validate(out); err != nil {
		return nil, fmt.Errorf("%s.%s return value: %w", w.typ.Name(), name, err)
	}
	return out, nil
}

// Dispose releases the instance. Later calls fail with ErrDisposed.
func (w *Wrapper) Dispose() {
	w.disposed = true
	w.instance = nil
}

// Disposed reports whether Dispose was called.
func (w *Wrapper) Disposed() bool { return w.disposed }
