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

// Package property provides Property, an instrumented observable value.
package property

import (
	"errors"
	"fmt"
	"reflect"

	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioobject"
)

// ErrNoValueType is returned when no IO type could be found for the value.
var ErrNoValueType = errors.New("phetio(property): cannot determine value type")

// valueHolder is the non-generic view of a Property that PropertyIO uses.
type valueHolder interface {
	getAny() any
	setAny(v any) error
}

// PropertyIO is the IO type of a property holding values of type value.
// The state object is {"value": <value state>}.
func PropertyIO(value *iotype.IOType) *iotype.IOType {
	name := iotype.ParametricName("PropertyIO", value)
	return iotype.Parametric(name, func() (*iotype.IOType, error) {
		return iotype.New(iotype.Options{
			Name:           name,
			Documentation:  "Observable value that notifies listeners when it changes.",
			ParameterTypes: []*iotype.IOType{value},
			Events:         []string{"changed"},
			Validator: func(v any) error {
				if _, ok := v.(valueHolder); !ok {
					return fmt.Errorf("expected a property, got %T", v)
				}
				return nil
			},
			ToStateObject: func(v any) (any, error) {
				s, err := value.ToStateObject(v.(valueHolder).getAny())
				if err != nil {
					return nil, err
				}
				return map[string]any{"value": s}, nil
			},
			ApplyState: func(obj any, state any, refs iotype.References) error {
				m, ok := state.(map[string]any)
				if !ok {
					return fmt.Errorf("%w: %s got %T", iotype.ErrInvalidState, name, state)
				}
				v, err := value.FromStateObject(m["value"], refs)
				if err != nil {
					return err
				}
				return obj.(valueHolder).setAny(v)
			},
			Methods: map[string]iotype.Method{
				"getValue": {
					ReturnType:                   value,
					ParameterTypes:               []*iotype.IOType{},
					Documentation:                "Gets the current value.",
					InvocableForReadOnlyElements: true,
					Implementation: func(obj any, _ ...any) (any, error) {
						return obj.(valueHolder).getAny(), nil
					},
				},
				"setValue": {
					ReturnType:     iotype.VoidIO,
					ParameterTypes: []*iotype.IOType{value},
					Documentation:  "Sets the value.",
					Implementation: func(obj any, args ...any) (any, error) {
						return nil, obj.(valueHolder).setAny(args[0])
					},
				},
			},
		})
	})
}

// Options configures a Property.
type Options struct {
	phetioobject.Options
	// ValueType is resolved from the initial value when nil.
	ValueType *iotype.IOType
	// Equal compares values; reflect.DeepEqual when nil.
	Equal func(a, b any) bool
}

// Property is an instrumented value with change listeners. Setting an equal
// value is a no-op. It is not safe for concurrent use.
type Property[T any] struct {
	phetioobject.PhetioObject

	value     T
	initial   T
	valueType *iotype.IOType
	equal     func(a, b any) bool
	listeners map[int]func(newValue, oldValue T)
	order     []int
	seq       int
}

// New constructs a Property. The PhetioType is PropertyIO(ValueType).
func New[T any](initial T, opts Options) (*Property[T], error) {
	p := &Property[T]{
		value:     initial,
		initial:   initial,
		equal:     opts.Equal,
		listeners: make(map[int]func(T, T)),
	}
	if p.equal == nil {
		p.equal = reflect.DeepEqual
	}
	if opts.Tandem == nil {
		return nil, phetioobject.ErrNilTandem
	}
	vt := opts.ValueType
	if vt == nil {
		vt = opts.Tandem.Registry().Resolve(initial)
	}
	if vt == nil {
		vt = opts.Tandem.Registry().ResolveType(reflect.TypeOf((*T)(nil)).Elem())
	}
	if vt == nil {
		return nil, fmt.Errorf("%w: %T", ErrNoValueType, initial)
	}
	p.valueType = vt

	po := opts.Options
	po.PhetioType = PropertyIO(vt)
	if err := p.Initialize(p, po); err != nil {
		return nil, err
	}
	if p.Registry().Config().Validation {
		if err := vt.Validate(initial); err != nil {
			return nil, errors.Join(err, p.Dispose())
		}
	}
	return p, nil
}

// ValueType returns the IO type of the value.
func (p *Property[T]) ValueType() *iotype.IOType { return p.valueType }

// Get returns the current value.
func (p *Property[T]) Get() T { return p.value }

// Set changes the value and notifies listeners inside a "changed" event.
func (p *Property[T]) Set(v T) error {
	if p.Disposed() {
		return fmt.Errorf("%w: %s", phetioobject.ErrAlreadyDisposed, p.PhetioID())
	}
	if p.Registry().Config().Validation {
		if err := p.valueType.Validate(v); err != nil {
			return fmt.Errorf("%s: %w", p.PhetioID(), err)
		}
	}
	old := p.value
	if p.equal(old, v) {
		return nil
	}

	err := p.StartEvent("changed", phetioobject.WithDataFunc(func() map[string]any {
		data := map[string]any{}
		if s, err := p.valueType.ToStateObject(old); err == nil {
			data["oldValue"] = s
		}
		if s, err := p.valueType.ToStateObject(v); err == nil {
			data["newValue"] = s
		}
		return data
	}))
	if err != nil {
		return err
	}
	p.value = v
	for _, id := range append([]int(nil), p.order...) {
		if fn, ok := p.listeners[id]; ok {
			fn(v, old)
		}
	}
	return p.EndEvent()
}

// Reset sets the initial value again.
func (p *Property[T]) Reset() error { return p.Set(p.initial) }

// Link calls fn with the current value now and on every change. The
// returned function removes the listener.
func (p *Property[T]) Link(fn func(newValue, oldValue T)) (unlink func()) {
	unlink = p.LazyLink(fn)
	var zero T
	fn(p.value, zero)
	return unlink
}

// LazyLink calls fn on every change. The returned function removes the listener.
func (p *Property[T]) LazyLink(fn func(newValue, oldValue T)) (unlink func()) {
	id := p.seq
	p.seq++
	p.listeners[id] = fn
	p.order = append(p.order, id)
	return func() {
		delete(p.listeners, id)
		for i, x := range p.order {
			if x == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

func (p *Property[T]) getAny() any { return p.value }

// setAny converts v to T. State decoding yields canonical Go types: a
// float64 from NumberIO becomes an int for Property[int], []any from
// ArrayIO becomes the slice type, and NullableIO values are re-allocated
// behind a pointer.
func (p *Property[T]) setAny(v any) error {
	if t, ok := v.(T); ok {
		return p.Set(t)
	}
	var t T
	out := reflect.ValueOf(&t).Elem()
	rv, err := convert(v, out.Type())
	if err != nil {
		return fmt.Errorf("%w: %s cannot hold %T: %v", iotype.ErrInvalidValue, p.PhetioID(), v, err)
	}
	out.Set(rv)
	return p.Set(t)
}

// convert builds a value of type target from a decoded state value.
func convert(v any, target reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch target.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, fmt.Errorf("nil for %v", target)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target) {
		out := reflect.New(target).Elem()
		out.Set(rv)
		return out, nil
	}

	switch target.Kind() {
	case reflect.Ptr:
		elem, err := convert(v, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			break
		}
		n := rv.Len()
		var out reflect.Value
		if target.Kind() == reflect.Slice {
			out = reflect.MakeSlice(target, n, n)
		} else {
			if n != target.Len() {
				return reflect.Value{}, fmt.Errorf("%d elements for %v", n, target)
			}
			out = reflect.New(target).Elem()
		}
		for i := 0; i < n; i++ {
			elem, err := convert(rv.Index(i).Interface(), target.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	case reflect.String:
		// int to string conversion would yield a rune, not a decimal.
		if rv.Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("%T for %v", v, target)
		}
	}
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("%T for %v", v, target)
}
