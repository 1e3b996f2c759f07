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
	"reflect"
	"strings"
	"sync"
)

// Cache memoizes parametric IO types by their synthesized name, which is
// derived only from parameter type names. Two lookups with the same key
// return the same *IOType.
type Cache struct {
	mu sync.Mutex
	m  map[string]*IOType
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]*IOType)}
}

// Load returns the cached type for key, building and storing it on a miss.
// build runs without the lock held so it may construct other parametric
// types; if two builders race, the first stored result wins.
func (c *Cache) Load(key string, build func() (*IOType, error)) (*IOType, error) {
	c.mu.Lock()
	if t, ok := c.m[key]; ok {
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	t, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.m[key]; ok {
		return old, nil
	}
	c.m[key] = t
	return t, nil
}

// Len returns the number of cached types.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Types returns the cached types in no particular order.
func (c *Cache) Types() []*IOType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*IOType, 0, len(c.m))
	for _, t := range c.m {
		out = append(out, t)
	}
	return out
}

var (
	cacheMu      sync.RWMutex
	defaultCache = NewCache()
)

// DefaultCache returns the process-wide parametric type cache.
func DefaultCache() *Cache {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	return defaultCache
}

// ResetCache drops every memoized parametric type. Types obtained before the
// reset stay valid but are no longer identical to newly built ones.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	defaultCache = NewCache()
}

// Parametric memoizes build under key in the default cache and panics on a
// definition error, which is a programming mistake in the factory.
func Parametric(key string, build func() (*IOType, error)) *IOType {
	t, err := DefaultCache().Load(key, build)
	if err != nil {
		panic(err)
	}
	return t
}

// ParametricName formats "Factory(P1,P2)".
func ParametricName(factory string, params ...*IOType) string {
	names := make([]string, len(params))
	for i, p := range params {
		if p == nil {
			panic(fmt.Errorf("%w: %s parameter %d", ErrNilParameterType, factory, i))
		}
		names[i] = p.Name()
	}
	return factory + "(" + strings.Join(names, ",") + ")"
}

// NullableIO wraps a type so nil is also a valid value.
func NullableIO(param *IOType) *IOType {
	name := ParametricName("NullableIO", param)
	return Parametric(name, func() (*IOType, error) {
		return New(Options{
			Name:           name,
			Documentation:  "A wrapper for another IO type that also allows null values.",
			ParameterTypes: []*IOType{param},
			Validator: func(v any) error {
				if isNil(v) {
					return nil
				}
				return param.Validate(deref(param, v))
			},
			ToStateObject: func(v any) (any, error) {
				if isNil(v) {
					return nil, nil
				}
				return param.ToStateObject(deref(param, v))
			},
			FromStateObject: func(state any, refs References) (any, error) {
				if state == nil {
					return nil, nil
				}
				return param.FromStateObject(state, refs)
			},
		})
	})
}

// deref returns the value v points to when param accepts that value but not
// the pointer itself. Types whose values are pointers, such as instrumented
// elements, keep the pointer.
func deref(param *IOType, v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || param.IsValid(v) {
		return v
	}
	return rv.Elem().Interface()
}

// ArrayIO describes a sequence of param values. State objects are []any.
func ArrayIO(param *IOType) *IOType {
	name := ParametricName("ArrayIO", param)
	return Parametric(name, func() (*IOType, error) {
		return New(Options{
			Name:           name,
			Documentation:  "A sequence of values of the parameter type.",
			ParameterTypes: []*IOType{param},
			Validator: func(v any) error {
				rv := reflect.ValueOf(v)
				if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
					return fmt.Errorf("expected a slice, got %T", v)
				}
				for i := 0; i < rv.Len(); i++ {
					if err := param.Validate(rv.Index(i).Interface()); err != nil {
						return fmt.Errorf("element %d: %w", i, err)
					}
				}
				return nil
			},
			ToStateObject: func(v any) (any, error) {
				rv := reflect.ValueOf(v)
				out := make([]any, rv.Len())
				for i := range out {
					s, err := param.ToStateObject(rv.Index(i).Interface())
					if err != nil {
						return nil, fmt.Errorf("element %d: %w", i, err)
					}
					out[i] = s
				}
				return out, nil
			},
			FromStateObject: func(state any, refs References) (any, error) {
				list, ok := state.([]any)
				if !ok {
					return nil, fmt.Errorf("%w: %s got %T", ErrInvalidState, name, state)
				}
				out := make([]any, len(list))
				for i, s := range list {
					v, err := param.FromStateObject(s, refs)
					if err != nil {
						return nil, fmt.Errorf("element %d: %w", i, err)
					}
					out[i] = v
				}
				return out, nil
			},
		})
	})
}

// FunctionIO describes a callable with the given signature. Functions have
// no state form; the type exists for method and event documentation.
func FunctionIO(returnType *IOType, params ...*IOType) *IOType {
	if returnType == nil {
		panic(fmt.Errorf("%w: FunctionIO return type", ErrNilParameterType))
	}
	name := ParametricName("FunctionIO", params...) + "=>" + returnType.Name()
	return Parametric(name, func() (*IOType, error) {
		return New(Options{
			Name:           name,
			Documentation:  "A function with the given parameter and return types. Functions do not serialize.",
			ParameterTypes: append(append([]*IOType{}, params...), returnType),
			OneWay:         true,
			Validator: func(v any) error {
				rt := reflect.TypeOf(v)
				if v == nil || rt.Kind() != reflect.Func {
					return fmt.Errorf("expected a function, got %T", v)
				}
				if !rt.IsVariadic() && rt.NumIn() != len(params) {
					return fmt.Errorf("expected %d parameters, got %d", len(params), rt.NumIn())
				}
				return nil
			},
			ToStateObject: func(any) (any, error) {
				return nil, fmt.Errorf("%w: %s", ErrNotSerializable, name)
			},
		})
	})
}

// Identified is implemented by instrumented values that ReferenceIO can
// serialize by phetioID.
type Identified interface {
	PhetioID() string
}

// ReferenceIO serializes an instrumented value as {"phetioID": id} and
// resolves it through References. A missing referent is retryable.
func ReferenceIO(param *IOType) *IOType {
	name := ParametricName("ReferenceIO", param)
	return Parametric(name, func() (*IOType, error) {
		return New(Options{
			Name:           name,
			Documentation:  "Uses reference identity to serialize and deserialize an instrumented element.",
			ParameterTypes: []*IOType{param},
			Validator: func(v any) error {
				if _, ok := v.(Identified); !ok {
					return fmt.Errorf("expected an identified element, got %T", v)
				}
				return param.Validate(v)
			},
			ToStateObject: func(v any) (any, error) {
				return map[string]any{"phetioID": v.(Identified).PhetioID()}, nil
			},
			FromStateObject: func(state any, refs References) (any, error) {
				m, ok := state.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: %s got %T", ErrInvalidState, name, state)
				}
				id, ok := m["phetioID"].(string)
				if !ok || id == "" {
					return nil, fmt.Errorf("%w: %s missing phetioID", ErrInvalidState, name)
				}
				if refs == nil {
					return nil, NotYetDeserializable(id)
				}
				v, ok := refs.Lookup(id)
				if !ok {
					return nil, NotYetDeserializable(id)
				}
				return v, nil
			},
		})
	})
}
