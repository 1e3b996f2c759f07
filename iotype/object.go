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
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/Masterminds/semver/v3"
)

// ObjectIO is the root of every IO type. Its state conversions are the
// identity: the state object is already the desired value.
var ObjectIO = &IOType{
	name:          "ObjectIO",
	documentation: "The root of all IO types.",
	methods:       map[string]Method{},
	version:       semver.MustParse(DefaultVersion),
	toState:       func(v any) (any, error) { return v, nil },
	fromState:     func(state any, _ References) (any, error) { return state, nil },
}

// VoidIO types the absence of a value, used for method return types.
var VoidIO = MustNew(Options{
	Name:          "VoidIO",
	Documentation: "Type for which there is no instance, usually to mark functions without a return value.",
	Validator: func(v any) error {
		if v != nil {
			return fmt.Errorf("expected no value, got %T", v)
		}
		return nil
	},
	ToStateObject:   func(any) (any, error) { return nil, nil },
	FromStateObject: func(any, References) (any, error) { return nil, nil },
})

// NumberIO wraps Go numeric values. State objects are float64; non-finite
// values are encoded as the strings "Infinity", "-Infinity" and "NaN"
// because JSON cannot carry them.
var NumberIO = MustNew(Options{
	Name:          "NumberIO",
	Documentation: "Wrapper for the built-in numeric types.",
	Validator: func(v any) error {
		if _, ok := toFloat(v); !ok {
			return fmt.Errorf("expected a number, got %T", v)
		}
		return nil
	},
	ToStateObject: func(v any) (any, error) {
		f, _ := toFloat(v)
		switch {
		case math.IsInf(f, 1):
			return "Infinity", nil
		case math.IsInf(f, -1):
			return "-Infinity", nil
		case math.IsNaN(f):
			return "NaN", nil
		}
		return f, nil
	},
	FromStateObject: func(state any, _ References) (any, error) {
		switch s := state.(type) {
		case string:
			switch s {
			case "Infinity":
				return math.Inf(1), nil
			case "-Infinity":
				return math.Inf(-1), nil
			case "NaN":
				return math.NaN(), nil
			}
			return nil, fmt.Errorf("%w: NumberIO got %q", ErrInvalidState, s)
		case json.Number:
			f, err := s.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: NumberIO: %v", ErrInvalidState, err)
			}
			return f, nil
		}
		if f, ok := toFloat(state); ok {
			return f, nil
		}
		return nil, fmt.Errorf("%w: NumberIO got %T", ErrInvalidState, state)
	},
})

// StringIO wraps Go strings.
var StringIO = MustNew(Options{
	Name:          "StringIO",
	Documentation: "Wrapper for the built-in string type.",
	Validator: func(v any) error {
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected a string, got %T", v)
		}
		return nil
	},
	ToStateObject: func(v any) (any, error) { return v, nil },
	FromStateObject: func(state any, _ References) (any, error) {
		s, ok := state.(string)
		if !ok {
			return nil, fmt.Errorf("%w: StringIO got %T", ErrInvalidState, state)
		}
		return s, nil
	},
})

// BooleanIO wraps Go booleans.
var BooleanIO = MustNew(Options{
	Name:          "BooleanIO",
	Documentation: "Wrapper for the built-in boolean type.",
	Validator: func(v any) error {
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected a bool, got %T", v)
		}
		return nil
	},
	ToStateObject: func(v any) (any, error) { return v, nil },
	FromStateObject: func(state any, _ References) (any, error) {
		b, ok := state.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: BooleanIO got %T", ErrInvalidState, state)
		}
		return b, nil
	},
})

func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
