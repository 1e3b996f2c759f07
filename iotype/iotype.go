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

// Package iotype defines IO types: named, versioned descriptors that tell
// external tooling how to serialize, deserialize, validate and invoke
// methods on a class of instrumented values.
//
// Every IO type derives from ObjectIO. Method tables, events and
// serialization hooks are merged down the supertype chain once, when the
// type is constructed, so lookups never walk the chain at call time.
package iotype

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// DefaultVersion is used when Options.Version is empty.
const DefaultVersion = "1.0.0"

// References resolves phetioIDs to live instrumented values while decoding
// state objects. tandem.Registry implements it.
type References interface {
	Lookup(phetioID string) (any, bool)
}

type (
	// ValidatorFunc reports why v is not a valid value, or nil.
	ValidatorFunc func(v any) error
	// ToStateFunc converts a value into its wire-safe state object.
	ToStateFunc func(v any) (any, error)
	// FromStateFunc converts a state object back into a value.
	FromStateFunc func(state any, refs References) (any, error)
	// StateToArgsFunc derives constructor arguments for a dynamic element.
	StateToArgsFunc func(state any, refs References) ([]any, error)
	// ApplyStateFunc sets state on an existing instance.
	ApplyStateFunc func(obj any, state any, refs References) error
	// MethodFunc implements a method on obj.
	MethodFunc func(obj any, args ...any) (any, error)
)

// Method is a single entry of an IO type's method table.
type Method struct {
	// ReturnType is the IO type of the return value. Use VoidIO for none.
	ReturnType *IOType
	// ParameterTypes lists the IO type of each argument. It must be non-nil,
	// use an empty slice for methods without arguments.
	ParameterTypes []*IOType
	// Implementation is called with the wrapped instance.
	Implementation MethodFunc
	// Documentation describes the method for tooling.
	Documentation string
	// InvocableForReadOnlyElements allows calling the method on read-only elements.
	InvocableForReadOnlyElements bool
}

// Options describes an IO type to New.
type Options struct {
	Name string
	// Supertype defaults to ObjectIO.
	Supertype     *IOType
	Documentation string
	Events        []string
	Methods       map[string]Method
	// ValueType, when set, requires values to be assignable to it.
	ValueType reflect.Type
	Validator ValidatorFunc

	ToStateObject             ToStateFunc
	FromStateObject           FromStateFunc
	StateToArgsForConstructor StateToArgsFunc
	ApplyState                ApplyStateFunc

	// ParameterTypes is set by parametric constructors.
	ParameterTypes []*IOType
	// Version is a semantic version, DefaultVersion if empty.
	Version string
	// OneWay marks a type that serializes but never deserializes.
	OneWay bool
}

// IOType is an immutable descriptor. Identity matters: parametric types are
// memoized so equal parameters yield the same *IOType.
type IOType struct {
	name          string
	supertype     *IOType
	documentation string
	events        []string
	methods       map[string]Method
	valueType     reflect.Type
	validator     ValidatorFunc
	toState       ToStateFunc
	fromState     FromStateFunc
	stateToArgs   StateToArgsFunc
	applyState    ApplyStateFunc
	params        []*IOType
	version       *semver.Version
	oneWay        bool
}

// New validates opts and builds an IO type. All definition errors are
// reported here, never at call time.
func New(opts Options) (*IOType, error) {
	if opts.Name == "" {
		return nil, ErrMissingName
	}
	if opts.Documentation == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingDocumentation, opts.Name)
	}
	for i, p := range opts.ParameterTypes {
		if p == nil {
			return nil, fmt.Errorf("%w: %s parameter %d", ErrNilParameterType, opts.Name, i)
		}
	}
	for name, m := range opts.Methods {
		if err := validateMethod(name, m); err != nil {
			return nil, fmt.Errorf("%s: %w", opts.Name, err)
		}
	}

	ver := opts.Version
	if ver == "" {
		ver = DefaultVersion
	}
	v, err := semver.NewVersion(ver)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidVersion, opts.Name, ver, err)
	}

	super := opts.Supertype
	if super == nil {
		super = ObjectIO
	}

	t := &IOType{
		name:          opts.Name,
		supertype:     super,
		documentation: opts.Documentation,
		valueType:     opts.ValueType,
		validator:     opts.Validator,
		toState:       opts.ToStateObject,
		fromState:     opts.FromStateObject,
		stateToArgs:   opts.StateToArgsForConstructor,
		applyState:    opts.ApplyState,
		params:        append([]*IOType(nil), opts.ParameterTypes...),
		version:       v,
		oneWay:        opts.OneWay,
		methods:       make(map[string]Method),
	}

	// Merge tables and hooks down the chain.
	if super != nil {
		for name, m := range super.methods {
			t.methods[name] = m
		}
		t.events = append(t.events, super.events...)
		if t.toState == nil {
			t.toState = super.toState
		}
		if t.fromState == nil && !t.oneWay {
			t.fromState = super.fromState
		}
		if t.stateToArgs == nil {
			t.stateToArgs = super.stateToArgs
		}
		if t.applyState == nil {
			t.applyState = super.applyState
		}
	}
	for name, m := range opts.Methods {
		m.ParameterTypes = append([]*IOType{}, m.ParameterTypes...)
		t.methods[name] = m
	}
	for _, e := range opts.Events {
		if !contains(t.events, e) {
			t.events = append(t.events, e)
		}
	}
	return t, nil
}

// MustNew is New that panics on a definition error.
func MustNew(opts Options) *IOType {
	t, err := New(opts)
	if err != nil {
		panic(err)
	}
	return t
}

func validateMethod(name string, m Method) error {
	switch {
	case m.ReturnType == nil:
		return fmt.Errorf("%w: %s: missing return type", ErrInvalidMethod, name)
	case m.Implementation == nil:
		return fmt.Errorf("%w: %s: missing implementation", ErrInvalidMethod, name)
	case m.ParameterTypes == nil:
		return fmt.Errorf("%w: %s: missing parameter types", ErrInvalidMethod, name)
	case m.Documentation == "":
		return fmt.Errorf("%w: %s: missing documentation", ErrInvalidMethod, name)
	}
	for i, p := range m.ParameterTypes {
		if p == nil {
			return fmt.Errorf("%w: %s: parameter %d is nil", ErrInvalidMethod, name, i)
		}
	}
	return nil
}

// Name returns the type name, for example "NullableIO(NumberIO)".
func (t *IOType) Name() string { return t.name }

// String implements fmt.Stringer.
func (t *IOType) String() string { return t.name }

// Documentation returns the type documentation.
func (t *IOType) Documentation() string { return t.documentation }

// Supertype returns the parent type, nil only for ObjectIO.
func (t *IOType) Supertype() *IOType { return t.supertype }

// Version returns the semantic version of the type.
func (t *IOType) Version() *semver.Version { return t.version }

// IsOneWay reports whether the type only serializes.
func (t *IOType) IsOneWay() bool { return t.oneWay }

// Events returns the merged event names.
func (t *IOType) Events() []string { return append([]string(nil), t.events...) }

// ParameterTypes returns the parameters of a parametric type.
func (t *IOType) ParameterTypes() []*IOType { return append([]*IOType(nil), t.params...) }

// Method returns the named method from the merged table.
func (t *IOType) Method(name string) (Method, bool) {
	m, ok := t.methods[name]
	return m, ok
}

// MethodNames returns the merged method names, sorted.
func (t *IOType) MethodNames() []string {
	names := make([]string, 0, len(t.methods))
	for name := range t.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extends reports whether t is other or derives from it.
func (t *IOType) Extends(other *IOType) bool {
	for c := t; c != nil; c = c.supertype {
		if c == other {
			return true
		}
	}
	return false
}

// HasApplyState reports whether instances of t can receive state.
func (t *IOType) HasApplyState() bool { return t.applyState != nil }

// HasStateToArgs reports whether t can derive constructor arguments.
func (t *IOType) HasStateToArgs() bool { return t.stateToArgs != nil }

// Validate checks v against the supertype chain, then against t.
func (t *IOType) Validate(v any) error {
	if t.supertype != nil {
		if err := t.supertype.Validate(v); err != nil {
			return err
		}
	}
	if t.valueType != nil {
		if v == nil || !reflect.TypeOf(v).AssignableTo(t.valueType) {
			return fmt.Errorf("%w: %s expects %v, got %T", ErrInvalidValue, t.name, t.valueType, v)
		}
	}
	if t.validator != nil {
		if err := t.validator(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, t.name, err)
		}
	}
	return nil
}

// IsValid is Validate reduced to a boolean.
func (t *IOType) IsValid(v any) bool { return t.Validate(v) == nil }

// ToStateObject validates v and serializes it.
func (t *IOType) ToStateObject(v any) (any, error) {
	if t.toState == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotSerializable, t.name)
	}
	if err := t.Validate(v); err != nil {
		return nil, err
	}
	return t.toState(v)
}

// FromStateObject decodes a state object. refs may be nil for types that
// never reference other elements.
func (t *IOType) FromStateObject(state any, refs References) (any, error) {
	if t.fromState == nil {
		return nil, fmt.Errorf("%w: %s", ErrOneWay, t.name)
	}
	return t.fromState(state, refs)
}

// StateToArgsForConstructor derives the arguments that recreate a dynamic
// element from its state object.
func (t *IOType) StateToArgsForConstructor(state any, refs References) ([]any, error) {
	if t.stateToArgs == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoStateToArgs, t.name)
	}
	return t.stateToArgs(state, refs)
}

// ApplyState sets state on obj.
func (t *IOType) ApplyState(obj any, state any, refs References) error {
	if t.applyState == nil {
		return fmt.Errorf("%w: %s", ErrNoApplyState, t.name)
	}
	return t.applyState(obj, state, refs)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
