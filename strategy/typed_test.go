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

package strategy_test

import (
	"reflect"
	"testing"

	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/strategy"
)

type typedValue struct{}

func (typedValue) PhetioType() *iotype.IOType { return aIO }

type untypedValue struct{}

func (untypedValue) PhetioType() *iotype.IOType { return nil }

func TestTypedStrategy_TryResolve(t *testing.T) {
	s := strategy.NewTypedStrategy()
	conf := cfg()

	got, ok := s.TryResolve(typedValue{}, conf)
	if !ok || got != aIO {
		t.Fatalf("TryResolve: got (%v,%v), want (AIO,true)", got, ok)
	}

	// nil from PhetioType falls through
	if got, ok := s.TryResolve(untypedValue{}, conf); ok || got != nil {
		t.Fatalf("TryResolve(untyped): got (%v,%v), want (nil,false)", got, ok)
	}
	if got, ok := s.TryResolve(struct{}{}, conf); ok || got != nil {
		t.Fatalf("TryResolve(plain): got (%v,%v), want (nil,false)", got, ok)
	}
	if _, ok := s.TryResolve(nil, conf); ok {
		t.Fatalf("TryResolve(nil): want miss")
	}

	// TryResolveType should never handle (no instance)
	if got, ok := s.TryResolveType(reflect.TypeOf(typedValue{}), conf); ok || got != nil {
		t.Fatalf("TryResolveType: got (%v,%v), want (nil,false)", got, ok)
	}
}
