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

// Package phetio instruments simulation objects so that external tooling can
// observe, record, serialize and restore them.
//
// # Layers
//
// The module is organised bottom-up:
//
//   - phetioid: phetioID strings and the rules for composing them.
//   - iotype: IO types, the versioned descriptors that serialize, validate
//     and invoke methods on instrumented values.
//   - tandem: the naming tree and the registry of live instances.
//   - phetioobject: the base every instrumented object embeds. It owns the
//     tandem, metadata, data stream events and linked elements.
//   - property and group: observable values and dynamic element containers.
//   - state and api: snapshot capture/restore and API documents.
//   - datastream and metrics: where events and counters go.
//
// # Type resolution
//
// This package holds a read-mostly global snapshot used to find the IO type
// of arbitrary Go values:
//
//	typ := phetio.Resolve(3.5)            // NumberIO
//	typ = phetio.ResolveType(reflect.TypeOf([]bool{})) // ArrayIO(BooleanIO)
//
// The snapshot pairs a Config with a type Registry, a Resolver built from a
// strategy chain (Typed, then Registry, then Kind) and the Builder that
// produced them. Readers load the snapshot atomically and never lock.
// Writers (SetConfig, SetBuilder, SetExt, SetRegistry, SetResolver, SetAll)
// serialize on a mutex, build a new snapshot and publish it.
//
// SetRegistry and SetResolver pin the installed layer: later configuration
// changes leave it untouched until UnpinRegistry or UnpinResolver is called.
//
// Domain types are registered up front:
//
//	phetio.RegisterType(reflect.TypeOf(&Ball{}), BallIO)
//
// NewTandemRegistry binds a fresh tandem registry to the current snapshot,
// which is how a simulation normally starts:
//
//	reg := phetio.NewTandemRegistry(tandem.WithSink(datastream.New()))
//	root, _ := reg.Root("projectileMotion")
//	... build the model under root ...
//	_ = reg.Launch()
package phetio
