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

// Config carries read-only instrumentation knobs. It is passed by value and
// should be treated as immutable by implementations.
type Config struct {
	// Enabled switches instrumentation on. When false, no object is
	// instrumented regardless of its tandem.
	Enabled bool

	// Validation turns on runtime assertions: value validation for groups
	// and properties, required-tandem checks and archetype creation. IO type
	// definition checks run regardless.
	Validation bool

	// SuppressHighFrequency skips data stream events of objects marked
	// high frequency.
	SuppressHighFrequency bool

	// CheckEventStackOnDispose schedules a deferred check that a disposed
	// object's event stack drained.
	CheckEventStackOnDispose bool

	// MaxRestorePasses bounds the multi-pass state restoration loop.
	MaxRestorePasses int

	// MaxUnwrap limits container unwrapping depth when resolving IO types
	// for Go values (ptr/slice/array).
	MaxUnwrap int
}
