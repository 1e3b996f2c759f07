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

// Instance is an instrumented entity as seen by the instance registry.
//
// PhetioID is stable for the lifetime of the instance. Host returns the
// entity that IO types operate on, which for an embedded PhetioObject is the
// outer struct rather than the PhetioObject itself.
type Instance interface {
	PhetioID() string
	Host() any
}

// InstanceListener observes instances becoming active and being removed.
//
// Listeners are only told about instances that become active after the
// listener was added; callers that need the current population must list
// the registry themselves.
type InstanceListener interface {
	InstanceAdded(inst Instance)
	InstanceRemoved(inst Instance)
}

// ListenerFuncs adapts a pair of functions to InstanceListener. Either may be nil.
type ListenerFuncs struct {
	Added   func(Instance)
	Removed func(Instance)
}

// InstanceAdded implements InstanceListener.
func (l *ListenerFuncs) InstanceAdded(inst Instance) {
	if l.Added != nil {
		l.Added(inst)
	}
}

// InstanceRemoved implements InstanceListener.
func (l *ListenerFuncs) InstanceRemoved(inst Instance) {
	if l.Removed != nil {
		l.Removed(inst)
	}
}

// EventType categorizes data stream events.
type EventType string

const (
	// EventUser marks events caused by user input.
	EventUser EventType = "user"
	// EventModel marks events caused by the model.
	EventModel EventType = "model"
	// EventWrapper marks events caused by the wrapper frame.
	EventWrapper EventType = "wrapper"
	// EventOptOut marks objects that never emit.
	EventOptOut EventType = "opt-out"
)

// String implements fmt.Stringer.
func (e EventType) String() string { return string(e) }

// Valid reports whether e is one of the defined event types.
func (e EventType) Valid() bool {
	switch e {
	case EventUser, EventModel, EventWrapper, EventOptOut:
		return true
	}
	return false
}

// Metadata is the flat per-element descriptor consumed by API tooling.
type Metadata struct {
	PhetioTypeName       string    `json:"phetioTypeName"`
	PhetioDocumentation  string    `json:"phetioDocumentation"`
	PhetioState          bool      `json:"phetioState"`
	PhetioReadOnly       bool      `json:"phetioReadOnly"`
	PhetioEventType      EventType `json:"phetioEventType"`
	PhetioHighFrequency  bool      `json:"phetioHighFrequency"`
	PhetioPlayback       bool      `json:"phetioPlayback"`
	PhetioStudioControl  bool      `json:"phetioStudioControl"`
	PhetioFeatured       bool      `json:"phetioFeatured"`
	PhetioDynamicElement bool      `json:"phetioDynamicElement"`
	PhetioIsArchetype    bool      `json:"phetioIsArchetype"`
}

// Described is implemented by instances that expose Metadata.
type Described interface {
	Metadata() Metadata
}
