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

// Package phetioobject provides PhetioObject, the base that instrumented
// entities embed. It owns the entity's tandem registration, its IO type
// wrapper and its data stream event stack.
package phetioobject

import (
	"errors"
	"fmt"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/tandem"
)

var (
	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("phetio(object): already initialized")
	// ErrNotInitialized is returned by event calls before Initialize.
	ErrNotInitialized = errors.New("phetio(object): not initialized")
	// ErrAlreadyDisposed is returned by a second Dispose.
	ErrAlreadyDisposed = errors.New("phetio(object): already disposed")
	// ErrRequiredTandem is returned when an object that must be
	// instrumented was given the Required placeholder.
	ErrRequiredTandem = errors.New("phetio(object): tandem required")
	// ErrNilTandem is returned when Options.Tandem is nil.
	ErrNilTandem = errors.New("phetio(object): nil tandem")
	// ErrInvalidEventType is returned for unknown event types.
	ErrInvalidEventType = errors.New("phetio(object): invalid event type")
	// ErrEmptyEventStack is returned by EndEvent without a matching StartEvent.
	ErrEmptyEventStack = errors.New("phetio(object): end event with empty stack")
	// ErrUnbalancedEvents is reported when an object was disposed with
	// events still open.
	ErrUnbalancedEvents = errors.New("phetio(object): disposed with open events")
)

// Options is the instrumentation configuration of a PhetioObject.
type Options struct {
	// Tandem names the object. Use a registry placeholder for objects that
	// are not instrumented.
	Tandem *tandem.Tandem
	// PhetioType defaults to iotype.ObjectIO.
	PhetioType    *iotype.IOType
	Documentation string
	// State includes the object in state capture. Defaults to true; set
	// NoState to exclude it.
	NoState  bool
	ReadOnly bool
	// EventType defaults to apis.EventModel.
	EventType     apis.EventType
	HighFrequency bool
	Playback      bool
	// NoStudioControl hides the object from studio tooling.
	NoStudioControl bool
	Featured        bool
	// EventMetadata is attached to every event the object emits.
	EventMetadata map[string]any
}

// PhetioObject is embedded by instrumented entities. The zero value is ready
// for Initialize. It is not safe for concurrent use.
type PhetioObject struct {
	host        any
	opts        Options
	tandem      *tandem.Tandem
	reg         *tandem.Registry
	wrapper     *iotype.Wrapper
	initialized bool
	registered  bool
	disposed    bool
	stack       []int64
	links       []*LinkedElement
}

var (
	_ apis.Instance  = (*PhetioObject)(nil)
	_ apis.Described = (*PhetioObject)(nil)
	_ apis.Typed     = (*PhetioObject)(nil)
)

// New returns an initialized PhetioObject that is its own host.
func New(opts Options) (*PhetioObject, error) {
	o := &PhetioObject{}
	if err := o.Initialize(o, opts); err != nil {
		return nil, err
	}
	return o, nil
}

// Initialize configures the object and, when instrumented, creates its IO
// type wrapper around host and registers it. host is the value IO type hooks
// operate on, normally the struct embedding this PhetioObject.
func (o *PhetioObject) Initialize(host any, opts Options) error {
	if o.initialized {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, o.PhetioID())
	}
	if opts.Tandem == nil {
		return ErrNilTandem
	}
	if opts.PhetioType == nil {
		opts.PhetioType = iotype.ObjectIO
	}
	if opts.EventType == "" {
		opts.EventType = apis.EventModel
	}
	if opts.Tandem.IsOptOut() {
		opts.EventType = apis.EventOptOut
	}
	if !opts.EventType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventType, opts.EventType)
	}

	reg := opts.Tandem.Registry()
	cfg := reg.Config()
	if cfg.Validation && cfg.Enabled && opts.Tandem.IsRequired() && !opts.Tandem.Supplied() {
		return fmt.Errorf("%w: %s", ErrRequiredTandem, opts.Tandem.PhetioID())
	}

	instrumented := opts.Tandem.Enabled()
	if instrumented && cfg.Validation {
		if err := opts.PhetioType.Validate(host); err != nil {
			return fmt.Errorf("%s: %w", opts.Tandem.PhetioID(), err)
		}
	}

	o.host = host
	o.opts = opts
	o.tandem = opts.Tandem
	o.reg = reg
	o.initialized = true
	if !instrumented {
		return nil
	}

	o.wrapper = iotype.NewWrapper(opts.PhetioType, host, o.PhetioID(), opts.ReadOnly)
	if err := o.tandem.AddInstance(o); err != nil {
		o.wrapper.Dispose()
		// Leave the object as it was so Initialize can be retried.
		*o = PhetioObject{}
		return err
	}
	o.registered = true
	return nil
}

// IsInstrumented reports whether instrumentation is on and the tandem was
// explicitly supplied.
func (o *PhetioObject) IsInstrumented() bool {
	return o.initialized && o.tandem.Enabled()
}

// Initialized reports whether Initialize succeeded.
func (o *PhetioObject) Initialized() bool { return o.initialized }

// Disposed reports whether Dispose ran.
func (o *PhetioObject) Disposed() bool { return o.disposed }

// PhetioID returns the tandem's identifier, or "" before Initialize.
func (o *PhetioObject) PhetioID() string {
	if o.tandem == nil {
		return ""
	}
	return o.tandem.PhetioID()
}

// Tandem returns the tandem.
func (o *PhetioObject) Tandem() *tandem.Tandem { return o.tandem }

// Host returns the value IO type hooks operate on.
func (o *PhetioObject) Host() any { return o.host }

// PhetioType returns the IO type.
func (o *PhetioObject) PhetioType() *iotype.IOType { return o.opts.PhetioType }

// Wrapper returns the IO type wrapper, nil when not instrumented.
func (o *PhetioObject) Wrapper() *iotype.Wrapper { return o.wrapper }

// Registry returns the registry of the object's tandem.
func (o *PhetioObject) Registry() *tandem.Registry { return o.reg }

// IsArchetype reports whether the object lives under an archetype tandem.
func (o *PhetioObject) IsArchetype() bool {
	return o.tandem != nil && o.tandem.IsArchetype()
}

// Metadata implements apis.Described.
func (o *PhetioObject) Metadata() apis.Metadata {
	typeName := ""
	if o.opts.PhetioType != nil {
		typeName = o.opts.PhetioType.Name()
	}
	return apis.Metadata{
		PhetioTypeName:       typeName,
		PhetioDocumentation:  o.opts.Documentation,
		PhetioState:          !o.opts.NoState,
		PhetioReadOnly:       o.opts.ReadOnly,
		PhetioEventType:      o.opts.EventType,
		PhetioHighFrequency:  o.opts.HighFrequency,
		PhetioPlayback:       o.opts.Playback,
		PhetioStudioControl:  !o.opts.NoStudioControl,
		PhetioFeatured:       o.opts.Featured,
		PhetioDynamicElement: o.tandem != nil && o.tandem.IsDynamic(),
		PhetioIsArchetype:    o.IsArchetype(),
	}
}

// Dispose deregisters the object, disposes its wrapper and its linked
// elements. Open events do not block disposal; an unbalanced stack is
// reported at the registry's next Flush.
func (o *PhetioObject) Dispose() error {
	if o.disposed {
		return fmt.Errorf("%w: %s", ErrAlreadyDisposed, o.PhetioID())
	}
	o.disposed = true
	if !o.initialized {
		return nil
	}

	if o.reg.Config().CheckEventStackOnDispose {
		o.reg.Defer(o.checkEventStack)
	}

	var errs []error
	if o.registered {
		if err := o.tandem.RemoveInstance(o); err != nil {
			errs = append(errs, err)
		}
		o.registered = false
	}
	if o.wrapper != nil {
		o.wrapper.Dispose()
	}
	for i := len(o.links) - 1; i >= 0; i-- {
		if err := o.links[i].Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	o.links = nil
	return errors.Join(errs...)
}

func (o *PhetioObject) checkEventStack() {
	if n := len(o.stack); n > 0 {
		o.reg.Report(fmt.Errorf("%w: %s has %d", ErrUnbalancedEvents, o.PhetioID(), n))
		o.reg.Metrics().UnbalancedDispose()
	}
}
