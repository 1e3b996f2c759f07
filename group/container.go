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

// Package group manages dynamic elements: instrumented objects created and
// disposed at runtime, whose phetioIDs encode their creation index.
package group

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioobject"
	"dirpx.dev/phetio/tandem"
)

var (
	// ErrIndexInUse is returned when creating an element at an index a live
	// element already holds.
	ErrIndexInUse = errors.New("phetio(group): index in use")
	// ErrInvalidElement is returned when a created element fails the member
	// type's validation.
	ErrInvalidElement = errors.New("phetio(group): element does not match member type")
	// ErrNotMember is returned when disposing an element the container does not hold.
	ErrNotMember = errors.New("phetio(group): not a member")
	// ErrNilMemberType is returned when Options.MemberType is nil.
	ErrNilMemberType = errors.New("phetio(group): nil member type")
	// ErrNilCreate is returned when no creation function is given.
	ErrNilCreate = errors.New("phetio(group): nil create function")
	// ErrUnknownElementID is returned when state names an element the
	// container cannot place.
	ErrUnknownElementID = errors.New("phetio(group): element id does not belong to container")
)

// Element is the constraint on dynamic elements. Types embedding
// phetioobject.PhetioObject satisfy it.
type Element interface {
	apis.Instance
	Dispose() error
}

// CreateFunc builds an element for tandem t from constructor arguments.
type CreateFunc[T Element] func(t *tandem.Tandem, args ...any) (T, error)

// Options configures a container.
type Options struct {
	// Object configures the container's own PhetioObject. PhetioType is set
	// by the container.
	Object phetioobject.Options
	// MemberType is the IO type of the elements.
	MemberType *iotype.IOType
	// Prefix names elements, "element" if empty.
	Prefix string
	// DefaultArguments build the archetype in validation mode. A nil slice
	// means the container has no archetype.
	DefaultArguments []any
}

// DefaultPrefix is the element name prefix when none is given.
const DefaultPrefix = "element"

// container is the shared part of Group and Capsule.
type container[T Element] struct {
	phetioobject.PhetioObject

	memberType  *iotype.IOType
	create      CreateFunc[T]
	prefix      string
	defaultArgs []any
	archetype   T
	hasArch     bool
	logger      zerolog.Logger

	onCreated  []func(T)
	onDisposed []func(T)
}

func (c *container[T]) init(host any, opts Options, typ *iotype.IOType, create CreateFunc[T]) error {
	if opts.MemberType == nil {
		return ErrNilMemberType
	}
	if create == nil {
		return ErrNilCreate
	}
	c.memberType = opts.MemberType
	c.create = create
	c.prefix = opts.Prefix
	if c.prefix == "" {
		c.prefix = DefaultPrefix
	}
	c.defaultArgs = opts.DefaultArguments

	obj := opts.Object
	// Element names derive from the prefix; reject it before registering.
	if obj.Tandem != nil {
		if _, err := obj.Tandem.CreateTandem(c.prefix); err != nil {
			return fmt.Errorf("prefix: %w", err)
		}
	}
	obj.PhetioType = typ
	if err := c.Initialize(host, obj); err != nil {
		return err
	}
	c.logger = c.Registry().Logger().With().Str("container", c.PhetioID()).Logger()
	if err := c.createArchetype(); err != nil {
		return errors.Join(err, c.disposeContainer())
	}
	return nil
}

// createArchetype builds the shape-only element under <container>.archetype.
// It is never a member and never appears in state.
func (c *container[T]) createArchetype() error {
	cfg := c.Registry().Config()
	if c.defaultArgs == nil || !cfg.Validation || !c.IsInstrumented() {
		return nil
	}
	t, err := c.Tandem().CreateTandem(tandem.ArchetypeName)
	if err != nil {
		return err
	}
	el, err := c.create(t, c.defaultArgs...)
	if err != nil {
		return fmt.Errorf("archetype of %s: %w", c.PhetioID(), err)
	}
	if err := c.validate(el); err != nil {
		_ = el.Dispose()
		return err
	}
	c.archetype = el
	c.hasArch = true
	c.logger.Debug().Str("phetioID", el.PhetioID()).Msg("archetype created")
	return nil
}

// Archetype returns the archetype element, if one was built.
func (c *container[T]) Archetype() (T, bool) { return c.archetype, c.hasArch }

// MemberType returns the IO type of the elements.
func (c *container[T]) MemberType() *iotype.IOType { return c.memberType }

// Prefix returns the element name prefix.
func (c *container[T]) Prefix() string { return c.prefix }

// OnCreated registers fn for every element created from now on.
func (c *container[T]) OnCreated(fn func(T)) { c.onCreated = append(c.onCreated, fn) }

// OnDisposed registers fn for every element disposed from now on.
func (c *container[T]) OnDisposed(fn func(T)) { c.onDisposed = append(c.onDisposed, fn) }

func (c *container[T]) validate(el T) error {
	if !c.Registry().Config().Validation {
		return nil
	}
	if err := c.memberType.Validate(el.Host()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidElement, el.PhetioID(), err)
	}
	return nil
}

// build runs the creation function and validates the result.
func (c *container[T]) build(t *tandem.Tandem, args []any) (T, error) {
	var zero T
	el, err := c.create(t, args...)
	if err != nil {
		return zero, err
	}
	if err := c.validate(el); err != nil {
		_ = el.Dispose()
		return zero, err
	}
	return el, nil
}

// emit wraps a membership change in a data stream event.
func (c *container[T]) emit(event string, el T, fn func()) {
	_ = c.StartEvent(event, phetioobject.WithDataFunc(func() map[string]any {
		return map[string]any{"phetioID": el.PhetioID()}
	}))
	fn()
	_ = c.EndEvent()
}

func (c *container[T]) notifyCreated(el T) {
	c.emit("elementCreated", el, func() {
		for _, fn := range c.onCreated {
			fn(el)
		}
	})
}

func (c *container[T]) disposeElement(el T) error {
	var err error
	c.emit("elementDisposed", el, func() {
		err = el.Dispose()
		for _, fn := range c.onDisposed {
			fn(el)
		}
	})
	return err
}

// disposeContainer disposes the archetype and the container object itself.
func (c *container[T]) disposeContainer() error {
	var errs []error
	if c.hasArch {
		errs = append(errs, c.archetype.Dispose())
		c.hasArch = false
	}
	errs = append(errs, c.PhetioObject.Dispose())
	return errors.Join(errs...)
}
