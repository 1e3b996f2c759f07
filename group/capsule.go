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

package group

import (
	"errors"
	"fmt"

	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioid"
)

// CapsuleIO is the IO type of a capsule holding one element of type member.
func CapsuleIO(member *iotype.IOType) *iotype.IOType {
	name := iotype.ParametricName("PhetioCapsuleIO", member)
	return iotype.Parametric(name, func() (*iotype.IOType, error) {
		return iotype.New(iotype.Options{
			Name:           name,
			Documentation:  "Holds at most one dynamic element, created on first use.",
			ParameterTypes: []*iotype.IOType{member},
			Events:         []string{"elementCreated", "elementDisposed"},
			Validator: func(v any) error {
				if _, ok := v.(interface{ HasElement() bool }); !ok {
					return fmt.Errorf("expected a capsule, got %T", v)
				}
				return nil
			},
			OneWay:        true,
			ToStateObject: func(any) (any, error) { return nil, nil },
		})
	})
}

// Capsule lazily creates a single dynamic element named <capsule>.<prefix>.
type Capsule[T Element] struct {
	container[T]

	element T
	has     bool
}

// NewCapsule constructs a Capsule. Its PhetioType is CapsuleIO(opts.MemberType).
func NewCapsule[T Element](opts Options, create CreateFunc[T]) (*Capsule[T], error) {
	c := &Capsule[T]{}
	if opts.MemberType == nil {
		return nil, ErrNilMemberType
	}
	if err := c.init(c, opts, CapsuleIO(opts.MemberType), create); err != nil {
		return nil, err
	}
	return c, nil
}

// HasElement reports whether the element exists.
func (c *Capsule[T]) HasElement() bool { return c.has }

// Element returns the element without creating it.
func (c *Capsule[T]) Element() (T, bool) { return c.element, c.has }

// GetElement returns the element, creating it from args on first use.
func (c *Capsule[T]) GetElement(args ...any) (T, error) {
	if c.has {
		return c.element, nil
	}
	t, err := c.Tandem().CreateTandem(c.prefix)
	if err != nil {
		var zero T
		return zero, err
	}
	el, err := c.build(t, args)
	if err != nil {
		return el, err
	}
	c.element, c.has = el, true
	c.Registry().Metrics().SetGroupElements(c.PhetioID(), 1)
	c.notifyCreated(el)
	return el, nil
}

// DisposeElement disposes the element if it exists.
func (c *Capsule[T]) DisposeElement() error {
	if !c.has {
		return nil
	}
	el := c.element
	var zero T
	c.element, c.has = zero, false
	c.Registry().Metrics().SetGroupElements(c.PhetioID(), 0)
	return c.disposeElement(el)
}

// Dispose disposes the element and the capsule.
func (c *Capsule[T]) Dispose() error {
	return errors.Join(c.DisposeElement(), c.disposeContainer())
}

// ElementIDs returns the element's phetioID, if it exists.
func (c *Capsule[T]) ElementIDs() []string {
	if !c.has {
		return nil
	}
	return []string{c.element.PhetioID()}
}

// CreateElementFromState creates the element from its state object unless it
// already exists.
func (c *Capsule[T]) CreateElementFromState(id string, state any, refs iotype.References) error {
	if want, _ := phetioid.Append(c.PhetioID(), c.prefix); id != want {
		return fmt.Errorf("%w: %s", ErrUnknownElementID, id)
	}
	if c.has {
		return nil
	}
	args, err := c.memberType.StateToArgsForConstructor(state, refs)
	if err != nil {
		return err
	}
	_, err = c.GetElement(args...)
	return err
}

// DisposeElementByID disposes the element when id names it.
func (c *Capsule[T]) DisposeElementByID(id string) error {
	if !c.has || c.element.PhetioID() != id {
		return fmt.Errorf("%w: %s", ErrNotMember, id)
	}
	return c.DisposeElement()
}
