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
	"slices"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioid"
	"dirpx.dev/phetio/tandem"
)

// counted is the non-generic view of a Group that GroupIO operates on.
type counted interface {
	Count() int
	Clear() error
}

// GroupIO is the IO type of a group with elements of type member. Groups
// carry no state of their own; their elements are captured individually.
func GroupIO(member *iotype.IOType) *iotype.IOType {
	name := iotype.ParametricName("PhetioGroupIO", member)
	return iotype.Parametric(name, func() (*iotype.IOType, error) {
		return iotype.New(iotype.Options{
			Name:           name,
			Documentation:  "A group of dynamic elements created and disposed at runtime.",
			ParameterTypes: []*iotype.IOType{member},
			Events:         []string{"elementCreated", "elementDisposed"},
			Validator: func(v any) error {
				if _, ok := v.(counted); !ok {
					return fmt.Errorf("expected a group, got %T", v)
				}
				return nil
			},
			OneWay:        true,
			ToStateObject: func(any) (any, error) { return nil, nil },
			Methods: map[string]iotype.Method{
				"getCount": {
					ReturnType:                   iotype.NumberIO,
					ParameterTypes:               []*iotype.IOType{},
					Documentation:                "Returns the number of live elements.",
					InvocableForReadOnlyElements: true,
					Implementation: func(obj any, _ ...any) (any, error) {
						return float64(obj.(counted).Count()), nil
					},
				},
				"clear": {
					ReturnType:     iotype.VoidIO,
					ParameterTypes: []*iotype.IOType{},
					Documentation:  "Disposes every element and resets the index counter.",
					Implementation: func(obj any, _ ...any) (any, error) {
						return nil, obj.(counted).Clear()
					},
				},
			},
		})
	})
}

// Group is a variable size collection of dynamic elements named
// <group>.<prefix>_<index>.
type Group[T Element] struct {
	container[T]

	gt       *tandem.GroupTandem
	elements []T
	indices  []int
}

// New constructs a Group. The group's PhetioType is GroupIO(opts.MemberType).
func New[T Element](opts Options, create CreateFunc[T]) (*Group[T], error) {
	g := &Group[T]{}
	if opts.MemberType == nil {
		return nil, ErrNilMemberType
	}
	if err := g.init(g, opts, GroupIO(opts.MemberType), create); err != nil {
		return nil, err
	}
	gt, err := g.Tandem().CreateGroupTandem(g.prefix)
	if err != nil {
		return nil, errors.Join(err, g.disposeContainer())
	}
	g.gt = gt
	return g, nil
}

// NextIndex returns the index CreateNextElement will use.
func (g *Group[T]) NextIndex() int { return g.gt.NextIndex() }

// Count returns the number of live elements.
func (g *Group[T]) Count() int { return len(g.elements) }

// Elements returns the live elements in creation order.
func (g *Group[T]) Elements() []T { return slices.Clone(g.elements) }

// Element returns the live element with the given group index.
func (g *Group[T]) Element(index int) (T, bool) {
	if i := slices.Index(g.indices, index); i >= 0 {
		return g.elements[i], true
	}
	var zero T
	return zero, false
}

// Contains reports whether el is a live element.
func (g *Group[T]) Contains(el T) bool { return g.position(el) >= 0 }

func (g *Group[T]) position(el T) int {
	id := el.PhetioID()
	return slices.IndexFunc(g.elements, func(e T) bool { return e.PhetioID() == id })
}

// CreateNextElement creates an element at the next index and advances it.
func (g *Group[T]) CreateNextElement(args ...any) (T, error) {
	return g.CreateIndexedElement(g.gt.NextIndex(), args)
}

// CreateIndexedElement creates an element at exactly index. The counter
// moves past index so later CreateNextElement calls do not collide.
func (g *Group[T]) CreateIndexedElement(index int, args []any) (T, error) {
	var zero T
	if slices.Contains(g.indices, index) {
		return zero, fmt.Errorf("%w: %s %s_%d", ErrIndexInUse, g.PhetioID(), g.prefix, index)
	}
	t, err := g.gt.Parent().CreateIndexedTandem(g.gt.Prefix(), index)
	if err != nil {
		return zero, err
	}
	el, err := g.build(t, args)
	if err != nil {
		return zero, err
	}
	g.gt.Claim(index)
	g.elements = append(g.elements, el)
	g.indices = append(g.indices, index)
	g.Registry().Metrics().SetGroupElements(g.PhetioID(), len(g.elements))
	g.logger.Debug().Str("phetioID", el.PhetioID()).Msg("element created")
	g.notifyCreated(el)
	return el, nil
}

// CreateCorrespondingGroupElement creates an element at the index encoded in
// peer's phetioID, for objects created in pairs such as a view for a model
// element.
func (g *Group[T]) CreateCorrespondingGroupElement(peer apis.Instance, args ...any) (T, error) {
	_, index, err := phetioid.GroupIndex(peer.PhetioID())
	if err != nil {
		var zero T
		return zero, err
	}
	return g.CreateIndexedElement(index, args)
}

// DisposeElement disposes el and removes it from the group.
func (g *Group[T]) DisposeElement(el T) error {
	i := g.position(el)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotMember, el.PhetioID())
	}
	g.elements = slices.Delete(g.elements, i, i+1)
	g.indices = slices.Delete(g.indices, i, i+1)
	g.Registry().Metrics().SetGroupElements(g.PhetioID(), len(g.elements))
	return g.disposeElement(el)
}

// Clear disposes every element, newest first, and resets the counter to 0.
func (g *Group[T]) Clear() error {
	var errs []error
	for len(g.elements) > 0 {
		errs = append(errs, g.DisposeElement(g.elements[len(g.elements)-1]))
	}
	g.gt.Reset()
	return errors.Join(errs...)
}

// Dispose clears the group and disposes it.
func (g *Group[T]) Dispose() error {
	return errors.Join(g.Clear(), g.disposeContainer())
}

// ElementIDs returns the phetioIDs of the live elements.
func (g *Group[T]) ElementIDs() []string {
	ids := make([]string, len(g.elements))
	for i, el := range g.elements {
		ids[i] = el.PhetioID()
	}
	return ids
}

// CreateElementFromState creates the element id names from its state object,
// or does nothing when the element at that index already exists. A missing
// dependency surfaces as a retryable error.
func (g *Group[T]) CreateElementFromState(id string, state any, refs iotype.References) error {
	parent, err := phetioid.ParentID(id)
	if err != nil || parent != g.PhetioID() {
		return fmt.Errorf("%w: %s", ErrUnknownElementID, id)
	}
	prefix, index, err := phetioid.GroupIndex(id)
	if err != nil || prefix != g.prefix {
		return fmt.Errorf("%w: %s", ErrUnknownElementID, id)
	}
	if _, ok := g.Element(index); ok {
		return nil
	}
	args, err := g.memberType.StateToArgsForConstructor(state, refs)
	if err != nil {
		return err
	}
	_, err = g.CreateIndexedElement(index, args)
	return err
}

// DisposeElementByID disposes the live element with the given phetioID.
func (g *Group[T]) DisposeElementByID(id string) error {
	for _, el := range g.elements {
		if el.PhetioID() == id {
			return g.DisposeElement(el)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotMember, id)
}
