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

package tandem

import (
	"errors"
	"fmt"
	"regexp"

	"dirpx.dev/phetio/phetioid"
)

var (
	// ErrInvalidName is returned for tandem names that are empty or contain
	// characters outside the allowed set.
	ErrInvalidName = errors.New("phetio(tandem): invalid tandem name")
	// ErrAlreadyLaunched is returned by a second Launch.
	ErrAlreadyLaunched = errors.New("phetio(tandem): already launched")
	// ErrNotRegistered is returned when removing an instance that was never added.
	ErrNotRegistered = errors.New("phetio(tandem): instance not registered")
	// ErrDuplicateID is returned when two live instances claim one phetioID.
	ErrDuplicateID = errors.New("phetio(tandem): duplicate phetioID")
	// ErrIDMismatch is returned when an instance's phetioID differs from
	// the tandem it is added through.
	ErrIDMismatch = errors.New("phetio(tandem): instance phetioID does not match tandem")
)

// ArchetypeName is the component name under which dynamic element
// containers build their archetype.
const ArchetypeName = "archetype"

// Placeholder names.
const (
	optionalName = "optional"
	requiredName = "required"
	optOutName   = "optOut"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_\-\[\],]+$`)

// Tandem is the per-entity registration handle. It composes phetioIDs and
// forwards instances to its Registry.
//
// A tandem is "supplied" when it descends from a registry root. Placeholder
// tandems (Optional, Required, OptOut) and their children are not.
type Tandem struct {
	reg      *Registry
	parent   *Tandem
	name     string
	phetioID string
	supplied bool
	required bool
	optOut   bool
}

// Name returns the last component.
func (t *Tandem) Name() string { return t.name }

// PhetioID returns the full identifier.
func (t *Tandem) PhetioID() string { return t.phetioID }

// Parent returns the parent tandem, or nil for roots and placeholders.
func (t *Tandem) Parent() *Tandem { return t.parent }

// Registry returns the owning registry.
func (t *Tandem) Registry() *Registry { return t.reg }

// Supplied reports whether this tandem was explicitly supplied rather than
// being a placeholder.
func (t *Tandem) Supplied() bool { return t.supplied }

// IsRequired reports whether this tandem stands in for one that must be supplied.
func (t *Tandem) IsRequired() bool { return t.required }

// IsOptOut reports whether the owner explicitly opted out of instrumentation.
func (t *Tandem) IsOptOut() bool { return t.optOut }

// Enabled reports whether objects with this tandem get instrumented.
func (t *Tandem) Enabled() bool {
	return t.supplied && t.reg.Config().Enabled
}

// IsDynamic reports whether the tandem names a dynamic element or a
// descendant of one.
func (t *Tandem) IsDynamic() bool {
	return phetioid.IsDynamicElement(t.phetioID)
}

// IsArchetype reports whether the tandem is an archetype or lives under one.
func (t *Tandem) IsArchetype() bool {
	for c := t; c != nil; c = c.parent {
		if c.name == ArchetypeName {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (t *Tandem) String() string { return t.phetioID }

// CreateTandem returns a child tandem named name.
func (t *Tandem) CreateTandem(name string) (*Tandem, error) {
	id, err := phetioid.Append(t.phetioID, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidName, name, err)
	}
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return &Tandem{
		reg:      t.reg,
		parent:   t,
		name:     name,
		phetioID: id,
		supplied: t.supplied,
		required: t.required,
		optOut:   t.optOut,
	}, nil
}

// MustCreateTandem is like CreateTandem but panics on an invalid name.
// Use it for names that are program constants.
func (t *Tandem) MustCreateTandem(name string) *Tandem {
	c, err := t.CreateTandem(name)
	if err != nil {
		panic(err)
	}
	return c
}

// CreateIndexedTandem returns the child prefix_index.
func (t *Tandem) CreateIndexedTandem(prefix string, index int) (*Tandem, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: negative index %d", ErrInvalidName, index)
	}
	return t.CreateTandem(phetioid.IndexedName(prefix, index))
}

// CreateGroupTandem returns a GroupTandem producing prefix_0, prefix_1, ...
func (t *Tandem) CreateGroupTandem(prefix string) (*GroupTandem, error) {
	// Validate the prefix once up front.
	if _, err := t.CreateIndexedTandem(prefix, 0); err != nil {
		return nil, err
	}
	return &GroupTandem{parent: t, prefix: prefix}, nil
}

// AddInstance registers inst with the registry. Unsupplied or disabled
// tandems ignore the call.
func (t *Tandem) AddInstance(inst Instance) error {
	if !t.Enabled() {
		return nil
	}
	if inst.PhetioID() != t.phetioID {
		return fmt.Errorf("%w: %q vs %q", ErrIDMismatch, inst.PhetioID(), t.phetioID)
	}
	return t.reg.add(inst)
}

// RemoveInstance deregisters inst. Removing an instance that was never
// added fails with ErrNotRegistered.
func (t *Tandem) RemoveInstance(inst Instance) error {
	if !t.Enabled() {
		return nil
	}
	return t.reg.remove(inst)
}

// GroupTandem hands out indexed child tandems under one prefix.
type GroupTandem struct {
	parent *Tandem
	prefix string
	next   int
}

// Parent returns the tandem the indexed children are created under.
func (g *GroupTandem) Parent() *Tandem { return g.parent }

// Prefix returns the shared name prefix.
func (g *GroupTandem) Prefix() string { return g.prefix }

// NextIndex returns the index CreateNextTandem will use.
func (g *GroupTandem) NextIndex() int { return g.next }

// CreateNextTandem returns prefix_N and advances the counter.
func (g *GroupTandem) CreateNextTandem() (*Tandem, error) {
	t, err := g.parent.CreateIndexedTandem(g.prefix, g.next)
	if err != nil {
		return nil, err
	}
	g.next++
	return t, nil
}

// TandemAt returns prefix_index and bumps the counter past index so that
// later CreateNextTandem calls do not collide with it.
func (g *GroupTandem) TandemAt(index int) (*Tandem, error) {
	t, err := g.parent.CreateIndexedTandem(g.prefix, index)
	if err != nil {
		return nil, err
	}
	g.Claim(index)
	return t, nil
}

// Claim moves the counter past index. Lower indices leave it unchanged.
func (g *GroupTandem) Claim(index int) {
	if index >= g.next {
		g.next = index + 1
	}
}

// Reset sets the counter back to zero.
func (g *GroupTandem) Reset() { g.next = 0 }
