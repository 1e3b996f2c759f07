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

package group_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/phetio/config"
	"dirpx.dev/phetio/datastream"
	"dirpx.dev/phetio/group"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioobject"
	"dirpx.dev/phetio/tandem"
)

type particle struct {
	phetioobject.PhetioObject
	Value float64
}

var particleIO = iotype.MustNew(iotype.Options{
	Name:          "ParticleIO",
	Documentation: "A particle with a value",
	ValueType:     reflect.TypeOf(&particle{}),
	Validator: func(v any) error {
		if v.(*particle).Value < 0 {
			return errors.New("negative value")
		}
		return nil
	},
	ToStateObject: func(v any) (any, error) {
		return map[string]any{"value": v.(*particle).Value}, nil
	},
	StateToArgsForConstructor: func(state any, refs iotype.References) ([]any, error) {
		m := state.(map[string]any)
		if dep, ok := m["after"].(string); ok {
			if _, found := refs.Lookup(dep); !found {
				return nil, iotype.NotYetDeserializable(dep)
			}
		}
		return []any{m["value"]}, nil
	},
})

func createParticle(t *tandem.Tandem, args ...any) (*particle, error) {
	v, ok := args[0].(float64)
	if !ok {
		return nil, fmt.Errorf("bad argument %T", args[0])
	}
	p := &particle{}
	if err := p.Initialize(p, phetioobject.Options{Tandem: t, PhetioType: particleIO}); err != nil {
		return nil, err
	}
	// Set after registration so that only the group's check sees bad values.
	p.Value = v
	return p, nil
}

func setup(t *testing.T, opts ...config.Option) (*tandem.Registry, *tandem.Tandem) {
	t.Helper()
	reg := tandem.NewRegistry(tandem.WithConfig(config.NewConfig(opts...)))
	require.NoError(t, reg.Launch())
	root, err := reg.Root("sim")
	require.NoError(t, err)
	return reg, root
}

func newGroup(t *testing.T, root *tandem.Tandem) *group.Group[*particle] {
	t.Helper()
	g, err := group.New(group.Options{
		Object:           phetioobject.Options{Tandem: root.MustCreateTandem("particles")},
		MemberType:       particleIO,
		Prefix:           "particle",
		DefaultArguments: []any{0.0},
	}, createParticle)
	require.NoError(t, err)
	return g
}

func TestGroup_EndToEnd(t *testing.T) {
	_, root := setup(t)
	g := newGroup(t, root)

	p0, err := g.CreateNextElement(5.0)
	require.NoError(t, err)
	p1, err := g.CreateNextElement(7.0)
	require.NoError(t, err)

	assert.Equal(t, "sim.particles.particle_0", p0.PhetioID())
	assert.Equal(t, "sim.particles.particle_1", p1.PhetioID())
	assert.Equal(t, 5.0, p0.Value)
	assert.Equal(t, 7.0, p1.Value)
	assert.True(t, p1.Metadata().PhetioDynamicElement)

	require.NoError(t, g.Clear())
	assert.Equal(t, 0, g.Count())
	assert.Equal(t, 0, g.NextIndex())

	p, err := g.CreateNextElement(9.0)
	require.NoError(t, err)
	assert.Equal(t, "sim.particles.particle_0", p.PhetioID())
}

func TestGroup_ClearIsLIFO(t *testing.T) {
	reg, root := setup(t)
	g := newGroup(t, root)

	var disposed []string
	g.OnDisposed(func(p *particle) { disposed = append(disposed, p.PhetioID()) })
	for i := 0; i < 3; i++ {
		_, err := g.CreateNextElement(float64(i))
		require.NoError(t, err)
	}
	require.NoError(t, g.Clear())

	assert.Equal(t, []string{
		"sim.particles.particle_2",
		"sim.particles.particle_1",
		"sim.particles.particle_0",
	}, disposed)
	_, ok := reg.Instance("sim.particles.particle_0")
	assert.False(t, ok)
}

func TestGroup_Archetype(t *testing.T) {
	reg, root := setup(t)
	g := newGroup(t, root)

	arch, ok := g.Archetype()
	require.True(t, ok)
	assert.Equal(t, "sim.particles.archetype", arch.PhetioID())
	assert.True(t, arch.Metadata().PhetioIsArchetype)
	assert.Equal(t, 0, g.Count(), "archetype is not a member")
	_, registered := reg.Instance("sim.particles.archetype")
	assert.True(t, registered)

	require.NoError(t, g.Dispose())
	assert.True(t, arch.Disposed())

	_, root2 := setup(t, config.WithValidation(false))
	g2 := newGroup(t, root2)
	_, ok = g2.Archetype()
	assert.False(t, ok)
}

func TestGroup_ValidationAndCollisions(t *testing.T) {
	reg, root := setup(t)
	g := newGroup(t, root)

	_, err := g.CreateNextElement(-1.0)
	assert.ErrorIs(t, err, group.ErrInvalidElement)
	assert.Equal(t, 0, g.NextIndex(), "failed creation does not consume an index")
	_, ok := reg.Instance("sim.particles.particle_0")
	assert.False(t, ok, "rejected element is disposed")

	_, err = g.CreateIndexedElement(3, []any{1.0})
	require.NoError(t, err)
	_, err = g.CreateIndexedElement(3, []any{2.0})
	assert.ErrorIs(t, err, group.ErrIndexInUse)
	assert.Equal(t, 4, g.NextIndex())

	other := &particle{}
	assert.ErrorIs(t, g.DisposeElement(other), group.ErrNotMember)
}

func TestGroup_CreateCorrespondingGroupElement(t *testing.T) {
	_, root := setup(t)
	models := newGroup(t, root)
	views, err := group.New(group.Options{
		Object:     phetioobject.Options{Tandem: root.MustCreateTandem("views")},
		MemberType: particleIO,
		Prefix:     "view",
	}, createParticle)
	require.NoError(t, err)

	var model *particle
	for i := 0; i < 5; i++ {
		model, err = models.CreateNextElement(float64(i))
		require.NoError(t, err)
	}

	view, err := views.CreateCorrespondingGroupElement(model, 4.0)
	require.NoError(t, err)
	assert.Equal(t, "sim.views.view_4", view.PhetioID())
	assert.Equal(t, 5, views.NextIndex())

	next, err := views.CreateNextElement(0.0)
	require.NoError(t, err)
	assert.Equal(t, "sim.views.view_5", next.PhetioID())
}

func TestGroup_CreateElementFromState(t *testing.T) {
	reg, root := setup(t)
	g := newGroup(t, root)

	require.NoError(t, g.CreateElementFromState("sim.particles.particle_2", map[string]any{"value": 3.0}, reg))
	p, ok := g.Element(2)
	require.True(t, ok)
	assert.Equal(t, 3.0, p.Value)

	// existing index is reused
	require.NoError(t, g.CreateElementFromState("sim.particles.particle_2", map[string]any{"value": 8.0}, reg))
	assert.Equal(t, 1, g.Count())

	err := g.CreateElementFromState("sim.particles.particle_3",
		map[string]any{"value": 1.0, "after": "sim.missing"}, reg)
	assert.True(t, iotype.IsRetryable(err))
	assert.Equal(t, 1, g.Count())

	assert.ErrorIs(t, g.CreateElementFromState("sim.other.particle_1", nil, reg), group.ErrUnknownElementID)
	assert.ErrorIs(t, g.CreateElementFromState("sim.particles.view_1", nil, reg), group.ErrUnknownElementID)

	assert.Equal(t, []string{"sim.particles.particle_2"}, g.ElementIDs())
	require.NoError(t, g.DisposeElementByID("sim.particles.particle_2"))
	assert.ErrorIs(t, g.DisposeElementByID("sim.particles.particle_2"), group.ErrNotMember)
}

func TestGroupIO(t *testing.T) {
	_, root := setup(t)
	g := newGroup(t, root)
	_, err := g.CreateNextElement(1.0)
	require.NoError(t, err)

	assert.Same(t, group.GroupIO(particleIO), g.PhetioType())
	assert.Equal(t, "PhetioGroupIO(ParticleIO)", g.PhetioType().Name())

	n, err := g.Wrapper().Invoke("getCount")
	require.NoError(t, err)
	assert.Equal(t, 1.0, n)

	_, err = g.Wrapper().Invoke("clear")
	require.NoError(t, err)
	assert.Equal(t, 0, g.Count())
}

func TestGroup_EmitsEvents(t *testing.T) {
	stream := datastream.New()
	var records []*datastream.Record
	stream.Subscribe(func(r *datastream.Record) { records = append(records, r) })

	reg := tandem.NewRegistry(tandem.WithSink(stream))
	require.NoError(t, reg.Launch())
	root, _ := reg.Root("sim")
	g := newGroup(t, root)

	p, err := g.CreateNextElement(1.0)
	require.NoError(t, err)
	require.NoError(t, g.DisposeElement(p))

	require.Len(t, records, 2)
	assert.Equal(t, "elementCreated", records[0].Event)
	assert.Equal(t, "sim.particles", records[0].PhetioID)
	assert.Equal(t, "sim.particles.particle_0", records[0].Data["phetioID"])
	assert.Equal(t, "elementDisposed", records[1].Event)
}

func TestGroup_OptionErrors(t *testing.T) {
	_, root := setup(t)
	_, err := group.New[*particle](group.Options{Object: phetioobject.Options{Tandem: root}}, createParticle)
	assert.ErrorIs(t, err, group.ErrNilMemberType)

	_, err = group.New[*particle](group.Options{Object: phetioobject.Options{Tandem: root}, MemberType: particleIO}, nil)
	assert.ErrorIs(t, err, group.ErrNilCreate)
}

func TestGroup_FailedConstructionLeavesNothingRegistered(t *testing.T) {
	reg, root := setup(t)

	_, err := group.New(group.Options{
		Object:           phetioobject.Options{Tandem: root.MustCreateTandem("particles")},
		MemberType:       particleIO,
		Prefix:           "bad.prefix",
		DefaultArguments: []any{0.0},
	}, createParticle)
	require.ErrorIs(t, err, tandem.ErrInvalidName)
	assert.Equal(t, 0, reg.Count())

	_, err = group.NewCapsule(group.Options{
		Object:     phetioobject.Options{Tandem: root.MustCreateTandem("capsule")},
		MemberType: particleIO,
		Prefix:     "bad.prefix",
	}, createParticle)
	require.ErrorIs(t, err, tandem.ErrInvalidName)
	assert.Equal(t, 0, reg.Count())

	_, err = group.New(group.Options{
		Object:           phetioobject.Options{Tandem: root.MustCreateTandem("particles")},
		MemberType:       particleIO,
		Prefix:           "particle",
		DefaultArguments: []any{-1.0},
	}, createParticle)
	require.ErrorIs(t, err, group.ErrInvalidElement)
	assert.Equal(t, 0, reg.Count(), "container is disposed with its archetype")

	g := newGroup(t, root)
	assert.Equal(t, "sim.particles", g.PhetioID(), "the id is free again")
}

func TestCapsule(t *testing.T) {
	reg, root := setup(t)
	c, err := group.NewCapsule(group.Options{
		Object:     phetioobject.Options{Tandem: root.MustCreateTandem("capsule")},
		MemberType: particleIO,
	}, createParticle)
	require.NoError(t, err)

	assert.False(t, c.HasElement())
	assert.Nil(t, c.ElementIDs())

	var created int
	c.OnCreated(func(*particle) { created++ })

	el, err := c.GetElement(2.0)
	require.NoError(t, err)
	assert.Equal(t, "sim.capsule.element", el.PhetioID())
	again, err := c.GetElement(99.0)
	require.NoError(t, err)
	assert.Same(t, el, again)
	assert.Equal(t, 1, created)
	assert.Equal(t, "PhetioCapsuleIO(ParticleIO)", c.PhetioType().Name())

	require.NoError(t, c.DisposeElement())
	assert.False(t, c.HasElement())
	assert.True(t, el.Disposed())

	require.NoError(t, c.CreateElementFromState("sim.capsule.element", map[string]any{"value": 4.0}, reg))
	got, ok := c.Element()
	require.True(t, ok)
	assert.Equal(t, 4.0, got.Value)
	assert.ErrorIs(t, c.CreateElementFromState("sim.capsule.other", nil, reg), group.ErrUnknownElementID)

	require.NoError(t, c.DisposeElementByID("sim.capsule.element"))
	require.NoError(t, c.Dispose())
}
