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

package tandem_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/config"
	"dirpx.dev/phetio/metrics"
	"dirpx.dev/phetio/phetioid"
	"dirpx.dev/phetio/tandem"
)

// fakeInstance is the smallest apis.Instance.
type fakeInstance struct {
	id string
}

func (f *fakeInstance) PhetioID() string { return f.id }
func (f *fakeInstance) Host() any        { return f }

func newInstance(t *testing.T, parent *tandem.Tandem, name string) (*tandem.Tandem, *fakeInstance) {
	t.Helper()
	c, err := parent.CreateTandem(name)
	require.NoError(t, err)
	return c, &fakeInstance{id: c.PhetioID()}
}

func recorder() (*apis.ListenerFuncs, *[]string) {
	var events []string
	return &apis.ListenerFuncs{
		Added:   func(i apis.Instance) { events = append(events, "+"+i.PhetioID()) },
		Removed: func(i apis.Instance) { events = append(events, "-"+i.PhetioID()) },
	}, &events
}

func TestCreateTandem(t *testing.T) {
	reg := tandem.NewRegistry()
	root, err := reg.Root("sim")
	require.NoError(t, err)

	screen, err := root.CreateTandem("screen")
	require.NoError(t, err)
	model := screen.MustCreateTandem("model")

	assert.Equal(t, "sim.screen.model", model.PhetioID())
	assert.Equal(t, "model", model.Name())
	assert.Same(t, screen, model.Parent())
	assert.True(t, model.Supplied())
	assert.True(t, model.Enabled())

	parentID, err := phetioid.ParentID(model.PhetioID())
	require.NoError(t, err)
	assert.Equal(t, screen.PhetioID(), parentID)

	for _, bad := range []string{"", "a.b", "has space", "q?"} {
		_, err := root.CreateTandem(bad)
		assert.ErrorIs(t, err, tandem.ErrInvalidName, "name %q", bad)
	}
	_, err = reg.Root("bad.root")
	assert.ErrorIs(t, err, tandem.ErrInvalidName)
	assert.Panics(t, func() { root.MustCreateTandem("x.y") })
}

func TestPlaceholders(t *testing.T) {
	reg := tandem.NewRegistry()

	opt := reg.Optional().MustCreateTandem("child")
	assert.False(t, opt.Supplied())
	assert.False(t, opt.Enabled())

	req := reg.Required().MustCreateTandem("child")
	assert.True(t, req.IsRequired())
	assert.False(t, req.Supplied())

	assert.True(t, reg.OptOut().IsOptOut())

	// unsupplied tandems ignore registration
	inst := &fakeInstance{id: opt.PhetioID()}
	require.NoError(t, opt.AddInstance(inst))
	require.NoError(t, opt.RemoveInstance(inst))
	assert.Equal(t, 0, reg.Count()+reg.Pending())
}

func TestDisabledRegistryIgnoresInstances(t *testing.T) {
	reg := tandem.NewRegistry(tandem.WithConfig(config.NewConfig(config.WithEnabled(false))))
	root, _ := reg.Root("sim")
	c, inst := newInstance(t, root, "a")

	assert.False(t, c.Enabled())
	require.NoError(t, c.AddInstance(inst))
	require.NoError(t, reg.Launch())
	assert.Equal(t, 0, reg.Count())
}

func TestLaunch_FlushesFIFO(t *testing.T) {
	m := metrics.New("")
	reg := tandem.NewRegistry(tandem.WithMetrics(m))
	root, _ := reg.Root("sim")
	l, events := recorder()
	reg.AddInstanceListener(l)

	for _, name := range []string{"a", "b", "c"} {
		c, inst := newInstance(t, root, name)
		require.NoError(t, c.AddInstance(inst))
	}
	assert.Empty(t, *events, "no notifications before launch")
	assert.Equal(t, 3, reg.Pending())
	assert.Equal(t, 0, reg.Count())
	_, ok := reg.Lookup("sim.a")
	assert.False(t, ok, "pending instances are not active")

	require.NoError(t, reg.Launch())
	assert.Equal(t, []string{"+sim.a", "+sim.b", "+sim.c"}, *events)
	assert.Equal(t, 0, reg.Pending())
	assert.True(t, reg.Launched())

	assert.ErrorIs(t, reg.Launch(), tandem.ErrAlreadyLaunched)

	// after launch, additions are immediate
	c, inst := newInstance(t, root, "d")
	require.NoError(t, c.AddInstance(inst))
	assert.Equal(t, "+sim.d", (*events)[3])

	ids := make([]string, 0)
	for _, i := range reg.Instances() {
		ids = append(ids, i.PhetioID())
	}
	assert.Equal(t, []string{"sim.a", "sim.b", "sim.c", "sim.d"}, ids)
}

func TestLaunch_AdditionsDuringDrainAreImmediate(t *testing.T) {
	reg := tandem.NewRegistry()
	root, _ := reg.Root("sim")
	var order []string

	late, lateInst := newInstance(t, root, "late")
	reg.AddInstanceListener(&apis.ListenerFuncs{Added: func(i apis.Instance) {
		order = append(order, i.PhetioID())
		if i.PhetioID() == "sim.a" {
			require.NoError(t, late.AddInstance(lateInst))
		}
	}})

	for _, name := range []string{"a", "b"} {
		c, inst := newInstance(t, root, name)
		require.NoError(t, c.AddInstance(inst))
	}
	require.NoError(t, reg.Launch())
	assert.Equal(t, []string{"sim.a", "sim.late", "sim.b"}, order)
}

func TestLaunch_ActivatesPastFailures(t *testing.T) {
	reg := tandem.NewRegistry()
	root, _ := reg.Root("sim")

	// Adding "sim.b" while "sim.a" activates makes the queued "sim.b" collide.
	b, early := newInstance(t, root, "b")
	reg.AddInstanceListener(&apis.ListenerFuncs{Added: func(i apis.Instance) {
		if i.PhetioID() == "sim.a" {
			require.NoError(t, b.AddInstance(early))
		}
	}})

	for _, name := range []string{"a", "b", "c"} {
		c, inst := newInstance(t, root, name)
		require.NoError(t, c.AddInstance(inst))
	}
	err := reg.Launch()
	require.ErrorIs(t, err, tandem.ErrDuplicateID)
	assert.Contains(t, err.Error(), "sim.b")

	assert.True(t, reg.Launched())
	_, ok := reg.Instance("sim.c")
	assert.True(t, ok, "entries after the failure still activate")
	got, ok := reg.Instance("sim.b")
	require.True(t, ok)
	assert.Same(t, early, got)
}

func TestListeners_NotRetroactive(t *testing.T) {
	reg := tandem.NewRegistry()
	require.NoError(t, reg.Launch())
	root, _ := reg.Root("sim")

	c, inst := newInstance(t, root, "early")
	require.NoError(t, c.AddInstance(inst))

	l, events := recorder()
	reg.AddInstanceListener(l)
	assert.Empty(t, *events)

	require.NoError(t, c.RemoveInstance(inst))
	assert.Equal(t, []string{"-sim.early"}, *events)

	reg.RemoveInstanceListener(l)
	reg.RemoveInstanceListener(&apis.ListenerFuncs{}) // unknown: no-op
	c2, inst2 := newInstance(t, root, "other")
	require.NoError(t, c2.AddInstance(inst2))
	assert.Len(t, *events, 1)
}

func TestRemoveInstance_Errors(t *testing.T) {
	reg := tandem.NewRegistry()
	require.NoError(t, reg.Launch())
	root, _ := reg.Root("sim")
	c, inst := newInstance(t, root, "a")

	assert.ErrorIs(t, c.RemoveInstance(inst), tandem.ErrNotRegistered)

	require.NoError(t, c.AddInstance(inst))
	require.NoError(t, c.RemoveInstance(inst))
	assert.ErrorIs(t, c.RemoveInstance(inst), tandem.ErrNotRegistered, "double remove")
}

func TestRemovePendingIsSilent(t *testing.T) {
	reg := tandem.NewRegistry()
	root, _ := reg.Root("sim")
	l, events := recorder()
	reg.AddInstanceListener(l)

	c, inst := newInstance(t, root, "a")
	require.NoError(t, c.AddInstance(inst))
	require.NoError(t, c.RemoveInstance(inst))
	require.NoError(t, reg.Launch())

	assert.Empty(t, *events)
}

func TestAddInstance_Errors(t *testing.T) {
	reg := tandem.NewRegistry()
	root, _ := reg.Root("sim")
	c, inst := newInstance(t, root, "a")

	assert.ErrorIs(t, c.AddInstance(&fakeInstance{id: "sim.b"}), tandem.ErrIDMismatch)

	require.NoError(t, c.AddInstance(inst))
	assert.ErrorIs(t, c.AddInstance(&fakeInstance{id: "sim.a"}), tandem.ErrDuplicateID)

	require.NoError(t, reg.Launch())
	assert.ErrorIs(t, c.AddInstance(&fakeInstance{id: "sim.a"}), tandem.ErrDuplicateID)
}

func TestGroupTandem(t *testing.T) {
	reg := tandem.NewRegistry()
	root, _ := reg.Root("sim")

	g, err := root.CreateGroupTandem("electron")
	require.NoError(t, err)
	t0, err := g.CreateNextTandem()
	require.NoError(t, err)
	t1, err := g.CreateNextTandem()
	require.NoError(t, err)

	assert.Equal(t, "sim.electron_0", t0.PhetioID())
	assert.Equal(t, "sim.electron_1", t1.PhetioID())
	assert.True(t, t1.IsDynamic())
	assert.Equal(t, 2, g.NextIndex())

	t5, err := g.TandemAt(5)
	require.NoError(t, err)
	assert.Equal(t, "sim.electron_5", t5.PhetioID())
	assert.Equal(t, 6, g.NextIndex())

	_, err = g.TandemAt(3)
	require.NoError(t, err)
	assert.Equal(t, 6, g.NextIndex(), "lower index does not move the counter back")

	g.Claim(9)
	assert.Equal(t, 10, g.NextIndex())

	g.Reset()
	assert.Equal(t, 0, g.NextIndex())

	_, err = root.CreateGroupTandem("bad.prefix")
	assert.ErrorIs(t, err, tandem.ErrInvalidName)
	_, err = root.CreateIndexedTandem("x", -1)
	assert.ErrorIs(t, err, tandem.ErrInvalidName)
}

func TestIsArchetype(t *testing.T) {
	reg := tandem.NewRegistry()
	root, _ := reg.Root("sim")
	arch := root.MustCreateTandem("group").MustCreateTandem(tandem.ArchetypeName)

	assert.True(t, arch.IsArchetype())
	assert.True(t, arch.MustCreateTandem("child").IsArchetype())
	assert.False(t, root.IsArchetype())
}

func TestDeferFlushAndDiagnostics(t *testing.T) {
	reg := tandem.NewRegistry()
	var order []int

	reg.Defer(func() { order = append(order, 1) })
	reg.Defer(func() {
		order = append(order, 2)
		reg.Defer(func() { order = append(order, 3) })
	})
	assert.Empty(t, order)
	assert.Equal(t, 3, reg.Flush())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, reg.Flush())

	boom := errors.New("boom")
	reg.Report(boom)
	require.Len(t, reg.Diagnostics(), 1)
	assert.ErrorIs(t, reg.Diagnostics()[0], boom)
}

func TestLookupImplementsReferences(t *testing.T) {
	reg := tandem.NewRegistry()
	require.NoError(t, reg.Launch())
	root, _ := reg.Root("sim")
	c, inst := newInstance(t, root, "a")
	require.NoError(t, c.AddInstance(inst))

	host, ok := reg.Lookup("sim.a")
	require.True(t, ok)
	assert.Same(t, inst, host)

	got, ok := reg.Instance("sim.a")
	require.True(t, ok)
	assert.Equal(t, "sim.a", got.PhetioID())
}
