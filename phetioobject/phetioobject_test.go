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

package phetioobject_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/config"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioobject"
	"dirpx.dev/phetio/tandem"
)

// recordingSink logs start/end calls.
type recordingSink struct {
	next   int64
	starts []string
	data   []map[string]any
	ends   []int64
}

func (s *recordingSink) Start(_ apis.EventType, id, _, event string, data, _ map[string]any) int64 {
	s.starts = append(s.starts, id+":"+event)
	s.data = append(s.data, data)
	s.next++
	return s.next
}

func (s *recordingSink) End(id int64) { s.ends = append(s.ends, id) }

type button struct {
	phetioobject.PhetioObject
	presses int
}

var buttonIO = iotype.MustNew(iotype.Options{
	Name:          "ButtonIO",
	Documentation: "A push button",
	ValueType:     reflect.TypeOf(&button{}),
	Events:        []string{"pressed"},
})

func setup(t *testing.T, opts ...config.Option) (*tandem.Registry, *tandem.Tandem, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	reg := tandem.NewRegistry(tandem.WithConfig(config.NewConfig(opts...)), tandem.WithSink(sink))
	require.NoError(t, reg.Launch())
	root, err := reg.Root("sim")
	require.NoError(t, err)
	return reg, root, sink
}

func newButton(t *testing.T, tn *tandem.Tandem, opts phetioobject.Options) *button {
	t.Helper()
	b := &button{}
	opts.Tandem = tn
	if opts.PhetioType == nil {
		opts.PhetioType = buttonIO
	}
	require.NoError(t, b.Initialize(b, opts))
	return b
}

func TestInitialize_RegistersInstrumented(t *testing.T) {
	reg, root, _ := setup(t)
	b := newButton(t, root.MustCreateTandem("button"), phetioobject.Options{Documentation: "press me"})

	assert.True(t, b.IsInstrumented())
	require.NotNil(t, b.Wrapper())
	assert.Same(t, b, b.Wrapper().Instance())

	inst, ok := reg.Instance("sim.button")
	require.True(t, ok)
	assert.Same(t, b, inst.Host())

	md := b.Metadata()
	assert.Equal(t, "ButtonIO", md.PhetioTypeName)
	assert.Equal(t, "press me", md.PhetioDocumentation)
	assert.True(t, md.PhetioState)
	assert.True(t, md.PhetioStudioControl)
	assert.Equal(t, apis.EventModel, md.PhetioEventType)
	assert.False(t, md.PhetioDynamicElement)

	// Embedding promotes the typed fast path.
	assert.Same(t, buttonIO, reg.Resolve(b))
}

func TestInitialize_Errors(t *testing.T) {
	reg, root, _ := setup(t)
	b := newButton(t, root.MustCreateTandem("button"), phetioobject.Options{})

	assert.ErrorIs(t, b.Initialize(b, phetioobject.Options{Tandem: root}), phetioobject.ErrAlreadyInitialized)

	var o phetioobject.PhetioObject
	assert.ErrorIs(t, o.Initialize(&o, phetioobject.Options{}), phetioobject.ErrNilTandem)

	err := (&button{}).Initialize(&button{}, phetioobject.Options{Tandem: reg.Required(), PhetioType: buttonIO})
	assert.ErrorIs(t, err, phetioobject.ErrRequiredTandem)

	err = (&button{}).Initialize(&button{}, phetioobject.Options{Tandem: root.MustCreateTandem("x"), EventType: "bogus"})
	assert.ErrorIs(t, err, phetioobject.ErrInvalidEventType)

	// host must satisfy the IO type under validation
	var plain phetioobject.PhetioObject
	err = plain.Initialize(&plain, phetioobject.Options{Tandem: root.MustCreateTandem("y"), PhetioType: buttonIO})
	assert.ErrorIs(t, err, iotype.ErrInvalidValue)

	// duplicate id
	b2 := &button{}
	err = b2.Initialize(b2, phetioobject.Options{Tandem: root.MustCreateTandem("button"), PhetioType: buttonIO})
	assert.ErrorIs(t, err, tandem.ErrDuplicateID)
}

type gauge struct {
	phetioobject.PhetioObject
	ready bool
}

var gaugeIO = iotype.MustNew(iotype.Options{
	Name:          "GaugeIO",
	Documentation: "A gauge that must be ready before it is instrumented",
	ValueType:     reflect.TypeOf(&gauge{}),
	Validator: func(v any) error {
		if !v.(*gauge).ready {
			return errors.New("not ready")
		}
		return nil
	},
})

func TestInitialize_RetryAfterFailure(t *testing.T) {
	reg, root, sink := setup(t)
	tn := root.MustCreateTandem("gauge")

	g := &gauge{}
	err := g.Initialize(g, phetioobject.Options{Tandem: tn, PhetioType: gaugeIO})
	require.ErrorIs(t, err, iotype.ErrInvalidValue)
	assert.False(t, g.Initialized())
	assert.False(t, g.IsInstrumented())
	assert.Nil(t, g.Wrapper())
	assert.ErrorIs(t, g.StartEvent("moved"), phetioobject.ErrNotInitialized)
	assert.Empty(t, sink.starts)
	assert.Equal(t, 0, reg.Count())

	g.ready = true
	require.NoError(t, g.Initialize(g, phetioobject.Options{Tandem: tn, PhetioType: gaugeIO}))
	inst, ok := reg.Instance("sim.gauge")
	require.True(t, ok)
	assert.Same(t, g, inst.Host())
}

func TestInitialize_RetryAfterDuplicateID(t *testing.T) {
	reg, root, _ := setup(t)
	first := newButton(t, root.MustCreateTandem("button"), phetioobject.Options{})

	b := &button{}
	err := b.Initialize(b, phetioobject.Options{Tandem: root.MustCreateTandem("button"), PhetioType: buttonIO})
	require.ErrorIs(t, err, tandem.ErrDuplicateID)
	assert.False(t, b.Initialized())
	assert.ErrorIs(t, b.StartEvent("pressed"), phetioobject.ErrNotInitialized)

	require.NoError(t, first.Dispose())
	require.NoError(t, b.Initialize(b, phetioobject.Options{Tandem: root.MustCreateTandem("button"), PhetioType: buttonIO}))
	inst, ok := reg.Instance("sim.button")
	require.True(t, ok)
	assert.Same(t, b, inst.Host())
}

func TestRequiredTandemWithoutValidation(t *testing.T) {
	reg, _, _ := setup(t, config.WithValidation(false))
	b := &button{}
	require.NoError(t, b.Initialize(b, phetioobject.Options{Tandem: reg.Required(), PhetioType: buttonIO}))
	assert.False(t, b.IsInstrumented())
}

func TestUninstrumented(t *testing.T) {
	reg, _, sink := setup(t)
	b := newButton(t, reg.Optional(), phetioobject.Options{})

	assert.False(t, b.IsInstrumented())
	assert.Nil(t, b.Wrapper())
	assert.Equal(t, 0, reg.Count())

	require.NoError(t, b.StartEvent("pressed"))
	require.NoError(t, b.EndEvent())
	assert.Empty(t, sink.starts)
	require.NoError(t, b.Dispose())
}

func TestEvents_NestAndBalance(t *testing.T) {
	_, root, sink := setup(t)
	b := newButton(t, root.MustCreateTandem("button"), phetioobject.Options{EventType: apis.EventUser})

	const n = 3
	for i := 0; i < n; i++ {
		require.NoError(t, b.StartEvent("pressed"))
	}
	assert.Equal(t, n, b.EventDepth())
	for i := 0; i < n; i++ {
		require.NoError(t, b.EndEvent())
	}
	assert.Equal(t, 0, b.EventDepth())
	assert.Equal(t, []int64{3, 2, 1}, sink.ends)

	assert.ErrorIs(t, b.EndEvent(), phetioobject.ErrEmptyEventStack)
}

func TestEvents_NotInitialized(t *testing.T) {
	var o phetioobject.PhetioObject
	assert.ErrorIs(t, o.StartEvent("x"), phetioobject.ErrNotInitialized)
}

func TestEvents_LazyData(t *testing.T) {
	_, root, sink := setup(t, config.WithSuppressHighFrequency(true))
	calls := 0
	getData := func() map[string]any {
		calls++
		return map[string]any{"n": calls}
	}

	b := newButton(t, root.MustCreateTandem("button"), phetioobject.Options{})
	require.NoError(t, b.StartEvent("pressed", phetioobject.WithDataFunc(getData)))
	require.NoError(t, b.EndEvent())
	assert.Equal(t, 1, calls)
	assert.Equal(t, map[string]any{"n": 1}, sink.data[0])

	hf := newButton(t, root.MustCreateTandem("drag"), phetioobject.Options{HighFrequency: true})
	require.NoError(t, hf.StartEvent("dragged", phetioobject.WithDataFunc(getData)))
	assert.Equal(t, 1, hf.EventDepth(), "sentinel pushed")
	require.NoError(t, hf.EndEvent())
	assert.Equal(t, 1, calls, "suppressed events never build data")
	assert.Len(t, sink.starts, 1)
	assert.Len(t, sink.ends, 1)
}

func TestEvents_OptOut(t *testing.T) {
	reg, _, sink := setup(t)
	root, _ := reg.Root("sim")
	b := newButton(t, root.MustCreateTandem("quiet"), phetioobject.Options{EventType: apis.EventOptOut})

	require.NoError(t, b.StartEvent("pressed", phetioobject.WithData(map[string]any{"x": 1})))
	require.NoError(t, b.EndEvent())
	assert.Empty(t, sink.starts)
}

func TestDispose(t *testing.T) {
	reg, root, _ := setup(t)
	var removed []string
	reg.AddInstanceListener(&apis.ListenerFuncs{Removed: func(i apis.Instance) { removed = append(removed, i.PhetioID()) }})

	b := newButton(t, root.MustCreateTandem("button"), phetioobject.Options{})
	w := b.Wrapper()
	require.NoError(t, b.Dispose())

	assert.True(t, w.Disposed())
	assert.Equal(t, []string{"sim.button"}, removed)
	_, ok := reg.Instance("sim.button")
	assert.False(t, ok)

	assert.ErrorIs(t, b.Dispose(), phetioobject.ErrAlreadyDisposed)
	assert.Len(t, removed, 1, "deregistered once")
}

func TestDispose_UnbalancedReportedOnFlush(t *testing.T) {
	reg, root, _ := setup(t)
	b := newButton(t, root.MustCreateTandem("button"), phetioobject.Options{})

	require.NoError(t, b.StartEvent("pressed"))
	require.NoError(t, b.Dispose(), "open events never block disposal")
	assert.Empty(t, reg.Diagnostics())

	reg.Flush()
	require.Len(t, reg.Diagnostics(), 1)
	assert.ErrorIs(t, reg.Diagnostics()[0], phetioobject.ErrUnbalancedEvents)

	// Ends that close in the same turn keep the check quiet.
	c := newButton(t, root.MustCreateTandem("other"), phetioobject.Options{})
	require.NoError(t, c.StartEvent("pressed"))
	require.NoError(t, c.Dispose())
	require.NoError(t, c.EndEvent())
	reg.Flush()
	assert.Len(t, reg.Diagnostics(), 1)
}

func TestDispose_CheckDisabled(t *testing.T) {
	reg, root, _ := setup(t, config.WithCheckEventStackOnDispose(false))
	b := newButton(t, root.MustCreateTandem("button"), phetioobject.Options{})
	require.NoError(t, b.StartEvent("pressed"))
	require.NoError(t, b.Dispose())
	assert.Equal(t, 0, reg.Flush())
	assert.Empty(t, reg.Diagnostics())
}

func TestLinkedElement(t *testing.T) {
	reg, root, _ := setup(t)
	target := newButton(t, root.MustCreateTandem("target"), phetioobject.Options{})
	owner := newButton(t, root.MustCreateTandem("owner"), phetioobject.Options{})

	link, err := owner.AddLinkedElement(target, nil)
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "sim.owner.target", link.PhetioID())
	assert.Same(t, target, link.Element())
	assert.False(t, link.Metadata().PhetioState)
	assert.True(t, link.Metadata().PhetioReadOnly)

	state, err := link.Wrapper().ToStateObject()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"elementID": "sim.target"}, state)

	// uninstrumented targets are skipped
	quiet := newButton(t, reg.Optional(), phetioobject.Options{})
	skipped, err := owner.AddLinkedElement(quiet, nil)
	require.NoError(t, err)
	assert.Nil(t, skipped)

	require.NoError(t, owner.Dispose())
	assert.True(t, link.Disposed())
	_, ok := reg.Instance("sim.owner.target")
	assert.False(t, ok)
	assert.False(t, target.Disposed(), "links never own their element")
}

func TestNew(t *testing.T) {
	_, root, _ := setup(t)
	o, err := phetioobject.New(phetioobject.Options{Tandem: root.MustCreateTandem("plain")})
	require.NoError(t, err)
	assert.Same(t, iotype.ObjectIO, o.PhetioType())
	assert.Same(t, o, o.Host())
}
