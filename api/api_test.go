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

package api_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/phetio/api"
	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioobject"
	"dirpx.dev/phetio/property"
	"dirpx.dev/phetio/tandem"
)

func buildSim(t *testing.T) *tandem.Registry {
	t.Helper()
	reg := tandem.NewRegistry()
	require.NoError(t, reg.Launch())
	root, err := reg.Root("sim")
	require.NoError(t, err)

	_, err = property.New(1.0, property.Options{Options: phetioobject.Options{
		Tandem:        root.MustCreateTandem("massProperty"),
		Documentation: "Mass in kg",
	}})
	require.NoError(t, err)

	_, err = phetioobject.New(phetioobject.Options{Tandem: root.MustCreateTandem("ball_0")})
	require.NoError(t, err)
	return reg
}

func TestBuild(t *testing.T) {
	doc, err := api.Build(buildSim(t), "1.2.0")
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", doc.Version)
	require.Contains(t, doc.Elements, "sim.massProperty")
	assert.NotContains(t, doc.Elements, "sim.ball_0")
	assert.Equal(t, "PropertyIO(NumberIO)", doc.Elements["sim.massProperty"].PhetioTypeName)

	prop := doc.Types["PropertyIO(NumberIO)"]
	assert.Equal(t, "ObjectIO", prop.Supertype)
	assert.Equal(t, []string{"NumberIO"}, prop.ParameterTypes)
	assert.Contains(t, prop.Events, "changed")
	assert.Equal(t, "NumberIO", prop.Methods["getValue"].ReturnType)
	assert.Equal(t, []string{"NumberIO"}, prop.Methods["setValue"].ParameterTypes)

	for _, name := range []string{"ObjectIO", "NumberIO", "VoidIO"} {
		assert.Contains(t, doc.Types, name)
	}

	_, err = api.Build(buildSim(t), "not-a-version")
	assert.Error(t, err)
}

func TestWriteRead(t *testing.T) {
	doc, err := api.Build(buildSim(t), "1.0.0")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))
	assert.Contains(t, buf.String(), `"phetioElements"`)

	got, err := api.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	_, err = api.Read(bytes.NewBufferString("{"))
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	prev := &api.Document{
		Version: "1.0.0",
		Elements: map[string]apis.Metadata{
			"sim.a": {PhetioTypeName: "NumberIO", PhetioState: true},
			"sim.b": {PhetioTypeName: "StringIO"},
			"sim.c": {PhetioTypeName: "BooleanIO", PhetioDocumentation: "old"},
		},
		Types: map[string]api.TypeDoc{
			"FooIO": {
				Supertype: "ObjectIO",
				Events:    []string{"changed", "reset"},
				Methods: map[string]api.MethodDoc{
					"getValue": {ReturnType: "NumberIO", ParameterTypes: []string{}},
					"bump":     {ReturnType: "VoidIO", ParameterTypes: []string{}},
				},
			},
			"GoneIO": {Supertype: "ObjectIO"},
		},
	}
	next := &api.Document{
		Version: "1.1.0",
		Elements: map[string]apis.Metadata{
			"sim.a": {PhetioTypeName: "StringIO", PhetioState: true, PhetioReadOnly: true},
			"sim.c": {PhetioTypeName: "BooleanIO", PhetioDocumentation: "new"},
			"sim.d": {PhetioTypeName: "NumberIO"},
		},
		Types: map[string]api.TypeDoc{
			"FooIO": {
				Supertype: "ObjectIO",
				Events:    []string{"changed"},
				Methods: map[string]api.MethodDoc{
					"getValue": {ReturnType: "NumberIO", ParameterTypes: []string{}},
					"setValue": {ReturnType: "VoidIO", ParameterTypes: []string{"NumberIO"}},
				},
			},
		},
	}

	report := api.Diff(prev, next)
	assert.True(t, report.HasBreaking())

	var breaking []string
	for _, c := range report.Breaking() {
		breaking = append(breaking, c.Path+": "+c.Message)
	}
	assert.Equal(t, []string{
		"sim.a: type changed from NumberIO to StringIO",
		"sim.a: became read-only",
		"sim.b: element removed",
		"type FooIO: event reset removed",
		"type FooIO: method bump removed",
		"type GoneIO: type removed",
	}, breaking)

	assert.Contains(t, report.Changes, api.Change{Severity: api.Design, Path: "sim.c", Message: "documentation changed"})
	assert.Contains(t, report.Changes, api.Change{Severity: api.Design, Path: "sim.d", Message: "element added"})
	assert.Contains(t, report.Changes, api.Change{Severity: api.Design, Path: "type FooIO", Message: "method setValue added"})
	assert.Contains(t, report.String(), "[breaking] sim.b: element removed")

	assert.False(t, api.Diff(next, next).HasBreaking())
	assert.Empty(t, api.Diff(next, next).Changes)
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		prev, next string
		want       bool
	}{
		{"1.0.0", "1.4.2", true},
		{"1.2.0", "1.1.0", false},
		{"1.2.0", "2.0.0", false},
	}
	for _, tc := range tests {
		ok, err := api.Compatible(&api.Document{Version: tc.prev}, &api.Document{Version: tc.next})
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "%s -> %s", tc.prev, tc.next)
	}

	_, err := api.Compatible(&api.Document{Version: "1.0.0"}, &api.Document{Version: "x"})
	assert.Error(t, err)
}

func TestBuild_CustomTypeReachesMethodTypes(t *testing.T) {
	reg := tandem.NewRegistry()
	require.NoError(t, reg.Launch())
	root, err := reg.Root("sim")
	require.NoError(t, err)

	counterIO := iotype.MustNew(iotype.Options{
		Name:          "CounterIO",
		Documentation: "Counts",
		Methods: map[string]iotype.Method{
			"label": {
				ReturnType:     iotype.StringIO,
				ParameterTypes: []*iotype.IOType{iotype.BooleanIO},
				Implementation: func(any, ...any) (any, error) { return "", nil },
				Documentation:  "label",
			},
		},
	})
	_, err = phetioobject.New(phetioobject.Options{
		Tandem:     root.MustCreateTandem("counter"),
		PhetioType: counterIO,
	})
	require.NoError(t, err)

	doc, err := api.Build(reg, "1.0.0")
	require.NoError(t, err)
	assert.Contains(t, doc.Types, "StringIO")
	assert.Contains(t, doc.Types, "BooleanIO")
	assert.Equal(t, "StringIO", doc.Types["CounterIO"].Methods["label"].ReturnType)
}
