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

package phetioid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/phetio/phetioid"
)

func TestAppend(t *testing.T) {
	id, err := phetioid.Append("sim", "screen", "model")
	require.NoError(t, err)
	assert.Equal(t, "sim.screen.model", id)

	_, err = phetioid.Append("sim", "a.b")
	require.ErrorIs(t, err, phetioid.ErrSeparatorInSegment)
}

func TestAppend_InverseLaws(t *testing.T) {
	parents := []string{"sim", "sim.screen", "sim.screen.model", "a_1.b_2"}
	children := []string{"x", "electron_3", "", "view"}

	for _, p := range parents {
		for _, c := range children {
			id, err := phetioid.Append(p, c)
			require.NoError(t, err)

			parent, err := phetioid.ParentID(id)
			require.NoError(t, err)
			assert.Equal(t, p, parent, "ParentID(Append(%q,%q))", p, c)
			assert.Equal(t, c, phetioid.ComponentName(id), "ComponentName(Append(%q,%q))", p, c)
		}
	}
}

func TestComponentNameAndParent(t *testing.T) {
	assert.Equal(t, "sim", phetioid.ComponentName("sim"))
	assert.Equal(t, "model", phetioid.ComponentName("sim.screen.model"))

	_, err := phetioid.ParentID("sim")
	require.ErrorIs(t, err, phetioid.ErrNoParent)
}

func TestIsDynamicElement(t *testing.T) {
	assert.True(t, phetioid.IsDynamicElement("sim.screen.electron_3"))
	assert.False(t, phetioid.IsDynamicElement("sim.screen.model"))
}

func TestGroupIndex(t *testing.T) {
	cases := []struct {
		id     string
		prefix string
		index  int
		ok     bool
	}{
		{"sim.particles.particle_0", "particle", 0, true},
		{"sim.particles.particle_12", "particle", 12, true},
		{"big_particle_4", "big_particle", 4, true},
		{"sim.particles.particle_", "", 0, false},
		{"sim.particles.particle_x", "", 0, false},
		{"sim.particles.model", "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			prefix, index, err := phetioid.GroupIndex(tc.id)
			if !tc.ok {
				require.ErrorIs(t, err, phetioid.ErrNotIndexed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.prefix, prefix)
			assert.Equal(t, tc.index, index)
		})
	}
	assert.Equal(t, "particle_7", phetioid.IndexedName("particle", 7))
}
