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

// Package phetioid composes and decomposes hierarchical phetioIDs.
//
// A phetioID is a dot separated path such as "sim.screen.model". The last
// segment of a dynamic element carries a group index suffix, for example
// "sim.screen.model.electron_3".
package phetioid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Separator separates the segments of a phetioID.
	Separator = "."
	// GroupSeparator separates a dynamic element prefix from its index.
	GroupSeparator = "_"
)

var (
	// ErrSeparatorInSegment is returned when a segment contains Separator.
	ErrSeparatorInSegment = errors.New("phetio(id): segment contains separator")
	// ErrNoParent is returned for ids without a separator.
	ErrNoParent = errors.New("phetio(id): root id has no parent")
	// ErrNotIndexed is returned when a component name carries no group index.
	ErrNotIndexed = errors.New("phetio(id): component has no group index")
)

// Append joins id and segments with Separator.
func Append(id string, segments ...string) (string, error) {
	var b strings.Builder
	b.WriteString(id)
	for _, s := range segments {
		if strings.Contains(s, Separator) {
			return "", fmt.Errorf("%w: %q", ErrSeparatorInSegment, s)
		}
		b.WriteString(Separator)
		b.WriteString(s)
	}
	return b.String(), nil
}

// ComponentName returns the last segment of id, or id itself for a root id.
func ComponentName(id string) string {
	if i := strings.LastIndex(id, Separator); i >= 0 {
		return id[i+len(Separator):]
	}
	return id
}

// ParentID returns everything before the last separator.
func ParentID(id string) (string, error) {
	i := strings.LastIndex(id, Separator)
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrNoParent, id)
	}
	return id[:i], nil
}

// IsDynamicElement reports whether id contains GroupSeparator anywhere.
func IsDynamicElement(id string) bool {
	return strings.Contains(id, GroupSeparator)
}

// IndexedName returns prefix + GroupSeparator + index.
func IndexedName(prefix string, index int) string {
	return prefix + GroupSeparator + strconv.Itoa(index)
}

// GroupIndex extracts the trailing group index of id's component name.
// "sim.particles.particle_12" yields ("particle", 12, nil).
func GroupIndex(id string) (prefix string, index int, err error) {
	name := ComponentName(id)
	i := strings.LastIndex(name, GroupSeparator)
	if i < 0 || i == len(name)-len(GroupSeparator) {
		return "", 0, fmt.Errorf("%w: %q", ErrNotIndexed, id)
	}
	index, err = strconv.Atoi(name[i+len(GroupSeparator):])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrNotIndexed, id)
	}
	return name[:i], index, nil
}
