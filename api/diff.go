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

package api

import (
	"fmt"
	"slices"
	"strings"
)

// Severity classifies a Change.
type Severity int

const (
	// Design changes extend or reword the API.
	Design Severity = iota
	// Breaking changes invalidate clients written against the old API.
	Breaking
)

func (s Severity) String() string {
	if s == Breaking {
		return "breaking"
	}
	return "design"
}

// Change is one difference between two documents.
type Change struct {
	Severity Severity
	// Path is a phetioID, or a type name prefixed with "type ".
	Path    string
	Message string
}

func (c Change) String() string {
	return fmt.Sprintf("[%s] %s: %s", c.Severity, c.Path, c.Message)
}

// Report is the result of Diff.
type Report struct {
	Changes []Change
}

// Breaking returns only the breaking changes.
func (r Report) Breaking() []Change {
	var out []Change
	for _, c := range r.Changes {
		if c.Severity == Breaking {
			out = append(out, c)
		}
	}
	return out
}

// HasBreaking reports whether any change is breaking.
func (r Report) HasBreaking() bool { return len(r.Breaking()) > 0 }

func (r Report) String() string {
	lines := make([]string, 0, len(r.Changes))
	for _, c := range r.Changes {
		lines = append(lines, c.String())
	}
	return strings.Join(lines, "\n")
}

type differ struct{ changes []Change }

func (d *differ) add(sev Severity, path, format string, args ...any) {
	d.changes = append(d.changes, Change{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Diff compares prev against next. Changes are ordered by elements first,
// then types, each sorted by name.
func Diff(prev, next *Document) Report {
	d := &differ{}
	for _, id := range sortedKeys(prev.Elements) {
		was := prev.Elements[id]
		now, ok := next.Elements[id]
		if !ok {
			d.add(Breaking, id, "element removed")
			continue
		}
		if was.PhetioTypeName != now.PhetioTypeName {
			d.add(Breaking, id, "type changed from %s to %s", was.PhetioTypeName, now.PhetioTypeName)
		}
		if !was.PhetioReadOnly && now.PhetioReadOnly {
			d.add(Breaking, id, "became read-only")
		}
		if was.PhetioState && !now.PhetioState {
			d.add(Breaking, id, "no longer stateful")
		}
		if was.PhetioReadOnly && !now.PhetioReadOnly {
			d.add(Design, id, "no longer read-only")
		}
		if was.PhetioDocumentation != now.PhetioDocumentation {
			d.add(Design, id, "documentation changed")
		}
		if was.PhetioFeatured != now.PhetioFeatured {
			d.add(Design, id, "featured changed to %t", now.PhetioFeatured)
		}
	}
	for _, id := range sortedKeys(next.Elements) {
		if _, ok := prev.Elements[id]; !ok {
			d.add(Design, id, "element added")
		}
	}

	for _, name := range sortedKeys(prev.Types) {
		path := "type " + name
		was := prev.Types[name]
		now, ok := next.Types[name]
		if !ok {
			d.add(Breaking, path, "type removed")
			continue
		}
		if was.Supertype != now.Supertype {
			d.add(Breaking, path, "supertype changed from %s to %s", was.Supertype, now.Supertype)
		}
		for _, e := range was.Events {
			if !slices.Contains(now.Events, e) {
				d.add(Breaking, path, "event %s removed", e)
			}
		}
		for _, e := range now.Events {
			if !slices.Contains(was.Events, e) {
				d.add(Design, path, "event %s added", e)
			}
		}
		diffMethods(d, path, was.Methods, now.Methods)
		if was.Documentation != now.Documentation {
			d.add(Design, path, "documentation changed")
		}
	}
	for _, name := range sortedKeys(next.Types) {
		if _, ok := prev.Types[name]; !ok {
			d.add(Design, "type "+name, "type added")
		}
	}
	return Report{Changes: d.changes}
}

func diffMethods(d *differ, path string, prev, next map[string]MethodDoc) {
	for _, name := range sortedKeys(prev) {
		was := prev[name]
		now, ok := next[name]
		if !ok {
			d.add(Breaking, path, "method %s removed", name)
			continue
		}
		if was.ReturnType != now.ReturnType {
			d.add(Breaking, path, "method %s return type changed from %s to %s", name, was.ReturnType, now.ReturnType)
		}
		if !slices.Equal(was.ParameterTypes, now.ParameterTypes) {
			d.add(Breaking, path, "method %s parameters changed", name)
		}
		if was.InvocableForReadOnlyElements && !now.InvocableForReadOnlyElements {
			d.add(Breaking, path, "method %s no longer invocable on read-only elements", name)
		}
	}
	for _, name := range sortedKeys(next) {
		if _, ok := prev[name]; !ok {
			d.add(Design, path, "method %s added", name)
		}
	}
}
