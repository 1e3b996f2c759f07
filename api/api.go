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

// Package api builds the API document of a running simulation: metadata for
// every statically instrumented element plus documentation for every IO type
// they reach. Two documents can be diffed to find breaking changes.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/Masterminds/semver/v3"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioid"
	"dirpx.dev/phetio/tandem"
)

// Document is the serialized API.
type Document struct {
	Version  string                   `json:"version"`
	Elements map[string]apis.Metadata `json:"phetioElements"`
	Types    map[string]TypeDoc       `json:"phetioTypes"`
}

// TypeDoc documents one IO type.
type TypeDoc struct {
	Documentation  string               `json:"documentation"`
	Supertype      string               `json:"supertype,omitempty"`
	TypeVersion    string               `json:"typeVersion"`
	Events         []string             `json:"events,omitempty"`
	Methods        map[string]MethodDoc `json:"methods,omitempty"`
	ParameterTypes []string             `json:"parameterTypes,omitempty"`
	OneWay         bool                 `json:"oneWay,omitempty"`
}

// MethodDoc documents one IO type method.
type MethodDoc struct {
	Documentation                string   `json:"documentation"`
	ReturnType                   string   `json:"returnType"`
	ParameterTypes               []string `json:"parameterTypes"`
	InvocableForReadOnlyElements bool     `json:"invocableForReadOnlyElements,omitempty"`
}

// Build collects the API of reg. Dynamic elements are represented by their
// containers' archetypes and are left out.
func Build(reg *tandem.Registry, version string) (*Document, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("invalid API version %q: %w", version, err)
	}
	doc := &Document{
		Version:  v.String(),
		Elements: map[string]apis.Metadata{},
		Types:    map[string]TypeDoc{},
	}
	for _, inst := range reg.Instances() {
		if phetioid.IsDynamicElement(inst.PhetioID()) {
			continue
		}
		d, ok := inst.(apis.Described)
		if !ok {
			continue
		}
		doc.Elements[inst.PhetioID()] = d.Metadata()
		if typed, ok := inst.(apis.Typed); ok {
			addType(doc.Types, typed.PhetioType())
		}
	}
	return doc, nil
}

// addType documents t and every type it reaches.
func addType(types map[string]TypeDoc, t *iotype.IOType) {
	if t == nil {
		return
	}
	if _, seen := types[t.Name()]; seen {
		return
	}
	td := TypeDoc{
		Documentation: t.Documentation(),
		TypeVersion:   t.Version().String(),
		Events:        t.Events(),
		OneWay:        t.IsOneWay(),
	}
	// Claim the name before recursing so cycles terminate.
	types[t.Name()] = td

	if s := t.Supertype(); s != nil {
		td.Supertype = s.Name()
		addType(types, s)
	}
	for _, p := range t.ParameterTypes() {
		td.ParameterTypes = append(td.ParameterTypes, p.Name())
		addType(types, p)
	}
	for _, name := range t.MethodNames() {
		m, _ := t.Method(name)
		md := MethodDoc{
			Documentation:                m.Documentation,
			ReturnType:                   m.ReturnType.Name(),
			ParameterTypes:               make([]string, 0, len(m.ParameterTypes)),
			InvocableForReadOnlyElements: m.InvocableForReadOnlyElements,
		}
		addType(types, m.ReturnType)
		for _, p := range m.ParameterTypes {
			md.ParameterTypes = append(md.ParameterTypes, p.Name())
			addType(types, p)
		}
		if td.Methods == nil {
			td.Methods = map[string]MethodDoc{}
		}
		td.Methods[name] = md
	}
	types[t.Name()] = td
}

// Write encodes doc as indented JSON.
func (doc *Document) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Read decodes a document.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("phetio(api): decode document: %w", err)
	}
	return &doc, nil
}

// Compatible reports whether next's version satisfies a caret constraint on
// prev's version.
func Compatible(prev, next *Document) (bool, error) {
	constraint, err := semver.NewConstraint("^" + prev.Version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", prev.Version, err)
	}
	v, err := semver.NewVersion(next.Version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", next.Version, err)
	}
	return constraint.Check(v), nil
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
