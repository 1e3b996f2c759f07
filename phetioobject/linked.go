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

package phetioobject

import (
	"fmt"
	"reflect"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioid"
	"dirpx.dev/phetio/tandem"
)

// LinkedElementIO serializes a link as {"elementID": target phetioID}. Links
// are display-only and never deserialize.
var LinkedElementIO = iotype.MustNew(iotype.Options{
	Name:          "LinkedElementIO",
	Documentation: "A read-only reference to another instrumented element, shown for navigation.",
	ValueType:     reflect.TypeOf(&LinkedElement{}),
	OneWay:        true,
	ToStateObject: func(v any) (any, error) {
		return map[string]any{"elementID": v.(*LinkedElement).element.PhetioID()}, nil
	},
})

// LinkedElement is a one-way reference from its owner to another
// instrumented element. It never owns the element.
type LinkedElement struct {
	PhetioObject
	element apis.Instance
}

// Element returns the linked element.
func (l *LinkedElement) Element() apis.Instance { return l.element }

// AddLinkedElement links element under t, or under a child named after the
// element when t is nil. Links to elements that are not instrumented are
// skipped and yield (nil, nil). The link is disposed with o.
func (o *PhetioObject) AddLinkedElement(element apis.Instance, t *tandem.Tandem) (*LinkedElement, error) {
	if !o.initialized {
		return nil, fmt.Errorf("%w: link to %s", ErrNotInitialized, element.PhetioID())
	}
	if po, ok := element.(interface{ IsInstrumented() bool }); ok && !po.IsInstrumented() {
		return nil, nil
	}
	if t == nil {
		var err error
		if t, err = o.tandem.CreateTandem(phetioid.ComponentName(element.PhetioID())); err != nil {
			return nil, err
		}
	}
	l := &LinkedElement{element: element}
	err := l.Initialize(l, Options{
		Tandem:        t,
		PhetioType:    LinkedElementIO,
		Documentation: "Link to " + element.PhetioID(),
		NoState:       true,
		ReadOnly:      true,
	})
	if err != nil {
		return nil, err
	}
	o.links = append(o.links, l)
	return l, nil
}

// LinkedElements returns the links owned by o.
func (o *PhetioObject) LinkedElements() []*LinkedElement {
	return append([]*LinkedElement(nil), o.links...)
}
