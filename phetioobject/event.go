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

	"dirpx.dev/phetio/apis"
)

// suppressed marks a frame whose start never reached the sink.
const suppressed int64 = -1

// EventOption configures a StartEvent call.
type EventOption func(*eventOptions)

type eventOptions struct {
	data    map[string]any
	getData func() map[string]any
}

// WithData attaches data to the event.
func WithData(data map[string]any) EventOption {
	return func(e *eventOptions) { e.data = data }
}

// WithDataFunc attaches data computed only if the event is emitted.
func WithDataFunc(fn func() map[string]any) EventOption {
	return func(e *eventOptions) { e.getData = fn }
}

// StartEvent opens an event. Objects that are not instrumented, opted out,
// or high frequency while suppression is on push a sentinel frame instead
// of emitting. Every StartEvent needs a matching EndEvent either way.
func (o *PhetioObject) StartEvent(event string, opts ...EventOption) error {
	if !o.initialized {
		return fmt.Errorf("%w: start %q", ErrNotInitialized, event)
	}

	if reason := o.suppression(); reason != "" {
		o.stack = append(o.stack, suppressed)
		o.reg.Metrics().EventSuppressed(reason)
		return nil
	}

	var eo eventOptions
	for _, opt := range opts {
		opt(&eo)
	}
	data := eo.data
	if eo.getData != nil {
		data = eo.getData()
	}

	id := o.reg.Sink().Start(o.opts.EventType, o.PhetioID(), o.opts.PhetioType.Name(), event, data, o.opts.EventMetadata)
	o.stack = append(o.stack, id)
	o.reg.Metrics().EventStarted(o.opts.EventType)
	return nil
}

func (o *PhetioObject) suppression() string {
	switch {
	case !o.IsInstrumented():
		return "uninstrumented"
	case o.disposed:
		return "disposed"
	case o.opts.EventType == apis.EventOptOut:
		return "opt-out"
	case o.opts.HighFrequency && o.reg.Config().SuppressHighFrequency:
		return "high-frequency"
	}
	return ""
}

// EndEvent closes the most recent event.
func (o *PhetioObject) EndEvent() error {
	n := len(o.stack)
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyEventStack, o.PhetioID())
	}
	id := o.stack[n-1]
	o.stack = o.stack[:n-1]
	if id == suppressed {
		return nil
	}
	o.reg.Sink().End(id)
	return nil
}

// EventDepth returns the number of open events.
func (o *PhetioObject) EventDepth() int { return len(o.stack) }
