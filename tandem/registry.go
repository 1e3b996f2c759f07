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

// Package tandem manages phetioIDs and the registry of instrumented instances.
//
// Instances added before Launch wait in a FIFO queue and become active, in
// creation order, when Launch drains it. After launch they become active
// immediately. Listeners only hear about instances that become active after
// they were added.
package tandem

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/builder"
	"dirpx.dev/phetio/config"
	"dirpx.dev/phetio/datastream"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/metrics"
)

// Instance is an instrumented entity.
type Instance = apis.Instance

// Option configures a Registry.
type Option func(*Registry)

// WithConfig sets the instrumentation configuration.
func WithConfig(cfg apis.Config) Option {
	return func(r *Registry) { r.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithSink sets the data stream sink.
func WithSink(s apis.Sink) Option {
	return func(r *Registry) {
		if s != nil {
			r.sink = s
		}
	}
}

// WithTypes sets the Go type to IO type registry and the resolver built on it.
func WithTypes(types apis.Registry, res apis.Resolver) Option {
	return func(r *Registry) {
		r.types = types
		r.resolver = res
	}
}

// WithMetrics sets the Prometheus collectors. nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// Registry is the process context for instrumentation: it owns the
// configuration, the instance table, launch state, listeners, the data stream
// sink and the deferred-work queue.
type Registry struct {
	cfg      apis.Config
	logger   zerolog.Logger
	sink     apis.Sink
	types    apis.Registry
	resolver apis.Resolver
	metrics  *metrics.Metrics

	mu        sync.Mutex
	launched  bool
	pending   []Instance
	instances map[string]Instance
	order     []string
	listeners []apis.InstanceListener
	deferred  []func()
	diag      []error

	optional *Tandem
	required *Tandem
	optOut   *Tandem
}

// NewRegistry constructs an unlaunched Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		cfg:       config.DefaultConfig(),
		logger:    zerolog.Nop(),
		sink:      datastream.Nop(),
		instances: make(map[string]Instance),
	}
	for _, o := range opts {
		o(r)
	}
	if r.types == nil || r.resolver == nil {
		b := builder.New()
		r.types = b.BuildRegistry(r.cfg, r.types, builder.DefaultEntries())
		r.resolver = b.BuildResolver(r.cfg, r.types, nil, nil)
	}
	r.optional = &Tandem{reg: r, name: optionalName, phetioID: optionalName}
	r.required = &Tandem{reg: r, name: requiredName, phetioID: requiredName, required: true}
	r.optOut = &Tandem{reg: r, name: optOutName, phetioID: optOutName, optOut: true}
	return r
}

// Config returns the configuration.
func (r *Registry) Config() apis.Config { return r.cfg }

// Logger returns the logger.
func (r *Registry) Logger() zerolog.Logger { return r.logger }

// Sink returns the data stream sink.
func (r *Registry) Sink() apis.Sink { return r.sink }

// Metrics returns the collectors, possibly nil.
func (r *Registry) Metrics() *metrics.Metrics { return r.metrics }

// Types returns the Go type to IO type registry.
func (r *Registry) Types() apis.Registry { return r.types }

// Resolve returns the IO type for a Go value, or nil.
func (r *Registry) Resolve(v any) *iotype.IOType {
	return r.resolver.Resolve(v, r.cfg)
}

// ResolveType returns the IO type for a Go type, or nil.
func (r *Registry) ResolveType(t reflect.Type) *iotype.IOType {
	return r.resolver.ResolveType(t, r.cfg)
}

// Root returns a supplied root tandem.
func (r *Registry) Root(name string) (*Tandem, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return &Tandem{reg: r, name: name, phetioID: name, supplied: true}, nil
}

// Optional returns the placeholder for objects that may go uninstrumented.
func (r *Registry) Optional() *Tandem { return r.optional }

// Required returns the placeholder for objects that must be instrumented.
func (r *Registry) Required() *Tandem { return r.required }

// OptOut returns the placeholder for objects that never get instrumented.
func (r *Registry) OptOut() *Tandem { return r.optOut }

// Launched reports whether Launch ran.
func (r *Registry) Launched() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.launched
}

// Launch activates every pending instance in creation order. Instances added
// while the queue drains become active directly. A failed activation does not
// stop the drain; the failures are joined.
func (r *Registry) Launch() error {
	r.mu.Lock()
	if r.launched {
		r.mu.Unlock()
		return ErrAlreadyLaunched
	}
	r.launched = true
	queue := r.pending
	r.pending = nil
	r.mu.Unlock()

	r.logger.Info().Int("pending", len(queue)).Msg("launching")
	var errs []error
	for _, inst := range queue {
		if err := r.activate(inst); err != nil {
			r.logger.Error().Err(err).Str("phetioID", inst.PhetioID()).Msg("activation failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) add(inst Instance) error {
	r.mu.Lock()
	if !r.launched {
		id := inst.PhetioID()
		if _, ok := r.instances[id]; ok || slices.ContainsFunc(r.pending, func(p Instance) bool { return p.PhetioID() == id }) {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		r.pending = append(r.pending, inst)
		active, pending := len(r.order), len(r.pending)
		r.mu.Unlock()

		r.logger.Debug().Str("phetioID", id).Msg("instance pending launch")
		r.metrics.Registered("pending")
		r.metrics.SetInstances(active, pending)
		return nil
	}
	r.mu.Unlock()
	return r.activate(inst)
}

func (r *Registry) activate(inst Instance) error {
	id := inst.PhetioID()

	r.mu.Lock()
	if _, ok := r.instances[id]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	r.instances[id] = inst
	r.order = append(r.order, id)
	listeners := slices.Clone(r.listeners)
	active, pending := len(r.order), len(r.pending)
	r.mu.Unlock()

	r.logger.Debug().Str("phetioID", id).Msg("instance added")
	r.metrics.Registered("added")
	r.metrics.SetInstances(active, pending)
	for _, l := range listeners {
		l.InstanceAdded(inst)
	}
	return nil
}

func (r *Registry) remove(inst Instance) error {
	id := inst.PhetioID()

	r.mu.Lock()
	if i := slices.IndexFunc(r.pending, func(p Instance) bool { return p == inst }); i >= 0 {
		// Never announced, so nothing to tell listeners.
		r.pending = slices.Delete(r.pending, i, i+1)
		active, pending := len(r.order), len(r.pending)
		r.mu.Unlock()
		r.metrics.SetInstances(active, pending)
		return nil
	}
	cur, ok := r.instances[id]
	if !ok || cur != inst {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	delete(r.instances, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	listeners := slices.Clone(r.listeners)
	active, pending := len(r.order), len(r.pending)
	r.mu.Unlock()

	r.logger.Debug().Str("phetioID", id).Msg("instance removed")
	r.metrics.Registered("removed")
	r.metrics.SetInstances(active, pending)
	for _, l := range listeners {
		l.InstanceRemoved(inst)
	}
	return nil
}

// AddInstanceListener subscribes l to future additions and removals.
func (r *Registry) AddInstanceListener(l apis.InstanceListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// RemoveInstanceListener unsubscribes l. Unknown listeners are ignored.
func (r *Registry) RemoveInstanceListener(l apis.InstanceListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = slices.DeleteFunc(r.listeners, func(x apis.InstanceListener) bool { return x == l })
}

// Instance returns the active instance with the given phetioID.
func (r *Registry) Instance(phetioID string) (Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[phetioID]
	return inst, ok
}

// Lookup implements iotype.References by returning the host of the active
// instance with the given phetioID.
func (r *Registry) Lookup(phetioID string) (any, bool) {
	inst, ok := r.Instance(phetioID)
	if !ok {
		return nil, false
	}
	return inst.Host(), true
}

var _ iotype.References = (*Registry)(nil)

// Instances returns the active instances in activation order.
func (r *Registry) Instances() []Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Instance, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.instances[id])
	}
	return out
}

// Count returns the number of active instances.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Pending returns the number of instances waiting for launch.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Defer schedules fn for the next Flush, the end of the current turn.
func (r *Registry) Defer(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred = append(r.deferred, fn)
}

// Flush runs deferred work in FIFO order, including work deferred while
// flushing, and returns how many functions ran.
func (r *Registry) Flush() int {
	n := 0
	for {
		r.mu.Lock()
		queue := r.deferred
		r.deferred = nil
		r.mu.Unlock()
		if len(queue) == 0 {
			return n
		}
		for _, fn := range queue {
			fn()
			n++
		}
	}
}

// Report records a diagnostic found outside a call that could return it.
func (r *Registry) Report(err error) {
	r.mu.Lock()
	r.diag = append(r.diag, err)
	r.mu.Unlock()
	r.logger.Warn().Err(err).Msg("instrumentation diagnostic")
}

// Diagnostics returns reported errors in order.
func (r *Registry) Diagnostics() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.diag)
}
