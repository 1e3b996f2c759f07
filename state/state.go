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

// Package state captures and restores the state of every instrumented
// element in a registry.
//
// Restoration runs in passes. Dynamic elements missing from the registry are
// created through their container; elements whose state references something
// not created yet fail with a retryable error and are tried again in the
// next pass. Restoration stops when everything is applied, or fails when a
// pass makes no progress or the pass limit is reached.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"dirpx.dev/phetio/apis"
	"dirpx.dev/phetio/config"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioid"
	"dirpx.dev/phetio/tandem"
)

var (
	// ErrRestoreStalled is returned when elements remain unrestored.
	ErrRestoreStalled = errors.New("phetio(state): restore made no progress")
	// ErrUnknownElement is returned for snapshot ids nothing can create.
	ErrUnknownElement = errors.New("phetio(state): unknown element")
	// ErrNotLaunched is returned by Restore before the registry launches.
	ErrNotLaunched = errors.New("phetio(state): registry not launched")
)

// Snapshot maps phetioIDs to state objects. It marshals as a plain JSON object.
type Snapshot map[string]any

// IDs returns the snapshot's ids in sorted order.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Write encodes s as JSON.
func (s Snapshot) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Read decodes a JSON snapshot. Numbers decode as float64.
func Read(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("phetio(state): decode snapshot: %w", err)
	}
	return s, nil
}

// Container is implemented by hosts that create and dispose dynamic
// elements on behalf of the state engine.
type Container interface {
	ElementIDs() []string
	CreateElementFromState(id string, state any, refs iotype.References) error
	DisposeElementByID(id string) error
}

type wrapped interface {
	Wrapper() *iotype.Wrapper
}

type archetyped interface {
	IsArchetype() bool
}

// stateful returns the wrapper of inst if its state belongs in a snapshot.
func stateful(inst apis.Instance) (*iotype.Wrapper, bool) {
	w, ok := inst.(wrapped)
	if !ok || w.Wrapper() == nil {
		return nil, false
	}
	if d, ok := inst.(apis.Described); ok && !d.Metadata().PhetioState {
		return nil, false
	}
	if a, ok := inst.(archetyped); ok && a.IsArchetype() {
		return nil, false
	}
	typ := w.Wrapper().Type()
	if typ.HasApplyState() {
		return w.Wrapper(), true
	}
	// Dynamic elements without applyState still need their constructor state.
	if typ.HasStateToArgs() && phetioid.IsDynamicElement(inst.PhetioID()) {
		return w.Wrapper(), true
	}
	return nil, false
}

// Capture serializes every stateful active instance.
func Capture(reg *tandem.Registry) (Snapshot, error) {
	snap := Snapshot{}
	for _, inst := range reg.Instances() {
		w, ok := stateful(inst)
		if !ok {
			continue
		}
		s, err := w.ToStateObject()
		if err != nil {
			return nil, fmt.Errorf("capture %s: %w", inst.PhetioID(), err)
		}
		snap[inst.PhetioID()] = s
	}
	logger := reg.Logger()
	logger.Debug().Int("elements", len(snap)).Msg("state captured")
	return snap, nil
}

// Restore makes the registry match snap. Instances created during
// restoration only become visible once the registry has launched.
func Restore(reg *tandem.Registry, snap Snapshot) error {
	if !reg.Launched() {
		return ErrNotLaunched
	}
	logger := reg.Logger().With().Str("component", "state").Logger()
	maxPasses := reg.Config().MaxRestorePasses
	if maxPasses <= 0 {
		maxPasses = config.DefaultMaxRestorePasses
	}

	if err := disposeExtras(reg, snap); err != nil {
		reg.Metrics().RestoreFinished(0, "dispose")
		return err
	}

	pending := snap.IDs()
	var (
		lastErrs []error
		pass     int
	)
	for pass = 1; pass <= maxPasses; pass++ {
		var (
			next     []string
			progress bool
		)
		lastErrs = lastErrs[:0]
		for _, id := range pending {
			done, err := restoreOne(reg, id, snap[id])
			switch {
			case err == nil && done:
				progress = true
			case err == nil:
				// Created this pass; its state gets applied next pass.
				progress = true
				next = append(next, id)
			case iotype.IsRetryable(err):
				next = append(next, id)
				lastErrs = append(lastErrs, err)
			default:
				reg.Metrics().RestoreFinished(pass, "fatal")
				return fmt.Errorf("restore %s: %w", id, err)
			}
		}
		logger.Debug().Int("pass", pass).Int("remaining", len(next)).Msg("restore pass")
		pending = next
		if len(pending) == 0 {
			reg.Metrics().RestoreFinished(pass, "")
			return nil
		}
		if !progress {
			break
		}
	}

	reg.Metrics().RestoreFinished(min(pass, maxPasses), "stalled")
	logger.Error().Strs("pending", pending).Msg("restore stalled")
	stalled := fmt.Errorf("%w: %s", ErrRestoreStalled, strings.Join(pending, ", "))
	if cause := errors.Join(lastErrs...); cause != nil {
		return fmt.Errorf("%w: %w", stalled, cause)
	}
	return stalled
}

// restoreOne applies state to id. done is false when the element was just
// created and still needs its state applied.
func restoreOne(reg *tandem.Registry, id string, s any) (done bool, err error) {
	if inst, ok := reg.Instance(id); ok {
		w, ok := inst.(wrapped)
		if !ok || w.Wrapper() == nil || !w.Wrapper().Type().HasApplyState() {
			return true, nil
		}
		return true, w.Wrapper().ApplyState(s, reg)
	}

	parentID, err := phetioid.ParentID(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	parent, ok := reg.Instance(parentID)
	if !ok {
		if phetioid.IsDynamicElement(parentID) {
			// The parent is itself dynamic and may appear in a later pass.
			return false, iotype.NotYetDeserializable(parentID)
		}
		return false, fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	c, ok := parent.Host().(Container)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownElement, id)
	}
	return false, c.CreateElementFromState(id, s, reg)
}

// disposeExtras removes dynamic elements the snapshot does not name, newest first.
func disposeExtras(reg *tandem.Registry, snap Snapshot) error {
	var errs []error
	for _, inst := range reg.Instances() {
		c, ok := inst.Host().(Container)
		if !ok {
			continue
		}
		ids := c.ElementIDs()
		slices.Reverse(ids)
		for _, id := range ids {
			if _, keep := snap[id]; keep {
				continue
			}
			errs = append(errs, c.DisposeElementByID(id))
		}
	}
	return errors.Join(errs...)
}
