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

package main

import (
	"fmt"
	"reflect"

	"dirpx.dev/phetio/group"
	"dirpx.dev/phetio/iotype"
	"dirpx.dev/phetio/phetioobject"
	"dirpx.dev/phetio/property"
	"dirpx.dev/phetio/tandem"
)

// ball is the dynamic element of the example simulation.
type ball struct {
	phetioobject.PhetioObject
	mass float64
}

func (b *ball) kick(speed float64) error {
	if err := b.StartEvent("kicked", phetioobject.WithData(map[string]any{"speed": speed})); err != nil {
		return err
	}
	return b.EndEvent()
}

var ballIO = iotype.MustNew(iotype.Options{
	Name:          "BallIO",
	Documentation: "A ball that can be launched",
	ValueType:     reflect.TypeOf(&ball{}),
	Events:        []string{"kicked"},
	Validator: func(v any) error {
		if v.(*ball).mass < 0 {
			return fmt.Errorf("negative mass %v", v.(*ball).mass)
		}
		return nil
	},
	ToStateObject: func(v any) (any, error) {
		return map[string]any{"mass": v.(*ball).mass}, nil
	},
	StateToArgsForConstructor: func(state any, _ iotype.References) ([]any, error) {
		m, ok := state.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: BallIO got %T", iotype.ErrInvalidState, state)
		}
		return []any{m["mass"]}, nil
	},
	ApplyState: func(obj any, state any, _ iotype.References) error {
		m, ok := state.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: BallIO got %T", iotype.ErrInvalidState, state)
		}
		mass, ok := m["mass"].(float64)
		if !ok {
			return fmt.Errorf("%w: BallIO mass %T", iotype.ErrInvalidState, m["mass"])
		}
		obj.(*ball).mass = mass
		return nil
	},
})

func createBall(t *tandem.Tandem, args ...any) (*ball, error) {
	mass, ok := args[0].(float64)
	if !ok {
		return nil, fmt.Errorf("ball mass must be a number, got %T", args[0])
	}
	b := &ball{mass: mass}
	if err := b.Initialize(b, phetioobject.Options{Tandem: t, PhetioType: ballIO}); err != nil {
		return nil, err
	}
	return b, nil
}

// simulation is a projectile model with a gravity setting and a group of balls.
type simulation struct {
	gravity *property.Property[float64]
	balls   *group.Group[*ball]
}

func newSimulation(reg *tandem.Registry, name string) (*simulation, error) {
	root, err := reg.Root(name)
	if err != nil {
		return nil, err
	}
	gravity, err := property.New(9.8, property.Options{Options: phetioobject.Options{
		Tandem:        root.MustCreateTandem("gravityProperty"),
		Documentation: "Gravitational acceleration in m/s^2",
		Featured:      true,
	}})
	if err != nil {
		return nil, err
	}
	balls, err := group.New(group.Options{
		Object:           phetioobject.Options{Tandem: root.MustCreateTandem("balls")},
		MemberType:       ballIO,
		Prefix:           "ball",
		DefaultArguments: []any{1.0},
	}, createBall)
	if err != nil {
		return nil, err
	}
	return &simulation{gravity: gravity, balls: balls}, nil
}

// script drives the model through a short scenario: two balls, a kick, a
// gravity change and one disposal.
func (s *simulation) script() error {
	b0, err := s.balls.CreateNextElement(0.5)
	if err != nil {
		return err
	}
	b1, err := s.balls.CreateNextElement(2.0)
	if err != nil {
		return err
	}
	if err := b1.kick(12); err != nil {
		return err
	}
	if err := s.gravity.Set(1.6); err != nil {
		return err
	}
	return s.balls.DisposeElement(b0)
}
