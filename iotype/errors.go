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

package iotype

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingName is returned when an IO type is defined without a name.
	ErrMissingName = errors.New("phetio(iotype): missing type name")
	// ErrMissingDocumentation is returned when an IO type is defined without documentation.
	ErrMissingDocumentation = errors.New("phetio(iotype): missing documentation")
	// ErrInvalidMethod is returned for a method declaration missing a required field.
	ErrInvalidMethod = errors.New("phetio(iotype): invalid method declaration")
	// ErrInvalidVersion is returned when Options.Version is not a semantic version.
	ErrInvalidVersion = errors.New("phetio(iotype): invalid version")
	// ErrNilParameterType is returned when a parameter type is nil.
	ErrNilParameterType = errors.New("phetio(iotype): nil parameter type")

	// ErrInvalidValue is returned when a value fails a type's validator.
	ErrInvalidValue = errors.New("phetio(iotype): invalid value")
	// ErrInvalidState is returned when a state object cannot be decoded.
	ErrInvalidState = errors.New("phetio(iotype): invalid state object")
	// ErrOneWay is returned by FromStateObject of a serialize-only type.
	ErrOneWay = errors.New("phetio(iotype): type does not deserialize")
	// ErrNotSerializable is returned by ToStateObject of a type without a state form.
	ErrNotSerializable = errors.New("phetio(iotype): type does not serialize")
	// ErrNoApplyState is returned when a type cannot apply state to an instance.
	ErrNoApplyState = errors.New("phetio(iotype): type has no applyState")
	// ErrNoStateToArgs is returned when a type cannot derive constructor arguments.
	ErrNoStateToArgs = errors.New("phetio(iotype): type has no stateToArgsForConstructor")
	// ErrUnknownMethod is returned when invoking a method the type does not declare.
	ErrUnknownMethod = errors.New("phetio(iotype): unknown method")
	// ErrReadOnly is returned when invoking a mutating method on a read-only element.
	ErrReadOnly = errors.New("phetio(iotype): method not invocable on read-only element")
	// ErrArgumentCount is returned when a method is invoked with the wrong arity.
	ErrArgumentCount = errors.New("phetio(iotype): wrong number of arguments")
	// ErrDisposed is returned when using a disposed wrapper.
	ErrDisposed = errors.New("phetio(iotype): wrapper disposed")

	// ErrNotYetDeserializable signals that a state object references an
	// element that does not exist yet. Restoration should retry later.
	ErrNotYetDeserializable = errors.New("phetio(iotype): not yet deserializable")
)

// RetryableError marks a deserialization failure that may succeed in a later
// restoration pass, typically because PhetioID is not registered yet.
type RetryableError struct {
	// PhetioID is the element that could not be found, if known.
	PhetioID string
	// Err is the underlying cause.
	Err error
}

// NotYetDeserializable builds a RetryableError for a missing phetioID.
func NotYetDeserializable(phetioID string) *RetryableError {
	return &RetryableError{PhetioID: phetioID, Err: ErrNotYetDeserializable}
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	if e.PhetioID == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.PhetioID)
}

// Unwrap returns the underlying error.
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err should be retried in a later pass.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}
	return errors.Is(err, ErrNotYetDeserializable)
}
