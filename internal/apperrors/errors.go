/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package apperrors holds the error kinds every domain failure is tagged
// with, so the transport layer can pick a response without parsing messages.
package apperrors

import (
	"fmt"

	"github.com/juju/errors"
)

const (
	// NotFound describes an entity that does not exist.
	NotFound = errors.ConstError("not found")

	// InsufficientFunds describes a debit that would take a balance below zero.
	InsufficientFunds = errors.ConstError("insufficient funds")

	// Unauthorized describes an actor without rights over the target.
	Unauthorized = errors.ConstError("unauthorized")

	// AlreadyExists describes a duplicate operation.
	AlreadyExists = errors.ConstError("already exists")

	// InvalidInput describes a malformed argument.
	InvalidInput = errors.ConstError("invalid input")

	// DependencyFailure describes a failed call to the store or an external service.
	DependencyFailure = errors.ConstError("dependency failure")
)

// Error is a tagged domain failure. It matches both its kind and its
// reason under errors.Is.
type Error struct {
	kind   errors.ConstError
	reason error
	detail string
	cause  error
}

// New returns a failure of the given kind for a component-specific reason.
func New(kind errors.ConstError, reason error, format string, args ...any) error {
	return &Error{kind: kind, reason: reason, detail: fmt.Sprintf(format, args...)}
}

// Wrap is like New but keeps the underlying cause reachable through Unwrap.
func Wrap(kind errors.ConstError, reason error, cause error, format string, args ...any) error {
	return &Error{kind: kind, reason: reason, detail: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	msg := e.kind.Error()
	if e.reason != nil && e.reason != error(e.kind) {
		msg = e.reason.Error()
	}
	if e.detail != "" {
		msg += ": " + e.detail
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == error(e.kind) || (e.reason != nil && target == e.reason)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns the failure kind.
func (e *Error) Kind() errors.ConstError {
	return e.kind
}

// Reason returns the component sentinel the failure was raised for.
func (e *Error) Reason() error {
	return e.reason
}

// KindOf returns the kind of the first tagged failure in err's chain, or
// an empty kind when err carries none.
func KindOf(err error) errors.ConstError {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.kind
	}
	return ""
}
