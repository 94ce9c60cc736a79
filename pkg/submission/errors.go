/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import "errors"

var (
	// ErrMalformedRequest is returned when the request lacks a structurally required field.
	// No submission is produced.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrUnknownOperator is returned when a predicate uses an operator outside the supported set.
	ErrUnknownOperator = errors.New("unknown predicate operator")
	// ErrDanglingReference is returned when a resolved candidate references a group id that does
	// not belong to the declaration it was resolved for.
	ErrDanglingReference = errors.New("dangling group reference")
	// ErrInvalidSelection is returned when selecting a credential that is not an option of the
	// entry, or an entry that does not exist.
	ErrInvalidSelection = errors.New("invalid selection")
)
