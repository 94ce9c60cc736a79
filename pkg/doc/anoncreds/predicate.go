/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"errors"
	"fmt"
)

// PredicateType is the comparison operator of a requested predicate.
type PredicateType string

const (
	// GreaterThan is the ">" predicate.
	GreaterThan PredicateType = ">"
	// GreaterThanOrEqual is the ">=" predicate.
	GreaterThanOrEqual PredicateType = ">="
	// LessThan is the "<" predicate.
	LessThan PredicateType = "<"
	// LessThanOrEqual is the "<=" predicate.
	LessThanOrEqual PredicateType = "<="
)

// ErrUnsupportedPredicate is returned for predicate types outside the supported set.
var ErrUnsupportedPredicate = errors.New("unsupported predicate type")

// Satisfied reports whether value compared to threshold satisfies the predicate.
func (p PredicateType) Satisfied(value, threshold int64) (bool, error) {
	switch p {
	case GreaterThan:
		return value > threshold, nil
	case GreaterThanOrEqual:
		return value >= threshold, nil
	case LessThan:
		return value < threshold, nil
	case LessThanOrEqual:
		return value <= threshold, nil
	default:
		return false, fmt.Errorf("%w: '%s'", ErrUnsupportedPredicate, p)
	}
}
