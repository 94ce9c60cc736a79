/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrInvalidProofRequest is returned when a proof request is structurally invalid.
var ErrInvalidProofRequest = errors.New("invalid proof request")

// ProofRequest is an AnonCreds proof request as sent by a verifier.
type ProofRequest struct {
	Name                string                         `json:"name,omitempty"`
	Version             string                         `json:"version,omitempty"`
	Nonce               string                         `json:"nonce,omitempty"`
	RequestedAttributes map[string]*RequestedAttribute `json:"requested_attributes,omitempty"`
	RequestedPredicates map[string]*RequestedPredicate `json:"requested_predicates,omitempty"`
	NonRevoked          *NonRevokedInterval            `json:"non_revoked,omitempty"`
}

// RequestedAttribute asks for one attribute (Name) or a group of attributes (Names)
// disclosed from a single credential.
type RequestedAttribute struct {
	Name         string              `json:"name,omitempty"`
	Names        []string            `json:"names,omitempty"`
	Restrictions []*Restriction      `json:"restrictions,omitempty"`
	NonRevoked   *NonRevokedInterval `json:"non_revoked,omitempty"`
}

// RequestedPredicate asks for a zero-knowledge comparison over one attribute.
type RequestedPredicate struct {
	Name         string              `json:"name"`
	PType        PredicateType       `json:"p_type"`
	PValue       int64               `json:"p_value"`
	Restrictions []*Restriction      `json:"restrictions,omitempty"`
	NonRevoked   *NonRevokedInterval `json:"non_revoked,omitempty"`
}

// NonRevokedInterval is the interval in which the credential must not have been revoked.
type NonRevokedInterval struct {
	From int64 `json:"from,omitempty"`
	To   int64 `json:"to,omitempty"`
}

// AttributeNames returns the requested attribute names, whether given as name or names.
func (a *RequestedAttribute) AttributeNames() []string {
	if a.Name != "" {
		return []string{a.Name}
	}

	return a.Names
}

// UnmarshalJSON accepts p_value both as an integer and as an integer string. Fractional and
// out-of-range values are rejected.
func (p *RequestedPredicate) UnmarshalJSON(data []byte) error {
	type predicateAlias RequestedPredicate

	raw := struct {
		*predicateAlias
		PValue json.RawMessage `json:"p_value"`
	}{predicateAlias: (*predicateAlias)(p)}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw.PValue) == 0 || string(raw.PValue) == "null" {
		return nil
	}

	value := string(raw.PValue)

	if strings.HasPrefix(value, `"`) {
		if err := json.Unmarshal(raw.PValue, &value); err != nil {
			return fmt.Errorf("%w: predicate '%s' p_value: %w", ErrInvalidProofRequest, p.Name, err)
		}
	}

	pValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: predicate '%s' p_value '%s' is not an integer", ErrInvalidProofRequest,
			p.Name, value)
	}

	p.PValue = pValue

	return nil
}

// ParseProofRequest parses a proof request from raw JSON, a JSON string or a generic map.
func ParseProofRequest(payload interface{}) (*ProofRequest, error) {
	var (
		data []byte
		err  error
	)

	switch p := payload.(type) {
	case nil:
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidProofRequest)
	case *ProofRequest:
		return p, nil
	case ProofRequest:
		return &p, nil
	case []byte:
		data = p
	case json.RawMessage:
		data = p
	case string:
		data = []byte(p)
	default:
		data, err = json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal proof request payload: %w", err)
		}
	}

	req := &ProofRequest{}

	if err = json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProofRequest, err)
	}

	return req, nil
}

// Validate checks the structure of the proof request.
func (r *ProofRequest) Validate() error {
	if len(r.RequestedAttributes) == 0 && len(r.RequestedPredicates) == 0 {
		return fmt.Errorf("%w: no requested attributes or predicates", ErrInvalidProofRequest)
	}

	for _, id := range r.AttributeGroupIDs() {
		attr := r.RequestedAttributes[id]

		switch {
		case attr == nil:
			return fmt.Errorf("%w: attribute group '%s' has no body", ErrInvalidProofRequest, id)
		case attr.Name != "" && len(attr.Names) > 0:
			return fmt.Errorf("%w: attribute group '%s' has both name and names", ErrInvalidProofRequest, id)
		case attr.Name == "" && len(attr.Names) == 0:
			return fmt.Errorf("%w: attribute group '%s' has neither name nor names", ErrInvalidProofRequest, id)
		case slices.Contains(attr.Names, ""):
			return fmt.Errorf("%w: attribute group '%s' has an empty name", ErrInvalidProofRequest, id)
		}
	}

	for _, id := range r.PredicateGroupIDs() {
		pred := r.RequestedPredicates[id]

		switch {
		case pred == nil:
			return fmt.Errorf("%w: predicate group '%s' has no body", ErrInvalidProofRequest, id)
		case pred.Name == "":
			return fmt.Errorf("%w: predicate group '%s' has no name", ErrInvalidProofRequest, id)
		case pred.PType == "":
			return fmt.Errorf("%w: predicate group '%s' has no p_type", ErrInvalidProofRequest, id)
		}

		// Selections are addressed by group id alone.
		if _, ok := r.RequestedAttributes[id]; ok {
			return fmt.Errorf("%w: group id '%s' is both an attribute and a predicate group",
				ErrInvalidProofRequest, id)
		}
	}

	return nil
}

// AttributeGroupIDs returns the attribute group ids in sorted order.
func (r *ProofRequest) AttributeGroupIDs() []string {
	ids := maps.Keys(r.RequestedAttributes)
	slices.Sort(ids)

	return ids
}

// PredicateGroupIDs returns the predicate group ids in sorted order.
func (r *ProofRequest) PredicateGroupIDs() []string {
	ids := maps.Keys(r.RequestedPredicates)
	slices.Sort(ids)

	return ids
}
