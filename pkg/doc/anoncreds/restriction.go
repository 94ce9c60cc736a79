/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	attrPrefix   = "attr::"
	valueSuffix  = "::value"
	markerSuffix = "::marker"
)

// Restriction limits which credentials may satisfy a requested attribute or predicate.
// All set fields of a restriction must hold for a credential to satisfy it.
type Restriction struct {
	SchemaID        string `json:"schema_id,omitempty"`
	SchemaIssuerDID string `json:"schema_issuer_did,omitempty"`
	SchemaName      string `json:"schema_name,omitempty"`
	SchemaVersion   string `json:"schema_version,omitempty"`
	IssuerDID       string `json:"issuer_did,omitempty"`
	CredDefID       string `json:"cred_def_id,omitempty"`

	// AttributeValues holds attr::<name>::value restrictions.
	AttributeValues map[string]string `json:"-"`
	// AttributeMarkers holds attr::<name>::marker restrictions.
	AttributeMarkers map[string]bool `json:"-"`
}

// IsEmpty reports whether the restriction constrains nothing.
func (r *Restriction) IsEmpty() bool {
	return r.SchemaID == "" && r.SchemaIssuerDID == "" && r.SchemaName == "" && r.SchemaVersion == "" &&
		r.IssuerDID == "" && r.CredDefID == "" && len(r.AttributeValues) == 0 && len(r.AttributeMarkers) == 0
}

// UnmarshalJSON decodes the fixed restriction fields plus attr:: keyed restrictions.
func (r *Restriction) UnmarshalJSON(data []byte) error {
	raw := map[string]interface{}{}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type restrictionAlias Restriction

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           (*restrictionAlias)(r),
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("create restriction decoder: %w", err)
	}

	if err = decoder.Decode(raw); err != nil {
		return fmt.Errorf("decode restriction: %w", err)
	}

	for key, value := range raw {
		if !strings.HasPrefix(key, attrPrefix) {
			continue
		}

		switch {
		case strings.HasSuffix(key, valueSuffix):
			if r.AttributeValues == nil {
				r.AttributeValues = map[string]string{}
			}

			r.AttributeValues[strings.TrimSuffix(strings.TrimPrefix(key, attrPrefix), valueSuffix)] = fmt.Sprint(value)
		case strings.HasSuffix(key, markerSuffix):
			if r.AttributeMarkers == nil {
				r.AttributeMarkers = map[string]bool{}
			}

			var marker bool

			if err = mapstructure.WeakDecode(value, &marker); err != nil {
				return fmt.Errorf("decode restriction %s: %w", key, err)
			}

			r.AttributeMarkers[strings.TrimSuffix(strings.TrimPrefix(key, attrPrefix), markerSuffix)] = marker
		}
	}

	return nil
}

// MarshalJSON encodes the restriction in its wire form.
func (r Restriction) MarshalJSON() ([]byte, error) {
	raw := map[string]interface{}{}

	for key, value := range map[string]string{
		"schema_id":         r.SchemaID,
		"schema_issuer_did": r.SchemaIssuerDID,
		"schema_name":       r.SchemaName,
		"schema_version":    r.SchemaVersion,
		"issuer_did":        r.IssuerDID,
		"cred_def_id":       r.CredDefID,
	} {
		if value != "" {
			raw[key] = value
		}
	}

	for name, value := range r.AttributeValues {
		raw[attrPrefix+name+valueSuffix] = value
	}

	for name, marker := range r.AttributeMarkers {
		if marker {
			raw[attrPrefix+name+markerSuffix] = "1"
		} else {
			raw[attrPrefix+name+markerSuffix] = "0"
		}
	}

	return json.Marshal(raw)
}

// CredentialName returns a human name derived from the restriction's identifiers, or "" when none
// can be derived.
func (r *Restriction) CredentialName() string {
	if name := CredentialName(r.CredDefID, r.SchemaID); name != "" {
		return name
	}

	return r.SchemaName
}
