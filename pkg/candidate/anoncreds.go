/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package candidate

import (
	"strconv"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/doc/anoncreds"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/store/credential"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

const genericCredentialName = "Credential"

// matchAnonCreds reports whether the record satisfies the declaration and returns the values it
// supplies, keyed by the requested names.
func matchAnonCreds(record *credential.Record, decl *submission.Declaration) (map[string]string, bool) {
	if !satisfiesAny(record, decl.Restrictions) {
		return nil, false
	}

	attributes := canonicalAttributes(record)
	values := make(map[string]string, len(decl.Names))

	for _, name := range decl.Names {
		value, ok := attributes[anoncreds.CanonicalAttributeName(name)]
		if !ok {
			return nil, false
		}

		values[name] = value
	}

	if decl.Predicate != nil {
		value, err := strconv.ParseInt(values[decl.Predicate.Name], 10, 64)
		if err != nil {
			return nil, false
		}

		ok, err := anoncreds.PredicateType(decl.Predicate.Operator).Satisfied(value, decl.Predicate.Value)
		if err != nil || !ok {
			return nil, false
		}
	}

	return values, true
}

func canonicalAttributes(record *credential.Record) map[string]string {
	attributes := make(map[string]string, len(record.Attributes))

	for name, value := range record.Attributes {
		attributes[anoncreds.CanonicalAttributeName(name)] = value
	}

	return attributes
}

// satisfiesAny reports whether the record satisfies at least one restriction. No restrictions
// accept every record.
func satisfiesAny(record *credential.Record, restrictions []*anoncreds.Restriction) bool {
	if len(restrictions) == 0 {
		return true
	}

	for _, restriction := range restrictions {
		if restriction != nil && satisfies(record, restriction) {
			return true
		}
	}

	return false
}

func satisfies(record *credential.Record, r *anoncreds.Restriction) bool {
	schema, err := anoncreds.ParseSchemaID(record.SchemaID)
	if err != nil {
		schema = &anoncreds.SchemaID{}
	}

	issuer := record.IssuerID
	if issuer == "" {
		if credDef, e := anoncreds.ParseCredDefID(record.CredDefID); e == nil {
			issuer = credDef.IssuerID
		}
	}

	for _, check := range []struct{ want, got string }{
		{r.SchemaID, record.SchemaID},
		{r.SchemaIssuerDID, schema.IssuerID},
		{r.SchemaName, schema.Name},
		{r.SchemaVersion, schema.Version},
		{r.IssuerDID, issuer},
		{r.CredDefID, record.CredDefID},
	} {
		if check.want != "" && check.want != check.got {
			return false
		}
	}

	attributes := canonicalAttributes(record)

	for name, want := range r.AttributeValues {
		if got, ok := attributes[anoncreds.CanonicalAttributeName(name)]; !ok || got != want {
			return false
		}
	}

	for name, marker := range r.AttributeMarkers {
		if _, ok := attributes[anoncreds.CanonicalAttributeName(name)]; ok != marker {
			return false
		}
	}

	return true
}

func anonCredsDisplay(record *credential.Record) *submission.CredentialDisplay {
	display := &submission.CredentialDisplay{
		ID:     record.ID,
		Name:   anoncreds.CredentialName(record.CredDefID, record.SchemaID),
		Format: string(record.Format),
	}

	if credDef, err := anoncreds.ParseCredDefID(record.CredDefID); err == nil {
		display.IssuerName = credDef.IssuerID
	}

	applyOverrides(display, record.Display)

	if display.Name == "" {
		display.Name = genericCredentialName
	}

	return display
}

func applyOverrides(display *submission.CredentialDisplay, overrides *credential.Display) {
	if overrides == nil {
		return
	}

	for _, field := range []struct {
		dst *string
		src string
	}{
		{&display.Name, overrides.Name},
		{&display.IssuerName, overrides.IssuerName},
		{&display.Logo, overrides.Logo},
		{&display.BackgroundColor, overrides.BackgroundColor},
		{&display.TextColor, overrides.TextColor},
	} {
		if field.src != "" {
			*field.dst = field.src
		}
	}
}
