/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"errors"
	"fmt"
	"strings"
)

const (
	legacySchemaMarker    = "2"
	legacyCredDefMarker   = "3"
	legacySignatureType   = "CL"
	anonCredsObjectPrefix = "/anoncreds/v0/"
	schemaObjectType      = "SCHEMA"
	credDefObjectType     = "CLAIM_DEF"
	defaultCredDefTag     = "default"
	genericCredentialName = "credential"
)

// ErrInvalidIdentifier is returned when a schema or credential definition id cannot be parsed.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// SchemaID is a parsed schema identifier.
type SchemaID struct {
	IssuerID string
	Name     string
	Version  string
}

// CredDefID is a parsed credential definition identifier.
type CredDefID struct {
	IssuerID  string
	SchemaRef string
	Tag       string
}

// ParseSchemaID parses legacy (<did>:2:<name>:<version>) and did:indy
// (<did>/anoncreds/v0/SCHEMA/<name>/<version>) schema identifiers.
func ParseSchemaID(id string) (*SchemaID, error) {
	if issuer, rest, ok := strings.Cut(id, anonCredsObjectPrefix); ok {
		parts := strings.Split(rest, "/")
		if len(parts) != 3 || parts[0] != schemaObjectType {
			return nil, fmt.Errorf("%w: schema id '%s'", ErrInvalidIdentifier, id)
		}

		return &SchemaID{IssuerID: issuer, Name: parts[1], Version: parts[2]}, nil
	}

	parts := strings.Split(id, ":")

	n := len(parts)
	if n < 4 || parts[n-3] != legacySchemaMarker {
		return nil, fmt.Errorf("%w: schema id '%s'", ErrInvalidIdentifier, id)
	}

	return &SchemaID{
		IssuerID: strings.Join(parts[:n-3], ":"),
		Name:     parts[n-2],
		Version:  parts[n-1],
	}, nil
}

// ParseCredDefID parses legacy (<did>:3:CL:<schema>:<tag>) and did:indy
// (<did>/anoncreds/v0/CLAIM_DEF/<schema>/<tag>) credential definition identifiers.
func ParseCredDefID(id string) (*CredDefID, error) {
	if issuer, rest, ok := strings.Cut(id, anonCredsObjectPrefix); ok {
		parts := strings.Split(rest, "/")
		if len(parts) != 3 || parts[0] != credDefObjectType {
			return nil, fmt.Errorf("%w: cred def id '%s'", ErrInvalidIdentifier, id)
		}

		return &CredDefID{IssuerID: issuer, SchemaRef: parts[1], Tag: parts[2]}, nil
	}

	parts := strings.Split(id, ":")

	for i := 1; i+3 < len(parts); i++ {
		if parts[i] != legacyCredDefMarker || parts[i+1] != legacySignatureType {
			continue
		}

		return &CredDefID{
			IssuerID:  strings.Join(parts[:i], ":"),
			SchemaRef: strings.Join(parts[i+2:len(parts)-1], ":"),
			Tag:       parts[len(parts)-1],
		}, nil
	}

	return nil, fmt.Errorf("%w: cred def id '%s'", ErrInvalidIdentifier, id)
}

// CredentialName derives a display name from a credential definition tag, falling back to the
// schema name when the tag is generic. Returns "" when neither id yields a name.
func CredentialName(credDefID, schemaID string) string {
	var name string

	if credDef, err := ParseCredDefID(credDefID); err == nil {
		name = credDef.Tag
	}

	switch strings.ToLower(name) {
	case "", defaultCredDefTag, genericCredentialName:
		name = ""

		if schema, err := ParseSchemaID(schemaID); err == nil {
			name = schema.Name
		}
	}

	return name
}

// CanonicalAttributeName returns the attribute name as compared by AnonCreds: lower case with
// all whitespace removed.
func CanonicalAttributeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "")
}
