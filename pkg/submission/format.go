/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import (
	"fmt"
)

var operatorPhrases = map[string]string{
	">":  "greater than",
	">=": "greater than or equal to",
	"<":  "less than",
	"<=": "less than or equal to",
}

// FormatPredicate restates a predicate in words, e.g. "age greater than or equal to 18".
func FormatPredicate(p *Predicate) (string, error) {
	phrase, ok := operatorPhrases[p.Operator]
	if !ok {
		return "", fmt.Errorf("%w: '%s' on '%s'", ErrUnknownOperator, p.Operator, p.Name)
	}

	return fmt.Sprintf("%s %s %d", p.Name, phrase, p.Value), nil
}

// entryName picks the display name: verifier label, then the name derived from issuer, schema or
// credential type, then the generic label, then the request comment.
func entryName(b *entryBuilder, genericName, comment string) string {
	for _, name := range []string{b.label, b.derivedName, genericName} {
		if name != "" {
			return name
		}
	}

	return comment
}

// requestedFields lists what credentialID supplies for the entry. Predicates are restated.
func requestedFields(b *entryBuilder, credentialID string) ([]*RequestedField, error) {
	var (
		fields []*RequestedField
		seen   = map[string]struct{}{}
		values = b.values[credentialID]
	)

	for _, decl := range b.declarations {
		if decl.Predicate != nil {
			label, err := FormatPredicate(decl.Predicate)
			if err != nil {
				return nil, err
			}

			fields = append(fields, &RequestedField{
				Name:      decl.Predicate.Name,
				Label:     label,
				Predicate: decl.Predicate,
			})

			continue
		}

		for _, name := range decl.Names {
			if _, ok := seen[name]; ok {
				continue
			}

			seen[name] = struct{}{}

			fields = append(fields, &RequestedField{
				Name:  name,
				Value: values[name],
				Label: name,
			})
		}
	}

	return fields, nil
}

// format turns a finished entry builder into an entry using the resolved display data.
func format(b *entryBuilder, displays map[string]*CredentialDisplay, genericName, comment string,
) (*SubmissionEntry, error) {
	// Operators are checked even when nothing can satisfy the entry.
	for _, decl := range b.declarations {
		if decl.Predicate != nil {
			if _, err := FormatPredicate(decl.Predicate); err != nil {
				return nil, err
			}
		}
	}

	entry := &SubmissionEntry{
		Name:            entryName(b, genericName, comment),
		Purpose:         b.purpose,
		GroupIDs:        b.groupIDs,
		RequestedFields: b.requestedNames(),
		Options:         make([]*SubmissionOption, 0, len(b.candidates)),
	}

	for _, id := range b.candidates {
		fields, err := requestedFields(b, id)
		if err != nil {
			return nil, err
		}

		display, ok := displays[id]
		if !ok {
			display = &CredentialDisplay{ID: id}
		}

		entry.Options = append(entry.Options, &SubmissionOption{Credential: display, Fields: fields})
	}

	if len(entry.Options) > 0 {
		entry.Selected = entry.Options[0]
	}

	return entry, nil
}
